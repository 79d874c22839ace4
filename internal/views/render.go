// Package views renders the wall dashboard. The page is a single embedded
// html/template, so every value taken from command output is HTML-escaped.
package views

import (
	_ "embed"
	"html/template"
	"io"
	"net/url"
	"strings"
	"time"

	"wallboard/internal/models"
)

// TimestampLayout matches the "Last Updated" header, e.g. 2024-05-01 13:37:00
const TimestampLayout = "2006-01-02 15:04:05"

//go:embed dashboard.html
var dashboardHTML string

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
	"port":  urlPort,
}).Parse(dashboardHTML))

// PageOptions holds the static, configuration-driven parts of the page
type PageOptions struct {
	Title          string
	RefreshSeconds int
	DisplayLimit   int
	MonitoredPorts int
	Integrations   []models.Integration
	LinksHeading   string
	LinksBanner    string
	Features       []string
	Footer         []string
	FooterNote     string
	LiveReload     bool
	LivePath       string
	Location       *time.Location
}

// BuildPage combines a snapshot and the notice tail into the template model.
// At most DisplayLimit notice lines are shown, and never more than were read.
func BuildPage(snap models.HostSnapshot, notices models.NoticeLog, opts PageOptions) models.Page {
	ts := snap.Timestamp
	if opts.Location != nil {
		ts = ts.In(opts.Location)
	}
	return models.Page{
		Title:          opts.Title,
		Updated:        ts.Format(TimestampLayout),
		RefreshSeconds: opts.RefreshSeconds,
		Snapshot:       snap,
		Notices:        notices.Tail(opts.DisplayLimit),
		Integrations:   opts.Integrations,
		LinksHeading:   opts.LinksHeading,
		LinksBanner:    opts.LinksBanner,
		Features:       opts.Features,
		Footer:         opts.Footer,
		FooterNote:     opts.FooterNote,
		MonitoredPorts: opts.MonitoredPorts,
		LiveReload:     opts.LiveReload,
		LivePath:       opts.LivePath,
	}
}

// Render writes the complete HTML document for page to w
func Render(w io.Writer, page models.Page) error {
	return dashboardTmpl.Execute(w, page)
}

func urlPort(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Port()
}
