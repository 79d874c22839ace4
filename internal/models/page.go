package models

// Page is everything the dashboard template needs for one render
type Page struct {
	Title          string
	Updated        string
	RefreshSeconds int
	Snapshot       HostSnapshot
	Notices        []string
	Integrations   []Integration
	LinksHeading   string
	LinksBanner    string
	Features       []string
	Footer         []string
	FooterNote     string
	MonitoredPorts int
	LiveReload     bool
	LivePath       string
}
