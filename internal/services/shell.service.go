package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"wallboard/internal/models"

	"golang.org/x/sync/errgroup"
)

// FactsProvider gathers the host facts shown on the dashboard. Implementations
// never fail as a whole: a field whose source is unavailable is left empty and
// the reason is appended to HostSnapshot.Errors.
type FactsProvider interface {
	Facts(ctx context.Context) models.HostSnapshot
}

const DefaultNTPMaxLines = 10

// ShellProvider reads host facts by invoking the usual procps/coreutils tools
type ShellProvider struct {
	runner      CommandRunner
	ntpCommands [][]string
	ntpMaxLines int
}

// NewShellProvider builds a provider. ntpCommands are tried in order until one
// succeeds, e.g. "ntpq -p" then "chronyc sources".
func NewShellProvider(runner CommandRunner, ntpCommands []string, ntpMaxLines int) *ShellProvider {
	if ntpMaxLines <= 0 {
		ntpMaxLines = DefaultNTPMaxLines
	}
	return &ShellProvider{
		runner:      runner,
		ntpCommands: splitCommands(ntpCommands),
		ntpMaxLines: ntpMaxLines,
	}
}

func (p *ShellProvider) Facts(ctx context.Context) models.HostSnapshot {
	var (
		snap models.HostSnapshot
		mu   sync.Mutex
		g    errgroup.Group
	)

	// Each query writes only its own field; errors are shared.
	query := func(label string, dst *string, fn func(context.Context) (string, error)) {
		g.Go(func() error {
			out, err := fn(ctx)
			if err != nil {
				mu.Lock()
				snap.Errors = append(snap.Errors, fmt.Sprintf("%s: %v", label, err))
				mu.Unlock()
				return nil
			}
			*dst = out
			return nil
		})
	}

	query("uptime", &snap.Uptime, p.uptime)
	query("hostname", &snap.Hostname, p.hostname)
	query("load average", &snap.LoadAverage, p.loadAverage)
	query("memory", &snap.MemoryUsage, p.memory)
	query("disk", &snap.DiskUsage, p.disk)
	query("ntp", &snap.NTPPeers, func(ctx context.Context) (string, error) {
		return queryNTP(ctx, p.runner, p.ntpCommands, p.ntpMaxLines)
	})

	_ = g.Wait()
	sort.Strings(snap.Errors)
	return snap
}

func (p *ShellProvider) uptime(ctx context.Context) (string, error) {
	out, err := p.runner.Run(ctx, "uptime", "-p")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (p *ShellProvider) hostname(ctx context.Context) (string, error) {
	out, err := p.runner.Run(ctx, "hostname")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (p *ShellProvider) loadAverage(ctx context.Context) (string, error) {
	out, err := p.runner.Run(ctx, "uptime")
	if err != nil {
		return "", err
	}
	return parseLoadAverage(out)
}

func (p *ShellProvider) memory(ctx context.Context) (string, error) {
	out, err := p.runner.Run(ctx, "free", "-h")
	if err != nil {
		return "", err
	}
	return parseMemoryUsage(out)
}

func (p *ShellProvider) disk(ctx context.Context) (string, error) {
	out, err := p.runner.Run(ctx, "df", "-h", "/")
	if err != nil {
		return "", err
	}
	return parseDiskUsage(out)
}

// parseLoadAverage returns the text after "load average:" in uptime output.
// BSD and macOS print "load averages:".
func parseLoadAverage(out string) (string, error) {
	for _, marker := range []string{"load average:", "load averages:"} {
		if i := strings.LastIndex(out, marker); i >= 0 {
			return strings.TrimSpace(out[i+len(marker):]), nil
		}
	}
	return "", errors.New("load average not found in uptime output")
}

// parseMemoryUsage returns "used/total" from the Mem: row of `free -h`.
func parseMemoryUsage(out string) (string, error) {
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 3 && fields[0] == "Mem:" {
			return fields[2] + "/" + fields[1], nil
		}
	}
	return "", errors.New("no Mem: row in free output")
}

// parseDiskUsage returns the Use% column of the first filesystem row of
// `df -h /`. Long device names make df wrap the row onto a second line.
func parseDiskUsage(out string) (string, error) {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 2 {
		return "", errors.New("no filesystem row in df output")
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 5 && len(lines) > 2 {
		fields = append(fields, strings.Fields(lines[2])...)
	}
	if len(fields) < 5 {
		return "", fmt.Errorf("unexpected df row %q", lines[1])
	}
	return fields[4], nil
}

// queryNTP runs the first NTP status command that succeeds and keeps its
// first maxLines lines.
func queryNTP(ctx context.Context, runner CommandRunner, commands [][]string, maxLines int) (string, error) {
	if len(commands) == 0 {
		return "", errors.New("no ntp command configured")
	}
	var errs []error
	for _, argv := range commands {
		out, err := runner.Run(ctx, argv[0], argv[1:]...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return headLines(out, maxLines), nil
	}
	return "", errors.Join(errs...)
}

func headLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if n > 0 && len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

func splitCommands(commands []string) [][]string {
	out := make([][]string, 0, len(commands))
	for _, c := range commands {
		if argv := strings.Fields(c); len(argv) > 0 {
			out = append(out, argv)
		}
	}
	return out
}
