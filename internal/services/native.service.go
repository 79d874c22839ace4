package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"wallboard/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// NativeProvider reads host facts through gopsutil instead of spawning
// processes. NTP peers still come from the command runner.
type NativeProvider struct {
	runner      CommandRunner
	ntpCommands [][]string
	ntpMaxLines int
	diskPath    string
}

func NewNativeProvider(runner CommandRunner, ntpCommands []string, ntpMaxLines int) *NativeProvider {
	if ntpMaxLines <= 0 {
		ntpMaxLines = DefaultNTPMaxLines
	}
	return &NativeProvider{
		runner:      runner,
		ntpCommands: splitCommands(ntpCommands),
		ntpMaxLines: ntpMaxLines,
		diskPath:    "/",
	}
}

func (p *NativeProvider) Facts(ctx context.Context) models.HostSnapshot {
	var snap models.HostSnapshot
	fail := func(label string, err error) {
		snap.Errors = append(snap.Errors, fmt.Sprintf("%s: %v", label, err))
	}

	if info, err := host.InfoWithContext(ctx); err != nil {
		fail("host", err)
	} else {
		snap.Hostname = info.Hostname
		snap.Uptime = FormatUptime(time.Duration(info.Uptime) * time.Second)
	}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		fail("load average", err)
	} else {
		snap.LoadAverage = fmt.Sprintf("%.2f, %.2f, %.2f", avg.Load1, avg.Load5, avg.Load15)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		fail("memory", err)
	} else {
		snap.MemoryUsage = FormatMemory(vm.Used, vm.Total)
	}

	if usage, err := disk.UsageWithContext(ctx, p.diskPath); err != nil {
		fail("disk", err)
	} else {
		snap.DiskUsage = fmt.Sprintf("%.0f%%", math.Ceil(usage.UsedPercent))
	}

	if peers, err := queryNTP(ctx, p.runner, p.ntpCommands, p.ntpMaxLines); err != nil {
		fail("ntp", err)
	} else {
		snap.NTPPeers = peers
	}

	sort.Strings(snap.Errors)
	return snap
}

// FormatUptime renders a duration the way `uptime -p` does,
// e.g. "up 1 week, 2 days, 3 hours, 4 minutes".
func FormatUptime(d time.Duration) string {
	minutes := int(d / time.Minute)
	weeks := minutes / (7 * 24 * 60)
	minutes -= weeks * 7 * 24 * 60
	days := minutes / (24 * 60)
	minutes -= days * 24 * 60
	hours := minutes / 60
	minutes -= hours * 60

	var parts []string
	add := func(n int, unit string) {
		if n == 0 {
			return
		}
		if n == 1 {
			parts = append(parts, fmt.Sprintf("%d %s", n, unit))
			return
		}
		parts = append(parts, fmt.Sprintf("%d %ss", n, unit))
	}
	add(weeks, "week")
	add(days, "day")
	add(hours, "hour")
	add(minutes, "minute")

	if len(parts) == 0 {
		return "up 0 minutes"
	}
	return "up " + strings.Join(parts, ", ")
}

// FormatMemory renders used/total in the short IEC form `free -h` prints,
// e.g. "3.1Gi/15Gi".
func FormatMemory(used, total uint64) string {
	return shortIEC(used) + "/" + shortIEC(total)
}

func shortIEC(n uint64) string {
	// humanize.IBytes gives "3.1 GiB"; free -h prints "3.1Gi"
	s := strings.ReplaceAll(humanize.IBytes(n), " ", "")
	return strings.TrimSuffix(s, "B")
}

// CountActiveInterfaces reports how many non-loopback interfaces are up
func CountActiveInterfaces(ctx context.Context) (int, error) {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return 0, err
	}

	active := 0
	for _, iface := range ifaces {
		up, loopback := false, false
		for _, flag := range iface.Flags {
			switch flag {
			case "up":
				up = true
			case "loopback":
				loopback = true
			}
		}
		if up && !loopback {
			active++
		}
	}
	return active, nil
}
