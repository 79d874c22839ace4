package models

import "time"

// HostSnapshot is the point-in-time view of the host rendered on the wall.
// Every string field is empty when its source could not be queried.
type HostSnapshot struct {
	Hostname         string          `json:"hostname"`
	Uptime           string          `json:"uptime"`
	LoadAverage      string          `json:"load_average"`
	MemoryUsage      string          `json:"memory_usage"`
	DiskUsage        string          `json:"disk_usage"`
	NTPPeers         string          `json:"ntp_peers"`
	Services         []ServiceStatus `json:"services,omitempty"`
	ActiveInterfaces int             `json:"active_interfaces"`
	Timestamp        time.Time       `json:"timestamp"`
	Errors           []string        `json:"errors,omitempty"`
}
