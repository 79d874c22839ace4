package models

// ServiceCheck names a systemd unit to show in the services panel
type ServiceCheck struct {
	Name string `json:"name" mapstructure:"name"`
	Unit string `json:"unit" mapstructure:"unit"`
}

// ServiceStatus is the probed state of a ServiceCheck
type ServiceStatus struct {
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Active bool   `json:"active"`
	State  string `json:"state"`
}
