package services

import (
	"context"
	"strings"

	"wallboard/internal/models"
)

// ServiceProbe asks systemd whether each configured unit is running
type ServiceProbe struct {
	runner CommandRunner
	checks []models.ServiceCheck
}

func NewServiceProbe(runner CommandRunner, checks []models.ServiceCheck) *ServiceProbe {
	return &ServiceProbe{runner: runner, checks: checks}
}

// Probe returns one status per configured check, in configuration order.
// `systemctl is-active` exits non-zero for anything but "active" and still
// prints the state, so the output is used even when err is set.
func (p *ServiceProbe) Probe(ctx context.Context) []models.ServiceStatus {
	statuses := make([]models.ServiceStatus, 0, len(p.checks))
	for _, check := range p.checks {
		unit := check.Unit
		if unit == "" {
			unit = strings.ToLower(check.Name)
		}

		out, _ := p.runner.Run(ctx, "systemctl", "is-active", unit)
		state := strings.TrimSpace(out)
		if state == "" {
			state = "unknown"
		}

		statuses = append(statuses, models.ServiceStatus{
			Name:   check.Name,
			Unit:   unit,
			Active: state == "active",
			State:  state,
		})
	}
	return statuses
}
