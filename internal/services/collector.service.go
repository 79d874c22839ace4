package services

import (
	"context"
	"time"

	"wallboard/internal/models"

	"go.uber.org/zap"
)

// Collector gathers a fresh snapshot and notice tail for every request.
// Nothing is cached between calls.
type Collector struct {
	facts      FactsProvider
	probe      *ServiceProbe
	notices    *NoticeReader
	interfaces func(context.Context) (int, error)
	now        func() time.Time
	log        *zap.Logger
}

type CollectorOption func(*Collector)

// WithClock replaces time.Now as the snapshot timestamp source.
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) { c.now = now }
}

// WithInterfaceCounter replaces the gopsutil interface count.
func WithInterfaceCounter(fn func(context.Context) (int, error)) CollectorOption {
	return func(c *Collector) { c.interfaces = fn }
}

// WithServiceProbe enables the systemd services panel.
func WithServiceProbe(p *ServiceProbe) CollectorOption {
	return func(c *Collector) { c.probe = p }
}

func NewCollector(facts FactsProvider, notices *NoticeReader, log *zap.Logger, opts ...CollectorOption) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Collector{
		facts:      facts,
		notices:    notices,
		interfaces: CountActiveInterfaces,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect never fails; unavailable sources leave their fields empty.
func (c *Collector) Collect(ctx context.Context) (models.HostSnapshot, models.NoticeLog) {
	snap := c.facts.Facts(ctx)
	snap.Timestamp = c.now()

	if c.probe != nil {
		snap.Services = c.probe.Probe(ctx)
	}

	if n, err := c.interfaces(ctx); err != nil {
		snap.Errors = append(snap.Errors, "interfaces: "+err.Error())
	} else {
		snap.ActiveInterfaces = n
	}

	var notices models.NoticeLog
	if c.notices != nil {
		var err error
		notices, err = c.notices.Read()
		if err != nil {
			snap.Errors = append(snap.Errors, "notices: "+err.Error())
		}
	}

	if len(snap.Errors) > 0 {
		c.log.Debug("partial host snapshot", zap.Strings("errors", snap.Errors))
	}
	return snap, notices
}
