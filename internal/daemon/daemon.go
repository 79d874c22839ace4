// Package daemon runs the dashboard under the host's service manager
// (systemd, launchd, Windows SCM) through kardianos/service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"time"

	"wallboard/internal/config"

	kardianos "github.com/kardianos/service"
	"go.uber.org/zap"
)

// RunFunc serves until ctx is cancelled
type RunFunc func(ctx context.Context) error

// IsControlAction reports whether action is one of
// start, stop, restart, install or uninstall.
func IsControlAction(action string) bool {
	return slices.Contains(kardianos.ControlAction[:], action)
}

// Manager adapts a RunFunc to kardianos.Interface
type Manager struct {
	cfg         config.ServiceConfig
	args        []string
	run         RunFunc
	stopTimeout time.Duration
	log         *zap.Logger
	exit        func(int)

	cancel context.CancelFunc
	done   chan error
}

// New builds a manager. args are passed to the installed service's command
// line, e.g. ["-config", "/etc/wallboard/wallboard.yaml"].
func New(cfg config.ServiceConfig, args []string, run RunFunc, stopTimeout time.Duration, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:         cfg,
		args:        args,
		run:         run,
		stopTimeout: stopTimeout,
		log:         log,
		exit:        os.Exit,
	}
}

func (m *Manager) newService() (kardianos.Service, error) {
	if m.cfg.Name == "" {
		return nil, errors.New("service name cannot be empty")
	}
	return kardianos.New(m, &kardianos.Config{
		Name:        m.cfg.Name,
		DisplayName: m.cfg.DisplayName,
		Description: m.cfg.Description,
		Arguments:   m.args,
	})
}

// Start is called by the service manager and must not block
func (m *Manager) Start(s kardianos.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan error, 1)

	m.log.Info("service starting", zap.String("service", m.cfg.Name))
	go func() {
		err := m.run(ctx)
		m.done <- err
		if err != nil && ctx.Err() == nil {
			// the listener died on its own; let the service manager restart us
			m.log.Error("service stopped unexpectedly", zap.Error(err))
			m.exit(1)
		}
	}()
	return nil
}

// Stop cancels the run context and waits for it to drain
func (m *Manager) Stop(s kardianos.Service) error {
	m.log.Info("service stopping", zap.String("service", m.cfg.Name))
	if m.cancel == nil {
		return nil
	}
	m.cancel()

	timeout := m.stopTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	select {
	case err := <-m.done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("service did not stop within %v", timeout)
	}
}

// Run hands control to the service manager and blocks until it stops us
func (m *Manager) Run() error {
	s, err := m.newService()
	if err != nil {
		return err
	}
	return s.Run()
}

// Control performs an install, uninstall, start, stop or restart
func (m *Manager) Control(action string) error {
	if !IsControlAction(action) {
		return fmt.Errorf("unknown service action %q", action)
	}
	s, err := m.newService()
	if err != nil {
		return err
	}
	if err := kardianos.Control(s, action); err != nil {
		if runtime.GOOS == "windows" {
			return fmt.Errorf("%s service (requires administrator privileges): %w", action, err)
		}
		return fmt.Errorf("%s service: %w", action, err)
	}
	m.log.Info("service action complete", zap.String("action", action), zap.String("service", m.cfg.Name))
	return nil
}

// Interactive reports whether we were started from a terminal rather than
// by a service manager
func Interactive() bool {
	return kardianos.Interactive()
}
