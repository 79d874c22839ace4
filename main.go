package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"wallboard/internal/config"
	"wallboard/internal/controllers"
	"wallboard/internal/daemon"
	"wallboard/internal/middleware"
	"wallboard/internal/routes"
	"wallboard/internal/services"
	"wallboard/internal/views"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "wallboard:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd, args := splitCommand(args)

	fs := flag.NewFlagSet("wallboard", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file (default: search for wallboard.yaml)")
	port := fs.Int("port", 0, "listen port (overrides server.port)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: wallboard [install|uninstall|start|stop|restart|version] [-config file] [-port n]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if cmd == "version" {
		fmt.Println("wallboard", version)
		return nil
	}
	if cmd != "" && !daemon.IsControlAction(cmd) {
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	v, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port > 0 {
		v.Set("server.port", *port)
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	mgr := daemon.New(cfg.Service, serviceArgs(*configPath, *port), func(ctx context.Context) error {
		return serve(ctx, cfg, logger)
	}, cfg.Server.ShutdownTimeout, logger.Named("daemon"))

	if cmd != "" {
		return mgr.Control(cmd)
	}

	if daemon.Interactive() {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	}
	return mgr.Run()
}

// splitCommand separates a leading subcommand from flags
func splitCommand(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

// serviceArgs is the command line the installed service is started with
func serviceArgs(configPath string, port int) []string {
	var args []string
	if configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			configPath = abs
		}
		args = append(args, "-config", configPath)
	}
	if port > 0 {
		args = append(args, "-port", strconv.Itoa(port))
	}
	return args
}

func newCollector(cfg *config.Config, log *zap.Logger) *services.Collector {
	runner := services.NewExecRunner(cfg.Collector.CommandTimeout)

	var facts services.FactsProvider
	switch cfg.Collector.Provider {
	case "native":
		facts = services.NewNativeProvider(runner, cfg.Collector.NTPCommands, cfg.Collector.NTPMaxLines)
	default:
		facts = services.NewShellProvider(runner, cfg.Collector.NTPCommands, cfg.Collector.NTPMaxLines)
	}

	return services.NewCollector(
		facts,
		services.NewNoticeReader(cfg.Notices.Path, cfg.Notices.ReadLimit),
		log.Named("collector"),
		services.WithServiceProbe(services.NewServiceProbe(runner, cfg.Dashboard.Services)),
	)
}

func pageOptions(cfg *config.Config) views.PageOptions {
	return views.PageOptions{
		Title:          cfg.Dashboard.Title,
		RefreshSeconds: cfg.Dashboard.RefreshSeconds,
		DisplayLimit:   cfg.Notices.DisplayLimit,
		MonitoredPorts: cfg.Dashboard.MonitoredPorts,
		Integrations:   cfg.Dashboard.Integrations,
		LinksHeading:   cfg.Dashboard.LinksHeading,
		LinksBanner:    cfg.Dashboard.LinksBanner,
		Features:       cfg.Dashboard.Features,
		Footer:         cfg.Dashboard.Footer,
		FooterNote:     cfg.Dashboard.FooterNote,
		LiveReload:     cfg.Live.Enabled,
		LivePath:       cfg.Live.Path,
		Location:       time.Local,
	}
}

// newEngine wires middleware and routes. hub is nil when live reload is off.
func newEngine(cfg *config.Config, collector controllers.SnapshotCollector, hub *services.Hub, log *zap.Logger) *gin.Engine {
	r := gin.New()
	// client IPs come from the peer address unless it is a configured proxy
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Warn("ignoring trusted_proxies", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(log.Named("http")))
	r.Use(middleware.SecurityHeadersMiddleware())

	allow, invalid := middleware.NewIPAllowList(cfg.Server.AllowedIPs)
	if len(invalid) > 0 {
		log.Warn("ignoring invalid allowed_ips entries", zap.Strings("entries", invalid))
	}
	r.Use(middleware.IPAllowListMiddleware(allow, log.Named("security")))
	r.Use(middleware.RateLimitMiddleware(
		middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
		log.Named("security"),
	))

	opts := pageOptions(cfg)
	opts.LiveReload = opts.LiveReload && hub != nil
	routes.RegisterDashboardRoutes(r, controllers.NewDashboardController(collector, opts, log.Named("dashboard")))
	if hub != nil {
		routes.RegisterLiveRoutes(r, cfg.Live.Path, controllers.NewLiveController(hub, log.Named("live")))
	}
	routes.RegisterStaticRoutes(r, cfg.Static.Root, cfg.Static.ListDirectories)
	return r
}

type noticeWatcher interface {
	Start(ctx context.Context) error
	Stop()
}

var newNoticeWatcher = func(path string, debounce time.Duration, onChange func(), log *zap.Logger) (noticeWatcher, error) {
	return services.NewNoticeWatcher(path, debounce, onChange, log)
}

// startLive runs the live-reload hub and notice watcher. When the watcher
// cannot be set up it returns a nil hub and the page relies on its refresh.
func startLive(ctx context.Context, cfg *config.Config, log *zap.Logger) (*services.Hub, func()) {
	if !cfg.Live.Enabled {
		return nil, func() {}
	}

	hub := services.NewHub(log.Named("live"))
	watcher, err := newNoticeWatcher(cfg.Notices.Path, cfg.Live.Debounce, hub.NotifyNotice, log.Named("watcher"))
	if err == nil {
		if err = watcher.Start(ctx); err != nil {
			watcher.Stop()
		}
	}
	if err != nil {
		log.Warn("live reload disabled", zap.Error(err))
		return nil, func() {}
	}

	go hub.Run(ctx)
	return hub, watcher.Stop
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	hub, stopLive := startLive(ctx, cfg, log)
	defer stopLive()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           newEngine(cfg, newCollector(cfg, log), hub, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("notices", cfg.Notices.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	printBanner(os.Stdout, cfg)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func printBanner(w io.Writer, cfg *config.Config) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprintf(w, "🌐 %s running on %s\n", cfg.Dashboard.Title, cfg.Server.URL())
	green.Fprintf(w, "🔄 Auto-refresh every %d seconds\n", cfg.Dashboard.RefreshSeconds)

	var ports []string
	for _, in := range cfg.Dashboard.Integrations {
		if u, err := url.Parse(in.URL); err == nil && u.Port() != "" {
			ports = append(ports, u.Port())
		}
	}
	if len(ports) > 0 {
		yellow.Fprintf(w, "🦀 Integrated with local monitors (ports %s)\n", strings.Join(ports, ", "))
	}
}
