// Package config loads wallboard settings from built-in defaults, an optional
// YAML file, a .env file and WALLBOARD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wallboard/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "WALLBOARD"
	NoticeFileName = ".enhanced-wall-notices.log"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Collector CollectorConfig `mapstructure:"collector"`
	Notices   NoticesConfig   `mapstructure:"notices"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Static    StaticConfig    `mapstructure:"static"`
	Live      LiveConfig      `mapstructure:"live"`
	Service   ServiceConfig   `mapstructure:"service"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	AllowedIPs      []string      `mapstructure:"allowed_ips"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"` // may set X-Forwarded-For
}

// Addr returns the listen address as host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// URL is the address printed on startup.
func (c ServerConfig) URL() string {
	host := c.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Port)
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type CollectorConfig struct {
	Provider       string        `mapstructure:"provider"` // shell | native
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	NTPCommands    []string      `mapstructure:"ntp_commands"`
	NTPMaxLines    int           `mapstructure:"ntp_max_lines"`
}

type NoticesConfig struct {
	Path         string `mapstructure:"path"`
	ReadLimit    int    `mapstructure:"read_limit"`
	DisplayLimit int    `mapstructure:"display_limit"`
}

type DashboardConfig struct {
	Title          string                `mapstructure:"title"`
	RefreshSeconds int                   `mapstructure:"refresh_seconds"`
	MonitoredPorts int                   `mapstructure:"monitored_ports"`
	Services       []models.ServiceCheck `mapstructure:"services"`
	Integrations   []models.Integration  `mapstructure:"integrations"`
	LinksHeading   string                `mapstructure:"links_heading"`
	LinksBanner    string                `mapstructure:"links_banner"`
	Features       []string              `mapstructure:"features"`
	Footer         []string              `mapstructure:"footer"`
	FooterNote     string                `mapstructure:"footer_note"`
}

type StaticConfig struct {
	Root            string `mapstructure:"root"`
	ListDirectories bool   `mapstructure:"list_directories"`
}

type LiveConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Path     string        `mapstructure:"path"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	DisplayName string `mapstructure:"display_name"`
	Description string `mapstructure:"description"`
}

// DefaultNoticePath is the notice log under the invoking user's home directory.
func DefaultNoticePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return NoticeFileName
	}
	return filepath.Join(home, NoticeFileName)
}

// ExpandHome resolves a leading "~/" against the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8888)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.allowed_ips", []string{})
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 1)

	v.SetDefault("collector.provider", "shell")
	v.SetDefault("collector.command_timeout", "3s")
	v.SetDefault("collector.ntp_commands", []string{"ntpq -p", "chronyc sources"})
	v.SetDefault("collector.ntp_max_lines", 10)

	v.SetDefault("notices.path", DefaultNoticePath())
	v.SetDefault("notices.read_limit", 5)
	v.SetDefault("notices.display_limit", 10)

	v.SetDefault("dashboard.title", "Enhanced Wall Notification System v3.0")
	v.SetDefault("dashboard.refresh_seconds", 30)
	v.SetDefault("dashboard.monitored_ports", 11)
	v.SetDefault("dashboard.services", []map[string]any{
		{"name": "SSH", "unit": "ssh"},
		{"name": "Docker", "unit": "docker"},
		{"name": "Nginx", "unit": "nginx"},
		{"name": "VS Code Monitor", "unit": "vscode-latency-monitor"},
	})
	v.SetDefault("dashboard.integrations", []map[string]any{
		{"name": "Rust Monitor", "url": "http://localhost:3030", "label": "Dashboard"},
		{"name": "Telemetry API", "url": "http://localhost:8081", "label": "Telemetry"},
		{"name": "GitHub", "url": "https://github.com/danindiana/vscode-latency-monitor", "text": "Repository"},
	})
	v.SetDefault("dashboard.links_heading", "🦀 VS Code Latency Monitor")
	v.SetDefault("dashboard.links_banner", "🚀 Rust Integration Active")
	v.SetDefault("dashboard.features", []string{
		"NTP Monitoring Integration",
		"Enhanced Logging System",
		"Machine Task Automation",
		"VS Code Approvals (3000+ commands)",
		"Rust Performance Monitoring",
		"SQLx Database Integration",
		"LAN Telemetry Services",
	})
	v.SetDefault("dashboard.footer", []string{
		"🏠 Enhanced Wall Notice System | 🦀 VS Code Latency Monitor Integration",
		"Powered by Calisota.ai | GitHub Copilot AI Assistant",
	})
	v.SetDefault("dashboard.footer_note",
		"Part of the VS Code Latency Monitor project - High-performance Rust monitoring with SQLx integration")

	v.SetDefault("static.root", ".")
	v.SetDefault("static.list_directories", false)

	v.SetDefault("live.enabled", true)
	v.SetDefault("live.path", "/ws")
	v.SetDefault("live.debounce", "250ms")

	v.SetDefault("service.name", "wallboard")
	v.SetDefault("service.display_name", "Wall Notice Dashboard")
	v.SetDefault("service.description", "Serves the wall notice host status dashboard")
}

// Load reads configuration from file and environment variables.
// A missing config file is not an error; defaults are used instead.
func Load(configPath string) (*viper.Viper, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("wallboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/wallboard")
	}

	// WALLBOARD_SERVER_PORT=9090
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return v, nil
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Notices.Path = ExpandHome(cfg.Notices.Path)
	cfg.Logging.File = ExpandHome(cfg.Logging.File)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return errors.New("server.rate_limit and server.rate_burst must not be negative")
	}
	for _, p := range c.Server.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", p)
			}
		}
	}
	switch c.Collector.Provider {
	case "shell", "native":
	default:
		return fmt.Errorf("collector.provider %q: must be \"shell\" or \"native\"", c.Collector.Provider)
	}
	if c.Collector.CommandTimeout <= 0 {
		return errors.New("collector.command_timeout must be positive")
	}
	if c.Notices.ReadLimit < 1 {
		return errors.New("notices.read_limit must be at least 1")
	}
	if c.Notices.DisplayLimit < 1 {
		return errors.New("notices.display_limit must be at least 1")
	}
	if c.Dashboard.RefreshSeconds < 1 {
		return errors.New("dashboard.refresh_seconds must be at least 1")
	}
	if c.Live.Enabled && !strings.HasPrefix(c.Live.Path, "/") {
		return fmt.Errorf("live.path %q must start with /", c.Live.Path)
	}
	return nil
}
