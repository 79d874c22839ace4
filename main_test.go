package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wallboard/internal/config"
	"wallboard/internal/middleware"
	"wallboard/internal/models"
	"wallboard/internal/services"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCollector struct{}

func (stubCollector) Collect(context.Context) (models.HostSnapshot, models.NoticeLog) {
	return models.HostSnapshot{Hostname: "wallhost-01", Timestamp: time.Now()},
		models.NoticeLog{Lines: []string{"backup ok"}}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	v, err := config.Load("")
	require.NoError(t, err)
	v.Set("static.root", t.TempDir())
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestSplitCommand(t *testing.T) {
	cmd, rest := splitCommand([]string{"install", "-config", "x.yaml"})
	assert.Equal(t, "install", cmd)
	assert.Equal(t, []string{"-config", "x.yaml"}, rest)

	cmd, rest = splitCommand([]string{"-port", "9000"})
	assert.Empty(t, cmd)
	assert.Equal(t, []string{"-port", "9000"}, rest)

	cmd, rest = splitCommand(nil)
	assert.Empty(t, cmd)
	assert.Empty(t, rest)
}

func TestServiceArgs(t *testing.T) {
	assert.Empty(t, serviceArgs("", 0))

	args := serviceArgs("wallboard.yaml", 9000)
	require.Len(t, args, 4)
	assert.Equal(t, "-config", args[0])
	assert.True(t, filepath.IsAbs(args[1]))
	assert.Equal(t, []string{"-port", "9000"}, args[2:])
}

func TestRun_VersionAndUnknownCommand(t *testing.T) {
	assert.NoError(t, run([]string{"version"}))
	assert.Error(t, run([]string{"frobnicate"}))
}

func TestPrintBanner(t *testing.T) {
	color.NoColor = true
	cfg := testConfig(t)

	var buf bytes.Buffer
	printBanner(&buf, cfg)

	out := buf.String()
	assert.Contains(t, out, "running on http://localhost:8888")
	assert.Contains(t, out, "🔄 Auto-refresh every 30 seconds")
	assert.Contains(t, out, "(ports 3030, 8081)")
}

func TestNewEngine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Static.Root, "style.css"), []byte("body{}"), 0o644))

	r := newEngine(cfg, stubCollector{}, nil, zap.NewNop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Body.String(), "backup ok")
	assert.NotContains(t, w.Body.String(), "new WebSocket")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/style.css", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nonexistent-file.xyz", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewEngine_LiveReload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)

	r := newEngine(cfg, stubCollector{}, services.NewHub(nil), zap.NewNop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, w.Body.String(), "new WebSocket")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewEngine_RateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 1

	r := newEngine(cfg, stubCollector{}, nil, zap.NewNop())

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func serveFrom(r http.Handler, remote, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestNewEngine_ForwardedForIgnoredFromUntrustedPeer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.Server.AllowedIPs = []string{"192.0.2.10"}

	r := newEngine(cfg, stubCollector{}, nil, zap.NewNop())

	assert.Equal(t, http.StatusForbidden, serveFrom(r, "198.51.100.7:4000", ""))
	assert.Equal(t, http.StatusForbidden, serveFrom(r, "198.51.100.7:4000", "127.0.0.1"))
	assert.Equal(t, http.StatusForbidden, serveFrom(r, "198.51.100.7:4000", "192.0.2.10"))
	assert.Equal(t, http.StatusOK, serveFrom(r, "192.0.2.10:4000", ""))
}

func TestNewEngine_RotatedForwardedForSharesBucket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 1

	r := newEngine(cfg, stubCollector{}, nil, zap.NewNop())

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		codes = append(codes, serveFrom(r, "198.51.100.7:4000", fmt.Sprintf("203.0.113.%d", i+1)))
	}
	assert.Equal(t, []int{
		http.StatusOK,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}

func TestNewEngine_TrustedProxyForwardsClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.Server.AllowedIPs = []string{"192.0.2.10"}
	cfg.Server.TrustedProxies = []string{"198.51.100.0/24"}

	r := newEngine(cfg, stubCollector{}, nil, zap.NewNop())

	assert.Equal(t, http.StatusOK, serveFrom(r, "198.51.100.7:4000", "192.0.2.10"))
	assert.Equal(t, http.StatusForbidden, serveFrom(r, "198.51.100.7:4000", "203.0.113.9"))
}

func TestStartLive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notices.Path = filepath.Join(t.TempDir(), "notices.log")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub, stop := startLive(ctx, cfg, zap.NewNop())
	defer stop()
	assert.NotNil(t, hub)
}

func TestStartLive_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Live.Enabled = false

	hub, stop := startLive(context.Background(), cfg, zap.NewNop())
	stop()
	assert.Nil(t, hub)
}

func TestStartLive_WatcherStartFailureKeepsServing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notices.Path = filepath.Join(t.TempDir(), "missing-dir", "notices.log")

	hub, stop := startLive(context.Background(), cfg, zap.NewNop())
	stop()
	assert.Nil(t, hub)
}

func TestStartLive_WatcherCreateFailureKeepsServing(t *testing.T) {
	orig := newNoticeWatcher
	t.Cleanup(func() { newNoticeWatcher = orig })
	newNoticeWatcher = func(string, time.Duration, func(), *zap.Logger) (noticeWatcher, error) {
		return nil, errors.New("too many open files")
	}
	cfg := testConfig(t)

	hub, stop := startLive(context.Background(), cfg, zap.NewNop())
	stop()
	require.Nil(t, hub)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	newEngine(cfg, stubCollector{}, hub, zap.NewNop()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "new WebSocket")
}
