package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallboard/internal/models"
	"wallboard/internal/views"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCollector struct {
	snap    models.HostSnapshot
	notices models.NoticeLog
	calls   int
}

func (s *stubCollector) Collect(context.Context) (models.HostSnapshot, models.NoticeLog) {
	s.calls++
	return s.snap, s.notices
}

func newDashboard(col SnapshotCollector) (*gin.Engine, *DashboardController) {
	dc := NewDashboardController(col, views.PageOptions{
		Title:          "Wall",
		RefreshSeconds: 30,
		DisplayLimit:   10,
		Location:       time.UTC,
	}, nil)
	r := gin.New()
	r.GET("/", dc.Show)
	r.GET("/index.html", dc.Show)
	return r, dc
}

func TestDashboardController_Show(t *testing.T) {
	col := &stubCollector{
		snap: models.HostSnapshot{
			Hostname:  "wallhost-01",
			Timestamp: time.Date(2024, 5, 1, 13, 37, 0, 0, time.UTC),
		},
		notices: models.NoticeLog{Lines: []string{"backup ok"}},
	}
	r, _ := newDashboard(col)

	for _, path := range []string{"/", "/index.html"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "Host: wallhost-01")
		assert.Contains(t, w.Body.String(), "backup ok")
	}
	assert.Equal(t, 2, col.calls)
}

func TestDashboardController_RenderFailure(t *testing.T) {
	r, dc := newDashboard(&stubCollector{})
	dc.render = func(io.Writer, models.Page) error { return errors.New("template broke") }

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "<html")

	// the handler keeps serving once rendering recovers
	dc.render = views.Render
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
