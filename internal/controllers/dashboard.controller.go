package controllers

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"wallboard/internal/middleware"
	"wallboard/internal/models"
	"wallboard/internal/views"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SnapshotCollector produces a fresh host snapshot and notice tail
type SnapshotCollector interface {
	Collect(ctx context.Context) (models.HostSnapshot, models.NoticeLog)
}

// DashboardController serves the wall dashboard page
type DashboardController struct {
	collector SnapshotCollector
	opts      views.PageOptions
	render    func(io.Writer, models.Page) error
	log       *zap.Logger
}

func NewDashboardController(collector SnapshotCollector, opts views.PageOptions, log *zap.Logger) *DashboardController {
	if log == nil {
		log = zap.NewNop()
	}
	return &DashboardController{
		collector: collector,
		opts:      opts,
		render:    views.Render,
		log:       log,
	}
}

// Show collects host facts for this request and renders the page.
// Nothing is written until rendering has succeeded.
func (dc *DashboardController) Show(c *gin.Context) {
	snap, notices := dc.collector.Collect(c.Request.Context())
	page := views.BuildPage(snap, notices, dc.opts)

	var buf bytes.Buffer
	if err := dc.render(&buf, page); err != nil {
		dc.log.Error("render dashboard", zap.Error(err), zap.String("request_id", c.GetString(middleware.RequestIDKey)))
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
