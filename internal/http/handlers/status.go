package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/geocoder89/safeguard/internal/backend"
)

const serviceName = "safeguard-console"

type BackendProber interface {
	Probe(ctx context.Context) backend.HealthReport
}

type StatusOptions struct {
	Backend     BackendProber
	StoragePing func(ctx context.Context) error
	Version     string
	Environment string
	Log         *slog.Logger
}

type StatusHandler struct {
	opts    StatusOptions
	started time.Time
	now     func() time.Time
}

func NewStatusHandler(opts StatusOptions) *StatusHandler {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.Environment == "" {
		opts.Environment = "development"
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &StatusHandler{opts: opts, started: time.Now(), now: time.Now}
}

type backendStatus struct {
	Status       string `json:"status"`
	URL          string `json:"url"`
	ResponseTime string `json:"responseTime"`
}

type statusChecks struct {
	Frontend string `json:"frontend"`
	Backend  string `json:"backend"`
	Storage  string `json:"storage"`
	Overall  string `json:"overall"`
}

type statusResponse struct {
	Service      string        `json:"service"`
	Status       string        `json:"status"`
	Timestamp    string        `json:"timestamp"`
	Uptime       float64       `json:"uptime"`
	Version      string        `json:"version"`
	Environment  string        `json:"environment"`
	ResponseTime string        `json:"responseTime"`
	Backend      backendStatus `json:"backend"`
	Checks       statusChecks  `json:"checks"`
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// Status reports the console's own health and probes the backend and the
// session storage concurrently.
func (h *StatusHandler) Status(ctx *gin.Context) {
	start := h.now()

	var (
		report     backend.HealthReport
		storageErr error
	)

	g, gctx := errgroup.WithContext(ctx.Request.Context())
	g.Go(func() error {
		if h.opts.Backend != nil {
			report = h.opts.Backend.Probe(gctx)
		} else {
			report = backend.HealthReport{Status: backend.Unreachable}
		}
		return nil
	})
	g.Go(func() error {
		if h.opts.StoragePing == nil {
			return nil
		}
		pctx, cancel := context.WithTimeout(gctx, 2*time.Second)
		defer cancel()
		storageErr = h.opts.StoragePing(pctx)
		return nil
	})
	_ = g.Wait()

	if report.Err != nil {
		h.opts.Log.WarnContext(ctx.Request.Context(), "backend health check failed", "err", report.Err)
	}

	storage := "healthy"
	if storageErr != nil {
		storage = "unhealthy"
		h.opts.Log.WarnContext(ctx.Request.Context(), "storage health check failed", "err", storageErr)
	}

	overall := "degraded"
	if report.Status == backend.Healthy && storageErr == nil {
		overall = "healthy"
	}

	now := h.now()
	resp := statusResponse{
		Service:      serviceName,
		Status:       "healthy",
		Timestamp:    now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Uptime:       now.Sub(h.started).Seconds(),
		Version:      h.opts.Version,
		Environment:  h.opts.Environment,
		ResponseTime: ms(now.Sub(start)),
		Backend: backendStatus{
			Status:       string(report.Status),
			URL:          report.URL,
			ResponseTime: ms(report.ResponseTime),
		},
		Checks: statusChecks{
			Frontend: "healthy",
			Backend:  string(report.Status),
			Storage:  storage,
			Overall:  overall,
		},
	}

	ctx.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	ctx.Header("Pragma", "no-cache")
	ctx.Header("Expires", "0")
	ctx.JSON(http.StatusOK, resp)
}
