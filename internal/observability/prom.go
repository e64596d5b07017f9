package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	// Backend API
	BackendDuration    *prometheus.HistogramVec
	BackendErrorsTotal *prometheus.CounterVec

	// Gates
	GateDecisions *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "safeguard",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "safeguard",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "safeguard",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		BackendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "safeguard",
				Subsystem: "backend",
				Name:      "call_duration_seconds",
				Help:      "Backend API call latency by logical op.",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"op", "status"},
		),
		BackendErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "safeguard",
				Subsystem: "backend",
				Name:      "errors_total",
				Help:      "Backend API transport errors by op and class.",
			},
			[]string{"op", "class"},
		),
		GateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "safeguard",
				Subsystem: "gate",
				Name:      "decisions_total",
				Help:      "Edge and page gate outcomes.",
			},
			[]string{"gate", "state"}, // gate=edge|page
		),
	}
	reg.MustRegister(p.RequestsTotal, p.RequestsDuration, p.InFlight, p.BackendDuration, p.BackendErrorsTotal, p.GateDecisions)

	return p
}

// ObserveGate is nil-safe so gates can run without metrics in tests.
func (p *Prom) ObserveGate(gate, state string) {
	if p == nil {
		return
	}
	p.GateDecisions.WithLabelValues(gate, state).Inc()
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
