package backend

import (
	"context"
	"io"
	"net/http"
	"time"
)

const probeTimeout = 5 * time.Second

type HealthStatus string

const (
	Healthy     HealthStatus = "healthy"
	Unhealthy   HealthStatus = "unhealthy"
	Unreachable HealthStatus = "unreachable"
)

type HealthReport struct {
	Status       HealthStatus
	URL          string
	ResponseTime time.Duration
	Err          error
}

// Probe checks the backend's health endpoint. It never takes longer than
// five seconds and never returns an error of its own.
func (c *Client) Probe(ctx context.Context) HealthReport {
	report := HealthReport{URL: c.healthURL}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()

	status, err := c.prom.ObserveBackend("GET /health", func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

		return resp.StatusCode, nil
	})

	report.ResponseTime = time.Since(start)

	switch {
	case err != nil:
		report.Status = Unreachable
		report.Err = err
	case status >= 200 && status < 300:
		report.Status = Healthy
	default:
		report.Status = Unhealthy
	}

	return report
}
