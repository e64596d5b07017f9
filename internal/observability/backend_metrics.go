package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"
)

// ObserveBackend times one backend call. fn reports the HTTP status it
// got (0 when no response arrived).
func (p *Prom) ObserveBackend(op string, fn func() (int, error)) (int, error) {
	start := time.Now()
	code, err := fn()

	if p == nil {
		return code, err
	}

	status := "error"
	if err == nil {
		status = strconv.Itoa(code)
	} else {
		p.BackendErrorsTotal.WithLabelValues(op, ClassifyBackendErr(err)).Inc()
	}
	p.BackendDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return code, err
}

func ClassifyBackendErr(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return "decode"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection") || strings.Contains(msg, "no such host"):
		return "connection"
	case strings.Contains(msg, "eof"):
		return "decode"
	default:
		return "unknown"
	}
}
