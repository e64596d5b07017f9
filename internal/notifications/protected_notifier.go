package notifications

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type ProtectedNotifierConfig struct {
	Timeout          time.Duration // hard timeout per send
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// ProtectedNotifier wraps a Notifier with a per-call timeout and a circuit
// breaker, so a dead webhook fails fast instead of hanging admin requests.
type ProtectedNotifier struct {
	inner Notifier
	cfg   ProtectedNotifierConfig
	now   func() time.Time

	mu                  sync.Mutex
	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtectedNotifier(inner Notifier, cfg ProtectedNotifierConfig) *ProtectedNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedNotifier{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: CircuitClosed,
	}
}

func (n *ProtectedNotifier) RequestDBAccess(ctx context.Context, in DBAccessRequest) error {
	if !n.allowRequest() {
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	err := n.inner.RequestDBAccess(sendCtx, in)

	n.afterRequest(err)

	return err
}

func (n *ProtectedNotifier) State() CircuitState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *ProtectedNotifier) allowRequest() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case CircuitOpen:
		if n.now().Sub(n.openedAt) < n.cfg.Cooldown {
			return false
		}
		n.state = CircuitHalfOpen
		n.halfOpenInFlight = 1
		return true
	case CircuitHalfOpen:
		if n.halfOpenInFlight >= n.cfg.HalfOpenMaxCalls {
			return false
		}
		n.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (n *ProtectedNotifier) afterRequest(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state == CircuitHalfOpen && n.halfOpenInFlight > 0 {
		n.halfOpenInFlight--
	}

	// A 4xx means the webhook is up and refused this request.
	var httpErr *HTTPError
	if err == nil || (errors.As(err, &httpErr) && httpErr.Status < 500) {
		n.consecutiveFailures = 0
		n.state = CircuitClosed
		return
	}

	n.consecutiveFailures++

	if n.state == CircuitHalfOpen || n.consecutiveFailures >= n.cfg.FailureThreshold {
		n.state = CircuitOpen
		n.openedAt = n.now()
	}
}
