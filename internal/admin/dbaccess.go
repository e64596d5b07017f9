package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/geocoder89/safeguard/internal/notifications"
)

var (
	ErrInvalidTimeout = errors.New("timeout must be one of 10, 15, 30 or 60 minutes")
	ErrAccessActive   = errors.New("database access is already active")
)

// TimeoutOptions are the durations, in minutes, an admin may pick.
var TimeoutOptions = []int{10, 15, 30, 60}

func validTimeout(minutes int) bool {
	for _, m := range TimeoutOptions {
		if m == minutes {
			return true
		}
	}
	return false
}

type AccessState string

const (
	AccessIdle    AccessState = "idle"
	AccessActive  AccessState = "active"
	AccessExpired AccessState = "expired"
)

type AccessStatus struct {
	State            AccessState `json:"state"`
	RemainingMinutes int         `json:"remainingMinutes"`
	ExpiresAt        *time.Time  `json:"expiresAt,omitempty"`
	Timeout          int         `json:"timeout,omitempty"`
}

// DBAccess grants temporary database access by calling the operations
// webhook and tracks the resulting window. One window is open at a time.
type DBAccess struct {
	notifier notifications.Notifier
	log      *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	expiresAt time.Time
	timeout   int
	pending   bool
}

func NewDBAccess(n notifications.Notifier, log *slog.Logger) *DBAccess {
	if log == nil {
		log = slog.Default()
	}
	return &DBAccess{notifier: n, log: log, now: time.Now}
}

func (d *DBAccess) Enable(ctx context.Context, minutes int, requestedBy string) (AccessStatus, error) {
	if !validTimeout(minutes) {
		return d.Status(), ErrInvalidTimeout
	}
	if !d.begin() {
		return d.Status(), ErrAccessActive
	}

	err := d.notifier.RequestDBAccess(ctx, notifications.DBAccessRequest{
		Timeout:     minutes,
		RequestedBy: requestedBy,
	})
	if err != nil {
		d.mu.Lock()
		d.pending = false
		d.mu.Unlock()

		d.log.WarnContext(ctx, "db access request failed", "timeout_minutes", minutes, "err", err)
		return d.Status(), fmt.Errorf("enable database access: %w", err)
	}

	d.mu.Lock()
	d.pending = false
	d.expiresAt = d.now().Add(time.Duration(minutes) * time.Minute)
	d.timeout = minutes
	d.mu.Unlock()

	d.log.InfoContext(ctx, "db access enabled", "timeout_minutes", minutes, "requested_by", requestedBy)
	return d.Status(), nil
}

// begin claims the right to open a window: refused while one is open or
// another request is in flight.
func (d *DBAccess) begin() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending || (!d.expiresAt.IsZero() && d.now().Before(d.expiresAt)) {
		return false
	}
	d.pending = true
	return true
}

// Status reports remaining whole minutes, rounded up, the way the
// countdown on the admin page shows them.
func (d *DBAccess) Status() AccessStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.expiresAt.IsZero() {
		return AccessStatus{State: AccessIdle}
	}

	exp := d.expiresAt
	left := exp.Sub(d.now())
	if left <= 0 {
		return AccessStatus{State: AccessExpired, ExpiresAt: &exp, Timeout: d.timeout}
	}

	return AccessStatus{
		State:            AccessActive,
		RemainingMinutes: int(math.Ceil(left.Minutes())),
		ExpiresAt:        &exp,
		Timeout:          d.timeout,
	}
}
