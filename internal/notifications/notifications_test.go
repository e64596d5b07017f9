package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) RequestDBAccess(ctx context.Context, in DBAccessRequest) error {
	f.calls++
	return f.err
}

func TestWebhookNotifier(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer hook-token" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "hook-token", nil)
	if err := n.RequestDBAccess(context.Background(), DBAccessRequest{Timeout: 15}); err != nil {
		t.Fatalf("RequestDBAccess: %v", err)
	}
	if got["test"] != "event" || got["timeout"] != float64(15) {
		t.Fatalf("payload = %v", got)
	}
}

func TestWebhookNotifier_ErrorText(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		want string
	}{
		{"with body", http.StatusForbidden, "token rejected", "HTTP 403: token rejected"},
		{"empty body", http.StatusInternalServerError, "", "HTTP 500: Failed to enable database access"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewWebhookNotifier(srv.URL, "", nil).RequestDBAccess(context.Background(), DBAccessRequest{Timeout: 10})

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) || httpErr.Status != tt.code {
				t.Fatalf("expected HTTPError %d, got %v", tt.code, err)
			}
			if err.Error() != tt.want {
				t.Fatalf("error = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestProtectedNotifier_OpensAndRecovers(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("connection refused")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 2, Cooldown: time.Minute})

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_ = n.RequestDBAccess(ctx, DBAccessRequest{Timeout: 10})
	}
	if n.State() != CircuitOpen {
		t.Fatalf("state = %s, want open", n.State())
	}

	if err := n.RequestDBAccess(ctx, DBAccessRequest{Timeout: 10}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected fail-fast, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("open circuit reached the webhook: %d calls", inner.calls)
	}

	// After the cooldown one trial call goes through and closes the circuit.
	now = now.Add(time.Minute)
	inner.err = nil
	if err := n.RequestDBAccess(ctx, DBAccessRequest{Timeout: 10}); err != nil {
		t.Fatalf("trial call: %v", err)
	}
	if n.State() != CircuitClosed {
		t.Fatalf("state = %s, want closed", n.State())
	}
}

func TestProtectedNotifier_HalfOpenFailureReopens(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("timeout")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: time.Second})

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	ctx := context.Background()
	_ = n.RequestDBAccess(ctx, DBAccessRequest{})
	now = now.Add(2 * time.Second)
	_ = n.RequestDBAccess(ctx, DBAccessRequest{})

	if n.State() != CircuitOpen || inner.calls != 2 {
		t.Fatalf("state = %s calls = %d", n.State(), inner.calls)
	}
}

func TestProtectedNotifier_ClientErrorsDoNotTrip(t *testing.T) {
	inner := &fakeNotifier{err: &HTTPError{Status: http.StatusForbidden}}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1})

	for i := 0; i < 3; i++ {
		_ = n.RequestDBAccess(context.Background(), DBAccessRequest{})
	}
	if n.State() != CircuitClosed || inner.calls != 3 {
		t.Fatalf("state = %s calls = %d", n.State(), inner.calls)
	}
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(nil)
	if err := n.RequestDBAccess(context.Background(), DBAccessRequest{Timeout: 30}); err != nil {
		t.Fatalf("RequestDBAccess: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.RequestDBAccess(ctx, DBAccessRequest{Timeout: 30}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
