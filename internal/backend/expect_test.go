package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/safeguard/internal/backend"
)

func TestExpect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":{"id":"u-1"}}`))
		case "/empty":
			_, _ = w.Write([]byte(`{"success":true,"message":"deleted"}`))
		case "/denied":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Invalid token","error":"jwt malformed"}`))
		}
	}))
	defer srv.Close()

	c := backend.New(backend.Options{BaseURL: srv.URL})
	ctx := context.Background()

	got, err := backend.Expect[profile](ctx, c, backend.Call{Method: http.MethodGet, Path: "/ok"})
	if err != nil || got == nil || got.ID != "u-1" {
		t.Fatalf("ok: got %+v, err %v", got, err)
	}

	got, err = backend.Expect[profile](ctx, c, backend.Call{Method: http.MethodDelete, Path: "/empty"})
	if err != nil || got != nil {
		t.Fatalf("empty: got %+v, err %v", got, err)
	}

	_, err = backend.Expect[profile](ctx, c, backend.Call{Method: http.MethodGet, Path: "/denied"})
	var rej *backend.RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("denied: expected RejectedError, got %v", err)
	}
	if !rej.Unauthorized() || rej.Message != "Invalid token" || rej.Detail != "jwt malformed" {
		t.Fatalf("denied: unexpected %+v", rej)
	}
	if rej.Error() != "GET /denied: Invalid token (jwt malformed)" {
		t.Fatalf("denied: error text %q", rej.Error())
	}
}
