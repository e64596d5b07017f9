package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/geocoder89/safeguard/internal/domain/user"
	"github.com/geocoder89/safeguard/internal/notifications"
)

const usersJSON = `{"success":true,"message":"ok","data":[
	{"id":"u-1","email":"alice@example.com","username":"alice","role":"USER","isActive":true,"createdAt":"2020-01-01T00:00:00Z"},
	{"id":"u-2","email":"root@example.com","username":"root","role":"ADMIN","isActive":true,"createdAt":"2020-01-01T00:00:00Z"},
	{"id":"u-3","email":"bob@example.com","username":"bob","role":"USER","isActive":false,"createdAt":"2020-01-01T00:00:00Z"}
]}`

type stubNotifier struct {
	err   error
	calls []notifications.DBAccessRequest
}

func (s *stubNotifier) RequestDBAccess(ctx context.Context, in notifications.DBAccessRequest) error {
	s.calls = append(s.calls, in)
	return s.err
}

func TestListUsers_SearchAndETag(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t, user.RoleAdmin)
	h.api.on(http.MethodGet, "/users", http.StatusOK, usersJSON)

	w := h.do(http.MethodGet, "/admin/users?search=BOB", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}

	var view struct {
		Users []user.User `json:"users"`
		Total int         `json:"total"`
		Stats struct {
			TotalUsers  int `json:"totalUsers"`
			ActiveUsers int `json:"activeUsers"`
			AdminUsers  int `json:"adminUsers"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(decodeResult(t, w).Data, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Total != 1 || view.Users[0].ID != "u-3" {
		t.Fatalf("search result = %+v", view.Users)
	}
	if view.Stats.TotalUsers != 3 || view.Stats.ActiveUsers != 2 || view.Stats.AdminUsers != 1 {
		t.Fatalf("stats = %+v", view.Stats)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	w = h.do(http.MethodGet, "/admin/users?search=BOB", "", "If-None-Match", etag)
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional status = %d", w.Code)
	}
	if h.api.count() != 1 {
		t.Fatalf("directory was fetched %d times, want 1 (cached)", h.api.count())
	}

	h.do(http.MethodGet, "/admin/users?refresh=true", "")
	if h.api.count() != 2 {
		t.Fatalf("refresh did not bypass the cache")
	}
}

func TestStats_BackendForbidden(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t, user.RoleAdmin)
	h.api.on(http.MethodGet, "/users", http.StatusForbidden,
		`{"success":false,"message":"Admin access required","error":"FORBIDDEN"}`)

	w := h.do(http.MethodGet, "/admin/stats", "")

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decodeResult(t, w); got.Message != "Admin access required" || got.Error != "FORBIDDEN" {
		t.Fatalf("body = %+v", got)
	}
	if !h.store.IsAuthenticated(context.Background()) {
		t.Fatalf("a 403 ended the session")
	}
}

func TestEnableDatabase(t *testing.T) {
	n := &stubNotifier{}
	h := newHarness(t, n)
	h.signIn(t, user.RoleAdmin)

	w := h.do(http.MethodPost, "/admin/database", `{"timeout":7}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("odd timeout: status = %d", w.Code)
	}

	w = h.do(http.MethodPost, "/admin/database", `{"timeout":15}`)
	if w.Code != http.StatusOK {
		t.Fatalf("enable: status = %d body %s", w.Code, w.Body.String())
	}
	if got := decodeResult(t, w); got.Message != "Database access enabled for 15 minutes" {
		t.Fatalf("message = %q", got.Message)
	}
	if len(n.calls) != 1 || n.calls[0].Timeout != 15 || n.calls[0].RequestedBy != "alice@example.com" {
		t.Fatalf("notifier calls = %+v", n.calls)
	}

	w = h.do(http.MethodPost, "/admin/database", `{"timeout":30}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("second enable: status = %d", w.Code)
	}
	if len(n.calls) != 1 {
		t.Fatalf("second enable reached the webhook")
	}

	w = h.do(http.MethodGet, "/admin/database", "")
	var view struct {
		Status struct {
			State            string `json:"state"`
			RemainingMinutes int    `json:"remainingMinutes"`
		} `json:"status"`
		TimeoutOptions []int  `json:"timeoutOptions"`
		DatabaseURL    string `json:"databaseUrl"`
	}
	if err := json.Unmarshal(decodeResult(t, w).Data, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Status.State != "active" || view.Status.RemainingMinutes != 15 || len(view.TimeoutOptions) != 4 {
		t.Fatalf("database view = %+v", view)
	}
	if view.DatabaseURL != testDatabaseURL {
		t.Fatalf("database url = %q, want the configured one", view.DatabaseURL)
	}
}

func TestEnableDatabase_WebhookErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"webhook answered 500", &notifications.HTTPError{Status: 500, Body: "boom"}, http.StatusBadGateway, "webhook_failed"},
		{"circuit open", notifications.ErrCircuitOpen, http.StatusServiceUnavailable, "webhook_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &stubNotifier{err: tt.err})
			h.signIn(t, user.RoleAdmin)

			w := h.do(http.MethodPost, "/admin/database", `{"timeout":10}`)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Error.Code != tt.wantCode {
				t.Fatalf("code = %q", resp.Error.Code)
			}

			// a failed request leaves the window closed, so a retry is allowed
			w = h.do(http.MethodGet, "/admin/database", "")
			if !strings.Contains(w.Body.String(), `"state":"idle"`) {
				t.Fatalf("database view after failure = %s", w.Body.String())
			}
		})
	}
}
