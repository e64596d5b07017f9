package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/safeguard/internal/admin"
	"github.com/geocoder89/safeguard/internal/backend"
	"github.com/geocoder89/safeguard/internal/domain/user"
	"github.com/geocoder89/safeguard/internal/http/handlers"
	"github.com/geocoder89/safeguard/internal/http/middlewares"
	"github.com/geocoder89/safeguard/internal/notifications"
	"github.com/geocoder89/safeguard/internal/session"
	"github.com/geocoder89/safeguard/internal/sites"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAPI answers backend calls by "METHOD /path".
type fakeAPI struct {
	mu     sync.Mutex
	calls  []backend.Call
	routes map[string]func(out any) (int, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{routes: map[string]func(out any) (int, error){}}
}

func (f *fakeAPI) on(method, path string, status int, raw string) *fakeAPI {
	f.routes[method+" "+path] = func(out any) (int, error) {
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return status, &backend.TransportError{Op: method + " " + path, Err: err}
		}
		return status, nil
	}
	return f
}

func (f *fakeAPI) fail(method, path string, err error) *fakeAPI {
	f.routes[method+" "+path] = func(any) (int, error) {
		return 0, &backend.TransportError{Op: method + " " + path, Err: err}
	}
	return f
}

func (f *fakeAPI) Do(ctx context.Context, call backend.Call, out any) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	fn, ok := f.routes[call.Method+" "+call.Path]
	f.mu.Unlock()

	if !ok {
		return 0, &backend.TransportError{Op: call.Method + " " + call.Path, Err: errors.New("no route")}
	}
	return fn(out)
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) last() backend.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type harness struct {
	api    *fakeAPI
	store  *session.Store
	router *gin.Engine
}

// newHarness mounts the handlers on a bare engine. Every request shares
// one client's storage, as if it came from the same browser.
func newHarness(t *testing.T, notifier notifications.Notifier) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := session.NewMemoryBackend(time.Hour)
	t.Cleanup(func() { _ = mem.Close() })
	storage := mem.ForClient("client-1")

	if notifier == nil {
		notifier = notifications.NewLogNotifier(quietLogger())
	}

	api := newFakeAPI()
	authH := handlers.NewAuthHandler(api, quietLogger())
	sitesH := handlers.NewSitesHandler(sites.NewService(api))
	adminH := handlers.NewAdminHandler(
		admin.NewDirectory(api, time.Minute),
		admin.NewDBAccess(notifier, quietLogger()),
		testDatabaseURL,
	)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middlewares.CtxSession, session.NewStore(storage, quietLogger()))
		c.Next()
	})

	r.POST("/auth/register", authH.Register)
	r.POST("/auth/login", authH.Login)
	r.POST("/auth/logout", authH.Logout)
	r.GET("/session", authH.Session)
	r.GET("/profile", authH.GetProfile)
	r.PUT("/profile", authH.UpdateProfile)
	r.PUT("/profile/password", authH.ChangePassword)
	r.DELETE("/profile", authH.DeleteAccount)

	r.GET("/blocked-sites", sitesH.List)
	r.POST("/blocked-sites", sitesH.Add)
	r.DELETE("/blocked-sites/:id", sitesH.Remove)

	r.GET("/admin/users", adminH.ListUsers)
	r.GET("/admin/stats", adminH.Stats)
	r.GET("/admin/database", adminH.DatabaseStatus)
	r.POST("/admin/database", adminH.EnableDatabase)

	return &harness{
		api:    api,
		store:  session.NewStore(storage, quietLogger()),
		router: r,
	}
}

func (h *harness) signIn(t *testing.T, role user.Role) {
	t.Helper()

	u := user.User{ID: "u-1", Email: "alice@example.com", Username: "alice", Role: role, IsActive: true}
	if err := h.store.SetSession(context.Background(), "tok-1", u); err != nil {
		t.Fatalf("SetSession: %v", err)
	}
}

func (h *harness) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

type resultBody struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) resultBody {
	t.Helper()

	var out resultBody
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

const testDatabaseURL = "https://db.example.test"

const aliceJSON = `{"id":"u-1","email":"alice@example.com","username":"alice","firstName":"Alice","lastName":"Smith","role":"USER","isActive":true}`
