package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/geocoder89/safeguard/internal/backend"
	"github.com/geocoder89/safeguard/internal/domain/user"
	"github.com/geocoder89/safeguard/internal/session"
)

// API is the slice of the backend client the Auth Client needs.
type API interface {
	Do(ctx context.Context, call backend.Call, out any) (int, error)
}

// Session is what register and login hand back on success.
type Session struct {
	User  user.User `json:"user"`
	Token string    `json:"token"`
}

// Client performs the account operations against the backend and keeps
// one client's Session Store in step with the answers.
type Client struct {
	api   API
	store *session.Store
	log   *slog.Logger
}

func New(api API, store *session.Store, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{api: api, store: store, log: log}
}

func (c *Client) Register(ctx context.Context, in user.RegisterInput) Result[Session] {
	return c.establish(ctx, backend.Call{
		Op:     "POST /users/register",
		Method: http.MethodPost,
		Path:   "/users/register",
		Body:   in,
	})
}

func (c *Client) Login(ctx context.Context, in user.LoginInput) Result[Session] {
	return c.establish(ctx, backend.Call{
		Op:     "POST /users/login",
		Method: http.MethodPost,
		Path:   "/users/login",
		Body:   in,
	})
}

func (c *Client) establish(ctx context.Context, call backend.Call) Result[Session] {
	res := send[Session](ctx, c.api, call)
	if !res.Success || res.Data == nil || res.Data.Token == "" {
		return res
	}

	if err := c.store.SetSession(ctx, res.Data.Token, res.Data.User); err != nil {
		c.log.ErrorContext(ctx, "session write failed", "op", call.Op, "err", err)
		return Result[Session]{
			Success: false,
			Message: msgStorage,
			Error:   err.Error(),
			Kind:    KindStorage,
			Status:  res.Status,
		}
	}

	return res
}

// Logout clears the session. It never needs the network.
func (c *Client) Logout(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.log.ErrorContext(ctx, "session clear failed", "err", err)
	}
}

func (c *Client) GetProfile(ctx context.Context) Result[user.User] {
	res, ok := authed[user.User](ctx, c, backend.Call{
		Op:     "GET /users/profile",
		Method: http.MethodGet,
		Path:   "/users/profile",
	})
	if !ok {
		return res
	}

	c.refreshUser(ctx, res)
	return res
}

// UpdateProfile sends only the changed fields; the record the backend
// returns replaces the cached user.
func (c *Client) UpdateProfile(ctx context.Context, in user.ProfileUpdate) Result[user.User] {
	res, ok := authed[user.User](ctx, c, backend.Call{
		Op:     "PUT /users/profile",
		Method: http.MethodPut,
		Path:   "/users/profile",
		Body:   in,
	})
	if !ok {
		return res
	}

	c.refreshUser(ctx, res)
	return res
}

func (c *Client) ChangePassword(ctx context.Context, in user.PasswordChange) Result[json.RawMessage] {
	res, _ := authed[json.RawMessage](ctx, c, backend.Call{
		Op:     "PUT /users/change-password",
		Method: http.MethodPut,
		Path:   "/users/change-password",
		Body:   in,
	})
	return res
}

func (c *Client) DeleteAccount(ctx context.Context) Result[json.RawMessage] {
	res, ok := authed[json.RawMessage](ctx, c, backend.Call{
		Op:     "DELETE /users/profile",
		Method: http.MethodDelete,
		Path:   "/users/profile",
	})
	if !ok || !res.Success {
		return res
	}

	if err := c.store.Clear(ctx); err != nil {
		c.log.ErrorContext(ctx, "session clear failed", "op", "DELETE /users/profile", "err", err)
		return Result[json.RawMessage]{
			Success: false,
			Message: msgStorage,
			Error:   err.Error(),
			Kind:    KindStorage,
			Status:  res.Status,
		}
	}
	return res
}

func (c *Client) refreshUser(ctx context.Context, res Result[user.User]) {
	if !res.Success || res.Data == nil {
		return
	}
	if err := c.store.SetUser(ctx, *res.Data); err != nil {
		c.log.WarnContext(ctx, "cached user refresh failed", "err", err)
	}
}

// authed performs a call that needs the cached token. The bool reports
// whether the backend answered at all. A 401 ends the session.
func authed[T any](ctx context.Context, c *Client, call backend.Call) (Result[T], bool) {
	token, ok := c.store.GetToken(ctx)
	if !ok {
		return unauthorized[T](), false
	}
	call.Token = token

	res := send[T](ctx, c.api, call)
	if res.Kind == KindNetwork {
		return res, false
	}

	if res.Status == http.StatusUnauthorized {
		c.log.InfoContext(ctx, "backend rejected token, clearing session", "op", call.Op)
		c.Logout(ctx)
	}

	return res, true
}

func send[T any](ctx context.Context, api API, call backend.Call) Result[T] {
	var env backend.Envelope[T]

	status, err := api.Do(ctx, call, &env)
	if err != nil {
		res := networkFailure[T](err)
		res.Status = status
		return res
	}

	res := Result[T]{
		Success: env.Success,
		Message: env.Message,
		Data:    env.Data,
		Error:   string(env.Error),
		Status:  status,
	}
	if !res.Success {
		res.Kind = KindServerRejected
	}
	return res
}
