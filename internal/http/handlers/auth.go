package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/safeguard/internal/auth"
	"github.com/geocoder89/safeguard/internal/domain/user"
	"github.com/geocoder89/safeguard/internal/http/middlewares"
)

type AuthHandler struct {
	api auth.API
	log *slog.Logger
}

func NewAuthHandler(api auth.API, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{api: api, log: log}
}

func (h *AuthHandler) client(ctx *gin.Context) *auth.Client {
	return auth.New(h.api, middlewares.StoreFrom(ctx), h.log)
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var in user.RegisterInput
	if !BindJSON(ctx, &in) {
		return
	}

	res := h.client(ctx).Register(ctx.Request.Context(), in)
	if res.Success && res.Data != nil && res.Data.Token != "" {
		setAuthCookie(ctx, res.Data.Token)
	}

	respondResult(ctx, res, http.StatusCreated)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var in user.LoginInput
	if !BindJSON(ctx, &in) {
		return
	}

	res := h.client(ctx).Login(ctx.Request.Context(), in)
	if res.Success && res.Data != nil && res.Data.Token != "" {
		setAuthCookie(ctx, res.Data.Token)
	}

	respondResult(ctx, res, http.StatusOK)
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.client(ctx).Logout(ctx.Request.Context())
	expireAuthCookie(ctx)

	ctx.JSON(http.StatusOK, envelope{Success: true, Message: "Logged out"})
}

type sessionView struct {
	IsAuthenticated bool       `json:"isAuthenticated"`
	IsAdmin         bool       `json:"isAdmin"`
	User            *user.User `json:"user,omitempty"`
}

// Session reports what the Session Store currently holds. It never calls
// the backend.
func (h *AuthHandler) Session(ctx *gin.Context) {
	store := middlewares.StoreFrom(ctx)
	rctx := ctx.Request.Context()

	view := sessionView{IsAuthenticated: store.IsAuthenticated(rctx)}
	if view.IsAuthenticated {
		if u, ok := store.GetUser(rctx); ok {
			view.User = &u
			view.IsAdmin = u.IsAdmin()
		}
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.JSON(http.StatusOK, view)
}
