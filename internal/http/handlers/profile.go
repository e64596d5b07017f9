package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/safeguard/internal/auth"
	"github.com/geocoder89/safeguard/internal/domain/user"
)

// Profile endpoints reuse the AuthHandler: they are Auth Client calls
// bound to the caller's Session Store.

func (h *AuthHandler) GetProfile(ctx *gin.Context) {
	res := h.client(ctx).GetProfile(ctx.Request.Context())
	h.afterAuthed(ctx, res.Kind, res.Status)
	respondResult(ctx, res, http.StatusOK)
}

func (h *AuthHandler) UpdateProfile(ctx *gin.Context) {
	var in user.ProfileUpdate
	if !BindJSON(ctx, &in) {
		return
	}
	if in.Empty() {
		RespondBadRequest(ctx, "Nothing to update", nil)
		return
	}

	res := h.client(ctx).UpdateProfile(ctx.Request.Context(), in)
	h.afterAuthed(ctx, res.Kind, res.Status)
	respondResult(ctx, res, http.StatusOK)
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	var in user.PasswordChange
	if !BindJSON(ctx, &in) {
		return
	}

	res := h.client(ctx).ChangePassword(ctx.Request.Context(), in)
	h.afterAuthed(ctx, res.Kind, res.Status)
	respondResult(ctx, res, http.StatusOK)
}

func (h *AuthHandler) DeleteAccount(ctx *gin.Context) {
	res := h.client(ctx).DeleteAccount(ctx.Request.Context())
	if res.Success || res.Kind == auth.KindStorage {
		expireAuthCookie(ctx)
	}
	h.afterAuthed(ctx, res.Kind, res.Status)
	respondResult(ctx, res, http.StatusOK)
}

// afterAuthed drops the cookie once the session is gone, so the Edge Gate
// stops admitting a dead token.
func (h *AuthHandler) afterAuthed(ctx *gin.Context, kind auth.Kind, status int) {
	if kind == auth.KindUnauthorized || status == http.StatusUnauthorized {
		expireAuthCookie(ctx)
	}
}
