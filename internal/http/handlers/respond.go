package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/safeguard/internal/auth"
	"github.com/geocoder89/safeguard/internal/backend"
	"github.com/geocoder89/safeguard/internal/http/middlewares"
)

const fallbackMessage = "Something went wrong. Please try again."

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// RespondError renders a console-level fault. Backend answers use the
// envelope instead, see respondResult.
func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// resultStatus maps an Auth Client outcome onto the console's response.
func resultStatus(kind auth.Kind, backendStatus, okStatus int) int {
	switch kind {
	case auth.KindNone:
		return okStatus
	case auth.KindUnauthorized:
		return http.StatusUnauthorized
	case auth.KindNetwork:
		return http.StatusBadGateway
	case auth.KindStorage:
		return http.StatusInternalServerError
	default:
		if backendStatus >= 400 && backendStatus < 500 {
			return backendStatus
		}
		return http.StatusBadGateway
	}
}

func respondResult[T any](ctx *gin.Context, res auth.Result[T], okStatus int) {
	if !res.Success && res.Message == "" {
		res.Message = fallbackMessage
	}
	ctx.JSON(resultStatus(res.Kind, res.Status, okStatus), res)
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondData(ctx *gin.Context, status int, message string, data any) {
	ctx.JSON(status, envelope{Success: true, Message: message, Data: data})
}

// respondBackendErr renders a failed backend call made with the session
// token. A 401 means the token is dead: the session is cleared like the
// Auth Client does.
func respondBackendErr(ctx *gin.Context, err error) {
	var rej *backend.RejectedError
	if errors.As(err, &rej) {
		if rej.Unauthorized() {
			if cerr := middlewares.StoreFrom(ctx).Clear(ctx.Request.Context()); cerr != nil {
				slog.Default().WarnContext(ctx.Request.Context(), "session clear failed", "err", cerr)
			}
			expireAuthCookie(ctx)
		}

		msg := rej.Message
		if msg == "" {
			msg = fallbackMessage
		}
		ctx.JSON(resultStatus(auth.KindServerRejected, rej.Status, http.StatusOK), envelope{
			Success: false,
			Message: msg,
			Error:   rej.Detail,
		})
		return
	}

	ctx.JSON(http.StatusBadGateway, envelope{
		Success: false,
		Message: "Network error occurred",
		Error:   err.Error(),
	})
}
