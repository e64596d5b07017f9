package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	ping func(ctx context.Context) error
}

// NewHealthHandler takes the storage ping used for readiness; nil means
// always ready.
func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.ping != nil {
		pctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
		defer cancel()

		if err := h.ping(pctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "storage": err.Error()})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
