package handlers

import (
	"io"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/safeguard/internal/gate"
	"github.com/geocoder89/safeguard/internal/http/middlewares"
)

const heartbeatEvery = 25 * time.Second

// SessionEvents streams page gate decisions for ?path= as server-sent
// events. Other tabs of the same browser use it to notice a login, logout
// or role change without polling. Delivery is best-effort.
func (h *AuthHandler) SessionEvents(ctx *gin.Context) {
	target := path.Clean("/" + ctx.DefaultQuery("path", gate.DashboardPath))

	kind := gate.Protected
	if middlewares.DefaultEdgeConfig().Classify(target) == middlewares.AdminPath {
		kind = gate.Admin
	}

	decisions, err := gate.Watch(ctx.Request.Context(), middlewares.StoreFrom(ctx), target, kind)
	if err != nil {
		h.log.WarnContext(ctx.Request.Context(), "session watch failed", "err", err)
		RespondError(ctx, http.StatusServiceUnavailable, "watch_unavailable", "Session events are unavailable", nil)
		return
	}

	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	ctx.Stream(func(w io.Writer) bool {
		select {
		case d, ok := <-decisions:
			if !ok {
				return false
			}
			ctx.SSEvent("decision", d)
			return true
		case <-heartbeat.C:
			ctx.SSEvent("ping", time.Now().UTC().Unix())
			return true
		case <-ctx.Request.Context().Done():
			return false
		}
	})
}
