package gate

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/safeguard/internal/observability"
)

const CtxDecision = "pageDecision"

// SessionFunc resolves the Session Store for the current request.
type SessionFunc func(c *gin.Context) Session

type Guard struct {
	Session SessionFunc
	Prom    *observability.Prom
}

// Require runs the page gate before the page handler. Denied requests are
// redirected and aborted, so the page handler never runs for them.
func (g Guard) Require(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var s Session
		if g.Session != nil {
			s = g.Session(c)
		}

		d := Check(c.Request.Context(), s, path.Clean(c.Request.URL.Path), kind)
		g.Prom.ObserveGate("page", string(d.State))

		if d.State != Admitted {
			c.Header("Cache-Control", "no-store")
			c.Redirect(http.StatusFound, d.Redirect)
			c.Abort()
			return
		}

		c.Set(CtxDecision, d)
		c.Next()
	}
}
