package middlewares

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/safeguard/internal/session"
)

// SessionStore binds the request to the Session Store of its client. It
// must run after ClientID. Without a client id the store has no storage
// and reports everything absent.
func SessionStore(b session.Backend, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var storage session.Storage
		if id, ok := ClientIDFrom(c); ok && b != nil {
			storage = b.ForClient(id)
		}

		c.Set(CtxSession, session.NewStore(storage, log))
		c.Next()
	}
}

// StoreFrom never returns nil.
func StoreFrom(c *gin.Context) *session.Store {
	if v, ok := c.Get(CtxSession); ok {
		if s, ok := v.(*session.Store); ok && s != nil {
			return s
		}
	}
	return session.NewStore(nil, nil)
}
