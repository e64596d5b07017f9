package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ClientCookie = "sg_client"
	clientMaxAge = 365 * 24 * 60 * 60
)

// ClientID identifies the browser. Its id namespaces the browser's durable
// storage, the way localStorage is scoped to one browser profile.
func ClientID(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(ClientCookie)
		if err != nil || !validClientID(id) {
			id = uuid.NewString()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     ClientCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   clientMaxAge,
				Secure:   secure,
				HttpOnly: true,
				SameSite: http.SameSiteStrictMode,
			})
		}

		c.Set(CtxClientID, id)
		c.Next()
	}
}

func validClientID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.Version() == 4
}

func ClientIDFrom(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxClientID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
