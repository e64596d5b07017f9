package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/safeguard/internal/http/middlewares"
)

const authCookieMaxAge = 86400

// setAuthCookie mirrors the session token into the cookie the Edge Gate
// reads: path=/; max-age=86400; secure; samesite=strict. The browser
// bundle reads it too, so it is not HttpOnly.
func setAuthCookie(ctx *gin.Context, token string) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   authCookieMaxAge,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func expireAuthCookie(ctx *gin.Context) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}
