package middlewares

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/safeguard/internal/domain/user"
	"github.com/geocoder89/safeguard/internal/gate"
	"github.com/geocoder89/safeguard/internal/observability"
)

const AuthCookie = "auth_token"

// RoleVerifier reads the role out of a verifiable credential.
type RoleVerifier interface {
	VerifyRole(token string) (user.Role, error)
}

type EdgeConfig struct {
	ProtectedPrefixes []string
	AdminPrefixes     []string
	CookieName        string

	// Verifier, when set, makes admin paths require a token that verifies
	// and carries the ADMIN role. Without it the edge only checks that a
	// credential is present and leaves the role to the page gate.
	Verifier RoleVerifier
	Prom     *observability.Prom
}

func DefaultEdgeConfig() EdgeConfig {
	return EdgeConfig{
		ProtectedPrefixes: []string{"/dashboard", "/blocked-sites", "/profile"},
		AdminPrefixes:     []string{"/admin"},
		CookieName:        AuthCookie,
	}
}

type PathClass int

const (
	Public PathClass = iota
	ProtectedPath
	AdminPath
)

// Classify matches the cleaned path against the prefix sets. Matching is
// plain, case-sensitive string prefix: /profiles counts as /profile.
func (cfg EdgeConfig) Classify(p string) PathClass {
	if p == "" {
		p = "/"
	}
	p = path.Clean(p)

	for _, prefix := range cfg.AdminPrefixes {
		if strings.HasPrefix(p, prefix) {
			return AdminPath
		}
	}
	for _, prefix := range cfg.ProtectedPrefixes {
		if strings.HasPrefix(p, prefix) {
			return ProtectedPath
		}
	}
	return Public
}

// Credential records where the edge found the bearer token.
type Credential struct {
	Token  string
	Source string // cookie | header
}

func EdgeGate(cfg EdgeConfig) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = AuthCookie
	}

	return func(c *gin.Context) {
		class := cfg.Classify(c.Request.URL.Path)
		if class == Public {
			c.Next()
			return
		}

		cred, ok := credentialFrom(c, cfg.CookieName)
		if !ok {
			cfg.Prom.ObserveGate("edge", "redirect-signin")
			redirect(c, gate.SignInRedirect(c.Request.URL.Path))
			return
		}

		if class == AdminPath && cfg.Verifier != nil {
			role, err := cfg.Verifier.VerifyRole(cred.Token)
			switch {
			case err != nil:
				cfg.Prom.ObserveGate("edge", "redirect-signin")
				redirect(c, gate.SignInRedirect(c.Request.URL.Path))
				return
			case role != user.RoleAdmin:
				cfg.Prom.ObserveGate("edge", "redirect-dashboard")
				redirect(c, gate.DashboardPath)
				return
			}
		}

		cfg.Prom.ObserveGate("edge", "admitted")
		c.Set(CtxCredential, cred)
		c.Next()
	}
}

func credentialFrom(c *gin.Context, cookieName string) (Credential, bool) {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return Credential{Token: v, Source: "cookie"}, true
	}

	scheme, token, found := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return Credential{}, false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return Credential{}, false
	}
	return Credential{Token: token, Source: "header"}, true
}

func redirect(c *gin.Context, to string) {
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, to)
	c.Abort()
}

func CredentialFrom(c *gin.Context) (Credential, bool) {
	v, ok := c.Get(CtxCredential)
	if !ok {
		return Credential{}, false
	}
	cred, ok := v.(Credential)
	return cred, ok
}
