package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/safeguard/internal/auth"
	"github.com/geocoder89/safeguard/internal/backend"
	"github.com/geocoder89/safeguard/internal/domain/user"
	"github.com/geocoder89/safeguard/internal/gate"
	"github.com/geocoder89/safeguard/internal/http/middlewares"
	"github.com/geocoder89/safeguard/internal/sites"
)

// PagesHandler renders the view-models of the protected and admin pages.
// It only runs after the page gate admitted the request.
type PagesHandler struct {
	auth  *AuthHandler
	sites *SitesHandler
	admin *AdminHandler
	log   *slog.Logger
}

func NewPagesHandler(a *AuthHandler, s *SitesHandler, ad *AdminHandler, log *slog.Logger) *PagesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PagesHandler{auth: a, sites: s, admin: ad, log: log}
}

type pageView struct {
	Page     string        `json:"page"`
	User     *user.User    `json:"user,omitempty"`
	Decision gate.Decision `json:"decision"`
	Data     any           `json:"data,omitempty"`
	Warning  string        `json:"warning,omitempty"`
}

func (p *PagesHandler) render(ctx *gin.Context, page string, data any, warning string) {
	view := pageView{Page: page, Data: data, Warning: warning}

	if d, ok := ctx.Get(gate.CtxDecision); ok {
		view.Decision, _ = d.(gate.Decision)
	}
	if u, ok := middlewares.StoreFrom(ctx).GetUser(ctx.Request.Context()); ok {
		view.User = &u
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.JSON(http.StatusOK, view)
}

// degrade decides how a failed backend call affects a page: a dead token
// ends the session and sends the browser to sign in, anything else only
// produces a warning.
func (p *PagesHandler) degrade(ctx *gin.Context, err error) (warning string, done bool) {
	var rej *backend.RejectedError
	if errors.As(err, &rej) && rej.Unauthorized() {
		p.endSession(ctx)
		return "", true
	}

	p.log.WarnContext(ctx.Request.Context(), "page data unavailable", "path", ctx.Request.URL.Path, "err", err)
	if rej != nil && rej.Message != "" {
		return rej.Message, false
	}
	return fallbackMessage, false
}

func (p *PagesHandler) endSession(ctx *gin.Context) {
	if err := middlewares.StoreFrom(ctx).Clear(ctx.Request.Context()); err != nil {
		p.log.WarnContext(ctx.Request.Context(), "session clear failed", "err", err)
	}
	expireAuthCookie(ctx)
	ctx.Redirect(http.StatusFound, gate.SignInRedirect(ctx.Request.URL.Path))
}

func (p *PagesHandler) Dashboard(ctx *gin.Context) {
	view, err := p.sites.load(ctx)
	if err != nil {
		warning, done := p.degrade(ctx, err)
		if done {
			return
		}
		p.render(ctx, "dashboard", nil, warning)
		return
	}
	p.render(ctx, "dashboard", gin.H{"blockedSites": view.Summary}, "")
}

// Profile refreshes the cached user from the backend and falls back to the
// cached copy when the backend cannot be reached.
func (p *PagesHandler) Profile(ctx *gin.Context) {
	res := p.auth.client(ctx).GetProfile(ctx.Request.Context())

	switch {
	case res.Success:
		p.render(ctx, "profile", nil, "")
	case res.Kind == auth.KindUnauthorized || res.Status == http.StatusUnauthorized:
		expireAuthCookie(ctx)
		ctx.Redirect(http.StatusFound, gate.SignInRedirect(ctx.Request.URL.Path))
	default:
		msg := res.Message
		if msg == "" {
			msg = fallbackMessage
		}
		p.render(ctx, "profile", nil, msg)
	}
}

func (p *PagesHandler) BlockedSites(ctx *gin.Context) {
	view, err := p.sites.load(ctx)
	if err != nil {
		warning, done := p.degrade(ctx, err)
		if done {
			return
		}
		p.render(ctx, "blocked-sites", sitesView{Sites: []sites.Site{}, Categories: categoryOptions()}, warning)
		return
	}
	p.render(ctx, "blocked-sites", view, "")
}

func (p *PagesHandler) Admin(ctx *gin.Context) {
	view, err := p.admin.loadUsers(ctx)
	if err != nil {
		warning, done := p.degrade(ctx, err)
		if done {
			return
		}
		p.render(ctx, "admin", nil, warning)
		return
	}
	p.render(ctx, "admin", gin.H{"stats": view.Stats}, "")
}

func (p *PagesHandler) AdminUsers(ctx *gin.Context) {
	view, err := p.admin.loadUsers(ctx)
	if err != nil {
		warning, done := p.degrade(ctx, err)
		if done {
			return
		}
		p.render(ctx, "admin-users", nil, warning)
		return
	}
	p.render(ctx, "admin-users", view, "")
}

func (p *PagesHandler) AdminDatabase(ctx *gin.Context) {
	p.render(ctx, "admin-database", p.admin.databaseView(), "")
}
