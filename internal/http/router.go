package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/safeguard/internal/admin"
	"github.com/geocoder89/safeguard/internal/backend"
	"github.com/geocoder89/safeguard/internal/config"
	"github.com/geocoder89/safeguard/internal/gate"
	"github.com/geocoder89/safeguard/internal/http/handlers"
	"github.com/geocoder89/safeguard/internal/http/middlewares"
	"github.com/geocoder89/safeguard/internal/observability"
	"github.com/geocoder89/safeguard/internal/session"
	"github.com/geocoder89/safeguard/internal/sites"
)

const maxRequestBody = 1 << 20

type Deps struct {
	Config config.Config
	Log    *slog.Logger

	// Prom and Gatherer are optional; /metrics is only mounted with a Gatherer.
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	Sessions  session.Backend
	Backend   *backend.Client
	Verifier  middlewares.RoleVerifier
	Directory *admin.Directory
	DBAccess  *admin.DBAccess
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("safeguard-console"))
	r.Use(middlewares.RequestID())
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders(d.Config.IsProd()))
	r.Use(middlewares.CORSMiddleware(d.Config.CORSOrigins))
	r.Use(middlewares.ClientID(d.Config.IsProd()))
	r.Use(middlewares.SessionStore(d.Sessions, d.Log))

	edge := middlewares.DefaultEdgeConfig()
	edge.Verifier = d.Verifier
	edge.Prom = d.Prom
	r.Use(middlewares.EdgeGate(edge))

	// health
	ping := func(ctx context.Context) error {
		if d.Sessions == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return d.Sessions.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	statusOpts := handlers.StatusOptions{
		StoragePing: ping,
		Version:     d.Config.Version,
		Environment: d.Config.Env,
		Log:         d.Log,
	}
	if d.Backend != nil {
		statusOpts.Backend = d.Backend
	}
	status := handlers.NewStatusHandler(statusOpts)
	r.GET("/api/status", status.Status)

	// handlers
	authH := handlers.NewAuthHandler(d.Backend, d.Log)
	sitesH := handlers.NewSitesHandler(sites.NewService(d.Backend))
	adminH := handlers.NewAdminHandler(d.Directory, d.DBAccess, d.Config.DBAccessDatabaseURL)
	pagesH := handlers.NewPagesHandler(authH, sitesH, adminH, d.Log)

	api := r.Group("/api")
	api.Use(middlewares.RequireJSON())
	api.Use(middlewares.MaxBodyBytes(maxRequestBody))

	// credential endpoints get a tighter budget per IP
	authLimiter := middlewares.NewRateLimiter(10, time.Minute)
	api.POST("/auth/register", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authH.Register)
	api.POST("/auth/login", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authH.Login)
	api.POST("/auth/logout", authH.Logout)

	api.GET("/session", authH.Session)
	api.GET("/session/events", authH.SessionEvents)

	authed := api.Group("")
	authed.Use(middlewares.RequireSession())
	{
		authed.GET("/profile", authH.GetProfile)
		authed.PUT("/profile", authH.UpdateProfile)
		authed.DELETE("/profile", authH.DeleteAccount)
		authed.PUT("/profile/password", authH.ChangePassword)

		authed.GET("/blocked-sites", sitesH.List)
		authed.POST("/blocked-sites", sitesH.Add)
		authed.DELETE("/blocked-sites/:id", sitesH.Remove)
	}

	adminAPI := api.Group("/admin")
	adminAPI.Use(middlewares.RequireSession(), middlewares.RequireAdminSession())
	{
		adminAPI.GET("/users", adminH.ListUsers)
		adminAPI.GET("/stats", adminH.Stats)
		adminAPI.GET("/database", adminH.DatabaseStatus)
		adminAPI.POST("/database", adminH.EnableDatabase)
	}

	// pages
	guard := gate.Guard{
		Session: func(c *gin.Context) gate.Session { return middlewares.StoreFrom(c) },
		Prom:    d.Prom,
	}

	protected := guard.Require(gate.Protected)
	r.GET("/dashboard", protected, pagesH.Dashboard)
	r.GET("/profile", protected, pagesH.Profile)
	r.GET("/blocked-sites", protected, pagesH.BlockedSites)

	adminOnly := guard.Require(gate.Admin)
	r.GET("/admin", adminOnly, pagesH.Admin)
	r.GET("/admin/users", adminOnly, pagesH.AdminUsers)
	r.GET("/admin/database", adminOnly, pagesH.AdminDatabase)

	return r
}
