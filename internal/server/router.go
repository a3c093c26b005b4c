// Package server assembles the gin engine: middleware chain, routes and
// static assets.
package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kartikbazzad/bunbase/lookup/internal/auth"
	"github.com/kartikbazzad/bunbase/lookup/internal/authz"
	"github.com/kartikbazzad/bunbase/lookup/internal/config"
	"github.com/kartikbazzad/bunbase/lookup/internal/handlers"
	"github.com/kartikbazzad/bunbase/lookup/internal/middleware"
	"github.com/kartikbazzad/bunbase/lookup/internal/snapshot"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Config      config.Config
	Store       *snapshot.Store
	Reloader    handlers.Reloader
	Users       *auth.Directory
	Sessions    *auth.SessionStore
	Enforcer    *authz.Enforcer
	LoginLimits *middleware.RateLimiter
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigin))

	queryHandler := handlers.NewQueryHandler(d.Store, cfg.Query)
	authHandler := handlers.NewAuthHandler(d.Users, d.Sessions, cfg.CookieSecure())
	snapshotHandler := handlers.NewSnapshotHandler(d.Store, d.Reloader)

	router.GET("/health", snapshotHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Login is the only unauthenticated write
	loginLimits := d.LoginLimits
	if loginLimits == nil {
		loginLimits = NewLoginLimiter(cfg.RateLimit)
	}
	router.POST("/login", loginLimits.Middleware(), authHandler.Login)
	router.GET("/logout", authHandler.Logout)

	session := middleware.AuthMiddleware(d.Sessions)
	canRead := middleware.RequirePermission(d.Enforcer, authz.ResourceRecords, authz.ActionRead)

	router.GET("/search", session, canRead, queryHandler.Search)
	router.GET("/filters", session, canRead, queryHandler.Filters)
	router.GET("/export", session,
		middleware.RequirePermission(d.Enforcer, authz.ResourceRecords, authz.ActionExport),
		queryHandler.Export)

	api := router.Group("/api")
	api.Use(session)
	api.GET("/me", authHandler.Me)
	api.GET("/data", canRead, queryHandler.Data)
	api.POST("/reload",
		middleware.RequirePermission(d.Enforcer, authz.ResourceSnapshot, authz.ActionReload),
		snapshotHandler.Reload)

	home := filepath.Join(cfg.Server.ViewsDir, "home.html")
	pageSession := middleware.PageAuthMiddleware(d.Sessions)
	serveHome := func(c *gin.Context) {
		if _, err := os.Stat(home); err != nil {
			c.String(http.StatusNotFound, "home page not found")
			return
		}
		c.File(home)
	}
	router.GET("/home", pageSession, serveHome)
	router.GET("/home.html", pageSession, serveHome)

	if dir := cfg.Server.PublicDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			router.NoRoute(staticHandler(http.Dir(dir)))
		}
	}

	return router
}

// staticHandler serves the public directory for any path no route claimed.
// It cannot be mounted with router.Static("/") because that conflicts with
// the explicit routes.
func staticHandler(fs http.FileSystem) gin.HandlerFunc {
	fileServer := http.FileServer(fs)
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
