// Package httpapi serves the JSON API over gin.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rpattn/movementcontrol/internal/auth"
	"github.com/rpattn/movementcontrol/internal/metrics"
	"github.com/rpattn/movementcontrol/internal/middleware"
	"github.com/rpattn/movementcontrol/internal/movement"
	"github.com/rpattn/movementcontrol/internal/report"
	"github.com/rpattn/movementcontrol/internal/repository"
)

// Options tune presentation and cookies.
type Options struct {
	CookieName      string
	SecureCookie    bool
	Location        *time.Location
	DefaultFacility string
	LoaderWait      time.Duration
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Service       *movement.Service
	Authenticator *auth.Authenticator
	Users         repository.UserRepository
	Renderer      *report.Renderer
	Metrics       *metrics.Metrics
	Health        func(*gin.Context) error
	Logger        *zap.Logger
}

// API holds the handlers.
type API struct {
	svc      *movement.Service
	auth     *auth.Authenticator
	users    repository.UserRepository
	renderer *report.Renderer
	metrics  *metrics.Metrics
	health   func(*gin.Context) error
	logger   *zap.Logger
	opts     Options
}

// NewRouter builds the gin engine with every route and middleware installed.
func NewRouter(deps Deps, opts Options) *gin.Engine {
	if opts.CookieName == "" {
		opts.CookieName = "movementcontrol_session"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Renderer == nil {
		deps.Renderer = report.NewRenderer("")
	}
	api := &API{
		svc:      deps.Service,
		auth:     deps.Authenticator,
		users:    deps.Users,
		renderer: deps.Renderer,
		metrics:  deps.Metrics,
		health:   deps.Health,
		logger:   deps.Logger,
		opts:     opts,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.LoggingMiddleware(api.logger))
	if api.metrics != nil {
		engine.Use(middleware.MetricsMiddleware(api.metrics))
	}
	engine.Use(middleware.AuthMiddleware(api.auth, opts.CookieName, api.logger))
	engine.Use(middleware.DataLoaderMiddleware(api.users, opts.LoaderWait))

	api.setupRoutes(engine)
	return engine
}

func (a *API) setupRoutes(engine *gin.Engine) {
	engine.GET("/", a.redirectToDefaultFacility)
	engine.GET("/healthz", a.healthz)
	if a.metrics != nil {
		engine.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	}

	group := engine.Group("/api")
	a.setupAuthRoutes(group)
	a.setupFacilityRoutes(group)

	group.GET("/autocomplete/:field", a.autocomplete)
	group.DELETE("/employees/:employee", middleware.RequireAuth(), a.deleteEmployee)
}

func (a *API) setupAuthRoutes(group *gin.RouterGroup) {
	authGroup := group.Group("/auth")
	authGroup.POST("/login", a.login)
	authGroup.POST("/logout", a.logout)
	authGroup.GET("/me", middleware.RequireAuth(), a.me)
}

func (a *API) setupFacilityRoutes(group *gin.RouterGroup) {
	requireAuth := middleware.RequireAuth()

	facilities := group.Group("/facilities")
	facilities.GET("", a.listFacilities)
	facilities.POST("", requireAuth, a.createFacility)
	facilities.DELETE("/:facility", requireAuth, a.deleteFacility)

	lists := facilities.Group("/:facility/lists")
	lists.GET("", a.listLists)
	lists.POST("", requireAuth, a.createList)
	lists.GET("/:list", a.getList)
	lists.PUT("/:list", requireAuth, a.editList)
	lists.DELETE("/:list", requireAuth, a.deleteList)
	lists.GET("/:list/history", a.listHistory)
	lists.GET("/:list/export.pdf", a.exportList(report.FormatPDF))
	lists.GET("/:list/export.xlsx", a.exportList(report.FormatXLSX))

	entries := lists.Group("/:list/entries")
	entries.GET("", a.listEntries)
	entries.POST("", requireAuth, a.createEntry)
	entries.POST("/import", requireAuth, a.importEntries)
	entries.GET("/:entry", a.getEntry)
	entries.PUT("/:entry", requireAuth, a.editEntry)
	entries.DELETE("/:entry", requireAuth, a.deleteEntry)
	entries.GET("/:entry/history", a.entryHistory)
}

func (a *API) redirectToDefaultFacility(c *gin.Context) {
	if a.opts.DefaultFacility == "" {
		c.Redirect(http.StatusFound, "/api/facilities")
		return
	}
	c.Redirect(http.StatusFound, "/api/facilities/"+a.opts.DefaultFacility+"/lists")
}

func (a *API) healthz(c *gin.Context) {
	if a.health != nil {
		if err := a.health(c); err != nil {
			a.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
