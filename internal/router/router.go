package router

import (
	"html/template"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/config"
	"github.com/stemsi/gradcafe-backend/internal/handler"
	"github.com/stemsi/gradcafe-backend/internal/middleware"
	"github.com/stemsi/gradcafe-backend/internal/response"
	"github.com/stemsi/gradcafe-backend/internal/web"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Dashboard *handler.DashboardHandler
	Pipeline  *handler.PipelineHandler
	WS        *handler.WSHandler
	System    *handler.SystemHandler
}

// SetupRouter configures the dashboard, action and status routes.
// actionLimiter guards the two POST actions per client IP.
func SetupRouter(
	handlers *Handlers,
	actionLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.SetHTMLTemplate(template.Must(web.Templates()))

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-Task-ID"}
	corsConfig.MaxAge = 12 * time.Hour

	// Request ID first so recovery and error pages can report it.
	router.Use(
		response.RequestIDMiddleware(),
		gin.Logger(),
		handler.Recovery(log),
		cors.New(corsConfig),
		middleware.Brotli(),
	)

	router.NoRoute(handler.NotFound)
	router.NoMethod(handler.MethodNotAllowed)

	// Embedded assets with aggressive caching (1 day).
	static := router.Group("/static")
	static.Use(middleware.CacheControl(86400))
	{
		static.StaticFS("/", web.Static())
	}

	router.GET("/health", middleware.NoStore(), handlers.System.Health)

	// ─── Dashboard ─────────────────────────────────────────────────────
	live := router.Group("/")
	live.Use(middleware.NoStore())
	{
		live.GET("/", handlers.Dashboard.Index)
		live.GET("/analysis", handlers.Dashboard.Index)
		live.GET("/status", handlers.Pipeline.Status)
	}

	// ─── Actions (Busy Guarded, Rate Limited) ──────────────────────────
	actions := router.Group("/")
	actions.Use(middleware.NoStore(), actionLimiter.Middleware())
	{
		actions.POST("/pull-data", handlers.Pipeline.PullData)
		actions.POST("/update-analysis", handlers.Pipeline.UpdateAnalysis)
	}

	// ─── WebSocket ─────────────────────────────────────────────────────
	router.GET("/ws/status", handlers.WS.StatusStream)

	return router
}
