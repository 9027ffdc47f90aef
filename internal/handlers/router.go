package handlers

import (
	"net/http"
	"time"

	"real-estate-matching/internal/config"
	"real-estate-matching/internal/logging"
	"real-estate-matching/internal/middleware"
	"real-estate-matching/internal/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthChecker reports whether a dependency answers
type HealthChecker interface {
	Healthy() bool
}

// Handlers groups every HTTP handler the router mounts. Search is nil when
// the search index is disabled.
type Handlers struct {
	Triggers *TriggerHandler
	Activity *ActivityHandler
	Admin    *AdminHandler
	Matches  *MatchesHandler
	Search   HealthChecker
}

// NewRouter builds the gin engine with its middleware and routes
func NewRouter(cfg *config.Config, h Handlers, limiter *ratelimit.RateLimiter, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Logging.LogRequests {
		r.Use(logging.RequestLogger(logger.Named("http")))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:  cfg.Server.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", healthCheck(h.Search))

	auth := middleware.Authenticate(cfg.Auth.JWTSecret)

	// Document-creation triggers, for publishers holding a service token
	triggers := r.Group("/triggers", auth, middleware.RequireService())
	{
		triggers.POST("/listings", h.Triggers.ListingCreated)
		triggers.POST("/requests", h.Triggers.RequestCreated)
		triggers.POST("/conversations/:id/messages", h.Triggers.MessageCreated)
	}

	api := r.Group("/api", auth)
	{
		api.POST("/users/activity", limiter.Middleware(), h.Activity.UpdateUserActivity)

		admin := api.Group("/admin", middleware.RequireAdmin())
		{
			admin.POST("/expiry/run", h.Admin.RunExpiry)
			admin.POST("/analytics/run", h.Admin.RunAnalytics)
			admin.POST("/search/reindex", h.Admin.ReindexListings)
			admin.GET("/requests/:id/matches", h.Matches.GetRequestMatches)
		}
	}

	return r
}

func healthCheck(search HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		searchStatus := "disabled"
		if search != nil {
			searchStatus = "ok"
			if !search.Healthy() {
				searchStatus = "unavailable"
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"search": searchStatus,
			"time":   time.Now(),
		})
	}
}
