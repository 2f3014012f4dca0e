package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"poolwatch/internal/handlers"
	"poolwatch/internal/middleware"
)

// Deps carries everything the router serves
type Deps struct {
	Tokens         *handlers.TokenHandler
	Health         *handlers.HealthHandler
	Stream         http.Handler
	Metrics        http.Handler
	AllowedOrigins []string
	RateLimit      middleware.RateLimiterConfig
}

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())
	r.Use(middleware.CORS(d.AllowedOrigins))

	if d.Health != nil {
		r.GET("/health", d.Health.Health)
	}
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	if d.Stream != nil {
		r.GET("/ws", gin.WrapH(d.Stream))
	}

	SetupTokenRoutes(r, d.Tokens, middleware.RateLimiterMiddleware(d.RateLimit))
	return r
}

// SetupTokenRoutes sets up the token read and refresh routes
func SetupTokenRoutes(r *gin.Engine, h *handlers.TokenHandler, limiter gin.HandlerFunc) {
	if h == nil {
		return
	}
	tokenGroup := r.Group("/tokens", limiter)
	{
		tokenGroup.GET("", h.ListTokens)
		tokenGroup.GET("/:mint", h.GetToken)
		tokenGroup.POST("/:mint/metadata/refresh", h.RefreshMetadata)
	}
}
