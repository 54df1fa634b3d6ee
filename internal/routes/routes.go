package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"transport_routes/internal/config"
	"transport_routes/internal/controllers"
	"transport_routes/internal/middleware"
)

// SetupRouter builds the gin engine with every API endpoint registered.
// Access logging and CORS are layered on by the caller.
func SetupRouter(cfg config.Config, conn config.Connector, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery(), middleware.RequestID())
	r.Use(extra...)
	r.Use(middleware.RateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

	api := r.Group("/api")
	api.GET("/health", controllers.HealthCheck(conn))
	RouteRoutes(api, controllers.NewRouteController(conn, cfg.Routes))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	return r
}
