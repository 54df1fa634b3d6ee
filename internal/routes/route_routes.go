package routes

import (
	"github.com/gin-gonic/gin"

	"transport_routes/internal/controllers"
)

func RouteRoutes(api *gin.RouterGroup, rc *controllers.RouteController) {
	routes := api.Group("/routes")
	{
		routes.GET("", rc.ListRoutes)
		routes.POST("", rc.CreateRoute)
		routes.GET("/search", rc.SearchRoutes)
		routes.GET("/stats", rc.RouteStats)
		routes.GET("/type/:type", rc.ListRoutesByType)
		routes.GET("/:key", rc.GetRoute)
		routes.GET("/:key/geojson", rc.GetRouteGeoJSON)
		routes.PUT("/:id", rc.UpdateRoute)
		routes.DELETE("/:id", rc.DeleteRoute)
	}
}
