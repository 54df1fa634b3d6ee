package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"transport_routes/internal/config"
	"transport_routes/internal/middleware"
	"transport_routes/internal/models"
	"transport_routes/internal/store"
)

// RouteResponse is the API form of a route_details row.
type RouteResponse struct {
	ID          uint                `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	RouteType   models.RouteType    `json:"route_type"`
	IsActive    bool                `json:"is_active"`
	Coordinates []models.Coordinate `json:"coordinates"`
}

// toRouteResponse decodes the aggregated coordinates of a view row
func toRouteResponse(d models.RouteDetail) (RouteResponse, error) {
	points, err := d.Points()
	if err != nil {
		return RouteResponse{}, err
	}
	return RouteResponse{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		RouteType:   d.RouteType,
		IsActive:    d.IsActive,
		Coordinates: points,
	}, nil
}

func toRouteResponses(rows []models.RouteDetail) ([]RouteResponse, error) {
	out := make([]RouteResponse, 0, len(rows))
	for _, r := range rows {
		resp, err := toRouteResponse(r)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondStoreError maps store failures onto status codes. notFound is the
// message used for a 404.
func respondStoreError(c *gin.Context, op, notFound string, err error) {
	entry := logrus.WithError(err).WithField("request_id", middleware.GetRequestID(c))
	switch {
	case errors.Is(err, store.ErrRouteNotFound):
		respondError(c, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrDuplicateRoute):
		entry.Warn(op + ": unique constraint violated")
		respondError(c, http.StatusConflict, "A route with that name already exists")
	case errors.Is(err, config.ErrConnection):
		entry.Error(op + ": database unreachable")
		respondError(c, http.StatusInternalServerError, "Database connection error")
	default:
		entry.Error(op + ": database error")
		respondError(c, http.StatusInternalServerError, "Database error: "+err.Error())
	}
}
