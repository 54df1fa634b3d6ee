package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"transport_routes/internal/config"
	"transport_routes/internal/middleware"
	"transport_routes/internal/models"
	"transport_routes/internal/store"
)

// RouteController serves /api/routes. Every handler acquires its own
// database handle and releases it before returning.
type RouteController struct {
	conn            config.Connector
	includeInactive bool
}

func NewRouteController(conn config.Connector, cfg config.RoutesConfig) *RouteController {
	return &RouteController{conn: conn, includeInactive: cfg.IncludeInactive}
}

type coordinateInput struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// routeInput is shared by create and update; absent fields stay nil.
type routeInput struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	RouteType   *string            `json:"route_type"`
	IsActive    *bool              `json:"is_active"`
	Coordinates *[]coordinateInput `json:"coordinates"`
}

// acquire opens a store on a fresh handle, or writes a 500 and returns false.
func (rc *RouteController) acquire(c *gin.Context, op string) (*store.RouteStore, *config.Conn, bool) {
	conn, err := rc.conn.Acquire(c.Request.Context())
	if err != nil {
		logrus.WithError(err).
			WithField("request_id", middleware.GetRequestID(c)).
			Error(op + ": could not acquire database connection")
		respondError(c, http.StatusInternalServerError, "Database connection error")
		return nil, nil, false
	}
	return store.New(conn.DB), conn, true
}

// readOptions resolves include_inactive, falling back to the configured default.
func (rc *RouteController) readOptions(c *gin.Context) (store.ReadOptions, bool) {
	opts := store.ReadOptions{IncludeInactive: rc.includeInactive}
	raw, ok := c.GetQuery("include_inactive")
	if !ok || raw == "" {
		return opts, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("Invalid include_inactive value '%s'. Use true or false", raw))
		return opts, false
	}
	opts.IncludeInactive = v
	return opts, true
}

func parseRouteID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "Invalid route ID")
		return 0, false
	}
	return uint(id), true
}

// bindRouteInput decodes the JSON body into a routeInput.
func bindRouteInput(c *gin.Context, op string) (routeInput, bool) {
	var input routeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(c, http.StatusBadRequest, "No data provided")
			return input, false
		}
		logrus.WithError(err).Warn(op + ": invalid input payload")
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return input, false
	}
	return input, true
}

// nameTooLong reports whether name exceeds the routes.name column.
func nameTooLong(name string) bool {
	return utf8.RuneCountInString(name) > models.MaxRouteNameLength
}

var nameTooLongMessage = fmt.Sprintf("Field 'name' must be at most %d characters", models.MaxRouteNameLength)

func invalidRouteTypeMessage(raw string) string {
	return fmt.Sprintf("Invalid route type '%s'. Valid types: %s", raw, models.ValidRouteTypes())
}

func parseCoordinates(in []coordinateInput) ([]models.Coordinate, error) {
	points := make([]models.Coordinate, len(in))
	for i, p := range in {
		if p.Lat == nil || p.Lng == nil {
			return nil, fmt.Errorf("Coordinate %d must have both lat and lng", i+1)
		}
		points[i] = models.Coordinate{Lat: *p.Lat, Lng: *p.Lng}
	}
	return points, nil
}

// lookup fetches a route by numeric id, or by exact name otherwise.
func lookup(routes *store.RouteStore, key string, opts store.ReadOptions) (models.RouteDetail, string, error) {
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		row, err := routes.GetByID(uint(id), opts)
		return row, fmt.Sprintf("Route with id %d not found", id), err
	}
	row, err := routes.GetByName(key, opts)
	return row, fmt.Sprintf("Route '%s' not found", key), err
}

func (rc *RouteController) respondList(c *gin.Context, op string, rows []models.RouteDetail, extra gin.H) {
	data, err := toRouteResponses(rows)
	if err != nil {
		logrus.WithError(err).Error(op + ": malformed coordinates in route_details")
		respondError(c, http.StatusInternalServerError, "Internal error: "+err.Error())
		return
	}
	body := gin.H{"success": true, "data": data, "total": len(data)}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// ListRoutes returns every route ordered by name.
func (rc *RouteController) ListRoutes(c *gin.Context) {
	opts, ok := rc.readOptions(c)
	if !ok {
		return
	}
	routes, conn, ok := rc.acquire(c, "ListRoutes")
	if !ok {
		return
	}
	defer conn.Release()

	rows, err := routes.List(opts)
	if err != nil {
		respondStoreError(c, "ListRoutes", "", err)
		return
	}
	rc.respondList(c, "ListRoutes", rows, nil)
}

// GetRoute serves /api/routes/:key where key is an id or a route name.
func (rc *RouteController) GetRoute(c *gin.Context) {
	opts, ok := rc.readOptions(c)
	if !ok {
		return
	}
	routes, conn, ok := rc.acquire(c, "GetRoute")
	if !ok {
		return
	}
	defer conn.Release()

	row, notFound, err := lookup(routes, c.Param("key"), opts)
	if err != nil {
		respondStoreError(c, "GetRoute", notFound, err)
		return
	}
	resp, err := toRouteResponse(row)
	if err != nil {
		logrus.WithError(err).Error("GetRoute: malformed coordinates in route_details")
		respondError(c, http.StatusInternalServerError, "Internal error: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": resp})
}

// ListRoutesByType serves /api/routes/type/:type.
func (rc *RouteController) ListRoutesByType(c *gin.Context) {
	raw := c.Param("type")
	routeType, err := models.ParseRouteType(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, invalidRouteTypeMessage(raw))
		return
	}
	opts, ok := rc.readOptions(c)
	if !ok {
		return
	}
	routes, conn, ok := rc.acquire(c, "ListRoutesByType")
	if !ok {
		return
	}
	defer conn.Release()

	rows, err := routes.ListByType(routeType, opts)
	if err != nil {
		respondStoreError(c, "ListRoutesByType", "", err)
		return
	}
	rc.respondList(c, "ListRoutesByType", rows, gin.H{"route_type": routeType})
}

// SearchRoutes matches ?q= against name and description.
func (rc *RouteController) SearchRoutes(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		respondError(c, http.StatusBadRequest, "Search parameter 'q' is required")
		return
	}
	opts, ok := rc.readOptions(c)
	if !ok {
		return
	}
	routes, conn, ok := rc.acquire(c, "SearchRoutes")
	if !ok {
		return
	}
	defer conn.Release()

	rows, err := routes.Search(term, opts)
	if err != nil {
		respondStoreError(c, "SearchRoutes", "", err)
		return
	}
	rc.respondList(c, "SearchRoutes", rows, gin.H{"search_term": term})
}

// CreateRoute inserts a route with its coordinates in one transaction.
func (rc *RouteController) CreateRoute(c *gin.Context) {
	input, ok := bindRouteInput(c, "CreateRoute")
	if !ok {
		return
	}

	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		respondError(c, http.StatusBadRequest, "Missing required field: name")
		return
	}
	if input.Coordinates == nil {
		respondError(c, http.StatusBadRequest, "Missing required field: coordinates")
		return
	}
	if nameTooLong(strings.TrimSpace(*input.Name)) {
		respondError(c, http.StatusBadRequest, nameTooLongMessage)
		return
	}

	newRoute := store.NewRoute{
		Name:      strings.TrimSpace(*input.Name),
		RouteType: models.RouteTypeBus,
		IsActive:  true,
	}
	if input.Description != nil {
		newRoute.Description = *input.Description
	}
	if input.RouteType != nil {
		t, err := models.ParseRouteType(*input.RouteType)
		if err != nil {
			respondError(c, http.StatusBadRequest, invalidRouteTypeMessage(*input.RouteType))
			return
		}
		newRoute.RouteType = t
	}
	if input.IsActive != nil {
		newRoute.IsActive = *input.IsActive
	}
	points, err := parseCoordinates(*input.Coordinates)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	newRoute.Coordinates = points

	routes, conn, ok := rc.acquire(c, "CreateRoute")
	if !ok {
		return
	}
	defer conn.Release()

	id, err := routes.Create(newRoute)
	if err != nil {
		respondStoreError(c, "CreateRoute", "", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"route_id":    id,
		"name":        newRoute.Name,
		"coordinates": len(points),
		"request_id":  middleware.GetRequestID(c),
	}).Info("CreateRoute: route created")

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Route created successfully",
		"route_id": id,
	})
}

// UpdateRoute applies a partial update. Supplying coordinates replaces the
// whole set. is_active may only be set to false.
func (rc *RouteController) UpdateRoute(c *gin.Context) {
	id, ok := parseRouteID(c)
	if !ok {
		return
	}
	input, ok := bindRouteInput(c, "UpdateRoute")
	if !ok {
		return
	}

	var update store.RouteUpdate
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			respondError(c, http.StatusBadRequest, "Field 'name' cannot be empty")
			return
		}
		if nameTooLong(name) {
			respondError(c, http.StatusBadRequest, nameTooLongMessage)
			return
		}
		update.Name = &name
	}
	update.Description = input.Description
	if input.RouteType != nil {
		t, err := models.ParseRouteType(*input.RouteType)
		if err != nil {
			respondError(c, http.StatusBadRequest, invalidRouteTypeMessage(*input.RouteType))
			return
		}
		update.RouteType = &t
	}
	// Deactivation is one-way; there is no reactivation through the API.
	if input.IsActive != nil && *input.IsActive {
		respondError(c, http.StatusBadRequest, "Field 'is_active' can only be set to false; routes cannot be reactivated")
		return
	}
	update.IsActive = input.IsActive
	if input.Coordinates != nil {
		points, err := parseCoordinates(*input.Coordinates)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		update.Coordinates = &points
	}
	if update.Empty() {
		respondError(c, http.StatusBadRequest, "No fields to update")
		return
	}

	routes, conn, ok := rc.acquire(c, "UpdateRoute")
	if !ok {
		return
	}
	defer conn.Release()

	if err := routes.Update(id, update); err != nil {
		respondStoreError(c, "UpdateRoute", fmt.Sprintf("Route with id %d not found", id), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Route updated successfully",
		"route_id": id,
	})
}

// DeleteRoute marks a route inactive. Repeating the call succeeds.
func (rc *RouteController) DeleteRoute(c *gin.Context) {
	id, ok := parseRouteID(c)
	if !ok {
		return
	}
	routes, conn, ok := rc.acquire(c, "DeleteRoute")
	if !ok {
		return
	}
	defer conn.Release()

	if err := routes.Deactivate(id); err != nil {
		respondStoreError(c, "DeleteRoute", fmt.Sprintf("Route with id %d not found", id), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Route deactivated successfully",
		"route_id": id,
	})
}

// RouteStats reports counts by state and type.
func (rc *RouteController) RouteStats(c *gin.Context) {
	routes, conn, ok := rc.acquire(c, "RouteStats")
	if !ok {
		return
	}
	defer conn.Release()

	stats, err := routes.Stats()
	if err != nil {
		respondStoreError(c, "RouteStats", "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}
