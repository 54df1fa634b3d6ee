package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// routeFeature converts a route into a GeoJSON Feature. Positions are
// [lng, lat]; fewer than two points give a null geometry.
func routeFeature(r RouteResponse) (*geojson.Feature, error) {
	feature := &geojson.Feature{
		ID: strconv.FormatUint(uint64(r.ID), 10),
		Properties: map[string]interface{}{
			"name":        r.Name,
			"description": r.Description,
			"route_type":  r.RouteType,
			"is_active":   r.IsActive,
			"points":      len(r.Coordinates),
		},
	}
	if len(r.Coordinates) < 2 {
		return feature, nil
	}

	coords := make([]geom.Coord, len(r.Coordinates))
	for i, p := range r.Coordinates {
		coords[i] = geom.Coord{p.Lng, p.Lat}
	}
	line, err := geom.NewLineString(geom.XY).SetCoords(coords)
	if err != nil {
		return nil, err
	}
	feature.Geometry = line
	feature.BBox = line.Bounds()
	return feature, nil
}

// GetRouteGeoJSON serves /api/routes/:key/geojson.
func (rc *RouteController) GetRouteGeoJSON(c *gin.Context) {
	opts, ok := rc.readOptions(c)
	if !ok {
		return
	}
	routes, conn, ok := rc.acquire(c, "GetRouteGeoJSON")
	if !ok {
		return
	}
	defer conn.Release()

	row, notFound, err := lookup(routes, c.Param("key"), opts)
	if err != nil {
		respondStoreError(c, "GetRouteGeoJSON", notFound, err)
		return
	}
	resp, err := toRouteResponse(row)
	if err != nil {
		logrus.WithError(err).Error("GetRouteGeoJSON: malformed coordinates in route_details")
		respondError(c, http.StatusInternalServerError, "Internal error: "+err.Error())
		return
	}

	feature, err := routeFeature(resp)
	if err != nil {
		logrus.WithError(err).Error("GetRouteGeoJSON: building geometry failed")
		respondError(c, http.StatusInternalServerError, "Internal error: "+err.Error())
		return
	}
	body, err := json.Marshal(feature)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Internal error: "+err.Error())
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}
