package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// RouteDetail is a row of the read-only route_details view: a route joined
// with its coordinates aggregated into an ordered JSON array.
type RouteDetail struct {
	ID          uint           `gorm:"column:id"`
	Name        string         `gorm:"column:name"`
	Description string         `gorm:"column:description"`
	RouteType   RouteType      `gorm:"column:route_type"`
	IsActive    bool           `gorm:"column:is_active"`
	Coordinates datatypes.JSON `gorm:"column:coordinates"`
}

func (RouteDetail) TableName() string { return "route_details" }

// Points decodes the aggregated coordinates. A NULL or empty column yields
// an empty, non-nil slice.
func (d RouteDetail) Points() ([]Coordinate, error) {
	points := []Coordinate{}
	if len(d.Coordinates) == 0 || string(d.Coordinates) == "null" {
		return points, nil
	}
	if err := json.Unmarshal(d.Coordinates, &points); err != nil {
		return nil, fmt.Errorf("decode coordinates of route %d: %w", d.ID, err)
	}
	if points == nil {
		points = []Coordinate{}
	}
	return points, nil
}
