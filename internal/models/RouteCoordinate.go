package models

import (
	"time"
)

// RouteCoordinate is one vertex of a route's polyline.
// SequenceOrder is 1-based and contiguous per route.
type RouteCoordinate struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	RouteID       uint      `gorm:"not null;uniqueIndex:idx_route_sequence,priority:1" json:"route_id"`
	Latitude      float64   `gorm:"type:decimal(10,8);not null" json:"lat"`
	Longitude     float64   `gorm:"type:decimal(11,8);not null" json:"lng"`
	SequenceOrder int       `gorm:"not null;uniqueIndex:idx_route_sequence,priority:2" json:"sequence_order"`
	CreatedAt     time.Time `json:"-"`
}

func (RouteCoordinate) TableName() string { return "route_coordinates" }

// Coordinate is the wire form of a point: {"lat": .., "lng": ..}.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewRouteCoordinates numbers points 1..N in the order given.
func NewRouteCoordinates(routeID uint, points []Coordinate) []RouteCoordinate {
	rows := make([]RouteCoordinate, len(points))
	for i, p := range points {
		rows[i] = RouteCoordinate{
			RouteID:       routeID,
			Latitude:      p.Lat,
			Longitude:     p.Lng,
			SequenceOrder: i + 1,
		}
	}
	return rows
}
