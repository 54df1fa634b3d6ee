package models

import (
	"fmt"
	"strings"
	"time"
)

// RouteType classifies the vehicles serving a route.
type RouteType string

const (
	RouteTypeBus   RouteType = "bus"
	RouteTypeTrufi RouteType = "trufi"
	RouteTypeMicro RouteType = "micro"
)

// RouteTypes is the closed set of accepted route types, in display order.
var RouteTypes = []RouteType{RouteTypeBus, RouteTypeTrufi, RouteTypeMicro}

// ValidRouteTypes renders RouteTypes for error messages, e.g. "bus, trufi, micro".
func ValidRouteTypes() string {
	names := make([]string, len(RouteTypes))
	for i, t := range RouteTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// ParseRouteType validates raw against the closed set. Matching is exact.
func ParseRouteType(raw string) (RouteType, error) {
	for _, t := range RouteTypes {
		if raw == string(t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid route_type '%s'. Valid types: %s", raw, ValidRouteTypes())
}

// MaxRouteNameLength is the width of routes.name, in characters.
const MaxRouteNameLength = 100

// Route is a named transport line. Deleting a route through the API only
// clears IsActive; rows are never removed. IsActive and Description carry no
// column default, so false and "" are written as given.
type Route struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex:idx_routes_name" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	RouteType   RouteType `gorm:"size:10;not null;default:bus;index" json:"route_type"`
	IsActive    bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Owned coordinate set, replaced as a whole on update
	Coordinates []RouteCoordinate `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

func (Route) TableName() string { return "routes" }
