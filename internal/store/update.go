package store

import (
	"transport_routes/internal/models"
)

// Column names an update may touch. Only these constants ever reach the SET
// clause; caller input supplies values, never column names.
const (
	columnName        = "name"
	columnDescription = "description"
	columnRouteType   = "route_type"
	columnIsActive    = "is_active"
)

// RouteUpdate is a partial update. Nil fields are left untouched. A non-nil
// Coordinates replaces the stored set, so an empty slice clears it.
type RouteUpdate struct {
	Name        *string
	Description *string
	RouteType   *models.RouteType
	IsActive    *bool
	Coordinates *[]models.Coordinate
}

// Columns builds the SET assignments for the supplied fields.
func (u RouteUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 4)
	if u.Name != nil {
		cols[columnName] = *u.Name
	}
	if u.Description != nil {
		cols[columnDescription] = *u.Description
	}
	if u.RouteType != nil {
		cols[columnRouteType] = string(*u.RouteType)
	}
	if u.IsActive != nil {
		cols[columnIsActive] = *u.IsActive
	}
	return cols
}

// Empty reports whether the update would change nothing.
func (u RouteUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.RouteType == nil &&
		u.IsActive == nil && u.Coordinates == nil
}
