package store

import (
	"fmt"

	"gorm.io/gorm"

	"transport_routes/internal/models"
)

const routeDetailsView = "route_details"

// Migrate creates or updates the routes and route_coordinates tables and
// rebuilds the route_details view for the connected engine.
func Migrate(db *gorm.DB) error {
	ddl, err := routeDetailsDDL(db.Dialector.Name())
	if err != nil {
		return err
	}

	// The view pins column types, so it has to go before the tables change.
	if err := db.Exec("DROP VIEW IF EXISTS " + routeDetailsView).Error; err != nil {
		return fmt.Errorf("drop %s view: %w", routeDetailsView, err)
	}
	if err := db.AutoMigrate(&models.Route{}, &models.RouteCoordinate{}); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	if err := db.Exec(ddl).Error; err != nil {
		return fmt.Errorf("create %s view: %w", routeDetailsView, err)
	}
	return nil
}

// routeDetailsDDL returns the view definition. Every variant yields one row
// per route with coordinates as a JSON array ordered by sequence_order, and
// an empty array for routes without points.
func routeDetailsDDL(dialect string) (string, error) {
	switch dialect {
	case "postgres":
		return `CREATE VIEW route_details AS
SELECT r.id, r.name, r.description, r.route_type, r.is_active,
       COALESCE(
           (SELECT json_agg(json_build_object('lat', rc.latitude, 'lng', rc.longitude) ORDER BY rc.sequence_order)
              FROM route_coordinates rc
             WHERE rc.route_id = r.id),
           '[]'::json) AS coordinates
  FROM routes r`, nil
	case "mysql":
		// JSON_ARRAYAGG only honours ordering as a window function (8.0.14+).
		return `CREATE VIEW route_details AS
SELECT r.id, r.name, r.description, r.route_type, r.is_active,
       COALESCE(agg.coordinates, JSON_ARRAY()) AS coordinates
  FROM routes r
  LEFT JOIN (
        SELECT w.route_id, w.coordinates
          FROM (SELECT rc.route_id,
                       JSON_ARRAYAGG(JSON_OBJECT('lat', rc.latitude, 'lng', rc.longitude))
                           OVER (PARTITION BY rc.route_id ORDER BY rc.sequence_order
                                 ROWS BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING) AS coordinates,
                       ROW_NUMBER() OVER (PARTITION BY rc.route_id ORDER BY rc.sequence_order) AS rn
                  FROM route_coordinates rc) w
         WHERE w.rn = 1) agg ON agg.route_id = r.id`, nil
	case "sqlite":
		return `CREATE VIEW route_details AS
SELECT r.id, r.name, r.description, r.route_type, r.is_active,
       (SELECT json_group_array(json_object('lat', rc.latitude, 'lng', rc.longitude) ORDER BY rc.sequence_order)
          FROM route_coordinates rc
         WHERE rc.route_id = r.id) AS coordinates
  FROM routes r`, nil
	}
	return "", fmt.Errorf("no route_details view for dialect %q", dialect)
}
