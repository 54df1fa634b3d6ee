package store

import (
	"database/sql"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	"transport_routes/internal/models"
)

// ReadOptions narrows reads from the route_details view.
type ReadOptions struct {
	IncludeInactive bool
}

// NewRoute is the input of Create.
type NewRoute struct {
	Name        string
	Description string
	RouteType   models.RouteType
	IsActive    bool
	Coordinates []models.Coordinate
}

// Stats aggregates the route table.
type Stats struct {
	TotalRoutes            int64                      `json:"total_routes"`
	ActiveRoutes           int64                      `json:"active_routes"`
	InactiveRoutes         int64                      `json:"inactive_routes"`
	RoutesByType           map[models.RouteType]int64 `json:"routes_by_type"`
	AvgCoordinatesPerRoute float64                    `json:"avg_coordinates_per_route"`
}

// RouteStore runs route queries on one acquired database handle.
type RouteStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *RouteStore {
	return &RouteStore{db: db}
}

func (s *RouteStore) details(opts ReadOptions) *gorm.DB {
	q := s.db.Model(&models.RouteDetail{})
	if !opts.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	return q
}

// List returns routes ordered by name.
func (s *RouteStore) List(opts ReadOptions) ([]models.RouteDetail, error) {
	var rows []models.RouteDetail
	if err := s.details(opts).Order("name").Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func (s *RouteStore) GetByID(id uint, opts ReadOptions) (models.RouteDetail, error) {
	var row models.RouteDetail
	err := s.details(opts).Where("id = ?", id).Take(&row).Error
	return row, classify(err)
}

// GetByName matches the name exactly.
func (s *RouteStore) GetByName(name string, opts ReadOptions) (models.RouteDetail, error) {
	var row models.RouteDetail
	err := s.details(opts).Where("name = ?", name).Take(&row).Error
	return row, classify(err)
}

func (s *RouteStore) ListByType(t models.RouteType, opts ReadOptions) ([]models.RouteDetail, error) {
	var rows []models.RouteDetail
	if err := s.details(opts).Where("route_type = ?", t).Order("name").Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

// Search matches term as a case-insensitive substring of name or description.
func (s *RouteStore) Search(term string, opts ReadOptions) ([]models.RouteDetail, error) {
	pattern := "%" + term + "%"
	q := s.details(opts)
	if s.db.Dialector.Name() == "postgres" {
		q = q.Where("(name ILIKE ? OR description ILIKE ?)", pattern, pattern)
	} else {
		pattern = strings.ToLower(pattern)
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}

	var rows []models.RouteDetail
	if err := q.Order("name").Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

// routeInsertFields limits the INSERT to the route's own columns; the
// coordinates are written separately by insertCoordinates.
var routeInsertFields = []string{"Name", "Description", "RouteType", "IsActive", "CreatedAt", "UpdatedAt"}

// Create inserts the route and its coordinates in one transaction and returns
// the generated id. On failure nothing is persisted.
func (s *RouteStore) Create(in NewRoute) (uint, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return 0, fmt.Errorf("begin transaction: %w", tx.Error)
	}

	route := models.Route{
		Name:        in.Name,
		Description: in.Description,
		RouteType:   in.RouteType,
		IsActive:    in.IsActive,
	}
	if err := tx.Select(routeInsertFields).Create(&route).Error; err != nil {
		tx.Rollback()
		return 0, classify(err)
	}

	if err := insertCoordinates(tx, route.ID, in.Coordinates); err != nil {
		tx.Rollback()
		return 0, err
	}

	if err := tx.Commit().Error; err != nil {
		return 0, fmt.Errorf("commit transaction: %w", classify(err))
	}
	return route.ID, nil
}

// Update applies the supplied fields and, when present, replaces the whole
// coordinate set, all in one transaction. A missing route is reported before
// anything is written.
func (s *RouteStore) Update(id uint, u RouteUpdate) error {
	tx := s.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}

	var route models.Route
	if err := tx.Select("id").Take(&route, id).Error; err != nil {
		tx.Rollback()
		return classify(err)
	}

	if cols := u.Columns(); len(cols) > 0 {
		if err := tx.Model(&route).Updates(cols).Error; err != nil {
			tx.Rollback()
			return classify(err)
		}
	}

	if u.Coordinates != nil {
		if err := tx.Where("route_id = ?", route.ID).Delete(&models.RouteCoordinate{}).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("delete coordinates: %w", err)
		}
		if err := insertCoordinates(tx, route.ID, *u.Coordinates); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", classify(err))
	}
	return nil
}

// Deactivate soft-deletes a route. Deactivating an inactive route succeeds.
func (s *RouteStore) Deactivate(id uint) error {
	var route models.Route
	if err := s.db.Select("id").Take(&route, id).Error; err != nil {
		return classify(err)
	}
	if err := s.db.Model(&route).Update(columnIsActive, false).Error; err != nil {
		return classify(err)
	}
	return nil
}

// Stats counts routes by state and type. AvgCoordinatesPerRoute averages over
// routes that have at least one coordinate and is 0 when none do.
func (s *RouteStore) Stats() (Stats, error) {
	stats := Stats{RoutesByType: make(map[models.RouteType]int64, len(models.RouteTypes))}
	for _, t := range models.RouteTypes {
		stats.RoutesByType[t] = 0
	}

	var counts struct {
		Total  int64
		Active int64
	}
	err := s.db.Model(&models.Route{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_active = ? THEN 1 ELSE 0 END), 0) AS active", true).
		Scan(&counts).Error
	if err != nil {
		return stats, fmt.Errorf("count routes: %w", err)
	}
	stats.TotalRoutes = counts.Total
	stats.ActiveRoutes = counts.Active
	stats.InactiveRoutes = counts.Total - counts.Active

	var byType []struct {
		RouteType models.RouteType
		Count     int64
	}
	err = s.db.Model(&models.Route{}).
		Select("route_type, COUNT(*) AS count").
		Group("route_type").
		Scan(&byType).Error
	if err != nil {
		return stats, fmt.Errorf("count routes by type: %w", err)
	}
	for _, row := range byType {
		if _, known := stats.RoutesByType[row.RouteType]; known {
			stats.RoutesByType[row.RouteType] = row.Count
		}
	}

	var avg sql.NullFloat64
	err = s.db.Raw(`SELECT AVG(coordinate_count) FROM
		(SELECT COUNT(*) AS coordinate_count FROM route_coordinates GROUP BY route_id) per_route`).
		Row().Scan(&avg)
	if err != nil {
		return stats, fmt.Errorf("average coordinates: %w", err)
	}
	if avg.Valid {
		stats.AvgCoordinatesPerRoute = math.Round(avg.Float64*100) / 100
	}
	return stats, nil
}

// Ping runs a trivial round trip without touching route data.
func (s *RouteStore) Ping() error {
	var one int
	return s.db.Raw("SELECT 1").Row().Scan(&one)
}

func insertCoordinates(tx *gorm.DB, routeID uint, points []models.Coordinate) error {
	if len(points) == 0 {
		return nil
	}
	rows := models.NewRouteCoordinates(routeID, points)
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert coordinates: %w", classify(err))
	}
	return nil
}
