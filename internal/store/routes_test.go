package store_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"transport_routes/internal/config"
	"transport_routes/internal/models"
	"transport_routes/internal/store"
)

// newTestDB opens a private in-memory SQLite database with the schema applied.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbCfg := config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}
	db, err := config.Open(dbCfg, &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, s *store.RouteStore, in store.NewRoute) uint {
	t.Helper()
	id, err := s.Create(in)
	if err != nil {
		t.Fatalf("create %q: %v", in.Name, err)
	}
	return id
}

func storedCoordinates(t *testing.T, db *gorm.DB, routeID uint) []models.RouteCoordinate {
	t.Helper()
	var rows []models.RouteCoordinate
	if err := db.Where("route_id = ?", routeID).Order("sequence_order").Find(&rows).Error; err != nil {
		t.Fatalf("load coordinates: %v", err)
	}
	return rows
}

var lineA = []models.Coordinate{
	{Lat: -17.39, Lng: -66.15},
	{Lat: -17.40, Lng: -66.16},
	{Lat: -17.41, Lng: -66.14},
}

func TestCreatePersistsCoordinatesInOrder(t *testing.T) {
	db := newTestDB(t)
	s := store.New(db)

	id := mustCreate(t, s, store.NewRoute{Name: "Line A", RouteType: models.RouteTypeBus, IsActive: true, Coordinates: lineA})

	rows := storedCoordinates(t, db, id)
	if len(rows) != len(lineA) {
		t.Fatalf("expected %d coordinate rows, got %d", len(lineA), len(rows))
	}
	for i, row := range rows {
		if row.SequenceOrder != i+1 {
			t.Errorf("row %d: sequence_order = %d, want %d", i, row.SequenceOrder, i+1)
		}
		if row.Latitude != lineA[i].Lat || row.Longitude != lineA[i].Lng {
			t.Errorf("row %d: got (%v, %v), want (%v, %v)", i, row.Latitude, row.Longitude, lineA[i].Lat, lineA[i].Lng)
		}
	}

	detail, err := s.GetByName("Line A", store.ReadOptions{})
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	points, err := detail.Points()
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	if len(points) != len(lineA) {
		t.Fatalf("view returned %d points, want %d", len(points), len(lineA))
	}
	for i := range points {
		if points[i] != lineA[i] {
			t.Errorf("point %d = %+v, want %+v", i, points[i], lineA[i])
		}
	}
}

func TestCreateKeepsExplicitFalseAndEmptyDescription(t *testing.T) {
	db := newTestDB(t)
	s := store.New(db)

	id := mustCreate(t, s, store.NewRoute{Name: "Dormant", RouteType: models.RouteTypeMicro, IsActive: false, Coordinates: []models.Coordinate{}})

	detail, err := s.GetByID(id, store.ReadOptions{IncludeInactive: true})
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if detail.IsActive {
		t.Errorf("expected is_active=false to be stored")
	}
	if detail.RouteType != models.RouteTypeMicro {
		t.Errorf("route_type = %q, want micro", detail.RouteType)
	}
	points, err := detail.Points()
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	if points == nil || len(points) != 0 {
		t.Errorf("expected empty non-nil coordinates, got %#v", points)
	}
}

func TestCreateDuplicateNameRollsBack(t *testing.T) {
	db := newTestDB(t)
	s := store.New(db)

	first := mustCreate(t, s, store.NewRoute{Name: "Line A", RouteType: models.RouteTypeBus, IsActive: true, Coordinates: lineA})

	_, err := s.Create(store.NewRoute{Name: "Line A", RouteType: models.RouteTypeTrufi, IsActive: true, Coordinates: lineA[:1]})
	if !errors.Is(err, store.ErrDuplicateRoute) {
		t.Fatalf("expected ErrDuplicateRoute, got %v", err)
	}

	var routes, coords int64
	db.Model(&models.Route{}).Count(&routes)
	db.Model(&models.RouteCoordinate{}).Count(&coords)
	if routes != 1 {
		t.Errorf("expected 1 route after duplicate insert, got %d", routes)
	}
	if coords != int64(len(lineA)) {
		t.Errorf("expected %d coordinates, got %d", len(lineA), coords)
	}
	if got := storedCoordinates(t, db, first); len(got) != len(lineA) {
		t.Errorf("first route lost coordinates: %d", len(got))
	}
}

func TestGetNotFound(t *testing.T) {
	s := store.New(newTestDB(t))

	if _, err := s.GetByID(42, store.ReadOptions{IncludeInactive: true}); !errors.Is(err, store.ErrRouteNotFound) {
		t.Errorf("GetByID: expected ErrRouteNotFound, got %v", err)
	}
	if _, err := s.GetByName("missing", store.ReadOptions{IncludeInactive: true}); !errors.Is(err, store.ErrRouteNotFound) {
		t.Errorf("GetByName: expected ErrRouteNotFound, got %v", err)
	}
}

func TestListOrdersByNameAndHonoursVisibility(t *testing.T) {
	s := store.New(newTestDB(t))

	mustCreate(t, s, store.NewRoute{Name: "Zeta", RouteType: models.RouteTypeBus, IsActive: true})
	mustCreate(t, s, store.NewRoute{Name: "Alpha", RouteType: models.RouteTypeTrufi, IsActive: true})
	mustCreate(t, s, store.NewRoute{Name: "Mid", RouteType: models.RouteTypeBus, IsActive: false})

	all, err := s.List(store.ReadOptions{IncludeInactive: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, r := range all {
		names = append(names, r.Name)
	}
	if got := strings.Join(names, ","); got != "Alpha,Mid,Zeta" {
		t.Errorf("List order = %s, want Alpha,Mid,Zeta", got)
	}

	active, err := s.List(store.ReadOptions{})
	if err != nil {
		t.Fatalf("List active: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("expected 2 active routes, got %d", len(active))
	}

	buses, err := s.ListByType(models.RouteTypeBus, store.ReadOptions{})
	if err != nil {
		t.Fatalf("ListByType: %v", err)
	}
	if len(buses) != 1 || buses[0].Name != "Zeta" {
		t.Errorf("expected only active bus Zeta, got %+v", buses)
	}
	buses, err = s.ListByType(models.RouteTypeBus, store.ReadOptions{IncludeInactive: true})
	if err != nil {
		t.Fatalf("ListByType: %v", err)
	}
	if len(buses) != 2 {
		t.Errorf("expected 2 buses including inactive, got %d", len(buses))
	}
}

func TestSearchIsCaseInsensitiveOnNameAndDescription(t *testing.T) {
	s := store.New(newTestDB(t))

	mustCreate(t, s, store.NewRoute{Name: "Line A", Description: "Centro to Quillacollo", RouteType: models.RouteTypeBus, IsActive: true})
	mustCreate(t, s, store.NewRoute{Name: "Trufi 12", Description: "Sacaba express", RouteType: models.RouteTypeTrufi, IsActive: true})

	byName, err := s.Search("line", store.ReadOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(byName) != 1 || byName[0].Name != "Line A" {
		t.Errorf("search 'line' = %+v", byName)
	}

	byDescription, err := s.Search("SACABA", store.ReadOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(byDescription) != 1 || byDescription[0].Name != "Trufi 12" {
		t.Errorf("search 'SACABA' = %+v", byDescription)
	}

	none, err := s.Search("tram", store.ReadOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no matches, got %d", len(none))
	}
}

func TestUpdateAppliesOnlySuppliedFields(t *testing.T) {
	db := newTestDB(t)
	s := store.New(db)
	id := mustCreate(t, s, store.NewRoute{Name: "Line A", Description: "original", RouteType: models.RouteTypeBus, IsActive: true, Coordinates: lineA})

	micro := models.RouteTypeMicro
	if err := s.Update(id, store.RouteUpdate{RouteType: &micro}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	detail, err := s.GetByID(id, store.ReadOptions{IncludeInactive: true})
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if detail.RouteType != models.RouteTypeMicro {
		t.Errorf("route_type = %q, want micro", detail.RouteType)
	}
	if detail.Name != "Line A" || detail.Description != "original" || !detail.IsActive {
		t.Errorf("untouched fields changed: %+v", detail)
	}
	if got := storedCoordinates(t, db, id); len(got) != len(lineA) {
		t.Errorf("coordinates changed without being supplied: %d", len(got))
	}
}

func TestUpdateReplacesCoordinates(t *testing.T) {
	db := newTestDB(t)
	s := store.New(db)
	id := mustCreate(t, s, store.NewRoute{Name: "Line A", RouteType: models.RouteTypeBus, IsActive: true, Coordinates: lineA})

	replacement := []models.Coordinate{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}
	if err := s.Update(id, store.RouteUpdate{Coordinates: &replacement}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	rows := storedCoordinates(t, db, id)
	if len(rows) != 2 {
		t.Fatalf("expected 2 coordinates, got %d", len(rows))
	}
	if rows[0].SequenceOrder != 1 || rows[1].SequenceOrder != 2 || rows[1].Latitude != 3 {
		t.Errorf("unexpected replacement rows: %+v", rows)
	}

	empty := []models.Coordinate{}
	if err := s.Update(id, store.RouteUpdate{Coordinates: &empty}); err != nil {
		t.Fatalf("Update with empty coordinates: %v", err)
	}
	if rows := storedCoordinates(t, db, id); len(rows) != 0 {
		t.Errorf("expected coordinates to be cleared, got %d", len(rows))
	}
}

func TestUpdateNotFoundAndDuplicate(t *testing.T) {
	db := newTestDB(t)
	s := store.New(db)

	name := "Ghost"
	if err := s.Update(999, store.RouteUpdate{Name: &name}); !errors.Is(err, store.ErrRouteNotFound) {
		t.Errorf("expected ErrRouteNotFound, got %v", err)
	}

	mustCreate(t, s, store.NewRoute{Name: "Line A", RouteType: models.RouteTypeBus, IsActive: true})
	id := mustCreate(t, s, store.NewRoute{Name: "Line B", RouteType: models.RouteTypeBus, IsActive: true, Coordinates: lineA})

	taken := "Line A"
	replacement := []models.Coordinate{{Lat: 0, Lng: 0}}
	err := s.Update(id, store.RouteUpdate{Name: &taken, Coordinates: &replacement})
	if !errors.Is(err, store.ErrDuplicateRoute) {
		t.Fatalf("expected ErrDuplicateRoute, got %v", err)
	}
	if _, err := s.GetByName("Line B", store.ReadOptions{}); err != nil {
		t.Errorf("Line B should keep its name: %v", err)
	}
	if rows := storedCoordinates(t, db, id); len(rows) != len(lineA) {
		t.Errorf("coordinates changed despite rollback: %d", len(rows))
	}
}

func TestDeactivateIsIdempotent(t *testing.T) {
	s := store.New(newTestDB(t))
	id := mustCreate(t, s, store.NewRoute{Name: "Line A", RouteType: models.RouteTypeBus, IsActive: true, Coordinates: lineA})

	for i := 0; i < 2; i++ {
		if err := s.Deactivate(id); err != nil {
			t.Fatalf("Deactivate #%d: %v", i+1, err)
		}
		detail, err := s.GetByID(id, store.ReadOptions{IncludeInactive: true})
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if detail.IsActive {
			t.Errorf("route still active after Deactivate #%d", i+1)
		}
	}

	if err := s.Deactivate(12345); !errors.Is(err, store.ErrRouteNotFound) {
		t.Errorf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestStatsWithNoRoutes(t *testing.T) {
	s := store.New(newTestDB(t))

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRoutes != 0 || stats.AvgCoordinatesPerRoute != 0 {
		t.Errorf("unexpected stats for empty store: %+v", stats)
	}
	for _, rt := range models.RouteTypes {
		if n, ok := stats.RoutesByType[rt]; !ok || n != 0 {
			t.Errorf("routes_by_type[%s] = %d (present %v), want 0", rt, n, ok)
		}
	}
}

func TestStatsCounts(t *testing.T) {
	s := store.New(newTestDB(t))

	mustCreate(t, s, store.NewRoute{Name: "A", RouteType: models.RouteTypeBus, IsActive: true, Coordinates: lineA[:2]})
	mustCreate(t, s, store.NewRoute{Name: "B", RouteType: models.RouteTypeTrufi, IsActive: true, Coordinates: append(append([]models.Coordinate{}, lineA...), models.Coordinate{Lat: 1, Lng: 1})})
	id := mustCreate(t, s, store.NewRoute{Name: "C", RouteType: models.RouteTypeBus, IsActive: true})
	if err := s.Deactivate(id); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRoutes != 3 || stats.ActiveRoutes != 2 || stats.InactiveRoutes != 1 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.RoutesByType[models.RouteTypeBus] != 2 || stats.RoutesByType[models.RouteTypeTrufi] != 1 || stats.RoutesByType[models.RouteTypeMicro] != 0 {
		t.Errorf("unexpected per-type counts: %+v", stats.RoutesByType)
	}
	// (2 + 4) / 2 routes that have coordinates
	if stats.AvgCoordinatesPerRoute != 3 {
		t.Errorf("avg_coordinates_per_route = %v, want 3", stats.AvgCoordinatesPerRoute)
	}
}

func TestPing(t *testing.T) {
	if err := store.New(newTestDB(t)).Ping(); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
