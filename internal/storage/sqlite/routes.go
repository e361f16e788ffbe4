package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/openmast/helmsman/internal/geo"
	"github.com/openmast/helmsman/internal/route"
	"github.com/openmast/helmsman/pkg/logger"
	_ "modernc.org/sqlite"
)

// RouteStorage is a SQLite-based storage for route documents. Routes are
// persisted with their computed leg data so a restart reproduces exactly
// the aggregates the engine last calculated.
type RouteStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRouteStorage creates a new SQLite-based route storage
func NewRouteStorage(dbPath string, log *logger.Logger) (*RouteStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initDatabase(db); err != nil {
		db.Close()
		return nil, err
	}

	return &RouteStorage{
		db:     db,
		logger: storageLogger,
	}, nil
}

// Close closes the database connection
func (s *RouteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database connection
func (s *RouteStorage) GetDB() *sql.DB {
	return s.db
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS routes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			routing_method TEXT NOT NULL,
			cruising_speed_kn REAL NOT NULL,
			fuel_burn_gph REAL NOT NULL,
			total_distance_nm REAL NOT NULL,
			estimated_duration_min REAL,
			estimated_fuel_gal REAL NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create routes table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS route_points (
			route_id TEXT NOT NULL,
			id TEXT NOT NULL,
			point_order INTEGER NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			name TEXT,
			waypoint_ref TEXT,
			notes TEXT,
			leg_distance_nm REAL,
			leg_bearing_deg REAL,
			PRIMARY KEY (route_id, id),
			FOREIGN KEY (route_id) REFERENCES routes(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create route_points table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_route_points_order ON route_points(route_id, point_order)`)
	if err != nil {
		return fmt.Errorf("failed to create index on route_points.point_order: %w", err)
	}

	return nil
}

// SaveRoute upserts a route and replaces its point rows in one transaction
func (s *RouteStorage) SaveRoute(r *route.Route) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var durationMin any
	if r.EstimatedDurationMin != nil {
		durationMin = *r.EstimatedDurationMin
	}

	_, err = tx.Exec(
		`INSERT INTO routes
		(id, name, routing_method, cruising_speed_kn, fuel_burn_gph, total_distance_nm, estimated_duration_min, estimated_fuel_gal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			routing_method = excluded.routing_method,
			cruising_speed_kn = excluded.cruising_speed_kn,
			fuel_burn_gph = excluded.fuel_burn_gph,
			total_distance_nm = excluded.total_distance_nm,
			estimated_duration_min = excluded.estimated_duration_min,
			estimated_fuel_gal = excluded.estimated_fuel_gal,
			updated_at = excluded.updated_at`,
		r.ID,
		r.Name,
		r.RoutingMethod.String(),
		r.CruisingSpeedKn,
		r.FuelBurnGPH,
		r.TotalDistanceNM,
		durationMin,
		r.EstimatedFuelGal,
		r.CreatedAt.Format(time.RFC3339Nano),
		r.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert route %s: %w", r.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM route_points WHERE route_id = ?`, r.ID); err != nil {
		return fmt.Errorf("failed to clear points for route %s: %w", r.ID, err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO route_points
		(route_id, id, point_order, lat, lon, name, waypoint_ref, notes, leg_distance_nm, leg_bearing_deg)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare point insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range r.Points {
		var ref any
		if p.WaypointRef != nil {
			ref = *p.WaypointRef
		}
		var legDist, legBrg any
		if p.LegDistanceNM != nil {
			legDist = *p.LegDistanceNM
		}
		if p.LegBearingDeg != nil {
			legBrg = *p.LegBearingDeg
		}

		if _, err := stmt.Exec(r.ID, p.ID, p.Order, p.Position.Lat, p.Position.Lon, p.Name, ref, p.Notes, legDist, legBrg); err != nil {
			return fmt.Errorf("failed to insert point %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit route %s: %w", r.ID, err)
	}

	return nil
}

// GetRoute loads a route with its ordered points
func (s *RouteStorage) GetRoute(id string) (*route.Route, bool, error) {
	row := s.db.QueryRow(
		`SELECT id, name, routing_method, cruising_speed_kn, fuel_burn_gph, total_distance_nm, estimated_duration_min, estimated_fuel_gal, created_at, updated_at
		FROM routes WHERE id = ?`, id)

	r, err := scanRoute(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	points, err := s.loadPoints(id)
	if err != nil {
		return nil, false, err
	}
	r.Points = points

	return r, true, nil
}

// ListRoutes loads all routes with their points, most recently updated first
func (s *RouteStorage) ListRoutes() ([]*route.Route, error) {
	rows, err := s.db.Query(
		`SELECT id, name, routing_method, cruising_speed_kn, fuel_burn_gph, total_distance_nm, estimated_duration_min, estimated_fuel_gal, created_at, updated_at
		FROM routes ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var routes []*route.Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate routes: %w", err)
	}

	for _, r := range routes {
		points, err := s.loadPoints(r.ID)
		if err != nil {
			return nil, err
		}
		r.Points = points
	}

	return routes, nil
}

// DeleteRoute removes a route and (via cascade) its points. Returns whether
// a row was deleted.
func (s *RouteStorage) DeleteRoute(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM routes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete route %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRoute(row scanner) (*route.Route, error) {
	var r route.Route
	var method string
	var durationMin sql.NullFloat64
	var createdAt, updatedAt string

	err := row.Scan(
		&r.ID,
		&r.Name,
		&method,
		&r.CruisingSpeedKn,
		&r.FuelBurnGPH,
		&r.TotalDistanceNM,
		&durationMin,
		&r.EstimatedFuelGal,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsedMethod, err := geo.ParseRoutingMethod(method)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", r.ID, err)
	}
	r.RoutingMethod = parsedMethod

	if durationMin.Valid {
		v := durationMin.Float64
		r.EstimatedDurationMin = &v
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		r.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		r.UpdatedAt = t
	}

	return &r, nil
}

func (s *RouteStorage) loadPoints(routeID string) ([]route.RoutePoint, error) {
	rows, err := s.db.Query(
		`SELECT id, point_order, lat, lon, name, waypoint_ref, notes, leg_distance_nm, leg_bearing_deg
		FROM route_points WHERE route_id = ? ORDER BY point_order ASC`, routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query points for route %s: %w", routeID, err)
	}
	defer rows.Close()

	points := []route.RoutePoint{}
	for rows.Next() {
		var p route.RoutePoint
		var name, notes sql.NullString
		var ref sql.NullString
		var legDist, legBrg sql.NullFloat64

		err := rows.Scan(&p.ID, &p.Order, &p.Position.Lat, &p.Position.Lon, &name, &ref, &notes, &legDist, &legBrg)
		if err != nil {
			return nil, fmt.Errorf("failed to scan point for route %s: %w", routeID, err)
		}

		p.Name = name.String
		p.Notes = notes.String
		if ref.Valid {
			v := ref.String
			p.WaypointRef = &v
		}
		if legDist.Valid {
			v := legDist.Float64
			p.LegDistanceNM = &v
		}
		if legBrg.Valid {
			v := legBrg.Float64
			p.LegBearingDeg = &v
		}

		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate points for route %s: %w", routeID, err)
	}

	return points, nil
}
