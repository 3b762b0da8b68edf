package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/fleetsim/core/model"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS legs (
        run_id TEXT NOT NULL,
        seq INTEGER NOT NULL,
        trip_id INTEGER NOT NULL,
        joined_trip_id INTEGER NOT NULL,
        vehicle_id INTEGER NOT NULL,
        pickup_x INTEGER, pickup_y INTEGER,
        dropoff_x INTEGER, dropoff_y INTEGER,
        pickup_request_time REAL,
        original_dropoff_time REAL,
        pickup_time REAL,
        dropoff_time REAL,
        occupancy INTEGER,
        day_of_week INTEGER,
        PRIMARY KEY (run_id, trip_id)
    );`,
	`CREATE TABLE IF NOT EXISTS vehicles (
        run_id TEXT NOT NULL,
        vehicle_id INTEGER NOT NULL,
        latest_trip INTEGER,
        x INTEGER, y INTEGER,
        time_of_last_ping REAL,
        repositioning_distance INTEGER,
        person_miles INTEGER,
        vehicle_miles INTEGER,
        PRIMARY KEY (run_id, vehicle_id)
    );`,
}

// SQLiteConfig configures a SQLiteStore.
type SQLiteConfig struct {
	Path  string `json:"path"`
	RunID string `json:"run_id"`
}

// SQLiteStore persists results to a SQLite database. Several runs may share
// one database; rows are keyed by run id.
type SQLiteStore struct {
	db    *sql.DB
	runID string
	seq   int
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}
	dsn := expand(cfg.Path, cfg.RunID)
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
			}
			return nil, err
		}
	}
	return &SQLiteStore{db: db, runID: cfg.RunID}, nil
}

// WriteLegs inserts a dispatched chain in one transaction.
func (s *SQLiteStore) WriteLegs(legs []model.Trip) error {
	return s.tx(`INSERT INTO legs (run_id, seq, trip_id, joined_trip_id, vehicle_id,
        pickup_x, pickup_y, dropoff_x, dropoff_y,
        pickup_request_time, original_dropoff_time, pickup_time, dropoff_time,
        occupancy, day_of_week) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(legs), func(stmt *sql.Stmt, i int) error {
			t := &legs[i]
			s.seq++
			_, err := stmt.Exec(s.runID, s.seq, t.ID, t.JoinedTripID, t.VehicleID,
				t.Pickup.X, t.Pickup.Y, t.Dropoff.X, t.Dropoff.Y,
				t.PickupRequestTime, t.OriginalDropoffTime, t.PickupTime, t.DropoffTime,
				t.Occupancy, t.DayOfWeek)
			return err
		})
}

// WriteFleet stores the final counters, replacing earlier rows of the run.
func (s *SQLiteStore) WriteFleet(vehicles []model.Vehicle) error {
	return s.tx(`INSERT OR REPLACE INTO vehicles (run_id, vehicle_id, latest_trip, x, y,
        time_of_last_ping, repositioning_distance, person_miles, vehicle_miles)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(vehicles), func(stmt *sql.Stmt, i int) error {
			v := &vehicles[i]
			_, err := stmt.Exec(s.runID, v.ID, v.LatestTrip, v.Location.X, v.Location.Y,
				v.FreeAt, v.RepositionDistance, v.PersonMiles, v.VehicleMiles)
			return err
		})
}

func (s *SQLiteStore) tx(query string, n int, exec func(*sql.Stmt, int) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Legs returns the legs of a run in dispatch order.
func (s *SQLiteStore) Legs(ctx context.Context, runID string) ([]model.Trip, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT trip_id, joined_trip_id, vehicle_id,
        pickup_x, pickup_y, dropoff_x, dropoff_y,
        pickup_request_time, original_dropoff_time, pickup_time, dropoff_time,
        occupancy, day_of_week FROM legs WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Trip
	for rows.Next() {
		var t model.Trip
		if err := rows.Scan(&t.ID, &t.JoinedTripID, &t.VehicleID,
			&t.Pickup.X, &t.Pickup.Y, &t.Dropoff.X, &t.Dropoff.Y,
			&t.PickupRequestTime, &t.OriginalDropoffTime, &t.PickupTime, &t.DropoffTime,
			&t.Occupancy, &t.DayOfWeek); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// Vehicles returns the fleet summary of a run ordered by vehicle id.
func (s *SQLiteStore) Vehicles(ctx context.Context, runID string) ([]model.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vehicle_id, latest_trip, x, y, time_of_last_ping,
        repositioning_distance, person_miles, vehicle_miles
        FROM vehicles WHERE run_id = ? ORDER BY vehicle_id`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Vehicle
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(&v.ID, &v.LatestTrip, &v.Location.X, &v.Location.Y, &v.FreeAt,
			&v.RepositionDistance, &v.PersonMiles, &v.VehicleMiles); err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
