package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/fleetsim/core/model"
)

// LegColumns is the header of the trip log. The pixel and time columns reuse
// the names of the cleaned trip input so a log can be replayed.
var LegColumns = []string{
	"trip_id", "joined_trip_id", "vehicle_id",
	"oX", "oY", "dX", "dY",
	"pickup_request_time", "original_dropoff_time", "pickup_time", "dropoff_time",
	"occupancy", "day_of_week",
}

// FleetColumns is the header of the fleet summary.
var FleetColumns = []string{
	"vehicle_id", "latest_trip", "x", "y", "time_of_last_ping",
	"repositioning_distance", "person_miles", "vehicle_miles",
}

// CSVConfig configures a CSVStore.
type CSVConfig struct {
	Path string `json:"path"`
	// FleetPath defaults to Path with a _fleet suffix before the extension.
	FleetPath string `json:"fleet_path"`
	RunID     string `json:"run_id"`
}

// CSVStore writes the trip log and the fleet summary as two CSV files.
type CSVStore struct {
	legsFile  *os.File
	fleetFile *os.File
	legs      *csv.Writer
	fleet     *csv.Writer
}

// NewCSVStore creates both files and writes their headers.
func NewCSVStore(cfg CSVConfig) (*CSVStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("csv store: path is required")
	}
	path := expand(cfg.Path, cfg.RunID)
	fleetPath := expand(cfg.FleetPath, cfg.RunID)
	if fleetPath == "" {
		ext := filepath.Ext(path)
		fleetPath = strings.TrimSuffix(path, ext) + "_fleet" + ext
	}
	lf, err := create(path)
	if err != nil {
		return nil, err
	}
	ff, err := create(fleetPath)
	if err != nil {
		_ = lf.Close()
		return nil, err
	}
	s := &CSVStore{legsFile: lf, fleetFile: ff, legs: csv.NewWriter(lf), fleet: csv.NewWriter(ff)}
	if err := errors.Join(s.legs.Write(LegColumns), s.fleet.Write(FleetColumns)); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func create(path string) (*os.File, error) {
	if err := mkdirFor(path); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func mkdirFor(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

// WriteLegs appends one row per leg.
func (s *CSVStore) WriteLegs(legs []model.Trip) error {
	for i := range legs {
		if err := s.legs.Write(legRow(&legs[i])); err != nil {
			return err
		}
	}
	s.legs.Flush()
	return s.legs.Error()
}

// WriteFleet appends one row per vehicle.
func (s *CSVStore) WriteFleet(vehicles []model.Vehicle) error {
	for i := range vehicles {
		if err := s.fleet.Write(fleetRow(&vehicles[i])); err != nil {
			return err
		}
	}
	s.fleet.Flush()
	return s.fleet.Error()
}

// Close flushes and closes both files.
func (s *CSVStore) Close() error {
	s.legs.Flush()
	s.fleet.Flush()
	return errors.Join(s.legs.Error(), s.fleet.Error(), s.legsFile.Close(), s.fleetFile.Close())
}

func legRow(t *model.Trip) []string {
	return []string{
		strconv.Itoa(t.ID), strconv.Itoa(t.JoinedTripID), strconv.Itoa(t.VehicleID),
		strconv.Itoa(t.Pickup.X), strconv.Itoa(t.Pickup.Y), strconv.Itoa(t.Dropoff.X), strconv.Itoa(t.Dropoff.Y),
		formatTime(t.PickupRequestTime), formatTime(t.OriginalDropoffTime), formatTime(t.PickupTime), formatTime(t.DropoffTime),
		strconv.Itoa(t.Occupancy), strconv.Itoa(t.DayOfWeek),
	}
}

func fleetRow(v *model.Vehicle) []string {
	return []string{
		strconv.Itoa(v.ID), strconv.Itoa(v.LatestTrip), strconv.Itoa(v.Location.X), strconv.Itoa(v.Location.Y),
		formatTime(v.FreeAt), strconv.Itoa(v.RepositionDistance), strconv.Itoa(v.PersonMiles), strconv.Itoa(v.VehicleMiles),
	}
}

func formatTime(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
