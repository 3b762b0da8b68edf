package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilianp07/fleetsim/core/model"
)

// Record kinds written by the JSONL stores.
const (
	KindLeg     = "leg"
	KindVehicle = "vehicle"
)

// Record is one line of a JSONL result file.
type Record struct {
	Kind    string         `json:"kind"`
	RunID   string         `json:"run_id,omitempty"`
	Leg     *model.Trip    `json:"leg,omitempty"`
	Vehicle *model.Vehicle `json:"vehicle,omitempty"`
}

// JSONLConfig configures the plain and rotating JSONL stores. The rotation
// options are ignored by the plain store.
type JSONLConfig struct {
	Path       string `json:"path"`
	RunID      string `json:"run_id"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// JSONLStore appends results as JSON lines.
type JSONLStore struct {
	runID string
	w     io.WriteCloser
	buf   *bufio.Writer
	enc   *json.Encoder
}

// NewJSONLStore opens path for appending.
func NewJSONLStore(cfg JSONLConfig) (*JSONLStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("jsonl store: path is required")
	}
	path := expand(cfg.Path, cfg.RunID)
	if err := mkdirFor(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return newJSONLStore(cfg.RunID, f), nil
}

// NewRotatingJSONLStore writes through lumberjack so that the file is rotated
// once it reaches MaxSizeMB megabytes.
func NewRotatingJSONLStore(cfg JSONLConfig) (*JSONLStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("rotating jsonl store: path is required")
	}
	path := expand(cfg.Path, cfg.RunID)
	if err := mkdirFor(path); err != nil {
		return nil, err
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return newJSONLStore(cfg.RunID, lj), nil
}

func newJSONLStore(runID string, w io.WriteCloser) *JSONLStore {
	buf := bufio.NewWriter(w)
	return &JSONLStore{runID: runID, w: w, buf: buf, enc: json.NewEncoder(buf)}
}

// WriteLegs writes one leg record per trip.
func (s *JSONLStore) WriteLegs(legs []model.Trip) error {
	for i := range legs {
		if err := s.enc.Encode(Record{Kind: KindLeg, RunID: s.runID, Leg: &legs[i]}); err != nil {
			return err
		}
	}
	return s.buf.Flush()
}

// WriteFleet writes one vehicle record per vehicle.
func (s *JSONLStore) WriteFleet(vehicles []model.Vehicle) error {
	for i := range vehicles {
		if err := s.enc.Encode(Record{Kind: KindVehicle, RunID: s.runID, Vehicle: &vehicles[i]}); err != nil {
			return err
		}
	}
	return s.buf.Flush()
}

// Close flushes pending records and closes the file.
func (s *JSONLStore) Close() error {
	if err := s.buf.Flush(); err != nil {
		_ = s.w.Close()
		return err
	}
	return s.w.Close()
}

// ReadJSONL decodes a result file. When runID is not empty only the records
// of that run are returned.
func ReadJSONL(r io.Reader, runID string) ([]model.Trip, []model.Vehicle, error) {
	var (
		legs     []model.Trip
		vehicles []model.Vehicle
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		if runID != "" && rec.RunID != runID {
			continue
		}
		switch {
		case rec.Kind == KindLeg && rec.Leg != nil:
			legs = append(legs, *rec.Leg)
		case rec.Kind == KindVehicle && rec.Vehicle != nil:
			vehicles = append(vehicles, *rec.Vehicle)
		default:
			return nil, nil, fmt.Errorf("line %d: unknown record kind %q", line, rec.Kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return legs, vehicles, nil
}
