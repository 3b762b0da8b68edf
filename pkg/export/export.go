// Package export writes one summary row per simulation run so sweeps can be
// compared in a spreadsheet or a notebook.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/fleetsim/core/dispatch"
	"github.com/kilianp07/fleetsim/core/report"
	"github.com/kilianp07/fleetsim/core/sim"
)

// Row is the flattened form of a run result.
type Row struct {
	Index int    `json:"index"`
	RunID string `json:"run_id"`
	dispatch.Params
	report.Summary
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Rows flattens results in order.
func Rows(results []sim.RunResult) []Row {
	rows := make([]Row, len(results))
	for i, r := range results {
		rows[i] = Row{
			Index:      r.Index,
			RunID:      r.RunID,
			Params:     r.Params,
			Summary:    r.Summary,
			DurationMS: r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			rows[i].Error = r.Err.Error()
		}
	}
	return rows
}

// WriteJSON writes the summary rows to w as a JSON array.
func WriteJSON(w io.Writer, results []sim.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Rows(results))
}

var csvHeader = []string{
	"index", "run_id",
	"fleet_size", "vehicle_size", "departure_delay", "max_circuity", "max_stops",
	"local_demand_degree", "greedy_common_origin", "initial_beta", "beta_obs", "freq_levrs",
	"trips", "riders", "per_occupant_wait", "per_trip_reposition", "average_occupancy",
	"weighted_circuity", "person_miles", "vehicle_miles", "reposition_distance",
	"duration_ms", "error",
}

// WriteCSV writes the summary rows to w in CSV format.
func WriteCSV(w io.Writer, results []sim.RunResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range Rows(results) {
		rec := []string{
			strconv.Itoa(r.Index), r.RunID,
			strconv.Itoa(r.FleetSize), strconv.Itoa(r.VehicleSize), formatFloat(r.DepartureDelay),
			formatFloat(r.MaxCircuity), strconv.Itoa(r.MaxStops), strconv.Itoa(r.LocalDemandDegree),
			strconv.FormatBool(r.GreedyCommonOrigin), formatFloat(r.InitialBeta), formatFloat(r.BetaObs),
			strconv.Itoa(r.FreqLEVRS),
			strconv.Itoa(r.Trips), strconv.Itoa(r.Riders), formatFloat(r.PerOccupantWait),
			formatFloat(r.PerTripReposition), formatFloat(r.AverageOccupancy), formatFloat(r.WeightedCircuity),
			strconv.Itoa(r.PersonMiles), strconv.Itoa(r.VehicleMiles), strconv.Itoa(r.RepositionDistance),
			strconv.FormatInt(r.DurationMS, 10), r.Error,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the rows to path, as JSON when the extension is .json and
// as CSV otherwise.
func WriteFile(path string, results []sim.RunResult) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, f.Close()) }()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = WriteJSON(f, results)
	} else {
		err = WriteCSV(f, results)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
