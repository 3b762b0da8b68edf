// Package input reads cleaned trip records and serves them as a request
// stream.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/sim"
	"github.com/kilianp07/fleetsim/core/spatial"
)

// Config selects the trip file.
type Config struct {
	Path string `json:"path"`
	// Limit stops the stream after that many trips. Zero reads everything.
	Limit int `json:"limit"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("input: path is required")
	}
	if c.Limit < 0 {
		return fmt.Errorf("input: limit must not be negative")
	}
	return nil
}

var (
	pixelColumns  = []string{"oX", "oY", "dX", "dY"}
	lonLatColumns = []string{"pickup_longitude", "pickup_latitude", "dropoff_longitude", "dropoff_latitude"}
	required      = []string{"trip_id", "pickup_request_time", "original_dropoff_time", "occupancy"}
)

// CSVReader streams trips from a cleaned CSV file. Rows carry either the
// pixel columns oX,oY,dX,dY or raw coordinates which are projected through
// the grid. A missing day_of_week column is derived from the request time.
// Unknown columns such as vehicle_id are ignored.
type CSVReader struct {
	r      *csv.Reader
	closer io.Closer
	grid   *spatial.Grid
	cols   map[string]int
	pixels bool
	limit  int
	read   int
	line   int
}

// Open opens the file named by cfg.
func Open(cfg Config, grid *spatial.Grid) (*CSVReader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	r, err := NewCSVReader(f, grid)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", cfg.Path, err)
	}
	r.closer = f
	r.limit = cfg.Limit
	return r, nil
}

// NewCSVReader reads the header from r.
func NewCSVReader(r io.Reader, grid *spatial.Grid) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty trip file", sim.ErrInputContract)
		}
		return nil, fmt.Errorf("%w: header: %w", sim.ErrInputContract, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	c := &CSVReader{r: cr, grid: grid, cols: cols, line: 1}
	if missing := c.missing(required); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", sim.ErrInputContract, strings.Join(missing, ", "))
	}
	switch {
	case len(c.missing(pixelColumns)) == 0:
		c.pixels = true
	case len(c.missing(lonLatColumns)) == 0:
		if grid == nil {
			return nil, fmt.Errorf("coordinate columns need a grid projection")
		}
	default:
		return nil, fmt.Errorf("%w: need columns %s or %s", sim.ErrInputContract,
			strings.Join(pixelColumns, ","), strings.Join(lonLatColumns, ","))
	}
	return c, nil
}

func (c *CSVReader) missing(names []string) []string {
	var out []string
	for _, n := range names {
		if _, ok := c.cols[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// Next implements sim.RequestStream.
func (c *CSVReader) Next() (model.Trip, error) {
	if c.limit > 0 && c.read >= c.limit {
		return model.Trip{}, io.EOF
	}
	rec, err := c.r.Read()
	if errors.Is(err, io.EOF) {
		return model.Trip{}, err
	}
	if err != nil {
		return model.Trip{}, fmt.Errorf("%w: %w", sim.ErrInputContract, err)
	}
	c.line++
	t, err := c.parse(rec)
	if err != nil {
		return model.Trip{}, fmt.Errorf("line %d: %w", c.line, err)
	}
	c.read++
	return *t, nil
}

func (c *CSVReader) parse(rec []string) (*model.Trip, error) {
	p := fieldParser{rec: rec, cols: c.cols}
	id := p.int("trip_id")
	request := p.float("pickup_request_time")
	dropoff := p.float("original_dropoff_time")
	occupancy := p.int("occupancy")
	dow := model.DayOfWeekAt(request)
	if _, ok := c.cols["day_of_week"]; ok {
		dow = p.int("day_of_week")
	}
	var from, to spatial.Pixel
	if c.pixels {
		from = spatial.Pixel{X: p.int("oX"), Y: p.int("oY")}
		to = spatial.Pixel{X: p.int("dX"), Y: p.int("dY")}
	}
	if p.err != nil {
		return nil, p.err
	}
	if !c.pixels {
		coords := make([]float64, len(lonLatColumns))
		for i, name := range lonLatColumns {
			coords[i] = p.float(name)
		}
		if p.err != nil {
			return nil, p.err
		}
		var err error
		if from, err = c.grid.Project(coords[0], coords[1]); err != nil {
			return nil, err
		}
		if to, err = c.grid.Project(coords[2], coords[3]); err != nil {
			return nil, err
		}
	}
	t, err := model.NewTrip(id, from, to, request, dropoff, occupancy, dow)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sim.ErrInputContract, err)
	}
	return t, nil
}

// Close closes the underlying file when the reader owns it.
func (c *CSVReader) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// fieldParser keeps the first conversion error so a row is checked in one go.
type fieldParser struct {
	rec  []string
	cols map[string]int
	err  error
}

func (p *fieldParser) raw(name string) string {
	i := p.cols[name]
	if i >= len(p.rec) {
		return ""
	}
	return strings.TrimSpace(p.rec[i])
}

func (p *fieldParser) int(name string) int {
	if p.err != nil {
		return 0
	}
	s := p.raw(name)
	v, err := strconv.Atoi(s)
	if err != nil {
		// Pixel columns exported by spreadsheets often read 12.0.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			p.err = fmt.Errorf("%w: column %s: %q is not an integer", sim.ErrInputContract, name, s)
			return 0
		}
		v = int(f)
	}
	return v
}

func (p *fieldParser) float(name string) float64 {
	if p.err != nil {
		return 0
	}
	s := p.raw(name)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = fmt.Errorf("%w: column %s: %q is not a number", sim.ErrInputContract, name, s)
		return 0
	}
	return v
}
