package belief

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/fleetsim/core/spatial"
)

var priorHeader = []string{"x", "y", "day_code", "time_block", "value", "beta"}

// WritePrior serialises every cell of m as CSV rows
// x,y,day_code,time_block,value,beta preceded by a header.
func WritePrior(w io.Writer, m *Model) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(priorHeader); err != nil {
		return err
	}
	for _, p := range m.Pixels() {
		c := m.cells[p]
		for d := range c {
			for b, cell := range c[d] {
				rec := []string{
					strconv.Itoa(p.X),
					strconv.Itoa(p.Y),
					strconv.Itoa(d),
					strconv.Itoa(b),
					strconv.FormatFloat(cell.Value, 'g', -1, 64),
					strconv.FormatFloat(cell.Beta, 'g', -1, 64),
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadPrior loads a prior written by WritePrior. It also reads the legacy
// layout whose pixel is written "(x, y)": its rows carry beta before value,
// unless both are written as a "(value, beta)" pair. Cells missing from the
// file start at (0, initialBeta).
func ReadPrior(r io.Reader, initialBeta, betaObs float64) (*Model, error) {
	m, err := New(initialBeta, betaObs)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return m, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && strings.EqualFold(rec[0], priorHeader[0]) {
			continue
		}
		if err := m.readPriorRecord(rec); err != nil {
			return nil, fmt.Errorf("prior line %d: %w", line, err)
		}
	}
}

func (m *Model) readPriorRecord(rec []string) error {
	if len(rec) != len(priorHeader) {
		return fmt.Errorf("expected %d fields, got %d", len(priorHeader), len(rec))
	}
	ints := make([]int, 4)
	for i := range ints {
		v, err := strconv.Atoi(strings.Trim(rec[i], "() "))
		if err != nil {
			return err
		}
		ints[i] = v
	}
	valueField, betaField := rec[4], rec[5]
	legacy := strings.HasPrefix(strings.TrimSpace(rec[0]), "(")
	pair := strings.HasPrefix(strings.TrimSpace(rec[4]), "(")
	if legacy && !pair {
		valueField, betaField = betaField, valueField
	}
	value, err := strconv.ParseFloat(strings.Trim(valueField, "() "), 64)
	if err != nil {
		return err
	}
	beta, err := strconv.ParseFloat(strings.Trim(betaField, "() "), 64)
	if err != nil {
		return err
	}
	p := spatial.Pixel{X: ints[0], Y: ints[1]}
	if !p.Valid() {
		return fmt.Errorf("invalid pixel %v", p)
	}
	return m.Set(p, ints[2], ints[3], Cell{Value: value, Beta: beta})
}
