package belief

import (
	"errors"
	"fmt"
	"io"

	"github.com/kilianp07/fleetsim/core/model"
)

// TripSource yields historical trips until io.EOF.
type TripSource interface {
	Next() (model.Trip, error)
}

// Learn builds a demand model offline from every trip of src.
func Learn(src TripSource, initialBeta, betaObs float64) (*Model, int, error) {
	m, err := New(initialBeta, betaObs)
	if err != nil {
		return nil, 0, err
	}
	n := 0
	for {
		t, err := src.Next()
		if errors.Is(err, io.EOF) {
			return m, n, nil
		}
		if err != nil {
			return nil, n, fmt.Errorf("learn: %w", err)
		}
		if err := m.Observe(&t); err != nil {
			return nil, n, fmt.Errorf("learn trip %d: %w", t.ID, err)
		}
		n++
	}
}
