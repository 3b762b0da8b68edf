package sim

import (
	"errors"
	"fmt"
	"io"

	"github.com/kilianp07/fleetsim/core/model"
)

// ErrInputContract is returned when the request stream violates its
// contract: out of order request times or malformed trips.
var ErrInputContract = errors.New("input contract violated")

// RequestStream yields trip requests in non-decreasing request time. Next
// returns io.EOF once the stream is exhausted.
type RequestStream interface {
	Next() (model.Trip, error)
}

// SliceStream serves requests from memory.
type SliceStream struct {
	trips []model.Trip
	next  int
}

// NewSliceStream returns a stream over trips.
func NewSliceStream(trips ...model.Trip) *SliceStream {
	return &SliceStream{trips: trips}
}

// Next implements RequestStream.
func (s *SliceStream) Next() (model.Trip, error) {
	if s.next >= len(s.trips) {
		return model.Trip{}, io.EOF
	}
	t := s.trips[s.next]
	s.next++
	return t, nil
}

// checkedStream enforces the stream contract on top of another stream.
type checkedStream struct {
	src  RequestStream
	last float64
	read int
}

func (c *checkedStream) Next() (model.Trip, error) {
	t, err := c.src.Next()
	if err != nil {
		return t, err
	}
	if err := t.Validate("read request"); err != nil {
		return t, fmt.Errorf("%w: %v", ErrInputContract, err)
	}
	if t.Assigned() || !t.Terminal() {
		return t, fmt.Errorf("%w: request %d is already scheduled", ErrInputContract, t.ID)
	}
	if c.read > 0 && t.PickupRequestTime < c.last {
		return t, fmt.Errorf("%w: request %d at %.1f precedes %.1f", ErrInputContract, t.ID, t.PickupRequestTime, c.last)
	}
	c.last = t.PickupRequestTime
	c.read++
	return t, nil
}
