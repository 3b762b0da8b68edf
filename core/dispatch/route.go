package dispatch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bluele/gcache"

	"github.com/kilianp07/fleetsim/core/spatial"
)

// ErrInfeasible signals that no stop order satisfies the route constraints.
// It never leaves the package: callers fall back to a new vehicle.
var ErrInfeasible = errors.New("no feasible shared route")

// Route is an ordering of dropoffs starting at a common origin.
type Route struct {
	// Order holds indices into the destinations passed to Best.
	Order []int
	// Distance is the total distance from the origin through every dropoff.
	Distance int
}

// RouteOptimizer finds the shortest Hamiltonian path from a fixed origin
// through a small set of dropoffs, subject to circuity and stop count limits.
type RouteOptimizer struct {
	maxCircuity float64
	maxStops    int
	cache       gcache.Cache
}

// NewRouteOptimizer returns an optimizer memoizing up to cacheSize searches.
// A non-positive cacheSize disables memoization.
func NewRouteOptimizer(maxCircuity float64, maxStops, cacheSize int) *RouteOptimizer {
	o := &RouteOptimizer{maxCircuity: maxCircuity, maxStops: maxStops}
	if cacheSize > 0 {
		o.cache = gcache.New(cacheSize).LRU().Build()
	}
	return o
}

// Best returns the shortest feasible order visiting every destination.
// Destinations sharing a pixel are visited together in their input order.
// Among orders of equal length the first one enumerated wins, enumeration
// following the input order. It returns ErrInfeasible when the distinct stop
// count exceeds the limit or no order keeps every rider within the circuity
// limit.
func (o *RouteOptimizer) Best(origin spatial.Pixel, dests []spatial.Pixel) (Route, error) {
	if len(dests) == 0 {
		return Route{}, nil
	}
	stops, groups := groupStops(dests)
	if len(stops) > o.maxStops || len(stops) > MaxStopsLimit {
		return Route{}, ErrInfeasible
	}

	var (
		stopOrder []int
		dist      int
		err       error
	)
	key := o.key(origin, stops)
	if o.cache != nil {
		if v, cerr := o.cache.Get(key); cerr == nil {
			r := v.(cachedRoute)
			stopOrder, dist, err = r.order, r.distance, r.err
		} else {
			stopOrder, dist, err = o.search(origin, stops)
			_ = o.cache.Set(key, cachedRoute{order: stopOrder, distance: dist, err: err})
		}
	} else {
		stopOrder, dist, err = o.search(origin, stops)
	}
	if err != nil {
		return Route{}, err
	}

	order := make([]int, 0, len(dests))
	for _, s := range stopOrder {
		order = append(order, groups[s]...)
	}
	return Route{Order: order, Distance: dist}, nil
}

type cachedRoute struct {
	order    []int
	distance int
	err      error
}

func (o *RouteOptimizer) key(origin spatial.Pixel, stops []spatial.Pixel) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(origin.X))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(origin.Y))
	for _, s := range stops {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(s.X))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(s.Y))
	}
	return b.String()
}

// groupStops collapses destinations to distinct pixels in order of first
// appearance and records which input indices land on each.
func groupStops(dests []spatial.Pixel) ([]spatial.Pixel, [][]int) {
	var stops []spatial.Pixel
	var groups [][]int
	index := make(map[spatial.Pixel]int, len(dests))
	for i, d := range dests {
		g, ok := index[d]
		if !ok {
			g = len(stops)
			index[d] = g
			stops = append(stops, d)
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return stops, groups
}

// search enumerates orderings of stops depth first with an explicit stack,
// pruning prefixes that break the circuity limit or cannot beat the best
// complete order found so far.
func (o *RouteOptimizer) search(origin spatial.Pixel, stops []spatial.Pixel) ([]int, int, error) {
	k := len(stops)
	var (
		best     []int
		bestDist int
		found    bool
		used     uint
	)
	path := make([]int, 0, k)
	cum := make([]int, k+1)
	stack := []int{0}
	for len(stack) > 0 {
		depth := len(stack) - 1
		c := stack[depth]
		if c >= k {
			stack = stack[:depth]
			if n := len(path); n > 0 {
				used &^= 1 << path[n-1]
				path = path[:n-1]
			}
			continue
		}
		stack[depth] = c + 1
		if used&(1<<c) != 0 {
			continue
		}
		prev := origin
		if n := len(path); n > 0 {
			prev = stops[path[n-1]]
		}
		d := cum[len(path)] + spatial.Distance(prev, stops[c])
		if found && d >= bestDist {
			continue
		}
		if direct := spatial.Distance(origin, stops[c]); direct > 0 && float64(d)/float64(direct) > o.maxCircuity {
			continue
		}
		if len(path)+1 == k {
			best = append(append(best[:0], path...), c)
			bestDist = d
			found = true
			continue
		}
		path = append(path, c)
		used |= 1 << c
		cum[len(path)] = d
		stack = append(stack, 0)
	}
	if !found {
		return nil, 0, ErrInfeasible
	}
	return best, bestDist, nil
}

func (r Route) String() string {
	return fmt.Sprintf("route %v (%d)", r.Order, r.Distance)
}
