package lookup

import (
	"errors"
	"sort"
)

// Errors returned by grid functions.
var (
	ErrEmptyGrid     = errors.New("timestamp grid is empty")
	ErrUnsortedGrid  = errors.New("timestamp grid is not strictly increasing")
	ErrMissingBucket = errors.New("timestamp is at or after the last grid point")
)

// Grid is the ascending, duplicate-free sequence of bucket timestamps
// (Unix seconds) every feed is aligned on.
type Grid []int64

// NewGrid sorts and deduplicates points into a Grid.
// The input slice is not modified.
func NewGrid(points []int64) (Grid, error) {
	if len(points) == 0 {
		return nil, ErrEmptyGrid
	}

	sorted := make([]int64, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	grid := sorted[:1]
	for _, p := range sorted[1:] {
		if p != grid[len(grid)-1] {
			grid = append(grid, p)
		}
	}
	return Grid(grid), nil
}

// Validate checks the grid is non-empty and strictly increasing.
func (g Grid) Validate() error {
	if len(g) == 0 {
		return ErrEmptyGrid
	}
	for i := 1; i < len(g); i++ {
		if g[i] <= g[i-1] {
			return ErrUnsortedGrid
		}
	}
	return nil
}

// Next returns the first grid point strictly after tsSec.
// A timestamp equal to a grid point belongs to the following point, since
// grid rows are sampled when their period closes.
// Returns false when tsSec is at or after the last point.
// The grid must be valid; Next does not check it.
func (g Grid) Next(tsSec int64) (int64, bool) {
	i := sort.Search(len(g), func(i int) bool { return g[i] > tsSec })
	if i == len(g) {
		return 0, false
	}
	return g[i], true
}

// Last returns the final grid point, or false for an empty grid.
func (g Grid) Last() (int64, bool) {
	if len(g) == 0 {
		return 0, false
	}
	return g[len(g)-1], true
}

// NextGridPoint is the checked form of Grid.Next.
// Returns ErrEmptyGrid or ErrUnsortedGrid for an invalid grid and
// ErrMissingBucket when tsSec has no bucket.
func NextGridPoint(tsSec int64, grid Grid) (int64, error) {
	if err := grid.Validate(); err != nil {
		return 0, err
	}
	next, ok := grid.Next(tsSec)
	if !ok {
		return 0, ErrMissingBucket
	}
	return next, nil
}
