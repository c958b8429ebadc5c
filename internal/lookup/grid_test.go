package lookup

import (
	"errors"
	"testing"
)

func TestNewGrid_SortsAndDeduplicates(t *testing.T) {
	input := []int64{2700, 900, 1800, 900, 2700}

	grid, err := NewGrid(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int64{900, 1800, 2700}
	if len(grid) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(grid))
	}
	for i := range want {
		if grid[i] != want[i] {
			t.Errorf("point %d: expected %d, got %d", i, want[i], grid[i])
		}
	}

	// Input untouched
	if input[0] != 2700 {
		t.Errorf("input slice was modified: %v", input)
	}
}

func TestNewGrid_Empty(t *testing.T) {
	_, err := NewGrid(nil)
	if !errors.Is(err, ErrEmptyGrid) {
		t.Errorf("expected ErrEmptyGrid, got %v", err)
	}
}

func TestGrid_Validate(t *testing.T) {
	tests := []struct {
		name string
		grid Grid
		want error
	}{
		{"valid", Grid{900, 1800, 2700}, nil},
		{"single", Grid{900}, nil},
		{"empty", Grid{}, ErrEmptyGrid},
		{"unsorted", Grid{1800, 900}, ErrUnsortedGrid},
		{"duplicate", Grid{900, 900, 1800}, ErrUnsortedGrid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.grid.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGrid_Next(t *testing.T) {
	grid := Grid{900, 1800, 2700}

	tests := []struct {
		name   string
		ts     int64
		want   int64
		wantOK bool
	}{
		{"before first", 100, 900, true},
		{"just before first", 899, 900, true},
		{"equal to first maps to next", 900, 1800, true},
		{"between", 1700, 1800, true},
		{"equal to middle maps to next", 1800, 2700, true},
		{"just before last", 2699, 2700, true},
		{"equal to last has no bucket", 2700, 0, false},
		{"after last has no bucket", 5000, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := grid.Next(tt.ts)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestGrid_Next_IrregularSpacing(t *testing.T) {
	// Funding periods are not guaranteed to be evenly spaced
	grid := Grid{1000, 1100, 5000, 5001}

	for ts, want := range map[int64]int64{
		999:  1000,
		1050: 1100,
		1100: 5000,
		4999: 5000,
		5000: 5001,
	} {
		got, ok := grid.Next(ts)
		if !ok || got != want {
			t.Errorf("Next(%d): expected %d, got %d (ok=%v)", ts, want, got, ok)
		}
	}
}

func TestGrid_Next_AlwaysStrictlyGreater(t *testing.T) {
	grid := Grid{10, 20, 35, 50, 80}

	for ts := int64(0); ts < 80; ts++ {
		got, ok := grid.Next(ts)
		if !ok {
			t.Fatalf("Next(%d): expected bucket", ts)
		}
		if got <= ts {
			t.Errorf("Next(%d) = %d, must be > ts", ts, got)
		}
		// Smallest such point
		for _, g := range grid {
			if g > ts && g < got {
				t.Errorf("Next(%d) = %d, but %d is smaller and > ts", ts, got, g)
			}
		}
	}
}

func TestGrid_Last(t *testing.T) {
	if _, ok := (Grid{}).Last(); ok {
		t.Error("expected no last point for empty grid")
	}
	last, ok := Grid{900, 1800}.Last()
	if !ok || last != 1800 {
		t.Errorf("expected 1800, got %d (ok=%v)", last, ok)
	}
}

func TestNextGridPoint(t *testing.T) {
	grid := Grid{900, 1800, 2700}

	got, err := NextGridPoint(850, grid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 900 {
		t.Errorf("expected 900, got %d", got)
	}

	_, err = NextGridPoint(2700, grid)
	if !errors.Is(err, ErrMissingBucket) {
		t.Errorf("expected ErrMissingBucket, got %v", err)
	}

	_, err = NextGridPoint(100, Grid{})
	if !errors.Is(err, ErrEmptyGrid) {
		t.Errorf("expected ErrEmptyGrid, got %v", err)
	}

	_, err = NextGridPoint(100, Grid{1800, 900})
	if !errors.Is(err, ErrUnsortedGrid) {
		t.Errorf("expected ErrUnsortedGrid, got %v", err)
	}
}
