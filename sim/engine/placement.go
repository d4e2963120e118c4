package engine

import (
	"fmt"
	"math/rand/v2"
)

// Source draws uniform integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// NewSource returns a seeded PCG generator. Each run must own its source.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Place seeds airports and clouds onto a freshly built grid. The caller hands
// over exclusive access to grid for the duration of the call.
//
// Airports only land on empty cells. Clouds land on empty cells or on cells
// that are already cloud, so repeated cloud draws may stack on one cell.
func Place(grid Grid, airports, clouds int, rng Source) error {
	if len(grid) == 0 {
		return fmt.Errorf("%w: empty grid", ErrDegenerateSimulation)
	}

	limit := DrawsPerCell * len(grid)

	for a := 0; a < airports; a++ {
		idx, ok := draw(grid, rng, limit, func(cell Cell) bool {
			return cell.Kind == Empty
		})
		if !ok {
			return fmt.Errorf("%w: no free cell for airport %d of %d after %d draws", ErrDegenerateSimulation, a+1, airports, limit)
		}
		grid[idx].Kind = Airport
	}

	for c := 0; c < clouds; c++ {
		idx, ok := draw(grid, rng, limit, func(cell Cell) bool {
			return cell.Kind == Empty || cell.Kind == Cloud
		})
		if !ok {
			return fmt.Errorf("%w: no free cell for cloud %d of %d after %d draws", ErrDegenerateSimulation, c+1, clouds, limit)
		}
		grid[idx].Kind = Cloud
	}

	return nil
}

// draw retries random indices until accept matches or limit is spent
func draw(grid Grid, rng Source, limit int, accept func(Cell) bool) (int, bool) {
	for i := 0; i < limit; i++ {
		idx := rng.IntN(len(grid))
		if accept(grid[idx]) {
			return idx, true
		}
	}
	return 0, false
}
