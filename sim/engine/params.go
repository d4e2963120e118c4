package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParams        = errors.New("invalid simulation parameters")
	ErrDegenerateSimulation = errors.New("degenerate simulation")
)

// CheckCapacity reports whether every airport and at least one cloud fit on
// the terrain. Clouds may stack, so only one free cell is needed for them.
func (p Params) CheckCapacity() error {
	cells := p.Terrain().Cells()
	if p.Airports >= cells {
		return fmt.Errorf("%w: %d airports leave no room for clouds on %d cells", ErrDegenerateSimulation, p.Airports, cells)
	}
	return nil
}

// MaxDays bounds the propagation loop. Clouds spread at least one flat index
// per day, so any grid is covered within Cells() days.
func MaxDays(t Terrain) int {
	return t.Cells() + 1
}
