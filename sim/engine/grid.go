package engine

// Grid is the terrain laid out row-major in a flat slice
type Grid []Cell

// NewGrid creates a grid of totalCells empty cells
func NewGrid(totalCells int) Grid {
	grid := make(Grid, totalCells)
	for i := range grid {
		grid[i] = Cell{Kind: Empty}
	}
	return grid
}

// Clone returns a detached copy of the grid. Cells are plain values, so the
// copy shares no memory with the original.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	copy(out, g)
	return out
}

// InBounds reports whether idx addresses a cell of the grid
func (g Grid) InBounds(idx int) bool {
	return idx >= 0 && idx < len(g)
}

// Neighbors returns the up, right, down and left indices of idx, in that
// order. Indices are not bounds-checked and left/right do not respect row
// boundaries.
func Neighbors(idx, width int) [4]int {
	return [4]int{
		idx - width,
		idx + 1,
		idx + width,
		idx - 1,
	}
}

// clearNewClouds resets the new-cloud flag on every cell
func (g Grid) clearNewClouds() {
	for i := range g {
		g[i].NewCloud = false
	}
}
