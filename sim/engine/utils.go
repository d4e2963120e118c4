package engine

import "strings"

// Render characters for grid cells
const (
	EmptyChar    = '.'
	AirportChar  = 'A'
	CloudChar    = 'C'
	NewCloudChar = 'c'
)

// CountKind counts the cells of a specific kind in the grid
func CountKind(grid Grid, kind CellKind) int {
	count := 0
	for _, cell := range grid {
		if cell.Kind == kind {
			count++
		}
	}
	return count
}

// CellChar maps a cell to its render character
func CellChar(cell Cell) byte {
	switch cell.Kind {
	case Airport:
		return AirportChar
	case Cloud:
		if cell.NewCloud {
			return NewCloudChar
		}
		return CloudChar
	default:
		return EmptyChar
	}
}

// RenderRows draws the grid as one string per terrain row
func RenderRows(grid Grid, width int) []string {
	if width <= 0 {
		return nil
	}

	rows := make([]string, 0, (len(grid)+width-1)/width)
	var sb strings.Builder
	for i, cell := range grid {
		sb.WriteByte(CellChar(cell))
		if (i+1)%width == 0 || i == len(grid)-1 {
			rows = append(rows, sb.String())
			sb.Reset()
		}
	}
	return rows
}

// ManhattanDistance returns the row/column distance between two flat indices.
// Row wrap can make the propagation distance shorter than this.
func ManhattanDistance(from, to, width int) int {
	dx := from%width - to%width
	if dx < 0 {
		dx = -dx
	}
	dy := from/width - to/width
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// CoverageDistances returns, per cell, the day on which cloud first covers it
// when propagation starts from grid. Seeded clouds get 0 and unreachable cells
// get -1. Distances follow the same flat-index adjacency as Step, so row wrap
// is included and the value for an airport equals its arrival day.
func CoverageDistances(grid Grid, width int) []int {
	dist := make([]int, len(grid))
	queue := make([]int, 0, len(grid))
	for i, cell := range grid {
		dist[i] = -1
		if cell.Kind == Cloud {
			dist[i] = 0
			queue = append(queue, i)
		}
	}

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		for _, n := range Neighbors(cur, width) {
			if !grid.InBounds(n) || dist[n] != -1 {
				continue
			}
			dist[n] = dist[cur] + 1
			queue = append(queue, n)
		}
	}

	return dist
}

// PredictArrivals returns the first and last airport arrival days for a
// placed grid without running the simulation. ok is false when the grid has
// no airports or some airport can never be covered.
func PredictArrivals(grid Grid, width int) (first, all int, ok bool) {
	dist := CoverageDistances(grid, width)
	first = -1
	for i, cell := range grid {
		if cell.Kind != Airport {
			continue
		}
		if dist[i] < 0 {
			return 0, 0, false
		}
		if first == -1 || dist[i] < first {
			first = dist[i]
		}
		if dist[i] > all {
			all = dist[i]
		}
	}
	return first, all, first != -1
}
