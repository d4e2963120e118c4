package engine

// scriptedSource replays a fixed list of indices, cycling when exhausted
type scriptedSource struct {
	indices []int
	pos     int
	calls   int
}

func (s *scriptedSource) IntN(n int) int {
	s.calls++
	idx := s.indices[s.pos%len(s.indices)]
	s.pos++
	return idx % n
}

// gridWith builds a 10x10 grid with airports and clouds at fixed indices
func gridWith(airports, clouds []int) Grid {
	grid := NewGrid(100)
	for _, a := range airports {
		grid[a].Kind = Airport
	}
	for _, c := range clouds {
		grid[c].Kind = Cloud
	}
	return grid
}

var tenByTen = Terrain{Height: 10, Width: 10}
