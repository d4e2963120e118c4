package engine

import "fmt"

// Engine advances a populated grid one day at a time
type Engine struct {
	grid      Grid
	terrain   Terrain
	remaining int
	day       int
	result    *Result
}

// NewEngine takes exclusive ownership of grid and prepares a run that ends
// once airports airports have been reached.
func NewEngine(grid Grid, terrain Terrain, airports int) (*Engine, error) {
	if len(grid) != terrain.Cells() {
		return nil, fmt.Errorf("%w: grid has %d cells, terrain %dx%d needs %d",
			ErrInvalidParams, len(grid), terrain.Height, terrain.Width, terrain.Cells())
	}
	if airports <= 0 {
		return nil, fmt.Errorf("%w: no airports to reach", ErrDegenerateSimulation)
	}

	return &Engine{
		grid:      grid,
		terrain:   terrain,
		remaining: airports,
		result: &Result{
			History: []DaySnapshot{},
			Terrain: terrain,
		},
	}, nil
}

// Day returns the last simulated day (0 before the first Step)
func (e *Engine) Day() int {
	return e.day
}

// Remaining returns how many airports are still uncovered
func (e *Engine) Remaining() int {
	return e.remaining
}

// Done reports whether every airport has been reached
func (e *Engine) Done() bool {
	return e.result.AllAirports.Reached
}

// Grid returns a copy of the live grid
func (e *Engine) Grid() Grid {
	return e.grid.Clone()
}

// Result returns the result accumulated so far
func (e *Engine) Result() *Result {
	return e.result
}

// Step simulates one day and appends its snapshot to the history.
// It returns true once all airports have been reached.
func (e *Engine) Step() bool {
	if e.Done() {
		return true
	}

	e.day++
	e.grid.clearNewClouds()
	initial := e.grid.Clone()

	for pos := range e.grid {
		cell := e.grid[pos]
		if cell.Kind != Cloud || cell.NewCloud {
			continue
		}

		for _, n := range Neighbors(pos, e.terrain.Width) {
			if !e.grid.InBounds(n) {
				continue
			}

			// Arrival is detected on the pre-overwrite kind
			if e.grid[n].Kind == Airport {
				e.arrive()
			}

			if e.grid[n].Kind != Cloud {
				e.grid[n] = Cell{Kind: Cloud, NewCloud: true}
			}
		}
	}

	e.result.History = append(e.result.History, DaySnapshot{
		Day: e.day,
		Grid: DayGrids{
			Initial: initial,
			Final:   e.grid.Clone(),
		},
	})

	return e.Done()
}

// arrive counts one airport as reached on the current day
func (e *Engine) arrive() {
	if !e.result.FirstAirport.Reached {
		e.result.FirstAirport.mark(e.day)
	}
	e.remaining--
	if e.remaining == 0 {
		e.result.AllAirports.mark(e.day)
	}
}

// Run steps until every airport is reached or maxDays is exceeded
func (e *Engine) Run(maxDays int) (*Result, error) {
	for !e.Step() {
		if e.day >= maxDays {
			return nil, fmt.Errorf("%w: %d airports still uncovered after %d days",
				ErrDegenerateSimulation, e.remaining, e.day)
		}
	}
	return e.result, nil
}

// Propagate runs the day loop on a placed grid until all airports are reached
func Propagate(grid Grid, terrain Terrain, airports int) (*Result, error) {
	eng, err := NewEngine(grid, terrain, airports)
	if err != nil {
		return nil, err
	}
	return eng.Run(MaxDays(terrain))
}

// Simulate builds a grid for p, places airports and clouds using rng and
// propagates until every airport is covered. p is expected to be validated.
func Simulate(p Params, rng Source) (*Result, error) {
	if p.Height <= 0 || p.Width <= 0 || p.Airports <= 0 || p.Clouds <= 0 {
		return nil, fmt.Errorf("%w: all params must be positive, got %+v", ErrInvalidParams, p)
	}
	if err := p.CheckCapacity(); err != nil {
		return nil, err
	}

	grid := NewGrid(p.Terrain().Cells())
	if err := Place(grid, p.Airports, p.Clouds, rng); err != nil {
		return nil, err
	}

	return Propagate(grid, p.Terrain(), p.Airports)
}
