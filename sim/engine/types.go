package engine

// CellKind represents what occupies a grid cell
type CellKind string

const (
	Empty   CellKind = "empty"
	Airport CellKind = "airport"
	Cloud   CellKind = "cloud"

	// Input minimums
	MinAirports = 3
	MinClouds   = 4
	MinHeight   = 10
	MinWidth    = 10

	// DrawsPerCell bounds the random draws spent placing a single entity,
	// scaled by the number of cells in the grid.
	DrawsPerCell = 64
)

// Cell represents a single terrain cell
type Cell struct {
	Kind     CellKind `json:"block"`
	NewCloud bool     `json:"newCloud"`
}

// Terrain holds the grid dimensions
type Terrain struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

// Cells returns the number of cells covered by the terrain
func (t Terrain) Cells() int {
	return t.Height * t.Width
}

// Params are the four inputs of a simulation run
type Params struct {
	Airports int `json:"airports"`
	Clouds   int `json:"clouds"`
	Height   int `json:"height"`
	Width    int `json:"width"`
}

// Terrain returns the terrain described by the params
func (p Params) Terrain() Terrain {
	return Terrain{Height: p.Height, Width: p.Width}
}

// Arrival records whether and on which day clouds reached airports.
// Day is nil until Reached is true.
type Arrival struct {
	Reached bool `json:"didArrive"`
	Day     *int `json:"day"`
}

// DayOr returns the arrival day, or fallback when not reached
func (a Arrival) DayOr(fallback int) int {
	if !a.Reached || a.Day == nil {
		return fallback
	}
	return *a.Day
}

func (a *Arrival) mark(day int) {
	d := day
	a.Reached = true
	a.Day = &d
}

// DayGrids holds the grid before and after a day of propagation
type DayGrids struct {
	Initial Grid `json:"initial"`
	Final   Grid `json:"final"`
}

// DaySnapshot is one entry of the simulation history
type DaySnapshot struct {
	Day  int      `json:"day"`
	Grid DayGrids `json:"grid"`
}

// Result is the complete outcome of a simulation run
type Result struct {
	History      []DaySnapshot `json:"history"`
	FirstAirport Arrival       `json:"arrivedFirstAirport"`
	AllAirports  Arrival       `json:"arrivedAllTheAirports"`
	Terrain      Terrain       `json:"terrain"`
}

// Days returns the number of simulated days
func (r *Result) Days() int {
	return len(r.History)
}

// Snapshot returns the snapshot for a 1-based day
func (r *Result) Snapshot(day int) (DaySnapshot, bool) {
	if day < 1 || day > len(r.History) {
		return DaySnapshot{}, false
	}
	return r.History[day-1], true
}
