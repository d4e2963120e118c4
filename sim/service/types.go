package service

import (
	"time"

	"github.com/wricardo/cloudcover/sim/engine"
)

// SimulationRequest describes one simulation to run. When Preset is set the
// preset's params (and seed, if any) are used and Params is ignored. When
// both are empty the default preset is used.
type SimulationRequest struct {
	engine.Params
	Seed   *uint64 `json:"seed,omitempty"`
	Preset string  `json:"preset,omitempty"`
}

// Summary condenses a result for listings and logs. Seed is encoded as a
// string so 64-bit seeds survive JavaScript clients.
type Summary struct {
	Days            int    `json:"days"`
	FirstAirportDay *int   `json:"first_airport_day"`
	AllAirportsDay  *int   `json:"all_airports_day"`
	Airports        int    `json:"airports"`
	Clouds          int    `json:"clouds"`
	CloudCellsStart int    `json:"cloud_cells_start"`
	CloudCellsFinal int    `json:"cloud_cells_final"`
	Seed            uint64 `json:"seed,string"`
}

// Run is a completed simulation kept by a RunStore
type Run struct {
	ID        string
	Params    engine.Params
	Seed      uint64
	Result    *engine.Result
	Summary   Summary
	CreatedAt time.Time
}

// RunInfo is the transport view of a run
type RunInfo struct {
	ID        string         `json:"id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Params    engine.Params  `json:"params"`
	Summary   Summary        `json:"summary"`
	Result    *engine.Result `json:"result,omitempty"`
}

// DayView is one day of a stored run together with its rendering
type DayView struct {
	RunID    string             `json:"run_id"`
	Day      int                `json:"day"`
	Days     int                `json:"days"`
	Terrain  engine.Terrain     `json:"terrain"`
	Snapshot engine.DaySnapshot `json:"snapshot"`
	Initial  []string           `json:"initial_rows"`
	Final    []string           `json:"final_rows"`
}

// Preset is a named set of simulation parameters loaded from JSON
type Preset struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Airports    int     `json:"airports"`
	Clouds      int     `json:"clouds"`
	Height      int     `json:"height"`
	Width       int     `json:"width"`
	Seed        *uint64 `json:"seed,omitempty"`
}

// Params returns the simulation params of the preset
func (p *Preset) Params() engine.Params {
	return engine.Params{
		Airports: p.Airports,
		Clouds:   p.Clouds,
		Height:   p.Height,
		Width:    p.Width,
	}
}

// PresetInfo provides information about a preset file
type PresetInfo struct {
	Filename    string `json:"filename"`
	PresetID    string `json:"preset_id"` // The identifier to use when running a preset
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Airports    int    `json:"airports"`
	Clouds      int    `json:"clouds"`
	Height      int    `json:"height"`
	Width       int    `json:"width"`
	Default     bool   `json:"default"`
}

// ListOptions configures run listings
type ListOptions struct {
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc" by creation time
}
