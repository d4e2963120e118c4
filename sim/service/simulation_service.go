package service

import (
	"context"

	"github.com/wricardo/cloudcover/sim/engine"
)

// SimulationService defines all simulation operations
type SimulationService interface {
	// Simulate runs a simulation and returns it without storing it
	Simulate(ctx context.Context, req SimulationRequest) (*RunInfo, error)

	// Stored runs
	CreateRun(ctx context.Context, req SimulationRequest) (*RunInfo, error)
	GetRun(ctx context.Context, runID string) (*RunInfo, error)
	ListRuns(ctx context.Context, opts ListOptions) ([]*RunInfo, error)
	DeleteRun(ctx context.Context, runID string) error
	GetDay(ctx context.Context, runID string, day int) (*DayView, error)

	// Presets
	ListPresets(ctx context.Context) ([]*PresetInfo, error)
	LoadPreset(ctx context.Context, name string) (*Preset, error)
	SavePreset(ctx context.Context, name string, preset *Preset) error
}

// RunStore defines run storage operations
type RunStore interface {
	Create(params engine.Params, seed uint64, result *engine.Result, summary Summary) (*Run, error)
	Get(id string) (*Run, error)
	List() []*Run
	Delete(id string) error
}

// ConfigManager handles preset loading. GetDefault must never return nil.
type ConfigManager interface {
	LoadPreset(name string) (*Preset, error)
	ListPresets() ([]*PresetInfo, error)
	GetDefault() *Preset
	SavePreset(name string, preset *Preset) error
}
