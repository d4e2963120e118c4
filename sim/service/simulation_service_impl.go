package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/cloudcover/sim/engine"
)

var log = logrus.WithField("component", "service")

// simulationServiceImpl implements the SimulationService interface
type simulationServiceImpl struct {
	runs    RunStore
	presets ConfigManager
	seeds   func() uint64
	now     func() time.Time
}

// Option customizes the service
type Option func(*simulationServiceImpl)

// WithSeedSource replaces the generator used for runs that carry no seed
func WithSeedSource(fn func() uint64) Option {
	return func(s *simulationServiceImpl) {
		s.seeds = fn
	}
}

// NewSimulationService creates a new simulation service instance.
// presets may be nil, in which case preset requests fail.
func NewSimulationService(runs RunStore, presets ConfigManager, opts ...Option) SimulationService {
	s := &simulationServiceImpl{
		runs:    runs,
		presets: presets,
		seeds:   rand.Uint64,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate runs a simulation without storing it
func (s *simulationServiceImpl) Simulate(ctx context.Context, req SimulationRequest) (*RunInfo, error) {
	params, seed, result, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}

	return &RunInfo{
		CreatedAt: s.now(),
		Params:    params,
		Summary:   summarize(params, seed, result),
		Result:    result,
	}, nil
}

// CreateRun runs a simulation and keeps it in the run store
func (s *simulationServiceImpl) CreateRun(ctx context.Context, req SimulationRequest) (*RunInfo, error) {
	if s.runs == nil {
		return nil, errors.New("run storage is not configured")
	}

	params, seed, result, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}

	run, err := s.runs.Create(params, seed, result, summarize(params, seed, result))
	if err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}

	log.WithFields(logrus.Fields{
		"run_id": run.ID,
		"days":   run.Summary.Days,
	}).Debug("run stored")

	return runInfo(run, true), nil
}

// GetRun returns a stored run with its full result
func (s *simulationServiceImpl) GetRun(ctx context.Context, runID string) (*RunInfo, error) {
	run, err := s.getRun(runID)
	if err != nil {
		return nil, err
	}
	return runInfo(run, true), nil
}

// ListRuns returns stored runs without their histories
func (s *simulationServiceImpl) ListRuns(ctx context.Context, opts ListOptions) ([]*RunInfo, error) {
	if s.runs == nil {
		return []*RunInfo{}, nil
	}

	runs := s.runs.List()
	sort.Slice(runs, func(i, j int) bool {
		if opts.Order == "asc" {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if opts.Limit > 0 && opts.Limit < len(runs) {
		runs = runs[:opts.Limit]
	}

	result := make([]*RunInfo, 0, len(runs))
	for _, run := range runs {
		result = append(result, runInfo(run, false))
	}
	return result, nil
}

// DeleteRun removes a stored run
func (s *simulationServiceImpl) DeleteRun(ctx context.Context, runID string) error {
	if s.runs == nil {
		return ErrRunNotFound
	}
	if err := s.runs.Delete(runID); err != nil {
		return fmt.Errorf("%w: %v", ErrRunNotFound, err)
	}
	return nil
}

// GetDay returns one day of a stored run
func (s *simulationServiceImpl) GetDay(ctx context.Context, runID string, day int) (*DayView, error) {
	run, err := s.getRun(runID)
	if err != nil {
		return nil, err
	}

	snap, ok := run.Result.Snapshot(day)
	if !ok {
		return nil, fmt.Errorf("%w: run %s has days 1..%d, got %d", ErrDayOutOfRange, runID, run.Result.Days(), day)
	}

	width := run.Result.Terrain.Width
	return &DayView{
		RunID:    run.ID,
		Day:      day,
		Days:     run.Result.Days(),
		Terrain:  run.Result.Terrain,
		Snapshot: snap,
		Initial:  engine.RenderRows(snap.Grid.Initial, width),
		Final:    engine.RenderRows(snap.Grid.Final, width),
	}, nil
}

// ListPresets returns the available presets
func (s *simulationServiceImpl) ListPresets(ctx context.Context) ([]*PresetInfo, error) {
	if s.presets == nil {
		return []*PresetInfo{}, nil
	}
	return s.presets.ListPresets()
}

// LoadPreset loads a preset by name
func (s *simulationServiceImpl) LoadPreset(ctx context.Context, name string) (*Preset, error) {
	if s.presets == nil {
		return nil, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	return s.presets.LoadPreset(name)
}

// SavePreset stores a preset
func (s *simulationServiceImpl) SavePreset(ctx context.Context, name string, preset *Preset) error {
	if s.presets == nil {
		return errors.New("preset storage is not configured")
	}
	return s.presets.SavePreset(name, preset)
}

// run resolves the request, validates it and runs the engine with a private
// random source. A request with neither params nor a preset runs the default
// preset.
func (s *simulationServiceImpl) run(ctx context.Context, req SimulationRequest) (engine.Params, uint64, *engine.Result, error) {
	params := req.Params
	seedPtr := req.Seed

	var preset *Preset
	switch {
	case req.Preset != "":
		p, err := s.LoadPreset(ctx, req.Preset)
		if err != nil {
			return engine.Params{}, 0, nil, err
		}
		preset = p
	case params == (engine.Params{}) && s.presets != nil:
		preset = s.presets.GetDefault()
	}
	if preset != nil {
		params = preset.Params()
		if seedPtr == nil {
			seedPtr = preset.Seed
		}
	}

	if err := ValidateParams(params); err != nil {
		return engine.Params{}, 0, nil, err
	}

	// No cancellation once the engine starts
	if err := ctx.Err(); err != nil {
		return engine.Params{}, 0, nil, err
	}

	seed := s.seeds()
	if seedPtr != nil {
		seed = *seedPtr
	}

	start := time.Now()
	result, err := engine.Simulate(params, engine.NewSource(seed))
	if err != nil {
		log.WithFields(logrus.Fields{
			"airports": params.Airports,
			"clouds":   params.Clouds,
			"height":   params.Height,
			"width":    params.Width,
			"seed":     seed,
		}).WithError(err).Warn("simulation failed")
		return engine.Params{}, 0, nil, err
	}

	log.WithFields(logrus.Fields{
		"airports": params.Airports,
		"clouds":   params.Clouds,
		"height":   params.Height,
		"width":    params.Width,
		"seed":     seed,
		"days":     result.Days(),
		"elapsed":  time.Since(start),
	}).Info("simulation finished")

	return params, seed, result, nil
}

func (s *simulationServiceImpl) getRun(runID string) (*Run, error) {
	if s.runs == nil {
		return nil, ErrRunNotFound
	}
	run, err := s.runs.Get(runID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

// summarize condenses a result
func summarize(params engine.Params, seed uint64, result *engine.Result) Summary {
	summary := Summary{
		Days:            result.Days(),
		FirstAirportDay: result.FirstAirport.Day,
		AllAirportsDay:  result.AllAirports.Day,
		Airports:        params.Airports,
		Clouds:          params.Clouds,
		Seed:            seed,
	}
	if len(result.History) > 0 {
		first := result.History[0].Grid.Initial
		last := result.History[len(result.History)-1].Grid.Final
		summary.CloudCellsStart = engine.CountKind(first, engine.Cloud)
		summary.CloudCellsFinal = engine.CountKind(last, engine.Cloud)
	}
	return summary
}

func runInfo(run *Run, withResult bool) *RunInfo {
	info := &RunInfo{
		ID:        run.ID,
		CreatedAt: run.CreatedAt,
		Params:    run.Params,
		Summary:   run.Summary,
	}
	if withResult {
		info.Result = run.Result
	}
	return info
}
