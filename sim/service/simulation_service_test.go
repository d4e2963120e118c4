package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/cloudcover/sim/engine"
	"github.com/wricardo/cloudcover/sim/service"
)

// MockRunStore implements service.RunStore for testing
type MockRunStore struct {
	runs  map[string]*service.Run
	clock time.Time
}

func NewMockRunStore() *MockRunStore {
	return &MockRunStore{
		runs:  make(map[string]*service.Run),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *MockRunStore) Create(params engine.Params, seed uint64, result *engine.Result, summary service.Summary) (*service.Run, error) {
	m.clock = m.clock.Add(time.Minute)
	run := &service.Run{
		ID:        fmt.Sprintf("run-%d", len(m.runs)+1),
		Params:    params,
		Seed:      seed,
		Result:    result,
		Summary:   summary,
		CreatedAt: m.clock,
	}
	m.runs[run.ID] = run
	return run, nil
}

func (m *MockRunStore) Get(id string) (*service.Run, error) {
	run, exists := m.runs[id]
	if !exists {
		return nil, errors.New("not found")
	}
	return run, nil
}

func (m *MockRunStore) List() []*service.Run {
	result := make([]*service.Run, 0, len(m.runs))
	for _, run := range m.runs {
		result = append(result, run)
	}
	return result
}

func (m *MockRunStore) Delete(id string) error {
	if _, exists := m.runs[id]; !exists {
		return errors.New("not found")
	}
	delete(m.runs, id)
	return nil
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	presets   map[string]*service.Preset
	defaultID string
}

func NewMockConfigManager() *MockConfigManager {
	seed := uint64(99)
	return &MockConfigManager{
		presets: map[string]*service.Preset{
			"classic": {Name: "Classic", Airports: 3, Clouds: 4, Height: 10, Width: 10},
			"seeded":  {Name: "Seeded", Airports: 5, Clouds: 6, Height: 12, Width: 11, Seed: &seed},
		},
		defaultID: "classic",
	}
}

func (m *MockConfigManager) LoadPreset(name string) (*service.Preset, error) {
	preset, exists := m.presets[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", service.ErrPresetNotFound, name)
	}
	return preset, nil
}

func (m *MockConfigManager) ListPresets() ([]*service.PresetInfo, error) {
	var infos []*service.PresetInfo
	for id, p := range m.presets {
		infos = append(infos, &service.PresetInfo{PresetID: id, Name: p.Name})
	}
	return infos, nil
}

func (m *MockConfigManager) GetDefault() *service.Preset {
	return m.presets[m.defaultID]
}

func (m *MockConfigManager) SavePreset(name string, preset *service.Preset) error {
	m.presets[name] = preset
	return nil
}

// countingSeeds hands out a fixed seed and counts how often it was asked
type countingSeeds struct {
	seed  uint64
	calls int
}

func (c *countingSeeds) next() uint64 {
	c.calls++
	return c.seed
}

func newTestService() (service.SimulationService, *MockRunStore, *countingSeeds) {
	store := NewMockRunStore()
	seeds := &countingSeeds{seed: 1234}
	svc := service.NewSimulationService(store, NewMockConfigManager(), service.WithSeedSource(seeds.next))
	return svc, store, seeds
}

func seedPtr(v uint64) *uint64 { return &v }

var classic = engine.Params{Airports: 3, Clouds: 4, Height: 10, Width: 10}

func TestSimulate(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit seed matches the engine", func(t *testing.T) {
		svc, store, seeds := newTestService()

		info, err := svc.Simulate(ctx, service.SimulationRequest{Params: classic, Seed: seedPtr(7)})
		require.NoError(t, err)

		want, err := engine.Simulate(classic, engine.NewSource(7))
		require.NoError(t, err)

		assert.Equal(t, want, info.Result)
		assert.Equal(t, uint64(7), info.Summary.Seed)
		assert.Equal(t, 0, seeds.calls)
		assert.Empty(t, store.runs, "Simulate must not store the run")
		assert.Empty(t, info.ID)
	})

	t.Run("fresh seed when none given", func(t *testing.T) {
		svc, _, seeds := newTestService()

		info, err := svc.Simulate(ctx, service.SimulationRequest{Params: classic})
		require.NoError(t, err)
		assert.Equal(t, 1, seeds.calls)
		assert.Equal(t, uint64(1234), info.Summary.Seed)
	})

	t.Run("summary", func(t *testing.T) {
		svc, _, _ := newTestService()

		info, err := svc.Simulate(ctx, service.SimulationRequest{Params: classic, Seed: seedPtr(3)})
		require.NoError(t, err)

		s := info.Summary
		assert.Equal(t, info.Result.Days(), s.Days)
		require.NotNil(t, s.FirstAirportDay)
		require.NotNil(t, s.AllAirportsDay)
		assert.Equal(t, s.Days, *s.AllAirportsDay)
		assert.LessOrEqual(t, *s.FirstAirportDay, *s.AllAirportsDay)
		assert.Equal(t, 3, s.Airports)
		assert.Equal(t, 4, s.Clouds)
		assert.GreaterOrEqual(t, s.CloudCellsStart, 1)
		assert.LessOrEqual(t, s.CloudCellsStart, 4)
		assert.GreaterOrEqual(t, s.CloudCellsFinal, s.CloudCellsStart)
		assert.LessOrEqual(t, s.CloudCellsFinal, 100)
	})

	t.Run("validation happens before the engine", func(t *testing.T) {
		tests := []struct {
			params engine.Params
			msg    string
		}{
			{engine.Params{Airports: 2, Clouds: 4, Height: 10, Width: 10}, service.MsgInvalidAirports},
			{engine.Params{Airports: 3, Clouds: 3, Height: 10, Width: 10}, service.MsgInvalidClouds},
			{engine.Params{Airports: 3, Clouds: 4, Height: 9, Width: 10}, service.MsgInvalidHeight},
			{engine.Params{Airports: 3, Clouds: 4, Height: 10, Width: 9}, service.MsgInvalidWidth},
			{engine.Params{Airports: 0, Clouds: 0, Height: 0, Width: 0}, service.MsgInvalidAirports},
		}
		for _, tt := range tests {
			svc, _, seeds := newTestService()
			_, err := svc.Simulate(ctx, service.SimulationRequest{Params: tt.params})
			require.Error(t, err)
			assert.Equal(t, tt.msg, err.Error())
			assert.True(t, service.IsValidationError(err))
			assert.Equal(t, 0, seeds.calls)
		}
	})

	t.Run("degenerate terrain", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.Simulate(ctx, service.SimulationRequest{
			Params: engine.Params{Airports: 100, Clouds: 4, Height: 10, Width: 10},
		})
		assert.ErrorIs(t, err, engine.ErrDegenerateSimulation)
		assert.False(t, service.IsValidationError(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		svc, _, seeds := newTestService()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := svc.Simulate(cctx, service.SimulationRequest{Params: classic})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, seeds.calls)
	})

	t.Run("preset", func(t *testing.T) {
		svc, _, seeds := newTestService()

		info, err := svc.Simulate(ctx, service.SimulationRequest{Preset: "seeded"})
		require.NoError(t, err)
		assert.Equal(t, engine.Params{Airports: 5, Clouds: 6, Height: 12, Width: 11}, info.Params)
		assert.Equal(t, uint64(99), info.Summary.Seed)
		assert.Equal(t, 0, seeds.calls)

		info, err = svc.Simulate(ctx, service.SimulationRequest{Preset: "seeded", Seed: seedPtr(5)})
		require.NoError(t, err)
		assert.Equal(t, uint64(5), info.Summary.Seed, "request seed overrides preset seed")

		_, err = svc.Simulate(ctx, service.SimulationRequest{Preset: "missing"})
		assert.ErrorIs(t, err, service.ErrPresetNotFound)
	})

	t.Run("default preset for an empty request", func(t *testing.T) {
		svc, _, seeds := newTestService()

		info, err := svc.Simulate(ctx, service.SimulationRequest{})
		require.NoError(t, err)
		assert.Equal(t, classic, info.Params)
		assert.Equal(t, 1, seeds.calls)

		presets := NewMockConfigManager()
		presets.defaultID = "seeded"
		svc = service.NewSimulationService(NewMockRunStore(), presets)

		info, err = svc.Simulate(ctx, service.SimulationRequest{})
		require.NoError(t, err)
		assert.Equal(t, 5, info.Params.Airports)
		assert.Equal(t, uint64(99), info.Summary.Seed, "default preset seed is used")

		info, err = svc.Simulate(ctx, service.SimulationRequest{Seed: seedPtr(8)})
		require.NoError(t, err)
		assert.Equal(t, uint64(8), info.Summary.Seed)
	})

	t.Run("partial params are not replaced by the default", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.Simulate(ctx, service.SimulationRequest{Params: engine.Params{Airports: 3}})
		assert.EqualError(t, err, service.MsgInvalidClouds)
	})
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	first, err := svc.CreateRun(ctx, service.SimulationRequest{Params: classic, Seed: seedPtr(1)})
	require.NoError(t, err)
	second, err := svc.CreateRun(ctx, service.SimulationRequest{Params: classic, Seed: seedPtr(2)})
	require.NoError(t, err)

	assert.Equal(t, "run-1", first.ID)
	assert.NotNil(t, first.Result)
	assert.Len(t, store.runs, 2)

	t.Run("get", func(t *testing.T) {
		got, err := svc.GetRun(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, second.Result, got.Result)

		_, err = svc.GetRun(ctx, "missing")
		assert.ErrorIs(t, err, service.ErrRunNotFound)
	})

	t.Run("list newest first without results", func(t *testing.T) {
		runs, err := svc.ListRuns(ctx, service.ListOptions{})
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, second.ID, runs[0].ID)
		assert.Equal(t, first.ID, runs[1].ID)
		assert.Nil(t, runs[0].Result)
	})

	t.Run("list ascending with limit", func(t *testing.T) {
		runs, err := svc.ListRuns(ctx, service.ListOptions{Order: "asc", Limit: 1})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, first.ID, runs[0].ID)
	})

	t.Run("day view", func(t *testing.T) {
		view, err := svc.GetDay(ctx, first.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, view.Day)
		assert.Equal(t, first.Result.Days(), view.Days)
		assert.Len(t, view.Initial, 10)
		assert.Len(t, view.Final, 10)
		for _, row := range view.Initial {
			assert.Len(t, row, 10)
		}
		assert.Equal(t, first.Result.History[0], view.Snapshot)

		_, err = svc.GetDay(ctx, first.ID, 0)
		assert.ErrorIs(t, err, service.ErrDayOutOfRange)
		_, err = svc.GetDay(ctx, first.ID, first.Result.Days()+1)
		assert.ErrorIs(t, err, service.ErrDayOutOfRange)
		_, err = svc.GetDay(ctx, "missing", 1)
		assert.ErrorIs(t, err, service.ErrRunNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.DeleteRun(ctx, first.ID))
		assert.ErrorIs(t, svc.DeleteRun(ctx, first.ID), service.ErrRunNotFound)

		_, err := svc.GetRun(ctx, first.ID)
		assert.ErrorIs(t, err, service.ErrRunNotFound)
	})

	t.Run("invalid request is not stored", func(t *testing.T) {
		before := len(store.runs)
		_, err := svc.CreateRun(ctx, service.SimulationRequest{Params: engine.Params{Airports: 3}})
		assert.Error(t, err)
		assert.Len(t, store.runs, before)
	})
}

func TestWithoutStorage(t *testing.T) {
	ctx := context.Background()
	svc := service.NewSimulationService(nil, nil)

	_, err := svc.CreateRun(ctx, service.SimulationRequest{Params: classic})
	assert.Error(t, err)

	runs, err := svc.ListRuns(ctx, service.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = svc.GetRun(ctx, "x")
	assert.ErrorIs(t, err, service.ErrRunNotFound)

	_, err = svc.LoadPreset(ctx, "classic")
	assert.ErrorIs(t, err, service.ErrPresetNotFound)

	presets, err := svc.ListPresets(ctx)
	require.NoError(t, err)
	assert.Empty(t, presets)

	info, err := svc.Simulate(ctx, service.SimulationRequest{Params: classic})
	require.NoError(t, err)
	assert.NotNil(t, info.Result)

	_, err = svc.Simulate(ctx, service.SimulationRequest{})
	assert.True(t, service.IsValidationError(err), "no default preset without a config manager")
}

func TestPresets(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	presets, err := svc.ListPresets(ctx)
	require.NoError(t, err)
	assert.Len(t, presets, 2)

	p := &service.Preset{Name: "New", Airports: 4, Clouds: 4, Height: 10, Width: 10}
	require.NoError(t, svc.SavePreset(ctx, "new", p))

	loaded, err := svc.LoadPreset(ctx, "new")
	require.NoError(t, err)
	assert.Same(t, p, loaded)
}
