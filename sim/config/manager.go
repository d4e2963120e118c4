package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/cloudcover/sim/engine"
	"github.com/wricardo/cloudcover/sim/service"
)

// DefaultPreset is loaded as the default when present
const DefaultPreset = "classic"

var (
	ErrPresetNotFound = service.ErrPresetNotFound
	ErrInvalidPreset  = errors.New("invalid preset")
)

var log = logrus.WithField("component", "config")

// Manager handles preset loading and caching
type Manager struct {
	configDir     string
	preferred     string // preset tried first when resolving the default
	defaultID     string // empty when the built-in minimal preset is the default
	defaultPreset *service.Preset
	presets       map[string]*service.Preset
	mu            sync.RWMutex
}

// NewManager creates a new preset manager over configDir
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		preferred: DefaultPreset,
		presets:   make(map[string]*service.Preset),
	}
	m.applyDefault()

	return m, nil
}

// LoadPreset loads a preset by name
func (m *Manager) LoadPreset(name string) (*service.Preset, error) {
	name = strings.TrimSuffix(name, ".json")
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}

	m.mu.RLock()
	if preset, exists := m.presets[name]; exists {
		m.mu.RUnlock()
		return preset, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if preset, exists := m.presets[name]; exists {
		return preset, nil
	}

	preset, err := ReadPreset(filepath.Join(m.configDir, name+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
		}
		return nil, err
	}

	m.presets[name] = preset
	return preset, nil
}

// ListPresets returns information about all valid presets, sorted by file name
func (m *Manager) ListPresets() ([]*service.PresetInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	presets := []*service.PresetInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		preset, err := m.LoadPreset(id)
		if err != nil {
			log.WithField("file", entry.Name()).WithError(err).Debug("skipping preset")
			continue
		}

		m.mu.RLock()
		isDefault := id == m.defaultID
		m.mu.RUnlock()

		presets = append(presets, &service.PresetInfo{
			Filename:    entry.Name(),
			PresetID:    id,
			Name:        preset.Name,
			Description: preset.Description,
			Airports:    preset.Airports,
			Clouds:      preset.Clouds,
			Height:      preset.Height,
			Width:       preset.Width,
			Default:     isDefault,
		})
	}

	sort.Slice(presets, func(i, j int) bool {
		return presets[i].Filename < presets[j].Filename
	})
	return presets, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *service.Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPreset
}

// SetDefault sets the default preset by name. The choice survives
// RefreshCache as long as the file stays valid.
func (m *Manager) SetDefault(name string) error {
	name = strings.TrimSuffix(name, ".json")
	preset, err := m.LoadPreset(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.preferred = name
	m.defaultID = name
	m.defaultPreset = preset
	return nil
}

// RefreshCache drops cached presets and resolves the default again, picking
// up edits made to the files on disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.presets = make(map[string]*service.Preset)
	m.mu.Unlock()

	m.applyDefault()
	log.WithField("default", m.GetDefault().Name).Info("presets reloaded")
}

func (m *Manager) applyDefault() {
	m.mu.RLock()
	preferred := m.preferred
	m.mu.RUnlock()

	id, def := m.resolveDefault(preferred)

	m.mu.Lock()
	m.defaultID = id
	m.defaultPreset = def
	m.mu.Unlock()
}

// SavePreset validates a preset and writes it to disk
func (m *Manager) SavePreset(name string, preset *service.Preset) error {
	name = strings.TrimSuffix(name, ".json")
	if !validName(name) {
		return fmt.Errorf("%w: bad preset name %q", ErrInvalidPreset, name)
	}
	if err := ValidatePreset(preset); err != nil {
		return err
	}

	data, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}

	m.mu.Lock()
	m.presets[name] = preset
	m.mu.Unlock()

	log.WithField("preset", name).Info("preset saved")
	return nil
}

// resolveDefault picks the preferred preset, then the first valid preset,
// then the minimal built-in one
func (m *Manager) resolveDefault(preferred string) (string, *service.Preset) {
	if preset, err := m.LoadPreset(preferred); err == nil {
		return preferred, preset
	}

	presets, err := m.ListPresets()
	if err == nil && len(presets) > 0 {
		if preset, err := m.LoadPreset(presets[0].PresetID); err == nil {
			return presets[0].PresetID, preset
		}
	}

	return "", MinimalPreset()
}

// ReadPreset reads and validates one preset file
func ReadPreset(path string) (*service.Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var preset service.Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidPreset, filepath.Base(path), err)
	}

	if err := ValidatePreset(&preset); err != nil {
		return nil, err
	}
	return &preset, nil
}

// ValidatePreset checks that a preset describes a runnable simulation
func ValidatePreset(preset *service.Preset) error {
	if preset == nil {
		return fmt.Errorf("%w: preset is nil", ErrInvalidPreset)
	}
	if strings.TrimSpace(preset.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPreset)
	}

	params := preset.Params()
	if err := service.ValidateParams(params); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	if params.Airports+params.Clouds > params.Terrain().Cells() {
		return fmt.Errorf("%w: %d airports and %d clouds do not fit a %dx%d terrain",
			ErrInvalidPreset, params.Airports, params.Clouds, params.Height, params.Width)
	}
	return nil
}

// MinimalPreset is the smallest accepted simulation
func MinimalPreset() *service.Preset {
	return &service.Preset{
		Name:        "minimal",
		Description: "Smallest accepted terrain",
		Airports:    engine.MinAirports,
		Clouds:      engine.MinClouds,
		Height:      engine.MinHeight,
		Width:       engine.MinWidth,
	}
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
