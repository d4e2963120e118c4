package runs

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/cloudcover/sim/engine"
	"github.com/wricardo/cloudcover/sim/service"
)

// DefaultMaxRuns bounds the registry when no other limit is given
const DefaultMaxRuns = 256

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrInvalidRunID = errors.New("invalid run ID")
)

// Manager stores runs keyed by lower-cased ID
type Manager struct {
	runs    map[string]*service.Run
	maxRuns int
	now     func() time.Time
	mu      sync.RWMutex
}

// NewManager creates a run manager holding at most maxRuns runs.
// A non-positive maxRuns means DefaultMaxRuns.
func NewManager(maxRuns int) *Manager {
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	return &Manager{
		runs:    make(map[string]*service.Run),
		maxRuns: maxRuns,
		now:     time.Now,
	}
}

// Create stores a finished run under a fresh ID
func (m *Manager) Create(params engine.Params, seed uint64, result *engine.Result, summary service.Summary) (*service.Run, error) {
	if result == nil {
		return nil, errors.New("nil result")
	}

	run := &service.Run{
		ID:        uuid.NewString(),
		Params:    params,
		Seed:      seed,
		Result:    result,
		Summary:   summary,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.runs) >= m.maxRuns {
		m.evictOldest()
	}
	m.runs[strings.ToLower(run.ID)] = run

	return run, nil
}

// Get retrieves a run by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Run, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidRunID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	run, exists := m.runs[strings.ToLower(id)]
	if !exists {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// List returns all stored runs in no particular order
func (m *Manager) List() []*service.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Run, 0, len(m.runs))
	for _, run := range m.runs {
		result = append(result, run)
	}
	return result
}

// Delete removes a run
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.runs[key]; !exists {
		return ErrRunNotFound
	}
	delete(m.runs, key)
	return nil
}

// CleanupExpired removes runs created more than maxAge ago
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0

	for id, run := range m.runs {
		if run.CreatedAt.Before(cutoff) {
			delete(m.runs, id)
			removed++
		}
	}

	return removed
}

// Count returns the number of stored runs
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

// evictOldest drops the run with the earliest creation time. Caller holds mu.
func (m *Manager) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, run := range m.runs {
		if oldestID == "" || run.CreatedAt.Before(oldest) {
			oldestID = id
			oldest = run.CreatedAt
		}
	}
	if oldestID != "" {
		delete(m.runs, oldestID)
	}
}
