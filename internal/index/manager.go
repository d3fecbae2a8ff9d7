package index

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Manager owns the live index shared by all requests. Queries read an atomic
// snapshot without locking; loading or replacing the index is serialized
// behind a single-writer mutex so two concurrent reloads cannot interleave.
// In-flight queries against the previous snapshot complete unaffected.
type Manager struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex // serializes Load/Replace
	current atomic.Pointer[Index]
	loadErr atomic.Pointer[error]
}

// NewManager creates a manager for the index persisted at path. No index is
// loaded yet; call Load.
func NewManager(path string, logger *zap.Logger) *Manager {
	return &Manager{path: path, logger: logger}
}

// Load reads the persisted index and makes it the current snapshot.
// Concurrent calls are serialized; the error of the last attempt is retained
// for Status.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ix, err := Load(m.path)
	if err != nil {
		m.loadErr.Store(&err)
		return err
	}

	m.current.Store(ix)
	m.loadErr.Store(nil)
	m.logger.Info("index loaded",
		zap.String("path", m.path),
		zap.Int("entries", ix.Len()),
		zap.String("embedder", ix.Identity().String()),
	)
	return nil
}

// Replace swaps in a freshly built index (e.g. right after ingestion).
func (m *Manager) Replace(ix *Index) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Store(ix)
	m.loadErr.Store(nil)
}

// Current returns the live index snapshot. ok is false when nothing has been
// loaded yet or the last load failed.
func (m *Manager) Current() (*Index, bool) {
	ix := m.current.Load()
	return ix, ix != nil
}

// Status reports whether an index is loaded, its entry count, and the error
// of the last failed load attempt (nil when none was attempted or the last
// attempt succeeded). "Never loaded" and "load failed" are thus
// distinguishable.
func (m *Manager) Status() (loaded bool, entries int, lastErr error) {
	if ix := m.current.Load(); ix != nil {
		return true, ix.Len(), nil
	}
	if errp := m.loadErr.Load(); errp != nil && *errp != nil {
		return false, 0, *errp
	}
	return false, 0, nil
}

// Path returns the configured index location.
func (m *Manager) Path() string { return m.path }
