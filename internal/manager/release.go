package manager

import (
	"fmt"

	"sage/internal/common/fsutil"
)

// Release frees the live handle, if any. Errors from the runtime are logged
// and otherwise ignored; the handle is dropped either way.
func (m *Manager) Release() {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	if h != nil {
		m.state = StateAbsent
		m.err = ""
	}
	m.mu.Unlock()
	if h == nil {
		return
	}
	m.metrics.setState(StateAbsent)
	if err := h.Release(); err != nil {
		m.log.Warn().Str("event", "release_failed").Err(err).Msg("manager")
	}
	m.publish("release", nil)
	m.log.Info().Str("event", "release").Msg("manager")
}

// ClearCache releases the handle and deletes the cached model file, so the
// next EnsureReady downloads it again.
func (m *Manager) ClearCache() error {
	m.ensureMu.Lock()
	defer m.ensureMu.Unlock()
	m.Release()
	path := m.asset.Path()
	for _, p := range []string{path, path + ".part"} {
		if err := fsutil.RemoveIfExists(p); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	m.setState(StateAbsent, "")
	m.publish("cache_cleared", map[string]any{"path": path})
	m.log.Info().Str("event", "cache_cleared").Str("path", path).Msg("manager")
	return nil
}
