package manager

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"sage/internal/common/fsutil"
)

// EnsureReady returns the live handle, creating it if needed: a cached asset
// smaller than MinBytes is deleted, a missing asset is downloaded, and the
// runtime is initialized. An existing handle is returned without any I/O.
// Calls are serialized, so concurrent callers share a single download.
func (m *Manager) EnsureReady(ctx context.Context, progress ProgressFunc) (Handle, error) {
	if h := m.current(); h != nil {
		return h, nil
	}
	m.ensureMu.Lock()
	defer m.ensureMu.Unlock()
	if h := m.current(); h != nil {
		return h, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := m.fetch(ctx, progress)
	if err != nil {
		return nil, err
	}
	return m.load(ctx, path)
}

// Fetch makes sure a valid asset is on disk without initializing the
// runtime. It returns the asset path.
func (m *Manager) Fetch(ctx context.Context, progress ProgressFunc) (string, error) {
	m.ensureMu.Lock()
	defer m.ensureMu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := m.fetch(ctx, progress)
	if err != nil {
		return "", err
	}
	if m.current() == nil {
		m.setState(StateAbsent, "")
	}
	return path, nil
}

// fetch validates the cached asset and downloads it when missing or
// undersized. Callers hold ensureMu.
func (m *Manager) fetch(ctx context.Context, progress ProgressFunc) (string, error) {
	a := m.asset
	path := a.Path()
	m.publish("ensure_start", map[string]any{"path": path})
	m.log.Debug().Str("event", "ensure_start").Str("path", path).Msg("manager")

	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", m.fail(fmt.Errorf("create model dir: %w", err))
	}
	size, ok, err := fsutil.FileSize(path)
	if err != nil {
		return "", m.fail(fmt.Errorf("stat model: %w", err))
	}
	if ok && !a.Valid(size) {
		m.publish("asset_invalid", map[string]any{"size": size})
		m.log.Warn().Str("event", "asset_invalid").Str("size", humanize.IBytes(uint64(size))).Msg("manager")
		if err := fsutil.RemoveIfExists(path); err != nil {
			return "", m.fail(fmt.Errorf("remove corrupt model: %w", err))
		}
		ok = false
	}
	if !ok {
		if err := m.download(ctx, progress); err != nil {
			return "", m.fail(err)
		}
		size, ok, err = fsutil.FileSize(path)
		if err != nil {
			return "", m.fail(fmt.Errorf("stat model: %w", err))
		}
		if !ok || !a.Valid(size) {
			_ = fsutil.RemoveIfExists(path)
			return "", m.fail(DownloadIncomplete{Got: size, Want: a.NominalBytes})
		}
	}

	return path, nil
}

// Warmup is EnsureReady for callers that only want the side effect.
func (m *Manager) Warmup(ctx context.Context, progress ProgressFunc) error {
	_, err := m.EnsureReady(ctx, progress)
	return err
}

func (m *Manager) load(ctx context.Context, path string) (Handle, error) {
	m.setState(StateLoading, "")
	m.publish("load_start", map[string]any{"path": path})
	m.log.Info().Str("event", "load_start").Str("path", path).Int("n_ctx", m.params.ContextSize).Int("n_threads", m.params.Threads).Msg("manager")

	start := time.Now()
	h, err := m.runtime.Load(ctx, path, m.params)
	took := time.Since(start)
	m.metrics.loadDuration.Observe(took.Seconds())
	if err != nil {
		m.metrics.loads.WithLabelValues("error").Inc()
		m.publish("load_failed", map[string]any{"error": err.Error()})
		if IsDependencyUnavailable(err) || ctx.Err() != nil {
			return nil, m.fail(err)
		}
		return nil, m.fail(InitializationFailure{Err: err})
	}
	m.metrics.loads.WithLabelValues("ok").Inc()

	m.mu.Lock()
	m.handle = h
	m.state = StateReady
	m.err = ""
	m.progress = 0
	m.loads++
	m.loadedAt = time.Now()
	m.mu.Unlock()
	m.metrics.setState(StateReady)
	m.publish("load_ready", map[string]any{"took_ms": took.Milliseconds()})
	m.log.Info().Str("event", "load_ready").Dur("took", took).Msg("manager")
	return h, nil
}

// fail records err as the manager's last error and returns it.
func (m *Manager) fail(err error) error {
	m.setState(StateError, err.Error())
	m.log.Error().Str("event", "ensure_failed").Err(err).Msg("manager")
	return err
}

func (m *Manager) current() Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle
}
