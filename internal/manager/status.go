package manager

import (
	"time"

	"sage/internal/common/fsutil"
	"sage/pkg/types"
)

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		State:     m.state,
		Asset:     m.asset,
		Progress:  m.progress,
		Err:       m.err,
		Loads:     m.loads,
		QueueLen:  len(m.queueCh),
		Inflight:  len(m.genCh),
		LoadedAt:  m.loadedAt,
		StartedAt: m.startTime,
	}
}

// Status builds the /status payload.
func (m *Manager) Status() types.StatusResponse {
	s := m.Snapshot()
	size, cached, _ := fsutil.FileSize(s.Asset.Path())
	resp := types.StatusResponse{
		State:            string(s.State),
		Model:            s.Asset.Filename,
		Path:             s.Asset.Path(),
		Cached:           cached && s.Asset.Valid(size),
		SizeBytes:        size,
		DownloadProgress: s.Progress,
		LastError:        s.Err,
		LoadsTotal:       s.Loads,
		QueueLen:         s.QueueLen,
		Inflight:         s.Inflight,
		MaxQueueDepth:    cap(m.queueCh),
		UptimeSeconds:    int64(time.Since(s.StartedAt).Seconds()),
		ServerTimeUnix:   time.Now().Unix(),
	}
	if !s.LoadedAt.IsZero() {
		resp.LoadedAtUnix = s.LoadedAt.Unix()
	}
	return resp
}
