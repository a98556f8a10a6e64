package manager

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ProgressFunc receives download progress as a percentage in [0, 100].
type ProgressFunc func(percent float64)

// Manager holds at most one live Handle for its Asset. It is safe for
// concurrent use.
type Manager struct {
	mu       sync.RWMutex
	state    State
	handle   Handle
	progress float64
	err      string
	loads    uint64
	loadedAt time.Time

	// ensureMu serializes the check-download-load sequence.
	ensureMu sync.Mutex

	asset            Asset
	runtime          Runtime
	params           ContextParams
	client           *http.Client
	progressInterval time.Duration

	genCh   chan struct{} // size 1: single in-flight generation
	queueCh chan struct{} // buffered: queue slots
	maxWait time.Duration

	publisher EventPublisher
	log       zerolog.Logger
	metrics   *metrics
	startTime time.Time
}

// Ready reports whether a handle is loaded.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle != nil
}

// Asset returns the asset this manager serves.
func (m *Manager) Asset() Asset { return m.asset }

// Params returns the context parameters used at load time.
func (m *Manager) Params() ContextParams { return m.params }

func (m *Manager) setState(s State, errMsg string) {
	m.mu.Lock()
	m.state = s
	m.err = errMsg
	m.mu.Unlock()
	m.metrics.setState(s)
}
