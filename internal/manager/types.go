package manager

import "time"

// State is the lifecycle state of the manager's single model handle.
type State string

const (
	StateAbsent      State = "absent"
	StateDownloading State = "downloading"
	StateLoading     State = "loading"
	StateReady       State = "ready"
	StateError       State = "error"
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State     State
	Asset     Asset
	Progress  float64
	Err       string
	Loads     uint64
	QueueLen  int
	Inflight  int
	LoadedAt  time.Time
	StartedAt time.Time
}
