package generate

import (
	"context"
	"sync"

	"sage/internal/manager"
)

// fakeEngine hands out a scripted handle and records calls.
type fakeEngine struct {
	mu         sync.Mutex
	acquireErr error
	ensureErr  error
	handle     *fakeHandle
	acquired   int
	released   int
	dropped    int
}

func (e *fakeEngine) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	if e.acquireErr != nil {
		return func() {}, e.acquireErr
	}
	e.mu.Lock()
	e.acquired++
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		e.released++
		e.mu.Unlock()
	}, nil
}

func (e *fakeEngine) EnsureReady(ctx context.Context, progress manager.ProgressFunc) (manager.Handle, error) {
	if e.ensureErr != nil {
		return nil, e.ensureErr
	}
	return e.handle, nil
}

func (e *fakeEngine) Release() {
	e.mu.Lock()
	e.dropped++
	e.mu.Unlock()
}

type fakeHandle struct {
	tokens  []string
	err     error
	block   chan struct{} // when set, waits before each token
	lastReq manager.CompletionRequest
	stopped bool
}

func (h *fakeHandle) Complete(ctx context.Context, req manager.CompletionRequest, onToken func(string) bool) (manager.Completion, error) {
	h.lastReq = req
	for _, t := range h.tokens {
		if h.block != nil {
			select {
			case <-h.block:
			case <-ctx.Done():
				return manager.Completion{}, ctx.Err()
			}
		}
		if !onToken(t) {
			h.stopped = true
			return manager.Completion{}, nil
		}
	}
	if h.err != nil {
		return manager.Completion{}, h.err
	}
	return manager.Completion{}, nil
}

func (h *fakeHandle) Release() error { return nil }

func newTestDriver(tokens ...string) (*Driver, *fakeEngine) {
	e := &fakeEngine{handle: &fakeHandle{tokens: tokens}}
	return New(Config{Engine: e}), e
}
