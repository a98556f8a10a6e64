package manager

import (
	"context"
	"time"
)

// Acquire reserves a queue slot and then the single in-flight generation
// slot. The returned release func must be called exactly once when the
// generation finishes. Queue overflow or waiting longer than MaxWait for
// either slot yields TooBusy.
func (m *Manager) Acquire(ctx context.Context) (func(), error) {
	noop := func() {}
	if err := ctx.Err(); err != nil {
		return noop, err
	}
	start := time.Now()

	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case m.queueCh <- struct{}{}:
	case <-ctx.Done():
		return noop, ctx.Err()
	case <-timer.C:
		m.metrics.tooBusy.Inc()
		return noop, TooBusy{}
	}

	acquired := false
	defer func() {
		if !acquired {
			<-m.queueCh
		}
	}()
	select {
	case m.genCh <- struct{}{}:
		acquired = true
		m.metrics.queueWait.Observe(time.Since(start).Seconds())
		return func() { <-m.genCh; <-m.queueCh }, nil
	case <-ctx.Done():
		return noop, ctx.Err()
	case <-timer.C:
		m.metrics.tooBusy.Inc()
		return noop, TooBusy{}
	}
}
