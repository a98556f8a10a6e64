package service

import (
	"context"

	"sage/internal/manager"
	"sage/internal/registry"
	"sage/pkg/types"
)

// Ready reports whether the model is loaded.
func (s *Service) Ready() bool { return s.manager.Ready() }

// Status is the manager status plus the number of open documents.
func (s *Service) Status() types.StatusResponse {
	st := s.manager.Status()
	st.Documents = len(s.docs.List())
	return st
}

// ListModels returns the GGUF files in the model directory. The configured
// model is marked active.
func (s *Service) ListModels() ([]types.Model, error) {
	return registry.LoadDir(s.cfg.ModelDir, s.cfg.ModelFile)
}

// Warmup fetches and loads the model.
func (s *Service) Warmup(ctx context.Context, progress manager.ProgressFunc) error {
	return s.manager.Warmup(ctx, s.progress(progress))
}

// Pull downloads and validates the model without loading it.
func (s *Service) Pull(ctx context.Context, progress manager.ProgressFunc) (string, error) {
	return s.manager.Fetch(ctx, s.progress(progress))
}

// Release unloads the model. The cached file stays on disk.
func (s *Service) Release() { s.manager.Release() }

// ClearCache unloads the model and deletes the cached file.
func (s *Service) ClearCache() error { return s.manager.ClearCache() }

// SubscribeEvents streams manager lifecycle events until cancel is called.
func (s *Service) SubscribeEvents() (<-chan manager.Event, func()) {
	return s.events.Subscribe(64)
}

// progress logs download progress and forwards it to fn.
func (s *Service) progress(fn manager.ProgressFunc) manager.ProgressFunc {
	return func(pct float64) {
		s.log.Debug().Str("event", "download_progress").Float64("percent", pct).Msg("service")
		if fn != nil {
			fn(pct)
		}
	}
}
