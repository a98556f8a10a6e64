// Package service assembles the sage core from a resolved configuration and
// exposes the operations shared by the HTTP API and the CLI.
package service

import (
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"sage/internal/config"
	"sage/internal/generate"
	"sage/internal/history"
	"sage/internal/manager"
	"sage/internal/prompt"
	"sage/internal/rag"
)

// Options configures New. Only Config is required.
type Options struct {
	Config config.Config
	Logger zerolog.Logger

	// Runtime overrides the backend selected by Config.Runtime.
	Runtime manager.Runtime
	// Store overrides the SQLite history database at Config.HistoryDB.
	Store      history.Store
	Embedder   rag.Embedder
	HTTPClient *http.Client
	// Publisher also receives manager lifecycle events.
	Publisher manager.EventPublisher
	// Registerer receives the core's collectors. nil leaves them
	// unregistered.
	Registerer prometheus.Registerer
}

// Service owns one model manager, one generation driver, the history store
// and the open document sessions.
type Service struct {
	cfg      config.Config
	log      zerolog.Logger
	manager  *manager.Manager
	driver   *generate.Driver
	store    history.Store
	// histMu serializes read-modify-write of the saved transcript.
	histMu   sync.Mutex
	closers  []func() error
	docs     *rag.SessionStore
	embedder rag.Embedder
	events   *manager.Broadcaster
}

// New builds a Service. The model is not fetched or loaded until first use.
func New(opts Options) (*Service, error) {
	cfg := opts.Config
	log := opts.Logger

	rt := opts.Runtime
	if rt == nil {
		var err error
		if rt, err = NewRuntime(cfg, log); err != nil {
			return nil, err
		}
	}

	s := &Service{
		cfg:      cfg,
		log:      log.With().Str("component", "service").Logger(),
		docs:     rag.NewSessionStore(),
		embedder: opts.Embedder,
		store:    opts.Store,
		events:   manager.NewBroadcaster(),
	}
	if s.embedder == nil {
		s.embedder = rag.HashEmbedder{}
	}
	if s.store == nil {
		db, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		s.store = db
		s.closers = append(s.closers, db.Close)
	}

	s.manager = manager.New(manager.ManagerConfig{
		Asset: manager.Asset{
			Filename:     cfg.ModelFile,
			URL:          cfg.ModelURL,
			Dir:          cfg.ModelDir,
			MinBytes:     int64(cfg.MinModelMB) << 20,
			NominalBytes: int64(cfg.NominalModelMB) << 20,
		},
		Runtime: rt,
		Context: manager.ContextParams{
			ContextSize: cfg.ContextSize,
			BatchSize:   cfg.BatchSize,
			Threads:     cfg.Threads,
			GPULayers:   cfg.GPULayers,
			UseMlock:    cfg.UseMlock,
		},
		HTTPClient:       opts.HTTPClient,
		ProgressInterval: time.Duration(cfg.ProgressMS) * time.Millisecond,
		MaxQueueDepth:    cfg.MaxQueueDepth,
		MaxWait:          time.Duration(cfg.MaxWaitSeconds) * time.Second,
		Publisher:        manager.MultiPublisher{s.events, opts.Publisher},
		Logger:           &log,
		Registerer:       opts.Registerer,
	})
	s.driver = generate.New(generate.Config{
		Engine:    s.manager,
		Formatter: prompt.Formatter{HistoryTurns: cfg.HistoryTurns},
		Params: generate.Params{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			TopK:        cfg.TopK,
			Stop:        cfg.Stop,
		},
		GibberishLimit:   cfg.GibberishLimit,
		ReleaseOnFailure: cfg.ReleaseOnFailure,
		Logger:           &log,
		Registerer:       opts.Registerer,
	})
	return s, nil
}

// NewRuntime returns the backend named by cfg.Runtime.
func NewRuntime(cfg config.Config, log zerolog.Logger) (manager.Runtime, error) {
	switch cfg.Runtime {
	case "", "llama":
		if !manager.LlamaBuilt {
			log.Warn().Str("event", "runtime_stub").Msg("built without -tags=llama; model loads will fail")
		}
		return manager.NewLlamaRuntime(), nil
	case "subprocess":
		if _, err := exec.LookPath(cfg.LlamaServerBin); err != nil {
			log.Warn().Str("event", "runtime_missing").Str("bin", cfg.LlamaServerBin).Msg("llama-server not found on PATH")
		}
		return manager.NewSubprocessRuntime(manager.SubprocessConfig{
			Bin:       cfg.LlamaServerBin,
			ExtraArgs: cfg.LlamaArgs,
			Logger:    log,
		}), nil
	default:
		return nil, fmt.Errorf("unknown runtime %q", cfg.Runtime)
	}
}

// Manager exposes the model manager.
func (s *Service) Manager() *manager.Manager { return s.manager }

// Driver exposes the generation driver.
func (s *Service) Driver() *generate.Driver { return s.driver }

// Config returns the configuration the service was built from.
func (s *Service) Config() config.Config { return s.cfg }

// Close releases the model and closes the history database.
func (s *Service) Close() error {
	s.manager.Release()
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
