package generate

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"sage/internal/manager"
	"sage/internal/prompt"
)

// DefaultGibberishLimit is the number of flagged tokens that ends a
// generation.
const DefaultGibberishLimit = 2

// Engine is the part of the model manager the driver needs.
type Engine interface {
	Acquire(ctx context.Context) (func(), error)
	EnsureReady(ctx context.Context, progress manager.ProgressFunc) (manager.Handle, error)
	Release()
}

// Config configures a Driver. Zero values take package defaults.
type Config struct {
	Engine    Engine
	Formatter prompt.Formatter
	// Params replaces DefaultParams entirely when MaxTokens is set.
	Params         Params
	GibberishLimit int
	// ReleaseOnFailure drops the model handle after a failed generation so
	// the next request reloads it.
	ReleaseOnFailure bool
	Logger           *zerolog.Logger
	Registerer       prometheus.Registerer
}

// Driver turns chat requests into completions. It is safe for concurrent
// use; the engine's admission serializes actual generation.
type Driver struct {
	engine           Engine
	formatter        prompt.Formatter
	params           Params
	gibberishLimit   int
	releaseOnFailure bool
	log              zerolog.Logger
	metrics          *metrics
}

func New(cfg Config) *Driver {
	d := &Driver{
		engine:           cfg.Engine,
		formatter:        cfg.Formatter,
		params:           cfg.Params,
		gibberishLimit:   cfg.GibberishLimit,
		releaseOnFailure: cfg.ReleaseOnFailure,
		log:              zerolog.Nop(),
		metrics:          newMetrics(cfg.Registerer),
	}
	if d.params.MaxTokens <= 0 {
		d.params = DefaultParams()
	}
	if d.gibberishLimit <= 0 {
		d.gibberishLimit = DefaultGibberishLimit
	}
	if cfg.Logger != nil {
		d.log = cfg.Logger.With().Str("component", "generate").Logger()
	}
	return d
}

// Request is one user turn plus the context it is answered in.
type Request struct {
	Message string
	History []prompt.Turn
	// Passage, when set, is a retrieved document excerpt the answer should
	// draw on.
	Passage string
	// Progress receives model download progress if the model has to be
	// fetched first.
	Progress manager.ProgressFunc
}

// Result is the outcome of a finished generation.
type Result struct {
	Text    string
	Tokens  int
	Flagged int
	// Cutoff is set when the gibberish limit ended generation.
	Cutoff bool
	// Stopped is set when a stop sequence ended generation.
	Stopped bool
}

// Generate answers userMessage and returns the trimmed text. onToken, if
// non-nil, receives accepted text in order on the calling goroutine.
func (d *Driver) Generate(ctx context.Context, userMessage string, history []prompt.Turn, onToken func(string)) (string, error) {
	res, err := d.Run(ctx, Request{Message: userMessage, History: history}, onToken)
	return res.Text, err
}

// Run is Generate with the full request and result.
func (d *Driver) Run(ctx context.Context, req Request, onToken func(string)) (Result, error) {
	release, err := d.engine.Acquire(ctx)
	if err != nil {
		if manager.IsTooBusy(err) {
			d.metrics.generations.WithLabelValues("busy").Inc()
		}
		return Result{}, err
	}
	defer release()

	start := time.Now()
	h, err := d.engine.EnsureReady(ctx, req.Progress)
	if err != nil {
		return Result{}, d.failure(ctx, err)
	}

	p := d.formatter.FormatWithContext(req.Message, req.Passage, req.History)
	acc := newAccumulator(d.params.Stop, d.gibberishLimit, func(s string) {
		d.metrics.tokens.Inc()
		if onToken != nil {
			onToken(s)
		}
	})
	_, err = h.Complete(ctx, manager.CompletionRequest{
		Prompt:      p,
		MaxTokens:   d.params.MaxTokens,
		Temperature: d.params.Temperature,
		TopP:        d.params.TopP,
		TopK:        d.params.TopK,
		Stop:        d.params.Stop,
		Seed:        d.params.Seed,
	}, func(tok string) bool {
		if ctx.Err() != nil {
			return false
		}
		return acc.add(tok)
	})
	if err != nil {
		return acc.result(), d.failure(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		d.metrics.generations.WithLabelValues("canceled").Inc()
		return acc.result(), err
	}
	acc.flush()
	res := acc.result()

	if res.Flagged > 0 {
		d.log.Warn().Str("event", "gibberish").Int("flagged", res.Flagged).Bool("cutoff", res.Cutoff).Msg("generate")
	}
	if res.Cutoff {
		d.metrics.cutoffs.Inc()
	}
	d.metrics.generations.WithLabelValues("ok").Inc()
	d.metrics.duration.Observe(time.Since(start).Seconds())
	d.log.Debug().Str("event", "generate_done").Int("tokens", res.Tokens).Bool("stopped", res.Stopped).Dur("took", time.Since(start)).Msg("generate")
	return res, nil
}

// failure classifies err. Cancellation passes through unchanged; anything
// else becomes a GenerationFailure.
func (d *Driver) failure(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		d.metrics.generations.WithLabelValues("canceled").Inc()
		return ctxErr
	}
	d.metrics.generations.WithLabelValues("error").Inc()
	d.log.Error().Str("event", "generate_failed").Err(err).Bool("context_full", IsContextFull(err)).Msg("generate")
	if d.releaseOnFailure {
		d.engine.Release()
	}
	return GenerationFailure{Err: err}
}
