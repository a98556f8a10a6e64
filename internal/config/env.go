package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"sage/internal/common/fsutil"
)

// EnvPrefix prefixes every environment override, e.g. SAGE_MODEL_DIR.
const EnvPrefix = "SAGE_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(string) (string, bool)

// ApplyEnv overlays SAGE_* variables onto c. Unset variables are skipped;
// malformed numbers are reported.
func ApplyEnv(c *Config, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	flt := func(name string, dst *float32) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = float32(f)
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = SplitCSV(v)
		}
	}

	str("ADDR", &c.Addr)
	str("DATA_DIR", &c.DataDir)
	str("MODEL_DIR", &c.ModelDir)
	str("MODEL_FILE", &c.ModelFile)
	str("MODEL_URL", &c.ModelURL)
	num("MIN_MODEL_MB", &c.MinModelMB)
	num("NOMINAL_MODEL_MB", &c.NominalModelMB)
	num("PROGRESS_INTERVAL_MS", &c.ProgressMS)
	str("RUNTIME", &c.Runtime)
	str("LLAMA_SERVER_BIN", &c.LlamaServerBin)
	list("LLAMA_ARGS", &c.LlamaArgs)
	num("CONTEXT_SIZE", &c.ContextSize)
	num("BATCH_SIZE", &c.BatchSize)
	num("THREADS", &c.Threads)
	num("GPU_LAYERS", &c.GPULayers)
	boolean("USE_MLOCK", &c.UseMlock)
	num("MAX_TOKENS", &c.MaxTokens)
	flt("TEMPERATURE", &c.Temperature)
	flt("TOP_P", &c.TopP)
	num("TOP_K", &c.TopK)
	num("HISTORY_TURNS", &c.HistoryTurns)
	num("GIBBERISH_LIMIT", &c.GibberishLimit)
	boolean("RELEASE_ON_FAILURE", &c.ReleaseOnFailure)
	num("MAX_QUEUE_DEPTH", &c.MaxQueueDepth)
	num("MAX_WAIT_SECONDS", &c.MaxWaitSeconds)
	num("CHUNK_SIZE", &c.ChunkSize)
	str("HISTORY_DB", &c.HistoryDB)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	boolean("CORS_ENABLED", &c.CORSEnabled)
	list("CORS_ORIGINS", &c.CORSOrigins)
	return errors.Join(errs...)
}

// SplitCSV splits a comma-separated list, trimming spaces and dropping
// empty items.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Options controls Resolve.
type Options struct {
	// File is an optional yaml/json/toml config file.
	File string
	// EnvFiles are dotenv files loaded before reading the environment.
	// Missing files are ignored. Variables already set win.
	EnvFiles []string
	Lookup   LookupFunc
}

// Resolve builds the effective configuration: defaults, then File, then
// dotenv files, then SAGE_* variables. Paths have '~' expanded.
func Resolve(opts Options) (Config, error) {
	cfg := Default()
	if opts.File != "" {
		fc, err := Load(opts.File)
		if err != nil {
			return cfg, err
		}
		cfg.Merge(fc)
	}
	for _, f := range opts.EnvFiles {
		if !fsutil.PathExists(f) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return cfg, fmt.Errorf("load %s: %w", f, err)
		}
	}
	if err := ApplyEnv(&cfg, opts.Lookup); err != nil {
		return cfg, err
	}
	if err := cfg.ExpandPaths(); err != nil {
		return cfg, err
	}
	cfg.finalize()
	return cfg, cfg.Validate()
}

// ExpandPaths expands a leading '~' in every path field.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.DataDir, &c.ModelDir, &c.HistoryDB} {
		v, err := fsutil.ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

// Validate rejects settings the core cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Runtime {
	case "llama", "subprocess":
	default:
		errs = append(errs, fmt.Errorf("runtime must be llama or subprocess, got %q", c.Runtime))
	}
	if c.ModelFile == "" {
		errs = append(errs, errors.New("model_file is required"))
	}
	if c.MinModelMB < 0 || c.NominalModelMB < c.MinModelMB {
		errs = append(errs, fmt.Errorf("nominal_model_mb (%d) must be >= min_model_mb (%d) >= 0", c.NominalModelMB, c.MinModelMB))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, errors.New("max_tokens must be positive"))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("log_format must be json or console, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
