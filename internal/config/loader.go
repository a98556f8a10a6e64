package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for sage. In a loaded file, zero values
// mean "unspecified" and leave the defaults in place.
type Config struct {
	Addr    string `json:"addr" yaml:"addr" toml:"addr"`
	DataDir string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`

	ModelDir       string `json:"model_dir" yaml:"model_dir" toml:"model_dir"`
	ModelFile      string `json:"model_file" yaml:"model_file" toml:"model_file"`
	ModelURL       string `json:"model_url" yaml:"model_url" toml:"model_url"`
	MinModelMB     int    `json:"min_model_mb" yaml:"min_model_mb" toml:"min_model_mb"`
	NominalModelMB int    `json:"nominal_model_mb" yaml:"nominal_model_mb" toml:"nominal_model_mb"`
	ProgressMS     int    `json:"progress_interval_ms" yaml:"progress_interval_ms" toml:"progress_interval_ms"`

	// Runtime selects the model backend: "llama" (in-process, needs the
	// llama build tag) or "subprocess" (llama-server on PATH).
	Runtime        string   `json:"runtime" yaml:"runtime" toml:"runtime"`
	LlamaServerBin string   `json:"llama_server_bin" yaml:"llama_server_bin" toml:"llama_server_bin"`
	LlamaArgs      []string `json:"llama_args" yaml:"llama_args" toml:"llama_args"`
	ContextSize    int      `json:"context_size" yaml:"context_size" toml:"context_size"`
	BatchSize      int      `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	Threads        int      `json:"threads" yaml:"threads" toml:"threads"`
	GPULayers      int      `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	UseMlock       bool     `json:"use_mlock" yaml:"use_mlock" toml:"use_mlock"`

	MaxTokens        int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Temperature      float32  `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP             float32  `json:"top_p" yaml:"top_p" toml:"top_p"`
	TopK             int      `json:"top_k" yaml:"top_k" toml:"top_k"`
	Stop             []string `json:"stop" yaml:"stop" toml:"stop"`
	HistoryTurns     int      `json:"history_turns" yaml:"history_turns" toml:"history_turns"`
	GibberishLimit   int      `json:"gibberish_limit" yaml:"gibberish_limit" toml:"gibberish_limit"`
	ReleaseOnFailure bool     `json:"release_on_failure" yaml:"release_on_failure" toml:"release_on_failure"`

	MaxQueueDepth  int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSeconds int `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds"`

	ChunkSize int    `json:"chunk_size" yaml:"chunk_size" toml:"chunk_size"`
	HistoryDB string `json:"history_db" yaml:"history_db" toml:"history_db"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
