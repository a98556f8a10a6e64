package config

import (
	"path/filepath"

	"sage/internal/generate"
	"sage/internal/manager"
	"sage/internal/prompt"
	"sage/internal/rag"
)

// Default returns the built-in configuration.
func Default() Config {
	p := generate.DefaultParams()
	ctx := manager.DefaultContextParams()
	return Config{
		Addr:           ":8080",
		DataDir:        "~/.sage",
		ModelFile:      manager.DefaultFilename,
		ModelURL:       manager.DefaultURL,
		MinModelMB:     manager.DefaultMinBytes >> 20,
		NominalModelMB: manager.DefaultNominalBytes >> 20,
		ProgressMS:     1000,
		Runtime:        "llama",
		LlamaServerBin: "llama-server",
		ContextSize:    ctx.ContextSize,
		BatchSize:      ctx.BatchSize,
		Threads:        ctx.Threads,
		GPULayers:      ctx.GPULayers,
		MaxTokens:      p.MaxTokens,
		Temperature:    p.Temperature,
		TopP:           p.TopP,
		TopK:           p.TopK,
		Stop:           p.Stop,
		HistoryTurns:   prompt.DefaultHistoryTurns,
		GibberishLimit: generate.DefaultGibberishLimit,
		MaxQueueDepth:  8,
		MaxWaitSeconds: 30,
		ChunkSize:      rag.DefaultChunkSize,
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// Merge overlays the non-zero fields of o onto c. Booleans can only be
// switched on this way.
func (c *Config) Merge(o Config) {
	setS(&c.Addr, o.Addr)
	setS(&c.DataDir, o.DataDir)
	setS(&c.ModelDir, o.ModelDir)
	setS(&c.ModelFile, o.ModelFile)
	setS(&c.ModelURL, o.ModelURL)
	setI(&c.MinModelMB, o.MinModelMB)
	setI(&c.NominalModelMB, o.NominalModelMB)
	setI(&c.ProgressMS, o.ProgressMS)
	setS(&c.Runtime, o.Runtime)
	setS(&c.LlamaServerBin, o.LlamaServerBin)
	setL(&c.LlamaArgs, o.LlamaArgs)
	setI(&c.ContextSize, o.ContextSize)
	setI(&c.BatchSize, o.BatchSize)
	setI(&c.Threads, o.Threads)
	setI(&c.GPULayers, o.GPULayers)
	c.UseMlock = c.UseMlock || o.UseMlock
	setI(&c.MaxTokens, o.MaxTokens)
	setF(&c.Temperature, o.Temperature)
	setF(&c.TopP, o.TopP)
	setI(&c.TopK, o.TopK)
	setL(&c.Stop, o.Stop)
	setI(&c.HistoryTurns, o.HistoryTurns)
	setI(&c.GibberishLimit, o.GibberishLimit)
	c.ReleaseOnFailure = c.ReleaseOnFailure || o.ReleaseOnFailure
	setI(&c.MaxQueueDepth, o.MaxQueueDepth)
	setI(&c.MaxWaitSeconds, o.MaxWaitSeconds)
	setI(&c.ChunkSize, o.ChunkSize)
	setS(&c.HistoryDB, o.HistoryDB)
	setS(&c.LogLevel, o.LogLevel)
	setS(&c.LogFormat, o.LogFormat)
	c.CORSEnabled = c.CORSEnabled || o.CORSEnabled
	setL(&c.CORSOrigins, o.CORSOrigins)
}

// finalize fills paths derived from DataDir.
func (c *Config) finalize() {
	if c.ModelDir == "" {
		c.ModelDir = filepath.Join(c.DataDir, "models")
	}
	if c.HistoryDB == "" {
		c.HistoryDB = filepath.Join(c.DataDir, "sage.db")
	}
}

func setS(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setI(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setF(dst *float32, v float32) {
	if v != 0 {
		*dst = v
	}
}

func setL(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = v
	}
}
