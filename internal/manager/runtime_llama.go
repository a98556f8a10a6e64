//go:build llama

package manager

import (
	"context"
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// LlamaBuilt reports whether this binary embeds llama.cpp.
const LlamaBuilt = true

type llamaRuntime struct{}

// NewLlamaRuntime returns the in-process llama.cpp runtime.
func NewLlamaRuntime() Runtime { return llamaRuntime{} }

type llamaHandle struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
}

func (llamaRuntime) Load(ctx context.Context, modelPath string, p ContextParams) (Handle, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := []llama.ModelOption{
		llama.SetContext(p.ContextSize),
		llama.SetNBatch(p.BatchSize),
		llama.SetGPULayers(p.GPULayers),
	}
	if p.UseMlock {
		opts = append(opts, llama.EnableMLock)
	}
	m, err := llama.New(modelPath, opts...)
	if err != nil {
		return nil, err
	}
	return &llamaHandle{model: m, threads: p.Threads}, nil
}

func (h *llamaHandle) Complete(ctx context.Context, req CompletionRequest, onToken func(string) bool) (Completion, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.model == nil {
		return Completion{}, errors.New("llama model not initialized")
	}
	tokens := 0
	h.model.SetTokenCallback(func(tok string) bool {
		if ctx.Err() != nil {
			return false
		}
		tokens++
		return onToken(tok)
	})

	text, err := h.model.Predict(req.Prompt, predictOptions(req, h.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return Completion{}, ctx.Err()
		}
		return Completion{}, err
	}
	return Completion{Text: text, Tokens: tokens, FinishReason: "stop"}, nil
}

func (h *llamaHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.model != nil {
		h.model.Free()
		h.model = nil
	}
	return nil
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func positiveOrF(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

func predictOptions(req CompletionRequest, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(positiveOr(req.MaxTokens, 1)),
		llama.SetThreads(positiveOr(threads, 1)),
		llama.SetTopP(positiveOrF(req.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(positiveOr(req.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(positiveOrF(req.Temperature, llama.DefaultOptions.Temperature)),
	}
	if req.Seed != 0 {
		po = append(po, llama.SetSeed(req.Seed))
	}
	if len(req.Stop) > 0 {
		po = append(po, llama.SetStopWords(req.Stop...))
	}
	return po
}
