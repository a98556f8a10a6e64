package manager

import "context"

// Runtime loads a model file into a live inference handle.
type Runtime interface {
	Load(ctx context.Context, modelPath string, params ContextParams) (Handle, error)
}

// Handle is a loaded model. Complete is not safe for concurrent use; the
// manager's admission serializes callers.
type Handle interface {
	// Complete generates a continuation of req.Prompt. onToken is invoked for
	// each piece of text in order; returning false stops generation early,
	// which is not an error.
	Complete(ctx context.Context, req CompletionRequest, onToken func(string) bool) (Completion, error)
	// Release frees native resources. The handle is unusable afterwards.
	Release() error
}

// ContextParams configures the runtime context created at load time.
type ContextParams struct {
	ContextSize int
	BatchSize   int
	Threads     int
	GPULayers   int
	UseMlock    bool
}

// DefaultContextParams matches the small-device profile the bundled model
// was tuned for.
func DefaultContextParams() ContextParams {
	return ContextParams{ContextSize: 2048, BatchSize: 64, Threads: 4, GPULayers: 0}
}

// CompletionRequest carries the prompt and sampling parameters.
type CompletionRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
	TopP        float32
	TopK        int
	Stop        []string
	Seed        int
}

// Completion summarizes a finished generation.
type Completion struct {
	Text         string
	Tokens       int
	FinishReason string
}
