//go:build !llama

package manager

import "context"

// LlamaBuilt reports whether this binary embeds llama.cpp.
const LlamaBuilt = false

type llamaRuntime struct{}

// NewLlamaRuntime returns a runtime that refuses to load because llama.cpp
// was not compiled in.
func NewLlamaRuntime() Runtime { return llamaRuntime{} }

func (llamaRuntime) Load(context.Context, string, ContextParams) (Handle, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
