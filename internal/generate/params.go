package generate

// Params are the sampling settings sent with every completion.
type Params struct {
	MaxTokens   int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Temperature float32  `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP        float32  `json:"top_p" yaml:"top_p" toml:"top_p"`
	TopK        int      `json:"top_k" yaml:"top_k" toml:"top_k"`
	Stop        []string `json:"stop" yaml:"stop" toml:"stop"`
	Seed        int      `json:"seed,omitempty" yaml:"seed,omitempty" toml:"seed,omitempty"`
}

// DefaultStop ends generation at role sentinels, blank lines and echoed
// question prefixes.
var DefaultStop = []string{"<|im_end|>", "<|im_start|>", "\n\n\n", "User:", "Question:", "\n\nQ:", "\n\n"}

// DefaultParams keeps answers short and focused for a 0.5B model.
func DefaultParams() Params {
	stop := make([]string, len(DefaultStop))
	copy(stop, DefaultStop)
	return Params{MaxTokens: 80, Temperature: 0.1, TopP: 0.7, TopK: 10, Stop: stop}
}
