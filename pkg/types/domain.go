package types

// Model is a GGUF file found in the model directory.
type Model struct {
	// File name, used as the stable identifier.
	// example: qwen2-0_5b-instruct-q4_k_m.gguf
	ID string `json:"id" example:"qwen2-0_5b-instruct-q4_k_m.gguf"`
	// Absolute path to the model file on disk.
	// example: /home/user/.sage/models/qwen2-0_5b-instruct-q4_k_m.gguf
	Path string `json:"path" example:"/home/user/.sage/models/qwen2-0_5b-instruct-q4_k_m.gguf"`
	// Quantization parsed from the file name, if recognizable.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
	// Size of the file in bytes.
	// example: 397808192
	SizeBytes int64 `json:"size_bytes" example:"397808192"`
	// True for the file the server is configured to load.
	Active bool `json:"active"`
}

// ChatTurn is one prior message sent with a chat request.
type ChatTurn struct {
	// user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// example: What is the capital of France?
	Content string `json:"content" example:"What is the capital of France?"`
}

// ChatRecord is the persisted form of one chat bubble.
type ChatRecord struct {
	// example: Hello!
	Text string `json:"text" example:"Hello!"`
	// example: true
	IsUser bool `json:"isUser" example:"true"`
}
