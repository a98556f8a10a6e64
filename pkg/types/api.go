package types

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	// The new user message.
	// example: Give me three tips for better sleep.
	Message string `json:"message" example:"Give me three tips for better sleep."`
	// Prior turns, oldest first. Only the most recent six are used.
	History []ChatTurn `json:"history,omitempty"`
	// When true, History is ignored and the server's saved history is used;
	// the exchange is appended to it afterwards.
	// example: false
	UseSavedHistory bool `json:"use_saved_history,omitempty" example:"false"`
}

// AskRequest is the body of POST /documents/{id}/ask.
type AskRequest struct {
	// example: Who wrote the report?
	Question string `json:"question" example:"Who wrote the report?"`
	// Number of best-matching passages given to the model as context,
	// at most 8. Zero means one.
	// example: 1
	Passages int `json:"passages,omitempty" example:"1"`
}

// DocumentRequest is the JSON body of POST /documents.
type DocumentRequest struct {
	// example: notes.txt
	Name string `json:"name" example:"notes.txt"`
	// Raw document text.
	Text string `json:"text"`
}

// DocumentResponse describes an ingested document.
type DocumentResponse struct {
	// Session identifier used with /documents/{id}/ask.
	// example: 0b9f4a0e-5c1e-4d55-8c55-0d1f0e6f2a11
	ID string `json:"id" example:"0b9f4a0e-5c1e-4d55-8c55-0d1f0e6f2a11"`
	// example: notes.txt
	Name string `json:"name" example:"notes.txt"`
	// Number of indexed chunks.
	// example: 4
	Chunks int `json:"chunks" example:"4"`
	// Set when extraction succeeded only partially.
	Warning string `json:"warning,omitempty"`
}

// StreamLine is one NDJSON line of a /chat or /ask response. Token lines
// carry Token; the final line has Done set and the full Content.
type StreamLine struct {
	Token   string `json:"token,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Content string `json:"content,omitempty"`
	// Retrieved passage used as context (ask only).
	Passage string `json:"passage,omitempty"`
	// True when generation was cut short by the gibberish filter.
	Cutoff bool   `json:"cutoff,omitempty"`
	Error  string `json:"error,omitempty"`
}

// HistoryResponse is returned by GET /history.
type HistoryResponse struct {
	Messages []ChatRecord `json:"messages"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// absent, downloading, loading, ready or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// example: qwen2-0_5b-instruct-q4_k_m.gguf
	Model string `json:"model" example:"qwen2-0_5b-instruct-q4_k_m.gguf"`
	Path  string `json:"path"`
	// True when a valid model file is on disk.
	Cached    bool  `json:"cached"`
	SizeBytes int64 `json:"size_bytes"`
	// Percent of the current download, 0 when idle.
	// example: 42.5
	DownloadProgress float64 `json:"download_progress" example:"42.5"`
	LastError        string  `json:"last_error,omitempty"`
	LoadsTotal       uint64  `json:"loads_total"`
	LoadedAtUnix     int64   `json:"loaded_at_unix,omitempty"`
	QueueLen         int     `json:"queue_len"`
	Inflight         int     `json:"inflight"`
	MaxQueueDepth    int     `json:"max_queue_depth"`
	UptimeSeconds    int64   `json:"uptime_seconds"`
	ServerTimeUnix   int64   `json:"server_time_unix"`
	// Open document sessions.
	Documents int `json:"documents"`
}

// DocumentsResponse is returned by GET /documents.
type DocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

// EventLine is one NDJSON line of GET /events: a model lifecycle event such
// as download_progress or load_ready.
type EventLine struct {
	// example: load_ready
	Event string `json:"event" example:"load_ready"`
	// example: qwen2-0_5b-instruct-q4_k_m.gguf
	Asset  string         `json:"asset" example:"qwen2-0_5b-instruct-q4_k_m.gguf"`
	Fields map[string]any `json:"fields,omitempty"`
	// Unix milliseconds when the line was written.
	TimeMS int64 `json:"time_ms"`
}
