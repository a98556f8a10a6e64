package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sage/internal/manager"
	"sage/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Ready() bool
	Status() types.StatusResponse
	ListModels() ([]types.Model, error)
	Warmup(ctx context.Context, progress manager.ProgressFunc) error
	Release()
	SubscribeEvents() (<-chan manager.Event, func())

	Chat(ctx context.Context, req types.ChatRequest, onToken func(string)) (types.StreamLine, error)
	History(ctx context.Context) ([]types.ChatRecord, error)
	ClearHistory(ctx context.Context) error

	IngestDocument(ctx context.Context, name, mimeType string, data []byte) (types.DocumentResponse, error)
	IngestText(ctx context.Context, name, text string) (types.DocumentResponse, error)
	Documents() []types.DocumentResponse
	CloseDocument(id string) error
	Ask(ctx context.Context, id string, req types.AskRequest, onToken func(string)) (types.StreamLine, error)
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		opts := cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}
		if len(opts.AllowedMethods) == 0 {
			opts.AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
		}
		if len(opts.AllowedHeaders) == 0 {
			opts.AllowedHeaders = []string{"Accept", "Content-Type", "X-Log-Level", "X-Request-Id"}
		}
		r.Use(cors.Handler(opts))
	}

	h := &handlers{svc: svc}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})
	r.Get("/models", h.models)
	r.Post("/model/warmup", h.warmup)
	r.Get("/events", h.events)
	r.Post("/model/release", func(w http.ResponseWriter, r *http.Request) {
		svc.Release()
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Post("/chat", h.chat)
	r.Get("/history", h.history)
	r.Delete("/history", h.clearHistory)

	r.Get("/documents", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.DocumentsResponse{Documents: svc.Documents()})
	})
	r.Post("/documents", h.ingest)
	r.Delete("/documents/{id}", h.closeDocument)
	r.Post("/documents/{id}/ask", h.ask)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	models, err := h.svc.ListModels()
	if err != nil {
		writeError(w, err)
		return
	}
	if models == nil {
		models = []types.Model{}
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
}

func (h *handlers) warmup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if err := h.svc.Warmup(ctx, nil); err != nil {
		if r.Context().Err() != nil {
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status())
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}
	serveStream(w, r, "chat", func(ctx context.Context, onToken func(string)) (types.StreamLine, error) {
		return h.svc.Chat(ctx, req, onToken)
	})
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.History(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.HistoryResponse{Messages: recs})
}

func (h *handlers) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ingest accepts either a JSON DocumentRequest or a multipart upload with
// the document in the "file" field.
func (h *handlers) ingest(w http.ResponseWriter, r *http.Request) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		doc types.DocumentResponse
		err error
	)
	switch mt {
	case "application/json":
		var req types.DocumentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		name := req.Name
		if name == "" {
			name = "document.txt"
		}
		doc, err = h.svc.IngestText(r.Context(), name, req.Text)
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSONError(w, uploadErrorStatus(err), "invalid multipart body")
			return
		}
		f, hdr, ferr := r.FormFile("file")
		if ferr != nil {
			writeJSONError(w, http.StatusBadRequest, "file field is required")
			return
		}
		data, rerr := io.ReadAll(f)
		_ = f.Close()
		if rerr != nil {
			writeJSONError(w, http.StatusBadRequest, "could not read upload")
			return
		}
		name := r.FormValue("name")
		if name == "" {
			name = hdr.Filename
		}
		doc, err = h.svc.IngestDocument(r.Context(), name, hdr.Header.Get("Content-Type"), data)
	default:
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json or multipart/form-data")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *handlers) closeDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseDocument(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) ask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req types.AskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSONError(w, http.StatusBadRequest, "question is required")
		return
	}
	serveStream(w, r, "ask", func(ctx context.Context, onToken func(string)) (types.StreamLine, error) {
		return h.svc.Ask(ctx, id, req, onToken)
	})
}

// decodeJSON enforces the JSON content type and body limit and decodes into
// v. It writes the error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func uploadErrorStatus(err error) int {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
