package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"sage/internal/config"
	"sage/internal/httpapi"
	"sage/internal/manager"
	"sage/internal/service"
	"sage/pkg/types"
)

// stubRuntime stands in for llama.cpp. When gate is non-nil every
// completion blocks on it after signalling started.
type stubRuntime struct {
	mu      sync.Mutex
	tokens  []string
	prompts []string
	loads   int32
	gate    chan struct{}
	started chan struct{}
}

func (r *stubRuntime) Load(ctx context.Context, path string, p manager.ContextParams) (manager.Handle, error) {
	atomic.AddInt32(&r.loads, 1)
	return &stubHandle{rt: r}, nil
}

type stubHandle struct{ rt *stubRuntime }

func (h *stubHandle) Complete(ctx context.Context, req manager.CompletionRequest, onToken func(string) bool) (manager.Completion, error) {
	h.rt.mu.Lock()
	h.rt.prompts = append(h.rt.prompts, req.Prompt)
	h.rt.mu.Unlock()
	if h.rt.gate != nil {
		h.rt.started <- struct{}{}
		select {
		case <-h.rt.gate:
		case <-ctx.Done():
			return manager.Completion{}, ctx.Err()
		}
	}
	var c manager.Completion
	for _, t := range h.rt.tokens {
		c.Text += t
		c.Tokens++
		if !onToken(t) {
			break
		}
	}
	return c, nil
}

func (h *stubHandle) Release() error { return nil }

// assetServer serves body as the model file and counts downloads.
func assetServer(t *testing.T, body []byte) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

// newServer wires the real service and router around rt. The model is
// fetched from modelURL on first use.
func newServer(t *testing.T, rt manager.Runtime, modelURL string, tweak func(*config.Config)) (*httptest.Server, *service.Service) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.ModelDir = filepath.Join(dir, "models")
	cfg.HistoryDB = filepath.Join(dir, "sage.db")
	cfg.ModelFile = "tiny-q4_k_m.gguf"
	cfg.ModelURL = modelURL
	cfg.MinModelMB = 0
	cfg.NominalModelMB = 0
	cfg.ProgressMS = 1
	if tweak != nil {
		tweak(&cfg)
	}
	svc, err := service.New(service.Options{Config: cfg, Logger: zerolog.Nop(), Runtime: rt})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return srv, svc
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	return do(t, http.MethodGet, url, "", nil)
}

func httpPostJSON(t *testing.T, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return do(t, http.MethodPost, url, "application/json", b)
}

func do(t *testing.T, method, url, contentType string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	out, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, out
}

// streamLines decodes an NDJSON body.
func streamLines(t *testing.T, body []byte) []types.StreamLine {
	t.Helper()
	var lines []types.StreamLine
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var l types.StreamLine
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		lines = append(lines, l)
	}
	return lines
}
