package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sage/internal/config"
	"sage/internal/history"
	"sage/internal/manager"
	"sage/pkg/types"
)

type fakeRuntime struct {
	mu      sync.Mutex
	tokens  []string
	prompts []string
	loads   int
}

func (f *fakeRuntime) Load(ctx context.Context, path string, p manager.ContextParams) (manager.Handle, error) {
	f.mu.Lock()
	f.loads++
	f.mu.Unlock()
	return &fakeHandle{rt: f}, nil
}

func (f *fakeRuntime) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeHandle struct{ rt *fakeRuntime }

func (h *fakeHandle) Complete(ctx context.Context, req manager.CompletionRequest, onToken func(string) bool) (manager.Completion, error) {
	h.rt.mu.Lock()
	h.rt.prompts = append(h.rt.prompts, req.Prompt)
	toks := h.rt.tokens
	h.rt.mu.Unlock()
	var c manager.Completion
	for _, t := range toks {
		c.Text += t
		c.Tokens++
		if !onToken(t) {
			break
		}
	}
	return c, nil
}

func (h *fakeHandle) Release() error { return nil }

func newTestService(t *testing.T, tokens ...string) (*Service, *fakeRuntime) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.ModelDir = filepath.Join(dir, "models")
	cfg.HistoryDB = filepath.Join(dir, "sage.db")
	cfg.ModelFile = "model.gguf"
	cfg.ModelURL = "http://127.0.0.1:1/unused"
	cfg.MinModelMB = 0
	cfg.NominalModelMB = 0
	if err := os.MkdirAll(cfg.ModelDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.ModelDir, cfg.ModelFile), []byte("gguf"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	rt := &fakeRuntime{tokens: tokens}
	svc, err := New(Options{Config: cfg, Logger: zerolog.Nop(), Runtime: rt, Store: store})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc, rt
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestChat_StreamsTokensAndUsesRequestHistory(t *testing.T) {
	svc, rt := newTestService(t, "Paris", " is the capital.")
	var got []string
	line, err := svc.Chat(testCtx(t), types.ChatRequest{
		Message: "And France?",
		History: []types.ChatTurn{{Role: "user", Content: "Capital of Italy?"}, {Role: "assistant", Content: "Rome."}},
	}, func(s string) { got = append(got, s) })
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if strings.Join(got, "") != "Paris is the capital." {
		t.Fatalf("tokens=%q", got)
	}
	if !line.Done || line.Content != "Paris is the capital." {
		t.Fatalf("final line: %+v", line)
	}
	p := rt.lastPrompt()
	if !strings.Contains(p, "<|im_start|>assistant\nRome.<|im_end|>") || !strings.HasSuffix(p, "<|im_start|>user\nAnd France?<|im_end|>\n<|im_start|>assistant\n") {
		t.Fatalf("unexpected prompt:\n%s", p)
	}
	if !svc.Ready() {
		t.Fatalf("model should be loaded after chat")
	}
}

func TestChat_SavedHistory(t *testing.T) {
	svc, rt := newTestService(t, "Hello!")
	ctx := testCtx(t)
	if _, err := svc.Chat(ctx, types.ChatRequest{Message: "Hi", UseSavedHistory: true}, nil); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(rt.lastPrompt(), history.Welcome) {
		t.Fatalf("welcome message should be part of the history window")
	}
	recs, err := svc.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(recs) != 3 || recs[1].Text != "Hi" || !recs[1].IsUser || recs[2].Text != "Hello!" || recs[2].IsUser {
		t.Fatalf("unexpected history: %+v", recs)
	}
	if err := svc.ClearHistory(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	recs, _ = svc.History(ctx)
	if len(recs) != 1 || recs[0].Text != history.Welcome {
		t.Fatalf("expected only the welcome message, got %+v", recs)
	}
}

func TestChat_ConcurrentSavedHistoryKeepsEveryExchange(t *testing.T) {
	svc, _ := newTestService(t, "ok")
	ctx := testCtx(t)
	const n = 8

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := "message " + strconv.Itoa(i)
			if _, err := svc.Chat(ctx, types.ChatRequest{Message: msg, UseSavedHistory: true}, nil); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("chat: %v", err)
	}

	recs, err := svc.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(recs) != 1+2*n {
		t.Fatalf("expected %d records, got %d", 1+2*n, len(recs))
	}
	seen := map[string]bool{}
	for _, r := range recs[1:] {
		if r.IsUser {
			seen[r.Text] = true
		}
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct user messages, got %v", n, seen)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Chat(testCtx(t), types.ChatRequest{Message: "   "}, nil)
	var br BadRequest
	if !errors.As(err, &br) || br.StatusCode() != 400 {
		t.Fatalf("expected BadRequest, got %v", err)
	}
}

func TestDocuments_IngestAndAsk(t *testing.T) {
	svc, rt := newTestService(t, "Alice", ".")
	ctx := testCtx(t)
	text := strings.Repeat("The quarterly report was written by Alice. ", 40)
	doc, err := svc.IngestText(ctx, "report.txt", text)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if doc.ID == "" || doc.Chunks < 2 || doc.Name != "report.txt" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if st := svc.Status(); st.Documents != 1 {
		t.Fatalf("documents=%d", st.Documents)
	}

	line, err := svc.Ask(ctx, doc.ID, types.AskRequest{Question: "Who wrote the report?"}, nil)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if line.Passage == "" || !strings.Contains(text, line.Passage) {
		t.Fatalf("passage not from document: %q", line.Passage)
	}
	if line.Content != "Alice." {
		t.Fatalf("content=%q", line.Content)
	}
	if p := rt.lastPrompt(); !strings.Contains(p, "Context:\n") || !strings.Contains(p, "Question: Who wrote the report?") {
		t.Fatalf("prompt missing context:\n%s", p)
	}

	if got := svc.Documents(); len(got) != 1 || got[0].ID != doc.ID {
		t.Fatalf("documents: %+v", got)
	}
	if err := svc.CloseDocument(doc.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := svc.Ask(ctx, doc.ID, types.AskRequest{Question: "again?"}, nil); !errors.As(err, new(NotFound)) {
		t.Fatalf("expected NotFound after close, got %v", err)
	}
}

func TestAsk_MultiplePassages(t *testing.T) {
	svc, rt := newTestService(t, "ok")
	ctx := testCtx(t)
	doc, err := svc.IngestText(ctx, "notes.txt", strings.Repeat("Budgets are reviewed every quarter by finance. ", 40))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if doc.Chunks < 3 {
		t.Fatalf("need at least 3 chunks, got %d", doc.Chunks)
	}

	line, err := svc.Ask(ctx, doc.ID, types.AskRequest{Question: "Who reviews budgets?", Passages: 3}, nil)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if got := len(strings.Split(line.Passage, "\n\n")); got != 3 {
		t.Fatalf("expected 3 passages, got %d: %q", got, line.Passage)
	}
	if !strings.Contains(rt.lastPrompt(), line.Passage) {
		t.Fatalf("prompt should carry every passage")
	}

	for _, n := range []int{-1, MaxAskPassages + 1} {
		_, err := svc.Ask(ctx, doc.ID, types.AskRequest{Question: "q", Passages: n}, nil)
		if !errors.As(err, new(BadRequest)) {
			t.Fatalf("passages=%d: expected BadRequest, got %v", n, err)
		}
	}
}

func TestIngestDocument_Rejects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx(t)
	if _, err := svc.IngestDocument(ctx, "bin.txt", "text/plain", []byte{0xff, 0xfe, 0xfd}); !errors.As(err, new(BadRequest)) {
		t.Fatalf("invalid UTF-8 should be a bad request, got %v", err)
	}
	if _, err := svc.IngestDocument(ctx, "empty.txt", "text/plain", []byte("  \n ")); !errors.As(err, new(BadRequest)) {
		t.Fatalf("empty document should be a bad request, got %v", err)
	}
	if _, err := svc.IngestDocument(ctx, "broken.pdf", "application/pdf", []byte("not a pdf")); !errors.As(err, new(BadRequest)) {
		t.Fatalf("broken pdf should be a bad request, got %v", err)
	}
}

func TestAsk_UnknownDocument(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Ask(testCtx(t), "nope", types.AskRequest{Question: "q"}, nil)
	var nf NotFound
	if !errors.As(err, &nf) || nf.StatusCode() != 404 {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestModelOperations(t *testing.T) {
	svc, rt := newTestService(t)
	ctx := testCtx(t)

	models, err := svc.ListModels()
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if len(models) != 1 || !models[0].Active || models[0].ID != "model.gguf" {
		t.Fatalf("unexpected models: %+v", models)
	}

	path, err := svc.Pull(ctx, nil)
	if err != nil || filepath.Base(path) != "model.gguf" {
		t.Fatalf("pull: %q %v", path, err)
	}
	if svc.Ready() || rt.loads != 0 {
		t.Fatalf("pull must not load")
	}

	if err := svc.Warmup(ctx, nil); err != nil {
		t.Fatalf("warmup: %v", err)
	}
	if !svc.Ready() || svc.Status().State != string(manager.StateReady) {
		t.Fatalf("expected ready, status=%+v", svc.Status())
	}
	svc.Release()
	if svc.Ready() {
		t.Fatalf("expected released")
	}

	if err := svc.ClearCache(); err != nil {
		t.Fatalf("clear cache: %v", err)
	}
	if models, _ := svc.ListModels(); len(models) != 0 {
		t.Fatalf("cache not cleared: %+v", models)
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := config.Default()
	cfg.Runtime = "subprocess"
	cfg.LlamaServerBin = "definitely-not-installed-llama-server"
	if _, err := NewRuntime(cfg, zerolog.Nop()); err != nil {
		t.Fatalf("subprocess runtime: %v", err)
	}
	cfg.Runtime = "onnx"
	if _, err := NewRuntime(cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown runtime")
	}
}

func TestSubscribeEvents_SeesLoad(t *testing.T) {
	svc, _ := newTestService(t)
	events, cancel := svc.SubscribeEvents()
	defer cancel()
	if err := svc.Warmup(testCtx(t), nil); err != nil {
		t.Fatalf("warmup: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Name == "load_ready" {
				if e.Asset != "model.gguf" {
					t.Fatalf("asset=%q", e.Asset)
				}
				return
			}
		case <-deadline:
			t.Fatalf("no load_ready event")
		}
	}
}
