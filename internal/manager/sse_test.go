package manager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func sseServer(t *testing.T, lines ...string) (*httptest.Server, *openAICompletionRequest) {
	t.Helper()
	var got openAICompletionRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range lines {
			_, _ = w.Write([]byte(l + "\n\n"))
			w.(http.Flusher).Flush()
		}
	}))
	t.Cleanup(ts.Close)
	return ts, &got
}

func frag(text string) string {
	b, _ := json.Marshal(map[string]any{"choices": []map[string]any{{"text": text}}})
	return "data: " + string(b)
}

func TestStreamCompletion_Basic(t *testing.T) {
	ts, got := sseServer(t, frag("Hel"), frag("lo"), ": keepalive", "data: not-json", "data: [DONE]", frag("ignored"))
	var toks []string
	c, err := streamCompletion(context.Background(), ts.Client(), zerolog.Nop(), ts.URL,
		CompletionRequest{Prompt: "p", MaxTokens: 80, Temperature: 0.1, TopP: 0.7, TopK: 10, Stop: []string{"\n\n"}},
		func(s string) bool { toks = append(toks, s); return true })
	if err != nil {
		t.Fatalf("streamCompletion: %v", err)
	}
	if strings.Join(toks, "|") != "Hel|lo" || c.Text != "Hello" || c.Tokens != 2 {
		t.Fatalf("unexpected result toks=%v completion=%+v", toks, c)
	}
	if !got.Stream || got.MaxTokens != 80 || got.TopK != 10 || len(got.Stop) != 1 {
		t.Fatalf("request not forwarded: %+v", *got)
	}
}

func TestStreamCompletion_ChatDeltaShape(t *testing.T) {
	ts, _ := sseServer(t, `data: {"choices":[{"delta":{"content":"Hi"},"finish_reason":"stop"}]}`)
	c, err := streamCompletion(context.Background(), ts.Client(), zerolog.Nop(), ts.URL, CompletionRequest{}, func(string) bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	if c.Text != "Hi" || c.FinishReason != "stop" {
		t.Fatalf("unexpected completion %+v", c)
	}
}

func TestStreamCompletion_CallbackStops(t *testing.T) {
	ts, _ := sseServer(t, frag("a"), frag("b"), frag("c"))
	n := 0
	c, err := streamCompletion(context.Background(), ts.Client(), zerolog.Nop(), ts.URL, CompletionRequest{}, func(string) bool {
		n++
		return n < 2
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || c.Text != "ab" || c.FinishReason != "callback" {
		t.Fatalf("n=%d completion=%+v", n, c)
	}
}

func TestStreamCompletion_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Context is full", http.StatusInternalServerError)
	}))
	defer ts.Close()
	_, err := streamCompletion(context.Background(), ts.Client(), zerolog.Nop(), ts.URL, CompletionRequest{}, func(string) bool { return true })
	if err == nil || !strings.Contains(err.Error(), "Context is full") {
		t.Fatalf("expected server message in error, got %v", err)
	}
}

func TestSubprocessHandle_CompleteWithoutProcess(t *testing.T) {
	ts, _ := sseServer(t, frag("ok"), "data: [DONE]")
	h := &subprocessHandle{baseURL: ts.URL, client: ts.Client(), log: zerolog.Nop()}
	c, err := h.Complete(context.Background(), CompletionRequest{Prompt: "x"}, func(string) bool { return true })
	if err != nil || c.Text != "ok" {
		t.Fatalf("Complete = %+v, %v", c, err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("Release without process: %v", err)
	}
}
