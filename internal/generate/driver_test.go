package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"sage/internal/manager"
	"sage/internal/prompt"
)

func TestGenerate_StreamsAndTrims(t *testing.T) {
	d, e := newTestDriver(" Paris", " is", " the", " capital", ".")
	var got []string
	text, err := d.Generate(context.Background(), "Capital of France?", nil, func(s string) { got = append(got, s) })
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "Paris is the capital." {
		t.Fatalf("text = %q", text)
	}
	if strings.Join(got, "") != " Paris is the capital." {
		t.Fatalf("streamed = %q", got)
	}
	if e.acquired != 1 || e.released != 1 {
		t.Fatalf("admission not balanced: acquired=%d released=%d", e.acquired, e.released)
	}
	req := e.handle.lastReq
	if req.MaxTokens != 80 || req.Temperature != 0.1 || req.TopP != 0.7 || req.TopK != 10 || len(req.Stop) != 7 {
		t.Fatalf("sampling params not forwarded: %+v", req)
	}
	if req.Prompt != prompt.Format("Capital of France?", nil) {
		t.Fatalf("unexpected prompt %q", req.Prompt)
	}
}

func TestGenerate_EmptyOutput(t *testing.T) {
	d, _ := newTestDriver()
	text, err := d.Generate(context.Background(), "hi", nil, nil)
	if err != nil || text != "" {
		t.Fatalf("Generate = %q, %v", text, err)
	}
}

func TestGenerate_SingleGibberishTokenDropped(t *testing.T) {
	d, _ := newTestDriver("Hello", "!!!!", " there")
	var got []string
	res, err := d.Run(context.Background(), Request{Message: "hi"}, func(s string) { got = append(got, s) })
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "Hello there" || res.Flagged != 1 || res.Cutoff {
		t.Fatalf("result = %+v", res)
	}
	for _, s := range got {
		if strings.Contains(s, "!!!!") {
			t.Fatalf("gibberish token was streamed: %q", got)
		}
	}
}

func TestGenerate_SecondGibberishStops(t *testing.T) {
	d, e := newTestDriver("Hi", "!!!!", "aaaa", " never")
	res, err := d.Run(context.Background(), Request{Message: "hi"}, nil)
	if err != nil {
		t.Fatalf("gibberish cutoff must not be an error: %v", err)
	}
	if res.Text != "Hi" || !res.Cutoff || res.Flagged != 2 {
		t.Fatalf("result = %+v", res)
	}
	if !e.handle.stopped {
		t.Fatalf("runtime callback should have returned false")
	}
}

func TestGenerate_GibberishCounterIsPerCall(t *testing.T) {
	d, e := newTestDriver("ok", "!!!!")
	for i := 0; i < 3; i++ {
		res, err := d.Run(context.Background(), Request{Message: "x"}, nil)
		if err != nil || res.Cutoff || res.Text != "ok" {
			t.Fatalf("call %d: %+v %v", i, res, err)
		}
	}
	if e.handle.stopped {
		t.Fatalf("a single flagged token per call must never stop generation")
	}
}

func TestGenerate_StopSequenceAcrossTokens(t *testing.T) {
	d, _ := newTestDriver("Answer", ".", "\n", "\n", "User", ":")
	var got []string
	res, err := d.Run(context.Background(), Request{Message: "x"}, func(s string) { got = append(got, s) })
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "Answer." || !res.Stopped {
		t.Fatalf("result = %+v", res)
	}
	if strings.Join(got, "") != "Answer." {
		t.Fatalf("streamed %q, stop text must never be emitted", got)
	}
}

func TestGenerate_StopSentinelInsideToken(t *testing.T) {
	d, _ := newTestDriver("Yes", ".<|im_end|>", "junk")
	res, err := d.Run(context.Background(), Request{Message: "x"}, nil)
	if err != nil || res.Text != "Yes." || !res.Stopped {
		t.Fatalf("Run = %+v, %v", res, err)
	}
}

func TestGenerate_HeldPrefixFlushedAtEnd(t *testing.T) {
	d, _ := newTestDriver("Total", "\n")
	var got []string
	res, err := d.Run(context.Background(), Request{Message: "x"}, func(s string) { got = append(got, s) })
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "") != "Total\n" || res.Text != "Total" || res.Stopped {
		t.Fatalf("streamed=%q result=%+v", got, res)
	}
}

func TestGenerate_SplitMultibyteRune(t *testing.T) {
	snow := "☃"
	d, _ := newTestDriver("a", snow[:1], snow[1:], "b")
	var got []string
	res, err := d.Run(context.Background(), Request{Message: "x"}, func(s string) { got = append(got, s) })
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range got {
		if !strings.HasPrefix(s, "a") && !strings.HasPrefix(s, snow) && s != "b" {
			t.Fatalf("emitted a split rune: %q", got)
		}
	}
	if res.Text != "a☃b" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestGenerate_FailureWrapsCause(t *testing.T) {
	cause := errors.New("llama_decode: Context is full")
	e := &fakeEngine{handle: &fakeHandle{tokens: []string{"partial"}, err: cause}}
	d := New(Config{Engine: e})
	_, err := d.Generate(context.Background(), "x", nil, nil)
	if !IsGenerationFailure(err) || !errors.Is(err, cause) {
		t.Fatalf("expected GenerationFailure wrapping cause, got %v", err)
	}
	if err.Error() != "Failed to generate response. The model may need to be reloaded. Please restart the app." {
		t.Fatalf("message = %q", err.Error())
	}
	if !IsContextFull(err) {
		t.Fatalf("context-full cause should be detectable through the wrapper")
	}
	if e.dropped != 0 {
		t.Fatalf("handle must be kept by default")
	}
}

func TestGenerate_ReleaseOnFailure(t *testing.T) {
	e := &fakeEngine{ensureErr: manager.InitializationFailure{Err: errors.New("bad file")}}
	d := New(Config{Engine: e, ReleaseOnFailure: true})
	_, err := d.Generate(context.Background(), "x", nil, nil)
	if !IsGenerationFailure(err) || !manager.IsInitializationFailure(err) {
		t.Fatalf("expected wrapped InitializationFailure, got %v", err)
	}
	if e.dropped != 1 {
		t.Fatalf("expected handle release on failure, got %d", e.dropped)
	}
}

func TestGenerate_TooBusyUnwrapped(t *testing.T) {
	e := &fakeEngine{acquireErr: manager.TooBusy{}}
	d := New(Config{Engine: e})
	_, err := d.Generate(context.Background(), "x", nil, nil)
	if !manager.IsTooBusy(err) || IsGenerationFailure(err) {
		t.Fatalf("expected bare TooBusy, got %v", err)
	}
}

func TestGenerate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := &fakeEngine{handle: &fakeHandle{tokens: []string{"a", "b", "c"}}}
	d := New(Config{Engine: e})
	n := 0
	_, err := d.Generate(ctx, "x", nil, func(string) {
		n++
		cancel()
	})
	if !errors.Is(err, context.Canceled) || IsGenerationFailure(err) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expected generation to stop after cancel, got %d tokens", n)
	}
}

func TestRun_PassageAndHistory(t *testing.T) {
	d, e := newTestDriver("ok")
	h := []prompt.Turn{{Role: prompt.RoleUser, Content: "earlier"}}
	if _, err := d.Run(context.Background(), Request{Message: "Who?", Passage: "Ada wrote it.", History: h}, nil); err != nil {
		t.Fatal(err)
	}
	if want := prompt.FormatWithContext("Who?", "Ada wrote it.", h); e.handle.lastReq.Prompt != want {
		t.Fatalf("prompt = %q want %q", e.handle.lastReq.Prompt, want)
	}
}

func TestUserMessage(t *testing.T) {
	full := GenerationFailure{Err: fmt.Errorf("java.lang.IllegalStateException: ctx")}
	if got := UserMessage(full); !strings.HasPrefix(got, "The conversation is too long.") {
		t.Fatalf("context-full message = %q", got)
	}
	got := UserMessage(errors.New("boom"))
	if got != "Error: boom\n\nTip: Try clearing the chat or restarting the app if this persists." {
		t.Fatalf("generic message = %q", got)
	}
}
