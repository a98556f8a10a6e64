package manager

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// createModelFile writes size bytes at dir/name and returns the path.
func createModelFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return p
}

type fakeRuntime struct {
	mu      sync.Mutex
	loadErr error
	loads   int32
	paths   []string
	params  ContextParams
	tokens  []string
	delay   time.Duration
	relErr  error
	handles []*fakeHandle
}

func (f *fakeRuntime) Load(ctx context.Context, path string, p ContextParams) (Handle, error) {
	atomic.AddInt32(&f.loads, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	f.params = p
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	h := &fakeHandle{tokens: f.tokens, relErr: f.relErr}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeRuntime) loadCount() int { return int(atomic.LoadInt32(&f.loads)) }

type fakeHandle struct {
	tokens   []string
	relErr   error
	released int32
}

func (h *fakeHandle) Complete(ctx context.Context, req CompletionRequest, onToken func(string) bool) (Completion, error) {
	var c Completion
	for _, t := range h.tokens {
		if err := ctx.Err(); err != nil {
			return c, err
		}
		c.Text += t
		c.Tokens++
		if !onToken(t) {
			break
		}
	}
	return c, nil
}

func (h *fakeHandle) Release() error {
	atomic.AddInt32(&h.released, 1)
	return h.relErr
}

// assetServer serves body at /model.gguf with the given status and counts
// hits.
func assetServer(t *testing.T, status int, body []byte) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if status != http.StatusOK {
			http.Error(w, "nope", status)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

const testMinBytes = 4096

func testAsset(dir, url string) Asset {
	return Asset{Filename: "model.gguf", URL: url, Dir: dir, MinBytes: testMinBytes, NominalBytes: 2 * testMinBytes}
}

func newTestManager(t *testing.T, a Asset, rt Runtime) (*Manager, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	m := New(ManagerConfig{
		Asset:            a,
		Runtime:          rt,
		ProgressInterval: time.Nanosecond,
		MaxWait:          200 * time.Millisecond,
		Publisher:        pub,
	})
	return m, pub
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func hasEvent(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

var errLoad = errors.New("bad magic")
