package manager

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"sage/internal/common/fsutil"
)

func TestDownload_NotFoundLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	ts, _ := assetServer(t, http.StatusNotFound, nil)
	rt := &fakeRuntime{}
	m, pub := newTestManager(t, testAsset(dir, ts.URL), rt)

	_, err := m.EnsureReady(testCtx(t), nil)
	var df DownloadFailure
	if !IsDownloadFailure(err) {
		t.Fatalf("expected DownloadFailure, got %v", err)
	}
	if df, _ = err.(DownloadFailure); df.Status != 404 {
		t.Fatalf("expected status 404, got %d", df.Status)
	}
	if err.Error() != "Download failed with status code: 404" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	p := m.Asset().Path()
	if fsutil.PathExists(p) || fsutil.PathExists(p+".part") {
		t.Fatalf("partial files left behind")
	}
	if rt.loadCount() != 0 {
		t.Fatalf("runtime must not load after a failed download")
	}
	if !hasEvent(pub.Names(), "download_failed") {
		t.Fatalf("expected download_failed event: %v", pub.Names())
	}
}

func TestDownload_TooSmallIsIncomplete(t *testing.T) {
	dir := t.TempDir()
	ts, _ := assetServer(t, 200, make([]byte, testMinBytes-100))
	m, _ := newTestManager(t, testAsset(dir, ts.URL), &fakeRuntime{})

	_, err := m.EnsureReady(testCtx(t), nil)
	if !IsDownloadIncomplete(err) {
		t.Fatalf("expected DownloadIncomplete, got %v", err)
	}
	di := err.(DownloadIncomplete)
	if di.Got != testMinBytes-100 || di.Want != 2*testMinBytes {
		t.Fatalf("unexpected sizes: %+v", di)
	}
	if fsutil.PathExists(m.Asset().Path()) {
		t.Fatalf("incomplete download must be deleted")
	}
}

func TestDownload_ReportsProgressEndingAt100(t *testing.T) {
	dir := t.TempDir()
	ts, _ := assetServer(t, 200, make([]byte, 3*testMinBytes))
	m, _ := newTestManager(t, testAsset(dir, ts.URL), &fakeRuntime{})

	var mu sync.Mutex
	var got []float64
	_, err := m.EnsureReady(testCtx(t), func(p float64) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(got) == 0 || got[len(got)-1] != 100 {
		t.Fatalf("expected progress ending at 100, got %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("progress went backwards: %v", got)
		}
	}
}

func TestDownload_ThrottlesProgressToFirstAndFinal(t *testing.T) {
	const chunk, chunks = 4096, 64
	dir := t.TempDir()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(chunk*chunks))
		w.WriteHeader(http.StatusOK)
		buf := make([]byte, chunk)
		for i := 0; i < chunks; i++ {
			_, _ = w.Write(buf)
			w.(http.Flusher).Flush()
		}
	}))
	defer ts.Close()
	m := New(ManagerConfig{
		Asset:            testAsset(dir, ts.URL),
		Runtime:          &fakeRuntime{},
		ProgressInterval: time.Hour,
		MaxWait:          200 * time.Millisecond,
	})

	var got []float64
	if _, err := m.Fetch(testCtx(t), func(p float64) { got = append(got, p) }); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected exactly 2 progress callbacks, got %d: %v", len(got), got)
	}
	if got[0] <= 0 || got[0] >= 100 {
		t.Fatalf("first report should be partial, got %v", got[0])
	}
	if got[1] != 100 {
		t.Fatalf("final report should be 100, got %v", got[1])
	}
}

func TestDownload_UnknownLengthSkipsProgress(t *testing.T) {
	dir := t.TempDir()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush() // forces chunked encoding
		_, _ = w.Write(make([]byte, testMinBytes))
	}))
	defer ts.Close()
	m, _ := newTestManager(t, testAsset(dir, ts.URL), &fakeRuntime{})

	calls := 0
	if _, err := m.EnsureReady(testCtx(t), func(float64) { calls++ }); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no progress callbacks, got %d", calls)
	}
}

func TestDownload_TransportErrorCleansUp(t *testing.T) {
	dir := t.TempDir()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100000")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(make([]byte, 10))
		// Hijack and close so the client sees an unexpected EOF.
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, _ := hj.Hijack()
			_ = conn.Close()
		}
	}))
	defer ts.Close()
	m, _ := newTestManager(t, testAsset(dir, ts.URL), &fakeRuntime{})

	_, err := m.EnsureReady(testCtx(t), nil)
	if err == nil {
		t.Fatalf("expected error from truncated body")
	}
	p := m.Asset().Path()
	if fsutil.PathExists(p) || fsutil.PathExists(p+".part") {
		t.Fatalf("partial files left behind")
	}
}
