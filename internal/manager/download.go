package manager

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"sage/internal/common/fsutil"
)

// progressWriter counts bytes and reports percent complete through a
// throttled callback.
type progressWriter struct {
	total   int64
	written int64
	every   *rate.Sometimes
	report  func(float64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.total > 0 && w.report != nil {
		pct := float64(w.written) / float64(w.total) * 100
		w.every.Do(func() { w.report(pct) })
	}
	return len(p), nil
}

// download fetches the asset into <path>.part and renames it into place.
// Any failure removes the partial file.
func (m *Manager) download(ctx context.Context, progress ProgressFunc) (err error) {
	a := m.asset
	dest := a.Path()
	part := dest + ".part"
	start := time.Now()

	m.setState(StateDownloading, "")
	m.publish("download_start", map[string]any{"url": a.URL})
	m.log.Info().Str("event", "download_start").Str("url", a.URL).Str("path", dest).Msg("manager")

	defer func() {
		if err != nil {
			_ = fsutil.RemoveIfExists(part)
			m.metrics.downloads.WithLabelValues("error").Inc()
			m.publish("download_failed", map[string]any{"error": err.Error()})
			m.log.Error().Str("event", "download_failed").Err(err).Msg("manager")
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return fmt.Errorf("download request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", a.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return DownloadFailure{Status: resp.StatusCode}
	}

	f, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("create %s: %w", part, err)
	}
	pw := &progressWriter{
		total: resp.ContentLength,
		every: &rate.Sometimes{Interval: m.progressInterval},
		report: func(pct float64) {
			m.reportProgress(pct, progress)
		},
	}
	n, err := io.Copy(io.MultiWriter(f, pw), resp.Body)
	m.metrics.downloadBytes.Add(float64(n))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", part, err)
	}
	if resp.ContentLength > 0 {
		m.reportProgress(100, progress)
	}
	if err := os.Rename(part, dest); err != nil {
		return fmt.Errorf("rename %s: %w", part, err)
	}
	m.metrics.downloads.WithLabelValues("ok").Inc()
	m.publish("download_done", map[string]any{"bytes": n})
	m.log.Info().Str("event", "download_done").Str("size", humanize.IBytes(uint64(n))).Dur("took", time.Since(start)).Msg("manager")
	return nil
}

func (m *Manager) reportProgress(pct float64, progress ProgressFunc) {
	m.mu.Lock()
	m.progress = pct
	m.mu.Unlock()
	m.publish("download_progress", map[string]any{"percent": pct})
	if progress != nil {
		progress(pct)
	}
}
