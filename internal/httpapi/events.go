package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"sage/pkg/types"
)

// events streams manager lifecycle events as NDJSON until the client goes
// away, the server shuts down, or the subscription ends.
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, "events")

	ch, cancel := h.svc.SubscribeEvents()
	defer cancel()

	ctx, stop := joinContexts(r.Context(), serverBaseCtx)
	defer stop()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flush := func() {}
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
		flush()
	}
	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			logEnd(r, lvl, "events", http.StatusOK, start, nil)
			return
		case e, ok := <-ch:
			if !ok {
				logEnd(r, lvl, "events", http.StatusOK, start, nil)
				return
			}
			line := types.EventLine{Event: e.Name, Asset: e.Asset, Fields: e.Fields, TimeMS: time.Now().UnixMilli()}
			if err := enc.Encode(line); err != nil {
				logEnd(r, lvl, "events", http.StatusOK, start, err)
				return
			}
			flush()
		}
	}
}
