package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"sage/internal/generate"
	"sage/pkg/types"
)

// generateFunc runs one generation, passing text pieces to onToken, and
// returns the final line.
type generateFunc func(ctx context.Context, onToken func(string)) (types.StreamLine, error)

// ndjsonWriter writes StreamLines one per line. Headers are sent with the
// first line, so errors before any output can still use a status code.
type ndjsonWriter struct {
	w       http.ResponseWriter
	enc     *json.Encoder
	flush   func()
	started bool
}

func newNDJSONWriter(w http.ResponseWriter, r *http.Request, lvl LogLevel) *ndjsonWriter {
	out := io.Writer(w)
	if lvl >= LevelDebug {
		out = io.MultiWriter(w, &loggingLineWriter{rid: middleware.GetReqID(r.Context())})
	}
	nw := &ndjsonWriter{w: w, enc: json.NewEncoder(out), flush: func() {}}
	if f, ok := w.(http.Flusher); ok {
		nw.flush = f.Flush
	}
	return nw
}

func (nw *ndjsonWriter) send(line types.StreamLine) {
	if !nw.started {
		nw.w.Header().Set("Content-Type", "application/x-ndjson")
		nw.w.Header().Set("Cache-Control", "no-cache")
		nw.w.WriteHeader(http.StatusOK)
		nw.started = true
	}
	_ = nw.enc.Encode(line)
	nw.flush()
}

// serveStream runs gen and streams its output as NDJSON. Errors raised
// before the first token become JSON errors with a mapped status; later
// errors end the stream with an error line.
func serveStream(w http.ResponseWriter, r *http.Request, what string, gen generateFunc) {
	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, what)

	ctx, cancel := generationContext(r.Context())
	defer cancel()

	nw := newNDJSONWriter(w, r, lvl)
	tokens := 0
	final, err := gen(ctx, func(tok string) {
		tokens++
		nw.send(types.StreamLine{Token: tok})
	})
	if err != nil {
		// Client went away or server shutting down.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			observeStream(what, streamClientEnd, tokens)
			logEnd(r, lvl, what, 499, start, err)
			return
		}
		if !nw.started {
			status := writeError(w, err)
			observeStream(what, streamRejected, tokens)
			logEnd(r, lvl, what, status, start, err)
			return
		}
		msg := generate.UserMessage(err)
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "generation timed out"
		}
		nw.send(types.StreamLine{Done: true, Error: msg})
		observeStream(what, streamAborted, tokens)
		logEnd(r, lvl, what, http.StatusOK, start, err)
		return
	}
	nw.send(final)
	outcome := streamOK
	if final.Cutoff {
		outcome = streamCutoff
	}
	observeStream(what, outcome, tokens)
	logEnd(r, lvl, what, http.StatusOK, start, nil)
}
