package httpapi

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger used by the HTTP layer.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l.With().Str("component", "http").Logger() }

// loggingLineWriter logs complete NDJSON lines at debug level.
type loggingLineWriter struct {
	buf []byte
	rid string
}

func (lw *loggingLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if idx > 0 {
			zlog.Debug().Str("request_id", lw.rid).RawJSON("line", lw.buf[:idx]).Msg("stream")
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "off", "":
		return LevelOff
	case "error", "warn":
		return LevelError
	case "info":
		return LevelInfo
	case "debug", "trace":
		return LevelDebug
	default:
		return LevelInfo
	}
}

var defaultLogLevel = LevelInfo

// SetRequestLogLevel sets the level used when a request carries no
// override.
func SetRequestLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logStart and logEnd bracket a streaming request.
func logStart(r *http.Request, lvl LogLevel, what string) {
	if lvl < LevelInfo {
		return
	}
	zlog.Info().Str("path", r.URL.Path).Str("request_id", middleware.GetReqID(r.Context())).Msg(what + " start")
}

func logEnd(r *http.Request, lvl LogLevel, what string, status int, start time.Time, err error) {
	switch {
	case lvl >= LevelInfo:
	case lvl >= LevelError && err != nil:
	default:
		return
	}
	e := zlog.Info()
	if err != nil {
		e = zlog.Error().Err(err)
	}
	e.Int("status", status).Dur("dur", time.Since(start)).Str("request_id", middleware.GetReqID(r.Context())).Msg(what + " end")
}
