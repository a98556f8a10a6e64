package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultLlamaServerBin = "llama-server"
	defaultSpawnTimeout   = 30 * time.Second
	stopGrace             = 2 * time.Second
)

// SubprocessConfig configures the llama-server runtime.
type SubprocessConfig struct {
	Bin          string // binary name or path; defaults to llama-server on PATH
	Host         string // defaults to 127.0.0.1
	ExtraArgs    []string
	ReadyTimeout time.Duration
	Logger       zerolog.Logger
}

type subprocessRuntime struct {
	cfg    SubprocessConfig
	client *http.Client
}

// NewSubprocessRuntime returns a runtime that serves the model from a child
// llama-server process.
func NewSubprocessRuntime(cfg SubprocessConfig) Runtime {
	if strings.TrimSpace(cfg.Bin) == "" {
		cfg.Bin = defaultLlamaServerBin
	}
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultSpawnTimeout
	}
	// Timeout stays 0: every request carries its own context deadline.
	return &subprocessRuntime{cfg: cfg, client: &http.Client{Timeout: 0}}
}

type subprocessHandle struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

func (r *subprocessRuntime) Load(ctx context.Context, modelPath string, p ContextParams) (Handle, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	bin, err := exec.LookPath(r.cfg.Bin)
	if err != nil {
		return nil, ErrDependencyUnavailable(fmt.Sprintf("llama-server binary %q not found: %v", r.cfg.Bin, err))
	}
	port, err := pickFreePort(r.cfg.Host)
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s", net.JoinHostPort(r.cfg.Host, strconv.Itoa(port)))
	args := []string{
		"-m", modelPath,
		"--host", r.cfg.Host,
		"--port", strconv.Itoa(port),
		"-ngl", strconv.Itoa(p.GPULayers),
	}
	if p.ContextSize > 0 {
		args = append(args, "-c", strconv.Itoa(p.ContextSize))
	}
	if p.BatchSize > 0 {
		args = append(args, "-b", strconv.Itoa(p.BatchSize))
	}
	if p.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(p.Threads))
	}
	if p.UseMlock {
		args = append(args, "--mlock")
	}
	args = append(args, r.cfg.ExtraArgs...)

	cmd := exec.Command(bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start llama-server: %w", err)
	}
	log := r.cfg.Logger
	log.Info().Str("event", "spawn_start").Str("model", modelPath).Int("pid", cmd.Process.Pid).Str("url", baseURL).Msg("llama-server")

	h := &subprocessHandle{baseURL: baseURL, client: r.client, log: log, cmd: cmd, done: make(chan struct{})}
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(h.done)
	}()

	deadline := time.NewTimer(r.cfg.ReadyTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		if h.healthy(ctx, time.Second) {
			log.Info().Str("event", "spawn_ready").Int("pid", cmd.Process.Pid).Msg("llama-server")
			return h, nil
		}
		select {
		case <-h.done:
			tail := stderr.String()
			if len(tail) > 4096 {
				tail = tail[len(tail)-4096:]
			}
			log.Warn().Str("event", "spawn_exit").Err(waitErr).Msg("llama-server")
			return nil, fmt.Errorf("llama-server exited before ready: %v; stderr tail: %s", waitErr, tail)
		case <-ctx.Done():
			_ = h.Release()
			return nil, ctx.Err()
		case <-deadline.C:
			_ = h.Release()
			log.Warn().Str("event", "spawn_timeout").Int("pid", cmd.Process.Pid).Msg("llama-server")
			return nil, fmt.Errorf("llama-server not ready in time: %s", baseURL)
		case <-tick.C:
		}
	}
}

// healthy checks that llama-server answers /v1/models.
func (h *subprocessHandle) healthy(ctx context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (h *subprocessHandle) Complete(ctx context.Context, req CompletionRequest, onToken func(string) bool) (Completion, error) {
	return streamCompletion(ctx, h.client, h.log, h.baseURL, req, onToken)
}

// Release sends SIGTERM and kills the process if it has not exited within
// the grace period.
func (h *subprocessHandle) Release() error {
	h.mu.Lock()
	cmd := h.cmd
	h.cmd = nil
	h.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	select {
	case <-h.done:
		return nil
	default:
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-h.done:
	case <-time.After(stopGrace):
		_ = cmd.Process.Kill()
		<-h.done
	}
	h.log.Info().Str("event", "spawn_stop").Int("pid", cmd.Process.Pid).Msg("llama-server")
	return nil
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
