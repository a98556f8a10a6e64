package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"sage/internal/httpapi"
	"sage/internal/service"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr           string
		warmup         bool
		maxBodyBytes   int64
		maxUploadBytes int64
		timeoutSec     int64
		shutdownGrace  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the sage HTTP API.

Endpoints: /healthz /readyz /status /models /events /metrics, POST /model/warmup,
POST /model/release, POST /chat (NDJSON), GET|DELETE /history,
GET|POST /documents, DELETE /documents/{id}, POST /documents/{id}/ask.

Examples:
  sage serve
  sage serve --addr 127.0.0.1:9090 --warmup
  SAGE_CORS_ENABLED=true SAGE_CORS_ORIGINS=http://localhost:5173 sage serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Addr
			}
			svc, err := a.service(service.Options{Registerer: prometheus.DefaultRegisterer})
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			httpapi.SetLogger(a.log)
			httpapi.SetRequestLogLevel(a.cfg.LogLevel)
			httpapi.SetBaseContext(ctx)
			httpapi.SetMaxBodyBytes(maxBodyBytes)
			httpapi.SetMaxUploadBytes(maxUploadBytes)
			httpapi.SetGenerateTimeoutSeconds(timeoutSec)
			httpapi.SetCORSOptions(a.cfg.CORSEnabled, a.cfg.CORSOrigins, nil, nil)

			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewMux(svc),
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			if warmup {
				go func() {
					if err := svc.Warmup(ctx, nil); err != nil && ctx.Err() == nil {
						a.log.Error().Str("event", "warmup_failed").Err(err).Msg("serve")
					}
				}()
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", addr).Str("model", svc.Manager().Asset().Path()).Msg("sage listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}
			a.log.Info().Msg("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				a.log.Warn().Err(err).Msg("graceful shutdown error")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "", "HTTP listen address (default from config, :8080)")
	f.BoolVar(&warmup, "warmup", false, "Download and load the model at startup")
	f.Int64Var(&maxBodyBytes, "max-body-bytes", 1<<20, "Maximum JSON request body size")
	f.Int64Var(&maxUploadBytes, "max-upload-bytes", 32<<20, "Maximum document upload size")
	f.Int64Var(&timeoutSec, "generate-timeout", 0, "Seconds before a chat or ask request is aborted (0 disables)")
	f.DurationVar(&shutdownGrace, "shutdown-grace", 5*time.Second, "Time allowed for in-flight requests on shutdown")
	return cmd
}
