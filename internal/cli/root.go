// Package cli implements the sage command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sage/internal/config"
	"sage/internal/logging"
	"sage/internal/manager"
	"sage/internal/service"
)

// Build metadata, set with -ldflags "-X sage/internal/cli.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
)

// app carries state shared by every command. runtime, when set, replaces
// the configured model backend.
type app struct {
	configFile string
	envFiles   []string
	overrides  map[string]string
	lookup     config.LookupFunc
	runtime    manager.Runtime

	cfg config.Config
	log zerolog.Logger
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := newRootCmd(&app{})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// flagEnv maps persistent flags onto the environment keys they override.
var flagEnv = map[string]string{
	"log-level":  config.EnvPrefix + "LOG_LEVEL",
	"log-format": config.EnvPrefix + "LOG_FORMAT",
	"data-dir":   config.EnvPrefix + "DATA_DIR",
	"model-dir":  config.EnvPrefix + "MODEL_DIR",
	"runtime":    config.EnvPrefix + "RUNTIME",
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sage",
		Short: "Chat with a small local language model",
		Long: `sage runs a quantized GGUF model on this machine and answers chat
messages with it. It can also answer questions about a text or PDF document.

The model is downloaded on first use into <data-dir>/models.

Configuration is layered: built-in defaults, --config file (yaml, json or
toml), .env files, SAGE_* environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configFile, "config", "c", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files to load; missing files are ignored")
	pf.String("log-level", "", "Log level: debug|info|warn|error|off")
	pf.String("log-format", "", "Log format: json|console")
	pf.String("data-dir", "", "Directory for the model cache and history database")
	pf.String("model-dir", "", "Directory holding the GGUF model")
	pf.String("runtime", "", "Model backend: llama|subprocess")

	root.AddCommand(
		newServeCmd(a),
		newChatCmd(a),
		newAskCmd(a),
		newDocCmd(a),
		newPullCmd(a),
		newModelsCmd(a),
		newClearCacheCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup resolves configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	a.overrides = map[string]string{}
	for name, key := range flagEnv {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			a.overrides[key] = f.Value.String()
		}
	}
	base := a.lookup
	if base == nil {
		base = os.LookupEnv
	}
	cfg, err := config.Resolve(config.Options{
		File:     a.configFile,
		EnvFiles: a.envFiles,
		Lookup: func(k string) (string, bool) {
			if v, ok := a.overrides[k]; ok {
				return v, true
			}
			return base(k)
		},
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg
	a.log, err = logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	return err
}

// service builds the core from the resolved configuration.
func (a *app) service(opts service.Options) (*service.Service, error) {
	opts.Config = a.cfg
	opts.Logger = a.log
	if opts.Runtime == nil {
		opts.Runtime = a.runtime
	}
	return service.New(opts)
}

// tokenPrinter streams text pieces to w.
func tokenPrinter(w io.Writer) func(string) {
	return func(s string) { _, _ = io.WriteString(w, s) }
}
