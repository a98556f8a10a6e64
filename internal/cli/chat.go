package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sage/internal/generate"
	"sage/internal/history"
	"sage/internal/service"
	"sage/pkg/types"
)

func newChatCmd(a *app) *cobra.Command {
	var noHistory bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat over stdin",
		Long: `Start an interactive chat. Each line you type is one message.

The conversation is saved and the last six messages are sent as context.
Type /clear to forget the conversation and /exit (or end input) to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(service.Options{})
			if err != nil {
				return err
			}
			defer svc.Close()
			return runREPL(cmd, svc, !noHistory)
		},
	}
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not read or write the saved conversation")
	return cmd
}

func runREPL(cmd *cobra.Command, svc *service.Service, saved bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	var local []types.ChatTurn

	if saved {
		recs, err := svc.History(ctx)
		if err != nil {
			return err
		}
		printTranscript(out, recs)
	} else {
		fmt.Fprintf(out, "sage: %s\n", history.Welcome)
	}

	in := newLineReader(cmd.InOrStdin(), out, filepath.Join(svc.Config().DataDir, "chat_input_history"))
	defer in.Close()
	for {
		raw, err := in.ReadLine("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line := strings.TrimSpace(raw)
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/clear":
			local = nil
			if saved {
				if err := svc.ClearHistory(ctx); err != nil {
					return err
				}
			}
			fmt.Fprintln(out, "(conversation cleared)")
			continue
		}

		fmt.Fprint(out, "sage: ")
		final, err := chatTurn(ctx, svc, types.ChatRequest{Message: line, History: local, UseSavedHistory: saved}, out)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(out, "\n(interrupted)")
				continue
			}
			fmt.Fprintf(out, "\n%s\n", generate.UserMessage(err))
			continue
		}
		fmt.Fprintln(out)
		if !saved {
			local = append(local,
				types.ChatTurn{Role: "user", Content: line},
				types.ChatTurn{Role: "assistant", Content: final.Content})
		}
	}
}

// chatTurn runs one exchange. Ctrl-C while the answer streams (or the model
// downloads) cancels only this turn.
func chatTurn(ctx context.Context, svc *service.Service, req types.ChatRequest, out io.Writer) (types.StreamLine, error) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return svc.Chat(turnCtx, req, tokenPrinter(out))
}

func printTranscript(w io.Writer, recs []types.ChatRecord) {
	for _, r := range recs {
		who := "sage"
		if r.IsUser {
			who = "you"
		}
		fmt.Fprintf(w, "%s: %s\n", who, r.Text)
	}
}
