package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sage/internal/service"
	"sage/pkg/types"
)

func newAskCmd(a *app) *cobra.Command {
	var useHistory bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Example: `  sage ask "What is the capital of France?"
  sage ask --history "And of Italy?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(service.Options{})
			if err != nil {
				return err
			}
			defer svc.Close()
			out := cmd.OutOrStdout()
			_, err = svc.Chat(cmd.Context(), types.ChatRequest{
				Message:         strings.Join(args, " "),
				UseSavedHistory: useHistory,
			}, tokenPrinter(out))
			fmt.Fprintln(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&useHistory, "history", false, "Use and extend the saved conversation")
	return cmd
}

func newDocCmd(a *app) *cobra.Command {
	var (
		showContext bool
		passages    int
	)
	cmd := &cobra.Command{
		Use:   "doc <file> <question>",
		Short: "Answer a question about a text or PDF file",
		Long: `Index a text or PDF file and answer a question about it. The passages
that best match the question are given to the model as context.`,
		Example: `  sage doc report.pdf "Who wrote the report?"
  sage doc --show-context --passages 3 notes.txt "When is the deadline?"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			svc, err := a.service(service.Options{})
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx := cmd.Context()
			doc, err := svc.IngestDocument(ctx, filepath.Base(path), "", data)
			if err != nil {
				return err
			}
			if doc.Warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", doc.Warning)
			}
			out := cmd.OutOrStdout()
			final, err := svc.Ask(ctx, doc.ID, types.AskRequest{
				Question: strings.Join(args[1:], " "),
				Passages: passages,
			}, tokenPrinter(out))
			fmt.Fprintln(out)
			if err != nil {
				return err
			}
			if showContext && final.Passage != "" {
				fmt.Fprintf(out, "\n--- context ---\n%s\n", final.Passage)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showContext, "show-context", false, "Print the passages used as context")
	cmd.Flags().IntVar(&passages, "passages", 1, "Number of best-matching passages to use as context")
	return cmd
}
