package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sage/internal/manager"
	"sage/internal/service"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear the saved conversation",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(service.Options{})
			if err != nil {
				return err
			}
			defer svc.Close()
			recs, err := svc.History(cmd.Context())
			if err != nil {
				return err
			}
			printTranscript(cmd.OutOrStdout(), recs)
			return nil
		},
	}, &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(service.Options{})
			if err != nil {
				return err
			}
			defer svc.Close()
			if err := svc.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	})
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sage version and build details",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sage %s (commit: %s, llama: %v)\n", Version, Commit, manager.LlamaBuilt)
		},
	}
}
