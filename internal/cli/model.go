package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sage/internal/common/fsutil"
	"sage/internal/service"
)

func newPullCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Download and validate the model without loading it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(service.Options{})
			if err != nil {
				return err
			}
			defer svc.Close()
			errw := cmd.ErrOrStderr()
			last := -1
			path, err := svc.Pull(cmd.Context(), func(pct float64) {
				if p := int(pct); p != last {
					last = p
					fmt.Fprintf(errw, "\rdownloading %3d%%", p)
				}
			})
			if last >= 0 {
				fmt.Fprintln(errw)
			}
			if err != nil {
				return err
			}
			size, _, _ := fsutil.FileSize(path)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", path, humanize.IBytes(uint64(size)))
			return nil
		},
	}
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List GGUF files in the model directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(service.Options{})
			if err != nil {
				return err
			}
			defer svc.Close()
			models, err := svc.ListModels()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(models) == 0 {
				fmt.Fprintf(out, "no models in %s (run 'sage pull')\n", a.cfg.ModelDir)
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACTIVE\tID\tQUANT\tSIZE")
			for _, m := range models {
				mark := ""
				if m.Active {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, m.ID, m.Quant, humanize.IBytes(uint64(m.SizeBytes)))
			}
			return tw.Flush()
		},
	}
}

func newClearCacheCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Delete the downloaded model file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(service.Options{})
			if err != nil {
				return err
			}
			defer svc.Close()
			if err := svc.ClearCache(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", svc.Manager().Asset().Path())
			return nil
		},
	}
}
