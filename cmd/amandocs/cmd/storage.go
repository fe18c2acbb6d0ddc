package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/ui"
)

func newStorageCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Show the disk usage of the index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			sizes := svc.Accountant().Sizes()
			r := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
			if jsonOutput {
				return r.RenderJSON(sizes)
			}
			r.RenderStorage(toStorageInfo(sizes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the whole index",
		Long: `Delete the text index, the vectors and all build locks. Every
folder has to be indexed again afterwards.

Requires --yes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			if !yes {
				out.Warning("This deletes the whole index. Run again with --yes to confirm.")
				return nil
			}

			svc, err := openService()
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			freed, err := svc.Accountant().Reset(cmd.Context())
			if err != nil {
				return err
			}
			out.Successf("Index deleted, freed %s", ui.FormatBytes(freed))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	return cmd
}
