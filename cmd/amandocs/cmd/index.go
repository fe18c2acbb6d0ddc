package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/ui"
)

type indexOptions struct {
	include    []string
	exclude    []string
	noTUI      bool
	jsonOutput bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [scope]",
		Short: "Index new and changed files under a folder",
		Long: `Index the documents under a folder of the configured source.

Files whose modification time and size match the index are skipped, so
running index again only processes what changed. Only one build may run
per folder at a time; a second one reports "locked" and exits.

Press Ctrl+C to stop; files indexed so far are kept.`,
		Example: `  amandocs index
  amandocs index /contracts/2024
  amandocs index /contracts --exclude /contracts/archive --no-tui`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := ""
			if len(args) > 0 {
				scope = args[0]
			}
			return runIndex(cmd, scope, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.include, "include", nil, "Only index paths under these prefixes")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "Skip paths under these prefixes")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the build summary as JSON")

	return cmd
}

func runIndex(cmd *cobra.Command, scope string, opts indexOptions) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	// Progress goes to stderr when stdout carries JSON.
	progressOut := cmd.OutOrStdout()
	if opts.jsonOutput {
		progressOut = cmd.ErrOrStderr()
	}
	renderer := ui.NewRenderer(ui.NewConfig(progressOut,
		ui.WithForcePlain(opts.noTUI || opts.jsonOutput),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithScope(scope),
	))
	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start progress display: %w", err)
	}
	reporter := ui.NewReporter(renderer)

	sum, buildErr := svc.Build(ctx, index.BuildOptions{
		Scope:    scope,
		Include:  opts.include,
		Exclude:  opts.exclude,
		Progress: reporter.Progress,
		Warn:     reporter.Warn,
	})

	if sum != nil {
		renderer.Complete(ui.CompletionStats{
			Scope:    sum.Scope,
			Status:   string(sum.Status),
			Indexed:  sum.Indexed,
			Skipped:  sum.Skipped,
			Failed:   sum.Failed,
			Total:    sum.Total,
			Warnings: reporter.Warnings(),
			Duration: sum.Duration,
		})
	}
	_ = renderer.Stop()

	if buildErr != nil && !errors.Is(buildErr, ctx.Err()) {
		slog.Error("index_command_failed", slog.String("error", buildErr.Error()))
		return buildErr
	}
	if opts.jsonOutput && sum != nil {
		return output.New(cmd.OutOrStdout()).JSON(sum)
	}
	return nil
}
