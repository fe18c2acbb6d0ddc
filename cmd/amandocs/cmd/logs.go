package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/logging"
	"github.com/Aman-CERP/amandocs/internal/ui"
)

type logsOptions struct {
	lines    int
	level    string
	runID    string
	contains string
	noColor  bool
	logFile  string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries",
		Long: `Show the last entries of ~/.amandocs/logs/amandocs.log.

Every index build logs a run_id; use --run to see a single build.`,
		Example: `  amandocs logs -n 100
  amandocs logs --level warn
  amandocs logs --run 0b6f6a52-8d0e-4c1a-9a55-1f3c2d9e7b41`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.runID, "run", "", "Only entries of one index build")
	cmd.Flags().StringVar(&opts.contains, "contains", "", "Only entries containing this text")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Path to log file")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	dir := logging.DefaultLogDir()
	if appConfig != nil {
		dir = appConfig.LogDir()
	}
	path, err := logging.FindLogFile(dir, opts.logFile)
	if err != nil {
		return err
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:    opts.level,
		RunID:    opts.runID,
		Contains: opts.contains,
		NoColor:  opts.noColor || ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()),
	}, cmd.OutOrStdout())

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Log file: %s\n---\n", path)
	viewer.Print(entries)
	return nil
}
