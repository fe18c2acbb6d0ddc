package cmd

import (
	"errors"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/preflight"
)

// errCheckFailed is returned when a required check fails.
var errCheckFailed = errors.New("system check failed")

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system requirements and diagnose issues",
		Long: `Run diagnostics before indexing.

Checks:
  - Free space in the data directory (100MB minimum)
  - Write permissions in the data directory
  - File descriptor limit (1024 minimum)
  - The source root can be listed
  - The embedder returns vectors (warning only)`,
		Example: `  amandocs doctor
  amandocs doctor --verbose
  amandocs doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// doctorReport is the JSON form of a doctor run.
type doctorReport struct {
	Status   string            `json:"status"`
	Checks   []doctorCheckJSON `json:"checks"`
	Warnings []string          `json:"warnings,omitempty"`
	Errors   []string          `json:"errors,omitempty"`
}

type doctorCheckJSON struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Required bool   `json:"required"`
	Details  string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command, verbose, jsonOutput bool) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	dataDir := svc.Config().DataDir()
	checker := preflight.New(
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	results := checker.RunAll(ctx, preflight.Target{
		DataDir:  dataDir,
		Source:   svc.Source(),
		Embedder: svc.Embedder(),
	})

	previous, hadMarker := preflight.LastPassed(dataDir)
	failed := checker.HasCriticalFailures(results)
	if !failed {
		_ = preflight.MarkPassed(dataDir)
	}

	if jsonOutput {
		if err := output.New(cmd.OutOrStdout()).JSON(toDoctorReport(checker, results)); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
		if hadMarker {
			cmd.Printf("\nPrevious successful check: %s\n", humanize.Time(previous))
		}
	}

	if failed {
		return errCheckFailed
	}
	return nil
}

func toDoctorReport(checker *preflight.Checker, results []preflight.CheckResult) doctorReport {
	report := doctorReport{
		Status: checker.SummaryStatus(results),
		Checks: make([]doctorCheckJSON, len(results)),
	}
	for i, r := range results {
		report.Checks[i] = doctorCheckJSON{
			Name:     r.Name,
			Status:   strings.ToLower(r.Status.String()),
			Message:  r.Message,
			Required: r.Required,
			Details:  r.Details,
		}
		switch {
		case r.IsCritical():
			report.Errors = append(report.Errors, r.Name+": "+r.Message)
		case r.Status != preflight.StatusPass:
			report.Warnings = append(report.Warnings, r.Name+": "+r.Message)
		}
	}
	return report
}
