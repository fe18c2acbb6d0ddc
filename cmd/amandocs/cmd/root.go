// Package cmd provides the CLI commands for amandocs.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/config"
	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/logging"
	"github.com/Aman-CERP/amandocs/internal/service"
	"github.com/Aman-CERP/amandocs/pkg/version"
)

// skipConfig marks commands that run without loading configuration.
const skipConfig = "skip-config"

var (
	debugMode      bool
	workDir        string
	appConfig      *config.Config
	loggingCleanup func()
)

// NewRootCmd creates the root command for amandocs CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amandocs",
		Short: "Text and semantic search over a remote document store",
		Long: `amandocs indexes the documents of a local folder tree or an S3-compatible
bucket and answers queries by exact phrase, character n-grams and,
optionally, embedding similarity.

Typical flow:
  amandocs index /contracts       # index new and changed files
  amandocs search "秘密保持契約"    # query the index
  amandocs status /contracts      # indexed count and build lock`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("amandocs version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.amandocs/logs/")
	cmd.PersistentFlags().StringVar(&workDir, "dir", ".", "Directory holding .amandocs.yaml")

	cmd.PersistentPreRunE = loadConfigAndLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newUnlockCmd())
	cmd.AddCommand(newStorageCmd())
	cmd.AddCommand(newResetCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfigAndLogging loads configuration and starts file logging.
func loadConfigAndLogging(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}
	appConfig = cfg

	logCfg := logging.Config{
		Level:       cfg.Logging.Level,
		Dir:         cfg.LogDir(),
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxFiles:    cfg.Logging.MaxFiles,
		StderrLevel: "warn",
	}
	if debugMode {
		logCfg.Level = "debug"
	}

	if cmd.Name() == "serve" {
		loggingCleanup, err = logging.SetupServeMode(logCfg)
	} else {
		loggingCleanup, err = logging.SetupDefault(logCfg)
	}
	if err != nil {
		// Logging is best effort; the command still runs.
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: file logging disabled: %v\n", err)
		loggingCleanup = nil
		return nil
	}
	slog.Debug("command_started",
		slog.String("command", cmd.CommandPath()),
		slog.String("version", version.Version))
	return nil
}

// stopLogging flushes and closes the log file.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command and prints errors in CLI form.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, amanerrors.FormatForCLI(err))
	}
	return err
}

// openService opens the index service for the loaded configuration.
func openService() (*service.IndexService, error) {
	if appConfig == nil {
		return nil, amanerrors.ConfigError("configuration not loaded", nil)
	}
	return service.New(appConfig)
}

// signalContext cancels on Ctrl+C or SIGTERM so builds stop between files.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
