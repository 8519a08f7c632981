package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/cip/cip"
	"github.com/s0up4200/cip/config"
	"github.com/s0up4200/cip/output"
)

// annotationSession controls how the root pre-run treats a command
const annotationSession = "session"

const (
	// sessionNone skips config and session setup
	sessionNone = "none"
	// sessionOptional tries to connect but carries on without a session
	sessionOptional = "optional"
)

var (
	cfgFile   string
	cfg       *config.Config
	logger    = zerolog.Nop()
	logCloser io.Closer
	client    *cip.Client
	formatter = output.NewConsoleFormatter()

	// Command flags
	jsonOutput bool

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cip",
	Short: "Browse and search Cumulus catalogs over CIP",
	Long: `cip is a CLI for the Canto Integration Platform (CIP) of a Cumulus DAM.
It lists catalogs, tables and layouts, runs quick and criteria searches,
filters the results client-side and prints asset metadata and preview URLs.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
}

// SetVersion records the build information shown by the version command
func SetVersion(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	// PersistentPostRunE does not run when a command fails
	closeSession(context.Background())

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

// initializeApp loads the configuration, sets up logging and opens the CIP session
func initializeApp(cmd *cobra.Command, args []string) error {
	mode := cmd.Annotations[annotationSession]
	if mode == sessionNone {
		return nil
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		if mode == sessionOptional {
			cfg = nil
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err = setupLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	client, err = cip.NewClient(cfg.ClientConfig(), logger, cip.WithTimeout(cfg.CIP.Timeout))
	if err != nil {
		return fmt.Errorf("failed to create CIP client: %w", err)
	}

	if err := client.Open(cmd.Context(), cfg.CIP.Username, cfg.CIP.Password); err != nil {
		if mode == sessionOptional {
			logger.Warn().Err(err).Msg("Could not open CIP session")
			return nil
		}
		return fmt.Errorf("failed to open session: %w", err)
	}

	logger.Debug().
		Str("endpoint", client.Endpoint()).
		Str("user", cfg.CIP.Username).
		Msg("Session opened")

	return nil
}

// shutdownApp closes the session after a successful command
func shutdownApp(cmd *cobra.Command, args []string) error {
	closeSession(cmd.Context())
	return nil
}

// closeSession ends the CIP session and flushes the log file. Failures are
// logged, never returned.
func closeSession(ctx context.Context) {
	if client != nil && client.IsConnected() {
		if err := client.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("Failed to close CIP session")
		}
	}
	client = nil

	if logCloser != nil {
		if err := logCloser.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
		logCloser = nil
	}
}

// printJSON writes v as indented JSON to the command output
func printJSON(cmd *cobra.Command, v any) error {
	return output.NewJSONFormatter(cmd.OutOrStdout()).Write(v)
}
