package cmd

import (
	"fmt"
	"os"

	"ragdesk/internal/api"
	"ragdesk/internal/config"
	"ragdesk/internal/history"
	"ragdesk/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flags   config.AppConfig
	cfg     config.AppConfig
	logger  = zap.NewNop()
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "ragdesk",
	Short: "Manage and chat with RAG workspaces from the terminal",
	Long: `ragdesk talks to a RAG backend over its REST API.

Run without a subcommand to open the interactive view, or use the
subcommands for scripting:

  ragdesk                         # interactive view
  ragdesk list -o yaml            # list RAGs
  ragdesk upload ng911 docs/*.pdf # upload documents
  ragdesk chat ng911 what is NG911?`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		resolved, err := config.Resolve(flags)
		if err != nil {
			return err
		}
		cfg = resolved

		l, err := logging.New(cfg.LogPath, cfg.Verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		logger.Debug("config resolved",
			zap.String("base_url", cfg.BaseURL),
			zap.Duration("timeout", cfg.Timeout),
			zap.String("history_db", cfg.HistoryDB),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runTUI,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.BaseURL, "url", "", "Backend base URL (env RAGDESK_URL, default "+config.DefaultBaseURL+")")
	pf.DurationVar(&flags.Timeout, "timeout", config.DefaultTimeout, "Per-request timeout, 0 disables it")
	pf.StringVar(&flags.Home, "home", "", "Data directory (env RAGDESK_HOME)")
	pf.StringVar(&flags.HistoryDB, "history-db", "", "Chat history database path")
	pf.StringVar(&flags.ExportDir, "export-dir", "", "Directory for exported transcripts")
	pf.StringVar(&flags.LogPath, "log", "", "Log file path")
	pf.StringVar(&flags.GlamourStyle, "style", config.DefaultGlamourStyle, "Markdown style for answers (dark, light, notty)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&flags.ResetHistory, "reset-history", false, "Drop the chat history before starting")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	// Registered up front so --version never swallows the next flag as a value.
	rootCmd.InitDefaultVersionFlag()
}

func newClient() (*api.Client, error) {
	return api.New(cfg.BaseURL, api.WithTimeout(cfg.Timeout), api.WithLogger(logger))
}

func openJournal() (*history.Journal, error) {
	j, err := history.Open(cfg.HistoryDB, cfg.ResetHistory)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return j, nil
}
