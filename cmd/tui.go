package cmd

import (
	"fmt"

	"ragdesk/internal/export"
	"ragdesk/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive view (default)",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	journal, err := openJournal()
	if err != nil {
		return err
	}
	defer journal.Close()

	exporter, err := export.NewFileExporter(cfg.ExportDir, "md")
	if err != nil {
		return err
	}

	logger.Info("starting interactive view", zap.String("base_url", client.BaseURL()))
	m := ui.NewModel(ui.Options{
		Config:   cfg,
		Backend:  client,
		Journal:  journal,
		Exporter: exporter,
		Logger:   logger,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
