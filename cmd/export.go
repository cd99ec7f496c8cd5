package cmd

import (
	"context"
	"fmt"

	"ragdesk/internal/export"

	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportStdout bool
)

var exportCmd = &cobra.Command{
	Use:   "export RAG_ID",
	Short: "Export the stored conversation of a RAG",
	Long: `Export the conversation the backend keeps for a RAG.

Supported formats: md (markdown), json, yaml.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		list, err := client.ListWorkspaces(context.Background())
		if err != nil {
			return fmt.Errorf("list RAGs: %w", err)
		}
		var tr *export.Transcript
		for _, ws := range list {
			if ws.ID == args[0] {
				tr = &export.Transcript{
					WorkspaceID: ws.ID,
					Name:        ws.Name,
					Model:       ws.Model,
					Documents:   ws.Documents,
					Turns:       export.TurnsFromMessages(ws.Messages),
				}
				break
			}
		}
		if tr == nil {
			return fmt.Errorf("RAG %q not found", args[0])
		}

		if exportStdout {
			exporter, err := export.NewExporter(exportFormat)
			if err != nil {
				return err
			}
			return exporter.Export(*tr, cmd.OutOrStdout())
		}

		fe, err := export.NewFileExporter(cfg.ExportDir, exportFormat)
		if err != nil {
			return err
		}
		path, err := fe.Export(*tr)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d turn(s) to %s\n", len(tr.Turns), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Export format (md, json, yaml)")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "Write to stdout instead of the export directory")
	rootCmd.AddCommand(exportCmd)
}
