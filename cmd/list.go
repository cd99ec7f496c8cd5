package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"ragdesk/internal/api"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listOutput string

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))
	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)
	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List RAGs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		list, err := client.ListWorkspaces(context.Background())
		if err != nil {
			return fmt.Errorf("list RAGs: %w", err)
		}
		return writeWorkspaces(cmd.OutOrStdout(), list, listOutput)
	},
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.AddCommand(listCmd)
}

func writeWorkspaces(w io.Writer, list []api.Workspace, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(list); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		if len(list) == 0 {
			_, err := fmt.Fprintln(w, "No RAGs found.")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, headerStyle.Render("ID")+"\t"+headerStyle.Render("NAME")+"\t"+
			headerStyle.Render("MODEL")+"\t"+headerStyle.Render("DOCS")+"\t"+headerStyle.Render("MSGS"))
		for _, ws := range list {
			fmt.Fprintln(tw, idStyle.Render(ws.ID)+"\t"+ws.Name+"\t"+ws.Model+"\t"+
				countStyle.Render(strconv.Itoa(len(ws.Documents)))+"\t"+strconv.Itoa(len(ws.Messages)))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q (table, json, yaml)", format)
	}
}
