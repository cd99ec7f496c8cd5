package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var createModel string

var createCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a RAG",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(strings.Join(args, " "))
		if name == "" {
			return fmt.Errorf("name must not be empty")
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		ws, err := client.CreateWorkspace(context.Background(), name, createModel)
		if err != nil {
			return fmt.Errorf("create RAG: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", ws.Name, ws.ID)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete RAG_ID",
	Short: "Delete a RAG and its documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.DeleteWorkspace(context.Background(), args[0]); err != nil {
			return fmt.Errorf("delete RAG: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createModel, "model", "", "Model name (backend default when empty)")
	rootCmd.AddCommand(createCmd, deleteCmd)
}
