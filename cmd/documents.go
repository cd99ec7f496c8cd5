package cmd

import (
	"context"
	"fmt"

	"ragdesk/internal/api"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload RAG_ID FILE...",
	Short: "Upload documents to a RAG",
	Long:  `Upload one or more files to a RAG. Globs and ~ are expanded.`,
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, closeFiles, err := api.OpenFiles(args[1:])
		defer closeFiles()
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		ws, err := client.UploadDocuments(context.Background(), args[0], files)
		if err != nil {
			return fmt.Errorf("upload documents: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d file(s). %s now has %d document(s).\n", len(files), ws.Name, len(ws.Documents))
		return nil
	},
}

var rmDocCmd = &cobra.Command{
	Use:   "rm-doc RAG_ID DOC_ID",
	Short: "Delete a document from a RAG",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ws, err := client.DeleteDocument(context.Background(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s. %s now has %d document(s).\n", args[1], ws.Name, len(ws.Documents))
		return nil
	},
}

var indexCmd = &cobra.Command{
	Use:   "index RAG_ID",
	Short: "Build the retrieval index of a RAG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		msg, err := client.BuildIndex(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status RAG_ID",
	Short: "Report whether a RAG has a built index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		indexed, err := client.StorageStatus(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("storage status: %w", err)
		}
		if indexed {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: index built\n", args[0])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: no index\n", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd, rmDocCmd, indexCmd, statusCmd)
}
