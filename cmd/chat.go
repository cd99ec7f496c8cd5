package cmd

import (
	"context"
	"fmt"
	"strings"

	"ragdesk/internal/api"
	"ragdesk/internal/history"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var chatCmd = &cobra.Command{
	Use:   "chat RAG_ID MESSAGE...",
	Short: "Ask a RAG one question",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ragID := args[0]
		message := strings.TrimSpace(strings.Join(args[1:], " "))
		if message == "" {
			return fmt.Errorf("message must not be empty")
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

		ctx := context.Background()
		entry, recordErr := journal.Record(ctx, history.Entry{
			WorkspaceID: ragID,
			Role:        string(api.RoleUser),
			Content:     message,
			Status:      history.StatusPending,
		})
		if recordErr != nil {
			logger.Warn("history record failed", zap.Error(recordErr))
		}

		reply, chatErr := client.Chat(ctx, ragID, message)
		status := history.StatusDelivered
		if chatErr != nil {
			status = history.StatusFailed
		}
		if recordErr == nil {
			if err := journal.SetStatus(ctx, entry.ID, status); err != nil {
				logger.Warn("history status update failed", zap.Error(err))
			}
		}
		if chatErr != nil {
			return fmt.Errorf("chat: %w", chatErr)
		}
		if _, err := journal.Record(ctx, history.Entry{
			WorkspaceID: ragID,
			Role:        string(api.RoleAssistant),
			Content:     reply,
		}); err != nil {
			logger.Warn("history record failed", zap.Error(err))
		}

		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
