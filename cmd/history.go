package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the local chat history",
}

var historySearchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search chat history across RAGs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := openJournal()
		if err != nil {
			return err
		}
		defer journal.Close()

		hits, err := journal.Search(context.Background(), strings.Join(args, " "), historyLimit)
		if err != nil {
			return fmt.Errorf("search history: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(hits) == 0 {
			fmt.Fprintln(out, "No matches.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, headerStyle.Render("RAG")+"\t"+headerStyle.Render("MATCHES")+"\t"+
			headerStyle.Render("LAST")+"\t"+headerStyle.Render("PREVIEW"))
		for _, h := range hits {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				idStyle.Render(h.WorkspaceID),
				countStyle.Render(fmt.Sprint(h.Matches)),
				h.LastTS.Local().Format(time.DateTime),
				h.Preview,
			)
		}
		return tw.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show RAG_ID",
	Short: "Print the local history of one RAG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := openJournal()
		if err != nil {
			return err
		}
		defer journal.Close()

		entries, err := journal.Entries(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, e := range entries {
			fmt.Fprintf(out, "[%s] %s (%s): %s\n", e.TS.Local().Format(time.DateTime), e.Role, e.Status, e.Content)
		}
		return nil
	},
}

func init() {
	historySearchCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of RAGs to report")
	historyCmd.AddCommand(historySearchCmd, historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}
