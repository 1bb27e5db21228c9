package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/prominer44/Dare-or-truth/internal/store"
)

func newSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Moderate player-suggested questions",
	}

	cmd.AddCommand(newSuggestPendingCmd())
	cmd.AddCommand(newSuggestReviewCmd("approve", "Approve a suggestion into the question bank", true))
	cmd.AddCommand(newSuggestReviewCmd("reject", "Reject a suggestion", false))
	return cmd
}

func newSuggestPendingCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List suggestions awaiting review",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			rows, err := store.New(gormDB).PendingSuggestions(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No pending suggestions")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFROM\tCATEGORY\tLEVEL\tTEXT")
			for _, sg := range rows {
				text := sg.Text
				if len(text) > 60 {
					text = text[:57] + "..."
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", sg.ID, sg.UserID, sg.Category, sg.Level, text)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dot.yaml", "path to config file")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum suggestions to list")
	return cmd
}

func newSuggestReviewCmd(use, short string, approve bool) *cobra.Command {
	var (
		configPath string
		reviewer   string
	)

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid suggestion ID: %w", err)
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := store.New(gormDB).ReviewSuggestion(uint(id), approve, reviewer); err != nil {
				return err
			}

			verb := "Rejected"
			if approve {
				verb = "Approved"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s suggestion %d\n", verb, id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dot.yaml", "path to config file")
	cmd.Flags().StringVar(&reviewer, "reviewer", "cli", "reviewer ID recorded on the suggestion")
	return cmd
}
