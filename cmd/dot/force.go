package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prominer44/Dare-or-truth/internal/models"
	"github.com/prominer44/Dare-or-truth/internal/store"
)

func newForceCmd() *cobra.Command {
	var (
		configPath string
		category   string
		level      string
	)

	cmd := &cobra.Command{
		Use:   "force <game> <user-id> <question text>",
		Short: "Queue a question for a specific player",
		Long: `Queues a question that will be served to the player on their next
matching pick, ahead of random selection. The game may be named by its
numeric ID or, for duo games, by its inline ref. An empty --category or
--level matches any pick.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForce(cmd, configPath, args[0], args[1], strings.Join(args[2:], " "), category, level)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dot.yaml", "path to config file")
	cmd.Flags().StringVar(&category, "category", "", "only serve on a truth or dare pick")
	cmd.Flags().StringVar(&level, "level", "", "only serve on a normal or mature pick")
	return cmd
}

func runForce(cmd *cobra.Command, configPath, gameRef, userID, text, category, level string) error {
	if category != "" && category != models.CategoryTruth && category != models.CategoryDare {
		return fmt.Errorf("category must be truth or dare, got %q", category)
	}
	if level != "" && level != models.LevelNormal && level != models.LevelMature {
		return fmt.Errorf("level must be normal or mature, got %q", level)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("question text is empty")
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	st := store.New(gormDB)

	gameID, err := resolveGame(st, gameRef)
	if err != nil {
		return err
	}

	if err := st.EnqueueForced(gameID, userID, category, level, text); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Queued question for %s in game %d\n", userID, gameID)
	return nil
}

// resolveGame accepts a numeric game ID or an inline ref.
func resolveGame(st *store.Store, ref string) (uint, error) {
	if id, err := strconv.ParseUint(ref, 10, 32); err == nil {
		return uint(id), nil
	}
	g, err := st.FindOpenGameByInlineRef(ref)
	if err != nil {
		return 0, err
	}
	if g == nil {
		return 0, fmt.Errorf("no open game with ref %q", ref)
	}
	return g.ID, nil
}
