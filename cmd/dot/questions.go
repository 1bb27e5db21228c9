package main

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/prominer44/Dare-or-truth/internal/models"
	"github.com/prominer44/Dare-or-truth/internal/store"
)

func newQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Question bank commands",
	}

	cmd.AddCommand(newQuestionsImportCmd())
	cmd.AddCommand(newQuestionsExportCmd())
	cmd.AddCommand(newQuestionsListCmd())
	cmd.AddCommand(newQuestionsEnableCmd())
	cmd.AddCommand(newQuestionsDisableCmd())
	return cmd
}

func newQuestionsImportCmd() *cobra.Command {
	var (
		configPath string
		category   string
		level      string
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Bulk-import questions from a numbered list",
		Long: `Reads a text file of questions and inserts them into the bank.

Items may be numbered ("1) ...", "2= ...", "3. ..."); unnumbered lines are
treated as one question per line. Whitespace is normalized and duplicates
(within the file and against the existing bank) are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuestionsImport(cmd, configPath, args[0], category, level)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dot.yaml", "path to config file")
	cmd.Flags().StringVar(&category, "category", "", "question category: truth or dare (required)")
	cmd.Flags().StringVar(&level, "level", "", "question level: normal or mature (required)")
	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("level")
	return cmd
}

func runQuestionsImport(cmd *cobra.Command, configPath, path, category, level string) error {
	out := cmd.OutOrStdout()

	if category != models.CategoryTruth && category != models.CategoryDare {
		return fmt.Errorf("category must be truth or dare, got %q", category)
	}
	if level != models.LevelNormal && level != models.LevelMature {
		return fmt.Errorf("level must be normal or mature, got %q", level)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	items := parseQuestionList(string(data))
	if len(items) == 0 {
		return fmt.Errorf("no questions found in %s", path)
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	st := store.New(gormDB)

	existing, err := st.ListQuestions(category, level)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, q := range existing {
		seen[dedupeKey(q.Text)] = true
	}

	fresh := make([]string, 0, len(items))
	skipped := 0
	for _, it := range items {
		key := dedupeKey(it)
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true
		fresh = append(fresh, it)
	}

	added, err := st.AddQuestions(category, level, fresh)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Imported %d %s/%s questions from %s", added, category, level, path)
	if skipped > 0 {
		fmt.Fprintf(out, " (%d duplicates skipped)", skipped)
	}
	fmt.Fprintln(out)
	return nil
}

// itemMarker matches the start of a numbered list item: "1)", "2=",
// "3.", "4:", "5-" or a bare number.
var itemMarker = regexp.MustCompile(`^\s*\d+\s*[).=:-]?\s*`)

// parseQuestionList extracts question texts from a numbered or
// line-per-item list. Continuation lines are folded into the preceding
// item; runs of whitespace collapse to a single space.
func parseQuestionList(text string) []string {
	lines := strings.Split(text, "\n")

	numbered := false
	for _, line := range lines {
		if itemMarker.MatchString(line) {
			numbered = true
			break
		}
	}

	var items []string
	flush := func(parts []string) {
		joined := normalizeWhitespace(strings.Join(parts, " "))
		if joined != "" {
			items = append(items, joined)
		}
	}

	if !numbered {
		for _, line := range lines {
			flush([]string{line})
		}
		return items
	}

	var current []string
	for _, line := range lines {
		if marker := itemMarker.FindString(line); marker != "" {
			if current != nil {
				flush(current)
			}
			current = []string{line[len(marker):]}
			continue
		}
		if current != nil && strings.TrimSpace(line) != "" {
			current = append(current, line)
		}
	}
	if current != nil {
		flush(current)
	}
	return items
}

// normalizeWhitespace trims and collapses internal whitespace runs.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// dedupeKey folds case so duplicate detection ignores capitalization.
func dedupeKey(s string) string {
	return strings.ToLower(normalizeWhitespace(s))
}

func newQuestionsExportCmd() *cobra.Command {
	var (
		configPath string
		category   string
		level      string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export questions as a numbered list",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			rows, err := store.New(gormDB).ListQuestions(category, level)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, q := range rows {
				fmt.Fprintf(out, "%d) %s\n", i+1, q.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dot.yaml", "path to config file")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&level, "level", "", "filter by level")
	return cmd
}

func newQuestionsListCmd() *cobra.Command {
	var (
		configPath string
		category   string
		level      string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List questions in the bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			rows, err := store.New(gormDB).ListQuestions(category, level)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No questions found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tLEVEL\tENABLED\tTEXT")
			for _, q := range rows {
				text := q.Text
				if len(text) > 60 {
					text = text[:57] + "..."
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%s\n", q.ID, q.Category, q.Level, q.Enabled, text)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dot.yaml", "path to config file")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&level, "level", "", "filter by level")
	return cmd
}

func newQuestionsEnableCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuestionsToggle(cmd, configPath, args[0], true)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dot.yaml", "path to config file")
	return cmd
}

func newQuestionsDisableCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a question without deleting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuestionsToggle(cmd, configPath, args[0], false)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dot.yaml", "path to config file")
	return cmd
}

func runQuestionsToggle(cmd *cobra.Command, configPath, rawID string, enabled bool) error {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid question ID: %w", err)
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := store.New(gormDB).SetQuestionEnabled(uint(id), enabled); err != nil {
		return err
	}

	verb := "Enabled"
	if !enabled {
		verb = "Disabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s question %d\n", verb, id)
	return nil
}
