package gateway

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prominer44/Dare-or-truth/internal/game"
	"github.com/prominer44/Dare-or-truth/internal/models"
)

// Action ids carried in button presses. The bot maps these back to game
// events; the settings and pick families carry their argument segments in
// the id itself.
const (
	ActionJoin    = "join"
	ActionStart   = "start"
	ActionSkip    = "skip"
	ActionEnd     = "end"
	ActionReroll  = "reroll"
	ActionPrev    = "prev"
	ActionDone    = "done"
	ActionRefuse  = "refuse"
	ActionConfirm = "confirm" // confirm:yes, confirm:no
	ActionPick    = "pick"    // pick:<category>:<level>
	ActionView    = "view"    // view:<main|settings|players|stats>
	ActionSet     = "set"     // set:<midjoin|prev|mature>:<on|off>
	ActionBump    = "bump"
)

const questionDisplayLimit = 900

// Render builds the full board view for a state snapshot. The reroll
// counter on the pick keyboard reflects the current player, since only
// they can press it.
func Render(st *game.State, turnTimeout time.Duration) View {
	return View{
		Text: renderText(st, turnTimeout),
		Rows: renderRows(st),
	}
}

func renderText(st *game.State, turnTimeout time.Duration) string {
	g := &st.Game
	var b strings.Builder

	fmt.Fprintf(&b, "Truth or Dare — game %d\n", g.ID)
	fmt.Fprintf(&b, "%d players | %ds per turn\n", st.ActiveCount(), int(turnTimeout.Seconds()))
	fmt.Fprintf(&b, "Players: %s\n", playersLine(st))
	b.WriteString("-----\n")

	switch g.View {
	case models.ViewSettings:
		b.WriteString("Settings\n")
		fmt.Fprintf(&b, "Mid-game joining: %s\n", onOff(g.AllowMidJoin))
		fmt.Fprintf(&b, "Previous question: %s\n", onOff(g.ShowPrevious))
		fmt.Fprintf(&b, "Mature questions: %s\n", onOff(g.AllowMature))
		b.WriteString("\nPress Back to return to the board.")
		return b.String()

	case models.ViewPlayers:
		b.WriteString("Players\n")
		if st.ActiveCount() == 0 {
			b.WriteString("(none)\n")
		}
		for i, p := range st.Players {
			fmt.Fprintf(&b, "%d) %s | rerolls %d | skips %d | penalties %d\n",
				i+1, p.Name, p.RerollsLeft, p.SkipsUsed, p.Penalties)
		}
		b.WriteString("\nPress Back to return to the board.")
		return b.String()

	case models.ViewStats:
		b.WriteString("Game stats\n")
		for _, p := range st.Players {
			fmt.Fprintf(&b, "- %s: turns %d | penalties %d | skips %d | rerolls left %d\n",
				p.Name, p.Turns, p.Penalties, p.SkipsUsed, p.RerollsLeft)
		}
		if q := strings.TrimSpace(g.LastQuestion); q != "" {
			fmt.Fprintf(&b, "\nLast question:\n%s\n", truncate(q, 600))
		}
		b.WriteString("\nPress Back to return to the board.")
		return b.String()
	}

	// Main view.
	switch g.Status {
	case models.StatusLobby:
		b.WriteString("Lobby\n")
		b.WriteString("- Press Join to play.\n")
		b.WriteString("- Only the owner can start the game.\n")
		b.WriteString("\nThis message is the board and updates in place.")
		return b.String()
	case models.StatusEnded:
		b.WriteString("Game over. Create a new game to play again.")
		return b.String()
	}

	cur := st.Current()
	if cur == nil {
		b.WriteString("No players left.")
		return b.String()
	}

	fmt.Fprintf(&b, "Turn: %s\n", cur.Name)
	fmt.Fprintf(&b, "Phase: %s\n\n", phaseLabel(g.Phase))

	switch g.Phase {
	case models.PhaseChoose:
		b.WriteString("Pick your question type.")
	case models.PhaseQuestion:
		if st.Last != nil {
			fmt.Fprintf(&b, "%s | %s\n\n", categoryLabel(st.Last.Category), levelLabel(st.Last.Level))
			b.WriteString(truncate(st.Last.Text, questionDisplayLimit))
		} else {
			b.WriteString("No question on record.")
		}
	case models.PhaseWaitConfirm:
		b.WriteString("Waiting for the other player to confirm...\n\n")
		if st.Last != nil {
			b.WriteString(truncate(st.Last.Text, 700))
		}
	}
	return b.String()
}

// renderRows lays the board out in at most four rows of at most five
// buttons each: navigation, one phase row, an optional extras row, and
// the skip/end/bump row. Discord rejects a message with more than five
// action rows, so the layout must stay inside that cap in every phase.
func renderRows(st *game.State) [][]Button {
	g := &st.Game
	if g.View == models.ViewSettings {
		return settingsRows(g)
	}

	var rows [][]Button
	rows = append(rows, []Button{
		{Action: ActionJoin, Label: fmt.Sprintf("Join (%d)", st.ActiveCount()), Style: "primary"},
		{Action: "view:settings", Label: "Settings"},
		{Action: "view:players", Label: "Players"},
		{Action: "view:stats", Label: "Stats"},
	})

	// Start is shown to everyone; non-owners get a toast on press.
	if g.Status == models.StatusLobby {
		rows = append(rows, []Button{{Action: ActionStart, Label: "Start game", Style: "primary"}})
	}

	if g.Status == models.StatusRunning {
		switch g.Phase {
		case models.PhaseChoose:
			picks := []Button{
				{Action: "pick:truth:normal", Label: "Truth"},
				{Action: "pick:dare:normal", Label: "Dare"},
			}
			if g.AllowMature {
				picks = append(picks,
					Button{Action: "pick:truth:mature", Label: "Truth 18+"},
					Button{Action: "pick:dare:mature", Label: "Dare 18+"},
				)
			}
			picks = append(picks, Button{Action: "pick:random:random", Label: "Random"})
			rows = append(rows, picks)

			var extras []Button
			if cur := st.Current(); cur != nil && cur.RerollsLeft > 0 {
				extras = append(extras, Button{
					Action: ActionReroll,
					Label:  fmt.Sprintf("Reroll (%d left)", cur.RerollsLeft),
				})
			}
			if g.ShowPrevious && g.LastQuestion != "" {
				extras = append(extras, Button{Action: ActionPrev, Label: "Previous question"})
			}
			if len(extras) > 0 {
				rows = append(rows, extras)
			}
		case models.PhaseQuestion:
			rows = append(rows, []Button{
				{Action: ActionDone, Label: "Done", Style: "primary"},
				{Action: ActionRefuse, Label: "Refuse", Style: "danger"},
			})
		case models.PhaseWaitConfirm:
			rows = append(rows, []Button{
				{Action: "confirm:yes", Label: "Approve", Style: "primary"},
				{Action: "confirm:no", Label: "Reject", Style: "danger"},
			})
		}
	}

	rows = append(rows, []Button{
		{Action: ActionSkip, Label: "Skip turn"},
		{Action: ActionEnd, Label: "End game", Style: "danger"},
		{Action: ActionBump, Label: "Move to bottom"},
	})
	return rows
}

func settingsRows(g *models.Game) [][]Button {
	toggle := func(on bool) string {
		if on {
			return "off"
		}
		return "on"
	}
	return [][]Button{
		{{Action: "set:midjoin:" + toggle(g.AllowMidJoin), Label: "Mid-game joining: " + onOff(g.AllowMidJoin)}},
		{{Action: "set:prev:" + toggle(g.ShowPrevious), Label: "Previous question: " + onOff(g.ShowPrevious)}},
		{{Action: "set:mature:" + toggle(g.AllowMature), Label: "Mature questions: " + onOff(g.AllowMature)}},
		{{Action: "view:main", Label: "Back"}},
	}
}

func playersLine(st *game.State) string {
	if st.ActiveCount() == 0 {
		return "(none)"
	}
	names := make([]string, 0, 8)
	for i, p := range st.Players {
		if i == 8 {
			break
		}
		names = append(names, p.Name)
	}
	line := strings.Join(names, ", ")
	if extra := st.ActiveCount() - len(names); extra > 0 {
		line += fmt.Sprintf(" +%d", extra)
	}
	return line
}

func phaseLabel(phase string) string {
	switch phase {
	case models.PhaseChoose:
		return "choosing"
	case models.PhaseQuestion:
		return "answering"
	case models.PhaseWaitConfirm:
		return "confirming"
	default:
		return phase
	}
}

func categoryLabel(category string) string {
	switch category {
	case models.CategoryTruth:
		return "Truth"
	case models.CategoryDare:
		return "Dare"
	default:
		return category
	}
}

func levelLabel(level string) string {
	if level == models.LevelMature {
		return "18+"
	}
	return "normal"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// truncate cuts s to at most n bytes without splitting a UTF-8 rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
