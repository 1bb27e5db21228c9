package gateway

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prominer44/Dare-or-truth/internal/game"
	"github.com/prominer44/Dare-or-truth/internal/models"
)

func boardState(status, phase, view string) *game.State {
	return &game.State{
		Game: models.Game{
			Kind:         models.KindGroup,
			Status:       status,
			Phase:        phase,
			View:         view,
			OwnerID:      "A",
			AllowMidJoin: true,
			ShowPrevious: true,
			AllowMature:  true,
		},
		Players: []models.Player{
			{UserID: "A", Name: "Alice", Active: true, RerollsLeft: 3},
			{UserID: "B", Name: "Bob", Active: true, RerollsLeft: 2},
		},
	}
}

func hasAction(rows [][]Button, action string) bool {
	for _, row := range rows {
		for _, b := range row {
			if b.Action == action {
				return true
			}
		}
	}
	return false
}

func TestRender_Lobby(t *testing.T) {
	st := boardState(models.StatusLobby, models.PhaseLobby, models.ViewMain)
	v := Render(st, 60*time.Second)

	if !strings.Contains(v.Text, "Lobby") {
		t.Errorf("text missing lobby header:\n%s", v.Text)
	}
	if !strings.Contains(v.Text, "60s per turn") {
		t.Errorf("text missing timeout:\n%s", v.Text)
	}
	if !hasAction(v.Rows, ActionStart) {
		t.Error("lobby board has no start button")
	}
	if hasAction(v.Rows, "pick:truth:normal") {
		t.Error("lobby board shows pick buttons")
	}
}

func TestRender_ChoosePhase(t *testing.T) {
	st := boardState(models.StatusRunning, models.PhaseChoose, models.ViewMain)
	st.Game.LastQuestion = "earlier question"
	v := Render(st, 60*time.Second)

	for _, want := range []string{"pick:truth:normal", "pick:dare:mature", "pick:random:random", ActionReroll, ActionPrev} {
		if !hasAction(v.Rows, want) {
			t.Errorf("choose board missing %q", want)
		}
	}
	if !strings.Contains(v.Text, "Turn: Alice") {
		t.Errorf("text missing current player:\n%s", v.Text)
	}
}

func TestRender_MatureDisabledHidesButtons(t *testing.T) {
	st := boardState(models.StatusRunning, models.PhaseChoose, models.ViewMain)
	st.Game.AllowMature = false
	v := Render(st, 60*time.Second)

	if hasAction(v.Rows, "pick:truth:mature") || hasAction(v.Rows, "pick:dare:mature") {
		t.Error("mature pick buttons shown with mature disabled")
	}
}

func TestRender_RerollHiddenWhenExhausted(t *testing.T) {
	st := boardState(models.StatusRunning, models.PhaseChoose, models.ViewMain)
	st.Players[0].RerollsLeft = 0
	v := Render(st, 60*time.Second)

	if hasAction(v.Rows, ActionReroll) {
		t.Error("reroll button shown with no rerolls left")
	}
}

func TestRender_QuestionPhase(t *testing.T) {
	st := boardState(models.StatusRunning, models.PhaseQuestion, models.ViewMain)
	st.Last = &models.Action{
		Category: models.CategoryTruth,
		Level:    models.LevelNormal,
		Text:     "what is your deepest fear",
		Status:   models.ActionAsked,
	}
	v := Render(st, 60*time.Second)

	if !strings.Contains(v.Text, "what is your deepest fear") {
		t.Errorf("text missing question:\n%s", v.Text)
	}
	if !hasAction(v.Rows, ActionDone) || !hasAction(v.Rows, ActionRefuse) {
		t.Error("question board missing done/refuse buttons")
	}
}

func TestRender_WaitConfirm(t *testing.T) {
	st := boardState(models.StatusRunning, models.PhaseWaitConfirm, models.ViewMain)
	v := Render(st, 60*time.Second)

	if !hasAction(v.Rows, "confirm:yes") || !hasAction(v.Rows, "confirm:no") {
		t.Error("wait_confirm board missing confirm buttons")
	}
}

func TestRender_SettingsView(t *testing.T) {
	st := boardState(models.StatusRunning, models.PhaseChoose, models.ViewSettings)
	v := Render(st, 60*time.Second)

	// Toggles carry the opposite of the current value.
	if !hasAction(v.Rows, "set:midjoin:off") {
		t.Error("settings board missing midjoin toggle")
	}
	if !hasAction(v.Rows, "view:main") {
		t.Error("settings board missing back button")
	}
	if hasAction(v.Rows, ActionBump) {
		t.Error("settings board shows the bump button")
	}
}

func TestRender_RowLimits(t *testing.T) {
	// Discord allows at most 5 action rows of 5 buttons per message, so
	// every board layout must stay inside both caps.
	states := map[string]*game.State{
		"lobby":        boardState(models.StatusLobby, models.PhaseLobby, models.ViewMain),
		"choose":       boardState(models.StatusRunning, models.PhaseChoose, models.ViewMain),
		"question":     boardState(models.StatusRunning, models.PhaseQuestion, models.ViewMain),
		"wait_confirm": boardState(models.StatusRunning, models.PhaseWaitConfirm, models.ViewMain),
		"settings":     boardState(models.StatusRunning, models.PhaseChoose, models.ViewSettings),
		"players":      boardState(models.StatusRunning, models.PhaseChoose, models.ViewPlayers),
		"stats":        boardState(models.StatusRunning, models.PhaseChoose, models.ViewStats),
		"ended":        boardState(models.StatusEnded, models.PhaseChoose, models.ViewMain),
	}
	// The widest choose board: mature allowed, rerolls left, and a
	// previous question to show.
	states["choose"].Game.LastQuestion = "earlier question"

	for name, st := range states {
		v := Render(st, 60*time.Second)
		if len(v.Rows) > 5 {
			t.Errorf("%s board has %d button rows, want at most 5", name, len(v.Rows))
		}
		for i, row := range v.Rows {
			if len(row) > 5 {
				t.Errorf("%s board row %d has %d buttons, want at most 5", name, i, len(row))
			}
		}
	}
}

func TestTruncate_KeepsRuneBoundary(t *testing.T) {
	s := "abécd" // e-acute is two bytes, starting at byte 2
	got := truncate(s, 3)
	if got != "ab" {
		t.Errorf("truncate = %q, want %q (no split rune)", got, "ab")
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncate produced invalid UTF-8: %q", got)
	}
	if truncate(s, len(s)) != s {
		t.Error("truncate should leave a fitting string untouched")
	}
}

func TestRender_EndedGame(t *testing.T) {
	st := boardState(models.StatusEnded, models.PhaseChoose, models.ViewMain)
	v := Render(st, 60*time.Second)

	if !strings.Contains(v.Text, "Game over") {
		t.Errorf("text missing game over:\n%s", v.Text)
	}
	if hasAction(v.Rows, ActionDone) {
		t.Error("ended board shows phase buttons")
	}
}
