package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/prominer44/Dare-or-truth/internal/game"
	"github.com/prominer44/Dare-or-truth/internal/gateway"
	"github.com/prominer44/Dare-or-truth/internal/models"
)

// commandPrefix is the prefix that triggers text command handling.
const commandPrefix = "!dot"

// handle routes one inbound interaction.
func (d *Daemon) handle(ctx context.Context, ic gateway.Interaction) {
	switch ic.Kind {
	case gateway.KindButton:
		d.handleButton(ctx, ic)
	case gateway.KindMessage:
		if isCommand(ic.Text) {
			d.handleCommand(ctx, ic)
		}
	}
}

// handleButton maps a board button press to a game event and toasts the
// engine's verdict back to the pressing user.
func (d *Daemon) handleButton(ctx context.Context, ic gateway.Interaction) {
	g, err := d.st.FindOpenGameByChannel(ic.ChannelID)
	if err != nil {
		log.Printf("bot: find game for channel %s: %v", ic.ChannelID, err)
		return
	}
	if g == nil {
		d.respond(ctx, ic, "No active game on this board.")
		return
	}

	parts := strings.Split(ic.Action, ":")
	switch parts[0] {
	case gateway.ActionBump:
		d.bump(ctx, ic, g)
		return
	case gateway.ActionPrev:
		if g.LastQuestion == "" {
			d.respond(ctx, ic, "No previous question yet.")
			return
		}
		d.respond(ctx, ic, "Previous question: "+g.LastQuestion)
		return
	}

	ev, ok := parseAction(ic, parts, d.cfg.IsAdmin(ic.UserID))
	if !ok {
		d.respond(ctx, ic, "Unknown button.")
		return
	}
	ev.GameID = g.ID

	if err := d.registry.Dispatch(ctx, g.ID, ev); err != nil {
		d.respond(ctx, ic, toastText(err))
		return
	}
	d.respond(ctx, ic, "")
}

// parseAction translates a button action id into a game event.
func parseAction(ic gateway.Interaction, parts []string, admin bool) (game.Event, bool) {
	ev := game.Event{
		ActorID:   ic.UserID,
		ActorName: ic.UserName,
		Admin:     admin,
	}
	switch parts[0] {
	case gateway.ActionJoin:
		ev.Type = game.EventJoin
	case gateway.ActionStart:
		ev.Type = game.EventStart
	case gateway.ActionSkip:
		ev.Type = game.EventSkip
	case gateway.ActionEnd:
		ev.Type = game.EventEnd
	case gateway.ActionReroll:
		ev.Type = game.EventReroll
	case gateway.ActionDone:
		ev.Type = game.EventDone
	case gateway.ActionRefuse:
		ev.Type = game.EventRefuse
	case gateway.ActionConfirm:
		if len(parts) != 2 {
			return ev, false
		}
		ev.Type = game.EventConfirm
		ev.Accept = parts[1] == "yes"
	case gateway.ActionPick:
		if len(parts) != 3 {
			return ev, false
		}
		ev.Type = game.EventPick
		ev.Category = parts[1]
		ev.Level = parts[2]
	case gateway.ActionView:
		if len(parts) != 2 {
			return ev, false
		}
		ev.Type = game.EventSetView
		ev.View = parts[1]
	case gateway.ActionSet:
		if len(parts) != 3 {
			return ev, false
		}
		ev.Type = game.EventSetFlag
		ev.Enable = parts[2] == "on"
		switch parts[1] {
		case "midjoin":
			ev.Flag = game.FlagMidJoin
		case "prev":
			ev.Flag = game.FlagPrevious
		case "mature":
			ev.Flag = game.FlagMature
		default:
			return ev, false
		}
	default:
		return ev, false
	}
	return ev, true
}

// bump reposts the board as a fresh message at the bottom of the channel
// and retargets the game's surface at it.
func (d *Daemon) bump(ctx context.Context, ic gateway.Interaction, g *models.Game) {
	st, err := d.st.LoadState(g.ID)
	if err != nil {
		log.Printf("bot: game %d: load for bump: %v", g.ID, err)
		return
	}
	view := gateway.Render(st, d.cfg.Game.TurnTimeout())
	surface, err := d.gw.RecreateSurface(ctx, g.ChannelID, view)
	if err != nil {
		d.respond(ctx, ic, "Could not move the board.")
		return
	}
	st.Game.MessageID = surface.MessageID
	if err := d.st.SaveGame(&st.Game); err != nil {
		log.Printf("bot: game %d: save bumped surface: %v", g.ID, err)
	}
	d.respond(ctx, ic, "")
}

// handleCommand processes "!dot" text commands.
func (d *Daemon) handleCommand(ctx context.Context, ic gateway.Interaction) {
	args := parseCommand(ic.Text)
	if len(args) == 0 {
		d.announce(ctx, ic.ChannelID, helpText())
		return
	}

	switch args[0] {
	case "new":
		d.cmdNew(ctx, ic, models.KindGroup)
	case "duo":
		d.cmdNew(ctx, ic, models.KindInline)
	case "suggest":
		d.cmdSuggest(ctx, ic, args[1:])
	case "help":
		d.announce(ctx, ic.ChannelID, helpText())
	default:
		d.announce(ctx, ic.ChannelID, fmt.Sprintf("Unknown command: %s\n\n%s", args[0], helpText()))
	}
}

// cmdNew creates a game in the channel and posts its board. Group games
// are open to any player count; duo games are two-party, keyed by an
// inline ref, and closed to mid-joiners.
func (d *Daemon) cmdNew(ctx context.Context, ic gateway.Interaction, kind string) {
	existing, err := d.st.FindOpenGameByChannel(ic.ChannelID)
	if err != nil {
		log.Printf("bot: find game for channel %s: %v", ic.ChannelID, err)
		return
	}
	if existing != nil {
		d.announce(ctx, ic.ChannelID, "There is already a game in this channel. End it first.")
		return
	}

	g := &models.Game{
		Kind:         kind,
		Status:       models.StatusLobby,
		Phase:        models.PhaseLobby,
		View:         models.ViewMain,
		OwnerID:      ic.UserID,
		ChannelID:    ic.ChannelID,
		AllowMidJoin: true,
		ShowPrevious: true,
		AllowMature:  true,
	}
	if kind == models.KindInline {
		g.InlineRef = uuid.NewString()
		g.AllowMidJoin = false
	}
	if err := d.st.CreateGame(g); err != nil {
		log.Printf("bot: create game: %v", err)
		d.announce(ctx, ic.ChannelID, "Could not create a game.")
		return
	}

	// The creator joins their own game immediately.
	err = d.registry.Dispatch(ctx, g.ID, game.Event{
		Type:      game.EventJoin,
		GameID:    g.ID,
		ActorID:   ic.UserID,
		ActorName: ic.UserName,
	})
	if err != nil {
		log.Printf("bot: game %d: owner join: %v", g.ID, err)
	}

	st, err := d.st.LoadState(g.ID)
	if err != nil {
		log.Printf("bot: game %d: load for board: %v", g.ID, err)
		return
	}
	view := gateway.Render(st, d.cfg.Game.TurnTimeout())
	surface, err := d.gw.RecreateSurface(ctx, ic.ChannelID, view)
	if err != nil {
		log.Printf("bot: game %d: post board: %v", g.ID, err)
		return
	}
	st.Game.MessageID = surface.MessageID
	if err := d.st.SaveGame(&st.Game); err != nil {
		log.Printf("bot: game %d: save surface: %v", g.ID, err)
	}
}

// cmdSuggest stores a player's question suggestion for moderation.
func (d *Daemon) cmdSuggest(ctx context.Context, ic gateway.Interaction, args []string) {
	if len(args) < 3 {
		d.announce(ctx, ic.ChannelID, "Usage: !dot suggest <truth|dare> <normal|mature> <question text>")
		return
	}
	category, level := args[0], args[1]
	if category != models.CategoryTruth && category != models.CategoryDare {
		d.announce(ctx, ic.ChannelID, "Category must be truth or dare.")
		return
	}
	if level != models.LevelNormal && level != models.LevelMature {
		d.announce(ctx, ic.ChannelID, "Level must be normal or mature.")
		return
	}
	text := strings.TrimSpace(strings.Join(args[2:], " "))
	if text == "" {
		d.announce(ctx, ic.ChannelID, "The question text is empty.")
		return
	}

	if _, err := d.st.CreateSuggestion(ic.UserID, ic.ChannelID, category, level, text); err != nil {
		log.Printf("bot: create suggestion: %v", err)
		d.announce(ctx, ic.ChannelID, "Could not save the suggestion.")
		return
	}
	d.announce(ctx, ic.ChannelID, "Thanks! Your question was submitted for review.")
}

// parseCommand strips the "!dot" prefix and splits the remaining text.
func parseCommand(text string) []string {
	text = strings.TrimSpace(text)
	if text == commandPrefix {
		return nil
	}
	text = strings.TrimPrefix(text, commandPrefix+" ")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return strings.Fields(text)
}

// isCommand returns true if the text starts with the command prefix.
func isCommand(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed == commandPrefix || strings.HasPrefix(trimmed, commandPrefix+" ")
}

func helpText() string {
	return "Commands:\n" +
		"!dot new — start a game in this channel\n" +
		"!dot duo — start a two-player game\n" +
		"!dot suggest <truth|dare> <normal|mature> <text> — suggest a question\n" +
		"!dot help — this message"
}

// toastText maps an engine rejection to a short user-facing message.
func toastText(err error) string {
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return "It's not your turn."
	case errors.Is(err, game.ErrNotAllowed):
		return "You can't do that in this game."
	case errors.Is(err, game.ErrWrongPhase):
		return "That button isn't available right now."
	case errors.Is(err, game.ErrGameEnded):
		return "This game is over."
	case errors.Is(err, game.ErrNoRerolls):
		return "No rerolls left."
	case errors.Is(err, game.ErrNoQuestion):
		return "No questions available for that pick."
	case errors.Is(err, game.ErrMatureDisabled):
		return "Mature questions are disabled in this game."
	case errors.Is(err, game.ErrMidJoinDisabled):
		return "Joining mid-game is disabled."
	case errors.Is(err, game.ErrNotEnoughPlayers):
		return "Not enough players to start."
	default:
		return "Something went wrong, try again."
	}
}

func (d *Daemon) respond(ctx context.Context, ic gateway.Interaction, text string) {
	if err := d.gw.Respond(ctx, ic, text); err != nil {
		log.Printf("bot: respond: %v", err)
	}
}

func (d *Daemon) announce(ctx context.Context, channelID, text string) {
	if err := d.gw.Announce(ctx, channelID, text); err != nil {
		log.Printf("bot: announce: %v", err)
	}
}
