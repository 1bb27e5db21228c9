// Package discord implements the gateway.Gateway for Discord using the
// Gateway WebSocket and message-component buttons.
package discord

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prominer44/Dare-or-truth/internal/gateway"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) Open() error  { return r.s.Open() }
func (r *realSession) Close() error { return r.s.Close() }
func (r *realSession) AddHandler(handler interface{}) func() {
	return r.s.AddHandler(handler)
}
func (r *realSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSend(channelID, content, options...)
}
func (r *realSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSendComplex(channelID, data, options...)
}
func (r *realSession) ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageEditComplex(m, options...)
}
func (r *realSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	return r.s.InteractionRespond(interaction, resp, options...)
}

// Adapter implements gateway.Gateway for Discord.
type Adapter struct {
	sess      session
	botToken  string
	botUserID string

	mu            sync.Mutex
	connected     bool
	closed        bool
	inbound       chan gateway.Interaction
	removeHandler []func()

	// pending maps interaction ids to the raw interaction object so
	// Respond can acknowledge a press after the daemon has handled it.
	pending map[string]*discordgo.Interaction
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken string
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	a := &Adapter{
		botToken: opts.BotToken,
		inbound:  make(chan gateway.Interaction, 100),
		pending:  make(map[string]*discordgo.Interaction),
	}
	if opts.Session != nil {
		a.sess = opts.Session
	}
	return a, nil
}

// Connect establishes the Discord Gateway WebSocket connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.sess == nil {
		dg, err := discordgo.New("Bot " + a.botToken)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
		a.sess = &realSession{s: dg}
	}

	a.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.mu.Lock()
		a.botUserID = r.User.ID
		a.mu.Unlock()
		log.Printf("discord: connected as %s (ID: %s)", r.User.Username, r.User.ID)
	})
	a.sess.AddHandler(func(_ *discordgo.Session, d *discordgo.Disconnect) {
		log.Printf("discord: gateway disconnected, discordgo will auto-reconnect")
	})

	if err := a.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	a.connected = true
	return nil
}

// Listen returns a channel of inbound interactions. Registers handlers for
// component presses and text messages. Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan gateway.Interaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("discord: not connected")
	}

	rm1 := a.sess.AddHandler(func(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
		a.handleComponent(ic)
	})
	rm2 := a.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		a.handleMessage(m)
	})
	a.removeHandler = append(a.removeHandler, rm1, rm2)
	return a.inbound, nil
}

// Deliver edits the board message in place with the rendered view.
func (a *Adapter) Deliver(ctx context.Context, surface gateway.Surface, v gateway.View) (gateway.DeliverStatus, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return gateway.Retryable, fmt.Errorf("discord: not connected")
	}
	a.mu.Unlock()

	components := buildComponents(v.Rows)
	_, err := a.sess.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         surface.MessageID,
		Channel:    surface.ChannelID,
		Content:    &v.Text,
		Components: &components,
	})
	if err != nil {
		return classify(err), fmt.Errorf("discord: edit board: %w", err)
	}
	return gateway.Delivered, nil
}

// RecreateSurface posts the view as a fresh message and returns its surface.
func (a *Adapter) RecreateSurface(ctx context.Context, channelID string, v gateway.View) (gateway.Surface, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return gateway.Surface{}, fmt.Errorf("discord: not connected")
	}
	a.mu.Unlock()

	msg, err := a.sess.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    v.Text,
		Components: buildComponents(v.Rows),
	})
	if err != nil {
		return gateway.Surface{}, fmt.Errorf("discord: recreate board: %w", err)
	}
	return gateway.Surface{ChannelID: channelID, MessageID: msg.ID}, nil
}

// Respond acknowledges a button press with an ephemeral message. Each press
// can be responded to once; later calls for the same press are dropped.
func (a *Adapter) Respond(ctx context.Context, ic gateway.Interaction, text string) error {
	a.mu.Lock()
	raw, ok := a.pending[ic.ResponseRef]
	if ok {
		delete(a.pending, ic.ResponseRef)
	}
	a.mu.Unlock()
	if !ok {
		return nil
	}

	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
	if text == "" {
		// No toast needed; just acknowledge so the client stops spinning.
		resp = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		}
	}
	if err := a.sess.InteractionRespond(raw, resp); err != nil {
		return fmt.Errorf("discord: respond: %w", err)
	}
	return nil
}

// Announce posts a standalone text message to a channel.
func (a *Adapter) Announce(ctx context.Context, channelID, text string) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("discord: not connected")
	}
	a.mu.Unlock()

	if _, err := a.sess.ChannelMessageSend(channelID, text); err != nil {
		return fmt.Errorf("discord: announce: %w", err)
	}
	return nil
}

// Close gracefully shuts down the adapter connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	for _, rm := range a.removeHandler {
		rm()
	}
	close(a.inbound)
	if a.sess != nil {
		return a.sess.Close()
	}
	return nil
}

func (a *Adapter) handleComponent(ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionMessageComponent {
		return
	}
	var user *discordgo.User
	if ic.Member != nil {
		user = ic.Member.User
	}
	if user == nil {
		user = ic.User
	}
	if user == nil {
		return
	}

	a.mu.Lock()
	a.pending[ic.ID] = ic.Interaction
	a.mu.Unlock()

	messageID := ""
	if ic.Message != nil {
		messageID = ic.Message.ID
	}
	a.inbound <- gateway.Interaction{
		Kind:        gateway.KindButton,
		ChannelID:   ic.ChannelID,
		MessageID:   messageID,
		UserID:      user.ID,
		UserName:    user.Username,
		Action:      ic.MessageComponentData().CustomID,
		ResponseRef: ic.ID,
		Timestamp:   time.Now(),
	}
}

func (a *Adapter) handleMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	a.mu.Lock()
	botID := a.botUserID
	a.mu.Unlock()
	if m.Author.ID == botID {
		return
	}

	ts, _ := discordgo.SnowflakeTimestamp(m.ID)
	a.inbound <- gateway.Interaction{
		Kind:      gateway.KindMessage,
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		Text:      m.Content,
		Timestamp: ts,
	}
}

// buildComponents translates button rows to Discord action rows.
func buildComponents(rows [][]gateway.Button) []discordgo.MessageComponent {
	var out []discordgo.MessageComponent
	for _, row := range rows {
		ar := discordgo.ActionsRow{}
		for _, b := range row {
			ar.Components = append(ar.Components, discordgo.Button{
				Label:    b.Label,
				CustomID: b.Action,
				Style:    buttonStyle(b.Style),
			})
		}
		out = append(out, ar)
	}
	return out
}

func buttonStyle(style string) discordgo.ButtonStyle {
	switch style {
	case "primary":
		return discordgo.PrimaryButton
	case "danger":
		return discordgo.DangerButton
	default:
		return discordgo.SecondaryButton
	}
}

// unknownMessageCode is Discord's error code for an edit target that no
// longer exists. Such a board cannot be edited again and must be recreated.
const unknownMessageCode = 10008

// classify maps a Discord API error to a delivery status.
func classify(err error) gateway.DeliverStatus {
	restErr, ok := err.(*discordgo.RESTError)
	if !ok {
		// Network trouble, gateway reconnecting, etc.
		return gateway.Retryable
	}
	if restErr.Message != nil && restErr.Message.Code == unknownMessageCode {
		return gateway.Permanent
	}
	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case 404:
			return gateway.Permanent
		case 429:
			return gateway.Retryable
		}
	}
	return gateway.Retryable
}
