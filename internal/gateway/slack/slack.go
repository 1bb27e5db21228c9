// Package slack implements the gateway.Gateway for Slack using Socket Mode
// and Block Kit buttons. A game board is a posted message updated in place
// via chat.update; its Surface.MessageID is the message timestamp.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/prominer44/Dare-or-truth/internal/gateway"
)

const (
	// baseBackoff is the initial backoff duration for reconnection.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff for reconnection.
	maxBackoff = 2 * time.Minute
	// maxReconnectAttempts limits reconnection retries before giving up.
	maxReconnectAttempts = 10
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	AuthTest() (*slackapi.AuthTestResponse, error)
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
	UpdateMessage(channelID, timestamp string, options ...slackapi.MsgOption) (string, string, string, error)
	PostEphemeral(channelID, userID string, options ...slackapi.MsgOption) (string, error)
	GetUserInfo(userID string) (*slackapi.User, error)
}

// socketClient abstracts the Socket Mode client methods we use.
type socketClient interface {
	Run() error
	EventsChan() chan socketmode.Event
	Ack(req socketmode.Request, payload ...interface{})
}

// realSocketClient wraps *socketmode.Client to implement socketClient.
type realSocketClient struct {
	client *socketmode.Client
}

func (r *realSocketClient) Run() error                        { return r.client.Run() }
func (r *realSocketClient) EventsChan() chan socketmode.Event { return r.client.Events }
func (r *realSocketClient) Ack(req socketmode.Request, payload ...interface{}) {
	r.client.Ack(req, payload...)
}

// Adapter implements gateway.Gateway for Slack Socket Mode.
type Adapter struct {
	client    slackClient
	socket    socketClient
	appToken  string
	botToken  string
	botUserID string

	mu           sync.Mutex
	connected    bool
	closed       bool
	inbound      chan gateway.Interaction
	cancelFunc   context.CancelFunc
	baseBackoff  time.Duration
	maxBackoff   time.Duration
	maxReconnect int
}

// AdapterOpts holds parameters for creating a Slack Adapter.
type AdapterOpts struct {
	AppToken string // xapp-... Slack app-level token for Socket Mode
	BotToken string // xoxb-... Slack bot token
	// For testing: inject mock clients instead of the real Slack API.
	Client slackClient
	Socket socketClient
}

// New creates a Slack Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.Socket == nil && opts.Client == nil && opts.AppToken == "" {
		return nil, fmt.Errorf("slack: app token is required for socket mode")
	}

	a := &Adapter{
		appToken:     opts.AppToken,
		botToken:     opts.BotToken,
		inbound:      make(chan gateway.Interaction, 100),
		baseBackoff:  baseBackoff,
		maxBackoff:   maxBackoff,
		maxReconnect: maxReconnectAttempts,
	}
	if opts.Client != nil {
		a.client = opts.Client
	}
	if opts.Socket != nil {
		a.socket = opts.Socket
	}
	return a, nil
}

// Connect establishes the Socket Mode connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("slack: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.client == nil {
		api := slackapi.New(a.botToken, slackapi.OptionAppLevelToken(a.appToken))
		a.client = api
		a.socket = &realSocketClient{client: socketmode.New(api)}
	}

	auth, err := a.client.AuthTest()
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	a.botUserID = auth.UserID

	a.connected = true
	return nil
}

// Listen returns a channel of inbound interactions. Starts the Socket Mode
// event pump in a background goroutine. Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan gateway.Interaction, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil, fmt.Errorf("slack: not connected")
	}
	a.mu.Unlock()

	listenCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancelFunc = cancel
	a.mu.Unlock()

	go a.runWithReconnect(listenCtx)
	go a.pumpEvents(listenCtx)

	return a.inbound, nil
}

// Deliver updates the board message in place via chat.update.
func (a *Adapter) Deliver(ctx context.Context, surface gateway.Surface, v gateway.View) (gateway.DeliverStatus, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return gateway.Retryable, fmt.Errorf("slack: not connected")
	}
	a.mu.Unlock()

	_, _, _, err := a.client.UpdateMessage(surface.ChannelID, surface.MessageID,
		slackapi.MsgOptionText(v.Text, false),
		slackapi.MsgOptionBlocks(buildBlocks(v)...),
	)
	if err != nil {
		return classify(err), fmt.Errorf("slack: update board: %w", err)
	}
	return gateway.Delivered, nil
}

// RecreateSurface posts the view as a fresh message and returns its surface.
func (a *Adapter) RecreateSurface(ctx context.Context, channelID string, v gateway.View) (gateway.Surface, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return gateway.Surface{}, fmt.Errorf("slack: not connected")
	}
	a.mu.Unlock()

	_, ts, err := a.client.PostMessage(channelID,
		slackapi.MsgOptionText(v.Text, false),
		slackapi.MsgOptionBlocks(buildBlocks(v)...),
	)
	if err != nil {
		return gateway.Surface{}, fmt.Errorf("slack: recreate board: %w", err)
	}
	return gateway.Surface{ChannelID: channelID, MessageID: ts}, nil
}

// Respond sends an ephemeral toast to the pressing user.
func (a *Adapter) Respond(ctx context.Context, ic gateway.Interaction, text string) error {
	if text == "" {
		return nil
	}
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("slack: not connected")
	}
	a.mu.Unlock()

	_, err := a.client.PostEphemeral(ic.ChannelID, ic.UserID,
		slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack: respond: %w", err)
	}
	return nil
}

// Announce posts a standalone text message to a channel.
func (a *Adapter) Announce(ctx context.Context, channelID, text string) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("slack: not connected")
	}
	a.mu.Unlock()

	_, _, err := a.client.PostMessage(channelID, slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack: announce: %w", err)
	}
	return nil
}

// Close shuts down the adapter and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	close(a.inbound)
	return nil
}

// runWithReconnect runs the Socket Mode client and retries with exponential
// backoff when Run() returns an error.
func (a *Adapter) runWithReconnect(ctx context.Context) {
	for attempt := 0; attempt < a.maxReconnect; attempt++ {
		err := a.socket.Run()
		if err == nil {
			return // clean shutdown
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * a.baseBackoff
		if wait > a.maxBackoff {
			wait = a.maxBackoff
		}
		log.Printf("slack: socket mode disconnected (attempt %d/%d): %v, reconnecting in %v",
			attempt+1, a.maxReconnect, err, wait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
	log.Printf("slack: socket mode exhausted %d reconnection attempts, giving up", a.maxReconnect)
}

// pumpEvents reads Socket Mode events and converts them to Interactions.
func (a *Adapter) pumpEvents(ctx context.Context) {
	events := a.socket.EventsChan()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			a.handleSocketEvent(evt)
		}
	}
}

func (a *Adapter) handleSocketEvent(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slackapi.InteractionCallback)
		if !ok {
			return
		}
		if evt.Request != nil {
			a.socket.Ack(*evt.Request)
		}
		a.handleBlockActions(callback)

	case socketmode.EventTypeEventsAPI:
		eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			a.socket.Ack(*evt.Request)
		}
		a.handleEventsAPI(eventsAPIEvent)

	case socketmode.EventTypeConnecting:
		log.Printf("slack: connecting to Socket Mode...")
	case socketmode.EventTypeConnected:
		log.Printf("slack: connected to Socket Mode")
	case socketmode.EventTypeConnectionError:
		log.Printf("slack: connection error: %v", evt.Data)
	case socketmode.EventTypeDisconnect:
		log.Printf("slack: server requested disconnect, will reconnect")
	}
}

// handleBlockActions converts a block_actions callback to button Interactions.
func (a *Adapter) handleBlockActions(callback slackapi.InteractionCallback) {
	if callback.Type != slackapi.InteractionTypeBlockActions {
		return
	}
	for _, action := range callback.ActionCallback.BlockActions {
		a.inbound <- gateway.Interaction{
			Kind:        gateway.KindButton,
			ChannelID:   callback.Channel.ID,
			MessageID:   callback.Message.Timestamp,
			UserID:      callback.User.ID,
			UserName:    callback.User.Name,
			Action:      action.ActionID,
			ResponseRef: callback.ResponseURL,
			Timestamp:   time.Now(),
		}
	}
}

func (a *Adapter) handleEventsAPI(event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Filter bot self-messages and message subtypes (edits, deletes, etc.).
	if ev.User == a.botUserID || ev.BotID != "" || ev.SubType != "" {
		return
	}

	a.inbound <- gateway.Interaction{
		Kind:      gateway.KindMessage,
		ChannelID: ev.Channel,
		UserID:    ev.User,
		UserName:  a.resolveUserName(ev.User),
		Text:      ev.Text,
		Timestamp: parseSlackTimestamp(ev.TimeStamp),
	}
}

// resolveUserName looks up a user's display name. Falls back to user ID.
func (a *Adapter) resolveUserName(userID string) string {
	if userID == "" {
		return ""
	}
	user, err := a.client.GetUserInfo(userID)
	if err != nil {
		return userID
	}
	if user.Profile.DisplayName != "" {
		return user.Profile.DisplayName
	}
	return user.RealName
}

// buildBlocks translates a view into Block Kit blocks: one section for the
// board text, one actions block per button row.
func buildBlocks(v gateway.View) []slackapi.Block {
	blocks := []slackapi.Block{
		slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.PlainTextType, v.Text, false, false),
			nil, nil,
		),
	}
	for i, row := range v.Rows {
		var elements []slackapi.BlockElement
		for _, b := range row {
			btn := slackapi.NewButtonBlockElement(b.Action, b.Action,
				slackapi.NewTextBlockObject(slackapi.PlainTextType, b.Label, false, false))
			switch b.Style {
			case "primary":
				btn = btn.WithStyle(slackapi.StylePrimary)
			case "danger":
				btn = btn.WithStyle(slackapi.StyleDanger)
			}
			elements = append(elements, btn)
		}
		blocks = append(blocks, slackapi.NewActionBlock(fmt.Sprintf("row_%d", i), elements...))
	}
	return blocks
}

// classify maps a Slack API error to a delivery status.
func classify(err error) gateway.DeliverStatus {
	var rle *slackapi.RateLimitedError
	if errors.As(err, &rle) {
		return gateway.Retryable
	}
	switch err.Error() {
	case "message_not_found", "channel_not_found", "cant_update_message":
		return gateway.Permanent
	}
	return gateway.Retryable
}

// parseSlackTimestamp converts a Slack timestamp (e.g. "1234567890.123456")
// to a time.Time.
func parseSlackTimestamp(ts string) time.Time {
	parts := strings.SplitN(ts, ".", 2)
	if len(parts) == 0 {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
