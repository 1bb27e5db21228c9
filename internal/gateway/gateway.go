// Package gateway bridges game sessions to chat platforms (Discord, Slack).
package gateway

import (
	"context"
	"time"
)

// DeliverStatus classifies the outcome of a board delivery attempt.
type DeliverStatus int

const (
	// Delivered means the board surface now shows the rendered view.
	Delivered DeliverStatus = iota
	// Retryable means a transient failure; the same delivery may be retried.
	Retryable
	// Permanent means the surface is gone and must be recreated before
	// anything can be delivered to it again.
	Permanent
)

// String returns the status name for logs.
func (s DeliverStatus) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Retryable:
		return "retryable"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Surface identifies the platform message acting as a game's board.
type Surface struct {
	ChannelID string
	MessageID string
}

// InteractionKind classifies inbound interactions.
type InteractionKind string

const (
	// KindButton is a press on one of the board's buttons.
	KindButton InteractionKind = "button"
	// KindMessage is a plain text message or command.
	KindMessage InteractionKind = "message"
)

// Interaction represents one inbound user interaction from the platform.
type Interaction struct {
	Kind        InteractionKind
	ChannelID   string // channel the interaction happened in
	MessageID   string // board message, for button presses
	UserID      string // platform-specific user identifier
	UserName    string // human-readable username
	Action      string // button action id (e.g. "pick:truth:normal")
	Text        string // raw text, for message interactions
	ResponseRef string // platform token needed to respond to this interaction
	Timestamp   time.Time
}

// Button is one pressable element on a board.
type Button struct {
	Action string // action id carried back in the Interaction
	Label  string
	Style  string // "primary", "danger" or "" for default
}

// View is a fully rendered board: text plus button rows. It is computed
// from a fresh state snapshot immediately before delivery and carries no
// references back into the session.
type View struct {
	Text string
	Rows [][]Button
}

// Gateway is the interface that platform-specific implementations must
// satisfy. Each gateway handles connection management, interaction intake
// and board delivery for a single chat platform.
type Gateway interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound interactions. The channel is
	// closed when the context is cancelled or the gateway is closed.
	// Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan Interaction, error)

	// Deliver edits the board surface to show the view. The status tells
	// the caller whether to consider it done, retry, or recreate.
	Deliver(ctx context.Context, surface Surface, v View) (DeliverStatus, error)

	// RecreateSurface posts the view as a fresh message in the channel
	// and returns the new surface.
	RecreateSurface(ctx context.Context, channelID string, v View) (Surface, error)

	// Respond sends a short ephemeral acknowledgement to the user who
	// triggered the interaction. Best effort.
	Respond(ctx context.Context, ic Interaction, text string) error

	// Announce posts a standalone text message to a channel.
	Announce(ctx context.Context, channelID, text string) error

	// Close gracefully shuts down the gateway connection.
	Close() error
}
