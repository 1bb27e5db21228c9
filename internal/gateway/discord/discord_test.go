package discord

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/prominer44/Dare-or-truth/internal/gateway"
)

// --- Mock Discord session ---

type mockSession struct {
	mu          sync.Mutex
	opened      bool
	closeCalled bool
	openErr     error
	editErr     error
	sendErr     error
	edits       []*discordgo.MessageEdit
	sent        []sentMessage
	responses   []*discordgo.InteractionResponse
	handlers    []interface{}
	removeCount int
}

type sentMessage struct {
	channelID string
	data      *discordgo.MessageSend
}

func (m *mockSession) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return m.openErr
	}
	m.opened = true
	return nil
}

func (m *mockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalled = true
	return nil
}

func (m *mockSession) AddHandler(handler interface{}) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.removeCount++
	}
}

func (m *mockSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return m.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{Content: content})
}

func (m *mockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, sentMessage{channelID: channelID, data: data})
	return &discordgo.Message{ID: fmt.Sprintf("msg-%d", len(m.sent))}, nil
}

func (m *mockSession) ChannelMessageEditComplex(edit *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return nil, m.editErr
	}
	m.edits = append(m.edits, edit)
	return &discordgo.Message{ID: edit.ID}, nil
}

func (m *mockSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	return nil
}

func connectedAdapter(t *testing.T, sess *mockSession) *Adapter {
	t.Helper()
	a, err := New(AdapterOpts{Session: sess})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return a
}

func testView() gateway.View {
	return gateway.View{
		Text: "board",
		Rows: [][]gateway.Button{
			{{Action: "join", Label: "Join", Style: "primary"}},
			{{Action: "end", Label: "End", Style: "danger"}, {Action: "bump", Label: "Bump"}},
		},
	}
}

func TestNew_RequiresTokenOrSession(t *testing.T) {
	if _, err := New(AdapterOpts{}); err == nil {
		t.Error("New with no token and no session succeeded")
	}
}

func TestDeliver_EditsBoardInPlace(t *testing.T) {
	sess := &mockSession{}
	a := connectedAdapter(t, sess)

	status, err := a.Deliver(context.Background(), gateway.Surface{ChannelID: "C1", MessageID: "M1"}, testView())
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if status != gateway.Delivered {
		t.Errorf("status = %v, want Delivered", status)
	}
	if len(sess.edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(sess.edits))
	}
	edit := sess.edits[0]
	if edit.ID != "M1" || edit.Channel != "C1" {
		t.Errorf("edit target = %s/%s, want C1/M1", edit.Channel, edit.ID)
	}
	if *edit.Content != "board" {
		t.Errorf("content = %q, want board", *edit.Content)
	}
	if len(*edit.Components) != 2 {
		t.Errorf("component rows = %d, want 2", len(*edit.Components))
	}
}

func TestDeliver_UnknownMessageIsPermanent(t *testing.T) {
	sess := &mockSession{editErr: &discordgo.RESTError{
		Response: &http.Response{StatusCode: 404},
		Message:  &discordgo.APIErrorMessage{Code: unknownMessageCode},
	}}
	a := connectedAdapter(t, sess)

	status, err := a.Deliver(context.Background(), gateway.Surface{ChannelID: "C1", MessageID: "gone"}, testView())
	if err == nil {
		t.Fatal("Deliver succeeded, want error")
	}
	if status != gateway.Permanent {
		t.Errorf("status = %v, want Permanent", status)
	}
}

func TestDeliver_RateLimitIsRetryable(t *testing.T) {
	sess := &mockSession{editErr: &discordgo.RESTError{
		Response: &http.Response{StatusCode: 429},
	}}
	a := connectedAdapter(t, sess)

	status, _ := a.Deliver(context.Background(), gateway.Surface{ChannelID: "C1", MessageID: "M1"}, testView())
	if status != gateway.Retryable {
		t.Errorf("status = %v, want Retryable", status)
	}
}

func TestDeliver_NetworkErrorIsRetryable(t *testing.T) {
	sess := &mockSession{editErr: fmt.Errorf("connection reset")}
	a := connectedAdapter(t, sess)

	status, _ := a.Deliver(context.Background(), gateway.Surface{ChannelID: "C1", MessageID: "M1"}, testView())
	if status != gateway.Retryable {
		t.Errorf("status = %v, want Retryable", status)
	}
}

func TestRecreateSurface_PostsFreshMessage(t *testing.T) {
	sess := &mockSession{}
	a := connectedAdapter(t, sess)

	surface, err := a.RecreateSurface(context.Background(), "C1", testView())
	if err != nil {
		t.Fatalf("RecreateSurface: %v", err)
	}
	if surface.ChannelID != "C1" || surface.MessageID == "" {
		t.Errorf("surface = %+v, want C1 with a message id", surface)
	}
	if len(sess.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sess.sent))
	}
	if len(sess.sent[0].data.Components) != 2 {
		t.Errorf("component rows = %d, want 2", len(sess.sent[0].data.Components))
	}
}

func TestComponentPress_ProducesButtonInteraction(t *testing.T) {
	sess := &mockSession{}
	a := connectedAdapter(t, sess)
	ch, err := a.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	a.handleComponent(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "ic-1",
		Type:      discordgo.InteractionMessageComponent,
		ChannelID: "C1",
		Message:   &discordgo.Message{ID: "M1"},
		Member: &discordgo.Member{
			User: &discordgo.User{ID: "U1", Username: "alice"},
		},
		Data: discordgo.MessageComponentInteractionData{CustomID: "pick:truth:normal"},
	}})

	ic := <-ch
	if ic.Kind != gateway.KindButton {
		t.Errorf("kind = %v, want button", ic.Kind)
	}
	if ic.Action != "pick:truth:normal" {
		t.Errorf("action = %q, want pick:truth:normal", ic.Action)
	}
	if ic.UserID != "U1" || ic.MessageID != "M1" || ic.ChannelID != "C1" {
		t.Errorf("interaction = %+v, want U1/M1/C1", ic)
	}
}

func TestRespond_SendsEphemeralToastOnce(t *testing.T) {
	sess := &mockSession{}
	a := connectedAdapter(t, sess)
	ch, _ := a.Listen(context.Background())

	a.handleComponent(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "ic-1",
		Type:      discordgo.InteractionMessageComponent,
		ChannelID: "C1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "U1", Username: "alice"}},
		Data:      discordgo.MessageComponentInteractionData{CustomID: "start"},
	}})
	ic := <-ch

	if err := a.Respond(context.Background(), ic, "only the owner can start"); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(sess.responses) != 1 {
		t.Fatalf("responses = %d, want 1", len(sess.responses))
	}
	resp := sess.responses[0]
	if resp.Data == nil || resp.Data.Content != "only the owner can start" {
		t.Errorf("response = %+v, want the toast text", resp)
	}
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("toast is not ephemeral")
	}

	// Second respond for the same press is a no-op.
	if err := a.Respond(context.Background(), ic, "again"); err != nil {
		t.Fatalf("Respond (second): %v", err)
	}
	if len(sess.responses) != 1 {
		t.Errorf("responses = %d after second call, want 1", len(sess.responses))
	}
}

func TestBotMessagesFiltered(t *testing.T) {
	sess := &mockSession{}
	a := connectedAdapter(t, sess)
	ch, _ := a.Listen(context.Background())

	a.handleMessage(&discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "1",
		ChannelID: "C1",
		Author:    &discordgo.User{ID: "B1", Username: "bot", Bot: true},
		Content:   "board text",
	}})
	a.handleMessage(&discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "2",
		ChannelID: "C1",
		Author:    &discordgo.User{ID: "U1", Username: "alice"},
		Content:   "!dot new",
	}})

	ic := <-ch
	if ic.UserID != "U1" || ic.Text != "!dot new" {
		t.Errorf("got %+v, want the human message", ic)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected extra interaction: %+v", extra)
	default:
	}
}

func TestClose_RemovesHandlersAndClosesChannel(t *testing.T) {
	sess := &mockSession{}
	a := connectedAdapter(t, sess)
	ch, _ := a.Listen(context.Background())

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !sess.closeCalled {
		t.Error("session not closed")
	}
	if sess.removeCount != 2 {
		t.Errorf("removed handlers = %d, want 2", sess.removeCount)
	}
	if _, ok := <-ch; ok {
		t.Error("inbound channel still open after Close")
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
