package gateway

import (
	"context"
	"fmt"
	"sync"
)

// MockGateway implements Gateway for testing. It records deliveries and
// announcements and allows simulating inbound interactions and scripted
// delivery failures.
type MockGateway struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan Interaction

	deliveries []MockDelivery
	announced  []string
	responses  []string
	recreated  int

	// script is consumed one entry per Deliver call; when exhausted,
	// Deliver reports Delivered.
	script []DeliverStatus
}

// MockDelivery records one Deliver call.
type MockDelivery struct {
	Surface Surface
	View    View
	Status  DeliverStatus
}

// NewMockGateway creates a MockGateway with a buffered inbound channel.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		inbound: make(chan Interaction, 100),
	}
}

// ScriptDeliveries queues statuses to return from successive Deliver calls.
func (m *MockGateway) ScriptDeliveries(statuses ...DeliverStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, statuses...)
}

// Connect marks the gateway as connected.
func (m *MockGateway) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock gateway: already closed")
	}
	m.connected = true
	return nil
}

// Listen returns the inbound interaction channel. Must be called after Connect.
func (m *MockGateway) Listen(ctx context.Context) (<-chan Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock gateway: not connected")
	}
	return m.inbound, nil
}

// SimulateInteraction injects an inbound interaction.
func (m *MockGateway) SimulateInteraction(ic Interaction) {
	m.inbound <- ic
}

// Deliver records the delivery and returns the next scripted status.
func (m *MockGateway) Deliver(ctx context.Context, surface Surface, v View) (DeliverStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := Delivered
	if len(m.script) > 0 {
		status = m.script[0]
		m.script = m.script[1:]
	}
	m.deliveries = append(m.deliveries, MockDelivery{Surface: surface, View: v, Status: status})
	if status == Delivered {
		return Delivered, nil
	}
	return status, fmt.Errorf("mock gateway: scripted %s", status)
}

// RecreateSurface returns a fresh surface with a counter-derived message id.
func (m *MockGateway) RecreateSurface(ctx context.Context, channelID string, v View) (Surface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recreated++
	return Surface{
		ChannelID: channelID,
		MessageID: fmt.Sprintf("recreated-%d", m.recreated),
	}, nil
}

// Respond records the toast text.
func (m *MockGateway) Respond(ctx context.Context, ic Interaction, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, text)
	return nil
}

// Announce records the announcement text.
func (m *MockGateway) Announce(ctx context.Context, channelID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announced = append(m.announced, text)
	return nil
}

// Close shuts down the mock gateway and closes the inbound channel.
func (m *MockGateway) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	close(m.inbound)
	return nil
}

// Deliveries returns a copy of all recorded deliveries.
func (m *MockGateway) Deliveries() []MockDelivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockDelivery, len(m.deliveries))
	copy(out, m.deliveries)
	return out
}

// Announced returns a copy of all recorded announcements.
func (m *MockGateway) Announced() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.announced))
	copy(out, m.announced)
	return out
}

// Responses returns a copy of all recorded toasts.
func (m *MockGateway) Responses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.responses))
	copy(out, m.responses)
	return out
}

// Recreated returns the number of RecreateSurface calls.
func (m *MockGateway) Recreated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recreated
}
