package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
	"github.com/andressabgomes/centralflow-sub000/internal/util"
)

// SimulatedService implements Service without any external dependency.
// Outbound messages are logged and recorded; inbound messages are injected
// programmatically. Used for local demos and tests.
type SimulatedService struct {
	mu        sync.Mutex
	sent      []SimulatedMessage
	responses chan models.Response
}

// SimulatedMessage records one outbound message.
type SimulatedMessage struct {
	To   string
	Body string
}

// NewSimulatedService creates a simulated messaging channel.
func NewSimulatedService() *SimulatedService {
	return &SimulatedService{
		responses: make(chan models.Response, DefaultChannelBufferSize),
	}
}

// ValidateAndCanonicalizeRecipient canonicalizes a phone number to E.164.
func (s *SimulatedService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return util.CanonicalPhone(recipient)
}

// SendMessage records and logs the outbound message.
func (s *SimulatedService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.Lock()
	s.sent = append(s.sent, SimulatedMessage{To: to, Body: body})
	s.mu.Unlock()
	slog.Info("SimulatedService outbound message", "to", to, "body", body)
	return nil
}

// Start is a no-op.
func (s *SimulatedService) Start(ctx context.Context) error { return nil }

// Stop closes the response channel.
func (s *SimulatedService) Stop() error {
	close(s.responses)
	return nil
}

// Responses returns a channel of injected inbound messages.
func (s *SimulatedService) Responses() <-chan models.Response {
	return s.responses
}

// InjectInbound feeds an inbound message into the response stream.
func (s *SimulatedService) InjectInbound(resp models.Response) {
	s.responses <- resp
}

// SentMessages returns a copy of all recorded outbound messages.
func (s *SimulatedService) SentMessages() []SimulatedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SimulatedMessage, len(s.sent))
	copy(out, s.sent)
	return out
}
