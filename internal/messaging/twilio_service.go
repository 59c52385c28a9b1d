package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
	"github.com/andressabgomes/centralflow-sub000/internal/twiliowhatsapp"
	"github.com/andressabgomes/centralflow-sub000/internal/util"
)

// TwilioService implements Service using the Twilio WhatsApp Business API.
// Twilio has no persistent inbound connection; the HTTP webhook handler
// injects incoming messages via EnqueueInbound.
type TwilioService struct {
	client    twiliowhatsapp.Sender
	responses chan models.Response
}

// NewTwilioService creates a TwilioService wrapping the given sender.
func NewTwilioService(client twiliowhatsapp.Sender) *TwilioService {
	return &TwilioService{
		client:    client,
		responses: make(chan models.Response, DefaultChannelBufferSize),
	}
}

// ValidateAndCanonicalizeRecipient canonicalizes a phone number to E.164,
// tolerating Twilio's "whatsapp:+55..." recipient format.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return util.CanonicalPhone(recipient)
}

// SendMessage sends a message through the Twilio API.
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	if err := s.client.SendMessage(ctx, to, body); err != nil {
		slog.Error("TwilioService SendMessage error", "error", err, "to", to)
		return err
	}
	slog.Info("TwilioService message sent", "to", to)
	return nil
}

// Start is a no-op: inbound messages arrive through the webhook endpoint.
func (s *TwilioService) Start(ctx context.Context) error {
	slog.Debug("TwilioService Start invoked (webhook driven, nothing to poll)")
	return nil
}

// Stop closes the response channel.
func (s *TwilioService) Stop() error {
	slog.Info("TwilioService Stop invoked")
	close(s.responses)
	return nil
}

// Responses returns a channel of incoming messages.
func (s *TwilioService) Responses() <-chan models.Response {
	return s.responses
}

// EnqueueInbound forwards a webhook-delivered message into the response
// stream. Returns false if the channel is saturated and the message was dropped.
func (s *TwilioService) EnqueueInbound(resp models.Response) bool {
	select {
	case s.responses <- resp:
		return true
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TwilioService responses channel blocked, dropping message", "from", resp.From)
		return false
	}
}
