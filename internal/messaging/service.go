// Package messaging connects delivery channels to the intake bot.
//
// A Service abstracts one delivery channel (WhatsApp Web, Twilio, or the
// simulated console channel); the InboundHandler consumes its response
// stream and drives the bot engine.
package messaging

import (
	"context"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
)

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier into the canonical E.164 form used as the conversation key.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a text message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing (e.g. event polling).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Responses returns a channel of incoming messages from this channel.
	Responses() <-chan models.Response
}
