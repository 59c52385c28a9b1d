// Package store provides storage backends for CentralFlow.
//
// It persists conversations, messages, customers, tickets and team members,
// and exposes the transactional completion step the intake bot relies on.
// Backends: SQLite, PostgreSQL and an in-memory store for tests and
// disconnected demo mode.
package store

import (
	"context"
	"strings"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
)

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string (file path for SQLite,
// connection URL for Postgres).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType inspects a DSN and reports "postgres" or "sqlite".
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	// GetActiveConversationByPhone returns the non-closed conversation for a
	// canonical phone number, or nil when none exists.
	GetActiveConversationByPhone(phone string) (*models.Conversation, error)
	GetConversation(id string) (*models.Conversation, error)
	// SaveConversation inserts or updates a conversation by ID.
	SaveConversation(c models.Conversation) error
	// ListConversations returns conversations filtered by status; an empty
	// status returns all.
	ListConversations(status models.ConversationStatus) ([]models.Conversation, error)

	AddMessage(m models.Message) error
	ListMessages(conversationID string) ([]models.Message, error)
}

// DedupRepo deduplicates inbound messages by their platform message ID.
// This is a guaranteed property of the intake pipeline, not an incidental
// feature of one transport.
type DedupRepo interface {
	// RecordInbound inserts a new inbound message record. Returns false if
	// the message was already recorded (duplicate delivery).
	RecordInbound(messageID, phone string) (bool, error)
	// MarkProcessed sets the processed_at timestamp for a message.
	MarkProcessed(messageID string) error
}

// CustomerRepo persists customer records.
type CustomerRepo interface {
	GetCustomer(id int64) (*models.Customer, error)
	// GetCustomerByDocument looks a customer up by the CPF/CNPJ dedup key,
	// or nil when none exists.
	GetCustomerByDocument(document string) (*models.Customer, error)
	// SaveCustomer inserts (assigning ID) or updates by ID.
	SaveCustomer(c *models.Customer) error
	ListCustomers() ([]models.Customer, error)
	DeleteCustomer(id int64) error
}

// TicketRepo persists support tickets.
type TicketRepo interface {
	CreateTicket(t *models.Ticket) error
	GetTicket(id int64) (*models.Ticket, error)
	UpdateTicket(id int64, upd models.TicketUpdate) (*models.Ticket, error)
	ListTickets() ([]models.Ticket, error)
}

// TeamRepo persists team members.
type TeamRepo interface {
	SaveTeamMember(m *models.TeamMember) error
	GetTeamMember(id int64) (*models.TeamMember, error)
	ListTeamMembers() ([]models.TeamMember, error)
	DeleteTeamMember(id int64) error
}

// Store is the full persistence surface used by the service.
type Store interface {
	ConversationStore
	DedupRepo
	CustomerRepo
	TicketRepo
	TeamRepo

	// CompleteIntake atomically upserts the customer (by document), inserts
	// the ticket and moves the conversation to waiting with the final
	// collected data and the resolved IDs stamped on it. On error nothing is
	// persisted and conv is untouched, so a retried turn re-attempts the
	// identical completion.
	CompleteIntake(ctx context.Context, conv *models.Conversation, collected map[string]string, customer *models.Customer, ticket *models.Ticket) error

	// Stats returns the dashboard counters.
	Stats() (*models.Stats, error)

	Close() error
}
