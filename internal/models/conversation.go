// Package models defines conversation state structures for the intake bot.
package models

import "time"

// ConversationStatus represents who currently owns a conversation.
type ConversationStatus string

const (
	// ConversationStatusBot means the intake bot is driving the conversation.
	ConversationStatusBot ConversationStatus = "bot"
	// ConversationStatusWaiting means the bot flow completed and the
	// conversation awaits a human agent.
	ConversationStatusWaiting ConversationStatus = "waiting"
	// ConversationStatusActive means a human agent has claimed the conversation.
	ConversationStatusActive ConversationStatus = "active"
	// ConversationStatusClosed means the conversation is finished.
	ConversationStatusClosed ConversationStatus = "closed"
)

// Stage represents the intake bot's current position in its conversation flow.
type Stage string

// Intake flow stages, in order. StageCompleted is absorbing.
const (
	StageIdentify      Stage = "identify"
	StagePersonType    Stage = "person_type"
	StageDocument      Stage = "document_request"
	StageName          Stage = "name_request"
	StageContactReason Stage = "contact_reason"
	StageCompleted     Stage = "completed"
)

// Collected data keys. The collected_data bag is an open string map rather
// than a fixed struct: the keys present genuinely vary by person type, and
// new stages may add keys without a store migration.
const (
	DataKeyPersonType    = "person_type"
	DataKeyDocument      = "document"
	DataKeyDocumentType  = "document_type"
	DataKeyCustomerName  = "customer_name"
	DataKeyCompanyName   = "company_name"
	DataKeyContactReason = "contact_reason"
)

// Conversation represents an inbound messaging session keyed by canonical
// phone number. At most one non-closed conversation exists per phone.
type Conversation struct {
	ID            string             `json:"id"`
	PhoneNumber   string             `json:"phone_number"`
	Status        ConversationStatus `json:"status"`
	Stage         Stage              `json:"stage,omitempty"`
	CollectedData map[string]string  `json:"collected_data,omitempty"`
	CustomerID    int64              `json:"customer_id,omitempty"`
	TicketID      int64              `json:"ticket_id,omitempty"`
	AssignedTo    string             `json:"assigned_to,omitempty"`
	LastMessageAt time.Time          `json:"last_message_at"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// InBotMode reports whether the intake bot still owns this conversation.
func (c *Conversation) InBotMode() bool {
	return c.Status == ConversationStatusBot
}

// MessageDirection indicates whether a message was received or sent.
type MessageDirection string

const (
	MessageDirectionInbound  MessageDirection = "inbound"
	MessageDirectionOutbound MessageDirection = "outbound"
)

// Message represents a single message within a conversation.
type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Direction      MessageDirection `json:"direction"`
	Type           string           `json:"type"`
	Content        string           `json:"content"`
	ExternalID     string           `json:"external_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Response represents an incoming message from a messaging channel before it
// reaches the intake pipeline.
type Response struct {
	From      string `json:"from"`
	Body      string `json:"body"`
	MessageID string `json:"message_id,omitempty"`
	Time      int64  `json:"time"`
}
