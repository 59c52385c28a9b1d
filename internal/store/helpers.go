package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// nilIfZero returns nil for zero IDs so nullable FK columns stay NULL.
func nilIfZero(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

// marshalCollected serializes the collected data bag for the text column.
// An empty bag is stored as the empty string.
func marshalCollected(data map[string]string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal collected data: %w", err)
	}
	return string(raw), nil
}

// unmarshalCollected parses the collected data column back into a map. A
// corrupt blob logs and yields an empty map rather than failing the read.
func unmarshalCollected(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	data := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		slog.Error("store failed to unmarshal collected data, using empty bag", "error", err)
		return make(map[string]string)
	}
	return data
}

// scanConversation scans a conversation row in column order:
// id, phone_number, status, stage, collected_data, customer_id, ticket_id,
// assigned_to, last_message_at, created_at, updated_at.
func scanConversation(row rowScanner) (*models.Conversation, error) {
	var c models.Conversation
	var collectedJSON string
	var customerID, ticketID sql.NullInt64
	err := row.Scan(
		&c.ID, &c.PhoneNumber, &c.Status, &c.Stage, &collectedJSON,
		&customerID, &ticketID, &c.AssignedTo, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CollectedData = unmarshalCollected(collectedJSON)
	c.CustomerID = customerID.Int64
	c.TicketID = ticketID.Int64
	return &c, nil
}

// scanCustomer scans a customer row in column order:
// id, name, company_name, document, document_type, phone, email, created_at, updated_at.
func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.CompanyName, &c.Document, &c.DocumentType,
		&c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// scanTicket scans a ticket row in column order:
// id, customer_id, title, description, status, priority, assigned_to, created_at, updated_at.
func scanTicket(row rowScanner) (*models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(
		&t.ID, &t.CustomerID, &t.Title, &t.Description, &t.Status,
		&t.Priority, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// scanTeamMember scans a team member row in column order:
// id, name, email, role, active, created_at, updated_at.
func scanTeamMember(row rowScanner) (*models.TeamMember, error) {
	var m models.TeamMember
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Role, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
