// Package store provides storage backends for CentralFlow.
//
// This file implements the SQLite-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists all CentralFlow state in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given DSN (a file path).
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}

// GetActiveConversationByPhone retrieves the non-closed conversation for a phone number.
func (s *SQLiteStore) GetActiveConversationByPhone(phone string) (*models.Conversation, error) {
	row := s.db.QueryRow(`SELECT id, phone_number, status, stage, collected_data, customer_id, ticket_id, assigned_to, last_message_at, created_at, updated_at
		FROM conversations WHERE phone_number = ? AND status != 'closed'`, phone)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetActiveConversationByPhone not found", "phone", phone)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetActiveConversationByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query active conversation: %w", err)
	}
	return c, nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(id string) (*models.Conversation, error) {
	row := s.db.QueryRow(`SELECT id, phone_number, status, stage, collected_data, customer_id, ticket_id, assigned_to, last_message_at, created_at, updated_at
		FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversation failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	return c, nil
}

// SaveConversation inserts or updates a conversation by ID.
func (s *SQLiteStore) SaveConversation(c models.Conversation) error {
	collectedJSON, err := marshalCollected(c.CollectedData)
	if err != nil {
		slog.Error("SQLiteStore SaveConversation marshal failed", "error", err, "id", c.ID)
		return err
	}

	_, err = s.db.Exec(`INSERT INTO conversations (id, phone_number, status, stage, collected_data, customer_id, ticket_id, assigned_to, last_message_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			stage = excluded.stage,
			collected_data = excluded.collected_data,
			customer_id = excluded.customer_id,
			ticket_id = excluded.ticket_id,
			assigned_to = excluded.assigned_to,
			last_message_at = excluded.last_message_at,
			updated_at = excluded.updated_at`,
		c.ID, c.PhoneNumber, c.Status, c.Stage, collectedJSON,
		nilIfZero(c.CustomerID), nilIfZero(c.TicketID), c.AssignedTo,
		c.LastMessageAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveConversation failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to save conversation %s: %w", c.ID, err)
	}
	slog.Debug("SQLiteStore SaveConversation succeeded", "id", c.ID, "stage", c.Stage, "status", c.Status)
	return nil
}

// ListConversations returns conversations filtered by status ("" = all),
// most recent first.
func (s *SQLiteStore) ListConversations(status models.ConversationStatus) ([]models.Conversation, error) {
	query := `SELECT id, phone_number, status, stage, collected_data, customer_id, ticket_id, assigned_to, last_message_at, created_at, updated_at
		FROM conversations`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY last_message_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore ListConversations query failed", "error", err)
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			slog.Error("SQLiteStore ListConversations scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		conversations = append(conversations, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversation rows: %w", err)
	}
	return conversations, nil
}

// AddMessage stores a single conversation message.
func (s *SQLiteStore) AddMessage(m models.Message) error {
	_, err := s.db.Exec(`INSERT INTO messages (id, conversation_id, direction, type, content, external_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.Direction, m.Type, m.Content, m.ExternalID, m.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddMessage failed", "error", err, "conversationID", m.ConversationID)
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *SQLiteStore) ListMessages(conversationID string) ([]models.Message, error) {
	rows, err := s.db.Query(`SELECT id, conversation_id, direction, type, content, external_id, created_at
		FROM messages WHERE conversation_id = ? ORDER BY created_at`, conversationID)
	if err != nil {
		slog.Error("SQLiteStore ListMessages query failed", "error", err, "conversationID", conversationID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.Type, &m.Content, &m.ExternalID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return messages, nil
}

// RecordInbound inserts a new inbound dedup record. Returns false for duplicates.
func (s *SQLiteStore) RecordInbound(messageID, phone string) (bool, error) {
	res, err := s.db.Exec(`INSERT INTO inbound_dedup (message_id, phone_number, received_at)
		VALUES (?, ?, ?) ON CONFLICT(message_id) DO NOTHING`,
		messageID, phone, time.Now())
	if err != nil {
		return false, fmt.Errorf("record inbound failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record inbound rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkProcessed sets the processed_at timestamp for a message.
func (s *SQLiteStore) MarkProcessed(messageID string) error {
	_, err := s.db.Exec(`UPDATE inbound_dedup SET processed_at = ? WHERE message_id = ?`, time.Now(), messageID)
	if err != nil {
		return fmt.Errorf("mark processed failed: %w", err)
	}
	return nil
}

// GetCustomer retrieves a customer by ID.
func (s *SQLiteStore) GetCustomer(id int64) (*models.Customer, error) {
	row := s.db.QueryRow(`SELECT id, name, company_name, document, document_type, phone, email, created_at, updated_at
		FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetCustomer failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	return c, nil
}

// GetCustomerByDocument retrieves a customer by its CPF/CNPJ dedup key.
func (s *SQLiteStore) GetCustomerByDocument(document string) (*models.Customer, error) {
	row := s.db.QueryRow(`SELECT id, name, company_name, document, document_type, phone, email, created_at, updated_at
		FROM customers WHERE document = ?`, document)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetCustomerByDocument failed", "error", err)
		return nil, fmt.Errorf("failed to query customer by document: %w", err)
	}
	return c, nil
}

// SaveCustomer inserts a new customer (assigning its ID) or updates an
// existing one by ID.
func (s *SQLiteStore) SaveCustomer(c *models.Customer) error {
	now := time.Now()
	if c.ID == 0 {
		c.CreatedAt = now
		c.UpdatedAt = now
		res, err := s.db.Exec(`INSERT INTO customers (name, company_name, document, document_type, phone, email, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Name, c.CompanyName, c.Document, c.DocumentType, c.Phone, c.Email, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			slog.Error("SQLiteStore SaveCustomer insert failed", "error", err)
			return fmt.Errorf("failed to insert customer: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read customer insert ID: %w", err)
		}
		c.ID = id
		slog.Debug("SQLiteStore SaveCustomer inserted", "id", c.ID)
		return nil
	}

	c.UpdatedAt = now
	_, err := s.db.Exec(`UPDATE customers SET name = ?, company_name = ?, document = ?, document_type = ?, phone = ?, email = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.CompanyName, c.Document, c.DocumentType, c.Phone, c.Email, c.UpdatedAt, c.ID)
	if err != nil {
		slog.Error("SQLiteStore SaveCustomer update failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to update customer %d: %w", c.ID, err)
	}
	return nil
}

// ListCustomers returns all customers ordered by creation.
func (s *SQLiteStore) ListCustomers() ([]models.Customer, error) {
	rows, err := s.db.Query(`SELECT id, name, company_name, document, document_type, phone, email, created_at, updated_at
		FROM customers ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore ListCustomers query failed", "error", err)
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer row: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customer rows: %w", err)
	}
	return customers, nil
}

// DeleteCustomer removes a customer by ID.
func (s *SQLiteStore) DeleteCustomer(id int64) error {
	_, err := s.db.Exec(`DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteCustomer failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete customer %d: %w", id, err)
	}
	return nil
}

// CreateTicket inserts a new ticket and assigns its ID.
func (s *SQLiteStore) CreateTicket(t *models.Ticket) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	res, err := s.db.Exec(`INSERT INTO tickets (customer_id, title, description, status, priority, assigned_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.CustomerID, t.Title, t.Description, t.Status, t.Priority, t.AssignedTo, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateTicket failed", "error", err)
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read ticket insert ID: %w", err)
	}
	t.ID = id
	slog.Debug("SQLiteStore CreateTicket succeeded", "id", t.ID, "customerID", t.CustomerID)
	return nil
}

// GetTicket retrieves a ticket by ID.
func (s *SQLiteStore) GetTicket(id int64) (*models.Ticket, error) {
	row := s.db.QueryRow(`SELECT id, customer_id, title, description, status, priority, assigned_to, created_at, updated_at
		FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetTicket failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query ticket: %w", err)
	}
	return t, nil
}

// UpdateTicket applies a partial update and returns the updated ticket, or
// nil when the ticket does not exist.
func (s *SQLiteStore) UpdateTicket(id int64, upd models.TicketUpdate) (*models.Ticket, error) {
	t, err := s.GetTicket(id)
	if err != nil || t == nil {
		return t, err
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.AssignedTo != nil {
		t.AssignedTo = *upd.AssignedTo
	}
	t.UpdatedAt = time.Now()

	_, err = s.db.Exec(`UPDATE tickets SET status = ?, priority = ?, assigned_to = ?, updated_at = ? WHERE id = ?`,
		t.Status, t.Priority, t.AssignedTo, t.UpdatedAt, id)
	if err != nil {
		slog.Error("SQLiteStore UpdateTicket failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to update ticket %d: %w", id, err)
	}
	return t, nil
}

// ListTickets returns all tickets, newest first.
func (s *SQLiteStore) ListTickets() ([]models.Ticket, error) {
	rows, err := s.db.Query(`SELECT id, customer_id, title, description, status, priority, assigned_to, created_at, updated_at
		FROM tickets ORDER BY id DESC`)
	if err != nil {
		slog.Error("SQLiteStore ListTickets query failed", "error", err)
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket row: %w", err)
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ticket rows: %w", err)
	}
	return tickets, nil
}

// SaveTeamMember inserts (assigning ID) or updates a team member by ID.
func (s *SQLiteStore) SaveTeamMember(m *models.TeamMember) error {
	now := time.Now()
	if m.ID == 0 {
		m.CreatedAt = now
		m.UpdatedAt = now
		res, err := s.db.Exec(`INSERT INTO team_members (name, email, role, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			m.Name, m.Email, m.Role, m.Active, m.CreatedAt, m.UpdatedAt)
		if err != nil {
			slog.Error("SQLiteStore SaveTeamMember insert failed", "error", err)
			return fmt.Errorf("failed to insert team member: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read team member insert ID: %w", err)
		}
		m.ID = id
		return nil
	}

	m.UpdatedAt = now
	_, err := s.db.Exec(`UPDATE team_members SET name = ?, email = ?, role = ?, active = ?, updated_at = ? WHERE id = ?`,
		m.Name, m.Email, m.Role, m.Active, m.UpdatedAt, m.ID)
	if err != nil {
		slog.Error("SQLiteStore SaveTeamMember update failed", "error", err, "id", m.ID)
		return fmt.Errorf("failed to update team member %d: %w", m.ID, err)
	}
	return nil
}

// GetTeamMember retrieves a team member by ID.
func (s *SQLiteStore) GetTeamMember(id int64) (*models.TeamMember, error) {
	row := s.db.QueryRow(`SELECT id, name, email, role, active, created_at, updated_at FROM team_members WHERE id = ?`, id)
	m, err := scanTeamMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetTeamMember failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query team member: %w", err)
	}
	return m, nil
}

// ListTeamMembers returns all team members ordered by creation.
func (s *SQLiteStore) ListTeamMembers() ([]models.TeamMember, error) {
	rows, err := s.db.Query(`SELECT id, name, email, role, active, created_at, updated_at FROM team_members ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore ListTeamMembers query failed", "error", err)
		return nil, fmt.Errorf("failed to query team members: %w", err)
	}
	defer rows.Close()

	var members []models.TeamMember
	for rows.Next() {
		m, err := scanTeamMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team member row: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate team member rows: %w", err)
	}
	return members, nil
}

// DeleteTeamMember removes a team member by ID.
func (s *SQLiteStore) DeleteTeamMember(id int64) error {
	_, err := s.db.Exec(`DELETE FROM team_members WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteTeamMember failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete team member %d: %w", id, err)
	}
	return nil
}

// CompleteIntake atomically upserts the customer by document, inserts the
// ticket and moves the conversation out of bot mode. conv is only mutated
// after the transaction commits.
func (s *SQLiteStore) CompleteIntake(ctx context.Context, conv *models.Conversation, collected map[string]string, customer *models.Customer, ticket *models.Ticket) error {
	collectedJSON, err := marshalCollected(collected)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin completion transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	// Customer upsert keyed by document.
	var existingID int64
	if customer.Document != "" {
		err = tx.QueryRowContext(ctx, `SELECT id FROM customers WHERE document = ?`, customer.Document).Scan(&existingID)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to look up customer by document: %w", err)
		}
	}
	if existingID != 0 {
		_, err = tx.ExecContext(ctx, `UPDATE customers SET name = ?, company_name = ?, document_type = ?, phone = ?, updated_at = ? WHERE id = ?`,
			customer.Name, customer.CompanyName, customer.DocumentType, customer.Phone, now, existingID)
		if err != nil {
			return fmt.Errorf("failed to update customer %d: %w", existingID, err)
		}
		customer.ID = existingID
	} else {
		res, err := tx.ExecContext(ctx, `INSERT INTO customers (name, company_name, document, document_type, phone, email, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			customer.Name, customer.CompanyName, customer.Document, customer.DocumentType, customer.Phone, customer.Email, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert customer: %w", err)
		}
		customer.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read customer insert ID: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO tickets (customer_id, title, description, status, priority, assigned_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID, ticket.Title, ticket.Description, ticket.Status, ticket.Priority, ticket.AssignedTo, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	ticket.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read ticket insert ID: %w", err)
	}
	ticket.CustomerID = customer.ID

	_, err = tx.ExecContext(ctx, `UPDATE conversations SET status = ?, stage = ?, collected_data = ?, customer_id = ?, ticket_id = ?, last_message_at = ?, updated_at = ?
		WHERE id = ?`,
		models.ConversationStatusWaiting, models.StageCompleted, collectedJSON,
		customer.ID, ticket.ID, now, now, conv.ID)
	if err != nil {
		return fmt.Errorf("failed to update conversation %s: %w", conv.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion transaction: %w", err)
	}

	conv.Status = models.ConversationStatusWaiting
	conv.Stage = models.StageCompleted
	conv.CollectedData = collected
	conv.CustomerID = customer.ID
	conv.TicketID = ticket.ID
	conv.LastMessageAt = now
	conv.UpdatedAt = now

	slog.Info("SQLiteStore CompleteIntake committed", "conversationID", conv.ID, "customerID", customer.ID, "ticketID", ticket.ID)
	return nil
}

// Stats returns the dashboard counters.
func (s *SQLiteStore) Stats() (*models.Stats, error) {
	stats := &models.Stats{
		TicketsByStatus:       make(map[string]int),
		TicketsByPriority:     make(map[string]int),
		ConversationsByStatus: make(map[string]int),
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM customers`).Scan(&stats.Customers); err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	if err := s.countGrouped(`SELECT status, COUNT(*) FROM tickets GROUP BY status`, stats.TicketsByStatus); err != nil {
		return nil, err
	}
	if err := s.countGrouped(`SELECT priority, COUNT(*) FROM tickets GROUP BY priority`, stats.TicketsByPriority); err != nil {
		return nil, err
	}
	if err := s.countGrouped(`SELECT status, COUNT(*) FROM conversations GROUP BY status`, stats.ConversationsByStatus); err != nil {
		return nil, err
	}
	stats.OpenTickets = stats.TicketsByStatus[string(models.TicketStatusOpen)]
	return stats, nil
}

func (s *SQLiteStore) countGrouped(query string, dest map[string]int) error {
	rows, err := s.db.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query grouped counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan grouped count: %w", err)
		}
		dest[key] = count
	}
	return rows.Err()
}
