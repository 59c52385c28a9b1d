package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
	_ "github.com/lib/pq"
)

// Connection pool settings for the Postgres backend.
const (
	PostgresMaxOpenConns    = 25
	PostgresMaxIdleConns    = 5
	PostgresConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists all CentralFlow state in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(PostgresMaxOpenConns)
	db.SetMaxIdleConns(PostgresMaxIdleConns)
	db.SetConnMaxLifetime(PostgresConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}

// GetActiveConversationByPhone retrieves the non-closed conversation for a phone number.
func (s *PostgresStore) GetActiveConversationByPhone(phone string) (*models.Conversation, error) {
	row := s.db.QueryRow(`SELECT id, phone_number, status, stage, collected_data, customer_id, ticket_id, assigned_to, last_message_at, created_at, updated_at
		FROM conversations WHERE phone_number = $1 AND status != 'closed'`, phone)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetActiveConversationByPhone not found", "phone", phone)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetActiveConversationByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query active conversation: %w", err)
	}
	return c, nil
}

// GetConversation retrieves a conversation by ID.
func (s *PostgresStore) GetConversation(id string) (*models.Conversation, error) {
	row := s.db.QueryRow(`SELECT id, phone_number, status, stage, collected_data, customer_id, ticket_id, assigned_to, last_message_at, created_at, updated_at
		FROM conversations WHERE id = $1`, id)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversation failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	return c, nil
}

// SaveConversation inserts or updates a conversation by ID.
func (s *PostgresStore) SaveConversation(c models.Conversation) error {
	collectedJSON, err := marshalCollected(c.CollectedData)
	if err != nil {
		slog.Error("PostgresStore SaveConversation marshal failed", "error", err, "id", c.ID)
		return err
	}

	_, err = s.db.Exec(`INSERT INTO conversations (id, phone_number, status, stage, collected_data, customer_id, ticket_id, assigned_to, last_message_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			stage = EXCLUDED.stage,
			collected_data = EXCLUDED.collected_data,
			customer_id = EXCLUDED.customer_id,
			ticket_id = EXCLUDED.ticket_id,
			assigned_to = EXCLUDED.assigned_to,
			last_message_at = EXCLUDED.last_message_at,
			updated_at = EXCLUDED.updated_at`,
		c.ID, c.PhoneNumber, c.Status, c.Stage, collectedJSON,
		nilIfZero(c.CustomerID), nilIfZero(c.TicketID), c.AssignedTo,
		c.LastMessageAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveConversation failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to save conversation %s: %w", c.ID, err)
	}
	slog.Debug("PostgresStore SaveConversation succeeded", "id", c.ID, "stage", c.Stage, "status", c.Status)
	return nil
}

// ListConversations returns conversations filtered by status ("" = all),
// most recent first.
func (s *PostgresStore) ListConversations(status models.ConversationStatus) ([]models.Conversation, error) {
	query := `SELECT id, phone_number, status, stage, collected_data, customer_id, ticket_id, assigned_to, last_message_at, created_at, updated_at
		FROM conversations`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY last_message_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore ListConversations query failed", "error", err)
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			slog.Error("PostgresStore ListConversations scan failed", "error", err)
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
func (s *PostgresStore) AddMessage(m models.Message) error {
	_, err := s.db.Exec(`INSERT INTO messages (id, conversation_id, direction, type, content, external_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.ConversationID, m.Direction, m.Type, m.Content, m.ExternalID, m.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddMessage failed", "error", err, "conversationID", m.ConversationID)
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *PostgresStore) ListMessages(conversationID string) ([]models.Message, error) {
	rows, err := s.db.Query(`SELECT id, conversation_id, direction, type, content, external_id, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at`, conversationID)
	if err != nil {
		slog.Error("PostgresStore ListMessages query failed", "error", err, "conversationID", conversationID)
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
func (s *PostgresStore) RecordInbound(messageID, phone string) (bool, error) {
	res, err := s.db.Exec(`INSERT INTO inbound_dedup (message_id, phone_number, received_at)
		VALUES ($1, $2, $3) ON CONFLICT (message_id) DO NOTHING`,
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
func (s *PostgresStore) MarkProcessed(messageID string) error {
	_, err := s.db.Exec(`UPDATE inbound_dedup SET processed_at = $1 WHERE message_id = $2`, time.Now(), messageID)
	if err != nil {
		return fmt.Errorf("mark processed failed: %w", err)
	}
	return nil
}

// GetCustomer retrieves a customer by ID.
func (s *PostgresStore) GetCustomer(id int64) (*models.Customer, error) {
	row := s.db.QueryRow(`SELECT id, name, company_name, document, document_type, phone, email, created_at, updated_at
		FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetCustomer failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	return c, nil
}

// GetCustomerByDocument retrieves a customer by its CPF/CNPJ dedup key.
func (s *PostgresStore) GetCustomerByDocument(document string) (*models.Customer, error) {
	row := s.db.QueryRow(`SELECT id, name, company_name, document, document_type, phone, email, created_at, updated_at
		FROM customers WHERE document = $1`, document)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetCustomerByDocument failed", "error", err)
		return nil, fmt.Errorf("failed to query customer by document: %w", err)
	}
	return c, nil
}

// SaveCustomer inserts a new customer (assigning its ID) or updates an
// existing one by ID.
func (s *PostgresStore) SaveCustomer(c *models.Customer) error {
	now := time.Now()
	if c.ID == 0 {
		c.CreatedAt = now
		c.UpdatedAt = now
		err := s.db.QueryRow(`INSERT INTO customers (name, company_name, document, document_type, phone, email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			c.Name, c.CompanyName, c.Document, c.DocumentType, c.Phone, c.Email, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
		if err != nil {
			slog.Error("PostgresStore SaveCustomer insert failed", "error", err)
			return fmt.Errorf("failed to insert customer: %w", err)
		}
		slog.Debug("PostgresStore SaveCustomer inserted", "id", c.ID)
		return nil
	}

	c.UpdatedAt = now
	_, err := s.db.Exec(`UPDATE customers SET name = $1, company_name = $2, document = $3, document_type = $4, phone = $5, email = $6, updated_at = $7
		WHERE id = $8`,
		c.Name, c.CompanyName, c.Document, c.DocumentType, c.Phone, c.Email, c.UpdatedAt, c.ID)
	if err != nil {
		slog.Error("PostgresStore SaveCustomer update failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to update customer %d: %w", c.ID, err)
	}
	return nil
}

// ListCustomers returns all customers ordered by creation.
func (s *PostgresStore) ListCustomers() ([]models.Customer, error) {
	rows, err := s.db.Query(`SELECT id, name, company_name, document, document_type, phone, email, created_at, updated_at
		FROM customers ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore ListCustomers query failed", "error", err)
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
func (s *PostgresStore) DeleteCustomer(id int64) error {
	_, err := s.db.Exec(`DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteCustomer failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete customer %d: %w", id, err)
	}
	return nil
}

// CreateTicket inserts a new ticket and assigns its ID.
func (s *PostgresStore) CreateTicket(t *models.Ticket) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	err := s.db.QueryRow(`INSERT INTO tickets (customer_id, title, description, status, priority, assigned_to, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		t.CustomerID, t.Title, t.Description, t.Status, t.Priority, t.AssignedTo, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	if err != nil {
		slog.Error("PostgresStore CreateTicket failed", "error", err)
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	slog.Debug("PostgresStore CreateTicket succeeded", "id", t.ID, "customerID", t.CustomerID)
	return nil
}

// GetTicket retrieves a ticket by ID.
func (s *PostgresStore) GetTicket(id int64) (*models.Ticket, error) {
	row := s.db.QueryRow(`SELECT id, customer_id, title, description, status, priority, assigned_to, created_at, updated_at
		FROM tickets WHERE id = $1`, id)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetTicket failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query ticket: %w", err)
	}
	return t, nil
}

// UpdateTicket applies a partial update and returns the updated ticket, or
// nil when the ticket does not exist.
func (s *PostgresStore) UpdateTicket(id int64, upd models.TicketUpdate) (*models.Ticket, error) {
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

	_, err = s.db.Exec(`UPDATE tickets SET status = $1, priority = $2, assigned_to = $3, updated_at = $4 WHERE id = $5`,
		t.Status, t.Priority, t.AssignedTo, t.UpdatedAt, id)
	if err != nil {
		slog.Error("PostgresStore UpdateTicket failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to update ticket %d: %w", id, err)
	}
	return t, nil
}

// ListTickets returns all tickets, newest first.
func (s *PostgresStore) ListTickets() ([]models.Ticket, error) {
	rows, err := s.db.Query(`SELECT id, customer_id, title, description, status, priority, assigned_to, created_at, updated_at
		FROM tickets ORDER BY id DESC`)
	if err != nil {
		slog.Error("PostgresStore ListTickets query failed", "error", err)
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
func (s *PostgresStore) SaveTeamMember(m *models.TeamMember) error {
	now := time.Now()
	if m.ID == 0 {
		m.CreatedAt = now
		m.UpdatedAt = now
		err := s.db.QueryRow(`INSERT INTO team_members (name, email, role, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			m.Name, m.Email, m.Role, m.Active, m.CreatedAt, m.UpdatedAt).Scan(&m.ID)
		if err != nil {
			slog.Error("PostgresStore SaveTeamMember insert failed", "error", err)
			return fmt.Errorf("failed to insert team member: %w", err)
		}
		return nil
	}

	m.UpdatedAt = now
	_, err := s.db.Exec(`UPDATE team_members SET name = $1, email = $2, role = $3, active = $4, updated_at = $5 WHERE id = $6`,
		m.Name, m.Email, m.Role, m.Active, m.UpdatedAt, m.ID)
	if err != nil {
		slog.Error("PostgresStore SaveTeamMember update failed", "error", err, "id", m.ID)
		return fmt.Errorf("failed to update team member %d: %w", m.ID, err)
	}
	return nil
}

// GetTeamMember retrieves a team member by ID.
func (s *PostgresStore) GetTeamMember(id int64) (*models.TeamMember, error) {
	row := s.db.QueryRow(`SELECT id, name, email, role, active, created_at, updated_at FROM team_members WHERE id = $1`, id)
	m, err := scanTeamMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetTeamMember failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query team member: %w", err)
	}
	return m, nil
}

// ListTeamMembers returns all team members ordered by creation.
func (s *PostgresStore) ListTeamMembers() ([]models.TeamMember, error) {
	rows, err := s.db.Query(`SELECT id, name, email, role, active, created_at, updated_at FROM team_members ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore ListTeamMembers query failed", "error", err)
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
func (s *PostgresStore) DeleteTeamMember(id int64) error {
	_, err := s.db.Exec(`DELETE FROM team_members WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteTeamMember failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete team member %d: %w", id, err)
	}
	return nil
}

// CompleteIntake atomically upserts the customer by document, inserts the
// ticket and moves the conversation out of bot mode. conv is only mutated
// after the transaction commits.
func (s *PostgresStore) CompleteIntake(ctx context.Context, conv *models.Conversation, collected map[string]string, customer *models.Customer, ticket *models.Ticket) error {
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

	var existingID int64
	if customer.Document != "" {
		err = tx.QueryRowContext(ctx, `SELECT id FROM customers WHERE document = $1`, customer.Document).Scan(&existingID)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to look up customer by document: %w", err)
		}
	}
	if existingID != 0 {
		_, err = tx.ExecContext(ctx, `UPDATE customers SET name = $1, company_name = $2, document_type = $3, phone = $4, updated_at = $5 WHERE id = $6`,
			customer.Name, customer.CompanyName, customer.DocumentType, customer.Phone, now, existingID)
		if err != nil {
			return fmt.Errorf("failed to update customer %d: %w", existingID, err)
		}
		customer.ID = existingID
	} else {
		err = tx.QueryRowContext(ctx, `INSERT INTO customers (name, company_name, document, document_type, phone, email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			customer.Name, customer.CompanyName, customer.Document, customer.DocumentType, customer.Phone, customer.Email, now, now).Scan(&customer.ID)
		if err != nil {
			return fmt.Errorf("failed to insert customer: %w", err)
		}
	}

	err = tx.QueryRowContext(ctx, `INSERT INTO tickets (customer_id, title, description, status, priority, assigned_to, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		customer.ID, ticket.Title, ticket.Description, ticket.Status, ticket.Priority, ticket.AssignedTo, now, now).Scan(&ticket.ID)
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	ticket.CustomerID = customer.ID

	_, err = tx.ExecContext(ctx, `UPDATE conversations SET status = $1, stage = $2, collected_data = $3, customer_id = $4, ticket_id = $5, last_message_at = $6, updated_at = $7
		WHERE id = $8`,
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

	slog.Info("PostgresStore CompleteIntake committed", "conversationID", conv.ID, "customerID", customer.ID, "ticketID", ticket.ID)
	return nil
}

// Stats returns the dashboard counters.
func (s *PostgresStore) Stats() (*models.Stats, error) {
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

func (s *PostgresStore) countGrouped(query string, dest map[string]int) error {
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
