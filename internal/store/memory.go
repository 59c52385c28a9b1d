package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
)

// InMemoryStore keeps everything in maps guarded by a single mutex. Used by
// tests and the simulated messaging channel.
type InMemoryStore struct {
	mu sync.Mutex

	conversations map[string]models.Conversation
	messages      map[string][]models.Message
	dedup         map[string]time.Time
	customers     map[int64]models.Customer
	tickets       map[int64]models.Ticket
	team          map[int64]models.TeamMember

	nextCustomerID int64
	nextTicketID   int64
	nextMemberID   int64
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	slog.Debug("NewInMemoryStore invoked")
	return &InMemoryStore{
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string][]models.Message),
		dedup:         make(map[string]time.Time),
		customers:     make(map[int64]models.Customer),
		tickets:       make(map[int64]models.Ticket),
		team:          make(map[int64]models.TeamMember),
	}
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

// GetActiveConversationByPhone retrieves the non-closed conversation for a phone number.
func (s *InMemoryStore) GetActiveConversationByPhone(phone string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.PhoneNumber == phone && c.Status != models.ConversationStatusClosed {
			copied := cloneConversation(c)
			return &copied, nil
		}
	}
	return nil, nil
}

// GetConversation retrieves a conversation by ID.
func (s *InMemoryStore) GetConversation(id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	copied := cloneConversation(c)
	return &copied, nil
}

// SaveConversation inserts or updates a conversation by ID.
func (s *InMemoryStore) SaveConversation(c models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = cloneConversation(c)
	return nil
}

// ListConversations returns conversations filtered by status ("" = all),
// most recent first.
func (s *InMemoryStore) ListConversations(status models.ConversationStatus) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Conversation
	for _, c := range s.conversations {
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, cloneConversation(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

// AddMessage stores a single conversation message.
func (s *InMemoryStore) AddMessage(m models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)
	return nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *InMemoryStore) ListMessages(conversationID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[conversationID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// RecordInbound inserts a new inbound dedup record. Returns false for duplicates.
func (s *InMemoryStore) RecordInbound(messageID, phone string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dedup[messageID]; ok {
		return false, nil
	}
	s.dedup[messageID] = time.Now()
	return true, nil
}

// MarkProcessed is a no-op beyond dedup tracking for the in-memory store.
func (s *InMemoryStore) MarkProcessed(messageID string) error {
	return nil
}

// GetCustomer retrieves a customer by ID.
func (s *InMemoryStore) GetCustomer(id int64) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// GetCustomerByDocument retrieves a customer by its CPF/CNPJ dedup key.
func (s *InMemoryStore) GetCustomerByDocument(document string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.findCustomerByDocument(document)
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *InMemoryStore) findCustomerByDocument(document string) (models.Customer, bool) {
	if document == "" {
		return models.Customer{}, false
	}
	for _, c := range s.customers {
		if c.Document == document {
			return c, true
		}
	}
	return models.Customer{}, false
}

// SaveCustomer inserts a new customer (assigning its ID) or updates an
// existing one by ID.
func (s *InMemoryStore) SaveCustomer(c *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if c.ID == 0 {
		s.nextCustomerID++
		c.ID = s.nextCustomerID
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.customers[c.ID] = *c
	return nil
}

// ListCustomers returns all customers ordered by creation.
func (s *InMemoryStore) ListCustomers() ([]models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Customer
	for _, c := range s.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteCustomer removes a customer by ID.
func (s *InMemoryStore) DeleteCustomer(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.customers, id)
	return nil
}

// CreateTicket inserts a new ticket and assigns its ID.
func (s *InMemoryStore) CreateTicket(t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.nextTicketID++
	t.ID = s.nextTicketID
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tickets[t.ID] = *t
	return nil
}

// GetTicket retrieves a ticket by ID.
func (s *InMemoryStore) GetTicket(id int64) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// UpdateTicket applies a partial update and returns the updated ticket, or
// nil when the ticket does not exist.
func (s *InMemoryStore) UpdateTicket(id int64, upd models.TicketUpdate) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, nil
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
	s.tickets[id] = t
	return &t, nil
}

// ListTickets returns all tickets, newest first.
func (s *InMemoryStore) ListTickets() ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Ticket
	for _, t := range s.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// SaveTeamMember inserts (assigning ID) or updates a team member by ID.
func (s *InMemoryStore) SaveTeamMember(m *models.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if m.ID == 0 {
		s.nextMemberID++
		m.ID = s.nextMemberID
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	s.team[m.ID] = *m
	return nil
}

// GetTeamMember retrieves a team member by ID.
func (s *InMemoryStore) GetTeamMember(id int64) (*models.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.team[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// ListTeamMembers returns all team members ordered by creation.
func (s *InMemoryStore) ListTeamMembers() ([]models.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TeamMember
	for _, m := range s.team {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteTeamMember removes a team member by ID.
func (s *InMemoryStore) DeleteTeamMember(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.team, id)
	return nil
}

// CompleteIntake atomically upserts the customer by document, inserts the
// ticket and moves the conversation out of bot mode.
func (s *InMemoryStore) CompleteIntake(ctx context.Context, conv *models.Conversation, collected map[string]string, customer *models.Customer, ticket *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()

	if existing, ok := s.findCustomerByDocument(customer.Document); ok {
		existing.Name = customer.Name
		existing.CompanyName = customer.CompanyName
		existing.DocumentType = customer.DocumentType
		existing.Phone = customer.Phone
		existing.UpdatedAt = now
		s.customers[existing.ID] = existing
		customer.ID = existing.ID
	} else {
		s.nextCustomerID++
		customer.ID = s.nextCustomerID
		customer.CreatedAt = now
		customer.UpdatedAt = now
		s.customers[customer.ID] = *customer
	}

	s.nextTicketID++
	ticket.ID = s.nextTicketID
	ticket.CustomerID = customer.ID
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	s.tickets[ticket.ID] = *ticket

	conv.Status = models.ConversationStatusWaiting
	conv.Stage = models.StageCompleted
	conv.CollectedData = collected
	conv.CustomerID = customer.ID
	conv.TicketID = ticket.ID
	conv.LastMessageAt = now
	conv.UpdatedAt = now
	s.conversations[conv.ID] = cloneConversation(*conv)

	slog.Info("InMemoryStore CompleteIntake committed", "conversationID", conv.ID, "customerID", customer.ID, "ticketID", ticket.ID)
	return nil
}

// Stats returns the dashboard counters.
func (s *InMemoryStore) Stats() (*models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.Stats{
		Customers:             len(s.customers),
		TicketsByStatus:       make(map[string]int),
		TicketsByPriority:     make(map[string]int),
		ConversationsByStatus: make(map[string]int),
	}
	for _, t := range s.tickets {
		stats.TicketsByStatus[string(t.Status)]++
		stats.TicketsByPriority[string(t.Priority)]++
	}
	for _, c := range s.conversations {
		stats.ConversationsByStatus[string(c.Status)]++
	}
	stats.OpenTickets = stats.TicketsByStatus[string(models.TicketStatusOpen)]
	return stats, nil
}

// cloneConversation copies a conversation including its collected data map so
// callers cannot mutate stored state through a shared map.
func cloneConversation(c models.Conversation) models.Conversation {
	if c.CollectedData != nil {
		data := make(map[string]string, len(c.CollectedData))
		for k, v := range c.CollectedData {
			data[k] = v
		}
		c.CollectedData = data
	}
	return c
}
