package models

// Stats holds the dashboard counters exposed by GET /stats.
type Stats struct {
	Customers             int            `json:"customers"`
	OpenTickets           int            `json:"open_tickets"`
	TicketsByStatus       map[string]int `json:"tickets_by_status"`
	TicketsByPriority     map[string]int `json:"tickets_by_priority"`
	ConversationsByStatus map[string]int `json:"conversations_by_status"`
}
