package models

import "testing"

func TestCustomerValidate(t *testing.T) {
	c := Customer{Name: "Maria Silva"}
	if err := c.Validate(); err != nil {
		t.Errorf("expected valid customer, got %v", err)
	}

	c = Customer{}
	if err := c.Validate(); err != ErrEmptyName {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}

	c = Customer{Name: "Jo"}
	if err := c.Validate(); err != ErrNameTooShort {
		t.Errorf("expected ErrNameTooShort, got %v", err)
	}

	// Organizations validate on the company name.
	c = Customer{CompanyName: "Acme Corp"}
	if err := c.Validate(); err != nil {
		t.Errorf("expected valid organization, got %v", err)
	}
}

func TestCustomerDisplayName(t *testing.T) {
	c := Customer{Name: "Maria Silva"}
	if got := c.DisplayName(); got != "Maria Silva" {
		t.Errorf("DisplayName = %q", got)
	}
	c = Customer{Name: "contato", CompanyName: "Acme Corp"}
	if got := c.DisplayName(); got != "Acme Corp" {
		t.Errorf("expected company name to win, got %q", got)
	}
}

func TestTicketValidate(t *testing.T) {
	tk := Ticket{Title: "Outros - Maria", Status: TicketStatusOpen, Priority: TicketPriorityMedium}
	if err := tk.Validate(); err != nil {
		t.Errorf("expected valid ticket, got %v", err)
	}

	tk.Title = ""
	if err := tk.Validate(); err != ErrEmptyTitle {
		t.Errorf("expected ErrEmptyTitle, got %v", err)
	}

	tk = Ticket{Title: "x", Status: "bogus", Priority: TicketPriorityMedium}
	if err := tk.Validate(); err != ErrInvalidTicketStatus {
		t.Errorf("expected ErrInvalidTicketStatus, got %v", err)
	}

	tk = Ticket{Title: "x", Status: TicketStatusOpen, Priority: "urgent"}
	if err := tk.Validate(); err != ErrInvalidPriority {
		t.Errorf("expected ErrInvalidPriority, got %v", err)
	}
}

func TestConversationInBotMode(t *testing.T) {
	c := Conversation{Status: ConversationStatusBot}
	if !c.InBotMode() {
		t.Error("expected bot mode")
	}
	for _, status := range []ConversationStatus{ConversationStatusWaiting, ConversationStatusActive, ConversationStatusClosed} {
		c.Status = status
		if c.InBotMode() {
			t.Errorf("status %q should not be bot mode", status)
		}
	}
}
