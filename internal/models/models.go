// Package models defines the core data structures for CentralFlow.
//
// It includes customer, ticket and team member entities shared across modules,
// plus the JSON response envelope used by the HTTP API.
package models

import (
	"errors"
	"time"
)

// PersonType distinguishes individual customers from organizations.
type PersonType string

const (
	// PersonTypeIndividual is a natural person identified by CPF.
	PersonTypeIndividual PersonType = "individual"
	// PersonTypeOrganization is a company identified by CNPJ.
	PersonTypeOrganization PersonType = "organization"
)

// DocumentType identifies the kind of document stored for a customer.
type DocumentType string

const (
	// DocumentTypeCPF is the 11-digit individual taxpayer ID.
	DocumentTypeCPF DocumentType = "cpf"
	// DocumentTypeCNPJ is the 14-digit organization taxpayer ID.
	DocumentTypeCNPJ DocumentType = "cnpj"
)

// Document length requirements (digits only, punctuation stripped).
const (
	CPFDigits  = 11
	CNPJDigits = 14
	// MinNameLength is the minimum trimmed length for customer/company names.
	MinNameLength = 3
)

// TicketStatus represents the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketPriority represents the urgency of a support ticket.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// IsValidTicketStatus checks if the given ticket status is supported.
func IsValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	default:
		return false
	}
}

// IsValidTicketPriority checks if the given ticket priority is supported.
func IsValidTicketPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	default:
		return false
	}
}

// Error variables for validation and store lookups.
var (
	ErrEmptyPhoneNumber    = errors.New("phone number cannot be empty")
	ErrInvalidPhoneNumber  = errors.New("phone number must contain 10 to 15 digits")
	ErrEmptyName           = errors.New("name cannot be empty")
	ErrNameTooShort        = errors.New("name must have at least 3 characters")
	ErrInvalidDocument     = errors.New("document digit count does not match person type")
	ErrInvalidPersonType   = errors.New("invalid person type")
	ErrInvalidTicketStatus = errors.New("invalid ticket status")
	ErrInvalidPriority     = errors.New("invalid ticket priority")
	ErrEmptyTitle          = errors.New("ticket title cannot be empty")
	ErrEmptyEmail          = errors.New("email cannot be empty")
)

// Customer represents a CRM customer record. The document (CPF/CNPJ) is the
// natural dedup key: upserts by document update an existing row in place.
type Customer struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	CompanyName  string       `json:"company_name,omitempty"`
	Document     string       `json:"document,omitempty"`
	DocumentType DocumentType `json:"document_type,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Email        string       `json:"email,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// DisplayName returns the company name for organizations, otherwise the
// customer name.
func (c *Customer) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.Name
}

// Validate checks the minimum requirements for persisting a customer.
func (c *Customer) Validate() error {
	if c.DisplayName() == "" {
		return ErrEmptyName
	}
	if len([]rune(c.DisplayName())) < MinNameLength {
		return ErrNameTooShort
	}
	return nil
}

// Ticket represents a support ticket linked to a customer.
type Ticket struct {
	ID          int64          `json:"id"`
	CustomerID  int64          `json:"customer_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      TicketStatus   `json:"status"`
	Priority    TicketPriority `json:"priority"`
	AssignedTo  string         `json:"assigned_to,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Validate checks the minimum requirements for persisting a ticket.
func (t *Ticket) Validate() error {
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if !IsValidTicketStatus(t.Status) {
		return ErrInvalidTicketStatus
	}
	if !IsValidTicketPriority(t.Priority) {
		return ErrInvalidPriority
	}
	return nil
}

// TicketUpdate represents a partial update to a ticket (PUT /tickets/{id}).
type TicketUpdate struct {
	Status     *TicketStatus   `json:"status,omitempty"`
	Priority   *TicketPriority `json:"priority,omitempty"`
	AssignedTo *string         `json:"assigned_to,omitempty"`
}

// TeamMember represents a human agent who can claim conversations and tickets.
type TeamMember struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the minimum requirements for persisting a team member.
func (m *TeamMember) Validate() error {
	if m.Name == "" {
		return ErrEmptyName
	}
	if m.Email == "" {
		return ErrEmptyEmail
	}
	return nil
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and
// optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
