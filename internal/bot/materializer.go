package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
	"github.com/andressabgomes/centralflow-sub000/internal/store"
)

// StoreMaterializer implements Materializer on top of a Store. The customer
// upsert (keyed by document), the ticket insert and the conversation update
// run in one store transaction, so a failed completion leaves no partial
// records behind.
type StoreMaterializer struct {
	store store.Store
}

// NewStoreMaterializer creates a materializer backed by the given store.
func NewStoreMaterializer(st store.Store) *StoreMaterializer {
	return &StoreMaterializer{store: st}
}

// Compile-time check that StoreMaterializer implements Materializer.
var _ Materializer = (*StoreMaterializer)(nil)

// Complete turns a fully collected data bag into persisted Customer and
// Ticket records and moves the conversation out of bot mode. On error the
// conversation struct is left untouched.
func (m *StoreMaterializer) Complete(ctx context.Context, conv *models.Conversation, collected map[string]string) (int64, int64, error) {
	customer := buildCustomer(conv, collected)
	if err := customer.Validate(); err != nil {
		return 0, 0, fmt.Errorf("invalid customer from collected data: %w", err)
	}

	ticket := buildTicket(collected)
	if err := ticket.Validate(); err != nil {
		return 0, 0, fmt.Errorf("invalid ticket from collected data: %w", err)
	}

	if err := m.store.CompleteIntake(ctx, conv, collected, customer, ticket); err != nil {
		slog.Error("StoreMaterializer CompleteIntake failed", "error", err, "conversationID", conv.ID)
		return 0, 0, err
	}

	slog.Debug("StoreMaterializer completed intake", "conversationID", conv.ID, "customerID", customer.ID, "ticketID", ticket.ID)
	return customer.ID, ticket.ID, nil
}

// buildCustomer maps collected data onto a customer record. The document is
// the dedup key; the store updates an existing customer with the same
// document in place.
func buildCustomer(conv *models.Conversation, collected map[string]string) *models.Customer {
	customer := &models.Customer{
		Document:     collected[models.DataKeyDocument],
		DocumentType: models.DocumentType(collected[models.DataKeyDocumentType]),
		Phone:        conv.PhoneNumber,
	}
	if collected[models.DataKeyPersonType] == string(models.PersonTypeOrganization) {
		customer.CompanyName = collected[models.DataKeyCompanyName]
	} else {
		customer.Name = collected[models.DataKeyCustomerName]
	}
	return customer
}

// buildTicket synthesizes the ticket from collected data. The title template
// and the fixed open/medium defaults are deliberate: the bot does not infer
// priority from the contact reason.
func buildTicket(collected map[string]string) *models.Ticket {
	reason := collected[models.DataKeyContactReason]
	name := collectedName(collected)

	return &models.Ticket{
		Title:       fmt.Sprintf("%s - %s", reason, name),
		Description: renderTicketDescription(collected),
		Status:      models.TicketStatusOpen,
		Priority:    models.TicketPriorityMedium,
	}
}

// renderTicketDescription echoes the collected data verbatim so agents see
// exactly what the bot gathered.
func renderTicketDescription(collected map[string]string) string {
	var b strings.Builder
	b.WriteString("Atendimento iniciado pelo bot de triagem via WhatsApp.\n\n")

	if collected[models.DataKeyPersonType] == string(models.PersonTypeOrganization) {
		b.WriteString("Tipo: Pessoa Jurídica\n")
		fmt.Fprintf(&b, "CNPJ: %s\n", collected[models.DataKeyDocument])
		fmt.Fprintf(&b, "Empresa: %s\n", collected[models.DataKeyCompanyName])
	} else {
		b.WriteString("Tipo: Pessoa Física\n")
		fmt.Fprintf(&b, "CPF: %s\n", collected[models.DataKeyDocument])
		fmt.Fprintf(&b, "Nome: %s\n", collected[models.DataKeyCustomerName])
	}
	fmt.Fprintf(&b, "Motivo do contato: %s", collected[models.DataKeyContactReason])
	return b.String()
}
