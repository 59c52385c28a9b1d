package messaging

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/andressabgomes/centralflow-sub000/internal/bot"
	"github.com/andressabgomes/centralflow-sub000/internal/botconfig"
	"github.com/andressabgomes/centralflow-sub000/internal/models"
	"github.com/andressabgomes/centralflow-sub000/internal/store"
)

func newTestHandler(t *testing.T) (*InboundHandler, *store.InMemoryStore, *SimulatedService) {
	t.Helper()
	st := store.NewInMemoryStore()
	provider := botconfig.NewProvider(botconfig.Defaults())
	engine := bot.NewEngine(provider, bot.NewStoreMaterializer(st))
	service := NewSimulatedService()
	return NewInboundHandler(st, engine, service), st, service
}

func inbound(from, body, id string) models.Response {
	return models.Response{From: from, Body: body, MessageID: id}
}

func TestHandleInboundFullFlow(t *testing.T) {
	h, st, service := newTestHandler(t)
	ctx := context.Background()
	phone := "+5585988887777"

	msgs := []string{"Olá", "1", "123.456.789-01", "Maria Silva", "4"}
	for i, body := range msgs {
		if err := h.HandleInbound(ctx, inbound(phone, body, fmt.Sprintf("m-%d", i))); err != nil {
			t.Fatalf("HandleInbound(%q) failed: %v", body, err)
		}
	}

	conv, err := st.GetActiveConversationByPhone(phone)
	if err != nil {
		t.Fatalf("GetActiveConversationByPhone failed: %v", err)
	}
	if conv == nil {
		t.Fatal("expected active conversation")
	}
	if conv.Status != models.ConversationStatusWaiting {
		t.Errorf("expected status waiting, got %q", conv.Status)
	}
	if conv.Stage != models.StageCompleted {
		t.Errorf("expected stage completed, got %q", conv.Stage)
	}
	if conv.CustomerID == 0 || conv.TicketID == 0 {
		t.Errorf("expected stamped IDs, got customer=%d ticket=%d", conv.CustomerID, conv.TicketID)
	}
	if conv.CollectedData[models.DataKeyContactReason] != "Reclamação" {
		t.Errorf("completed conversation missing contact reason: %v", conv.CollectedData)
	}

	ticket, err := st.GetTicket(conv.TicketID)
	if err != nil || ticket == nil {
		t.Fatalf("GetTicket failed: %v (%+v)", err, ticket)
	}
	if ticket.Title != "Reclamação - Maria Silva" {
		t.Errorf("unexpected ticket title: %q", ticket.Title)
	}
	if ticket.Status != models.TicketStatusOpen || ticket.Priority != models.TicketPriorityMedium {
		t.Errorf("unexpected ticket defaults: %q/%q", ticket.Status, ticket.Priority)
	}

	customer, err := st.GetCustomerByDocument("12345678901")
	if err != nil || customer == nil {
		t.Fatalf("customer not materialized: %v (%+v)", err, customer)
	}
	if customer.Name != "Maria Silva" || customer.Phone != phone {
		t.Errorf("unexpected customer: %+v", customer)
	}

	sent := service.SentMessages()
	if len(sent) != len(msgs) {
		t.Fatalf("expected %d replies, got %d", len(msgs), len(sent))
	}
	if !strings.Contains(sent[len(sent)-1].Body, fmt.Sprintf("Chamado: #%d", ticket.ID)) {
		t.Errorf("summary missing ticket number: %q", sent[len(sent)-1].Body)
	}

	// Each inbound plus each reply is persisted on the conversation.
	persisted, err := st.ListMessages(conv.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(persisted) != 2*len(msgs) {
		t.Errorf("expected %d persisted messages, got %d", 2*len(msgs), len(persisted))
	}
}

func TestHandleInboundDuplicateDelivery(t *testing.T) {
	h, st, service := newTestHandler(t)
	ctx := context.Background()
	phone := "+5585988886666"

	if err := h.HandleInbound(ctx, inbound(phone, "Oi", "dup-1")); err != nil {
		t.Fatalf("HandleInbound failed: %v", err)
	}
	if err := h.HandleInbound(ctx, inbound(phone, "Oi", "dup-1")); err != nil {
		t.Fatalf("duplicate HandleInbound failed: %v", err)
	}

	if got := len(service.SentMessages()); got != 1 {
		t.Errorf("expected a single reply for duplicate delivery, got %d", got)
	}

	conv, err := st.GetActiveConversationByPhone(phone)
	if err != nil || conv == nil {
		t.Fatalf("conversation missing: %v", err)
	}
	msgs, err := st.ListMessages(conv.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("expected inbound + reply only, got %d messages", len(msgs))
	}
}

func TestHandleInboundInvalidInputStaysOnStage(t *testing.T) {
	h, st, service := newTestHandler(t)
	ctx := context.Background()
	phone := "+5585988885555"

	seq := []string{"Oi", "talvez", "abc", "1"}
	for i, body := range seq {
		if err := h.HandleInbound(ctx, inbound(phone, body, fmt.Sprintf("s-%d", i))); err != nil {
			t.Fatalf("HandleInbound(%q) failed: %v", body, err)
		}
	}

	conv, err := st.GetActiveConversationByPhone(phone)
	if err != nil || conv == nil {
		t.Fatalf("conversation missing: %v", err)
	}
	if conv.Stage != models.StageDocument {
		t.Errorf("expected document stage after two invalid answers then 1, got %q", conv.Stage)
	}

	sent := service.SentMessages()
	if len(sent) != 4 {
		t.Fatalf("expected 4 replies, got %d", len(sent))
	}
	defaults := botconfig.Defaults()
	if sent[1].Body != defaults.InvalidPersonType || sent[2].Body != defaults.InvalidPersonType {
		t.Errorf("expected invalid person type re-prompts, got %q / %q", sent[1].Body, sent[2].Body)
	}
}

func TestHandleInboundHumanOwnedConversationStaysSilent(t *testing.T) {
	h, st, service := newTestHandler(t)
	ctx := context.Background()
	phone := "+5585988884444"

	if err := h.HandleInbound(ctx, inbound(phone, "Oi", "h-1")); err != nil {
		t.Fatalf("HandleInbound failed: %v", err)
	}
	conv, err := st.GetActiveConversationByPhone(phone)
	if err != nil || conv == nil {
		t.Fatalf("conversation missing: %v", err)
	}

	conv.Status = models.ConversationStatusActive
	conv.AssignedTo = "ana@example.com"
	if err := st.SaveConversation(*conv); err != nil {
		t.Fatalf("SaveConversation failed: %v", err)
	}

	if err := h.HandleInbound(ctx, inbound(phone, "ainda estou esperando", "h-2")); err != nil {
		t.Fatalf("HandleInbound failed: %v", err)
	}

	if got := len(service.SentMessages()); got != 1 {
		t.Errorf("expected no bot reply on a human-owned conversation, got %d messages", got)
	}
	msgs, err := st.ListMessages(conv.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	// Inbound messages keep being recorded for the agent's inbox view.
	if len(msgs) != 3 {
		t.Errorf("expected 3 persisted messages, got %d", len(msgs))
	}
}

func TestHandleInboundInvalidSenderDropped(t *testing.T) {
	h, st, service := newTestHandler(t)
	ctx := context.Background()

	if err := h.HandleInbound(ctx, inbound("not-a-number", "Oi", "x-1")); err != nil {
		t.Fatalf("expected invalid sender to be dropped without error, got %v", err)
	}
	if got := len(service.SentMessages()); got != 0 {
		t.Errorf("expected no replies, got %d", got)
	}
	convs, err := st.ListConversations("")
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 0 {
		t.Errorf("expected no conversations, got %d", len(convs))
	}
}

func TestHandleInboundTwilioPrefixedSender(t *testing.T) {
	h, st, _ := newTestHandler(t)
	ctx := context.Background()

	if err := h.HandleInbound(ctx, inbound("whatsapp:+5585988883333", "Oi", "t-1")); err != nil {
		t.Fatalf("HandleInbound failed: %v", err)
	}
	conv, err := st.GetActiveConversationByPhone("+5585988883333")
	if err != nil {
		t.Fatalf("GetActiveConversationByPhone failed: %v", err)
	}
	if conv == nil {
		t.Fatal("expected conversation keyed by canonical phone")
	}
}
