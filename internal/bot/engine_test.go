package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/andressabgomes/centralflow-sub000/internal/botconfig"
	"github.com/andressabgomes/centralflow-sub000/internal/models"
	"github.com/andressabgomes/centralflow-sub000/internal/store"
	"github.com/google/uuid"
)

func newTestEngine(t *testing.T) (*Engine, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	provider := botconfig.NewProvider(botconfig.Defaults())
	return NewEngine(provider, NewStoreMaterializer(st)), st
}

func newConversation(stage models.Stage, collected map[string]string) *models.Conversation {
	now := time.Now()
	if collected == nil {
		collected = make(map[string]string)
	}
	return &models.Conversation{
		ID:            uuid.NewString(),
		PhoneNumber:   "+5585999990000",
		Status:        models.ConversationStatusBot,
		Stage:         stage,
		CollectedData: collected,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// runFlow feeds a message sequence through the engine, persisting the stage
// transitions the way the inbound pipeline does, and returns the final
// conversation state plus every reply.
func runFlow(t *testing.T, e *Engine, st *store.InMemoryStore, msgs []string) (*models.Conversation, []string, TurnResult) {
	t.Helper()
	conv := newConversation(models.StageIdentify, nil)
	if err := st.SaveConversation(*conv); err != nil {
		t.Fatalf("SaveConversation failed: %v", err)
	}

	var replies []string
	var last TurnResult
	for _, body := range msgs {
		result, err := e.ProcessTurn(context.Background(), conv, body)
		if err != nil {
			t.Fatalf("ProcessTurn(%q) failed: %v", body, err)
		}
		if !result.Completed {
			conv.Stage = result.NextStage
			conv.CollectedData = result.Collected
			if err := st.SaveConversation(*conv); err != nil {
				t.Fatalf("SaveConversation failed: %v", err)
			}
		}
		replies = append(replies, result.Reply)
		last = result
	}
	return conv, replies, last
}

func TestIndividualFlowEndToEnd(t *testing.T) {
	e, st := newTestEngine(t)

	conv, replies, last := runFlow(t, e, st, []string{"Oi", "1", "123.456.789-01", "Maria Silva", "4"})

	if !last.Completed {
		t.Fatal("expected flow to complete")
	}
	if conv.Stage != models.StageCompleted || conv.Status != models.ConversationStatusWaiting {
		t.Errorf("conversation not completed: stage=%q status=%q", conv.Stage, conv.Status)
	}

	ticket, err := st.GetTicket(last.TicketID)
	if err != nil || ticket == nil {
		t.Fatalf("ticket not created: %v", err)
	}
	if ticket.Title != "Reclamação - Maria Silva" {
		t.Errorf("unexpected ticket title: %q", ticket.Title)
	}
	if ticket.Status != models.TicketStatusOpen || ticket.Priority != models.TicketPriorityMedium {
		t.Errorf("unexpected ticket defaults: %q/%q", ticket.Status, ticket.Priority)
	}
	if !strings.Contains(ticket.Description, "CPF: 12345678901") {
		t.Errorf("description missing document: %q", ticket.Description)
	}

	customer, err := st.GetCustomer(last.CustomerID)
	if err != nil || customer == nil {
		t.Fatalf("customer not created: %v", err)
	}
	if customer.Name != "Maria Silva" || customer.Document != "12345678901" {
		t.Errorf("unexpected customer: %+v", customer)
	}
	if customer.DocumentType != models.DocumentTypeCPF {
		t.Errorf("expected cpf document type, got %q", customer.DocumentType)
	}

	summary := replies[len(replies)-1]
	if !strings.Contains(summary, "Maria Silva") || !strings.Contains(summary, fmt.Sprintf("#%d", ticket.ID)) {
		t.Errorf("summary incomplete: %q", summary)
	}
}

func TestCompletionPersistsContactReason(t *testing.T) {
	e, st := newTestEngine(t)

	conv := newConversation(models.StageContactReason, map[string]string{
		models.DataKeyPersonType:   string(models.PersonTypeIndividual),
		models.DataKeyDocument:     "12345678901",
		models.DataKeyDocumentType: string(models.DocumentTypeCPF),
		models.DataKeyCustomerName: "Maria Silva",
	})
	if err := st.SaveConversation(*conv); err != nil {
		t.Fatalf("SaveConversation failed: %v", err)
	}

	result, err := e.ProcessTurn(context.Background(), conv, "4")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if !result.Completed {
		t.Fatal("expected flow to complete")
	}

	// The reason is decided on the completing turn; the conversation row an
	// agent later reads must carry the full bag, not the pre-turn one.
	if conv.CollectedData[models.DataKeyContactReason] != "Reclamação" {
		t.Errorf("conversation struct missing contact reason: %v", conv.CollectedData)
	}
	persisted, err := st.GetConversation(conv.ID)
	if err != nil || persisted == nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if persisted.CollectedData[models.DataKeyContactReason] != "Reclamação" {
		t.Errorf("persisted conversation missing contact reason: %v", persisted.CollectedData)
	}
	if persisted.CollectedData[models.DataKeyCustomerName] != "Maria Silva" {
		t.Errorf("persisted conversation lost earlier fields: %v", persisted.CollectedData)
	}
}

func TestOrganizationFlowWithRetries(t *testing.T) {
	e, st := newTestEngine(t)

	// "123" is too short for a CNPJ and must re-prompt without advancing.
	conv, replies, last := runFlow(t, e, st, []string{"Olá", "2", "123", "12.345.678/0001-99", "Acme Corp", "2"})

	if !last.Completed {
		t.Fatal("expected flow to complete")
	}
	if got := replies[2]; !strings.Contains(got, "CNPJ") || !strings.Contains(got, "14") {
		t.Errorf("expected CNPJ re-prompt with expected digit count, got %q", got)
	}

	ticket, err := st.GetTicket(last.TicketID)
	if err != nil || ticket == nil {
		t.Fatalf("ticket not created: %v", err)
	}
	if ticket.Title != "Dúvidas sobre produtos - Acme Corp" {
		t.Errorf("unexpected ticket title: %q", ticket.Title)
	}

	customer, err := st.GetCustomer(last.CustomerID)
	if err != nil || customer == nil {
		t.Fatalf("customer not created: %v", err)
	}
	if customer.CompanyName != "Acme Corp" || customer.Name != "" {
		t.Errorf("expected company name only, got %+v", customer)
	}
	if customer.Document != "12345678000199" || customer.DocumentType != models.DocumentTypeCNPJ {
		t.Errorf("unexpected document: %q/%q", customer.Document, customer.DocumentType)
	}
	_ = conv
}

func TestInvalidInputNeverAdvances(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		stage models.Stage
		data  map[string]string
		texts []string
	}{
		{
			name:  "person type",
			stage: models.StagePersonType,
			data:  map[string]string{},
			texts: []string{"", "3", "sim", "12"},
		},
		{
			name:  "document",
			stage: models.StageDocument,
			data:  map[string]string{models.DataKeyPersonType: string(models.PersonTypeIndividual)},
			texts: []string{"", "123", "123456789012345", "abc"},
		},
		{
			name:  "name",
			stage: models.StageName,
			data: map[string]string{
				models.DataKeyPersonType: string(models.PersonTypeIndividual),
				models.DataKeyDocument:   "12345678901",
			},
			texts: []string{"", "ab", "  a  "},
		},
		{
			name:  "contact reason",
			stage: models.StageContactReason,
			data: map[string]string{
				models.DataKeyPersonType:   string(models.PersonTypeIndividual),
				models.DataKeyDocument:     "12345678901",
				models.DataKeyCustomerName: "Maria Silva",
			},
			texts: []string{"", "0", "6", "suporte"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, text := range tc.texts {
				conv := newConversation(tc.stage, tc.data)
				result, err := e.ProcessTurn(ctx, conv, text)
				if err != nil {
					t.Fatalf("ProcessTurn(%q) failed: %v", text, err)
				}
				if result.NextStage != tc.stage {
					t.Errorf("input %q advanced stage %q -> %q", text, tc.stage, result.NextStage)
				}
				if result.Reply == "" {
					t.Errorf("input %q produced no re-prompt", text)
				}
				if len(result.Collected) != len(tc.data) {
					t.Errorf("input %q mutated collected data: %v", text, result.Collected)
				}
			}
		})
	}
}

func TestPersonTypeAnswerTrimmed(t *testing.T) {
	e, _ := newTestEngine(t)
	conv := newConversation(models.StagePersonType, nil)

	result, err := e.ProcessTurn(context.Background(), conv, "  1  ")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if result.NextStage != models.StageDocument {
		t.Errorf("expected whitespace-padded answer accepted, got stage %q", result.NextStage)
	}
	if result.Collected[models.DataKeyPersonType] != string(models.PersonTypeIndividual) {
		t.Errorf("person type not recorded: %v", result.Collected)
	}
}

func TestDocumentAcceptsPunctuation(t *testing.T) {
	e, _ := newTestEngine(t)
	conv := newConversation(models.StageDocument, map[string]string{
		models.DataKeyPersonType: string(models.PersonTypeOrganization),
	})

	result, err := e.ProcessTurn(context.Background(), conv, "12.345.678/0001-99")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if result.NextStage != models.StageName {
		t.Fatalf("expected advance to name stage, got %q", result.NextStage)
	}
	if result.Collected[models.DataKeyDocument] != "12345678000199" {
		t.Errorf("expected digits-only document, got %q", result.Collected[models.DataKeyDocument])
	}
}

func TestCompletedStageIsAbsorbing(t *testing.T) {
	e, _ := newTestEngine(t)
	conv := newConversation(models.StageCompleted, map[string]string{
		models.DataKeyPersonType: string(models.PersonTypeIndividual),
	})

	for _, text := range []string{"oi", "1", "obrigado"} {
		result, err := e.ProcessTurn(context.Background(), conv, text)
		if err != nil {
			t.Fatalf("ProcessTurn(%q) failed: %v", text, err)
		}
		if result.NextStage != models.StageCompleted {
			t.Errorf("completed stage moved to %q", result.NextStage)
		}
		if result.Reply != "" {
			t.Errorf("completed stage replied %q", result.Reply)
		}
	}
}

func TestCorruptCollectedDataResets(t *testing.T) {
	e, _ := newTestEngine(t)

	// Document stage without a person type: a prior stage's field is gone.
	conv := newConversation(models.StageDocument, map[string]string{})
	result, err := e.ProcessTurn(context.Background(), conv, "12345678901")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if result.NextStage != models.StagePersonType {
		t.Errorf("expected reset to person type stage, got %q", result.NextStage)
	}
	if len(result.Collected) != 0 {
		t.Errorf("expected fresh collected data, got %v", result.Collected)
	}
	if result.Reply != botconfig.Defaults().Welcome {
		t.Errorf("expected welcome on reset, got %q", result.Reply)
	}

	// Reason stage with the document gone: completing would materialize a
	// customer with an empty dedup key, so the flow must reset instead.
	conv = newConversation(models.StageContactReason, map[string]string{
		models.DataKeyPersonType:   string(models.PersonTypeIndividual),
		models.DataKeyCustomerName: "Maria Silva",
	})
	result, err = e.ProcessTurn(context.Background(), conv, "4")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if result.NextStage != models.StagePersonType {
		t.Errorf("expected reset on missing document, got %q", result.NextStage)
	}
	if result.Completed {
		t.Error("flow completed without a document")
	}

	// Unknown stage value behaves the same.
	conv = newConversation(models.Stage("garbage"), nil)
	result, err = e.ProcessTurn(context.Background(), conv, "oi")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if result.NextStage != models.StagePersonType {
		t.Errorf("expected reset on unknown stage, got %q", result.NextStage)
	}
}

func TestRepeatIntakeReusesCustomer(t *testing.T) {
	e, st := newTestEngine(t)

	_, _, first := runFlow(t, e, st, []string{"Oi", "1", "12345678901", "Maria Silva", "1"})
	_, _, second := runFlow(t, e, st, []string{"Oi", "1", "12345678901", "Maria S. Santos", "3"})

	if first.CustomerID != second.CustomerID {
		t.Errorf("expected same customer for same document: %d != %d", first.CustomerID, second.CustomerID)
	}
	if first.TicketID == second.TicketID {
		t.Error("expected a fresh ticket per intake")
	}

	customer, err := st.GetCustomer(first.CustomerID)
	if err != nil || customer == nil {
		t.Fatalf("GetCustomer failed: %v", err)
	}
	if customer.Name != "Maria S. Santos" {
		t.Errorf("expected refreshed name, got %q", customer.Name)
	}
}

// failingMaterializer simulates a persistence failure at completion.
type failingMaterializer struct{}

func (f failingMaterializer) Complete(ctx context.Context, conv *models.Conversation, collected map[string]string) (int64, int64, error) {
	return 0, 0, errors.New("database unavailable")
}

func TestCompletionFailureDoesNotAdvance(t *testing.T) {
	provider := botconfig.NewProvider(botconfig.Defaults())
	e := NewEngine(provider, failingMaterializer{})

	data := map[string]string{
		models.DataKeyPersonType:   string(models.PersonTypeIndividual),
		models.DataKeyDocument:     "12345678901",
		models.DataKeyCustomerName: "Maria Silva",
	}
	conv := newConversation(models.StageContactReason, data)

	_, err := e.ProcessTurn(context.Background(), conv, "4")
	if err == nil {
		t.Fatal("expected completion error")
	}
	if conv.Stage != models.StageContactReason {
		t.Errorf("conversation advanced despite failure: %q", conv.Stage)
	}
	if conv.Status != models.ConversationStatusBot {
		t.Errorf("conversation left bot mode despite failure: %q", conv.Status)
	}
	// The input map is never mutated.
	if _, ok := data[models.DataKeyContactReason]; ok {
		t.Error("input collected data was mutated")
	}
}

func TestReasonMenuRendering(t *testing.T) {
	defaults := botconfig.Defaults()
	menu := renderReasonList(defaults.Reasons)
	want := "1 - Suporte técnico\n2 - Dúvidas sobre produtos\n3 - Solicitação comercial\n4 - Reclamação\n5 - Outros"
	if menu != want {
		t.Errorf("unexpected menu rendering:\n%s", menu)
	}
}
