package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/andressabgomes/centralflow-sub000/internal/messaging"
	"github.com/andressabgomes/centralflow-sub000/internal/models"
	"github.com/andressabgomes/centralflow-sub000/internal/store"
	"github.com/google/uuid"
)

func newTestServer(t *testing.T) (*Server, *store.InMemoryStore, *messaging.SimulatedService) {
	t.Helper()
	st := store.NewInMemoryStore()
	service := messaging.NewSimulatedService()
	srv := NewServer(st, service, WithWebhookVerifyToken("test-token"))
	return srv, st, service
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Status != string(models.APIStatusOK) {
		t.Errorf("expected ok status, got %q", resp.Status)
	}
}

func TestCustomerEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/customers", models.Customer{
		Name:         "Maria Silva",
		Document:     "123.456.789-01",
		DocumentType: models.DocumentTypeCPF,
		Phone:        "+5585999990001",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Same document again conflicts.
	w = doJSON(t, srv, http.MethodPost, "/customers", models.Customer{
		Name:     "Outra Maria",
		Document: "12345678901",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate document, got %d", w.Code)
	}

	// Name shorter than the minimum is rejected.
	w = doJSON(t, srv, http.MethodPost, "/customers", models.Customer{Name: "Jo"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for short name, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/customers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/customers/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/customers/999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown customer, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodDelete, "/customers/1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 on delete, got %d", w.Code)
	}
	w = doJSON(t, srv, http.MethodGet, "/customers/1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestTicketEndpoints(t *testing.T) {
	srv, st, _ := newTestServer(t)

	customer := &models.Customer{Name: "Acme Corp", Document: "12345678000199"}
	if err := st.SaveCustomer(customer); err != nil {
		t.Fatalf("SaveCustomer failed: %v", err)
	}

	w := doJSON(t, srv, http.MethodPost, "/tickets", models.Ticket{
		CustomerID: customer.ID,
		Title:      "Solicitação comercial - Acme Corp",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Unknown customer is rejected.
	w = doJSON(t, srv, http.MethodPost, "/tickets", models.Ticket{CustomerID: 999, Title: "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown customer, got %d", w.Code)
	}

	status := models.TicketStatusResolved
	w = doJSON(t, srv, http.MethodPut, "/tickets/1", models.TicketUpdate{Status: &status})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	updated, err := st.GetTicket(1)
	if err != nil || updated == nil {
		t.Fatalf("GetTicket failed: %v", err)
	}
	if updated.Status != models.TicketStatusResolved {
		t.Errorf("expected resolved, got %q", updated.Status)
	}
	// Defaults applied at creation survive the partial update.
	if updated.Priority != models.TicketPriorityMedium {
		t.Errorf("expected medium priority, got %q", updated.Priority)
	}

	w = doJSON(t, srv, http.MethodPut, "/tickets/1", map[string]string{"status": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid status, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodPut, "/tickets/999", models.TicketUpdate{Status: &status})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown ticket, got %d", w.Code)
	}
}

func TestTeamEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/team", models.TeamMember{
		Name:  "Ana Souza",
		Email: "ana@example.com",
		Role:  "agent",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, srv, http.MethodPost, "/team", models.TeamMember{Name: "Sem Email"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing email, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/team/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodDelete, "/team/1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 on delete, got %d", w.Code)
	}
}

func seedConversation(t *testing.T, st *store.InMemoryStore, status models.ConversationStatus) models.Conversation {
	t.Helper()
	now := time.Now()
	conv := models.Conversation{
		ID:            uuid.NewString(),
		PhoneNumber:   "+5585988887777",
		Status:        status,
		Stage:         models.StageCompleted,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := st.SaveConversation(conv); err != nil {
		t.Fatalf("SaveConversation failed: %v", err)
	}
	return conv
}

func TestConversationEndpoints(t *testing.T) {
	srv, st, service := newTestServer(t)
	conv := seedConversation(t, st, models.ConversationStatusWaiting)

	w := doJSON(t, srv, http.MethodGet, "/conversations?status=waiting", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/conversations?status=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad filter, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/conversations/"+conv.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodPost, "/conversations/"+conv.ID+"/assign", map[string]string{"assigned_to": "ana@example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("assign failed: %d %s", w.Code, w.Body.String())
	}
	got, err := st.GetConversation(conv.ID)
	if err != nil || got == nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.Status != models.ConversationStatusActive || got.AssignedTo != "ana@example.com" {
		t.Errorf("assign not applied: %+v", got)
	}

	w = doJSON(t, srv, http.MethodPost, "/conversations/"+conv.ID+"/reply", map[string]string{"body": "Olá, sou a Ana. Como posso ajudar?"})
	if w.Code != http.StatusOK {
		t.Fatalf("reply failed: %d %s", w.Code, w.Body.String())
	}
	if sent := service.SentMessages(); len(sent) != 1 || sent[0].To != conv.PhoneNumber {
		t.Errorf("reply not sent through channel: %+v", sent)
	}
	msgs, err := st.ListMessages(conv.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Direction != models.MessageDirectionOutbound {
		t.Errorf("reply not recorded: %+v", msgs)
	}

	w = doJSON(t, srv, http.MethodPost, "/conversations/"+conv.ID+"/close", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("close failed: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, srv, http.MethodPost, "/conversations/"+conv.ID+"/close", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 closing twice, got %d", w.Code)
	}
	w = doJSON(t, srv, http.MethodPost, "/conversations/"+conv.ID+"/reply", map[string]string{"body": "tarde demais"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 replying to closed conversation, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/conversations/"+uuid.NewString(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown conversation, got %d", w.Code)
	}
}

func TestWebhookVerification(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=test-token&hub.challenge=12345", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "12345" {
		t.Errorf("expected challenge echoed, got %q", w.Body.String())
	}

	w = doJSON(t, srv, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for wrong token, got %d", w.Code)
	}
}

func TestWebhookInbound(t *testing.T) {
	st := store.NewInMemoryStore()
	// The webhook requires a channel that accepts injected inbound messages.
	twilioService := messaging.NewTwilioService(nil)
	srv := NewServer(st, twilioService, WithWebhookVerifyToken("test-token"))

	form := url.Values{}
	form.Set("From", "whatsapp:+5585988886666")
	form.Set("Body", "Olá")
	form.Set("MessageSid", "SM123")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	select {
	case resp := <-twilioService.Responses():
		if resp.From != "whatsapp:+5585988886666" || resp.Body != "Olá" || resp.MessageID != "SM123" {
			t.Errorf("unexpected response payload: %+v", resp)
		}
	default:
		t.Fatal("expected inbound message on the response channel")
	}

	// Missing fields are rejected.
	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("From=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for incomplete webhook, got %d", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, st, _ := newTestServer(t)

	customer := &models.Customer{Name: "Stats Cliente", Document: "99988877766"}
	if err := st.SaveCustomer(customer); err != nil {
		t.Fatalf("SaveCustomer failed: %v", err)
	}
	ticket := &models.Ticket{
		CustomerID: customer.ID,
		Title:      "Outros - Stats Cliente",
		Status:     models.TicketStatusOpen,
		Priority:   models.TicketPriorityLow,
	}
	if err := st.CreateTicket(ticket); err != nil {
		t.Fatalf("CreateTicket failed: %v", err)
	}

	w := doJSON(t, srv, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Status string       `json:"status"`
		Result models.Stats `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if resp.Result.Customers != 1 || resp.Result.OpenTickets != 1 {
		t.Errorf("unexpected stats: %+v", resp.Result)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)
	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/stats"},
		{http.MethodPut, "/customers"},
		{http.MethodPost, fmt.Sprintf("/customers/%d", 1)},
	} {
		w := doJSON(t, srv, tc.method, tc.path, nil)
		if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 405, got %d", tc.method, tc.path, w.Code)
		}
	}
}
