package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
)

// ticketsHandler handles GET and POST /tickets.
func (s *Server) ticketsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("ticketsHandler invoked", "method", r.Method, "path", r.URL.Path)
	switch r.Method {
	case http.MethodGet:
		tickets, err := s.store.ListTickets()
		if err != nil {
			slog.Error("ticketsHandler list failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list tickets"))
			return
		}
		if tickets == nil {
			tickets = []models.Ticket{}
		}
		writeJSONResponse(w, http.StatusOK, models.Success(tickets))

	case http.MethodPost:
		var t models.Ticket
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			slog.Warn("ticketsHandler invalid JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		t.ID = 0
		if t.Status == "" {
			t.Status = models.TicketStatusOpen
		}
		if t.Priority == "" {
			t.Priority = models.TicketPriorityMedium
		}
		if err := t.Validate(); err != nil {
			slog.Warn("ticketsHandler validation failed", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		if t.CustomerID != 0 {
			customer, err := s.store.GetCustomer(t.CustomerID)
			if err != nil {
				slog.Error("ticketsHandler customer check failed", "error", err)
				writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to check customer"))
				return
			}
			if customer == nil {
				writeJSONResponse(w, http.StatusBadRequest, models.Error("Customer not found"))
				return
			}
		}
		if err := s.store.CreateTicket(&t); err != nil {
			slog.Error("ticketsHandler create failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create ticket"))
			return
		}
		slog.Info("ticketsHandler ticket created", "id", t.ID, "customerID", t.CustomerID)
		writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Ticket created", t))

	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ticketHandler handles GET and PUT /tickets/{id}.
func (s *Server) ticketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id, ok := int64FromPath(r.URL.Path, "/tickets/")
	if !ok {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid ticket ID"))
		return
	}
	slog.Debug("ticketHandler invoked", "method", r.Method, "id", id)

	switch r.Method {
	case http.MethodGet:
		t, err := s.store.GetTicket(id)
		if err != nil {
			slog.Error("ticketHandler get failed", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get ticket"))
			return
		}
		if t == nil {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Ticket not found"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(t))

	case http.MethodPut:
		var upd models.TicketUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			slog.Warn("ticketHandler invalid JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if upd.Status != nil && !models.IsValidTicketStatus(*upd.Status) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid ticket status"))
			return
		}
		if upd.Priority != nil && !models.IsValidTicketPriority(*upd.Priority) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid ticket priority"))
			return
		}
		t, err := s.store.UpdateTicket(id, upd)
		if err != nil {
			slog.Error("ticketHandler update failed", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update ticket"))
			return
		}
		if t == nil {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Ticket not found"))
			return
		}
		slog.Info("ticketHandler ticket updated", "id", id, "status", t.Status)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Ticket updated", t))

	default:
		w.Header().Set("Allow", "GET, PUT")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
