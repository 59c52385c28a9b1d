package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
	"github.com/andressabgomes/centralflow-sub000/internal/util"
)

// int64FromPath extracts a numeric ID from a path like "/customers/42".
func int64FromPath(path, prefix string) (int64, bool) {
	raw := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if raw == "" || strings.Contains(raw, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// customersHandler handles GET and POST /customers.
func (s *Server) customersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("customersHandler invoked", "method", r.Method, "path", r.URL.Path)
	switch r.Method {
	case http.MethodGet:
		customers, err := s.store.ListCustomers()
		if err != nil {
			slog.Error("customersHandler list failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list customers"))
			return
		}
		if customers == nil {
			customers = []models.Customer{}
		}
		writeJSONResponse(w, http.StatusOK, models.Success(customers))

	case http.MethodPost:
		var c models.Customer
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			slog.Warn("customersHandler invalid JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		c.ID = 0
		c.Document = util.DigitsOnly(c.Document)
		if err := c.Validate(); err != nil {
			slog.Warn("customersHandler validation failed", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		if c.Document != "" {
			existing, err := s.store.GetCustomerByDocument(c.Document)
			if err != nil {
				slog.Error("customersHandler dedup check failed", "error", err)
				writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to check existing customer"))
				return
			}
			if existing != nil {
				writeJSONResponse(w, http.StatusConflict, models.Error("A customer with this document already exists"))
				return
			}
		}
		if err := s.store.SaveCustomer(&c); err != nil {
			slog.Error("customersHandler save failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create customer"))
			return
		}
		slog.Info("customersHandler customer created", "id", c.ID)
		writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Customer created", c))

	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// customerHandler handles GET, PUT and DELETE /customers/{id}.
func (s *Server) customerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id, ok := int64FromPath(r.URL.Path, "/customers/")
	if !ok {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid customer ID"))
		return
	}
	slog.Debug("customerHandler invoked", "method", r.Method, "id", id)

	switch r.Method {
	case http.MethodGet:
		c, err := s.store.GetCustomer(id)
		if err != nil {
			slog.Error("customerHandler get failed", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get customer"))
			return
		}
		if c == nil {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Customer not found"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(c))

	case http.MethodPut:
		existing, err := s.store.GetCustomer(id)
		if err != nil {
			slog.Error("customerHandler check failed", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to check customer"))
			return
		}
		if existing == nil {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Customer not found"))
			return
		}
		var c models.Customer
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			slog.Warn("customerHandler invalid JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		c.ID = id
		c.CreatedAt = existing.CreatedAt
		c.Document = util.DigitsOnly(c.Document)
		if err := c.Validate(); err != nil {
			slog.Warn("customerHandler validation failed", "error", err, "id", id)
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		if err := s.store.SaveCustomer(&c); err != nil {
			slog.Error("customerHandler update failed", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update customer"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Customer updated", c))

	case http.MethodDelete:
		existing, err := s.store.GetCustomer(id)
		if err != nil {
			slog.Error("customerHandler check failed", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to check customer"))
			return
		}
		if existing == nil {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Customer not found"))
			return
		}
		if err := s.store.DeleteCustomer(id); err != nil {
			slog.Error("customerHandler delete failed", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete customer"))
			return
		}
		slog.Info("customerHandler customer deleted", "id", id)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Customer deleted", nil))

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
