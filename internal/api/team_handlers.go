package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
)

// teamHandler handles GET and POST /team.
func (s *Server) teamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("teamHandler invoked", "method", r.Method, "path", r.URL.Path)
	switch r.Method {
	case http.MethodGet:
		members, err := s.store.ListTeamMembers()
		if err != nil {
			slog.Error("teamHandler list failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list team members"))
			return
		}
		if members == nil {
			members = []models.TeamMember{}
		}
		writeJSONResponse(w, http.StatusOK, models.Success(members))

	case http.MethodPost:
		var m models.TeamMember
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			slog.Warn("teamHandler invalid JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		m.ID = 0
		m.Active = true
		if err := m.Validate(); err != nil {
			slog.Warn("teamHandler validation failed", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		if err := s.store.SaveTeamMember(&m); err != nil {
			slog.Error("teamHandler save failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create team member"))
			return
		}
		slog.Info("teamHandler member created", "id", m.ID)
		writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Team member created", m))

	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// teamMemberHandler handles GET, PUT and DELETE /team/{id}.
func (s *Server) teamMemberHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id, ok := int64FromPath(r.URL.Path, "/team/")
	if !ok {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid team member ID"))
		return
	}
	slog.Debug("teamMemberHandler invoked", "method", r.Method, "id", id)

	existing, err := s.store.GetTeamMember(id)
	if err != nil {
		slog.Error("teamMemberHandler check failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to check team member"))
		return
	}
	if existing == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Team member not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, models.Success(existing))

	case http.MethodPut:
		var m models.TeamMember
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			slog.Warn("teamMemberHandler invalid JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		m.ID = id
		m.CreatedAt = existing.CreatedAt
		if err := m.Validate(); err != nil {
			slog.Warn("teamMemberHandler validation failed", "error", err, "id", id)
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		if err := s.store.SaveTeamMember(&m); err != nil {
			slog.Error("teamMemberHandler update failed", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update team member"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Team member updated", m))

	case http.MethodDelete:
		if err := s.store.DeleteTeamMember(id); err != nil {
			slog.Error("teamMemberHandler delete failed", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete team member"))
			return
		}
		slog.Info("teamMemberHandler member deleted", "id", id)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Team member deleted", nil))

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
