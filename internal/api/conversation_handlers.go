package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
	"github.com/google/uuid"
)

// conversationsHandler handles GET /conversations with an optional ?status= filter.
func (s *Server) conversationsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("conversationsHandler invoked", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := models.ConversationStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.ConversationStatusBot, models.ConversationStatusWaiting,
		models.ConversationStatusActive, models.ConversationStatusClosed:
	default:
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid conversation status filter"))
		return
	}

	conversations, err := s.store.ListConversations(status)
	if err != nil {
		slog.Error("conversationsHandler list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list conversations"))
		return
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(conversations))
}

// conversationDetail is the GET /conversations/{id} payload: the conversation
// plus its full message history.
type conversationDetail struct {
	Conversation models.Conversation `json:"conversation"`
	Messages     []models.Message    `json:"messages"`
}

// conversationHandler dispatches /conversations/{id} and its sub-resources
// (/assign, /close, /reply).
func (s *Server) conversationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/conversations/"), "/")
	parts := strings.SplitN(raw, "/", 2)
	id := parts[0]
	if id == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid conversation ID"))
		return
	}

	conv, err := s.store.GetConversation(id)
	if err != nil {
		slog.Error("conversationHandler get failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get conversation"))
		return
	}
	if conv == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Conversation not found"))
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		messages, err := s.store.ListMessages(conv.ID)
		if err != nil {
			slog.Error("conversationHandler messages failed", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list messages"))
			return
		}
		if messages == nil {
			messages = []models.Message{}
		}
		writeJSONResponse(w, http.StatusOK, models.Success(conversationDetail{Conversation: *conv, Messages: messages}))
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch parts[1] {
	case "assign":
		s.assignConversation(w, r, conv)
	case "close":
		s.closeConversation(w, conv)
	case "reply":
		s.replyConversation(w, r, conv)
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown conversation action"))
	}
}

// assignConversation handles POST /conversations/{id}/assign: a human agent
// claims the conversation, taking it out of bot mode.
func (s *Server) assignConversation(w http.ResponseWriter, r *http.Request, conv *models.Conversation) {
	var req struct {
		AssignedTo string `json:"assigned_to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("assignConversation invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.AssignedTo == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("assigned_to is required"))
		return
	}
	if conv.Status == models.ConversationStatusClosed {
		writeJSONResponse(w, http.StatusConflict, models.Error("Conversation is closed"))
		return
	}

	conv.Status = models.ConversationStatusActive
	conv.AssignedTo = req.AssignedTo
	conv.UpdatedAt = time.Now()
	if err := s.store.SaveConversation(*conv); err != nil {
		slog.Error("assignConversation save failed", "error", err, "id", conv.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to assign conversation"))
		return
	}
	slog.Info("assignConversation succeeded", "id", conv.ID, "assignedTo", req.AssignedTo)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Conversation assigned", conv))
}

// closeConversation handles POST /conversations/{id}/close. A new inbound
// message from the same phone afterwards starts a fresh conversation.
func (s *Server) closeConversation(w http.ResponseWriter, conv *models.Conversation) {
	if conv.Status == models.ConversationStatusClosed {
		writeJSONResponse(w, http.StatusConflict, models.Error("Conversation is already closed"))
		return
	}
	conv.Status = models.ConversationStatusClosed
	conv.UpdatedAt = time.Now()
	if err := s.store.SaveConversation(*conv); err != nil {
		slog.Error("closeConversation save failed", "error", err, "id", conv.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to close conversation"))
		return
	}
	slog.Info("closeConversation succeeded", "id", conv.ID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Conversation closed", conv))
}

// replyConversation handles POST /conversations/{id}/reply: an agent sends a
// message through the active channel; it is recorded on the conversation.
func (s *Server) replyConversation(w http.ResponseWriter, r *http.Request, conv *models.Conversation) {
	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("replyConversation invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("body is required"))
		return
	}
	if conv.Status == models.ConversationStatusClosed {
		writeJSONResponse(w, http.StatusConflict, models.Error("Conversation is closed"))
		return
	}

	if err := s.msgService.SendMessage(context.Background(), conv.PhoneNumber, req.Body); err != nil {
		slog.Error("replyConversation send failed", "error", err, "id", conv.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to send message"))
		return
	}

	now := time.Now()
	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Direction:      models.MessageDirectionOutbound,
		Type:           "text",
		Content:        req.Body,
		CreatedAt:      now,
	}
	if err := s.store.AddMessage(msg); err != nil {
		slog.Error("replyConversation record failed", "error", err, "id", conv.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Message sent but failed to record"))
		return
	}
	conv.LastMessageAt = now
	conv.UpdatedAt = now
	if err := s.store.SaveConversation(*conv); err != nil {
		slog.Error("replyConversation touch failed", "error", err, "id", conv.ID)
	}

	slog.Info("replyConversation succeeded", "id", conv.ID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Message sent", msg))
}
