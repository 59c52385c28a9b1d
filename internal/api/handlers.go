package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
)

// healthHandler handles GET /health.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

// statsHandler handles GET /stats.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("statsHandler invoked", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.store.Stats()
	if err != nil {
		slog.Error("statsHandler failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to compute stats"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(stats))
}

// inboundEnqueuer is implemented by webhook-driven messaging services.
type inboundEnqueuer interface {
	EnqueueInbound(resp models.Response) bool
}

// webhookHandler handles the messaging provider webhook.
//
// GET performs the provider's subscription verification handshake; POST
// delivers an inbound message (Twilio's form encoding).
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("webhookHandler invoked", "method", r.Method, "path", r.URL.Path)
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhook(w, r)
	case http.MethodPost:
		s.receiveWebhook(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if s.verifyToken == "" {
		slog.Warn("verifyWebhook rejected: no verify token configured")
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if mode != "subscribe" || token != s.verifyToken {
		slog.Warn("verifyWebhook rejected", "mode", mode)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	slog.Info("verifyWebhook succeeded")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(challenge)); err != nil {
		slog.Error("verifyWebhook failed to write challenge", "error", err)
	}
}

func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Warn("receiveWebhook failed to parse form", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	resp := models.Response{
		From:      r.PostFormValue("From"),
		Body:      r.PostFormValue("Body"),
		MessageID: r.PostFormValue("MessageSid"),
		Time:      time.Now().Unix(),
	}
	if resp.From == "" || resp.Body == "" {
		slog.Warn("receiveWebhook missing From or Body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	enqueuer, ok := s.msgService.(inboundEnqueuer)
	if !ok {
		// Connection-based channels deliver inbound messages themselves.
		slog.Warn("receiveWebhook ignored: active channel is not webhook driven")
		w.WriteHeader(http.StatusOK)
		return
	}
	if !enqueuer.EnqueueInbound(resp) {
		// The provider retries on 5xx; the dedup layer absorbs the replay.
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	slog.Debug("receiveWebhook enqueued inbound message", "from", resp.From)
	w.WriteHeader(http.StatusOK)
}
