// This file implements the generic webhook endpoints: the GET verification
// handshake and the POST event intake.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/models"
)

// webhookHandler serves both halves of the webhook contract on one path.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
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

// verifyWebhook answers the subscription handshake: when the mode and token
// match, the challenge is echoed back verbatim.
func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode != "subscribe" || s.verifyToken == "" || token != s.verifyToken {
		slog.Warn("Server webhook verification rejected", "mode", mode, "token_match", token == s.verifyToken)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	slog.Info("Server webhook verified")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(challenge)); err != nil {
		slog.Error("Server webhook challenge write failed", "error", err)
	}
}

// receiveWebhook ingests one event delivery. The provider retries on non-200,
// so every structurally parseable request is acknowledged immediately and
// processed in the background; malformed payloads are acknowledged and dropped.
func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	var ev models.InboundEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		slog.Warn("Server webhook payload undecodable, dropping", "error", err)
		writeJSONResponse(w, http.StatusOK, models.Success(nil))
		return
	}
	if err := ev.Validate(); err != nil {
		slog.Warn("Server webhook event invalid, dropping", "error", err, "user", ev.UserID)
		writeJSONResponse(w, http.StatusOK, models.Success(nil))
		return
	}

	// The request context dies with this handler; processing gets its own.
	go s.processEvent(context.Background(), ev)

	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}

// healthHandler reports liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{
		"status": "healthy",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	}))
}

// completionsHandler lists recorded registrations for operators.
func (s *Server) completionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	records, err := s.completions.ListCompletions(r.Context())
	if err != nil {
		slog.Error("Server completions listing failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list completions"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(records))
}
