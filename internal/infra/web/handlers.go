package web

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/infra/logging"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/usecase"
)

const maxBodyBytes = 1 << 20

// handleWebhook runs the pipeline for one inbound CRM event. The response
// is always HTTP 200: the trigger must never see a status that would start
// a retry storm. The JSON envelope carries the real outcome.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	eventID := uuid.NewString()
	ctx := logging.WithEventID(r.Context(), eventID)
	log := logging.With(ctx, s.log)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Msg("failed to read webhook body")
		body = nil
	}
	log.Debug().Int("body_len", len(body)).Str("query", r.URL.RawQuery).Msg("webhook received")

	res := s.relayUC.Process(ctx, usecase.InboundEvent{
		Body:   body,
		Query:  r.URL.Query(),
		Header: r.Header,
	})

	writeJSON(w, http.StatusOK, struct {
		usecase.Result
		EventID string `json:"event_id"`
	}{Result: res, EventID: eventID})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "retailcrm-telegram relay is running",
	})
}

// handleCheckOrders triggers an immediate polling sweep.
func (s *Server) handleCheckOrders(w http.ResponseWriter, r *http.Request) {
	checked, notified := s.sweepUC.Sweep(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"checked":  checked,
		"notified": notified,
	})
}

// handleOrdersStatus dumps the tracked per-order state.
func (s *Server) handleOrdersStatus(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.gate.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tracked": len(snapshot),
		"orders":  snapshot,
	})
}

// handleResetMemory clears all dedup state. Pre-existing approved orders
// will be re-recorded silently on the next sweep, not re-notified.
func (s *Server) handleResetMemory(w http.ResponseWriter, _ *http.Request) {
	s.gate.Reset()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "dedup memory cleared",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if s.adminKey == "" || req.Key != s.adminKey {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if s.auth == nil {
		http.Error(w, "Auth not configured", http.StatusInternalServerError)
		return
	}
	if _, err := s.auth.Mint(w); err != nil {
		s.log.Error().Err(err).Msg("failed to mint session")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	if s.auth != nil {
		s.auth.Clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
