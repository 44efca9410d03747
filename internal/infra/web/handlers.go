package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/domain/model"
	"whatsapp-image-bot/internal/infra/logging"
	"whatsapp-image-bot/internal/infra/metrics"
	rds "whatsapp-image-bot/internal/infra/redis"
)

// pipelineTimeout bounds one background pipeline run end to end.
const pipelineTimeout = 5 * time.Minute

// webhookHandler parses one inbound message webhook, acknowledges fast and
// hands the event to the worker pool. The platform retries on non-2xx, so
// everything past validation answers 204.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	from := r.PostFormValue("From")
	if from == "" {
		http.Error(w, "Missing sender", http.StatusBadRequest)
		return
	}

	ev := model.InboundEvent{
		EventID: r.PostFormValue("MessageSid"),
		From:    from,
		Body:    r.PostFormValue("Body"),
	}
	// Only the first attachment matters, and only when it is an image; any
	// other media kind falls through to text classification.
	if r.PostFormValue("NumMedia") != "" && r.PostFormValue("NumMedia") != "0" {
		if strings.HasPrefix(r.PostFormValue("MediaContentType0"), "image/") {
			ev.MediaURL = r.PostFormValue("MediaUrl0")
		}
	}

	ok, err := s.limiter.Allow(r.Context(), rds.AddressKey(from), s.rateLimit, s.rateWindow)
	if err != nil {
		// Redis trouble must not bounce user traffic; let the event through.
		s.log.Warn().Err(err).Msg("rate limiter unavailable")
	} else if !ok {
		metrics.IncWebhookEvent("rate_limited")
		s.log.Info().Str("address", logging.Redact(from, false)).Msg("sender rate limited")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	traceID := uuid.NewString()
	task := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, pipelineTimeout)
		defer cancel()
		return s.pipeline.HandleEvent(logging.WithTraceID(ctx, traceID), ev)
	}
	if err := s.queue.Submit(task); err != nil {
		metrics.IncWebhookEvent("dropped")
		s.log.Error().Err(err).Str("event_id", ev.EventID).Msg("worker pool saturated, event dropped")
	}

	w.WriteHeader(http.StatusNoContent)
}

// ===== Credit management API =====

type creditRequest struct {
	Address string `json:"address"`
	Credits int    `json:"credits"`
}

type creditResponse struct {
	Address string `json:"address"`
	Balance int    `json:"balance"`
}

// creditsHandler adds purchased credits to a user's balance. Called by the
// payment provider's fulfilment hook through ops tooling.
func (s *Server) creditsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Address == "" || req.Credits <= 0 {
		http.Error(w, "address and a positive credits amount are required", http.StatusBadRequest)
		return
	}

	address := model.NormalizeAddress(req.Address)
	balance, err := s.ledger.Credit(ctx, address, req.Credits, "purchase")
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Unknown address", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Msg("credit grant failed")
		http.Error(w, "Failed to add credits", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(creditResponse{Address: address, Balance: balance})
}
