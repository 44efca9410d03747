package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"whatsapp-image-bot/internal/infra/worker"
	"whatsapp-image-bot/internal/usecase"
)

// RateLimiter throttles inbound webhook traffic per sender address.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// JobQueue decouples webhook acknowledgement from pipeline execution: the
// platform gets its 2xx immediately, the work runs on the pool.
type JobQueue interface {
	Submit(task worker.Task) error
}

type Server struct {
	pipeline usecase.PipelineUseCase
	ledger   usecase.LedgerUseCase
	limiter  RateLimiter
	queue    JobQueue
	auth     *AuthManager

	rateLimit  int
	rateWindow time.Duration

	log *zerolog.Logger
}

func NewServer(
	pipeline usecase.PipelineUseCase,
	ledger usecase.LedgerUseCase,
	limiter RateLimiter,
	queue JobQueue,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		pipeline:   pipeline,
		ledger:     ledger,
		limiter:    limiter,
		queue:      queue,
		auth:       auth,
		rateLimit:  20,
		rateWindow: time.Minute,
		log:        logger,
	}
}

// Router wires all HTTP routes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", s.healthHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/webhook/whatsapp", s.webhookHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/credits", s.creditsHandler)
	})

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
