package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/usecase"
)

type Server struct {
	relayUC  usecase.RelayUseCase
	sweepUC  usecase.SweepUseCase // nil outside polling mode
	gate     usecase.ApprovalGate
	adminKey string
	auth     *AuthManager
	log      *zerolog.Logger
}

func NewServer(
	relayUC usecase.RelayUseCase,
	sweepUC usecase.SweepUseCase,
	gate usecase.ApprovalGate,
	adminKey string,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		relayUC:  relayUC,
		sweepUC:  sweepUC,
		gate:     gate,
		adminKey: adminKey,
		auth:     auth,
		log:      logger,
	}
}

// Router builds the full HTTP surface. The webhook route is always on;
// the operational polling routes appear only when a sweep use case is
// wired (polling mode).
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/webhook/retailcrm", s.handleWebhook)
	r.Get("/health", s.handleHealth)
	r.Get("/test", s.handleTest)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/admin/auth/login", s.handleLogin)
	r.Post("/admin/auth/logout", s.handleLogout)

	if s.sweepUC != nil {
		r.Get("/check-orders", s.handleCheckOrders)
		r.With(s.authMiddleware).Get("/orders-status", s.handleOrdersStatus)
		r.With(s.authMiddleware).Get("/reset-memory", s.handleResetMemory)
	}

	return r
}

// authMiddleware guards the operational endpoints that expose or clear
// dedup state.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.log.Error().Msg("operational auth is not configured")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
