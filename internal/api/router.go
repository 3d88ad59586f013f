package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Players     PlayerDirectory
	Ledger      Ledger
	Settler     Settler
	Matches     MatchHistory
	Lobbies     LobbyStore
	HealthDB    HealthCheck
	HealthRedis HealthCheck
}

// NewRouter builds the HTTP handler tree.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("request")
	}))

	r.Get("/healthz", healthz(deps.HealthDB, deps.HealthRedis))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		settlementHandler := NewSettlementHandler(deps.Settler, deps.Matches)
		settlementHandler.RegisterRoutes(api)

		playerHandler := NewPlayerHandler(deps.Players, deps.Ledger)
		api.Route("/players", playerHandler.RegisterRoutes)

		lobbyHandler := NewLobbyHandler(deps.Lobbies)
		api.Route("/lobbies", lobbyHandler.RegisterRoutes)
	})

	return r
}

func healthz(checks ...HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
