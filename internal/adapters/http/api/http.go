// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/paceboard/paceboard/internal/domain/dedupe"
	"github.com/paceboard/paceboard/internal/domain/model"
	"github.com/paceboard/paceboard/internal/domain/scoring"
	"github.com/paceboard/paceboard/internal/domain/types"
	"github.com/paceboard/paceboard/internal/domain/variant"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Submit persists a run and updates personal bests synchronously.
	Submit(ctx context.Context, run model.Run) (model.Run, error)

	// Transition changes a run's legitimacy status.
	Transition(ctx context.Context, id model.RunID, next model.RunStatus) (model.Run, error)

	// Read operations expose board data.
	Leaderboard(ctx context.Context, variantID string, kind model.RankingKind, page, perPage int) ([]LeaderboardEntry, error)
	PersonalBest(ctx context.Context, variantID string, kind model.RankingKind, player string) (PersonalBest, error)

	// Admin surface.
	UpsertVariant(ctx context.Context, v variant.Variant) error
	ReplaceDistribution(ctx context.Context, key model.BoardKey, p *scoring.Params) error
}

// LeaderboardEntry mirrors the read shape returned by board queries.
type LeaderboardEntry = types.LeaderboardEntry

// PersonalBest mirrors the read shape returned by standing queries.
type PersonalBest = types.PersonalBest

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	runsHandler        *RunsHandler
	leaderboardHandler *LeaderboardHandler
	bestHandler        *BestHandler
	variantsHandler    *VariantsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxPageSize int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		runsHandler:        NewRunsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxPageSize),
		bestHandler:        NewBestHandler(deps),
		variantsHandler:    NewVariantsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/runs", MetricsMiddleware(s.runsHandler.HandlePostRun, "runs"))
	mux.HandleFunc("/runs/", MetricsMiddleware(s.runsHandler.HandlePostStatus, "run_status"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/pb/", MetricsMiddleware(s.bestHandler.HandleGetBest, "pb"))
	mux.HandleFunc("/variants/", MetricsMiddleware(s.variantsHandler.HandlePut, "variants"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
