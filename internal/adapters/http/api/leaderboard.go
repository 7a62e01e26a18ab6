// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/paceboard/paceboard/internal/domain/model"
)

const (
	defaultPage    = 1
	defaultPerPage = 50
)

// LeaderboardHandler handles board page requests.
type LeaderboardHandler struct {
	deps        Dependencies
	maxPageSize int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies, maxPageSize int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:        deps,
		maxPageSize: maxPageSize,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?variant=&kind=&page=&per_page= requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	variantID := q.Get("variant")
	if variantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	kind := model.RankingKind(q.Get("kind"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	page, perPage := defaultPage, defaultPerPage
	var err error
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if v := q.Get("per_page"); v != "" {
		if perPage, err = strconv.Atoi(v); err != nil || perPage < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if perPage > h.maxPageSize {
		writeError(w, http.StatusBadRequest, "page_size_exceeded", NewKind(op, ErrBadRequest))
		return
	}

	entries, err := h.deps.Leaderboard(r.Context(), variantID, kind, page, perPage)
	if err != nil {
		if errors.Is(err, model.ErrInvalidKind) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
