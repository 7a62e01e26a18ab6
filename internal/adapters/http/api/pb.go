// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/paceboard/paceboard/internal/adapters/repository"
	"github.com/paceboard/paceboard/internal/domain/model"
)

// BestHandler handles personal-best lookups.
type BestHandler struct {
	deps Dependencies
}

// NewBestHandler creates a new personal-best handler.
func NewBestHandler(deps Dependencies) *BestHandler {
	return &BestHandler{deps: deps}
}

// HandleGetBest handles GET /pb/{player}?variant=&kind= requests.
func (h *BestHandler) HandleGetBest(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_pb"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	player := strings.TrimPrefix(r.URL.Path, "/pb/")
	if player == "" || strings.Contains(player, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	q := r.URL.Query()
	variantID := q.Get("variant")
	kind := model.RankingKind(q.Get("kind"))
	if variantID == "" || !kind.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	pb, err := h.deps.PersonalBest(r.Context(), variantID, kind, player)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, pb)
}
