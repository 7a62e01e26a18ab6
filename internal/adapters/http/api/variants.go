// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/paceboard/paceboard/internal/domain/model"
	"github.com/paceboard/paceboard/internal/domain/scoring"
	"github.com/paceboard/paceboard/internal/domain/variant"
)

// variantRequest mirrors the OpenAPI schema for PUT /variants/{id}.
type variantRequest struct {
	UnrestrictedTier   int  `json:"unrestricted_tier"`
	ZeroAidTier        int  `json:"zero_aid_tier"`
	UnrestrictedFrozen bool `json:"unrestricted_frozen"`
	ZeroAidFrozen      bool `json:"zero_aid_frozen"`
}

// VariantsHandler handles the admin variant surface.
type VariantsHandler struct {
	deps Dependencies
}

// NewVariantsHandler creates a new variants handler.
func NewVariantsHandler(deps Dependencies) *VariantsHandler {
	return &VariantsHandler{deps: deps}
}

// HandlePut routes PUT /variants/{id} and PUT /variants/{id}/distribution.
func (h *VariantsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/variants/")
	if id, ok := strings.CutSuffix(rest, "/distribution"); ok {
		h.handleDistribution(w, r, id)
		return
	}
	h.handleUpsert(w, r, rest)
}

func (h *VariantsHandler) handleUpsert(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.put_variant"
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	var req variantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	err := h.deps.UpsertVariant(r.Context(), variant.Variant{
		ID:                 id,
		UnrestrictedTier:   req.UnrestrictedTier,
		ZeroAidTier:        req.ZeroAidTier,
		UnrestrictedFrozen: req.UnrestrictedFrozen,
		ZeroAidFrozen:      req.ZeroAidFrozen,
	})
	if err != nil {
		if errors.Is(err, variant.ErrInvalidVariant) {
			writeError(w, http.StatusBadRequest, "invalid_variant", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDistribution swaps a board's fitted distribution parameters. A JSON
// null body clears them.
func (h *VariantsHandler) handleDistribution(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.put_distribution"
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	kind := model.RankingKind(r.URL.Query().Get("kind"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	var params *scoring.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	key := model.BoardKey{VariantID: id, Kind: kind}
	if err := h.deps.ReplaceDistribution(r.Context(), key, params); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
