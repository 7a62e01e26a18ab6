// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paceboard/paceboard/internal/adapters/repository"
	"github.com/paceboard/paceboard/internal/domain/model"
	"github.com/paceboard/paceboard/internal/domain/variant"
)

// runRequest mirrors the OpenAPI schema for POST /runs.
type runRequest struct {
	SubmissionID  string  `json:"submission_id,omitempty"`
	PlayerID      string  `json:"player_id"`
	ServerID      string  `json:"server_id"`
	VariantID     string  `json:"variant_id"`
	AidUsage      uint32  `json:"aid_usage"`
	Time          float64 `json:"time"`
	Status        string  `json:"status"`
	SubmittedAt   string  `json:"submitted_at,omitempty"`
	ClientVersion string  `json:"client_version,omitempty"`
}

func (r runRequest) validate() error {
	switch {
	case strings.TrimSpace(r.PlayerID) == "":
		return errors.New("missing player_id")
	case strings.TrimSpace(r.ServerID) == "":
		return errors.New("missing server_id")
	case strings.TrimSpace(r.VariantID) == "":
		return errors.New("missing variant_id")
	case r.Time <= 0:
		return errors.New("time must be positive")
	case !model.RunStatus(r.Status).Valid():
		return errors.New("invalid status")
	}
	if r.SubmittedAt != "" {
		if _, err := time.Parse(time.RFC3339, r.SubmittedAt); err != nil {
			return errors.New("invalid submitted_at; must be RFC3339")
		}
	}
	return nil
}

func (r runRequest) toRun() model.Run {
	run := model.Run{
		PlayerID:      r.PlayerID,
		ServerID:      r.ServerID,
		VariantID:     r.VariantID,
		AidUsage:      r.AidUsage,
		Time:          r.Time,
		Status:        model.RunStatus(r.Status),
		ClientVersion: r.ClientVersion,
	}
	if r.SubmittedAt != "" {
		run.SubmittedAt, _ = time.Parse(time.RFC3339, r.SubmittedAt)
	}
	return run
}

// runResponse is the acknowledgement for submissions and transitions.
type runResponse struct {
	RunID     uint64 `json:"run_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// statusRequest mirrors the OpenAPI schema for POST /runs/{id}/status.
type statusRequest struct {
	Status string `json:"status"`
}

// RunsHandler handles run submissions and status transitions.
type RunsHandler struct {
	deps Dependencies
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps Dependencies) *RunsHandler {
	return &RunsHandler{deps: deps}
}

// HandlePostRun handles POST /runs requests.
func (h *RunsHandler) HandlePostRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_run"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check - mark the token as seen first.
	if req.SubmissionID != "" && h.deps.SeenAndRecord(r.Context(), req.SubmissionID) {
		writeJSON(w, http.StatusOK, runResponse{Status: "duplicate", Duplicate: true})
		return
	}

	run, err := h.deps.Submit(r.Context(), req.toRun())
	if err != nil {
		// Roll back the token so the client can retry the submission.
		if req.SubmissionID != "" {
			h.deps.Unrecord(r.Context(), req.SubmissionID)
		}
		switch {
		case errors.Is(err, variant.ErrUnknownVariant):
			writeError(w, http.StatusNotFound, "unknown_variant", err)
		case errors.Is(err, repository.ErrInvalidRun):
			writeError(w, http.StatusBadRequest, "bad_request", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}
	writeJSON(w, http.StatusCreated, runResponse{RunID: uint64(run.ID), Status: string(run.Status)})
}

// HandlePostStatus handles POST /runs/{id}/status requests.
func (h *RunsHandler) HandlePostStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_run_status"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/runs/")
	idStr, ok := strings.CutSuffix(rest, "/status")
	if !ok || idStr == "" || strings.Contains(idStr, "/") {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	next := model.RunStatus(req.Status)
	if !next.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	run, err := h.deps.Transition(r.Context(), model.RunID(id), next)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRunNotFound):
			writeError(w, http.StatusNotFound, "not_found", err)
		case errors.Is(err, repository.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "invalid_transition", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}
	writeJSON(w, http.StatusOK, runResponse{RunID: uint64(run.ID), Status: string(run.Status)})
}
