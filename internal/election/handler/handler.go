// Package handler exposes the election endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civitas/internal/election/models"
	"civitas/internal/platform/middleware"
	"civitas/internal/transport/http/shared"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/requestcontext"
)

// Service defines the election operations used by the HTTP layer.
type Service interface {
	CastVote(ctx context.Context, electionID id.ElectionID, citizenID id.CitizenID, candidateID id.CandidateID) (*models.Vote, error)
	Results(ctx context.Context, electionID id.ElectionID) (*models.Results, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Election, error)
	Get(ctx context.Context, electionID id.ElectionID) (*models.Election, error)
	MyVote(ctx context.Context, electionID id.ElectionID, citizenID id.CitizenID) (*models.Vote, error)
}

type Handler struct {
	elections    Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(elections Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		elections:    elections,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the election routes. Listing and results are public;
// voting and my-vote require authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/elections", h.handleList)
	r.Get("/elections/{electionID}", h.handleGet)
	r.Get("/elections/{electionID}/results", h.handleResults)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/elections/{electionID}/vote", h.handleCastVote)
		r.Get("/elections/{electionID}/my-vote", h.handleMyVote)
	})
}

type castVoteRequest struct {
	CandidateID string `json:"candidate_id"`
}

func (h *Handler) handleCastVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	electionID, err := id.ParseElectionID(chi.URLParam(r, "electionID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req castVoteRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	candidateID, err := id.ParseCandidateID(req.CandidateID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	vote, err := h.elections.CastVote(ctx, electionID, requestcontext.CitizenID(ctx), candidateID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to cast vote",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, vote)
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	electionID, err := id.ParseElectionID(chi.URLParam(r, "electionID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	results, err := h.elections.Results(ctx, electionID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to compute results",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, results)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := models.ParseListFilter(r.URL.Query().Get("filter"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	elections, err := h.elections.List(ctx, filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, elections)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	electionID, err := id.ParseElectionID(chi.URLParam(r, "electionID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	election, err := h.elections.Get(ctx, electionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, election)
}

func (h *Handler) handleMyVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	electionID, err := id.ParseElectionID(chi.URLParam(r, "electionID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	vote, err := h.elections.MyVote(ctx, electionID, requestcontext.CitizenID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, vote)
}
