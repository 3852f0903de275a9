// Package handler exposes the rating endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civitas/internal/platform/middleware"
	"civitas/internal/reputation/models"
	"civitas/internal/reputation/service"
	"civitas/internal/transport/http/shared"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/requestcontext"
)

// Service defines the reputation operations used by the HTTP layer.
type Service interface {
	SubmitRating(ctx context.Context, input service.SubmitRatingInput) (*models.ReputationRating, error)
	OfficialReputation(ctx context.Context, officialID id.OfficialID) (*models.OfficialReputation, error)
}

type Handler struct {
	reputation   Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(reputation Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		reputation:   reputation,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the reputation routes. Reading an official's reputation is
// public; rating requires authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/reputation/officials/{officialID}", h.handleOfficialReputation)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/reputation/rate", h.handleSubmitRating)
	})
}

type submitRatingRequest struct {
	OfficialID string `json:"official_id"`
	Category   string `json:"category"`
	Score      int    `json:"score"`
	Comment    string `json:"comment"`
	Evidence   string `json:"evidence"`
}

func (h *Handler) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRatingRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	officialID, err := id.ParseOfficialID(req.OfficialID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	category, err := models.ParseRatingCategory(req.Category)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	rating, err := h.reputation.SubmitRating(ctx, service.SubmitRatingInput{
		OfficialID: officialID,
		CitizenID:  requestcontext.CitizenID(ctx),
		Category:   category,
		Score:      req.Score,
		Comment:    req.Comment,
		Evidence:   req.Evidence,
	})
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to submit rating",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, rating)
}

func (h *Handler) handleOfficialReputation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	officialID, err := id.ParseOfficialID(chi.URLParam(r, "officialID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	view, err := h.reputation.OfficialReputation(ctx, officialID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to load official reputation",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, view)
}
