// Package handler exposes citizen registration, login and profile endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"civitas/internal/citizen/models"
	"civitas/internal/citizen/service"
	"civitas/internal/platform/middleware"
	"civitas/internal/transport/http/shared"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/requestcontext"
)

// Service defines the citizen operations used by the HTTP layer.
type Service interface {
	Register(ctx context.Context, input service.RegisterInput) (*models.Citizen, error)
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
	Get(ctx context.Context, citizenID id.CitizenID) (*models.Citizen, error)
}

type Handler struct {
	citizens     Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(citizens Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		citizens:     citizens,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the citizen routes. Registration and login are public;
// everything else requires a valid access token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/citizens/me", h.handleMe)
	})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	Citizen     *models.Citizen `json:"citizen"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "username, email and password are required"))
		return
	}

	citizen, err := h.citizens.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to register citizen",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, citizen)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.citizens.Login(ctx, req.Username, req.Password)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to log in citizen",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		Citizen:     result.Citizen,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	citizenID := requestcontext.CitizenID(ctx)
	if citizenID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	citizen, err := h.citizens.Get(ctx, citizenID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, citizen)
}
