// Package service implements citizen registration and login. It is the
// identity collaborator around the consensus engine: the engine itself only
// consumes citizen trust attributes through its own store ports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"civitas/internal/citizen/device"
	"civitas/internal/citizen/models"
	"civitas/internal/citizen/token"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/audit"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/requestcontext"
)

const accessTokenTTL = 24 * time.Hour

// Store is the citizen persistence consumed by this service.
type Store interface {
	Create(ctx context.Context, citizen *models.Citizen) error
	FindByID(ctx context.Context, citizenID id.CitizenID) (*models.Citizen, error)
	FindByUsername(ctx context.Context, username string) (*models.Citizen, error)
}

// AuditPublisher emits audit events for security-relevant operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	tokens         *token.Service
	auditPublisher AuditPublisher
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func New(store Store, tokens *token.Service, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("citizen store is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	svc := &Service{store: store, tokens: tokens}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RegisterInput carries the already shape-validated registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a new BASIC-level citizen with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.Citizen, error) {
	if len(input.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "password must be at least 8 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	citizen, err := models.NewCitizen(
		id.CitizenID(uuid.New()),
		input.Username,
		input.Email,
		string(hashed),
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, citizen); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username or email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create citizen")
	}

	s.logAudit(ctx, audit.EventCitizenRegistered, citizen.ID, "")
	return citizen, nil
}

// LoginResult pairs the issued access token with the authenticated citizen.
type LoginResult struct {
	AccessToken string
	Citizen     *models.Citizen
}

// Login verifies credentials and issues a signed access token. Lookup and
// password failures return the same unauthorized error so the endpoint does
// not leak which usernames exist.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	citizen, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up citizen")
	}
	if !citizen.IsActive {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(citizen.PasswordHash), []byte(password)); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	accessToken, err := s.tokens.GenerateAccessToken(citizen.ID, citizen.VerificationLevel, accessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}

	s.logAudit(ctx, audit.EventCitizenLogin, citizen.ID, device.ParseUserAgent(requestcontext.UserAgent(ctx)))
	return &LoginResult{AccessToken: accessToken, Citizen: citizen}, nil
}

// Get returns a citizen by id.
func (s *Service) Get(ctx context.Context, citizenID id.CitizenID) (*models.Citizen, error) {
	citizen, err := s.store.FindByID(ctx, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "citizen not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up citizen")
	}
	return citizen, nil
}

func (s *Service) logAudit(ctx context.Context, action audit.AuditEvent, citizenID id.CitizenID, deviceName string) {
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		CitizenID: citizenID,
		Action:    action.String(),
		RequestID: requestcontext.RequestID(ctx),
		Device:    deviceName,
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, action.String(),
			"citizen_id", citizenID.String(),
			"request_id", event.RequestID,
			"log_type", "audit",
		)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", action.String(), "error", err)
	}
}
