// Package handler exposes the corruption report endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"civitas/internal/platform/middleware"
	"civitas/internal/report/models"
	"civitas/internal/report/service"
	"civitas/internal/transport/http/shared"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/requestcontext"
)

const defaultPageSize = 20

// Service defines the report operations used by the HTTP layer.
type Service interface {
	File(ctx context.Context, input service.FileReportInput) (*models.CorruptionReport, error)
	CastVerification(ctx context.Context, reportID id.ReportID, citizenID id.CitizenID, isValid bool, comment string) (*service.VerificationResult, error)
	Get(ctx context.Context, reportID id.ReportID) (*models.CorruptionReport, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.CorruptionReport, error)
}

type Handler struct {
	reports      Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(reports Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		reports:      reports,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the report routes. Listing and reading are public; filing
// and verifying require authentication (level gates live in the service).
func (h *Handler) Register(r chi.Router) {
	r.Get("/reputation/reports", h.handleList)
	r.Get("/reputation/reports/{reportID}", h.handleGet)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/reputation/report-corruption", h.handleFile)
		r.Post("/reputation/verify-report/{reportID}", h.handleCastVerification)
	})
}

type fileReportRequest struct {
	OfficialID      string     `json:"official_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Severity        string     `json:"severity"`
	EvidenceFiles   []string   `json:"evidence_files"`
	Location        string     `json:"location"`
	EstimatedAmount *float64   `json:"estimated_amount"`
	DateOfIncident  *time.Time `json:"date_of_incident"`
}

func (h *Handler) handleFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req fileReportRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	officialID, err := id.ParseOfficialID(req.OfficialID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	category, err := models.ParseReportCategory(req.Category)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	severity, err := models.ParseSeverity(req.Severity)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	report, err := h.reports.File(ctx, service.FileReportInput{
		OfficialID:      officialID,
		ReporterID:      requestcontext.CitizenID(ctx),
		Title:           req.Title,
		Description:     req.Description,
		Category:        category,
		Severity:        severity,
		EvidenceFiles:   req.EvidenceFiles,
		Location:        req.Location,
		EstimatedAmount: req.EstimatedAmount,
		DateOfIncident:  req.DateOfIncident,
	})
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to file report",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, report)
}

type castVerificationRequest struct {
	IsValid bool   `json:"is_valid"`
	Comment string `json:"comment"`
}

func (h *Handler) handleCastVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req castVerificationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.reports.CastVerification(ctx, reportID, requestcontext.CitizenID(ctx), req.IsValid, req.Comment)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to cast verification",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	report, err := h.reports.Get(ctx, reportID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := models.ListFilter{
		Status:   models.Status(query.Get("status")),
		Severity: models.Severity(query.Get("severity")),
		Limit:    defaultPageSize,
	}
	if raw := query.Get("official_id"); raw != "" {
		officialID, err := id.ParseOfficialID(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		filter.OfficialID = officialID
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 100"))
			return
		}
		filter.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "offset must be non-negative"))
			return
		}
		filter.Offset = offset
	}

	reports, err := h.reports.List(ctx, filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, reports)
}
