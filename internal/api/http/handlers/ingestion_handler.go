package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-tracker/internal/api/dto"
	"github.com/spec-kit/sla-tracker/internal/auth"
	"github.com/spec-kit/sla-tracker/internal/service"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

// IngestionHandler manages bulk ingestion endpoints.
type IngestionHandler struct {
	service *service.IngestionService
}

// NewIngestionHandler constructs handler.
func NewIngestionHandler(ingestionService *service.IngestionService) *IngestionHandler {
	return &IngestionHandler{service: ingestionService}
}

// Ingest POST /requests/batch. The response always carries the complete
// per-row report, even under partial failure.
func (h *IngestionHandler) Ingest(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var payload dto.IngestionPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(payload.Rows) == 0 {
		return apperrors.NewValidationError("rows required", nil)
	}

	report, err := h.service.Process(c.Context(), payload.Rows, principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ingestionReportResponse(report)})
}

// LastReport GET /requests/batch/last-report.
func (h *IngestionHandler) LastReport(c *fiber.Ctx) error {
	report, err := h.service.LastReport(c.Context())
	if err != nil {
		return err
	}
	if report == nil {
		return apperrors.NewNotFound("ingestion report", nil)
	}
	return c.JSON(fiber.Map{"data": ingestionReportResponse(report)})
}

func ingestionReportResponse(report *service.IngestionReport) dto.IngestionReportResponse {
	errs := report.Errors
	if errs == nil {
		errs = []service.RowError{}
	}
	return dto.IngestionReportResponse{
		TotalRows:    report.TotalRows,
		SuccessCount: report.SuccessCount,
		ErrorCount:   report.ErrorCount,
		Errors:       errs,
	}
}
