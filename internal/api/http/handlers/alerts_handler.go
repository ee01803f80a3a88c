package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-tracker/internal/api/dto"
	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/service"
)

// AlertsHandler manages alert endpoints.
type AlertsHandler struct {
	service *service.AlertService
}

// NewAlertsHandler constructs handler.
func NewAlertsHandler(alertService *service.AlertService) *AlertsHandler {
	return &AlertsHandler{service: alertService}
}

// ListForRequest GET /requests/:id/alerts.
func (h *AlertsHandler) ListForRequest(c *fiber.Ctx) error {
	alerts, err := h.service.ListForRequest(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AlertResponse, 0, len(alerts))
	for i := range alerts {
		items = append(items, alertResponse(&alerts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkRead PATCH /alerts/:id/read.
func (h *AlertsHandler) MarkRead(c *fiber.Ctx) error {
	alert, err := h.service.MarkRead(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": alertResponse(alert)})
}

func alertResponse(alert *domain.Alert) dto.AlertResponse {
	return dto.AlertResponse{
		ID:        alert.ID,
		RequestID: alert.RequestID,
		Kind:      alert.Kind,
		Level:     alert.Level,
		Message:   alert.Message,
		Status:    alert.Status,
		EmailSent: alert.EmailSent,
		CreatedAt: alert.CreatedAt,
		ReadAt:    alert.ReadAt,
		UpdatedAt: alert.UpdatedAt,
	}
}
