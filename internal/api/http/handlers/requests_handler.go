package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-tracker/internal/api/dto"
	"github.com/spec-kit/sla-tracker/internal/auth"
	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/repository"
	"github.com/spec-kit/sla-tracker/internal/service"
	"github.com/spec-kit/sla-tracker/internal/sla"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

// RequestsHandler manages request endpoints.
type RequestsHandler struct {
	service *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService}
}

// Create POST /requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateRequestPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.PersonID == "" || req.SlaPolicyID == "" || req.RoleTagID == "" || req.SubmittedDate == "" {
		return apperrors.NewValidationError("person_id, sla_policy_id, role_tag_id, submitted_date required", nil)
	}

	submitted, err := sla.ParseDate(req.SubmittedDate)
	if err != nil {
		return apperrors.NewValidationError("unparsable submitted_date", map[string]any{"value": req.SubmittedDate})
	}
	input := service.RequestCreateInput{
		PersonID:      req.PersonID,
		SlaPolicyID:   req.SlaPolicyID,
		RoleTagID:     req.RoleTagID,
		SubmittedDate: submitted,
		Origin:        req.Origin,
		Summary:       req.Summary,
		Notify:        c.QueryBool("notify"),
	}
	if req.ClosedDate != "" {
		closed, err := sla.ParseDate(req.ClosedDate)
		if err != nil {
			return apperrors.NewValidationError("unparsable closed_date", map[string]any{"value": req.ClosedDate})
		}
		input.ClosedDate = &closed
	}

	request, err := h.service.Create(c.Context(), principal.User.ID, input)
	if err != nil {
		// A notification failure still carries the persisted request.
		if request != nil && apperrors.IsKind(err, apperrors.KindNotification) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"data":  requestResponse(request),
				"error": fiber.Map{"code": "NOTIFICATION_FAILED", "message": err.Error()},
			})
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": requestResponse(request)})
}

// Update PUT /requests/:id.
func (h *RequestsHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateRequestPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.RequestUpdateInput{
		Origin:  req.Origin,
		Summary: req.Summary,
		Notify:  c.QueryBool("notify"),
	}
	if req.ClosedDate != nil && *req.ClosedDate != "" {
		closed, err := sla.ParseDate(*req.ClosedDate)
		if err != nil {
			return apperrors.NewValidationError("unparsable closed_date", map[string]any{"value": *req.ClosedDate})
		}
		input.ClosedDate = &closed
	}

	request, err := h.service.Update(c.Context(), principal.User.ID, c.Params("id"), input)
	if err != nil {
		if request != nil && apperrors.IsKind(err, apperrors.KindNotification) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"data":  requestResponse(request),
				"error": fiber.Map{"code": "NOTIFICATION_FAILED", "message": err.Error()},
			})
		}
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(request)})
}

// Get GET /requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	request, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(request)})
}

// List GET /requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	filter := parseRequestQuery(c)
	requests, err := h.service.List(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.RequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, requestResponse(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Delete DELETE /requests/:id.
func (h *RequestsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseRequestQuery(c *fiber.Ctx) repository.RequestFilter {
	filter := repository.RequestFilter{}
	if personID := c.Query("person_id"); personID != "" {
		filter.PersonID = &personID
	}
	if policyID := c.Query("sla_policy_id"); policyID != "" {
		filter.SlaPolicyID = &policyID
	}
	if roleTagID := c.Query("role_tag_id"); roleTagID != "" {
		filter.RoleTagID = &roleTagID
	}
	if stateStr := c.Query("state"); stateStr != "" {
		for _, part := range strings.Split(stateStr, ",") {
			filter.States = append(filter.States, domain.LifecycleState(strings.TrimSpace(part)))
		}
	}
	if from, err := sla.ParseDate(c.Query("submitted_from")); err == nil && c.Query("submitted_from") != "" {
		filter.SubmittedFrom = &from
	}
	if to, err := sla.ParseDate(c.Query("submitted_to")); err == nil && c.Query("submitted_to") != "" {
		filter.SubmittedTo = &to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func requestResponse(request *domain.Request) dto.RequestResponse {
	resp := dto.RequestResponse{
		ID:              request.ID,
		PersonID:        request.PersonID,
		SlaPolicyID:     request.SlaPolicyID,
		RoleTagID:       request.RoleTagID,
		CreatedByUserID: request.CreatedByUserID,
		SubmittedDate:   request.SubmittedDate.Format(sla.DateLayout),
		DaysUsed:        request.DaysUsed,
		ComplianceTag:   request.ComplianceTag,
		State:           request.State,
		Summary:         request.Summary,
		Origin:          request.Origin,
		CreatedAt:       request.CreatedAt,
		UpdatedAt:       request.UpdatedAt,
	}
	if request.ClosedDate != nil {
		closed := request.ClosedDate.Format(sla.DateLayout)
		resp.ClosedDate = &closed
	}
	return resp
}
