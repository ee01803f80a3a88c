package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-tracker/internal/api/dto"
	"github.com/spec-kit/sla-tracker/internal/repository"
)

// CatalogHandler exposes read-only master data listings.
type CatalogHandler struct {
	policies repository.SlaPolicyRepository
	persons  repository.PersonRepository
	roleTags repository.RoleTagRepository
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(policies repository.SlaPolicyRepository, persons repository.PersonRepository, roleTags repository.RoleTagRepository) *CatalogHandler {
	return &CatalogHandler{policies: policies, persons: persons, roleTags: roleTags}
}

// ListPolicies GET /catalog/policies.
func (h *CatalogHandler) ListPolicies(c *fiber.Ctx) error {
	policies, err := h.policies.List(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.SlaPolicyResponse, 0, len(policies))
	for _, policy := range policies {
		items = append(items, dto.SlaPolicyResponse{
			ID:             policy.ID,
			Code:           policy.Code,
			ThresholdDays:  policy.ThresholdDays,
			RequestTypeTag: policy.RequestTypeTag,
			Active:         policy.Active,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListPersons GET /catalog/persons.
func (h *CatalogHandler) ListPersons(c *fiber.Ctx) error {
	persons, err := h.persons.List(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.PersonResponse, 0, len(persons))
	for _, person := range persons {
		items = append(items, dto.PersonResponse{
			ID:             person.ID,
			FullName:       person.FullName,
			DocumentID:     person.DocumentID,
			CorporateEmail: person.CorporateEmail,
			Status:         string(person.Status),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListRoleTags GET /catalog/role-tags.
func (h *CatalogHandler) ListRoleTags(c *fiber.Ctx) error {
	tags, err := h.roleTags.List(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.RoleTagResponse, 0, len(tags))
	for _, tag := range tags {
		items = append(items, dto.RoleTagResponse{
			ID:          tag.ID,
			Name:        tag.Name,
			TechBlock:   tag.TechBlock,
			Description: tag.Description,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
