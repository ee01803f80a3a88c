package dto

import (
	"time"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// CreateRequestPayload is the direct creation body. Dates are date-only
// strings (YYYY-MM-DD).
type CreateRequestPayload struct {
	PersonID      string `json:"person_id"`
	SlaPolicyID   string `json:"sla_policy_id"`
	RoleTagID     string `json:"role_tag_id"`
	SubmittedDate string `json:"submitted_date"`
	ClosedDate    string `json:"closed_date,omitempty"`
	Origin        string `json:"origin,omitempty"`
	Summary       string `json:"summary,omitempty"`
}

// UpdateRequestPayload is the direct update body.
type UpdateRequestPayload struct {
	ClosedDate *string `json:"closed_date,omitempty"`
	Origin     *string `json:"origin,omitempty"`
	Summary    *string `json:"summary,omitempty"`
}

// RequestResponse mirrors one request.
type RequestResponse struct {
	ID              string                `json:"id"`
	PersonID        string                `json:"person_id"`
	SlaPolicyID     string                `json:"sla_policy_id"`
	RoleTagID       string                `json:"role_tag_id"`
	CreatedByUserID string                `json:"created_by_user_id"`
	SubmittedDate   string                `json:"submitted_date"`
	ClosedDate      *string               `json:"closed_date,omitempty"`
	DaysUsed        int                   `json:"days_used"`
	ComplianceTag   string                `json:"compliance_tag"`
	State           domain.LifecycleState `json:"state"`
	Summary         string                `json:"summary"`
	Origin          string                `json:"origin,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}
