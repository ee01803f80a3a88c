package domain

import (
	"fmt"
	"time"
)

// LifecycleState enumerates SLA compliance states for requests.
type LifecycleState string

const (
	StateEnProceso LifecycleState = "EN_PROCESO"
	StateInactiva  LifecycleState = "INACTIVA"
	StateVencida   LifecycleState = "VENCIDA"
)

// Request is the aggregate for SLA-tracked work items.
type Request struct {
	ID              string
	PersonID        string
	SlaPolicyID     string
	RoleTagID       string
	CreatedByUserID string
	SubmittedDate   time.Time
	ClosedDate      *time.Time
	DaysUsed        int
	ComplianceTag   string
	State           LifecycleState
	Summary         string
	Origin          string
	Deleted         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsOpen reports whether the request still counts against its SLA clock.
func (r *Request) IsOpen() bool {
	return !r.Deleted && r.State != StateInactiva
}

// DedupKey builds the natural composite key used to detect duplicate requests.
// submitted must already be date-only.
func DedupKey(personID, policyID, roleTagID string, submitted time.Time) string {
	return fmt.Sprintf("%s|%s|%s|%s", personID, policyID, roleTagID, submitted.Format("2006-01-02"))
}
