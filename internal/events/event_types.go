package events

import (
	"time"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated          EventType = "request_created"
	EventRequestUpdated          EventType = "request_updated"
	EventBatchIngested           EventType = "batch_ingested"
	EventAlertEscalated          EventType = "alert_escalated"
	EventDailyRecomputeCompleted EventType = "daily_recompute_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestChangedPayload accompanies request_created and request_updated.
type RequestChangedPayload struct {
	PersonID      string                `json:"person_id"`
	SlaPolicyID   string                `json:"sla_policy_id"`
	State         domain.LifecycleState `json:"state"`
	ComplianceTag string                `json:"compliance_tag"`
	DaysUsed      int                   `json:"days_used"`
}

// BatchIngestedPayload accompanies batch_ingested.
type BatchIngestedPayload struct {
	TotalRows    int `json:"total_rows"`
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
}

// AlertEscalatedPayload accompanies alert_escalated.
type AlertEscalatedPayload struct {
	AlertID  string            `json:"alert_id"`
	Kind     domain.AlertKind  `json:"kind"`
	Level    domain.AlertLevel `json:"level"`
	Notified bool              `json:"notified"`
}

// DailyRecomputePayload accompanies daily_recompute_completed.
type DailyRecomputePayload struct {
	Date         string `json:"date"`
	OpenRequests int    `json:"open_requests"`
	ChangedCount int    `json:"changed_count"`
	FailedCount  int    `json:"failed_count"`
}
