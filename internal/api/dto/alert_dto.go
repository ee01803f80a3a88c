package dto

import (
	"time"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// AlertResponse mirrors one alert.
type AlertResponse struct {
	ID        string             `json:"id"`
	RequestID string             `json:"request_id"`
	Kind      domain.AlertKind   `json:"kind"`
	Level     domain.AlertLevel  `json:"level"`
	Message   string             `json:"message"`
	Status    domain.AlertStatus `json:"status"`
	EmailSent bool               `json:"email_sent"`
	CreatedAt time.Time          `json:"created_at"`
	ReadAt    *time.Time         `json:"read_at,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}
