package domain

import (
	"fmt"
	"time"
)

// SlaPolicy is a named threshold a request must be resolved within.
type SlaPolicy struct {
	ID             string
	Code           string
	ThresholdDays  int
	RequestTypeTag string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EffectiveCode returns the policy code, falling back to a synthetic
// identifier when the code is empty.
func (p *SlaPolicy) EffectiveCode() string {
	if p.Code != "" {
		return p.Code
	}
	return fmt.Sprintf("SLA%s", p.ID)
}
