// Package sla holds the pure compliance state machine. It is the single
// source of truth for request state, reused by direct creation, updates,
// bulk ingestion and the daily recompute pass.
package sla

import (
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// ErrInvalidDateRange signals a closed date earlier than the submitted date.
var ErrInvalidDateRange = errors.New("closed date precedes submitted date")

// Result carries the derived compliance values for one request.
type Result struct {
	DaysUsed      int
	State         domain.LifecycleState
	ComplianceTag string
	Summary       string
}

// GeneratedSummary renders the standard summary text for a derived state.
// Callers compare a stored summary against this to tell generated text from
// a caller-supplied override.
func GeneratedSummary(state domain.LifecycleState, closed bool, daysUsed, thresholdDays int) string {
	switch {
	case state == domain.StateInactiva:
		return fmt.Sprintf("Request attended within SLA (%d of %d days)", daysUsed, thresholdDays)
	case state == domain.StateVencida && closed:
		return fmt.Sprintf("Request closed outside SLA (%d of %d days)", daysUsed, thresholdDays)
	case state == domain.StateVencida:
		return fmt.Sprintf("Request overdue (%d days used, threshold %d)", daysUsed, thresholdDays)
	default:
		return fmt.Sprintf("Request in progress (%d of %d days used)", daysUsed, thresholdDays)
	}
}

// Evaluate derives the compliance state of a request from its dates and the
// policy threshold. code is the effective policy code embedded in the
// compliance tag. The function performs no I/O.
//
// For open requests the raw (possibly negative) day count drives the
// decision while the reported DaysUsed clamps at zero for display.
func Evaluate(submitted time.Time, closed *time.Time, thresholdDays int, code string, today time.Time) (Result, error) {
	submitted = DateOnly(submitted)

	if closed != nil {
		closedDay := DateOnly(*closed)
		if closedDay.Before(submitted) {
			return Result{}, ErrInvalidDateRange
		}
		used := DaysBetween(submitted, closedDay)
		if used <= thresholdDays {
			return Result{
				DaysUsed:      used,
				State:         domain.StateInactiva,
				ComplianceTag: "CUMPLE_" + code,
				Summary:       GeneratedSummary(domain.StateInactiva, true, used, thresholdDays),
			}, nil
		}
		return Result{
			DaysUsed:      used,
			State:         domain.StateVencida,
			ComplianceTag: "NO_CUMPLE_" + code,
			Summary:       GeneratedSummary(domain.StateVencida, true, used, thresholdDays),
		}, nil
	}

	raw := DaysBetween(submitted, DateOnly(today))
	display := raw
	if display < 0 {
		display = 0
	}
	if raw > thresholdDays {
		return Result{
			DaysUsed:      display,
			State:         domain.StateVencida,
			ComplianceTag: "NO_CUMPLE_" + code,
			Summary:       GeneratedSummary(domain.StateVencida, false, display, thresholdDays),
		}, nil
	}
	return Result{
		DaysUsed:      display,
		State:         domain.StateEnProceso,
		ComplianceTag: "EN_PROCESO_" + code,
		Summary:       GeneratedSummary(domain.StateEnProceso, false, display, thresholdDays),
	}, nil
}

// DaysRemaining returns the days left before an open request breaches its
// threshold. Negative once the threshold is exceeded.
func DaysRemaining(submitted time.Time, thresholdDays int, today time.Time) int {
	return thresholdDays - DaysBetween(DateOnly(submitted), DateOnly(today))
}
