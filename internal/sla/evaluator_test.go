package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

func date(value string) time.Time {
	parsed, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func datePtr(value string) *time.Time {
	d := date(value)
	return &d
}

func TestEvaluate_ClosedWithinThreshold(t *testing.T) {
	result, err := Evaluate(date("2024-01-01"), datePtr("2024-01-04"), 5, "SLA10", date("2024-02-01"))
	require.NoError(t, err)

	assert.Equal(t, 3, result.DaysUsed)
	assert.Equal(t, domain.StateInactiva, result.State)
	assert.Equal(t, "CUMPLE_SLA10", result.ComplianceTag)
	assert.Equal(t, "Request attended within SLA (3 of 5 days)", result.Summary)
}

func TestEvaluate_ClosedAtExactThreshold(t *testing.T) {
	result, err := Evaluate(date("2024-01-01"), datePtr("2024-01-06"), 5, "SLA10", date("2024-02-01"))
	require.NoError(t, err)

	assert.Equal(t, 5, result.DaysUsed)
	assert.Equal(t, domain.StateInactiva, result.State)
	assert.Equal(t, "CUMPLE_SLA10", result.ComplianceTag)
}

func TestEvaluate_ClosedOutsideThreshold(t *testing.T) {
	result, err := Evaluate(date("2024-01-01"), datePtr("2024-01-09"), 5, "SLA10", date("2024-02-01"))
	require.NoError(t, err)

	assert.Equal(t, 8, result.DaysUsed)
	assert.Equal(t, domain.StateVencida, result.State)
	assert.Equal(t, "NO_CUMPLE_SLA10", result.ComplianceTag)
}

func TestEvaluate_ClosedSameDay(t *testing.T) {
	result, err := Evaluate(date("2024-01-01"), datePtr("2024-01-01"), 5, "SLA10", date("2024-02-01"))
	require.NoError(t, err)

	assert.Equal(t, 0, result.DaysUsed)
	assert.Equal(t, domain.StateInactiva, result.State)
}

func TestEvaluate_ClosedBeforeSubmitted(t *testing.T) {
	_, err := Evaluate(date("2024-01-10"), datePtr("2024-01-05"), 5, "SLA10", date("2024-02-01"))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestEvaluate_OpenInProgress(t *testing.T) {
	result, err := Evaluate(date("2024-01-01"), nil, 5, "SLA10", date("2024-01-04"))
	require.NoError(t, err)

	assert.Equal(t, 3, result.DaysUsed)
	assert.Equal(t, domain.StateEnProceso, result.State)
	assert.Equal(t, "EN_PROCESO_SLA10", result.ComplianceTag)
}

func TestEvaluate_OpenAtExactThreshold(t *testing.T) {
	result, err := Evaluate(date("2024-01-01"), nil, 5, "SLA10", date("2024-01-06"))
	require.NoError(t, err)

	assert.Equal(t, 5, result.DaysUsed)
	assert.Equal(t, domain.StateEnProceso, result.State)
}

func TestEvaluate_OpenOverdue(t *testing.T) {
	result, err := Evaluate(date("2024-01-01"), nil, 5, "SLA10", date("2024-01-10"))
	require.NoError(t, err)

	assert.Equal(t, 9, result.DaysUsed)
	assert.Equal(t, domain.StateVencida, result.State)
	assert.Equal(t, "NO_CUMPLE_SLA10", result.ComplianceTag)
}

func TestEvaluate_FutureSubmittedClampsDisplay(t *testing.T) {
	result, err := Evaluate(date("2024-01-10"), nil, 5, "SLA10", date("2024-01-05"))
	require.NoError(t, err)

	// The raw negative count keeps the request in progress; the displayed
	// usage never goes below zero.
	assert.Equal(t, 0, result.DaysUsed)
	assert.Equal(t, domain.StateEnProceso, result.State)
}

func TestEvaluate_ZeroThreshold(t *testing.T) {
	result, err := Evaluate(date("2024-01-01"), nil, 0, "SLA0", date("2024-01-02"))
	require.NoError(t, err)

	assert.Equal(t, domain.StateVencida, result.State)
	assert.Equal(t, 1, result.DaysUsed)

	sameDay, err := Evaluate(date("2024-01-01"), nil, 0, "SLA0", date("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, domain.StateEnProceso, sameDay.State)
}

func TestEvaluate_StripsTimeOfDay(t *testing.T) {
	submitted := time.Date(2024, 1, 1, 23, 45, 0, 0, time.UTC)
	today := time.Date(2024, 1, 4, 0, 5, 0, 0, time.UTC)

	result, err := Evaluate(submitted, nil, 5, "SLA10", today)
	require.NoError(t, err)
	assert.Equal(t, 3, result.DaysUsed)
}

func TestDaysRemaining(t *testing.T) {
	assert.Equal(t, 3, DaysRemaining(date("2024-01-01"), 5, date("2024-01-03")))
	assert.Equal(t, 0, DaysRemaining(date("2024-01-01"), 5, date("2024-01-06")))
	assert.Equal(t, -2, DaysRemaining(date("2024-01-01"), 5, date("2024-01-08")))
}

func TestDaysBetween_Negative(t *testing.T) {
	assert.Equal(t, -4, DaysBetween(date("2024-01-05"), date("2024-01-01")))
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate("01/02/2024")
	assert.Error(t, err)
}
