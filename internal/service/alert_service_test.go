package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/observability"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

func TestClassifyLevel(t *testing.T) {
	cases := []struct {
		remaining int
		want      domain.AlertLevel
	}{
		{10, domain.AlertLevelMedio},
		{6, domain.AlertLevelMedio},
		{5, domain.AlertLevelAlto},
		{3, domain.AlertLevelAlto},
		{2, domain.AlertLevelCritico},
		{0, domain.AlertLevelCritico},
		{-1, domain.AlertLevelCritico},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyLevel(tc.remaining), "remaining=%d", tc.remaining)
	}
}

func TestAlertMessage(t *testing.T) {
	assert.Equal(t, "SLA FAST breaches in 3 day(s) (level ALTO)",
		AlertMessage(domain.AlertLevelAlto, 3, "FAST"))
	assert.Equal(t, "SLA FAST breached 2 day(s) ago (level CRITICO)",
		AlertMessage(domain.AlertLevelCritico, -2, "FAST"))
}

type alertFixture struct {
	service  *AlertService
	alerts   *fakeAlertRepo
	requests *fakeRequestRepo
	policies *fakePolicyRepo
	persons  *fakePersonRepo
	notifier *fakeNotifier
}

func newAlertFixture(digestRecipient string) *alertFixture {
	f := &alertFixture{
		alerts:   newFakeAlertRepo(),
		requests: newFakeRequestRepo(),
		policies: newFakePolicyRepo(),
		persons:  newFakePersonRepo(),
		notifier: &fakeNotifier{},
	}
	f.service = NewAlertService(AlertDependencies{
		AlertRepo:       f.alerts,
		RequestRepo:     f.requests,
		PolicyRepo:      f.policies,
		PersonRepo:      f.persons,
		Notifier:        f.notifier,
		Metrics:         observability.NewMetrics(),
		Logger:          zap.NewNop(),
		DigestRecipient: digestRecipient,
	})
	return f
}

func openRequest(id string) *domain.Request {
	return &domain.Request{
		ID:            id,
		State:         domain.StateEnProceso,
		ComplianceTag: "EN_PROCESO_FAST",
		SubmittedDate: mustDate("2024-01-01"),
	}
}

func TestReconcile_CreatesNonCriticalWithoutSending(t *testing.T) {
	f := newAlertFixture("")
	request := openRequest("req-1")

	outcome, err := f.service.Reconcile(context.Background(), request, "dev@corp.example",
		domain.AlertKindActualizacionDiaria, domain.AlertLevelMedio, "msg", false)
	require.NoError(t, err)

	assert.False(t, outcome.Notified)
	assert.False(t, outcome.Alert.EmailSent)
	assert.Equal(t, domain.AlertLevelMedio, outcome.Alert.Level)
	assert.Empty(t, f.notifier.sent)
}

func TestReconcile_CriticalCreationSendsOnce(t *testing.T) {
	f := newAlertFixture("")
	request := openRequest("req-1")

	outcome, err := f.service.Reconcile(context.Background(), request, "dev@corp.example",
		domain.AlertKindActualizacionDiaria, domain.AlertLevelCritico, "breach imminent", false)
	require.NoError(t, err)

	assert.True(t, outcome.Notified)
	assert.True(t, outcome.Alert.EmailSent)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "dev@corp.example", f.notifier.sent[0].To)

	// The next daily pass at the same level must not mail again.
	outcome, err = f.service.Reconcile(context.Background(), request, "dev@corp.example",
		domain.AlertKindActualizacionDiaria, domain.AlertLevelCritico, "breach imminent", false)
	require.NoError(t, err)
	assert.False(t, outcome.Notified)
	assert.Len(t, f.notifier.sent, 1)
}

func TestReconcile_EscalationSendsExactlyOneEmail(t *testing.T) {
	f := newAlertFixture("")
	request := openRequest("req-1")

	// A request walking toward and past its deadline over four daily passes.
	for _, remaining := range []int{10, 6, 3, -1} {
		level := ClassifyLevel(remaining)
		_, err := f.service.Reconcile(context.Background(), request, "dev@corp.example",
			domain.AlertKindActualizacionDiaria, level, AlertMessage(level, remaining, "FAST"), false)
		require.NoError(t, err)
	}

	assert.Len(t, f.notifier.sent, 1)
	assert.Len(t, f.alerts.alerts, 1, "the running alert is updated in place, never duplicated")
	assert.Equal(t, domain.AlertLevelCritico, f.alerts.alerts[0].Level)
	assert.True(t, f.alerts.alerts[0].EmailSent)
}

func TestReconcile_FailedSendLeavesEmailUnsentAndRetries(t *testing.T) {
	f := newAlertFixture("")
	f.notifier.failing = true
	request := openRequest("req-1")

	outcome, err := f.service.Reconcile(context.Background(), request, "dev@corp.example",
		domain.AlertKindActualizacionDiaria, domain.AlertLevelCritico, "daily", false)
	require.NoError(t, err)

	require.Error(t, outcome.NotifyErr)
	assert.True(t, apperrors.IsKind(outcome.NotifyErr, apperrors.KindNotification))
	assert.False(t, outcome.Alert.EmailSent)
	assert.False(t, outcome.Notified)

	// Transport recovers; the still-unsent critical alert retries.
	f.notifier.failing = false
	outcome, err = f.service.Reconcile(context.Background(), request, "dev@corp.example",
		domain.AlertKindActualizacionDiaria, domain.AlertLevelCritico, "daily", false)
	require.NoError(t, err)
	assert.True(t, outcome.Notified)
	assert.True(t, outcome.Alert.EmailSent)
	assert.Len(t, f.notifier.sent, 1)
}

func TestReconcile_ForceBypassesLevelGating(t *testing.T) {
	f := newAlertFixture("")
	request := openRequest("req-1")

	outcome, err := f.service.Reconcile(context.Background(), request, "dev@corp.example",
		domain.AlertKindNueva, domain.AlertLevelMedio, "created", true)
	require.NoError(t, err)

	assert.True(t, outcome.Notified)
	assert.Len(t, f.notifier.sent, 1)
}

func TestReconcile_KindsTrackSeparately(t *testing.T) {
	f := newAlertFixture("")
	request := openRequest("req-1")

	_, err := f.service.Reconcile(context.Background(), request, "dev@corp.example",
		domain.AlertKindNueva, domain.AlertLevelMedio, "created", false)
	require.NoError(t, err)
	_, err = f.service.Reconcile(context.Background(), request, "dev@corp.example",
		domain.AlertKindActualizacionDiaria, domain.AlertLevelMedio, "daily", false)
	require.NoError(t, err)

	assert.Len(t, f.alerts.alerts, 2)
}

func TestMarkRead(t *testing.T) {
	f := newAlertFixture("")
	request := openRequest("req-1")
	outcome, err := f.service.Reconcile(context.Background(), request, "dev@corp.example",
		domain.AlertKindNueva, domain.AlertLevelMedio, "created", false)
	require.NoError(t, err)

	read, err := f.service.MarkRead(context.Background(), outcome.Alert.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusLeida, read.Status)
	require.NotNil(t, read.ReadAt)

	// Idempotent: a second read keeps the original timestamp.
	again, err := f.service.MarkRead(context.Background(), outcome.Alert.ID)
	require.NoError(t, err)
	assert.Equal(t, read.ReadAt, again.ReadAt)
}

func TestMarkRead_NotFound(t *testing.T) {
	f := newAlertFixture("")
	_, err := f.service.MarkRead(context.Background(), "missing")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestListForRequest_UnknownRequest(t *testing.T) {
	f := newAlertFixture("")
	_, err := f.service.ListForRequest(context.Background(), "missing")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestSendDailyDigest_CriticalOnly(t *testing.T) {
	f := newAlertFixture("ops@corp.example")
	policy := f.policies.add("FAST", 5)
	person := f.persons.add("Ana Torres", "44556677", "ana@corp.example")

	critical := &domain.Request{
		PersonID:      person.ID,
		SlaPolicyID:   policy.ID,
		RoleTagID:     "tag-1",
		SubmittedDate: mustDate("2024-01-01"),
		State:         domain.StateVencida,
	}
	relaxed := &domain.Request{
		PersonID:      person.ID,
		SlaPolicyID:   policy.ID,
		RoleTagID:     "tag-1",
		SubmittedDate: mustDate("2024-01-09"),
		State:         domain.StateEnProceso,
	}
	require.NoError(t, f.requests.Create(context.Background(), critical))
	require.NoError(t, f.requests.Create(context.Background(), relaxed))

	require.NoError(t, f.service.SendDailyDigest(context.Background(), mustDate("2024-01-10")))

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "ops@corp.example", f.notifier.sent[0].To)
	assert.Contains(t, f.notifier.sent[0].Subject, "1 critical request(s)")
	assert.Contains(t, f.notifier.sent[0].Body, "Ana Torres")
}

func TestSendDailyDigest_SkipsClosedRequests(t *testing.T) {
	f := newAlertFixture("ops@corp.example")
	policy := f.policies.add("FAST", 5)
	person := f.persons.add("Ana Torres", "44556677", "ana@corp.example")

	closed := mustDate("2024-01-06")
	settled := &domain.Request{
		PersonID:      person.ID,
		SlaPolicyID:   policy.ID,
		RoleTagID:     "tag-1",
		SubmittedDate: mustDate("2024-01-01"),
		ClosedDate:    &closed,
		State:         domain.StateVencida,
	}
	require.NoError(t, f.requests.Create(context.Background(), settled))

	require.NoError(t, f.service.SendDailyDigest(context.Background(), mustDate("2024-01-10")))
	assert.Empty(t, f.notifier.sent)
}

func TestSendDailyDigest_NoRecipientIsNoop(t *testing.T) {
	f := newAlertFixture("")
	require.NoError(t, f.service.SendDailyDigest(context.Background(), mustDate("2024-01-10")))
	assert.Empty(t, f.notifier.sent)
}

func TestSendDailyDigest_SendFailureIsSwallowed(t *testing.T) {
	f := newAlertFixture("ops@corp.example")
	f.notifier.failing = true
	policy := f.policies.add("FAST", 5)
	person := f.persons.add("Ana Torres", "44556677", "ana@corp.example")

	request := &domain.Request{
		PersonID:      person.ID,
		SlaPolicyID:   policy.ID,
		RoleTagID:     "tag-1",
		SubmittedDate: mustDate("2024-01-01"),
		State:         domain.StateVencida,
	}
	require.NoError(t, f.requests.Create(context.Background(), request))

	assert.NoError(t, f.service.SendDailyDigest(context.Background(), mustDate("2024-01-10")))
}
