package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/events"
	"github.com/spec-kit/sla-tracker/internal/notify"
	"github.com/spec-kit/sla-tracker/internal/observability"
	"github.com/spec-kit/sla-tracker/internal/repository"
	"github.com/spec-kit/sla-tracker/internal/sla"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

// ClassifyLevel derives the alert criticality from days remaining until
// threshold breach. Negative values (already breached) are CRITICO.
func ClassifyLevel(daysRemaining int) domain.AlertLevel {
	switch {
	case daysRemaining <= 2:
		return domain.AlertLevelCritico
	case daysRemaining <= 5:
		return domain.AlertLevelAlto
	default:
		return domain.AlertLevelMedio
	}
}

// AlertMessage renders the human text stored on an alert.
func AlertMessage(level domain.AlertLevel, daysRemaining int, code string) string {
	if daysRemaining < 0 {
		return fmt.Sprintf("SLA %s breached %d day(s) ago (level %s)", code, -daysRemaining, level)
	}
	return fmt.Sprintf("SLA %s breaches in %d day(s) (level %s)", code, daysRemaining, level)
}

// AlertService reconciles alert records against newly derived levels and
// decides when a notification must be (re-)sent.
type AlertService struct {
	alerts     repository.AlertRepository
	requests   repository.RequestRepository
	policies   repository.SlaPolicyRepository
	persons    repository.PersonRepository
	notifier   notify.Notifier
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	digestRecipient string
}

// AlertDependencies bundles collaborators for the alert service.
type AlertDependencies struct {
	AlertRepo       repository.AlertRepository
	RequestRepo     repository.RequestRepository
	PolicyRepo      repository.SlaPolicyRepository
	PersonRepo      repository.PersonRepository
	Notifier        notify.Notifier
	Dispatcher      events.Dispatcher
	Metrics         *observability.Metrics
	Logger          *zap.Logger
	DigestRecipient string
}

// NewAlertService constructs the service.
func NewAlertService(deps AlertDependencies) *AlertService {
	return &AlertService{
		alerts:          deps.AlertRepo,
		requests:        deps.RequestRepo,
		policies:        deps.PolicyRepo,
		persons:         deps.PersonRepo,
		notifier:        deps.Notifier,
		dispatcher:      deps.Dispatcher,
		metrics:         deps.Metrics,
		logger:          deps.Logger,
		digestRecipient: deps.DigestRecipient,
	}
}

// ReconcileOutcome reports what a reconciliation pass did. NotifyErr is a
// transport failure; the alert write it accompanies is never rolled back.
type ReconcileOutcome struct {
	Alert     *domain.Alert
	Notified  bool
	NotifyErr error
}

// Reconcile creates or updates the alert of the given kind for a request
// and sends at most one email per escalation event.
//
// A missing alert is created with the computed level; notification fires
// only when the level is CRITICO. An existing alert is rewritten only when
// the level changed or it is CRITICO with the email still unsent, and only
// that unsent-critical case triggers a send. force bypasses the gating but
// not the bookkeeping.
func (s *AlertService) Reconcile(ctx context.Context, request *domain.Request, recipient string, kind domain.AlertKind, level domain.AlertLevel, message string, force bool) (ReconcileOutcome, error) {
	existing, err := s.alerts.FindByRequestAndKind(ctx, request.ID, kind)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return ReconcileOutcome{}, err
	}

	var alert *domain.Alert
	shouldNotify := false

	if existing == nil || errors.Is(err, pgx.ErrNoRows) {
		alert = &domain.Alert{
			RequestID: request.ID,
			Kind:      kind,
			Level:     level,
			Message:   message,
			Status:    domain.AlertStatusNueva,
			EmailSent: false,
		}
		if err := s.alerts.Create(ctx, alert); err != nil {
			return ReconcileOutcome{}, err
		}
		shouldNotify = level == domain.AlertLevelCritico
	} else {
		alert = existing
		criticalUnsent := level == domain.AlertLevelCritico && !alert.EmailSent
		if alert.Level != level || criticalUnsent {
			alert.Level = level
			alert.Message = message
			if err := s.alerts.Update(ctx, alert); err != nil {
				return ReconcileOutcome{}, err
			}
		}
		shouldNotify = criticalUnsent
	}

	if force {
		shouldNotify = true
	}

	outcome := ReconcileOutcome{Alert: alert}
	if !shouldNotify {
		return outcome, nil
	}

	subject := fmt.Sprintf("[%s] SLA alert for request %s", level, request.ID)
	body := fmt.Sprintf("<p>%s</p><p>State: %s, tag: %s.</p>", message, request.State, request.ComplianceTag)

	if sendErr := s.notifier.Send(ctx, recipient, subject, body); sendErr != nil {
		// emailSent stays false so a later pass retries.
		s.metrics.RecordNotification(false)
		outcome.NotifyErr = apperrors.NewNotificationError("could not notify responsible party", sendErr)
		return outcome, nil
	}
	s.metrics.RecordNotification(true)
	alert.EmailSent = true
	if err := s.alerts.Update(ctx, alert); err != nil {
		return outcome, err
	}
	outcome.Notified = true

	s.publish(ctx, events.Event{
		Type:      events.EventAlertEscalated,
		RequestID: request.ID,
		Payload: events.AlertEscalatedPayload{
			AlertID:  alert.ID,
			Kind:     alert.Kind,
			Level:    alert.Level,
			Notified: true,
		},
	})
	return outcome, nil
}

// MarkRead flips an alert to LEIDA.
func (s *AlertService) MarkRead(ctx context.Context, alertID string) (*domain.Alert, error) {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("alert", map[string]any{"id": alertID})
		}
		return nil, err
	}
	if alert.Status == domain.AlertStatusLeida {
		return alert, nil
	}
	now := time.Now()
	alert.Status = domain.AlertStatusLeida
	alert.ReadAt = &now
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// ListForRequest returns the non-deleted alerts of a request.
func (s *AlertService) ListForRequest(ctx context.Context, requestID string) ([]domain.Alert, error) {
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"id": requestID})
		}
		return nil, err
	}
	return s.alerts.ListByRequest(ctx, requestID)
}

// SendDailyDigest mails one summary of all critical open requests. Send
// failures are logged only; the digest is best-effort.
func (s *AlertService) SendDailyDigest(ctx context.Context, today time.Time) error {
	if strings.TrimSpace(s.digestRecipient) == "" {
		return nil
	}

	open, err := s.requests.ListOpen(ctx)
	if err != nil {
		return err
	}

	var lines []string
	for i := range open {
		request := &open[i]
		if !request.IsOpen() || request.ClosedDate != nil {
			continue
		}
		policy, err := s.policies.GetByID(ctx, request.SlaPolicyID)
		if err != nil {
			s.logger.Warn("digest: policy lookup failed",
				zap.String("request_id", request.ID), zap.Error(err))
			continue
		}
		remaining := sla.DaysRemaining(request.SubmittedDate, policy.ThresholdDays, today)
		if ClassifyLevel(remaining) != domain.AlertLevelCritico {
			continue
		}
		responsible := request.PersonID
		if person, err := s.persons.GetByID(ctx, request.PersonID); err == nil {
			responsible = person.FullName
		}
		lines = append(lines, fmt.Sprintf("<li>%s / %s / %s: %d day(s) remaining</li>",
			request.ID, policy.EffectiveCode(), responsible, remaining))
	}
	if len(lines) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Daily SLA digest %s: %d critical request(s)", today.Format(sla.DateLayout), len(lines))
	body := "<ul>" + strings.Join(lines, "") + "</ul>"
	if err := s.notifier.Send(ctx, s.digestRecipient, subject, body); err != nil {
		s.metrics.RecordNotification(false)
		s.logger.Warn("digest send failed", zap.Error(err))
		return nil
	}
	s.metrics.RecordNotification(true)
	return nil
}

func (s *AlertService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
