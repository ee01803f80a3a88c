package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-tracker/internal/clock"
	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/events"
	"github.com/spec-kit/sla-tracker/internal/repository"
	"github.com/spec-kit/sla-tracker/internal/sla"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

// RequestService coordinates direct request workflows and the daily
// recompute pass. All state derivation goes through sla.Evaluate.
type RequestService struct {
	requests repository.RequestRepository
	policies repository.SlaPolicyRepository
	persons  repository.PersonRepository
	roleTags repository.RoleTagRepository
	alerts   *AlertService

	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo repository.RequestRepository
	PolicyRepo  repository.SlaPolicyRepository
	PersonRepo  repository.PersonRepository
	RoleTagRepo repository.RoleTagRepository
	Alerts      *AlertService
	Dispatcher  events.Dispatcher
	Clock       clock.Clock
	Logger      *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	return &RequestService{
		requests:   deps.RequestRepo,
		policies:   deps.PolicyRepo,
		persons:    deps.PersonRepo,
		roleTags:   deps.RoleTagRepo,
		alerts:     deps.Alerts,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
}

// RequestCreateInput describes a direct creation payload.
type RequestCreateInput struct {
	PersonID      string
	SlaPolicyID   string
	RoleTagID     string
	SubmittedDate time.Time
	ClosedDate    *time.Time
	Origin        string
	Summary       string
	Notify        bool
}

// RequestUpdateInput describes a direct update payload.
type RequestUpdateInput struct {
	ClosedDate *time.Time
	Origin     *string
	Summary    *string
	Notify     bool
}

// Create validates references, derives the compliance state and persists a
// new request, reconciling its creation alert synchronously. When Notify is
// set a send failure is returned to the caller alongside the created
// request.
func (s *RequestService) Create(ctx context.Context, actorID string, input RequestCreateInput) (*domain.Request, error) {
	person, err := s.persons.GetByID(ctx, input.PersonID)
	if err != nil {
		return nil, referentialOrStorage(err, "person", input.PersonID)
	}
	policy, err := s.policies.GetByID(ctx, input.SlaPolicyID)
	if err != nil {
		return nil, referentialOrStorage(err, "sla policy", input.SlaPolicyID)
	}
	if _, err := s.roleTags.GetByID(ctx, input.RoleTagID); err != nil {
		return nil, referentialOrStorage(err, "role tag", input.RoleTagID)
	}

	submitted := sla.DateOnly(input.SubmittedDate)
	exists, err := s.requests.ExistsByKey(ctx, input.PersonID, input.SlaPolicyID, input.RoleTagID, submitted)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewDuplicateError("duplicate request", map[string]any{
			"dedup_key": domain.DedupKey(input.PersonID, input.SlaPolicyID, input.RoleTagID, submitted),
		})
	}

	result, err := sla.Evaluate(submitted, input.ClosedDate, policy.ThresholdDays, policy.EffectiveCode(), s.clock.Today())
	if err != nil {
		if errors.Is(err, sla.ErrInvalidDateRange) {
			return nil, apperrors.NewValidationError("closed date precedes submitted date", nil)
		}
		return nil, err
	}

	request := &domain.Request{
		PersonID:        input.PersonID,
		SlaPolicyID:     input.SlaPolicyID,
		RoleTagID:       input.RoleTagID,
		CreatedByUserID: actorID,
		SubmittedDate:   submitted,
		ClosedDate:      dateOnlyPtr(input.ClosedDate),
		DaysUsed:        result.DaysUsed,
		ComplianceTag:   result.ComplianceTag,
		State:           result.State,
		Summary:         summaryOrOverride(result.Summary, input.Summary),
		Origin:          strings.TrimSpace(input.Origin),
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: request.ID,
		ActorID:   actorID,
		Payload:   requestPayload(request),
	})

	notifyErr := s.reconcileAlert(ctx, request, person, policy, domain.AlertKindNueva, input.Notify)
	if input.Notify && notifyErr != nil {
		return request, notifyErr
	}
	return request, nil
}

// Update applies caller changes and recomputes the derived state in full.
func (s *RequestService) Update(ctx context.Context, actorID, id string, input RequestUpdateInput) (*domain.Request, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"id": id})
		}
		return nil, err
	}
	if request.Deleted {
		return nil, apperrors.NewNotFound("request", map[string]any{"id": id})
	}

	policy, err := s.policies.GetByID(ctx, request.SlaPolicyID)
	if err != nil {
		return nil, referentialOrStorage(err, "sla policy", request.SlaPolicyID)
	}
	person, err := s.persons.GetByID(ctx, request.PersonID)
	if err != nil {
		return nil, referentialOrStorage(err, "person", request.PersonID)
	}

	hasOverride := hasSummaryOverride(request, policy.ThresholdDays)

	if input.ClosedDate != nil {
		request.ClosedDate = dateOnlyPtr(input.ClosedDate)
	}
	if input.Origin != nil {
		request.Origin = strings.TrimSpace(*input.Origin)
	}

	result, err := sla.Evaluate(request.SubmittedDate, request.ClosedDate, policy.ThresholdDays, policy.EffectiveCode(), s.clock.Today())
	if err != nil {
		if errors.Is(err, sla.ErrInvalidDateRange) {
			return nil, apperrors.NewValidationError("closed date precedes submitted date", nil)
		}
		return nil, err
	}
	request.DaysUsed = result.DaysUsed
	request.ComplianceTag = result.ComplianceTag
	request.State = result.State
	switch {
	case input.Summary != nil && strings.TrimSpace(*input.Summary) != "":
		request.Summary = strings.TrimSpace(*input.Summary)
	case hasOverride:
		// A caller-supplied summary is never replaced by generated text.
	default:
		request.Summary = result.Summary
	}

	if err := s.requests.Update(ctx, request); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:      events.EventRequestUpdated,
		RequestID: request.ID,
		ActorID:   actorID,
		Payload:   requestPayload(request),
	})

	notifyErr := s.reconcileAlert(ctx, request, person, policy, domain.AlertKindActualizacionDiaria, input.Notify)
	if input.Notify && notifyErr != nil {
		return request, notifyErr
	}
	return request, nil
}

// Get fetches one request.
func (s *RequestService) Get(ctx context.Context, id string) (*domain.Request, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"id": id})
		}
		return nil, err
	}
	if request.Deleted {
		return nil, apperrors.NewNotFound("request", map[string]any{"id": id})
	}
	return request, nil
}

// List returns requests matching the filter.
func (s *RequestService) List(ctx context.Context, filter repository.RequestFilter) ([]domain.Request, error) {
	return s.requests.ListWithFilter(ctx, filter)
}

// Delete marks a request deleted. Requests are never hard-deleted.
func (s *RequestService) Delete(ctx context.Context, id string) error {
	if err := s.requests.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("request", map[string]any{"id": id})
		}
		return err
	}
	return nil
}

// RecomputeResult summarizes one daily pass.
type RecomputeResult struct {
	OpenRequests int
	ChangedCount int
	FailedCount  int
}

// DailyRecompute re-evaluates every open request for the given date,
// persists only actual state changes and refreshes the running daily alert
// of each. Per-request failures are logged and skipped; only storage-level
// failures abort the pass.
func (s *RequestService) DailyRecompute(ctx context.Context, today time.Time) (RecomputeResult, error) {
	open, err := s.requests.ListOpen(ctx)
	if err != nil {
		return RecomputeResult{}, err
	}

	result := RecomputeResult{OpenRequests: len(open)}
	for i := range open {
		request := &open[i]
		if err := s.recomputeOne(ctx, request, today, &result); err != nil {
			result.FailedCount++
			s.logger.Warn("daily recompute: request skipped",
				zap.String("request_id", request.ID),
				zap.Error(err),
			)
		}
	}

	s.publish(ctx, events.Event{
		Type: events.EventDailyRecomputeCompleted,
		Payload: events.DailyRecomputePayload{
			Date:         today.Format(sla.DateLayout),
			OpenRequests: result.OpenRequests,
			ChangedCount: result.ChangedCount,
			FailedCount:  result.FailedCount,
		},
	})
	return result, nil
}

func (s *RequestService) recomputeOne(ctx context.Context, request *domain.Request, today time.Time, result *RecomputeResult) error {
	// Closed requests are final; the daily pass only moves open ones.
	if !request.IsOpen() || request.ClosedDate != nil {
		return nil
	}

	policy, err := s.policies.GetByID(ctx, request.SlaPolicyID)
	if err != nil {
		return err
	}
	person, err := s.persons.GetByID(ctx, request.PersonID)
	if err != nil {
		return err
	}

	derived, err := sla.Evaluate(request.SubmittedDate, request.ClosedDate, policy.ThresholdDays, policy.EffectiveCode(), today)
	if err != nil {
		return err
	}

	if derived.State != request.State || derived.ComplianceTag != request.ComplianceTag || derived.DaysUsed != request.DaysUsed {
		hasOverride := hasSummaryOverride(request, policy.ThresholdDays)
		request.State = derived.State
		request.ComplianceTag = derived.ComplianceTag
		request.DaysUsed = derived.DaysUsed
		if !hasOverride {
			request.Summary = derived.Summary
		}
		if err := s.requests.Update(ctx, request); err != nil {
			return err
		}
		result.ChangedCount++
	}

	// The daily alert refreshes even when the state did not change; the
	// level depends on days remaining, which moves every day.
	remaining := sla.DaysRemaining(request.SubmittedDate, policy.ThresholdDays, today)
	level := ClassifyLevel(remaining)
	message := AlertMessage(level, remaining, policy.EffectiveCode())
	outcome, err := s.alerts.Reconcile(ctx, request, person.CorporateEmail, domain.AlertKindActualizacionDiaria, level, message, false)
	if err != nil {
		return err
	}
	if outcome.NotifyErr != nil {
		s.logger.Warn("daily recompute: notification failed",
			zap.String("request_id", request.ID),
			zap.Error(outcome.NotifyErr),
		)
	}
	return nil
}

func (s *RequestService) reconcileAlert(ctx context.Context, request *domain.Request, person *domain.Person, policy *domain.SlaPolicy, kind domain.AlertKind, force bool) error {
	if request.State == domain.StateInactiva && !force {
		return nil
	}
	remaining := sla.DaysRemaining(request.SubmittedDate, policy.ThresholdDays, s.clock.Today())
	level := ClassifyLevel(remaining)
	message := AlertMessage(level, remaining, policy.EffectiveCode())

	outcome, err := s.alerts.Reconcile(ctx, request, person.CorporateEmail, kind, level, message, force)
	if err != nil {
		s.logger.Warn("alert reconciliation failed",
			zap.String("request_id", request.ID),
			zap.Error(err),
		)
		return nil
	}
	if outcome.NotifyErr != nil {
		if force {
			return outcome.NotifyErr
		}
		s.logger.Warn("notification failed",
			zap.String("request_id", request.ID),
			zap.Error(outcome.NotifyErr),
		)
	}
	return nil
}

func (s *RequestService) publish(ctx context.Context, event events.Event) {
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

func referentialOrStorage(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewReferentialError(resource+" not found", map[string]any{"id": id})
	}
	return err
}

func summaryOrOverride(generated, override string) string {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		return trimmed
	}
	return generated
}

// hasSummaryOverride reports whether the stored summary came from a caller
// rather than the evaluator. Every write keeps generated summaries in sync
// with the persisted state and day count, so a stored summary that matches
// the regenerated text for the current fields is not an override.
func hasSummaryOverride(request *domain.Request, thresholdDays int) bool {
	if request.Summary == "" {
		return false
	}
	generated := sla.GeneratedSummary(request.State, request.ClosedDate != nil, request.DaysUsed, thresholdDays)
	return request.Summary != generated
}

func dateOnlyPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	day := sla.DateOnly(*t)
	return &day
}

func requestPayload(request *domain.Request) events.RequestChangedPayload {
	return events.RequestChangedPayload{
		PersonID:      request.PersonID,
		SlaPolicyID:   request.SlaPolicyID,
		State:         request.State,
		ComplianceTag: request.ComplianceTag,
		DaysUsed:      request.DaysUsed,
	}
}
