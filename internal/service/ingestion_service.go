package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-tracker/internal/clock"
	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/events"
	"github.com/spec-kit/sla-tracker/internal/observability"
	"github.com/spec-kit/sla-tracker/internal/persistence"
	"github.com/spec-kit/sla-tracker/internal/repository"
	"github.com/spec-kit/sla-tracker/internal/sla"
)

// IngestionRow is one raw spreadsheet row. All fields arrive as free text;
// absence and empty string both mean "not provided".
type IngestionRow struct {
	PersonDocumentID string `json:"personDocumentId"`
	PersonFirstName  string `json:"personFirstName"`
	PersonLastName   string `json:"personLastName"`
	PersonEmail      string `json:"personEmail"`

	PolicyCode          string `json:"policyCode"`
	PolicyRequestType   string `json:"policyRequestType"`
	PolicyThresholdDays string `json:"policyThresholdDays"`

	RoleName      string `json:"roleName"`
	RoleTechBlock string `json:"roleTechBlock"`

	SubmittedDate string `json:"submittedDate"`
	ClosedDate    string `json:"closedDate"`

	Origin       string `json:"origin"`
	Summary      string `json:"summary"`
	RequestState string `json:"requestState"`
}

// RowError records one failed row of an ingestion call.
type RowError struct {
	Row     int    `json:"rowIndex"`
	Message string `json:"message"`
}

// IngestionReport aggregates the per-row outcome of one batch.
type IngestionReport struct {
	TotalRows    int        `json:"totalRows"`
	SuccessCount int        `json:"successCount"`
	ErrorCount   int        `json:"errorCount"`
	Errors       []RowError `json:"errors"`
}

const lastReportKey = "sla:ingestion:last_report"

// IngestionService turns raw rows into persisted requests, creating missing
// master data on demand and rejecting duplicates under the natural
// composite key. Row-level problems never abort the batch; losing the
// database connection does.
type IngestionService struct {
	requests repository.RequestRepository
	policies repository.SlaPolicyRepository
	persons  repository.PersonRepository
	roleTags repository.RoleTagRepository

	cache      *persistence.Redis
	dispatcher events.Dispatcher
	clock      clock.Clock
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// IngestionDependencies bundles collaborators for the pipeline.
type IngestionDependencies struct {
	RequestRepo repository.RequestRepository
	PolicyRepo  repository.SlaPolicyRepository
	PersonRepo  repository.PersonRepository
	RoleTagRepo repository.RoleTagRepository
	Cache       *persistence.Redis
	Dispatcher  events.Dispatcher
	Clock       clock.Clock
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewIngestionService constructs the pipeline.
func NewIngestionService(deps IngestionDependencies) *IngestionService {
	return &IngestionService{
		requests:   deps.RequestRepo,
		policies:   deps.PolicyRepo,
		persons:    deps.PersonRepo,
		roleTags:   deps.RoleTagRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// batchState holds the natural-key lookup maps for one Process call. Each
// write-through creation updates the maps so later rows in the same batch
// reuse the record, and the dedup set grows with each committed row.
type batchState struct {
	policiesByCode map[string]*domain.SlaPolicy
	personsByDoc   map[string]*domain.Person
	roleTagsByName map[string]*domain.RoleTag
	dedup          map[string]struct{}
}

// Process ingests rows in input order. The returned report is complete even
// under partial failure; a storage failure during preload or a
// connection-level failure mid-batch aborts the call.
func (s *IngestionService) Process(ctx context.Context, rows []IngestionRow, actingUserID string) (*IngestionReport, error) {
	state, err := s.preload(ctx)
	if err != nil {
		return nil, err
	}

	report := &IngestionReport{TotalRows: len(rows)}
	today := s.clock.Today()

	for i := range rows {
		rowIndex := i + 1
		if err := s.processRow(ctx, &rows[i], actingUserID, state, today); err != nil {
			if isConnectivityError(err) {
				return nil, fmt.Errorf("row %d: %w", rowIndex, err)
			}
			report.ErrorCount++
			report.Errors = append(report.Errors, RowError{Row: rowIndex, Message: err.Error()})
			s.metrics.RecordIngestionRow("error")
			continue
		}
		report.SuccessCount++
		s.metrics.RecordIngestionRow("ok")
	}

	s.publish(ctx, events.Event{
		Type:    events.EventBatchIngested,
		ActorID: actingUserID,
		Payload: events.BatchIngestedPayload{
			TotalRows:    report.TotalRows,
			SuccessCount: report.SuccessCount,
			ErrorCount:   report.ErrorCount,
		},
	})
	s.storeLastReport(ctx, report)

	s.logger.Info("batch ingestion finished",
		zap.Int("total", report.TotalRows),
		zap.Int("ok", report.SuccessCount),
		zap.Int("errors", report.ErrorCount),
	)
	return report, nil
}

func (s *IngestionService) preload(ctx context.Context) (*batchState, error) {
	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("preload policies: %w", err)
	}
	persons, err := s.persons.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("preload persons: %w", err)
	}
	roleTags, err := s.roleTags.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("preload role tags: %w", err)
	}
	keys, err := s.requests.ListDedupKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("preload request keys: %w", err)
	}

	state := &batchState{
		policiesByCode: make(map[string]*domain.SlaPolicy, len(policies)),
		personsByDoc:   make(map[string]*domain.Person, len(persons)),
		roleTagsByName: make(map[string]*domain.RoleTag, len(roleTags)),
		dedup:          make(map[string]struct{}, len(keys)),
	}
	for i := range policies {
		state.policiesByCode[policies[i].Code] = &policies[i]
	}
	for i := range persons {
		state.personsByDoc[persons[i].DocumentID] = &persons[i]
	}
	for i := range roleTags {
		state.roleTagsByName[roleTags[i].Name] = &roleTags[i]
	}
	for _, key := range keys {
		state.dedup[key] = struct{}{}
	}
	return state, nil
}

func (s *IngestionService) processRow(ctx context.Context, row *IngestionRow, actingUserID string, state *batchState, today time.Time) error {
	if err := validateRow(row); err != nil {
		return err
	}

	submitted, err := sla.ParseDate(strings.TrimSpace(row.SubmittedDate))
	if err != nil {
		return fmt.Errorf("unparsable submitted date %q", row.SubmittedDate)
	}
	if submitted.After(today) {
		return errors.New("submitted date is in the future")
	}

	var closed *time.Time
	if trimmed := strings.TrimSpace(row.ClosedDate); trimmed != "" {
		parsed, err := sla.ParseDate(trimmed)
		if err != nil {
			return fmt.Errorf("unparsable closed date %q", row.ClosedDate)
		}
		if parsed.Before(submitted) {
			return errors.New("closed date precedes submitted date")
		}
		closed = &parsed
	}

	person, err := s.resolvePerson(ctx, row, state)
	if err != nil {
		return err
	}
	policy, err := s.resolvePolicy(ctx, row, state)
	if err != nil {
		return err
	}
	roleTag, err := s.resolveRoleTag(ctx, row, state)
	if err != nil {
		return err
	}

	key := domain.DedupKey(person.ID, policy.ID, roleTag.ID, submitted)
	if _, dup := state.dedup[key]; dup {
		return errors.New("duplicate request")
	}
	state.dedup[key] = struct{}{}

	result, err := sla.Evaluate(submitted, closed, policy.ThresholdDays, policy.EffectiveCode(), today)
	if err != nil {
		return err
	}

	request := &domain.Request{
		PersonID:        person.ID,
		SlaPolicyID:     policy.ID,
		RoleTagID:       roleTag.ID,
		CreatedByUserID: actingUserID,
		SubmittedDate:   submitted,
		ClosedDate:      closed,
		DaysUsed:        result.DaysUsed,
		ComplianceTag:   result.ComplianceTag,
		State:           result.State,
		Summary:         summaryOrOverride(result.Summary, row.Summary),
		Origin:          strings.TrimSpace(row.Origin),
	}

	// Auto-close: a row arriving already past threshold with no closed
	// date gets a synthetic one. The state stays VENCIDA; only the close
	// bookkeeping is synthesized.
	if closed == nil && result.State == domain.StateVencida {
		synthetic := submitted.AddDate(0, 0, policy.ThresholdDays)
		request.ClosedDate = &synthetic
		request.DaysUsed = policy.ThresholdDays
	}

	if override := domain.LifecycleState(strings.TrimSpace(row.RequestState)); override != "" {
		if override == domain.StateEnProceso || override == domain.StateInactiva || override == domain.StateVencida {
			request.State = override
		}
	}

	if err := s.requests.Create(ctx, request); err != nil {
		delete(state.dedup, key)
		return fmt.Errorf("persist request: %w", err)
	}
	return nil
}

func (s *IngestionService) resolvePerson(ctx context.Context, row *IngestionRow, state *batchState) (*domain.Person, error) {
	doc := strings.TrimSpace(row.PersonDocumentID)
	if person, ok := state.personsByDoc[doc]; ok {
		return person, nil
	}
	existing, err := s.persons.FindByDocument(ctx, doc)
	if err == nil {
		state.personsByDoc[doc] = existing
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("resolve person %q: %w", doc, err)
	}

	person := &domain.Person{
		FullName:       strings.TrimSpace(row.PersonFirstName) + " " + strings.TrimSpace(row.PersonLastName),
		DocumentID:     doc,
		CorporateEmail: strings.TrimSpace(row.PersonEmail),
		Status:         domain.PersonStatusActive,
	}
	if err := s.persons.Create(ctx, person); err != nil {
		return nil, fmt.Errorf("create person %q: %w", doc, err)
	}
	state.personsByDoc[doc] = person
	return person, nil
}

func (s *IngestionService) resolvePolicy(ctx context.Context, row *IngestionRow, state *batchState) (*domain.SlaPolicy, error) {
	code := strings.TrimSpace(row.PolicyCode)
	if policy, ok := state.policiesByCode[code]; ok {
		return policy, nil
	}
	existing, err := s.policies.FindByCode(ctx, code)
	if err == nil {
		state.policiesByCode[code] = existing
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("resolve policy %q: %w", code, err)
	}

	threshold, err := strconv.Atoi(strings.TrimSpace(row.PolicyThresholdDays))
	if err != nil || threshold < 0 {
		return nil, fmt.Errorf("new policy %q requires a valid threshold, got %q", code, row.PolicyThresholdDays)
	}
	policy := &domain.SlaPolicy{
		Code:           code,
		ThresholdDays:  threshold,
		RequestTypeTag: strings.TrimSpace(row.PolicyRequestType),
		Active:         true,
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, fmt.Errorf("create policy %q: %w", code, err)
	}
	state.policiesByCode[code] = policy
	return policy, nil
}

func (s *IngestionService) resolveRoleTag(ctx context.Context, row *IngestionRow, state *batchState) (*domain.RoleTag, error) {
	name := strings.TrimSpace(row.RoleName)
	if tag, ok := state.roleTagsByName[name]; ok {
		return tag, nil
	}
	existing, err := s.roleTags.FindByName(ctx, name)
	if err == nil {
		state.roleTagsByName[name] = existing
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("resolve role tag %q: %w", name, err)
	}

	tag := &domain.RoleTag{
		Name:      name,
		TechBlock: strings.TrimSpace(row.RoleTechBlock),
	}
	if err := s.roleTags.Create(ctx, tag); err != nil {
		return nil, fmt.Errorf("create role tag %q: %w", name, err)
	}
	state.roleTagsByName[name] = tag
	return tag, nil
}

// isConnectivityError separates losing the database from being told no by
// it. A *pgconn.PgError means the server processed the statement and
// rejected it, which stays a row error; context expiry, network failures
// and connect failures mean later rows cannot fare better.
func isConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr)
}

func validateRow(row *IngestionRow) error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"personDocumentId", row.PersonDocumentID},
		{"personFirstName", row.PersonFirstName},
		{"personLastName", row.PersonLastName},
		{"personEmail", row.PersonEmail},
		{"policyCode", row.PolicyCode},
		{"policyRequestType", row.PolicyRequestType},
		{"roleName", row.RoleName},
		{"roleTechBlock", row.RoleTechBlock},
		{"submittedDate", row.SubmittedDate},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// storeLastReport keeps the latest batch report in Redis for the health
// surface; the cache is best-effort.
func (s *IngestionService) storeLastReport(ctx context.Context, report *IngestionReport) {
	if s.cache == nil || s.cache.Handle() == nil {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Handle().Set(ctx, lastReportKey, payload, 24*time.Hour).Err(); err != nil {
		s.logger.Warn("unable to cache ingestion report", zap.Error(err))
	}
}

// LastReport returns the cached report of the previous batch, if any.
func (s *IngestionService) LastReport(ctx context.Context) (*IngestionReport, error) {
	if s.cache == nil || s.cache.Handle() == nil {
		return nil, nil
	}
	payload, err := s.cache.Handle().Get(ctx, lastReportKey).Bytes()
	if err != nil {
		return nil, nil
	}
	var report IngestionReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *IngestionService) publish(ctx context.Context, event events.Event) {
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
