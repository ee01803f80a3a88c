package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/repository"
	"github.com/spec-kit/sla-tracker/internal/sla"
)

// fakeClock pins Today to a fixed date.
type fakeClock struct {
	today time.Time
}

func (c *fakeClock) Now() time.Time   { return c.today.Add(9 * time.Hour) }
func (c *fakeClock) Today() time.Time { return c.today }

func clockAt(date string) *fakeClock {
	parsed, err := sla.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return &fakeClock{today: parsed}
}

func mustDate(value string) time.Time {
	parsed, err := sla.ParseDate(value)
	if err != nil {
		panic(err)
	}
	return parsed
}

type fakeRequestRepo struct {
	seq      int
	byID     map[string]*domain.Request
	failNext error
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{byID: map[string]*domain.Request{}}
}

func (r *fakeRequestRepo) nextID() string {
	r.seq++
	return fmt.Sprintf("req-%d", r.seq)
}

func (r *fakeRequestRepo) takeFailure() error {
	err := r.failNext
	r.failNext = nil
	return err
}

func (r *fakeRequestRepo) Create(ctx context.Context, request *domain.Request) error {
	if err := r.takeFailure(); err != nil {
		return err
	}
	request.ID = r.nextID()
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	clone := *request
	r.byID[request.ID] = &clone
	return nil
}

func (r *fakeRequestRepo) Update(ctx context.Context, request *domain.Request) error {
	stored, ok := r.byID[request.ID]
	if !ok || stored.Deleted {
		return pgx.ErrNoRows
	}
	clone := *request
	r.byID[request.ID] = &clone
	return nil
}

func (r *fakeRequestRepo) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	stored, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *fakeRequestRepo) ListOpen(ctx context.Context) ([]domain.Request, error) {
	var result []domain.Request
	for i := 1; i <= r.seq; i++ {
		stored, ok := r.byID[fmt.Sprintf("req-%d", i)]
		if !ok || stored.Deleted || stored.State == domain.StateInactiva {
			continue
		}
		result = append(result, *stored)
	}
	return result, nil
}

func (r *fakeRequestRepo) ListWithFilter(ctx context.Context, filter repository.RequestFilter) ([]domain.Request, error) {
	var result []domain.Request
	for _, stored := range r.byID {
		if stored.Deleted {
			continue
		}
		result = append(result, *stored)
	}
	return result, nil
}

func (r *fakeRequestRepo) ListDedupKeys(ctx context.Context) ([]string, error) {
	var keys []string
	for _, stored := range r.byID {
		if stored.Deleted {
			continue
		}
		keys = append(keys, domain.DedupKey(stored.PersonID, stored.SlaPolicyID, stored.RoleTagID, stored.SubmittedDate))
	}
	return keys, nil
}

func (r *fakeRequestRepo) ExistsByKey(ctx context.Context, personID, policyID, roleTagID string, submitted time.Time) (bool, error) {
	key := domain.DedupKey(personID, policyID, roleTagID, submitted)
	for _, stored := range r.byID {
		if stored.Deleted {
			continue
		}
		if domain.DedupKey(stored.PersonID, stored.SlaPolicyID, stored.RoleTagID, stored.SubmittedDate) == key {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRequestRepo) SoftDelete(ctx context.Context, id string) error {
	stored, ok := r.byID[id]
	if !ok || stored.Deleted {
		return pgx.ErrNoRows
	}
	stored.Deleted = true
	return nil
}

type fakePolicyRepo struct {
	seq  int
	byID map[string]*domain.SlaPolicy
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{byID: map[string]*domain.SlaPolicy{}}
}

func (r *fakePolicyRepo) add(code string, thresholdDays int) *domain.SlaPolicy {
	policy := &domain.SlaPolicy{Code: code, ThresholdDays: thresholdDays, Active: true}
	if err := r.Create(context.Background(), policy); err != nil {
		panic(err)
	}
	return policy
}

func (r *fakePolicyRepo) Create(ctx context.Context, policy *domain.SlaPolicy) error {
	r.seq++
	policy.ID = fmt.Sprintf("pol-%d", r.seq)
	clone := *policy
	r.byID[policy.ID] = &clone
	return nil
}

func (r *fakePolicyRepo) GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error) {
	stored, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *fakePolicyRepo) FindByCode(ctx context.Context, code string) (*domain.SlaPolicy, error) {
	for _, stored := range r.byID {
		if stored.Code == code {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakePolicyRepo) List(ctx context.Context) ([]domain.SlaPolicy, error) {
	var result []domain.SlaPolicy
	for _, stored := range r.byID {
		result = append(result, *stored)
	}
	return result, nil
}

type fakePersonRepo struct {
	seq  int
	byID map[string]*domain.Person
}

func newFakePersonRepo() *fakePersonRepo {
	return &fakePersonRepo{byID: map[string]*domain.Person{}}
}

func (r *fakePersonRepo) add(fullName, documentID, email string) *domain.Person {
	person := &domain.Person{
		FullName:       fullName,
		DocumentID:     documentID,
		CorporateEmail: email,
		Status:         domain.PersonStatusActive,
	}
	if err := r.Create(context.Background(), person); err != nil {
		panic(err)
	}
	return person
}

func (r *fakePersonRepo) Create(ctx context.Context, person *domain.Person) error {
	r.seq++
	person.ID = fmt.Sprintf("per-%d", r.seq)
	clone := *person
	r.byID[person.ID] = &clone
	return nil
}

func (r *fakePersonRepo) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	stored, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *fakePersonRepo) FindByDocument(ctx context.Context, documentID string) (*domain.Person, error) {
	for _, stored := range r.byID {
		if stored.DocumentID == documentID {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakePersonRepo) List(ctx context.Context) ([]domain.Person, error) {
	var result []domain.Person
	for _, stored := range r.byID {
		result = append(result, *stored)
	}
	return result, nil
}

type fakeRoleTagRepo struct {
	seq  int
	byID map[string]*domain.RoleTag
}

func newFakeRoleTagRepo() *fakeRoleTagRepo {
	return &fakeRoleTagRepo{byID: map[string]*domain.RoleTag{}}
}

func (r *fakeRoleTagRepo) add(name, techBlock string) *domain.RoleTag {
	tag := &domain.RoleTag{Name: name, TechBlock: techBlock}
	if err := r.Create(context.Background(), tag); err != nil {
		panic(err)
	}
	return tag
}

func (r *fakeRoleTagRepo) Create(ctx context.Context, tag *domain.RoleTag) error {
	r.seq++
	tag.ID = fmt.Sprintf("tag-%d", r.seq)
	clone := *tag
	r.byID[tag.ID] = &clone
	return nil
}

func (r *fakeRoleTagRepo) GetByID(ctx context.Context, id string) (*domain.RoleTag, error) {
	stored, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *fakeRoleTagRepo) FindByName(ctx context.Context, name string) (*domain.RoleTag, error) {
	for _, stored := range r.byID {
		if stored.Name == name {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRoleTagRepo) List(ctx context.Context) ([]domain.RoleTag, error) {
	var result []domain.RoleTag
	for _, stored := range r.byID {
		result = append(result, *stored)
	}
	return result, nil
}

type fakeAlertRepo struct {
	seq    int
	alerts []*domain.Alert
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{}
}

func (r *fakeAlertRepo) Create(ctx context.Context, alert *domain.Alert) error {
	r.seq++
	alert.ID = fmt.Sprintf("alr-%d", r.seq)
	alert.CreatedAt = time.Now()
	alert.UpdatedAt = alert.CreatedAt
	clone := *alert
	r.alerts = append(r.alerts, &clone)
	return nil
}

func (r *fakeAlertRepo) Update(ctx context.Context, alert *domain.Alert) error {
	for i, stored := range r.alerts {
		if stored.ID == alert.ID {
			clone := *alert
			r.alerts[i] = &clone
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeAlertRepo) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	for _, stored := range r.alerts {
		if stored.ID == id {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAlertRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.Alert, error) {
	var result []domain.Alert
	for _, stored := range r.alerts {
		if stored.RequestID == requestID && stored.Status != domain.AlertStatusEliminada {
			result = append(result, *stored)
		}
	}
	return result, nil
}

func (r *fakeAlertRepo) FindByRequestAndKind(ctx context.Context, requestID string, kind domain.AlertKind) (*domain.Alert, error) {
	for i := len(r.alerts) - 1; i >= 0; i-- {
		stored := r.alerts[i]
		if stored.RequestID == requestID && stored.Kind == kind && stored.Status != domain.AlertStatusEliminada {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// sentMail records one fakeNotifier delivery.
type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeNotifier struct {
	sent    []sentMail
	failing bool
}

func (n *fakeNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	if n.failing {
		return errors.New("smtp unreachable")
	}
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}
