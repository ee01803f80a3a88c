package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// SlaPolicyRepository encapsulates SLA policy persistence.
type SlaPolicyRepository interface {
	Create(ctx context.Context, policy *domain.SlaPolicy) error
	GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error)
	FindByCode(ctx context.Context, code string) (*domain.SlaPolicy, error)
	List(ctx context.Context) ([]domain.SlaPolicy, error)
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSlaPolicyRepository instantiates repository.
func NewSlaPolicyRepository(pool *pgxpool.Pool) SlaPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

func (r *slaPolicyRepository) Create(ctx context.Context, policy *domain.SlaPolicy) error {
	const query = `
        INSERT INTO sla_policies (code, threshold_days, request_type_tag, active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.Code,
		policy.ThresholdDays,
		policy.RequestTypeTag,
		policy.Active,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error) {
	const query = `
        SELECT id, code, threshold_days, request_type_tag, active, created_at, updated_at
        FROM sla_policies WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *slaPolicyRepository) FindByCode(ctx context.Context, code string) (*domain.SlaPolicy, error) {
	const query = `
        SELECT id, code, threshold_days, request_type_tag, active, created_at, updated_at
        FROM sla_policies WHERE code=$1`
	return r.fetchSingle(ctx, query, code)
}

func (r *slaPolicyRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.SlaPolicy, error) {
	var policy domain.SlaPolicy
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&policy.ID,
		&policy.Code,
		&policy.ThresholdDays,
		&policy.RequestTypeTag,
		&policy.Active,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *slaPolicyRepository) List(ctx context.Context) ([]domain.SlaPolicy, error) {
	const query = `
        SELECT id, code, threshold_days, request_type_tag, active, created_at, updated_at
        FROM sla_policies ORDER BY code`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SlaPolicy
	for rows.Next() {
		var policy domain.SlaPolicy
		if err := rows.Scan(
			&policy.ID,
			&policy.Code,
			&policy.ThresholdDays,
			&policy.RequestTypeTag,
			&policy.Active,
			&policy.CreatedAt,
			&policy.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}
