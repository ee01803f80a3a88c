package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// RequestFilter captures listing parameters.
type RequestFilter struct {
	PersonID      *string
	SlaPolicyID   *string
	RoleTagID     *string
	States        []domain.LifecycleState
	SubmittedFrom *time.Time
	SubmittedTo   *time.Time
	Limit         int
	Offset        int
}

// RequestRepository encapsulates request persistence.
type RequestRepository interface {
	Create(ctx context.Context, request *domain.Request) error
	Update(ctx context.Context, request *domain.Request) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	ListOpen(ctx context.Context) ([]domain.Request, error)
	ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.Request, error)
	ListDedupKeys(ctx context.Context) ([]string, error)
	ExistsByKey(ctx context.Context, personID, policyID, roleTagID string, submitted time.Time) (bool, error)
	SoftDelete(ctx context.Context, id string) error
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `id, person_id, sla_policy_id, role_tag_id, created_by_user_id,
               submitted_date, closed_date, days_used, compliance_tag, state, summary,
               origin, deleted, created_at, updated_at`

func (r *requestRepository) Create(ctx context.Context, request *domain.Request) error {
	const query = `
        INSERT INTO requests (person_id, sla_policy_id, role_tag_id, created_by_user_id,
            submitted_date, closed_date, days_used, compliance_tag, state, summary, origin)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		request.PersonID,
		request.SlaPolicyID,
		request.RoleTagID,
		request.CreatedByUserID,
		request.SubmittedDate,
		request.ClosedDate,
		request.DaysUsed,
		request.ComplianceTag,
		request.State,
		request.Summary,
		request.Origin,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
}

func (r *requestRepository) Update(ctx context.Context, request *domain.Request) error {
	const query = `
        UPDATE requests SET closed_date=$1, days_used=$2, compliance_tag=$3, state=$4,
            summary=$5, origin=$6, updated_at=NOW()
        WHERE id=$7 AND deleted=FALSE`
	cmd, err := r.pool.Exec(ctx, query,
		request.ClosedDate,
		request.DaysUsed,
		request.ComplianceTag,
		request.State,
		request.Summary,
		request.Origin,
		request.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id=$1`, requestColumns)
	var request domain.Request
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&request.ID,
		&request.PersonID,
		&request.SlaPolicyID,
		&request.RoleTagID,
		&request.CreatedByUserID,
		&request.SubmittedDate,
		&request.ClosedDate,
		&request.DaysUsed,
		&request.ComplianceTag,
		&request.State,
		&request.Summary,
		&request.Origin,
		&request.Deleted,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *requestRepository) ListOpen(ctx context.Context) ([]domain.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE deleted=FALSE AND state != $1 ORDER BY submitted_date`, requestColumns)
	rows, err := r.pool.Query(ctx, query, domain.StateInactiva)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.Request, error) {
	base := fmt.Sprintf(`SELECT %s FROM requests`, requestColumns)
	clauses := []string{"deleted=FALSE"}
	args := []any{}

	if filter.PersonID != nil {
		args = append(args, *filter.PersonID)
		clauses = append(clauses, fmt.Sprintf("person_id=$%d", len(args)))
	}
	if filter.SlaPolicyID != nil {
		args = append(args, *filter.SlaPolicyID)
		clauses = append(clauses, fmt.Sprintf("sla_policy_id=$%d", len(args)))
	}
	if filter.RoleTagID != nil {
		args = append(args, *filter.RoleTagID)
		clauses = append(clauses, fmt.Sprintf("role_tag_id=$%d", len(args)))
	}
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SubmittedFrom != nil {
		args = append(args, *filter.SubmittedFrom)
		clauses = append(clauses, fmt.Sprintf("submitted_date >= $%d", len(args)))
	}
	if filter.SubmittedTo != nil {
		args = append(args, *filter.SubmittedTo)
		clauses = append(clauses, fmt.Sprintf("submitted_date <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY submitted_date DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) ListDedupKeys(ctx context.Context) ([]string, error) {
	const query = `
        SELECT person_id, sla_policy_id, role_tag_id, submitted_date
        FROM requests WHERE deleted=FALSE`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var personID, policyID, roleTagID string
		var submitted time.Time
		if err := rows.Scan(&personID, &policyID, &roleTagID, &submitted); err != nil {
			return nil, err
		}
		keys = append(keys, domain.DedupKey(personID, policyID, roleTagID, submitted))
	}
	return keys, rows.Err()
}

func (r *requestRepository) ExistsByKey(ctx context.Context, personID, policyID, roleTagID string, submitted time.Time) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM requests
            WHERE person_id=$1 AND sla_policy_id=$2 AND role_tag_id=$3
              AND submitted_date=$4 AND deleted=FALSE
        )`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, personID, policyID, roleTagID, submitted).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *requestRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE requests SET deleted=TRUE, updated_at=NOW() WHERE id=$1 AND deleted=FALSE`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanRequests(rows pgx.Rows) ([]domain.Request, error) {
	var result []domain.Request
	for rows.Next() {
		var request domain.Request
		if err := rows.Scan(
			&request.ID,
			&request.PersonID,
			&request.SlaPolicyID,
			&request.RoleTagID,
			&request.CreatedByUserID,
			&request.SubmittedDate,
			&request.ClosedDate,
			&request.DaysUsed,
			&request.ComplianceTag,
			&request.State,
			&request.Summary,
			&request.Origin,
			&request.Deleted,
			&request.CreatedAt,
			&request.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, request)
	}
	return result, rows.Err()
}
