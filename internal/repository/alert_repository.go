package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// AlertRepository encapsulates alert persistence.
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.Alert) error
	Update(ctx context.Context, alert *domain.Alert) error
	GetByID(ctx context.Context, id string) (*domain.Alert, error)
	ListByRequest(ctx context.Context, requestID string) ([]domain.Alert, error)
	FindByRequestAndKind(ctx context.Context, requestID string, kind domain.AlertKind) (*domain.Alert, error)
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository instantiates repository.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

func (r *alertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	const query = `
        INSERT INTO alerts (request_id, kind, level, message, status, email_sent)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		alert.RequestID,
		alert.Kind,
		alert.Level,
		alert.Message,
		alert.Status,
		alert.EmailSent,
	).Scan(&alert.ID, &alert.CreatedAt, &alert.UpdatedAt)
}

func (r *alertRepository) Update(ctx context.Context, alert *domain.Alert) error {
	const query = `
        UPDATE alerts SET level=$1, message=$2, status=$3, email_sent=$4, read_at=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		alert.Level,
		alert.Message,
		alert.Status,
		alert.EmailSent,
		alert.ReadAt,
		alert.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *alertRepository) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	const query = `
        SELECT id, request_id, kind, level, message, status, email_sent, created_at, read_at, updated_at
        FROM alerts WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *alertRepository) FindByRequestAndKind(ctx context.Context, requestID string, kind domain.AlertKind) (*domain.Alert, error) {
	const query = `
        SELECT id, request_id, kind, level, message, status, email_sent, created_at, read_at, updated_at
        FROM alerts WHERE request_id=$1 AND kind=$2 AND status != $3
        ORDER BY created_at DESC LIMIT 1`
	var alert domain.Alert
	if err := r.pool.QueryRow(ctx, query, requestID, kind, domain.AlertStatusEliminada).Scan(
		&alert.ID,
		&alert.RequestID,
		&alert.Kind,
		&alert.Level,
		&alert.Message,
		&alert.Status,
		&alert.EmailSent,
		&alert.CreatedAt,
		&alert.ReadAt,
		&alert.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Alert, error) {
	var alert domain.Alert
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&alert.ID,
		&alert.RequestID,
		&alert.Kind,
		&alert.Level,
		&alert.Message,
		&alert.Status,
		&alert.EmailSent,
		&alert.CreatedAt,
		&alert.ReadAt,
		&alert.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.Alert, error) {
	const query = `
        SELECT id, request_id, kind, level, message, status, email_sent, created_at, read_at, updated_at
        FROM alerts WHERE request_id=$1 AND status != $2 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, requestID, domain.AlertStatusEliminada)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Alert
	for rows.Next() {
		var alert domain.Alert
		if err := rows.Scan(
			&alert.ID,
			&alert.RequestID,
			&alert.Kind,
			&alert.Level,
			&alert.Message,
			&alert.Status,
			&alert.EmailSent,
			&alert.CreatedAt,
			&alert.ReadAt,
			&alert.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, alert)
	}
	return result, rows.Err()
}
