package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// PersonRepository encapsulates responsible-party persistence.
type PersonRepository interface {
	Create(ctx context.Context, person *domain.Person) error
	GetByID(ctx context.Context, id string) (*domain.Person, error)
	FindByDocument(ctx context.Context, documentID string) (*domain.Person, error)
	List(ctx context.Context) ([]domain.Person, error)
}

type personRepository struct {
	pool *pgxpool.Pool
}

// NewPersonRepository instantiates repository.
func NewPersonRepository(pool *pgxpool.Pool) PersonRepository {
	return &personRepository{pool: pool}
}

func (r *personRepository) Create(ctx context.Context, person *domain.Person) error {
	const query = `
        INSERT INTO persons (full_name, document_id, corporate_email, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		person.FullName,
		person.DocumentID,
		person.CorporateEmail,
		person.Status,
	).Scan(&person.ID, &person.CreatedAt, &person.UpdatedAt)
}

func (r *personRepository) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	const query = `
        SELECT id, full_name, document_id, corporate_email, status, created_at, updated_at
        FROM persons WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *personRepository) FindByDocument(ctx context.Context, documentID string) (*domain.Person, error) {
	const query = `
        SELECT id, full_name, document_id, corporate_email, status, created_at, updated_at
        FROM persons WHERE document_id=$1`
	return r.fetchSingle(ctx, query, documentID)
}

func (r *personRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Person, error) {
	var person domain.Person
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&person.ID,
		&person.FullName,
		&person.DocumentID,
		&person.CorporateEmail,
		&person.Status,
		&person.CreatedAt,
		&person.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *personRepository) List(ctx context.Context) ([]domain.Person, error) {
	const query = `
        SELECT id, full_name, document_id, corporate_email, status, created_at, updated_at
        FROM persons ORDER BY full_name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Person
	for rows.Next() {
		var person domain.Person
		if err := rows.Scan(
			&person.ID,
			&person.FullName,
			&person.DocumentID,
			&person.CorporateEmail,
			&person.Status,
			&person.CreatedAt,
			&person.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, person)
	}
	return result, rows.Err()
}
