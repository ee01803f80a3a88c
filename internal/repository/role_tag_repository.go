package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// RoleTagRepository encapsulates role tag persistence.
type RoleTagRepository interface {
	Create(ctx context.Context, tag *domain.RoleTag) error
	GetByID(ctx context.Context, id string) (*domain.RoleTag, error)
	FindByName(ctx context.Context, name string) (*domain.RoleTag, error)
	List(ctx context.Context) ([]domain.RoleTag, error)
}

type roleTagRepository struct {
	pool *pgxpool.Pool
}

// NewRoleTagRepository instantiates repository.
func NewRoleTagRepository(pool *pgxpool.Pool) RoleTagRepository {
	return &roleTagRepository{pool: pool}
}

func (r *roleTagRepository) Create(ctx context.Context, tag *domain.RoleTag) error {
	const query = `
        INSERT INTO role_tags (name, tech_block, description)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		tag.Name,
		tag.TechBlock,
		tag.Description,
	).Scan(&tag.ID, &tag.CreatedAt, &tag.UpdatedAt)
}

func (r *roleTagRepository) GetByID(ctx context.Context, id string) (*domain.RoleTag, error) {
	const query = `
        SELECT id, name, tech_block, description, created_at, updated_at
        FROM role_tags WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *roleTagRepository) FindByName(ctx context.Context, name string) (*domain.RoleTag, error) {
	const query = `
        SELECT id, name, tech_block, description, created_at, updated_at
        FROM role_tags WHERE name=$1`
	return r.fetchSingle(ctx, query, name)
}

func (r *roleTagRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.RoleTag, error) {
	var tag domain.RoleTag
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&tag.ID,
		&tag.Name,
		&tag.TechBlock,
		&tag.Description,
		&tag.CreatedAt,
		&tag.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *roleTagRepository) List(ctx context.Context) ([]domain.RoleTag, error) {
	const query = `
        SELECT id, name, tech_block, description, created_at, updated_at
        FROM role_tags ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RoleTag
	for rows.Next() {
		var tag domain.RoleTag
		if err := rows.Scan(
			&tag.ID,
			&tag.Name,
			&tag.TechBlock,
			&tag.Description,
			&tag.CreatedAt,
			&tag.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, tag)
	}
	return result, rows.Err()
}
