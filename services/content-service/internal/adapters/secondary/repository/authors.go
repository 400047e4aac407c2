package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safegergis/tome/services/content-service/internal/core/domain"
)

type PostgresAuthorRepository struct {
	db *pgxpool.Pool
}

func NewPostgresAuthorRepository(db *pgxpool.Pool) *PostgresAuthorRepository {
	return &PostgresAuthorRepository{db: db}
}

func (r *PostgresAuthorRepository) GetByID(ctx context.Context, id int64) (*domain.Author, error) {
	var a domain.Author
	err := r.db.QueryRow(ctx, `
		SELECT id, name, COALESCE(bio, ''), COALESCE(image_url, ''), COALESCE(external_id, ''), created_at
		FROM authors WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.Bio, &a.ImageURL, &a.ExternalID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuthorNotFound
		}
		return nil, fmt.Errorf("get author: %w", err)
	}
	return &a, nil
}

func (r *PostgresAuthorRepository) Search(ctx context.Context, query string, limit, offset int) ([]*domain.Author, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, COALESCE(bio, ''), COALESCE(image_url, ''), COALESCE(external_id, ''), created_at
		FROM authors
		WHERE name ILIKE $1
		ORDER BY name
		LIMIT $2 OFFSET $3`, "%"+query+"%", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search authors: %w", err)
	}
	defer rows.Close()

	var out []*domain.Author
	for rows.Next() {
		var a domain.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Bio, &a.ImageURL, &a.ExternalID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
