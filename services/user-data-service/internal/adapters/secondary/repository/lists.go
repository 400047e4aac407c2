package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
)

type PostgresListRepository struct {
	db *pgxpool.Pool
}

func NewPostgresListRepository(db *pgxpool.Pool) *PostgresListRepository {
	return &PostgresListRepository{db: db}
}

const listColumns = `l.id, l.user_id, l.name, l.description, l.type, l.is_public, l.created_at, l.updated_at,
	(SELECT COUNT(*) FROM list_items li WHERE li.list_id = l.id)`

func scanList(row pgx.Row) (*domain.List, error) {
	var l domain.List
	var listType string
	var description *string
	err := row.Scan(&l.ID, &l.UserID, &l.Name, &description, &listType, &l.IsPublic,
		&l.CreatedAt, &l.UpdatedAt, &l.ItemCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrListNotFound
		}
		return nil, fmt.Errorf("scan list: %w", err)
	}
	l.Type = domain.ListType(listType)
	if description != nil {
		l.Description = *description
	}
	return &l, nil
}

func collectLists(rows pgx.Rows) ([]*domain.List, error) {
	defer rows.Close()
	var out []*domain.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PostgresListRepository) Save(ctx context.Context, l *domain.List) error {
	var description *string
	if l.Description != "" {
		description = &l.Description
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO lists (user_id, name, description, type, is_public, created_at, updated_at)
		VALUES (@user_id, @name, @description, @type, @is_public, @created_at, @updated_at)
		RETURNING id`, pgx.NamedArgs{
		"user_id":     l.UserID,
		"name":        l.Name,
		"description": description,
		"type":        string(l.Type),
		"is_public":   l.IsPublic,
		"created_at":  l.CreatedAt,
		"updated_at":  l.UpdatedAt,
	}).Scan(&l.ID)
	if err != nil {
		// Index partiel : une seule liste système de chaque type par utilisateur
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateList
		}
		return fmt.Errorf("insert list: %w", err)
	}
	return nil
}

func (r *PostgresListRepository) Update(ctx context.Context, l *domain.List) error {
	var description *string
	if l.Description != "" {
		description = &l.Description
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE lists
		SET name = @name, description = @description, is_public = @is_public, updated_at = @updated_at
		WHERE id = @id`, pgx.NamedArgs{
		"id":          l.ID,
		"name":        l.Name,
		"description": description,
		"is_public":   l.IsPublic,
		"updated_at":  l.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("update list: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListNotFound
	}
	return nil
}

func (r *PostgresListRepository) Delete(ctx context.Context, id int64) error {
	// Soft delete : la ligne reste en base, les lectures filtrent sur deleted_at
	tag, err := r.db.Exec(ctx, `
		UPDATE lists SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListNotFound
	}
	return nil
}

func (r *PostgresListRepository) GetByID(ctx context.Context, id int64) (*domain.List, error) {
	query := `SELECT ` + listColumns + ` FROM lists l WHERE l.id = $1 AND l.deleted_at IS NULL`
	return scanList(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresListRepository) GetByUser(ctx context.Context, userID int64, publicOnly bool) ([]*domain.List, error) {
	query := `SELECT ` + listColumns + ` FROM lists l WHERE l.user_id = @user_id AND l.deleted_at IS NULL`
	args := pgx.NamedArgs{"user_id": userID}
	if publicOnly {
		query += ` AND l.is_public = TRUE`
	}
	query += ` ORDER BY l.type DESC, l.created_at`

	rows, err := r.db.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	return collectLists(rows)
}

func (r *PostgresListRepository) GetDefaultList(ctx context.Context, userID int64, listType domain.ListType) (*domain.List, error) {
	query := `SELECT ` + listColumns + ` FROM lists l WHERE l.user_id = $1 AND l.type = $2 AND l.deleted_at IS NULL`
	return scanList(r.db.QueryRow(ctx, query, userID, string(listType)))
}

func (r *PostgresListRepository) GetRecentPublicByUsers(ctx context.Context, userIDs []int64, limit int) ([]*domain.List, error) {
	query := `
		SELECT ` + listColumns + `
		FROM lists l
		WHERE l.user_id = ANY($1) AND l.is_public = TRUE AND l.type = 'CUSTOM' AND l.deleted_at IS NULL
		ORDER BY l.created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent public lists: %w", err)
	}
	return collectLists(rows)
}

func (r *PostgresListRepository) AddItem(ctx context.Context, item *domain.ListItem) error {
	var note *string
	if item.Note != "" {
		note = &item.Note
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO list_items (list_id, book_id, position, note, added_at)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM list_items WHERE list_id = $1),
			$3, $4)
		RETURNING id, position`,
		item.ListID, item.BookID, note, item.AddedAt).Scan(&item.ID, &item.Position)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateListItem
		}
		return fmt.Errorf("insert list item: %w", err)
	}
	return nil
}

func (r *PostgresListRepository) RemoveItem(ctx context.Context, listID, bookID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM list_items WHERE list_id = $1 AND book_id = $2`, listID, bookID)
	if err != nil {
		return fmt.Errorf("delete list item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListItemNotFound
	}
	return nil
}

// ReorderItems : positions 1..n dans l'ordre des bookIDs, en une transaction.
func (r *PostgresListRepository) ReorderItems(ctx context.Context, listID int64, bookIDs []int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, bookID := range bookIDs {
		tag, err := tx.Exec(ctx, `
			UPDATE list_items SET position = $1
			WHERE list_id = $2 AND book_id = $3`, i+1, listID, bookID)
		if err != nil {
			return fmt.Errorf("reorder list item: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrListItemNotFound
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresListRepository) GetItems(ctx context.Context, listID int64) ([]*domain.ListItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, list_id, book_id, position, COALESCE(note, ''), added_at
		FROM list_items
		WHERE list_id = $1
		ORDER BY position`, listID)
	if err != nil {
		return nil, fmt.Errorf("query list items: %w", err)
	}
	defer rows.Close()

	var items []*domain.ListItem
	for rows.Next() {
		var item domain.ListItem
		if err := rows.Scan(&item.ID, &item.ListID, &item.BookID, &item.Position, &item.Note, &item.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
