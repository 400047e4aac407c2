package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
)

type PostgresUserBookRepository struct {
	db *pgxpool.Pool
}

func NewPostgresUserBookRepository(db *pgxpool.Pool) *PostgresUserBookRepository {
	return &PostgresUserBookRepository{db: db}
}

type sqlUserBook struct {
	ID                  int64
	UserID              int64
	BookID              int64
	Status              string
	CurrentPage         int
	CurrentSeconds      int
	PageCountOverride   *int
	AudioLengthOverride *int
	Rating              *float64
	Review              *string
	StartedAt           *time.Time
	FinishedAt          *time.Time
	DNFDate             *time.Time
	DNFReason           *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (u sqlUserBook) toDomain() *domain.UserBook {
	ub := &domain.UserBook{
		ID:                  u.ID,
		UserID:              u.UserID,
		BookID:              u.BookID,
		Status:              domain.ReadingStatus(u.Status),
		CurrentPage:         u.CurrentPage,
		CurrentSeconds:      u.CurrentSeconds,
		PageCountOverride:   u.PageCountOverride,
		AudioLengthOverride: u.AudioLengthOverride,
		Rating:              u.Rating,
		StartedAt:           u.StartedAt,
		FinishedAt:          u.FinishedAt,
		DNFDate:             u.DNFDate,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
	if u.Review != nil {
		ub.Review = *u.Review
	}
	if u.DNFReason != nil {
		ub.DNFReason = *u.DNFReason
	}
	return ub
}

const userBookColumns = `id, user_id, book_id, status, current_page, current_seconds,
	page_count_override, audio_length_override, rating, review,
	started_at, finished_at, dnf_date, dnf_reason, created_at, updated_at`

func scanUserBook(row pgx.Row) (*domain.UserBook, error) {
	var u sqlUserBook
	err := row.Scan(&u.ID, &u.UserID, &u.BookID, &u.Status, &u.CurrentPage, &u.CurrentSeconds,
		&u.PageCountOverride, &u.AudioLengthOverride, &u.Rating, &u.Review,
		&u.StartedAt, &u.FinishedAt, &u.DNFDate, &u.DNFReason, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserBookNotFound
		}
		return nil, fmt.Errorf("scan user book: %w", err)
	}
	return u.toDomain(), nil
}

func (r *PostgresUserBookRepository) Save(ctx context.Context, ub *domain.UserBook) error {
	query := `
		INSERT INTO user_books (user_id, book_id, status, current_page, current_seconds,
			page_count_override, audio_length_override, rating, review,
			started_at, finished_at, dnf_date, dnf_reason, created_at, updated_at)
		VALUES (@user_id, @book_id, @status, @current_page, @current_seconds,
			@page_count_override, @audio_length_override, @rating, @review,
			@started_at, @finished_at, @dnf_date, @dnf_reason, @created_at, @updated_at)
		RETURNING id`

	err := r.db.QueryRow(ctx, query, r.args(ub)).Scan(&ub.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateUserBook
		}
		return fmt.Errorf("insert user book: %w", err)
	}
	return nil
}

func (r *PostgresUserBookRepository) Update(ctx context.Context, ub *domain.UserBook) error {
	query := `
		UPDATE user_books
		SET status = @status, current_page = @current_page, current_seconds = @current_seconds,
		    page_count_override = @page_count_override, audio_length_override = @audio_length_override,
		    rating = @rating, review = @review, started_at = @started_at,
		    finished_at = @finished_at, dnf_date = @dnf_date, dnf_reason = @dnf_reason,
		    updated_at = @updated_at
		WHERE id = @id`

	args := r.args(ub)
	args["id"] = ub.ID

	tag, err := r.db.Exec(ctx, query, args)
	if err != nil {
		return fmt.Errorf("update user book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserBookNotFound
	}
	return nil
}

func (r *PostgresUserBookRepository) args(ub *domain.UserBook) pgx.NamedArgs {
	var review, dnfReason *string
	if ub.Review != "" {
		review = &ub.Review
	}
	if ub.DNFReason != "" {
		dnfReason = &ub.DNFReason
	}
	return pgx.NamedArgs{
		"user_id":               ub.UserID,
		"book_id":               ub.BookID,
		"status":                string(ub.Status),
		"current_page":          ub.CurrentPage,
		"current_seconds":       ub.CurrentSeconds,
		"page_count_override":   ub.PageCountOverride,
		"audio_length_override": ub.AudioLengthOverride,
		"rating":                ub.Rating,
		"review":                review,
		"started_at":            ub.StartedAt,
		"finished_at":           ub.FinishedAt,
		"dnf_date":              ub.DNFDate,
		"dnf_reason":            dnfReason,
		"created_at":            ub.CreatedAt,
		"updated_at":            ub.UpdatedAt,
	}
}

func (r *PostgresUserBookRepository) GetByUserAndBook(ctx context.Context, userID, bookID int64) (*domain.UserBook, error) {
	query := `SELECT ` + userBookColumns + ` FROM user_books WHERE user_id = $1 AND book_id = $2`
	return scanUserBook(r.db.QueryRow(ctx, query, userID, bookID))
}

func (r *PostgresUserBookRepository) GetByUser(ctx context.Context, userID int64, status *domain.ReadingStatus, limit, offset int) ([]*domain.UserBook, error) {
	query := `SELECT ` + userBookColumns + ` FROM user_books WHERE user_id = @user_id`
	args := pgx.NamedArgs{"user_id": userID, "limit": limit, "offset": offset}

	if status != nil {
		query += ` AND status = @status`
		args["status"] = string(*status)
	}
	query += ` ORDER BY updated_at DESC LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("query shelf: %w", err)
	}
	defer rows.Close()

	var out []*domain.UserBook
	for rows.Next() {
		ub, err := scanUserBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ub)
	}
	return out, rows.Err()
}

func (r *PostgresUserBookRepository) CountByStatus(ctx context.Context, userID int64) (map[domain.ReadingStatus]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT status, COUNT(*) FROM user_books WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ReadingStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.ReadingStatus(status)] = count
	}
	return counts, rows.Err()
}

func (r *PostgresUserBookRepository) GetRecentlyFinished(ctx context.Context, userIDs []int64, limit int) ([]*domain.UserBook, error) {
	query := `
		SELECT ` + userBookColumns + `
		FROM user_books
		WHERE user_id = ANY($1) AND status = 'READ' AND finished_at IS NOT NULL
		ORDER BY finished_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("query recently finished: %w", err)
	}
	defer rows.Close()

	var out []*domain.UserBook
	for rows.Next() {
		ub, err := scanUserBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ub)
	}
	return out, rows.Err()
}
