package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safegergis/tome/services/auth-service/internal/core/domain"
)

// PostgresUserRepository implémente ports.UserRepository (Secondary Adapter)
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// sqlUser est le DTO de persistance. On ne scanne jamais directement dans
// l'entité du domaine.
type sqlUser struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	DisplayName  string
	Bio          string
	AvatarURL    string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u sqlUser) toDomain() *domain.User {
	return &domain.User{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		DisplayName:  u.DisplayName,
		Bio:          u.Bio,
		AvatarURL:    u.AvatarURL,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

const userColumns = `id, email, username, password_hash, display_name, bio, avatar_url, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u sqlUser
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.DisplayName,
		&u.Bio, &u.AvatarURL, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u.toDomain(), nil
}

// Save insère l'utilisateur et remplit son ID (BIGSERIAL).
func (r *PostgresUserRepository) Save(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, display_name, bio, avatar_url, is_active, created_at, updated_at)
		VALUES (@email, @username, @password_hash, @display_name, @bio, @avatar_url, @is_active, @created_at, @updated_at)
		RETURNING id`

	args := pgx.NamedArgs{
		"email":         user.Email,
		"username":      user.Username,
		"password_hash": user.PasswordHash,
		"display_name":  user.DisplayName,
		"bio":           user.Bio,
		"avatar_url":    user.AvatarURL,
		"is_active":     user.IsActive,
		"created_at":    user.CreatedAt,
		"updated_at":    user.UpdatedAt,
	}

	err := r.db.QueryRow(ctx, query, args).Scan(&user.ID)
	if err != nil {
		// Traduction erreur technique -> erreur domaine.
		// 23505 = unique_violation ; le nom de la contrainte dit quel champ.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "username") {
				return domain.ErrUsernameAlreadyExists
			}
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active = TRUE`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND is_active = TRUE`
	return scanUser(r.db.QueryRow(ctx, query, strings.ToLower(email)))
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 AND is_active = TRUE`
	return scanUser(r.db.QueryRow(ctx, query, username))
}

func (r *PostgresUserRepository) GetByIDs(ctx context.Context, ids []int64) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) AND is_active = TRUE`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query users by ids: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Search : recherche insensible à la casse sur username et display_name.
func (r *PostgresUserRepository) Search(ctx context.Context, q string, limit int) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE is_active = TRUE AND (username ILIKE @pattern OR display_name ILIKE @pattern)
		ORDER BY username
		LIMIT @limit`

	rows, err := r.db.Query(ctx, query, pgx.NamedArgs{
		"pattern": "%" + q + "%",
		"limit":   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET password_hash = @password_hash,
		    display_name  = @display_name,
		    bio           = @bio,
		    avatar_url    = @avatar_url,
		    updated_at    = @updated_at
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, query, pgx.NamedArgs{
		"id":            user.ID,
		"password_hash": user.PasswordHash,
		"display_name":  user.DisplayName,
		"bio":           user.Bio,
		"avatar_url":    user.AvatarURL,
		"updated_at":    user.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
