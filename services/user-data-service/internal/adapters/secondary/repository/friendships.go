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

type PostgresFriendshipRepository struct {
	db *pgxpool.Pool
}

func NewPostgresFriendshipRepository(db *pgxpool.Pool) *PostgresFriendshipRepository {
	return &PostgresFriendshipRepository{db: db}
}

const requestColumns = `id, requester_id, addressee_id, status, created_at, updated_at, deleted_at`

func scanRequest(row pgx.Row) (*domain.FriendRequest, error) {
	var r domain.FriendRequest
	var status string
	err := row.Scan(&r.ID, &r.RequesterID, &r.AddresseeID, &status, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("scan friend request: %w", err)
	}
	r.Status = domain.RequestStatus(status)
	return &r, nil
}

func (repo *PostgresFriendshipRepository) CreateRequest(ctx context.Context, r *domain.FriendRequest) error {
	err := repo.db.QueryRow(ctx, `
		INSERT INTO friend_requests (requester_id, addressee_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		r.RequesterID, r.AddresseeID, string(r.Status), r.CreatedAt, r.UpdatedAt).Scan(&r.ID)
	if err != nil {
		// Index partiel : une seule demande PENDING par paire orientée
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrRequestPending
		}
		return fmt.Errorf("insert friend request: %w", err)
	}
	return nil
}

func (repo *PostgresFriendshipRepository) GetRequestByID(ctx context.Context, id int64) (*domain.FriendRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM friend_requests WHERE id = $1 AND deleted_at IS NULL`
	return scanRequest(repo.db.QueryRow(ctx, query, id))
}

func (repo *PostgresFriendshipRepository) GetPendingBetween(ctx context.Context, requesterID, addresseeID int64) (*domain.FriendRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM friend_requests
		WHERE requester_id = $1 AND addressee_id = $2 AND status = 'PENDING' AND deleted_at IS NULL`
	return scanRequest(repo.db.QueryRow(ctx, query, requesterID, addresseeID))
}

func (repo *PostgresFriendshipRepository) GetRejectedBetween(ctx context.Context, requesterID, addresseeID int64) (*domain.FriendRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM friend_requests
		WHERE requester_id = $1 AND addressee_id = $2 AND status = 'REJECTED' AND deleted_at IS NULL`
	return scanRequest(repo.db.QueryRow(ctx, query, requesterID, addresseeID))
}

func (repo *PostgresFriendshipRepository) UpdateRequestStatus(ctx context.Context, id int64, status domain.RequestStatus) error {
	tag, err := repo.db.Exec(ctx, `
		UPDATE friend_requests SET status = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, string(status))
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

func (repo *PostgresFriendshipRepository) SoftDeleteRequest(ctx context.Context, id int64) error {
	tag, err := repo.db.Exec(ctx, `
		UPDATE friend_requests SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

func (repo *PostgresFriendshipRepository) GetIncomingRequests(ctx context.Context, userID int64) ([]*domain.FriendRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM friend_requests
		WHERE addressee_id = $1 AND status = 'PENDING' AND deleted_at IS NULL
		ORDER BY created_at DESC`
	return repo.collectRequests(ctx, query, userID)
}

func (repo *PostgresFriendshipRepository) GetOutgoingRequests(ctx context.Context, userID int64) ([]*domain.FriendRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM friend_requests
		WHERE requester_id = $1 AND status = 'PENDING' AND deleted_at IS NULL
		ORDER BY created_at DESC`
	return repo.collectRequests(ctx, query, userID)
}

func (repo *PostgresFriendshipRepository) collectRequests(ctx context.Context, query string, userID int64) ([]*domain.FriendRequest, error) {
	rows, err := repo.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query friend requests: %w", err)
	}
	defer rows.Close()

	var out []*domain.FriendRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Accept : création de l'amitié canonique + soft-delete de la demande,
// atomiques dans une seule transaction.
func (repo *PostgresFriendshipRepository) Accept(ctx context.Context, request *domain.FriendRequest) (*domain.Friendship, error) {
	friendship, err := domain.NewFriendship(request.RequesterID, request.AddresseeID)
	if err != nil {
		return nil, err
	}

	tx, err := repo.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO friendships (user_id, friend_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`,
		friendship.UserID, friendship.FriendID, friendship.CreatedAt).Scan(&friendship.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyFriends
		}
		return nil, fmt.Errorf("insert friendship: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE friend_requests SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, request.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Accepté en parallèle par une autre requête
		return nil, domain.ErrRequestNotPending
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return friendship, nil
}

func (repo *PostgresFriendshipRepository) GetFriendshipBetween(ctx context.Context, a, b int64) (*domain.Friendship, error) {
	userID, friendID := domain.CanonicalPair(a, b)

	var f domain.Friendship
	err := repo.db.QueryRow(ctx, `
		SELECT id, user_id, friend_id, created_at, deleted_at
		FROM friendships
		WHERE user_id = $1 AND friend_id = $2 AND deleted_at IS NULL`,
		userID, friendID).Scan(&f.ID, &f.UserID, &f.FriendID, &f.CreatedAt, &f.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFriendNotFound
		}
		return nil, fmt.Errorf("query friendship: %w", err)
	}
	return &f, nil
}

func (repo *PostgresFriendshipRepository) SoftDeleteFriendship(ctx context.Context, id int64) error {
	tag, err := repo.db.Exec(ctx, `
		UPDATE friendships SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete friendship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFriendNotFound
	}
	return nil
}

func (repo *PostgresFriendshipRepository) GetFriendships(ctx context.Context, userID int64) ([]*domain.Friendship, error) {
	rows, err := repo.db.Query(ctx, `
		SELECT id, user_id, friend_id, created_at, deleted_at
		FROM friendships
		WHERE (user_id = $1 OR friend_id = $1) AND deleted_at IS NULL
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query friendships: %w", err)
	}
	defer rows.Close()

	var out []*domain.Friendship
	for rows.Next() {
		var f domain.Friendship
		if err := rows.Scan(&f.ID, &f.UserID, &f.FriendID, &f.CreatedAt, &f.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (repo *PostgresFriendshipRepository) GetFriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := repo.db.Query(ctx, `
		SELECT CASE WHEN user_id = $1 THEN friend_id ELSE user_id END
		FROM friendships
		WHERE (user_id = $1 OR friend_id = $1) AND deleted_at IS NULL`, userID)
	if err != nil {
		return nil, fmt.Errorf("query friend ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
