package ports

import (
	"context"

	"github.com/safegergis/tome/services/auth-service/internal/core/domain"
)

// --- PERSISTANCE (DB) ---

// UserRepository est un Port Secondaire (Driven).
// C'est le Service qui appelle le Repo pour sauvegarder/lire les données.
type UserRepository interface {
	Save(ctx context.Context, user *domain.User) error // Remplit user.ID (RETURNING id)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.User, error)
	Search(ctx context.Context, query string, limit int) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// --- MESSAGERIE (BROKER) ---

// EventPublisher est le port vers NATS.
// Il permet de notifier les autres services (user-data) qu'un événement a eu lieu.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, userID int64, email string) error
}

// --- SÉCURITÉ (CRYPTO) ---

// PasswordHasher abstrait l'algorithme de hachage (Argon2, Bcrypt)
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenProvider abstrait la génération de JWT.
// Validate n'accepte que les access tokens ; la rotation passe par
// ValidateRefresh, les deux revendications "type" étant distinctes.
type TokenProvider interface {
	GenerateTokens(user *domain.User) (access string, refresh string, err error)
	Validate(token string) (userID int64, err error)
	ValidateRefresh(token string) (userID int64, err error)
}
