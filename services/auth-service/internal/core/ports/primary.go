package ports

import (
	"context"
	"time"

	"github.com/safegergis/tome/services/auth-service/internal/core/domain"
)

// --- INPUTS (Command Pattern) ---
// Utiliser des structs permet d'ajouter des champs optionnels plus tard sans casser la signature.

type RegisterCmd struct {
	Email       string
	Password    string
	Username    string
	DisplayName string
}

type LoginCmd struct {
	Email    string
	Password string
	IP       string // Utile pour la sécurité / logs
	Device   string
}

type UpdateProfileCmd struct {
	UserID      int64
	DisplayName *string // Pointeur : nil = pas de changement
	Bio         *string
	AvatarURL   *string
}

// --- OUTPUTS ---

type AuthResponse struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// --- PORT PRIMAIRE (Driving) ---
// C'est l'API que l'Hexagone expose au monde extérieur (REST, CLI).

type IdentityService interface {
	// Authentification
	Register(ctx context.Context, cmd RegisterCmd) (*AuthResponse, error)
	Login(ctx context.Context, cmd LoginCmd) (*AuthResponse, error)

	// Token Management
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (int64, error) // Retourne le UserID

	// User Management
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	GetUsers(ctx context.Context, userIDs []int64) (map[int64]*domain.User, error) // Batch (service-to-service)
	SearchUsers(ctx context.Context, query string, limit int) ([]*domain.User, error)
	UpdateProfile(ctx context.Context, cmd UpdateProfileCmd) (*domain.User, error)
	ChangePassword(ctx context.Context, userID int64, oldPass, newPass string) error
}
