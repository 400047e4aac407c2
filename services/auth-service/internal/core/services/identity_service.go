package services

import (
	"context"
	"fmt"
	"time"

	"github.com/safegergis/tome/services/auth-service/internal/core/domain"
	"github.com/safegergis/tome/services/auth-service/internal/core/ports"
)

// IdentityService implémente ports.IdentityService (Primary Port)
// Il contient la logique applicative (Application Business Rules).
type IdentityService struct {
	repo          ports.UserRepository
	hasher        ports.PasswordHasher
	tokenProvider ports.TokenProvider
	broker        ports.EventPublisher
}

// NewIdentityService est le constructeur avec injection de dépendances.
func NewIdentityService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	token ports.TokenProvider,
	broker ports.EventPublisher,
) *IdentityService {
	return &IdentityService{
		repo:          repo,
		hasher:        hasher,
		tokenProvider: token,
		broker:        broker,
	}
}

// --- AUTHENTIFICATION ---

func (s *IdentityService) Register(ctx context.Context, cmd ports.RegisterCmd) (*ports.AuthResponse, error) {
	// 1. Politique de mot de passe AVANT tout le reste (pas de hash inutile)
	if err := domain.ValidatePassword(cmd.Password); err != nil {
		return nil, err
	}

	// 2. Fail Fast : unicité email/username.
	// Vérification "soft" ; la contrainte UNIQUE de la DB reste la sécurité ultime (race condition).
	if existing, err := s.repo.GetByEmail(ctx, cmd.Email); err == nil && existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	if existing, err := s.repo.GetByUsername(ctx, cmd.Username); err == nil && existing != nil {
		return nil, domain.ErrUsernameAlreadyExists
	}

	// 3. Sécurité : hachage du mot de passe
	hashedPassword, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing failed: %w", err)
	}

	// 4. Domaine : création de l'agrégat User (validation des invariants dans NewUser)
	user, err := domain.NewUser(cmd.Email, cmd.Username, hashedPassword, cmd.DisplayName)
	if err != nil {
		return nil, err
	}

	// 5. Persistance : le repo remplit user.ID (BIGSERIAL)
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("repository save failed: %w", err)
	}

	// 6. Side Effects : tokens + publication événement
	accessToken, refreshToken, err := s.tokenProvider.GenerateTokens(user)
	if err != nil {
		// User créé mais tokens échoués : le client devra retry le login.
		return nil, fmt.Errorf("token generation failed: %w", err)
	}

	// Publication best effort : on ne bloque pas l'inscription si le broker est down.
	_ = s.broker.PublishUserRegistered(ctx, user.ID, user.Email)

	return &ports.AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    15 * time.Minute,
	}, nil
}

func (s *IdentityService) Login(ctx context.Context, cmd ports.LoginCmd) (*ports.AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, cmd.Email)
	if err != nil {
		// Erreur générique : on ne révèle pas si c'est l'email ou le mdp qui est faux.
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, cmd.Password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.tokenProvider.GenerateTokens(user)
	if err != nil {
		return nil, fmt.Errorf("login token gen failed: %w", err)
	}

	return &ports.AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    15 * time.Minute,
	}, nil
}

// --- GESTION UTILISATEUR ---

func (s *IdentityService) UpdateProfile(ctx context.Context, cmd ports.UpdateProfileCmd) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	// Les pointeurs disent quels champs mettre à jour (nil = inchangé)
	displayName := user.DisplayName
	bio := user.Bio
	avatarURL := user.AvatarURL
	isUpdated := false

	if cmd.DisplayName != nil {
		displayName = *cmd.DisplayName
		isUpdated = true
	}
	if cmd.Bio != nil {
		bio = *cmd.Bio
		isUpdated = true
	}
	if cmd.AvatarURL != nil {
		avatarURL = *cmd.AvatarURL
		isUpdated = true
	}

	if isUpdated {
		user.UpdateProfile(displayName, bio, avatarURL)
		if err := s.repo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("update profile failed: %w", err)
		}
	}

	return user, nil
}

func (s *IdentityService) ChangePassword(ctx context.Context, userID int64, oldPass, newPass string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	if err := s.hasher.Compare(user.PasswordHash, oldPass); err != nil {
		return fmt.Errorf("old password incorrect: %w", domain.ErrInvalidCredentials)
	}

	if err := domain.ValidatePassword(newPass); err != nil {
		return err
	}

	newHash, err := s.hasher.Hash(newPass)
	if err != nil {
		return err
	}

	user.UpdatePassword(newHash)
	return s.repo.Update(ctx, user)
}

// --- TOKEN MANAGEMENT ---

func (s *IdentityService) ValidateToken(ctx context.Context, token string) (int64, error) {
	return s.tokenProvider.Validate(token)
}

func (s *IdentityService) RefreshToken(ctx context.Context, refreshToken string) (*ports.AuthResponse, error) {
	userID, err := s.tokenProvider.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	access, refresh, err := s.tokenProvider.GenerateTokens(user)
	if err != nil {
		return nil, fmt.Errorf("refresh token gen failed: %w", err)
	}

	return &ports.AuthResponse{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    15 * time.Minute,
	}, nil
}

// --- QUERIES ---

func (s *IdentityService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// GetUsers : batch fetch pour les autres services (enrichissement feed/friends).
func (s *IdentityService) GetUsers(ctx context.Context, userIDs []int64) (map[int64]*domain.User, error) {
	if len(userIDs) == 0 {
		return map[int64]*domain.User{}, nil
	}

	users, err := s.repo.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

func (s *IdentityService) SearchUsers(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.repo.Search(ctx, query, limit)
}
