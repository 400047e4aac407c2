package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"
)

// --- ERREURS DU DOMAINE ---
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrInvalidToken          = errors.New("invalid token")
	ErrInvalidEmail          = errors.New("invalid email format")
	ErrInvalidUsername       = errors.New("username must be at least 3 characters")
	ErrWeakPassword          = errors.New("password must be at least 8 characters with upper, lower and digit")
)

// --- ENTITÉ ---

type User struct {
	ID           int64 // BIGSERIAL, assigné par la DB au Save
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

// --- FACTORY (CONSTRUCTEUR) ---

// NewUser crée une nouvelle instance valide.
// C'est le SEUL moyen de créer un user proprement (validation des invariants).
// L'ID reste 0 jusqu'à l'insertion : la clé est une BIGSERIAL côté Postgres.
func NewUser(email, username, passwordHash, displayName string) (*User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(username)) < 3 {
		return nil, ErrInvalidUsername
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		// Sans nom affiché explicite, on retombe sur le username.
		displayName = strings.TrimSpace(username)
	}

	now := time.Now().UTC() // Toujours UTC
	return &User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Username:     strings.TrimSpace(username),
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// --- COMPORTEMENTS (MÉTHODES MÉTIER) ---

func (u *User) UpdatePassword(newHash string) {
	u.PasswordHash = newHash
	u.touch()
}

// UpdateProfile change les infos non-critiques (nom affiché, bio, avatar).
func (u *User) UpdateProfile(displayName, bio, avatarURL string) {
	u.DisplayName = strings.TrimSpace(displayName)
	u.Bio = strings.TrimSpace(bio)
	u.AvatarURL = strings.TrimSpace(avatarURL)
	u.touch()
}

func (u *User) touch() {
	u.UpdatedAt = time.Now().UTC()
}

// --- VALIDATEURS ---

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword applique la politique : 8+ caractères, une majuscule,
// une minuscule, un chiffre.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrWeakPassword
	}
	return nil
}
