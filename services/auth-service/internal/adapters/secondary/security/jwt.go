package security

import (
	"crypto/rsa"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/safegergis/tome/services/auth-service/internal/core/domain"
)

// JwtProvider implémente ports.TokenProvider avec des clés RSA (RS256).
// Les clés asymétriques permettent aux autres services de valider les tokens
// sans connaître le secret de signature.
type JwtProvider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewJwtProvider(privateKeyPath, publicKeyPath string) (*JwtProvider, error) {
	privBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	pubBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	return &JwtProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
	}, nil
}

// NewJwtValidator construit un provider en lecture seule (clé publique uniquement).
// Utilisé par les services qui valident des tokens sans en émettre.
func NewJwtValidator(publicKeyPath string) (*JwtProvider, error) {
	pubBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	return &JwtProvider{publicKey: publicKey}, nil
}

func (p *JwtProvider) GenerateTokens(user *domain.User) (string, string, error) {
	now := time.Now()

	accessClaims := jwt.MapClaims{
		"sub":      strconv.FormatInt(user.ID, 10),
		"username": user.Username,
		"iss":      "tome-auth",
		"iat":      now.Unix(),
		"exp":      now.Add(p.accessTTL).Unix(),
		"type":     "access",
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodRS256, accessClaims).SignedString(p.privateKey)
	if err != nil {
		return "", "", fmt.Errorf("signing access token: %w", err)
	}

	refreshClaims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.ID, 10),
		"iss":  "tome-auth",
		"iat":  now.Unix(),
		"exp":  now.Add(p.refreshTTL).Unix(),
		"type": "refresh",
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodRS256, refreshClaims).SignedString(p.privateKey)
	if err != nil {
		return "", "", fmt.Errorf("signing refresh token: %w", err)
	}

	return access, refresh, nil
}

// Validate vérifie un access token. Un refresh token, même signé et non
// expiré, est refusé : les deux usages ne sont pas interchangeables.
func (p *JwtProvider) Validate(tokenString string) (int64, error) {
	return p.validate(tokenString, "access")
}

// ValidateRefresh vérifie un refresh token pour la rotation.
func (p *JwtProvider) ValidateRefresh(tokenString string) (int64, error) {
	return p.validate(tokenString, "refresh")
}

func (p *JwtProvider) validate(tokenString, wantType string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.publicKey, nil
	}, jwt.WithIssuer("tome-auth"), jwt.WithExpirationRequired())
	if err != nil {
		return 0, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, domain.ErrInvalidToken
	}
	if tokenType, _ := claims["type"].(string); tokenType != wantType {
		return 0, domain.ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, domain.ErrInvalidToken
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidToken
	}

	return userID, nil
}
