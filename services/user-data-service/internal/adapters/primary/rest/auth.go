package rest

import (
	"crypto/rsa"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator valide un access token et retourne l'ID utilisateur.
type TokenValidator interface {
	Validate(token string) (int64, error)
}

// RSAValidator vérifie les tokens RS256 émis par auth-service avec la seule
// clé publique : ce service n'émet jamais de token.
type RSAValidator struct {
	publicKey *rsa.PublicKey
}

func NewRSAValidator(publicKeyPath string) (*RSAValidator, error) {
	pubBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	return &RSAValidator{publicKey: publicKey}, nil
}

func (v *RSAValidator) Validate(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.publicKey, nil
	}, jwt.WithIssuer("tome-auth"), jwt.WithExpirationRequired())
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid token claims")
	}

	// Seul un access token ouvre l'API, jamais un refresh token
	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return 0, fmt.Errorf("not an access token")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(sub, 10, 64)
}

func authMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, err := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// currentUser lit l'ID posé par le middleware.
func currentUser(c *gin.Context) int64 {
	return c.GetInt64("user_id")
}
