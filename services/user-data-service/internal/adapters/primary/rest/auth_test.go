package rest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T) (*RSAValidator, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPath := filepath.Join(t.TempDir(), "public.pem")
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o600))

	validator, err := NewRSAValidator(pubPath)
	require.NoError(t, err)
	return validator, key
}

func signToken(t *testing.T, key *rsa.PrivateKey, tokenType string) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  "7",
		"iss":  "tome-auth",
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
		"type": tokenType,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestRSAValidator_AcceptsAccessToken(t *testing.T) {
	validator, key := newTestValidator(t)

	userID, err := validator.Validate(signToken(t, key, "access"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestRSAValidator_RejectsRefreshToken(t *testing.T) {
	validator, key := newTestValidator(t)

	// Même signature, même issuer : seule la revendication "type" diffère
	_, err := validator.Validate(signToken(t, key, "refresh"))
	assert.Error(t, err)
}

func TestRSAValidator_RejectsForeignSignature(t *testing.T) {
	validator, _ := newTestValidator(t)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	_, err = validator.Validate(signToken(t, otherKey, "access"))
	assert.Error(t, err)
}
