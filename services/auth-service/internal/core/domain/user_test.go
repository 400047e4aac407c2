package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	tests := []struct {
		name        string
		email       string
		username    string
		displayName string
		wantErr     error
	}{
		{
			name:     "valid user",
			email:    "alice@example.com",
			username: "alice",
		},
		{
			name:        "display name defaults to username",
			email:       "bob@example.com",
			username:    "bob",
			displayName: "",
		},
		{
			name:     "invalid email",
			email:    "not-an-email",
			username: "alice",
			wantErr:  ErrInvalidEmail,
		},
		{
			name:     "empty email",
			email:    "",
			username: "alice",
			wantErr:  ErrInvalidEmail,
		},
		{
			name:     "username too short",
			email:    "alice@example.com",
			username: "al",
			wantErr:  ErrInvalidUsername,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := NewUser(tt.email, tt.username, "hash", tt.displayName)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(0), user.ID, "ID is assigned by the repository")
			assert.True(t, user.IsActive)
			assert.False(t, user.CreatedAt.IsZero())
			if tt.displayName == "" {
				assert.Equal(t, tt.username, user.DisplayName)
			}
		})
	}
}

func TestNewUser_LowercasesEmail(t *testing.T) {
	user, err := NewUser("Alice@Example.COM", "alice", "hash", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Str0ngPass", false},
		{"too short", "Ab1", true},
		{"no uppercase", "weakpass1", true},
		{"no lowercase", "WEAKPASS1", true},
		{"no digit", "WeakPassword", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrWeakPassword)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateProfile_TouchesUpdatedAt(t *testing.T) {
	user, err := NewUser("alice@example.com", "alice", "hash", "Alice")
	require.NoError(t, err)

	before := user.UpdatedAt
	user.UpdateProfile("Alice B.", "Reader of many tomes", "https://cdn.example.com/a.png")

	assert.Equal(t, "Alice B.", user.DisplayName)
	assert.Equal(t, "Reader of many tomes", user.Bio)
	assert.False(t, user.UpdatedAt.Before(before))
}
