package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPair(t *testing.T) {
	a, b := CanonicalPair(7, 3)
	assert.Equal(t, int64(3), a)
	assert.Equal(t, int64(7), b)

	a, b = CanonicalPair(3, 7)
	assert.Equal(t, int64(3), a)
	assert.Equal(t, int64(7), b)
}

func TestNewFriendship(t *testing.T) {
	f, err := NewFriendship(42, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.UserID)
	assert.Equal(t, int64(42), f.FriendID)

	_, err = NewFriendship(5, 5)
	assert.ErrorIs(t, err, ErrSelfFriendship)
}

func TestFriendship_OtherUser(t *testing.T) {
	f, err := NewFriendship(3, 9)
	require.NoError(t, err)

	assert.Equal(t, int64(9), f.OtherUser(3))
	assert.Equal(t, int64(3), f.OtherUser(9))
}

func TestNewFriendRequest(t *testing.T) {
	r, err := NewFriendRequest(1, 2)
	require.NoError(t, err)
	assert.Equal(t, RequestPending, r.Status)
	assert.True(t, r.IsPending())

	_, err = NewFriendRequest(1, 1)
	assert.ErrorIs(t, err, ErrSelfFriendship)
}

func TestFriendRequest_IsPending(t *testing.T) {
	r, err := NewFriendRequest(1, 2)
	require.NoError(t, err)

	r.Status = RequestRejected
	assert.False(t, r.IsPending())

	r.Status = RequestPending
	now := time.Now().UTC()
	r.DeletedAt = &now
	assert.False(t, r.IsPending(), "soft-delete annule la demande")
}
