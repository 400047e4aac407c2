package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
)

// --- Stubs en mémoire ---

type stubFriendshipRepo struct {
	nextID      int64
	requests    map[int64]*domain.FriendRequest
	friendships map[int64]*domain.Friendship

	// Erreur forcée sur les lectures, pour simuler une panne Postgres
	readErr error
}

func newStubFriendshipRepo() *stubFriendshipRepo {
	return &stubFriendshipRepo{
		nextID:      1,
		requests:    make(map[int64]*domain.FriendRequest),
		friendships: make(map[int64]*domain.Friendship),
	}
}

func (r *stubFriendshipRepo) CreateRequest(_ context.Context, req *domain.FriendRequest) error {
	for _, existing := range r.requests {
		if existing.IsPending() && existing.RequesterID == req.RequesterID && existing.AddresseeID == req.AddresseeID {
			return domain.ErrRequestPending
		}
	}
	req.ID = r.nextID
	r.nextID++
	r.requests[req.ID] = req
	return nil
}

func (r *stubFriendshipRepo) GetRequestByID(_ context.Context, id int64) (*domain.FriendRequest, error) {
	req, ok := r.requests[id]
	if !ok || req.DeletedAt != nil {
		return nil, domain.ErrRequestNotFound
	}
	return req, nil
}

func (r *stubFriendshipRepo) GetPendingBetween(_ context.Context, requesterID, addresseeID int64) (*domain.FriendRequest, error) {
	for _, req := range r.requests {
		if req.IsPending() && req.RequesterID == requesterID && req.AddresseeID == addresseeID {
			return req, nil
		}
	}
	return nil, domain.ErrRequestNotFound
}

func (r *stubFriendshipRepo) GetRejectedBetween(_ context.Context, requesterID, addresseeID int64) (*domain.FriendRequest, error) {
	for _, req := range r.requests {
		if req.Status == domain.RequestRejected && req.DeletedAt == nil &&
			req.RequesterID == requesterID && req.AddresseeID == addresseeID {
			return req, nil
		}
	}
	return nil, domain.ErrRequestNotFound
}

func (r *stubFriendshipRepo) UpdateRequestStatus(_ context.Context, id int64, status domain.RequestStatus) error {
	req, ok := r.requests[id]
	if !ok {
		return domain.ErrRequestNotFound
	}
	req.Status = status
	return nil
}

func (r *stubFriendshipRepo) SoftDeleteRequest(_ context.Context, id int64) error {
	req, ok := r.requests[id]
	if !ok {
		return domain.ErrRequestNotFound
	}
	now := time.Now().UTC()
	req.DeletedAt = &now
	return nil
}

func (r *stubFriendshipRepo) GetIncomingRequests(_ context.Context, userID int64) ([]*domain.FriendRequest, error) {
	var out []*domain.FriendRequest
	for _, req := range r.requests {
		if req.IsPending() && req.AddresseeID == userID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *stubFriendshipRepo) GetOutgoingRequests(_ context.Context, userID int64) ([]*domain.FriendRequest, error) {
	var out []*domain.FriendRequest
	for _, req := range r.requests {
		if req.IsPending() && req.RequesterID == userID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *stubFriendshipRepo) Accept(_ context.Context, request *domain.FriendRequest) (*domain.Friendship, error) {
	f, err := domain.NewFriendship(request.RequesterID, request.AddresseeID)
	if err != nil {
		return nil, err
	}
	for _, existing := range r.friendships {
		if existing.DeletedAt == nil && existing.UserID == f.UserID && existing.FriendID == f.FriendID {
			return nil, domain.ErrAlreadyFriends
		}
	}
	f.ID = r.nextID
	r.nextID++
	r.friendships[f.ID] = f

	now := time.Now().UTC()
	request.DeletedAt = &now
	return f, nil
}

func (r *stubFriendshipRepo) GetFriendshipBetween(_ context.Context, a, b int64) (*domain.Friendship, error) {
	if r.readErr != nil {
		return nil, r.readErr
	}
	userID, friendID := domain.CanonicalPair(a, b)
	for _, f := range r.friendships {
		if f.DeletedAt == nil && f.UserID == userID && f.FriendID == friendID {
			return f, nil
		}
	}
	return nil, domain.ErrFriendNotFound
}

func (r *stubFriendshipRepo) SoftDeleteFriendship(_ context.Context, id int64) error {
	f, ok := r.friendships[id]
	if !ok {
		return domain.ErrFriendNotFound
	}
	now := time.Now().UTC()
	f.DeletedAt = &now
	return nil
}

func (r *stubFriendshipRepo) GetFriendships(_ context.Context, userID int64) ([]*domain.Friendship, error) {
	var out []*domain.Friendship
	for _, f := range r.friendships {
		if f.DeletedAt == nil && (f.UserID == userID || f.FriendID == userID) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *stubFriendshipRepo) GetFriendIDs(_ context.Context, userID int64) ([]int64, error) {
	friendships, _ := r.GetFriendships(context.Background(), userID)
	ids := make([]int64, 0, len(friendships))
	for _, f := range friendships {
		ids = append(ids, f.OtherUser(userID))
	}
	return ids, nil
}

type stubUserClient struct {
	users map[int64]domain.UserSummary
}

func (c *stubUserClient) GetUsers(_ context.Context, ids []int64) (map[int64]domain.UserSummary, error) {
	out := make(map[int64]domain.UserSummary)
	for _, id := range ids {
		if u, ok := c.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func newFriendshipFixture() (*FriendshipService, *stubFriendshipRepo) {
	repo := newStubFriendshipRepo()
	users := &stubUserClient{users: map[int64]domain.UserSummary{
		1: {ID: 1, Username: "alice"},
		2: {ID: 2, Username: "bob"},
		3: {ID: 3, Username: "carol"},
	}}
	return NewFriendshipService(repo, users), repo
}

// --- Tests ---

func TestSendRequest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFriendshipFixture()

	request, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, request.Status)
}

func TestSendRequest_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("to self", func(t *testing.T) {
		svc, _ := newFriendshipFixture()
		_, err := svc.SendRequest(ctx, 1, 1)
		assert.ErrorIs(t, err, domain.ErrSelfFriendship)
	})

	t.Run("unknown addressee", func(t *testing.T) {
		svc, _ := newFriendshipFixture()
		_, err := svc.SendRequest(ctx, 1, 99)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("already pending", func(t *testing.T) {
		svc, _ := newFriendshipFixture()
		_, err := svc.SendRequest(ctx, 1, 2)
		require.NoError(t, err)

		_, err = svc.SendRequest(ctx, 1, 2)
		assert.ErrorIs(t, err, domain.ErrRequestPending)
	})

	t.Run("reverse request pending", func(t *testing.T) {
		svc, _ := newFriendshipFixture()
		_, err := svc.SendRequest(ctx, 2, 1)
		require.NoError(t, err)

		_, err = svc.SendRequest(ctx, 1, 2)
		assert.ErrorIs(t, err, domain.ErrReverseRequest)
	})

	t.Run("already friends", func(t *testing.T) {
		svc, _ := newFriendshipFixture()
		request, err := svc.SendRequest(ctx, 1, 2)
		require.NoError(t, err)
		_, err = svc.AcceptRequest(ctx, 2, request.ID)
		require.NoError(t, err)

		_, err = svc.SendRequest(ctx, 1, 2)
		assert.ErrorIs(t, err, domain.ErrAlreadyFriends)
	})
}

func TestSendRequest_RepoFailurePropagated(t *testing.T) {
	ctx := context.Background()
	svc, repo := newFriendshipFixture()

	// Une panne de lecture ne doit pas passer pour "pas encore amis"
	repo.readErr = errors.New("connection reset")
	_, err := svc.SendRequest(ctx, 1, 2)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAlreadyFriends)
	assert.ErrorContains(t, err, "connection reset")
}

func TestSendRequest_AfterRejection(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFriendshipFixture()

	first, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, svc.RejectRequest(ctx, 2, first.ID))

	// La demande rejetée ne bloque pas une nouvelle tentative
	second, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAcceptRequest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFriendshipFixture()

	request, err := svc.SendRequest(ctx, 2, 1)
	require.NoError(t, err)

	friendship, err := svc.AcceptRequest(ctx, 1, request.ID)
	require.NoError(t, err)
	// Paire canonique : plus petit ID en premier
	assert.Equal(t, int64(1), friendship.UserID)
	assert.Equal(t, int64(2), friendship.FriendID)
}

func TestAcceptRequest_OnlyAddressee(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFriendshipFixture()

	request, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	_, err = svc.AcceptRequest(ctx, 3, request.ID)
	assert.ErrorIs(t, err, domain.ErrNotAddressee)

	// Le requester lui-même ne peut pas accepter sa propre demande
	_, err = svc.AcceptRequest(ctx, 1, request.ID)
	assert.ErrorIs(t, err, domain.ErrNotAddressee)
}

func TestAcceptRequest_DoubleAccept(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFriendshipFixture()

	request, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	_, err = svc.AcceptRequest(ctx, 2, request.ID)
	require.NoError(t, err)

	_, err = svc.AcceptRequest(ctx, 2, request.ID)
	assert.ErrorIs(t, err, domain.ErrRequestNotFound)
}

func TestCancelRequest_OnlyRequester(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFriendshipFixture()

	request, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	err = svc.CancelRequest(ctx, 2, request.ID)
	assert.ErrorIs(t, err, domain.ErrNotRequester)

	require.NoError(t, svc.CancelRequest(ctx, 1, request.ID))

	// Annulée, elle libère la place pour une nouvelle demande
	_, err = svc.SendRequest(ctx, 1, 2)
	assert.NoError(t, err)
}

func TestUnfriend(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFriendshipFixture()

	request, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, 2, request.ID)
	require.NoError(t, err)

	// Symétrique : l'autre partie peut rompre
	require.NoError(t, svc.Unfriend(ctx, 2, 1))

	err = svc.Unfriend(ctx, 1, 2)
	assert.ErrorIs(t, err, domain.ErrFriendNotFound)
}

func TestGetFriendshipStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFriendshipFixture()

	status, err := svc.GetFriendshipStatus(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.StateNone, status.State)

	request, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	status, err = svc.GetFriendshipStatus(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePendingSent, status.State)
	require.NotNil(t, status.RequestID)
	assert.Equal(t, request.ID, *status.RequestID)

	status, err = svc.GetFriendshipStatus(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePendingReceived, status.State)

	_, err = svc.AcceptRequest(ctx, 2, request.ID)
	require.NoError(t, err)

	status, err = svc.GetFriendshipStatus(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFriends, status.State)
	assert.NotNil(t, status.FriendshipID)
}

func TestGetFriends_Enriched(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFriendshipFixture()

	request, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, 2, request.ID)
	require.NoError(t, err)

	friends, err := svc.GetFriends(ctx, 1)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].User.Username)
}
