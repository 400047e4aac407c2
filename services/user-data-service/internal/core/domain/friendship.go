package domain

import "time"

// RequestStatus : état d'une demande d'ami.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestRejected RequestStatus = "REJECTED"
)

// FriendRequest est une relation dirigée requester -> addressee.
// L'annulation passe par soft-delete ; le rejet par bascule de statut
// (l'historique est conservé jusqu'à une nouvelle demande).
type FriendRequest struct {
	ID          int64
	RequesterID int64
	AddresseeID int64
	Status      RequestStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

func NewFriendRequest(requesterID, addresseeID int64) (*FriendRequest, error) {
	if requesterID == addresseeID {
		return nil, ErrSelfFriendship
	}

	now := time.Now().UTC()
	return &FriendRequest{
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (r *FriendRequest) IsPending() bool {
	return r.Status == RequestPending && r.DeletedAt == nil
}

// Friendship : relation symétrique acceptée, stockée une seule fois avec
// la paire canonique (UserID < FriendID). Soft-delete à la rupture.
type Friendship struct {
	ID        int64
	UserID    int64
	FriendID  int64
	CreatedAt time.Time
	DeletedAt *time.Time
}

// NewFriendship canonise la paire : le plus petit ID est toujours UserID.
func NewFriendship(a, b int64) (*Friendship, error) {
	if a == b {
		return nil, ErrSelfFriendship
	}

	userID, friendID := CanonicalPair(a, b)
	return &Friendship{
		UserID:    userID,
		FriendID:  friendID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// CanonicalPair ordonne (a, b) avec le plus petit en premier.
func CanonicalPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// OtherUser retourne l'autre membre de la paire.
func (f *Friendship) OtherUser(userID int64) int64 {
	if f.UserID == userID {
		return f.FriendID
	}
	return f.UserID
}

// FriendshipState : résolution du statut entre deux utilisateurs,
// avec l'ID nécessaire à l'action correspondante.
type FriendshipState string

const (
	StateFriends         FriendshipState = "friends"
	StatePendingSent     FriendshipState = "pending_sent"
	StatePendingReceived FriendshipState = "pending_received"
	StateNone            FriendshipState = "none"
)

type FriendshipStatus struct {
	State FriendshipState
	// FriendshipID pour unfriend, RequestID pour accept/reject/cancel
	FriendshipID *int64
	RequestID    *int64
}
