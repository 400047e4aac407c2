package services

import (
	"context"
	"errors"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

// FriendshipService implémente la machine à états des amitiés :
// none -> pending_sent/pending_received -> friends (ou retour à none).
type FriendshipService struct {
	friendships ports.FriendshipRepository
	users       ports.UserClient
}

func NewFriendshipService(friendships ports.FriendshipRepository, users ports.UserClient) *FriendshipService {
	return &FriendshipService{friendships: friendships, users: users}
}

// SendRequest vérifie, dans l'ordre : pas d'auto-demande, destinataire
// existant, pas déjà amis, pas de PENDING dans un sens ou l'autre. Une
// demande REJECTED antérieure est soft-deletée pour laisser place.
func (s *FriendshipService) SendRequest(ctx context.Context, requesterID, addresseeID int64) (*domain.FriendRequest, error) {
	if requesterID == addresseeID {
		return nil, domain.ErrSelfFriendship
	}

	// Le destinataire doit exister côté auth-service
	found, err := s.users.GetUsers(ctx, []int64{addresseeID})
	if err != nil {
		return nil, err
	}
	if _, ok := found[addresseeID]; !ok {
		return nil, domain.ErrUserNotFound
	}

	if _, err := s.friendships.GetFriendshipBetween(ctx, requesterID, addresseeID); err == nil {
		return nil, domain.ErrAlreadyFriends
	} else if !errors.Is(err, domain.ErrFriendNotFound) {
		return nil, err
	}

	// Sens inverse d'abord : le message d'erreur guide vers "accepter"
	if _, err := s.friendships.GetPendingBetween(ctx, addresseeID, requesterID); err == nil {
		return nil, domain.ErrReverseRequest
	} else if !errors.Is(err, domain.ErrRequestNotFound) {
		return nil, err
	}
	if _, err := s.friendships.GetPendingBetween(ctx, requesterID, addresseeID); err == nil {
		return nil, domain.ErrRequestPending
	} else if !errors.Is(err, domain.ErrRequestNotFound) {
		return nil, err
	}

	// Une demande rejetée par le passé n'empêche pas de retenter
	if rejected, err := s.friendships.GetRejectedBetween(ctx, requesterID, addresseeID); err == nil {
		if err := s.friendships.SoftDeleteRequest(ctx, rejected.ID); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, domain.ErrRequestNotFound) {
		return nil, err
	}

	request, err := domain.NewFriendRequest(requesterID, addresseeID)
	if err != nil {
		return nil, err
	}
	if err := s.friendships.CreateRequest(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// AcceptRequest : seul le destinataire, seulement depuis PENDING.
// La création de l'amitié et le soft-delete de la demande sont atomiques.
func (s *FriendshipService) AcceptRequest(ctx context.Context, addresseeID, requestID int64) (*domain.Friendship, error) {
	request, err := s.friendships.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.AddresseeID != addresseeID {
		return nil, domain.ErrNotAddressee
	}
	if !request.IsPending() {
		return nil, domain.ErrRequestNotPending
	}

	return s.friendships.Accept(ctx, request)
}

// RejectRequest bascule le statut sans soft-delete : l'historique reste
// jusqu'à ce qu'une nouvelle demande le remplace.
func (s *FriendshipService) RejectRequest(ctx context.Context, addresseeID, requestID int64) error {
	request, err := s.friendships.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.AddresseeID != addresseeID {
		return domain.ErrNotAddressee
	}
	if !request.IsPending() {
		return domain.ErrRequestNotPending
	}

	return s.friendships.UpdateRequestStatus(ctx, requestID, domain.RequestRejected)
}

func (s *FriendshipService) CancelRequest(ctx context.Context, requesterID, requestID int64) error {
	request, err := s.friendships.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.RequesterID != requesterID {
		return domain.ErrNotRequester
	}
	if !request.IsPending() {
		return domain.ErrRequestNotPending
	}

	return s.friendships.SoftDeleteRequest(ctx, requestID)
}

// Unfriend est symétrique : chaque partie peut rompre.
func (s *FriendshipService) Unfriend(ctx context.Context, userID, friendID int64) error {
	friendship, err := s.friendships.GetFriendshipBetween(ctx, userID, friendID)
	if err != nil {
		return err
	}
	return s.friendships.SoftDeleteFriendship(ctx, friendship.ID)
}

func (s *FriendshipService) GetFriends(ctx context.Context, userID int64) ([]ports.FriendView, error) {
	friendships, err := s.friendships.GetFriendships(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(friendships))
	for _, f := range friendships {
		ids = append(ids, f.OtherUser(userID))
	}

	profiles := s.enrichUsers(ctx, ids)

	views := make([]ports.FriendView, 0, len(friendships))
	for _, f := range friendships {
		views = append(views, ports.FriendView{
			FriendshipID: f.ID,
			User:         profiles[f.OtherUser(userID)],
			Since:        f.CreatedAt,
		})
	}
	return views, nil
}

func (s *FriendshipService) GetIncomingRequests(ctx context.Context, userID int64) ([]ports.RequestView, error) {
	requests, err := s.friendships.GetIncomingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.requestViews(ctx, requests, func(r *domain.FriendRequest) int64 { return r.RequesterID })
}

func (s *FriendshipService) GetOutgoingRequests(ctx context.Context, userID int64) ([]ports.RequestView, error) {
	requests, err := s.friendships.GetOutgoingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.requestViews(ctx, requests, func(r *domain.FriendRequest) int64 { return r.AddresseeID })
}

// GetFriendshipStatus résout dans l'ordre : amitié existante, demande
// sortante, demande entrante, rien.
func (s *FriendshipService) GetFriendshipStatus(ctx context.Context, userID, otherID int64) (*domain.FriendshipStatus, error) {
	if friendship, err := s.friendships.GetFriendshipBetween(ctx, userID, otherID); err == nil {
		return &domain.FriendshipStatus{State: domain.StateFriends, FriendshipID: &friendship.ID}, nil
	} else if !errors.Is(err, domain.ErrFriendNotFound) {
		return nil, err
	}

	if request, err := s.friendships.GetPendingBetween(ctx, userID, otherID); err == nil {
		return &domain.FriendshipStatus{State: domain.StatePendingSent, RequestID: &request.ID}, nil
	} else if !errors.Is(err, domain.ErrRequestNotFound) {
		return nil, err
	}

	if request, err := s.friendships.GetPendingBetween(ctx, otherID, userID); err == nil {
		return &domain.FriendshipStatus{State: domain.StatePendingReceived, RequestID: &request.ID}, nil
	} else if !errors.Is(err, domain.ErrRequestNotFound) {
		return nil, err
	}

	return &domain.FriendshipStatus{State: domain.StateNone}, nil
}

func (s *FriendshipService) requestViews(ctx context.Context, requests []*domain.FriendRequest, other func(*domain.FriendRequest) int64) ([]ports.RequestView, error) {
	ids := make([]int64, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, other(r))
	}

	profiles := s.enrichUsers(ctx, ids)

	views := make([]ports.RequestView, 0, len(requests))
	for _, r := range requests {
		views = append(views, ports.RequestView{
			Request: r,
			User:    profiles[other(r)],
		})
	}
	return views, nil
}

// enrichUsers : best effort, un auth-service indisponible ne casse pas la liste.
func (s *FriendshipService) enrichUsers(ctx context.Context, ids []int64) map[int64]domain.UserSummary {
	if len(ids) == 0 {
		return map[int64]domain.UserSummary{}
	}
	profiles, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return map[int64]domain.UserSummary{}
	}
	return profiles
}
