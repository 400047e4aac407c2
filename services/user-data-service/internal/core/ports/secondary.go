package ports

import (
	"context"
	"time"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
)

// --- Persistance ---

type UserBookRepository interface {
	Save(ctx context.Context, ub *domain.UserBook) error
	Update(ctx context.Context, ub *domain.UserBook) error
	GetByUserAndBook(ctx context.Context, userID, bookID int64) (*domain.UserBook, error)
	GetByUser(ctx context.Context, userID int64, status *domain.ReadingStatus, limit, offset int) ([]*domain.UserBook, error)
	CountByStatus(ctx context.Context, userID int64) (map[domain.ReadingStatus]int, error)
	// GetRecentlyFinished : derniers livres passés en READ pour le fil d'activité.
	GetRecentlyFinished(ctx context.Context, userIDs []int64, limit int) ([]*domain.UserBook, error)
}

type SessionRepository interface {
	Save(ctx context.Context, s *domain.ReadingSession) error
	Update(ctx context.Context, s *domain.ReadingSession) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.ReadingSession, error)
	GetByUser(ctx context.Context, userID int64, bookID *int64, limit, offset int) ([]*domain.ReadingSession, error)
	GetRecentByUsers(ctx context.Context, userIDs []int64, limit int) ([]*domain.ReadingSession, error)

	// Requêtes d'agrégation statistiques
	GetDistinctDates(ctx context.Context, userID int64) ([]time.Time, error)
	GetRecentMethods(ctx context.Context, userID int64, n int) ([]domain.ReadingMethod, error)
	GetTotals(ctx context.Context, userID int64) (pages, minutes, sessions int, err error)
	GetTimeSeries(ctx context.Context, userID int64, period TimeSeriesPeriod) ([]domain.TimeBucket, error)
	GetMethodBreakdown(ctx context.Context, userID int64) ([]domain.MethodStats, error)
}

type ListRepository interface {
	Save(ctx context.Context, l *domain.List) error
	Update(ctx context.Context, l *domain.List) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.List, error)
	GetByUser(ctx context.Context, userID int64, publicOnly bool) ([]*domain.List, error)
	GetDefaultList(ctx context.Context, userID int64, listType domain.ListType) (*domain.List, error)
	GetRecentPublicByUsers(ctx context.Context, userIDs []int64, limit int) ([]*domain.List, error)

	AddItem(ctx context.Context, item *domain.ListItem) error
	RemoveItem(ctx context.Context, listID, bookID int64) error
	GetItems(ctx context.Context, listID int64) ([]*domain.ListItem, error)
	// ReorderItems réécrit les positions selon l'ordre des bookIDs donnés.
	ReorderItems(ctx context.Context, listID int64, bookIDs []int64) error
}

type FriendshipRepository interface {
	CreateRequest(ctx context.Context, r *domain.FriendRequest) error
	GetRequestByID(ctx context.Context, id int64) (*domain.FriendRequest, error)
	// GetPendingBetween cherche une demande PENDING dans la direction donnée.
	GetPendingBetween(ctx context.Context, requesterID, addresseeID int64) (*domain.FriendRequest, error)
	GetRejectedBetween(ctx context.Context, requesterID, addresseeID int64) (*domain.FriendRequest, error)
	UpdateRequestStatus(ctx context.Context, id int64, status domain.RequestStatus) error
	SoftDeleteRequest(ctx context.Context, id int64) error
	GetIncomingRequests(ctx context.Context, userID int64) ([]*domain.FriendRequest, error)
	GetOutgoingRequests(ctx context.Context, userID int64) ([]*domain.FriendRequest, error)

	// Accept crée la Friendship canonique et soft-delete la demande,
	// dans une seule transaction.
	Accept(ctx context.Context, request *domain.FriendRequest) (*domain.Friendship, error)
	GetFriendshipBetween(ctx context.Context, a, b int64) (*domain.Friendship, error)
	SoftDeleteFriendship(ctx context.Context, id int64) error
	GetFriendships(ctx context.Context, userID int64) ([]*domain.Friendship, error)
	GetFriendIDs(ctx context.Context, userID int64) ([]int64, error)
}

// --- Timeline (cache Redis du fil d'activité) ---

type TimelineRepository interface {
	AddToTimelines(ctx context.Context, userIDs []int64, item *domain.ActivityItem) error
	GetTimeline(ctx context.Context, userID int64, limit, offset int) ([]*domain.ActivityItem, error)
}

// --- Clients cross-service ---

// BookClient interroge content-service. Les implémentations dégradent
// gracieusement (cache + circuit breaker + fallback) plutôt que d'échouer.
type BookClient interface {
	GetBook(ctx context.Context, bookID int64) (*domain.BookSummary, error)
	GetBooks(ctx context.Context, bookIDs []int64) (map[int64]*domain.BookSummary, error)
	Invalidate(ctx context.Context, bookID int64) error
}

type UserClient interface {
	GetUsers(ctx context.Context, userIDs []int64) (map[int64]domain.UserSummary, error)
}

// --- Événements ---

type ActivityPublisher interface {
	PublishActivity(ctx context.Context, item *domain.ActivityItem) error
}
