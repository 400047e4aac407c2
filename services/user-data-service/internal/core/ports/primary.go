package ports

import (
	"context"
	"time"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
)

// --- Commandes ---

type AddToShelfCmd struct {
	UserID int64
	BookID int64
	Status domain.ReadingStatus
}

type ChangeStatusCmd struct {
	UserID    int64
	BookID    int64
	Status    domain.ReadingStatus
	DNFReason string
}

type UpdateProgressCmd struct {
	UserID         int64
	BookID         int64
	CurrentPage    *int
	CurrentSeconds *int
	// Overrides d'édition (nil = inchangé)
	PageCountOverride   *int
	AudioLengthOverride *int
	Rating              *float64
	Review              *string
}

type LogSessionCmd struct {
	UserID      int64
	BookID      int64
	Method      domain.ReadingMethod
	PagesRead   int
	MinutesRead int
	StartPage   *int
	EndPage     *int
	SessionDate time.Time
	Notes       string
}

type UpdateSessionCmd struct {
	UserID      int64
	SessionID   int64
	PagesRead   *int
	MinutesRead *int
	Notes       *string
}

type CreateListCmd struct {
	UserID      int64
	Name        string
	Description string
	Type        domain.ListType
	IsPublic    bool
}

type UpdateListCmd struct {
	UserID      int64
	ListID      int64
	Name        *string
	Description *string
	IsPublic    *bool
}

// --- Vues ---

// ShelfEntry : un UserBook enrichi de son résumé catalogue.
type ShelfEntry struct {
	UserBook *domain.UserBook
	Book     *domain.BookSummary
}

// SessionView : une session enrichie de son livre.
type SessionView struct {
	Session *domain.ReadingSession
	Book    *domain.BookSummary
}

// ListView : une liste avec ses éléments enrichis.
type ListView struct {
	List  *domain.List
	Items []ListItemView
}

type ListItemView struct {
	Item *domain.ListItem
	Book *domain.BookSummary
}

// FriendView : un ami avec son profil.
type FriendView struct {
	FriendshipID int64
	User         domain.UserSummary
	Since        time.Time
}

// RequestView : une demande en attente avec le profil de l'autre partie.
type RequestView struct {
	Request *domain.FriendRequest
	User    domain.UserSummary
}

// StatsOverview : vue d'ensemble des statistiques de lecture.
type StatsOverview struct {
	TotalBooksRead   int
	TotalDNF         int
	CurrentlyReading int
	WantToRead       int
	TotalPagesRead   int
	TotalMinutesRead int
	TotalSessions    int
	CompletionRate   float64
	CurrentStreak    int
	LongestStreak    int
	ActiveDates      []time.Time
	PreferredMethod  domain.ReadingMethod
}

// TimeSeriesPeriod : granularité de la série temporelle.
type TimeSeriesPeriod string

const (
	PeriodWeek  TimeSeriesPeriod = "week"
	PeriodMonth TimeSeriesPeriod = "month"
	PeriodYear  TimeSeriesPeriod = "year"
)

// --- Primary Ports ---

type ShelfService interface {
	AddToShelf(ctx context.Context, cmd AddToShelfCmd) (*domain.UserBook, error)
	GetShelf(ctx context.Context, userID int64, status *domain.ReadingStatus, limit, offset int) ([]ShelfEntry, error)
	GetUserBook(ctx context.Context, userID, bookID int64) (*ShelfEntry, error)
	ChangeStatus(ctx context.Context, cmd ChangeStatusCmd) (*domain.UserBook, error)
	UpdateProgress(ctx context.Context, cmd UpdateProgressCmd) (*domain.UserBook, error)
}

type SessionService interface {
	LogSession(ctx context.Context, cmd LogSessionCmd) (*domain.ReadingSession, error)
	GetSessions(ctx context.Context, userID int64, bookID *int64, limit, offset int) ([]SessionView, error)
	GetSession(ctx context.Context, userID, sessionID int64) (*SessionView, error)
	UpdateSession(ctx context.Context, cmd UpdateSessionCmd) (*domain.ReadingSession, error)
	DeleteSession(ctx context.Context, userID, sessionID int64) error
}

type ListService interface {
	CreateList(ctx context.Context, cmd CreateListCmd) (*domain.List, error)
	GetLists(ctx context.Context, ownerID, viewerID int64) ([]*domain.List, error)
	GetList(ctx context.Context, listID, viewerID int64) (*ListView, error)
	UpdateList(ctx context.Context, cmd UpdateListCmd) (*domain.List, error)
	DeleteList(ctx context.Context, userID, listID int64) error
	AddBookToList(ctx context.Context, userID, listID, bookID int64, note string) (*domain.ListItem, error)
	RemoveBookFromList(ctx context.Context, userID, listID, bookID int64) error
	ReorderList(ctx context.Context, userID, listID int64, bookIDs []int64) error
	EnsureDefaultLists(ctx context.Context, userID int64) error
}

type FriendshipService interface {
	SendRequest(ctx context.Context, requesterID, addresseeID int64) (*domain.FriendRequest, error)
	AcceptRequest(ctx context.Context, addresseeID, requestID int64) (*domain.Friendship, error)
	RejectRequest(ctx context.Context, addresseeID, requestID int64) error
	CancelRequest(ctx context.Context, requesterID, requestID int64) error
	Unfriend(ctx context.Context, userID, friendID int64) error
	GetFriends(ctx context.Context, userID int64) ([]FriendView, error)
	GetIncomingRequests(ctx context.Context, userID int64) ([]RequestView, error)
	GetOutgoingRequests(ctx context.Context, userID int64) ([]RequestView, error)
	GetFriendshipStatus(ctx context.Context, userID, otherID int64) (*domain.FriendshipStatus, error)
}

type StatisticsService interface {
	GetOverview(ctx context.Context, userID int64) (*StatsOverview, error)
	GetTimeSeries(ctx context.Context, userID int64, period TimeSeriesPeriod) ([]domain.TimeBucket, error)
	GetMethodBreakdown(ctx context.Context, userID int64) ([]domain.MethodStats, error)
	GetGenreLeaderboard(ctx context.Context, userID int64, topN int) ([]domain.LeaderboardEntry, error)
	GetAuthorLeaderboard(ctx context.Context, userID int64, topN int) ([]domain.LeaderboardEntry, error)
}

type FeedService interface {
	GetFeed(ctx context.Context, userID int64, limit, offset int) ([]*domain.ActivityItem, error)
	// DistributeActivity fan-out l'élément vers les timelines Redis des amis.
	DistributeActivity(ctx context.Context, item *domain.ActivityItem) error
	// InvalidateBook purge le cache de résumé d'un livre (événement catalogue).
	InvalidateBook(ctx context.Context, bookID int64) error
}
