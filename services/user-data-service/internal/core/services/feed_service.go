package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

// feedSourceLimit : plafond par source lors de l'agrégation SQL.
const feedSourceLimit = 100

// FeedService construit le fil d'activité des amis.
//
// Chemin rapide : timelines Redis alimentées par fan-out à chaque écriture.
// Chemin de secours : agrégation SQL sur trois sources (sessions récentes,
// listes publiques, livres terminés) quand Redis est vide ou indisponible.
type FeedService struct {
	timeline    ports.TimelineRepository
	friendships ports.FriendshipRepository
	sessions    ports.SessionRepository
	userBooks   ports.UserBookRepository
	lists       ports.ListRepository
	books       ports.BookClient
	users       ports.UserClient
}

func NewFeedService(
	timeline ports.TimelineRepository,
	friendships ports.FriendshipRepository,
	sessions ports.SessionRepository,
	userBooks ports.UserBookRepository,
	lists ports.ListRepository,
	books ports.BookClient,
	users ports.UserClient,
) *FeedService {
	return &FeedService{
		timeline:    timeline,
		friendships: friendships,
		sessions:    sessions,
		userBooks:   userBooks,
		lists:       lists,
		books:       books,
		users:       users,
	}
}

// DistributeActivity : fan-out de l'élément vers la timeline de chaque ami.
func (s *FeedService) DistributeActivity(ctx context.Context, item *domain.ActivityItem) error {
	friendIDs, err := s.friendships.GetFriendIDs(ctx, item.UserID)
	if err != nil {
		return fmt.Errorf("resolve friends for fan-out: %w", err)
	}
	if len(friendIDs) == 0 {
		return nil
	}

	return s.timeline.AddToTimelines(ctx, friendIDs, item)
}

// InvalidateBook relaie les événements catalogue vers le cache du BookClient.
func (s *FeedService) InvalidateBook(ctx context.Context, bookID int64) error {
	return s.books.Invalidate(ctx, bookID)
}

func (s *FeedService) GetFeed(ctx context.Context, userID int64, limit, offset int) ([]*domain.ActivityItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.timeline.GetTimeline(ctx, userID, limit, offset)
	if err != nil || len(items) == 0 {
		if err != nil {
			slog.Warn("⚠️ Timeline cache unavailable, falling back to SQL", "user_id", userID, "error", err)
		}
		items, err = s.aggregateFromSQL(ctx, userID, limit, offset)
		if err != nil {
			return nil, err
		}
	}

	s.enrich(ctx, items)
	return items, nil
}

// aggregateFromSQL : agrégation autoritative. Trois sources plafonnées à
// feedSourceLimit chacune, fusionnées par date décroissante, paginées en mémoire.
func (s *FeedService) aggregateFromSQL(ctx context.Context, userID int64, limit, offset int) ([]*domain.ActivityItem, error) {
	friendIDs, err := s.friendships.GetFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(friendIDs) == 0 {
		return []*domain.ActivityItem{}, nil
	}

	var items []*domain.ActivityItem

	sessions, err := s.sessions.GetRecentByUsers(ctx, friendIDs, feedSourceLimit)
	if err != nil {
		return nil, fmt.Errorf("feed sessions source: %w", err)
	}
	for _, sess := range sessions {
		items = append(items, &domain.ActivityItem{
			ID:         uuid.NewString(),
			Type:       domain.ActivitySessionLogged,
			UserID:     sess.UserID,
			BookID:     sess.BookID,
			OccurredAt: sess.SessionDate,
		})
	}

	lists, err := s.lists.GetRecentPublicByUsers(ctx, friendIDs, feedSourceLimit)
	if err != nil {
		return nil, fmt.Errorf("feed lists source: %w", err)
	}
	for _, l := range lists {
		items = append(items, &domain.ActivityItem{
			ID:         uuid.NewString(),
			Type:       domain.ActivityListCreated,
			UserID:     l.UserID,
			ListID:     l.ID,
			ListName:   l.Name,
			OccurredAt: l.CreatedAt,
		})
	}

	finished, err := s.userBooks.GetRecentlyFinished(ctx, friendIDs, feedSourceLimit)
	if err != nil {
		return nil, fmt.Errorf("feed finished source: %w", err)
	}
	for _, ub := range finished {
		if ub.FinishedAt == nil {
			continue
		}
		items = append(items, &domain.ActivityItem{
			ID:         uuid.NewString(),
			Type:       domain.ActivityBookFinished,
			UserID:     ub.UserID,
			BookID:     ub.BookID,
			OccurredAt: *ub.FinishedAt,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].OccurredAt.After(items[j].OccurredAt)
	})

	if offset >= len(items) {
		return []*domain.ActivityItem{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

// enrich remplit usernames et titres en batch, best effort.
func (s *FeedService) enrich(ctx context.Context, items []*domain.ActivityItem) {
	if len(items) == 0 {
		return
	}

	userSet := make(map[int64]struct{})
	bookSet := make(map[int64]struct{})
	for _, item := range items {
		userSet[item.UserID] = struct{}{}
		if item.BookID != 0 {
			bookSet[item.BookID] = struct{}{}
		}
	}

	userIDs := make([]int64, 0, len(userSet))
	for id := range userSet {
		userIDs = append(userIDs, id)
	}
	bookIDs := make([]int64, 0, len(bookSet))
	for id := range bookSet {
		bookIDs = append(bookIDs, id)
	}

	profiles, err := s.users.GetUsers(ctx, userIDs)
	if err != nil {
		slog.Warn("⚠️ Feed user enrichment failed", "error", err)
		profiles = map[int64]domain.UserSummary{}
	}

	summaries := map[int64]*domain.BookSummary{}
	if len(bookIDs) > 0 {
		if summaries, err = s.books.GetBooks(ctx, bookIDs); err != nil {
			slog.Warn("⚠️ Feed book enrichment failed", "error", err)
			summaries = map[int64]*domain.BookSummary{}
		}
	}

	for _, item := range items {
		if profile, ok := profiles[item.UserID]; ok {
			item.Username = profile.Username
		}
		if summary, ok := summaries[item.BookID]; ok {
			item.BookTitle = summary.Title
		}
	}
}
