package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

// preferredMethodWindow : nombre de sessions récentes considérées pour
// déterminer la méthode de lecture préférée.
const preferredMethodWindow = 20

// StatsService dérive des vues en lecture seule de l'historique de lecture.
// Les agrégats simples viennent du SQL, les streaks et tie-breaks sont
// calculés en mémoire (logique dans le package domain, testable à sec).
type StatsService struct {
	sessions  ports.SessionRepository
	userBooks ports.UserBookRepository
	books     ports.BookClient

	// Horloge injectable pour les tests de streaks
	now func() time.Time
}

func NewStatsService(sessions ports.SessionRepository, userBooks ports.UserBookRepository, books ports.BookClient) *StatsService {
	return &StatsService{
		sessions:  sessions,
		userBooks: userBooks,
		books:     books,
		now:       time.Now,
	}
}

func (s *StatsService) GetOverview(ctx context.Context, userID int64) (*ports.StatsOverview, error) {
	counts, err := s.userBooks.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	pages, minutes, sessionCount, err := s.sessions.GetTotals(ctx, userID)
	if err != nil {
		return nil, err
	}

	dates, err := s.sessions.GetDistinctDates(ctx, userID)
	if err != nil {
		return nil, err
	}

	recentMethods, err := s.sessions.GetRecentMethods(ctx, userID, preferredMethodWindow)
	if err != nil {
		return nil, err
	}

	today := s.now().UTC()
	streaks := domain.CalculateStreaks(dates, today)

	read := counts[domain.StatusRead]
	dnf := counts[domain.StatusDidNotFinish]
	reading := counts[domain.StatusCurrentlyReading]

	return &ports.StatsOverview{
		TotalBooksRead:   read,
		TotalDNF:         dnf,
		CurrentlyReading: reading,
		WantToRead:       counts[domain.StatusWantToRead],
		TotalPagesRead:   pages,
		TotalMinutesRead: minutes,
		TotalSessions:    sessionCount,
		CompletionRate:   domain.CompletionRate(read, dnf, reading),
		CurrentStreak:    streaks.Current,
		LongestStreak:    streaks.Longest,
		ActiveDates:      domain.ActiveDates(dates, today),
		PreferredMethod:  domain.PreferredMethod(recentMethods),
	}, nil
}

// GetTimeSeries : buckets semaine ISO, mois calendaire ou année,
// chronologiques, vides si aucune session (pas d'interpolation des
// périodes creuses).
func (s *StatsService) GetTimeSeries(ctx context.Context, userID int64, period ports.TimeSeriesPeriod) ([]domain.TimeBucket, error) {
	switch period {
	case ports.PeriodWeek, ports.PeriodMonth, ports.PeriodYear:
	default:
		period = ports.PeriodWeek
	}
	return s.sessions.GetTimeSeries(ctx, userID, period)
}

func (s *StatsService) GetMethodBreakdown(ctx context.Context, userID int64) ([]domain.MethodStats, error) {
	stats, err := s.sessions.GetMethodBreakdown(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.ComputePercentages(stats), nil
}

func (s *StatsService) GetGenreLeaderboard(ctx context.Context, userID int64, topN int) ([]domain.LeaderboardEntry, error) {
	return s.leaderboard(ctx, userID, topN, func(b *domain.BookSummary) []domain.NamedRef { return b.Genres })
}

func (s *StatsService) GetAuthorLeaderboard(ctx context.Context, userID int64, topN int) ([]domain.LeaderboardEntry, error) {
	return s.leaderboard(ctx, userID, topN, func(b *domain.BookSummary) []domain.NamedRef { return b.Authors })
}

// leaderboard : jointure cross-service. Les IDs de livres lus viennent du
// local, les métadonnées du content-service, l'agrégation se fait ici.
// Un catalogue indisponible donne un classement partiel, jamais une erreur.
func (s *StatsService) leaderboard(ctx context.Context, userID int64, topN int, refs func(*domain.BookSummary) []domain.NamedRef) ([]domain.LeaderboardEntry, error) {
	if topN <= 0 || topN > 50 {
		topN = 10
	}

	status := domain.StatusRead
	finished, err := s.userBooks.GetByUser(ctx, userID, &status, 1000, 0)
	if err != nil {
		return nil, err
	}
	if len(finished) == 0 {
		return []domain.LeaderboardEntry{}, nil
	}

	summaries, err := s.books.GetBooks(ctx, bookIDs(finished))
	if err != nil {
		slog.Warn("⚠️ Leaderboard enrichment degraded", "user_id", userID, "error", err)
		return []domain.LeaderboardEntry{}, nil
	}

	counts := make(map[int64]*domain.LeaderboardEntry)
	for _, ub := range finished {
		summary, ok := summaries[ub.BookID]
		if !ok || summary.Degraded {
			continue
		}
		for _, ref := range refs(summary) {
			entry, ok := counts[ref.ID]
			if !ok {
				entry = &domain.LeaderboardEntry{ID: ref.ID, Name: ref.Name}
				counts[ref.ID] = entry
			}
			entry.BooksRead++
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(counts))
	for _, e := range counts {
		entries = append(entries, *e)
	}
	return domain.SortLeaderboard(entries, topN), nil
}
