package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

func newStatsFixture(t *testing.T) (*StatsService, *stubSessionRepo, *stubUserBookRepo, *stubBookClient) {
	t.Helper()
	sessions := newStubSessionRepo()
	userBooks := newStubUserBookRepo()
	books := &stubBookClient{books: map[int64]*domain.BookSummary{
		10: {ID: 10, Title: "Dune", Genres: []domain.NamedRef{{ID: 1, Name: "Science Fiction"}}, Authors: []domain.NamedRef{{ID: 7, Name: "Frank Herbert"}}},
		11: {ID: 11, Title: "Dune Messiah", Genres: []domain.NamedRef{{ID: 1, Name: "Science Fiction"}}, Authors: []domain.NamedRef{{ID: 7, Name: "Frank Herbert"}}},
		12: {ID: 12, Title: "Piranesi", Genres: []domain.NamedRef{{ID: 2, Name: "Fantasy"}}, Authors: []domain.NamedRef{{ID: 8, Name: "Susanna Clarke"}}},
	}}
	return NewStatsService(sessions, userBooks, books), sessions, userBooks, books
}

func logTestSession(t *testing.T, sessions *stubSessionRepo, userID, bookID int64, method domain.ReadingMethod, date time.Time) {
	t.Helper()
	sess, err := domain.NewReadingSession(userID, bookID, method, 10, 30, nil, nil, date, "")
	require.NoError(t, err)
	require.NoError(t, sessions.Save(context.Background(), sess))
}

func finishBook(t *testing.T, userBooks *stubUserBookRepo, userID, bookID int64) {
	t.Helper()
	ub, err := domain.NewUserBook(userID, bookID, domain.StatusCurrentlyReading)
	require.NoError(t, err)
	require.NoError(t, ub.ChangeStatus(domain.StatusRead, ""))
	require.NoError(t, userBooks.Save(context.Background(), ub))
}

func TestGetOverview(t *testing.T) {
	ctx := context.Background()
	svc, sessions, userBooks, _ := newStatsFixture(t)

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	logTestSession(t, sessions, 1, 10, domain.MethodPhysical, now)
	logTestSession(t, sessions, 1, 10, domain.MethodPhysical, now.AddDate(0, 0, -1))
	logTestSession(t, sessions, 1, 11, domain.MethodAudiobook, now.AddDate(0, 0, -1))

	finishBook(t, userBooks, 1, 10)
	dnf, err := domain.NewUserBook(1, 11, domain.StatusCurrentlyReading)
	require.NoError(t, err)
	require.NoError(t, dnf.ChangeStatus(domain.StatusDidNotFinish, "abandon"))
	require.NoError(t, userBooks.Save(ctx, dnf))

	overview, err := svc.GetOverview(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, overview.TotalBooksRead)
	assert.Equal(t, 1, overview.TotalDNF)
	assert.Equal(t, 3, overview.TotalSessions)
	assert.Equal(t, 30, overview.TotalPagesRead)
	assert.Equal(t, 90, overview.TotalMinutesRead)
	assert.Equal(t, 2, overview.CurrentStreak)
	assert.Equal(t, 2, overview.LongestStreak)
	assert.Equal(t, 50.0, overview.CompletionRate)
	assert.Equal(t, domain.MethodPhysical, overview.PreferredMethod)
	assert.Len(t, overview.ActiveDates, 2)
}

func TestGetOverview_Empty(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newStatsFixture(t)

	overview, err := svc.GetOverview(ctx, 1)
	require.NoError(t, err)

	assert.Zero(t, overview.TotalBooksRead)
	assert.Zero(t, overview.CurrentStreak)
	assert.Zero(t, overview.LongestStreak)
	assert.Zero(t, overview.CompletionRate)
	assert.Empty(t, overview.PreferredMethod)
}

func TestGetTimeSeries_DefaultsToWeek(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newStatsFixture(t)

	_, err := svc.GetTimeSeries(ctx, 1, "quarter")
	require.NoError(t, err)

	_, err = svc.GetTimeSeries(ctx, 1, ports.PeriodMonth)
	require.NoError(t, err)
}

func TestGenreLeaderboard(t *testing.T) {
	ctx := context.Background()
	svc, _, userBooks, _ := newStatsFixture(t)

	finishBook(t, userBooks, 1, 10)
	finishBook(t, userBooks, 1, 11)
	finishBook(t, userBooks, 1, 12)

	entries, err := svc.GetGenreLeaderboard(ctx, 1, 10)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "Science Fiction", entries[0].Name)
	assert.Equal(t, 2, entries[0].BooksRead)
	assert.Equal(t, "Fantasy", entries[1].Name)
}

func TestAuthorLeaderboard_SkipsDegradedSummaries(t *testing.T) {
	ctx := context.Background()
	svc, _, userBooks, books := newStatsFixture(t)

	finishBook(t, userBooks, 1, 10)
	finishBook(t, userBooks, 1, 12)

	// Fallback du circuit breaker : pas de métadonnées fiables
	books.books[12] = &domain.BookSummary{ID: 12, Title: "Book information temporarily unavailable", Degraded: true}

	entries, err := svc.GetAuthorLeaderboard(ctx, 1, 10)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "Frank Herbert", entries[0].Name)
}
