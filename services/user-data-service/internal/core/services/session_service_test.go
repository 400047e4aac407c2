package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

// --- Stubs en mémoire ---

type stubSessionRepo struct {
	nextID   int64
	sessions map[int64]*domain.ReadingSession
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{nextID: 1, sessions: make(map[int64]*domain.ReadingSession)}
}

func (r *stubSessionRepo) Save(_ context.Context, s *domain.ReadingSession) error {
	s.ID = r.nextID
	r.nextID++
	r.sessions[s.ID] = s
	return nil
}

func (r *stubSessionRepo) Update(_ context.Context, s *domain.ReadingSession) error {
	if _, ok := r.sessions[s.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *stubSessionRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *stubSessionRepo) GetByID(_ context.Context, id int64) (*domain.ReadingSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (r *stubSessionRepo) GetByUser(_ context.Context, userID int64, bookID *int64, _, _ int) ([]*domain.ReadingSession, error) {
	var out []*domain.ReadingSession
	for _, s := range r.sessions {
		if s.UserID != userID {
			continue
		}
		if bookID != nil && s.BookID != *bookID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *stubSessionRepo) GetRecentByUsers(_ context.Context, _ []int64, _ int) ([]*domain.ReadingSession, error) {
	return nil, nil
}

func (r *stubSessionRepo) GetDistinctDates(_ context.Context, userID int64) ([]time.Time, error) {
	var out []time.Time
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s.Day())
		}
	}
	return out, nil
}

func (r *stubSessionRepo) GetRecentMethods(_ context.Context, userID int64, _ int) ([]domain.ReadingMethod, error) {
	var out []domain.ReadingMethod
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s.Method)
		}
	}
	return out, nil
}

func (r *stubSessionRepo) GetTotals(_ context.Context, userID int64) (int, int, int, error) {
	pages, minutes, count := 0, 0, 0
	for _, s := range r.sessions {
		if s.UserID == userID {
			pages += s.PagesRead
			minutes += s.MinutesRead
			count++
		}
	}
	return pages, minutes, count, nil
}

func (r *stubSessionRepo) GetTimeSeries(_ context.Context, _ int64, _ ports.TimeSeriesPeriod) ([]domain.TimeBucket, error) {
	return nil, nil
}

func (r *stubSessionRepo) GetMethodBreakdown(_ context.Context, _ int64) ([]domain.MethodStats, error) {
	return nil, nil
}

type stubUserBookRepo struct {
	nextID int64
	books  map[string]*domain.UserBook
}

func newStubUserBookRepo() *stubUserBookRepo {
	return &stubUserBookRepo{nextID: 1, books: make(map[string]*domain.UserBook)}
}

func ubKey(userID, bookID int64) string {
	return fmt.Sprintf("%d/%d", userID, bookID)
}

func (r *stubUserBookRepo) Save(_ context.Context, ub *domain.UserBook) error {
	key := ubKey(ub.UserID, ub.BookID)
	if _, ok := r.books[key]; ok {
		return domain.ErrDuplicateUserBook
	}
	ub.ID = r.nextID
	r.nextID++
	r.books[key] = ub
	return nil
}

func (r *stubUserBookRepo) Update(_ context.Context, ub *domain.UserBook) error {
	r.books[ubKey(ub.UserID, ub.BookID)] = ub
	return nil
}

func (r *stubUserBookRepo) GetByUserAndBook(_ context.Context, userID, bookID int64) (*domain.UserBook, error) {
	ub, ok := r.books[ubKey(userID, bookID)]
	if !ok {
		return nil, domain.ErrUserBookNotFound
	}
	return ub, nil
}

func (r *stubUserBookRepo) GetByUser(_ context.Context, userID int64, status *domain.ReadingStatus, _, _ int) ([]*domain.UserBook, error) {
	var out []*domain.UserBook
	for _, ub := range r.books {
		if ub.UserID != userID {
			continue
		}
		if status != nil && ub.Status != *status {
			continue
		}
		out = append(out, ub)
	}
	return out, nil
}

func (r *stubUserBookRepo) CountByStatus(_ context.Context, userID int64) (map[domain.ReadingStatus]int, error) {
	out := make(map[domain.ReadingStatus]int)
	for _, ub := range r.books {
		if ub.UserID == userID {
			out[ub.Status]++
		}
	}
	return out, nil
}

func (r *stubUserBookRepo) GetRecentlyFinished(_ context.Context, _ []int64, _ int) ([]*domain.UserBook, error) {
	return nil, nil
}

type stubBookClient struct {
	books map[int64]*domain.BookSummary
}

func (c *stubBookClient) GetBook(_ context.Context, id int64) (*domain.BookSummary, error) {
	b, ok := c.books[id]
	if !ok {
		return nil, domain.ErrUserBookNotFound
	}
	return b, nil
}

func (c *stubBookClient) GetBooks(_ context.Context, ids []int64) (map[int64]*domain.BookSummary, error) {
	out := make(map[int64]*domain.BookSummary)
	for _, id := range ids {
		if b, ok := c.books[id]; ok {
			out[id] = b
		}
	}
	return out, nil
}

func (c *stubBookClient) Invalidate(_ context.Context, _ int64) error { return nil }

type stubActivityPublisher struct {
	published []*domain.ActivityItem
}

func (p *stubActivityPublisher) PublishActivity(_ context.Context, item *domain.ActivityItem) error {
	p.published = append(p.published, item)
	return nil
}

func newSessionFixture() (*SessionService, *stubSessionRepo, *stubUserBookRepo, *stubActivityPublisher) {
	sessions := newStubSessionRepo()
	userBooks := newStubUserBookRepo()
	books := &stubBookClient{books: map[int64]*domain.BookSummary{
		10: {ID: 10, Title: "Dune", PageCount: 412},
	}}
	broker := &stubActivityPublisher{}
	return NewSessionService(sessions, userBooks, books, broker), sessions, userBooks, broker
}

// --- Tests ---

func TestLogSession_CreatesUserBookWhenMissing(t *testing.T) {
	ctx := context.Background()
	svc, _, userBooks, broker := newSessionFixture()

	sess, err := svc.LogSession(ctx, ports.LogSessionCmd{
		UserID:    1,
		BookID:    10,
		Method:    domain.MethodPhysical,
		PagesRead: 30,
	})
	require.NoError(t, err)
	assert.NotZero(t, sess.ID)

	ub, err := userBooks.GetByUserAndBook(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCurrentlyReading, ub.Status)
	assert.Equal(t, 30, ub.CurrentPage)

	require.Len(t, broker.published, 1)
	assert.Equal(t, domain.ActivitySessionLogged, broker.published[0].Type)
}

func TestLogSession_UpdatesExistingUserBook(t *testing.T) {
	ctx := context.Background()
	svc, _, userBooks, _ := newSessionFixture()

	existing, err := domain.NewUserBook(1, 10, domain.StatusCurrentlyReading)
	require.NoError(t, err)
	require.NoError(t, userBooks.Save(ctx, existing))
	require.NoError(t, existing.ApplyProgress(domain.MethodPhysical, 50, 0, nil))

	_, err = svc.LogSession(ctx, ports.LogSessionCmd{
		UserID:    1,
		BookID:    10,
		Method:    domain.MethodPhysical,
		PagesRead: 25,
	})
	require.NoError(t, err)

	ub, err := userBooks.GetByUserAndBook(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 75, ub.CurrentPage)
	assert.Equal(t, domain.StatusCurrentlyReading, ub.Status)
}

func TestLogSession_FlipsShelvedBookToCurrentlyReading(t *testing.T) {
	ctx := context.Background()
	svc, _, userBooks, _ := newSessionFixture()

	existing, err := domain.NewUserBook(1, 10, domain.StatusWantToRead)
	require.NoError(t, err)
	require.NoError(t, userBooks.Save(ctx, existing))
	require.Nil(t, existing.StartedAt)

	_, err = svc.LogSession(ctx, ports.LogSessionCmd{
		UserID:    1,
		BookID:    10,
		Method:    domain.MethodPhysical,
		PagesRead: 25,
	})
	require.NoError(t, err)

	ub, err := userBooks.GetByUserAndBook(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCurrentlyReading, ub.Status)
	assert.NotNil(t, ub.StartedAt)
	assert.Equal(t, 25, ub.CurrentPage)
}

func TestLogSession_AudiobookDoesNotMoveBookmark(t *testing.T) {
	ctx := context.Background()
	svc, _, userBooks, _ := newSessionFixture()

	existing, err := domain.NewUserBook(1, 10, domain.StatusCurrentlyReading)
	require.NoError(t, err)
	bookmark := 120
	require.NoError(t, existing.ApplyProgress(domain.MethodPhysical, 0, 0, &bookmark))
	require.NoError(t, userBooks.Save(ctx, existing))

	endPage := 300
	_, err = svc.LogSession(ctx, ports.LogSessionCmd{
		UserID:      1,
		BookID:      10,
		Method:      domain.MethodAudiobook,
		MinutesRead: 30,
		EndPage:     &endPage,
	})
	require.NoError(t, err)

	ub, err := userBooks.GetByUserAndBook(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 120, ub.CurrentPage)
	assert.Equal(t, 30*60, ub.CurrentSeconds)
}

func TestLogSession_EndPageOverridesProgress(t *testing.T) {
	ctx := context.Background()
	svc, _, userBooks, _ := newSessionFixture()

	endPage := 180
	_, err := svc.LogSession(ctx, ports.LogSessionCmd{
		UserID:    1,
		BookID:    10,
		Method:    domain.MethodEbook,
		PagesRead: 20,
		EndPage:   &endPage,
	})
	require.NoError(t, err)

	ub, err := userBooks.GetByUserAndBook(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 180, ub.CurrentPage)
}

func TestLogSession_AudiobookMinutes(t *testing.T) {
	ctx := context.Background()
	svc, _, userBooks, _ := newSessionFixture()

	_, err := svc.LogSession(ctx, ports.LogSessionCmd{
		UserID:      1,
		BookID:      10,
		Method:      domain.MethodAudiobook,
		MinutesRead: 40,
	})
	require.NoError(t, err)

	ub, err := userBooks.GetByUserAndBook(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 40*60, ub.CurrentSeconds)
}

func TestLogSession_InvalidSession(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _, broker := newSessionFixture()

	_, err := svc.LogSession(ctx, ports.LogSessionCmd{
		UserID: 1,
		BookID: 10,
		Method: domain.MethodAudiobook,
		// pas de minutes : invalide pour un audiobook
		PagesRead: 20,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
	assert.Empty(t, sessions.sessions)
	assert.Empty(t, broker.published)
}

func TestUpdateSession_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newSessionFixture()

	sess, err := svc.LogSession(ctx, ports.LogSessionCmd{
		UserID:    1,
		BookID:    10,
		Method:    domain.MethodPhysical,
		PagesRead: 10,
	})
	require.NoError(t, err)

	pages := 15
	_, err = svc.UpdateSession(ctx, ports.UpdateSessionCmd{
		UserID:    2,
		SessionID: sess.ID,
		PagesRead: &pages,
	})
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	updated, err := svc.UpdateSession(ctx, ports.UpdateSessionCmd{
		UserID:    1,
		SessionID: sess.ID,
		PagesRead: &pages,
	})
	require.NoError(t, err)
	assert.Equal(t, 15, updated.PagesRead)
}

func TestUpdateSession_MustStayValid(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newSessionFixture()

	sess, err := svc.LogSession(ctx, ports.LogSessionCmd{
		UserID:      1,
		BookID:      10,
		Method:      domain.MethodAudiobook,
		MinutesRead: 30,
	})
	require.NoError(t, err)

	zero := 0
	_, err = svc.UpdateSession(ctx, ports.UpdateSessionCmd{
		UserID:      1,
		SessionID:   sess.ID,
		MinutesRead: &zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _, _ := newSessionFixture()

	sess, err := svc.LogSession(ctx, ports.LogSessionCmd{
		UserID:    1,
		BookID:    10,
		Method:    domain.MethodPhysical,
		PagesRead: 10,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteSession(ctx, 2, sess.ID), domain.ErrNotOwner)
	require.NoError(t, svc.DeleteSession(ctx, 1, sess.ID))
	assert.Empty(t, sessions.sessions)
}

func TestGetSession_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newSessionFixture()

	sess, err := svc.LogSession(ctx, ports.LogSessionCmd{
		UserID:    1,
		BookID:    10,
		Method:    domain.MethodPhysical,
		PagesRead: 10,
	})
	require.NoError(t, err)

	view, err := svc.GetSession(ctx, 1, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, view.Session.ID)
	require.NotNil(t, view.Book)
	assert.Equal(t, int64(10), view.Book.ID)

	_, err = svc.GetSession(ctx, 2, sess.ID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)
}
