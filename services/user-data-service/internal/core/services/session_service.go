package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

// SessionService journalise les sessions de lecture et maintient la
// progression du UserBook associé.
type SessionService struct {
	sessions  ports.SessionRepository
	userBooks ports.UserBookRepository
	books     ports.BookClient
	broker    ports.ActivityPublisher
}

func NewSessionService(
	sessions ports.SessionRepository,
	userBooks ports.UserBookRepository,
	books ports.BookClient,
	broker ports.ActivityPublisher,
) *SessionService {
	return &SessionService{
		sessions:  sessions,
		userBooks: userBooks,
		books:     books,
		broker:    broker,
	}
}

// LogSession enregistre la session puis répercute la progression sur le
// UserBook. Un livre absent de l'étagère y est ajouté d'office en
// CURRENTLY_READING : logger une session implique qu'on lit le livre.
func (s *SessionService) LogSession(ctx context.Context, cmd ports.LogSessionCmd) (*domain.ReadingSession, error) {
	session, err := domain.NewReadingSession(
		cmd.UserID, cmd.BookID, cmd.Method,
		cmd.PagesRead, cmd.MinutesRead,
		cmd.StartPage, cmd.EndPage,
		cmd.SessionDate, cmd.Notes,
	)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	if err := s.upsertUserBook(ctx, session); err != nil {
		// La session est enregistrée, la progression se recalera à la prochaine
		slog.Warn("⚠️ Progress propagation failed", "session_id", session.ID, "error", err)
	}

	_ = s.broker.PublishActivity(ctx, &domain.ActivityItem{
		ID:         uuid.NewString(),
		Type:       domain.ActivitySessionLogged,
		UserID:     session.UserID,
		BookID:     session.BookID,
		OccurredAt: session.SessionDate,
	})

	return session, nil
}

func (s *SessionService) upsertUserBook(ctx context.Context, session *domain.ReadingSession) error {
	ub, err := s.userBooks.GetByUserAndBook(ctx, session.UserID, session.BookID)
	if err != nil {
		if !errors.Is(err, domain.ErrUserBookNotFound) {
			return err
		}
		ub, err = domain.NewUserBook(session.UserID, session.BookID, domain.StatusCurrentlyReading)
		if err != nil {
			return err
		}
		if err := ub.ApplyProgress(session.Method, session.PagesRead, session.MinutesRead, session.EndPage); err != nil {
			return err
		}
		return s.userBooks.Save(ctx, ub)
	}

	// Logger une session sur un livre déjà rangé (WANT_TO_READ, READ, DNF)
	// le rebascule en lecture en cours, jalons posés par ChangeStatus.
	if ub.Status != domain.StatusCurrentlyReading {
		if err := ub.ChangeStatus(domain.StatusCurrentlyReading, ""); err != nil {
			return err
		}
	}
	if err := ub.ApplyProgress(session.Method, session.PagesRead, session.MinutesRead, session.EndPage); err != nil {
		return err
	}
	return s.userBooks.Update(ctx, ub)
}

func (s *SessionService) GetSessions(ctx context.Context, userID int64, bookID *int64, limit, offset int) ([]ports.SessionView, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	sessions, err := s.sessions.GetByUser(ctx, userID, bookID, limit, offset)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(sessions))
	seen := make(map[int64]struct{})
	for _, sess := range sessions {
		if _, ok := seen[sess.BookID]; !ok {
			seen[sess.BookID] = struct{}{}
			ids = append(ids, sess.BookID)
		}
	}

	summaries := map[int64]*domain.BookSummary{}
	if len(ids) > 0 {
		if summaries, err = s.books.GetBooks(ctx, ids); err != nil {
			slog.Warn("⚠️ Book enrichment failed", "error", err)
			summaries = map[int64]*domain.BookSummary{}
		}
	}

	views := make([]ports.SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, ports.SessionView{
			Session: sess,
			Book:    summaries[sess.BookID],
		})
	}
	return views, nil
}

func (s *SessionService) GetSession(ctx context.Context, userID, sessionID int64) (*ports.SessionView, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, domain.ErrNotOwner
	}

	view := &ports.SessionView{Session: session}
	if summary, err := s.books.GetBook(ctx, session.BookID); err == nil {
		view.Book = summary
	} else {
		slog.Warn("⚠️ Book enrichment failed", "book_id", session.BookID, "error", err)
	}
	return view, nil
}

// UpdateSession : seul l'auteur peut éditer, et la session doit rester valide.
func (s *SessionService) UpdateSession(ctx context.Context, cmd ports.UpdateSessionCmd) (*domain.ReadingSession, error) {
	session, err := s.sessions.GetByID(ctx, cmd.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != cmd.UserID {
		return nil, domain.ErrNotOwner
	}

	if cmd.PagesRead != nil {
		session.PagesRead = *cmd.PagesRead
	}
	if cmd.MinutesRead != nil {
		session.MinutesRead = *cmd.MinutesRead
	}
	if cmd.Notes != nil {
		session.Notes = *cmd.Notes
	}
	session.UpdatedAt = time.Now().UTC()

	if err := session.Validate(); err != nil {
		return nil, err
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) DeleteSession(ctx context.Context, userID, sessionID int64) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != userID {
		return domain.ErrNotOwner
	}
	return s.sessions.Delete(ctx, sessionID)
}
