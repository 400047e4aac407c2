package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

// ShelfService gère l'étagère (UserBooks) : statuts, progression, jalons.
type ShelfService struct {
	userBooks ports.UserBookRepository
	books     ports.BookClient
	broker    ports.ActivityPublisher
}

func NewShelfService(userBooks ports.UserBookRepository, books ports.BookClient, broker ports.ActivityPublisher) *ShelfService {
	return &ShelfService{userBooks: userBooks, books: books, broker: broker}
}

func (s *ShelfService) AddToShelf(ctx context.Context, cmd ports.AddToShelfCmd) (*domain.UserBook, error) {
	// Vérifie que le livre existe au catalogue (réponse dégradée acceptée)
	if _, err := s.books.GetBook(ctx, cmd.BookID); err != nil {
		return nil, err
	}

	ub, err := domain.NewUserBook(cmd.UserID, cmd.BookID, cmd.Status)
	if err != nil {
		return nil, err
	}

	if err := s.userBooks.Save(ctx, ub); err != nil {
		return nil, err
	}
	return ub, nil
}

func (s *ShelfService) GetShelf(ctx context.Context, userID int64, status *domain.ReadingStatus, limit, offset int) ([]ports.ShelfEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	userBooks, err := s.userBooks.GetByUser(ctx, userID, status, limit, offset)
	if err != nil {
		return nil, err
	}

	summaries := s.enrichBooks(ctx, bookIDs(userBooks))

	entries := make([]ports.ShelfEntry, 0, len(userBooks))
	for _, ub := range userBooks {
		entries = append(entries, ports.ShelfEntry{
			UserBook: ub,
			Book:     summaries[ub.BookID],
		})
	}
	return entries, nil
}

func (s *ShelfService) GetUserBook(ctx context.Context, userID, bookID int64) (*ports.ShelfEntry, error) {
	ub, err := s.userBooks.GetByUserAndBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		// Dégradation : l'étagère reste lisible sans le catalogue
		slog.Warn("⚠️ Book enrichment failed", "book_id", bookID, "error", err)
	}

	return &ports.ShelfEntry{UserBook: ub, Book: book}, nil
}

func (s *ShelfService) ChangeStatus(ctx context.Context, cmd ports.ChangeStatusCmd) (*domain.UserBook, error) {
	ub, err := s.userBooks.GetByUserAndBook(ctx, cmd.UserID, cmd.BookID)
	if err != nil {
		return nil, err
	}

	wasRead := ub.Status == domain.StatusRead

	if err := ub.ChangeStatus(cmd.Status, cmd.DNFReason); err != nil {
		return nil, err
	}

	if err := s.userBooks.Update(ctx, ub); err != nil {
		return nil, err
	}

	// Un livre terminé alimente le fil d'activité des amis
	if cmd.Status == domain.StatusRead && !wasRead {
		_ = s.broker.PublishActivity(ctx, &domain.ActivityItem{
			ID:         uuid.NewString(),
			Type:       domain.ActivityBookFinished,
			UserID:     cmd.UserID,
			BookID:     cmd.BookID,
			OccurredAt: time.Now().UTC(),
		})
	}

	return ub, nil
}

func (s *ShelfService) UpdateProgress(ctx context.Context, cmd ports.UpdateProgressCmd) (*domain.UserBook, error) {
	ub, err := s.userBooks.GetByUserAndBook(ctx, cmd.UserID, cmd.BookID)
	if err != nil {
		return nil, err
	}

	if cmd.CurrentPage != nil {
		if *cmd.CurrentPage < 0 {
			return nil, domain.ErrInvalidProgress
		}
		ub.CurrentPage = *cmd.CurrentPage
	}
	if cmd.CurrentSeconds != nil {
		if *cmd.CurrentSeconds < 0 {
			return nil, domain.ErrInvalidProgress
		}
		ub.CurrentSeconds = *cmd.CurrentSeconds
	}
	if cmd.PageCountOverride != nil {
		ub.PageCountOverride = cmd.PageCountOverride
	}
	if cmd.AudioLengthOverride != nil {
		ub.AudioLengthOverride = cmd.AudioLengthOverride
	}
	if cmd.Rating != nil {
		if *cmd.Rating < 0 || *cmd.Rating > 5 {
			return nil, fmt.Errorf("%w: rating must be between 0 and 5", domain.ErrInvalidProgress)
		}
		ub.Rating = cmd.Rating
	}
	if cmd.Review != nil {
		ub.Review = *cmd.Review
	}
	ub.UpdatedAt = time.Now().UTC()

	if err := s.userBooks.Update(ctx, ub); err != nil {
		return nil, err
	}
	return ub, nil
}

// enrichBooks : batch fetch tolérant aux pannes du catalogue.
func (s *ShelfService) enrichBooks(ctx context.Context, ids []int64) map[int64]*domain.BookSummary {
	if len(ids) == 0 {
		return map[int64]*domain.BookSummary{}
	}

	summaries, err := s.books.GetBooks(ctx, ids)
	if err != nil {
		slog.Warn("⚠️ Batch book enrichment failed", "count", len(ids), "error", err)
		return map[int64]*domain.BookSummary{}
	}
	return summaries
}

func bookIDs(userBooks []*domain.UserBook) []int64 {
	seen := make(map[int64]struct{}, len(userBooks))
	ids := make([]int64, 0, len(userBooks))
	for _, ub := range userBooks {
		if _, ok := seen[ub.BookID]; !ok {
			seen[ub.BookID] = struct{}{}
			ids = append(ids, ub.BookID)
		}
	}
	return ids
}
