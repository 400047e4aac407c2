package services

import (
	"context"
	"fmt"

	"github.com/safegergis/tome/services/content-service/internal/core/domain"
	"github.com/safegergis/tome/services/content-service/internal/core/ports"
)

// CatalogService implémente ports.CatalogService.
type CatalogService struct {
	books   ports.BookRepository
	authors ports.AuthorRepository
	genres  ports.GenreRepository
	broker  ports.EventPublisher
}

func NewCatalogService(
	books ports.BookRepository,
	authors ports.AuthorRepository,
	genres ports.GenreRepository,
	broker ports.EventPublisher,
) *CatalogService {
	return &CatalogService{
		books:   books,
		authors: authors,
		genres:  genres,
		broker:  broker,
	}
}

func (s *CatalogService) GetBook(ctx context.Context, bookID int64) (*domain.Book, error) {
	return s.books.GetByID(ctx, bookID)
}

// GetBooks : batch fetch pour user-data-service (enrichissement shelf/feed).
func (s *CatalogService) GetBooks(ctx context.Context, bookIDs []int64) (map[int64]*domain.Book, error) {
	if len(bookIDs) == 0 {
		return map[int64]*domain.Book{}, nil
	}

	books, err := s.books.GetByIDs(ctx, bookIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	return byID, nil
}

func (s *CatalogService) GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	isbn = domain.NormalizeISBN(isbn)
	if len(isbn) != 10 && len(isbn) != 13 {
		return nil, domain.ErrBookNotFound
	}
	return s.books.GetByISBN(ctx, isbn)
}

func (s *CatalogService) SearchBooks(ctx context.Context, query string, limit, offset int) ([]*domain.Book, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.books.Search(ctx, query, limit, offset)
}

func (s *CatalogService) BrowseBooks(ctx context.Context, filter ports.BrowseFilter, limit, offset int) ([]*domain.Book, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.books.Browse(ctx, filter, limit, offset)
}

func (s *CatalogService) CreateBook(ctx context.Context, cmd ports.CreateBookCmd) (*domain.Book, error) {
	book, err := domain.NewBook(cmd.Title)
	if err != nil {
		return nil, err
	}

	book.Subtitle = cmd.Subtitle
	book.Description = cmd.Description
	book.ISBN10 = cmd.ISBN10
	book.ISBN13 = cmd.ISBN13
	book.CoverURL = cmd.CoverURL
	book.PageCount = cmd.PageCount
	book.AudioLengthSeconds = cmd.AudioLengthSeconds
	book.ReleaseDate = cmd.ReleaseDate
	book.Publisher = cmd.Publisher
	if cmd.Language != "" {
		book.Language = cmd.Language
	}

	if err := s.books.Save(ctx, book); err != nil {
		return nil, fmt.Errorf("save book: %w", err)
	}

	if err := s.linkRelations(ctx, book, cmd.AuthorNames, cmd.GenreNames); err != nil {
		return nil, err
	}

	// Best effort : le catalogue reste la source de vérité même si NATS est down
	_ = s.broker.PublishBookCreated(ctx, book)

	return s.books.GetByID(ctx, book.ID)
}

func (s *CatalogService) UpdateBook(ctx context.Context, cmd ports.UpdateBookCmd) (*domain.Book, error) {
	book, err := s.books.GetByID(ctx, cmd.BookID)
	if err != nil {
		return nil, err
	}

	if cmd.Title != nil {
		book.Title = *cmd.Title
	}
	if cmd.Subtitle != nil {
		book.Subtitle = *cmd.Subtitle
	}
	if cmd.Description != nil {
		book.Description = *cmd.Description
	}
	if cmd.CoverURL != nil {
		book.CoverURL = *cmd.CoverURL
	}
	if cmd.PageCount != nil {
		book.PageCount = *cmd.PageCount
	}
	if cmd.Publisher != nil {
		book.Publisher = *cmd.Publisher
	}
	book.Touch()

	if err := s.books.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	_ = s.broker.PublishBookUpdated(ctx, book)

	return book, nil
}

// ImportExternalBook : point d'entrée du scraper. Idempotent sur
// (Source, ExternalID) : un livre déjà connu est mis à jour, pas dupliqué.
func (s *CatalogService) ImportExternalBook(ctx context.Context, cmd ports.ImportBookCmd) (*ports.ImportResult, error) {
	if cmd.Source == "" || cmd.ExternalID == "" {
		return nil, domain.ErrInvalidBook
	}

	existing, err := s.books.GetByExternalID(ctx, cmd.Source, cmd.ExternalID)
	if err == nil {
		// Refresh des métadonnées depuis la source
		existing.Title = cmd.Title
		existing.Subtitle = cmd.Subtitle
		existing.Description = cmd.Description
		existing.CoverURL = cmd.CoverURL
		existing.PageCount = cmd.PageCount
		existing.AudioLengthSeconds = cmd.AudioLengthSeconds
		existing.Rating = cmd.Rating
		existing.RatingsCount = cmd.RatingsCount
		existing.Touch()

		if err := s.books.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("refresh imported book: %w", err)
		}
		if err := s.linkRelations(ctx, existing, cmd.AuthorNames, cmd.GenreNames); err != nil {
			return nil, err
		}

		_ = s.broker.PublishBookUpdated(ctx, existing)
		return &ports.ImportResult{Book: existing, Created: false}, nil
	}

	book, err := domain.NewBook(cmd.Title)
	if err != nil {
		return nil, err
	}
	book.Subtitle = cmd.Subtitle
	book.Description = cmd.Description
	book.ISBN10 = cmd.ISBN10
	book.ISBN13 = cmd.ISBN13
	book.CoverURL = cmd.CoverURL
	book.PageCount = cmd.PageCount
	book.AudioLengthSeconds = cmd.AudioLengthSeconds
	book.ReleaseDate = cmd.ReleaseDate
	book.Rating = cmd.Rating
	book.RatingsCount = cmd.RatingsCount
	book.ExternalSource = cmd.Source
	book.ExternalID = cmd.ExternalID

	if err := s.books.Save(ctx, book); err != nil {
		return nil, fmt.Errorf("save imported book: %w", err)
	}
	if err := s.linkRelations(ctx, book, cmd.AuthorNames, cmd.GenreNames); err != nil {
		return nil, err
	}

	_ = s.broker.PublishBookCreated(ctx, book)
	return &ports.ImportResult{Book: book, Created: true}, nil
}

func (s *CatalogService) linkRelations(ctx context.Context, book *domain.Book, authorNames, genreNames []string) error {
	if len(authorNames) > 0 {
		if err := s.books.SetAuthors(ctx, book.ID, authorNames); err != nil {
			return fmt.Errorf("link authors: %w", err)
		}
	}
	if len(genreNames) > 0 {
		if err := s.books.SetGenres(ctx, book.ID, genreNames); err != nil {
			return fmt.Errorf("link genres: %w", err)
		}
	}
	return nil
}

func (s *CatalogService) GetAuthor(ctx context.Context, authorID int64) (*domain.Author, error) {
	return s.authors.GetByID(ctx, authorID)
}

func (s *CatalogService) SearchAuthors(ctx context.Context, query string, limit, offset int) ([]*domain.Author, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.authors.Search(ctx, query, limit, offset)
}

func (s *CatalogService) GetBooksByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]*domain.Book, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if _, err := s.authors.GetByID(ctx, authorID); err != nil {
		return nil, err
	}
	return s.books.GetByAuthor(ctx, authorID, limit, offset)
}

func (s *CatalogService) ListGenres(ctx context.Context) ([]*domain.Genre, error) {
	return s.genres.List(ctx)
}

func (s *CatalogService) GetBooksByGenre(ctx context.Context, slug string, limit, offset int) ([]*domain.Book, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.books.GetByGenre(ctx, domain.Slugify(slug), limit, offset)
}
