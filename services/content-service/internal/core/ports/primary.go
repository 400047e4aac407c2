package ports

import (
	"context"
	"time"

	"github.com/safegergis/tome/services/content-service/internal/core/domain"
)

// CreateBookCmd porte les données d'une création manuelle de livre.
type CreateBookCmd struct {
	Title              string
	Subtitle           string
	Description        string
	ISBN10             string
	ISBN13             string
	CoverURL           string
	PageCount          int
	AudioLengthSeconds int
	ReleaseDate        *time.Time
	Publisher          string
	Language           string
	AuthorNames        []string
	GenreNames         []string
}

// UpdateBookCmd : les pointeurs nil signifient "champ inchangé".
type UpdateBookCmd struct {
	BookID      int64
	Title       *string
	Subtitle    *string
	Description *string
	CoverURL    *string
	PageCount   *int
	Publisher   *string
}

// ImportBookCmd porte un livre venant d'une source externe (scraper).
// L'import est idempotent sur (Source, ExternalID).
type ImportBookCmd struct {
	Source             string
	ExternalID         string
	Title              string
	Subtitle           string
	Description        string
	ISBN10             string
	ISBN13             string
	CoverURL           string
	PageCount          int
	AudioLengthSeconds int
	ReleaseDate        *time.Time
	Rating             float64
	RatingsCount       int
	AuthorNames        []string
	GenreNames         []string
}

// ImportResult distingue création et mise à jour pour les compteurs du scraper.
type ImportResult struct {
	Book    *domain.Book
	Created bool
}

// CatalogService est le Primary Port du service de contenu.
type CatalogService interface {
	GetBook(ctx context.Context, bookID int64) (*domain.Book, error)
	GetBooks(ctx context.Context, bookIDs []int64) (map[int64]*domain.Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	SearchBooks(ctx context.Context, query string, limit, offset int) ([]*domain.Book, error)
	BrowseBooks(ctx context.Context, filter BrowseFilter, limit, offset int) ([]*domain.Book, error)
	CreateBook(ctx context.Context, cmd CreateBookCmd) (*domain.Book, error)
	UpdateBook(ctx context.Context, cmd UpdateBookCmd) (*domain.Book, error)
	ImportExternalBook(ctx context.Context, cmd ImportBookCmd) (*ImportResult, error)

	GetAuthor(ctx context.Context, authorID int64) (*domain.Author, error)
	SearchAuthors(ctx context.Context, query string, limit, offset int) ([]*domain.Author, error)
	GetBooksByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]*domain.Book, error)

	ListGenres(ctx context.Context) ([]*domain.Genre, error)
	GetBooksByGenre(ctx context.Context, slug string, limit, offset int) ([]*domain.Book, error)
}
