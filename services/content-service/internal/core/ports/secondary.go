package ports

import (
	"context"

	"github.com/safegergis/tome/services/content-service/internal/core/domain"
)

// BrowseFilter restreint un parcours du catalogue. Les champs vides
// ne filtrent pas.
type BrowseFilter struct {
	Publisher string
	Language  string
}

// BookRepository est le Secondary Port de persistance du catalogue.
type BookRepository interface {
	Save(ctx context.Context, book *domain.Book) error
	Update(ctx context.Context, book *domain.Book) error
	GetByID(ctx context.Context, id int64) (*domain.Book, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.Book, error)
	GetByExternalID(ctx context.Context, source, externalID string) (*domain.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*domain.Book, error)
	Browse(ctx context.Context, filter BrowseFilter, limit, offset int) ([]*domain.Book, error)
	GetByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]*domain.Book, error)
	GetByGenre(ctx context.Context, slug string, limit, offset int) ([]*domain.Book, error)

	// SetAuthors / SetGenres remplacent les liaisons du livre (upsert par nom).
	SetAuthors(ctx context.Context, bookID int64, names []string) error
	SetGenres(ctx context.Context, bookID int64, names []string) error
}

type AuthorRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Author, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*domain.Author, error)
}

type GenreRepository interface {
	List(ctx context.Context) ([]*domain.Genre, error)
}

// EventPublisher notifie les autres services des changements du catalogue.
// user-data-service s'en sert pour invalider son cache de livres.
type EventPublisher interface {
	PublishBookCreated(ctx context.Context, book *domain.Book) error
	PublishBookUpdated(ctx context.Context, book *domain.Book) error
}
