package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safegergis/tome/services/content-service/internal/core/domain"
	"github.com/safegergis/tome/services/content-service/internal/core/ports"
)

// PostgresBookRepository implémente ports.BookRepository.
type PostgresBookRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookRepository(db *pgxpool.Pool) *PostgresBookRepository {
	return &PostgresBookRepository{db: db}
}

type sqlBook struct {
	ID                 int64
	Title              string
	Subtitle           *string
	Description        *string
	ISBN10             *string
	ISBN13             *string
	CoverURL           *string
	PageCount          *int
	AudioLengthSeconds *int
	ReleaseDate        *time.Time
	Publisher          *string
	Language           *string
	ExternalID         *string
	ExternalSource     *string
	Rating             *float64
	RatingsCount       *int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (b sqlBook) toDomain() *domain.Book {
	book := &domain.Book{
		ID:          b.ID,
		Title:       b.Title,
		ReleaseDate: b.ReleaseDate,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	// Colonnes nullables -> zéro values côté domaine
	if b.Subtitle != nil {
		book.Subtitle = *b.Subtitle
	}
	if b.Description != nil {
		book.Description = *b.Description
	}
	if b.ISBN10 != nil {
		book.ISBN10 = *b.ISBN10
	}
	if b.ISBN13 != nil {
		book.ISBN13 = *b.ISBN13
	}
	if b.CoverURL != nil {
		book.CoverURL = *b.CoverURL
	}
	if b.PageCount != nil {
		book.PageCount = *b.PageCount
	}
	if b.AudioLengthSeconds != nil {
		book.AudioLengthSeconds = *b.AudioLengthSeconds
	}
	if b.Publisher != nil {
		book.Publisher = *b.Publisher
	}
	if b.Language != nil {
		book.Language = *b.Language
	}
	if b.ExternalID != nil {
		book.ExternalID = *b.ExternalID
	}
	if b.ExternalSource != nil {
		book.ExternalSource = *b.ExternalSource
	}
	if b.Rating != nil {
		book.Rating = *b.Rating
	}
	if b.RatingsCount != nil {
		book.RatingsCount = *b.RatingsCount
	}
	return book
}

const bookColumns = `id, title, subtitle, description, isbn_10, isbn_13, cover_url,
	page_count, audio_length_seconds, release_date, publisher, language,
	external_id, external_source, rating, ratings_count, created_at, updated_at`

func scanBook(row pgx.Row) (*domain.Book, error) {
	var b sqlBook
	err := row.Scan(&b.ID, &b.Title, &b.Subtitle, &b.Description, &b.ISBN10, &b.ISBN13,
		&b.CoverURL, &b.PageCount, &b.AudioLengthSeconds, &b.ReleaseDate, &b.Publisher,
		&b.Language, &b.ExternalID, &b.ExternalSource, &b.Rating, &b.RatingsCount,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookNotFound
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return b.toDomain(), nil
}

func collectBooks(rows pgx.Rows) ([]*domain.Book, error) {
	defer rows.Close()
	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullIfZero(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func (r *PostgresBookRepository) Save(ctx context.Context, book *domain.Book) error {
	query := `
		INSERT INTO books (title, subtitle, description, isbn_10, isbn_13, cover_url,
			page_count, audio_length_seconds, release_date, publisher, language,
			external_id, external_source, rating, ratings_count, created_at, updated_at)
		VALUES (@title, @subtitle, @description, @isbn_10, @isbn_13, @cover_url,
			@page_count, @audio_length_seconds, @release_date, @publisher, @language,
			@external_id, @external_source, @rating, @ratings_count, @created_at, @updated_at)
		RETURNING id`

	args := pgx.NamedArgs{
		"title":                book.Title,
		"subtitle":             nullIfEmpty(book.Subtitle),
		"description":          nullIfEmpty(book.Description),
		"isbn_10":              nullIfEmpty(book.ISBN10),
		"isbn_13":              nullIfEmpty(book.ISBN13),
		"cover_url":            nullIfEmpty(book.CoverURL),
		"page_count":           nullIfZero(book.PageCount),
		"audio_length_seconds": nullIfZero(book.AudioLengthSeconds),
		"release_date":         book.ReleaseDate,
		"publisher":            nullIfEmpty(book.Publisher),
		"language":             nullIfEmpty(book.Language),
		"external_id":          nullIfEmpty(book.ExternalID),
		"external_source":      nullIfEmpty(book.ExternalSource),
		"rating":               book.Rating,
		"ratings_count":        book.RatingsCount,
		"created_at":           book.CreatedAt,
		"updated_at":           book.UpdatedAt,
	}

	err := r.db.QueryRow(ctx, query, args).Scan(&book.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateBook
		}
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *PostgresBookRepository) Update(ctx context.Context, book *domain.Book) error {
	query := `
		UPDATE books
		SET title = @title, subtitle = @subtitle, description = @description,
		    cover_url = @cover_url, page_count = @page_count,
		    audio_length_seconds = @audio_length_seconds, publisher = @publisher,
		    rating = @rating, ratings_count = @ratings_count, updated_at = @updated_at
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, query, pgx.NamedArgs{
		"id":                   book.ID,
		"title":                book.Title,
		"subtitle":             nullIfEmpty(book.Subtitle),
		"description":          nullIfEmpty(book.Description),
		"cover_url":            nullIfEmpty(book.CoverURL),
		"page_count":           nullIfZero(book.PageCount),
		"audio_length_seconds": nullIfZero(book.AudioLengthSeconds),
		"publisher":            nullIfEmpty(book.Publisher),
		"rating":               book.Rating,
		"ratings_count":        book.RatingsCount,
		"updated_at":           book.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

func (r *PostgresBookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	book, err := scanBook(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (r *PostgresBookRepository) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query books by ids: %w", err)
	}
	return collectBooks(rows)
}

func (r *PostgresBookRepository) GetByExternalID(ctx context.Context, source, externalID string) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE external_source = $1 AND external_id = $2`
	return scanBook(r.db.QueryRow(ctx, query, source, externalID))
}

func (r *PostgresBookRepository) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE isbn_10 = $1 OR isbn_13 = $1 LIMIT 1`
	return scanBook(r.db.QueryRow(ctx, query, isbn))
}

// Browse : parcours filtré du catalogue, les livres les plus notés d'abord.
func (r *PostgresBookRepository) Browse(ctx context.Context, filter ports.BrowseFilter, limit, offset int) ([]*domain.Book, error) {
	query := `
		SELECT ` + bookColumns + `
		FROM books
		WHERE (@publisher = '' OR publisher = @publisher)
		  AND (@language = '' OR language = @language)
		ORDER BY ratings_count DESC NULLS LAST, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, query, pgx.NamedArgs{
		"publisher": filter.Publisher,
		"language":  filter.Language,
		"limit":     limit,
		"offset":    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("browse books: %w", err)
	}
	return collectBooks(rows)
}

// Search : ILIKE sur titre et auteurs. Suffisant pour le volume attendu,
// un index trigram (pg_trgm) est posé par les migrations.
func (r *PostgresBookRepository) Search(ctx context.Context, q string, limit, offset int) ([]*domain.Book, error) {
	query := `
		SELECT DISTINCT ` + prefixColumns("b") + `
		FROM books b
		LEFT JOIN book_authors ba ON ba.book_id = b.id
		LEFT JOIN authors a ON a.id = ba.author_id
		WHERE b.title ILIKE @pattern OR a.name ILIKE @pattern
		ORDER BY b.ratings_count DESC NULLS LAST, b.id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, query, pgx.NamedArgs{
		"pattern": "%" + q + "%",
		"limit":   limit,
		"offset":  offset,
	})
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return collectBooks(rows)
}

func (r *PostgresBookRepository) GetByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]*domain.Book, error) {
	query := `
		SELECT ` + prefixColumns("b") + `
		FROM books b
		JOIN book_authors ba ON ba.book_id = b.id
		WHERE ba.author_id = $1
		ORDER BY b.release_date DESC NULLS LAST
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, authorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query books by author: %w", err)
	}
	return collectBooks(rows)
}

func (r *PostgresBookRepository) GetByGenre(ctx context.Context, slug string, limit, offset int) ([]*domain.Book, error) {
	query := `
		SELECT ` + prefixColumns("b") + `
		FROM books b
		JOIN book_genres bg ON bg.book_id = b.id
		JOIN genres g ON g.id = bg.genre_id
		WHERE g.slug = $1
		ORDER BY b.ratings_count DESC NULLS LAST
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, slug, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query books by genre: %w", err)
	}
	return collectBooks(rows)
}

// SetAuthors remplace les auteurs du livre. Les auteurs inconnus sont créés.
func (r *PostgresBookRepository) SetAuthors(ctx context.Context, bookID int64, names []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM book_authors WHERE book_id = $1`, bookID); err != nil {
		return fmt.Errorf("clear book authors: %w", err)
	}

	for _, name := range names {
		var authorID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO authors (name, created_at) VALUES ($1, NOW())
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, name).Scan(&authorID)
		if err != nil {
			return fmt.Errorf("upsert author %q: %w", name, err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO book_authors (book_id, author_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, bookID, authorID); err != nil {
			return fmt.Errorf("link author: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// SetGenres remplace les genres du livre, créés à la volée par slug.
func (r *PostgresBookRepository) SetGenres(ctx context.Context, bookID int64, names []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM book_genres WHERE book_id = $1`, bookID); err != nil {
		return fmt.Errorf("clear book genres: %w", err)
	}

	for _, name := range names {
		slug := domain.Slugify(name)
		if slug == "" {
			continue
		}

		var genreID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO genres (name, slug) VALUES ($1, $2)
			ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
			RETURNING id`, name, slug).Scan(&genreID)
		if err != nil {
			return fmt.Errorf("upsert genre %q: %w", name, err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO book_genres (book_id, genre_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, bookID, genreID); err != nil {
			return fmt.Errorf("link genre: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// loadRelations remplit Authors et Genres pour une lecture unitaire.
func (r *PostgresBookRepository) loadRelations(ctx context.Context, book *domain.Book) error {
	authorRows, err := r.db.Query(ctx, `
		SELECT a.id, a.name, COALESCE(a.bio, ''), COALESCE(a.image_url, ''), COALESCE(a.external_id, ''), a.created_at
		FROM authors a
		JOIN book_authors ba ON ba.author_id = a.id
		WHERE ba.book_id = $1
		ORDER BY a.name`, book.ID)
	if err != nil {
		return fmt.Errorf("load book authors: %w", err)
	}
	defer authorRows.Close()

	for authorRows.Next() {
		var a domain.Author
		if err := authorRows.Scan(&a.ID, &a.Name, &a.Bio, &a.ImageURL, &a.ExternalID, &a.CreatedAt); err != nil {
			return err
		}
		book.Authors = append(book.Authors, a)
	}
	if err := authorRows.Err(); err != nil {
		return err
	}

	genreRows, err := r.db.Query(ctx, `
		SELECT g.id, g.name, g.slug
		FROM genres g
		JOIN book_genres bg ON bg.genre_id = g.id
		WHERE bg.book_id = $1
		ORDER BY g.name`, book.ID)
	if err != nil {
		return fmt.Errorf("load book genres: %w", err)
	}
	defer genreRows.Close()

	for genreRows.Next() {
		var g domain.Genre
		if err := genreRows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return err
		}
		book.Genres = append(book.Genres, g)
	}
	return genreRows.Err()
}

// prefixColumns préfixe chaque colonne de bookColumns avec un alias de table.
func prefixColumns(alias string) string {
	return alias + `.id, ` + alias + `.title, ` + alias + `.subtitle, ` + alias + `.description, ` +
		alias + `.isbn_10, ` + alias + `.isbn_13, ` + alias + `.cover_url, ` + alias + `.page_count, ` +
		alias + `.audio_length_seconds, ` + alias + `.release_date, ` + alias + `.publisher, ` +
		alias + `.language, ` + alias + `.external_id, ` + alias + `.external_source, ` +
		alias + `.rating, ` + alias + `.ratings_count, ` + alias + `.created_at, ` + alias + `.updated_at`
}
