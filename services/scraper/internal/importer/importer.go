package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safegergis/tome/services/scraper/internal/hardcover"
)

const (
	externalSource = "hardcover"

	// Un tag "Genre" doit être porté par au moins ce nombre de lecteurs
	// pour être retenu (filtre le bruit des tags personnels).
	genreMinCount = 10
)

var (
	errSkipped       = errors.New("edition skipped")
	errNoEdition     = errors.New("no physical edition")
	errBadISBN       = errors.New("missing or invalid ISBNs")
	errDuplicateISBN = errors.New("isbn already in catalog")
	errNotEnglish    = errors.New("non-english edition")
	errMissingTitle  = errors.New("missing title")
)

// Importer déverse les lots Hardcover dans le schéma content. Les écritures
// se font directement en SQL, hors du chemin HTTP de content-service.
type Importer struct {
	db     *pgxpool.Pool
	client *hardcover.Client
	runs   *RunStore

	batchSize   int
	targetLimit int
}

func New(db *pgxpool.Pool, client *hardcover.Client, runs *RunStore, batchSize, targetLimit int) *Importer {
	return &Importer{
		db:          db,
		client:      client,
		runs:        runs,
		batchSize:   batchSize,
		targetLimit: targetLimit,
	}
}

// Run : boucle principale. Reprend un run interrompu s'il en existe un,
// s'arrête proprement sur annulation du contexte (statut stopped, reprise
// au prochain démarrage) ou une fois targetLimit éditions importées.
func (imp *Importer) Run(ctx context.Context) error {
	offset := 0
	var resumeID *int64

	if previous, err := imp.runs.GetResumableRun(ctx); err != nil {
		return fmt.Errorf("lookup resumable run: %w", err)
	} else if previous != nil {
		resumeID = &previous.ID
		offset = previous.LastOffset
		slog.Info("🚀 Resuming scraper run", "run_id", previous.ID, "offset", offset)
	} else {
		slog.Info("🚀 Starting fresh scraper run", "target", imp.targetLimit)
	}

	runID, err := imp.runs.StartRun(ctx, resumeID)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}

	totalImported := 0
	for {
		select {
		case <-ctx.Done():
			_ = imp.endRun(runID, RunStatusStopped, "stopped by signal")
			return nil
		default:
		}

		books, err := imp.client.GetPopularBooks(ctx, imp.batchSize, offset)
		if err != nil {
			if ctx.Err() != nil {
				_ = imp.endRun(runID, RunStatusStopped, "stopped by signal")
				return nil
			}
			_ = imp.runs.LogError(context.Background(), runID, "api_error", nil, "batch", err.Error())
			_ = imp.endRun(runID, RunStatusFailed, err.Error())
			return fmt.Errorf("fetch batch at offset %d: %w", offset, err)
		}

		if len(books) == 0 {
			// Fin du catalogue : on repart du début après une pause
			slog.Info("📨 Catalog exhausted, restarting from offset 0")
			offset = 0
			select {
			case <-ctx.Done():
				_ = imp.endRun(runID, RunStatusStopped, "stopped by signal")
				return nil
			case <-time.After(time.Minute):
			}
			continue
		}

		stats := imp.processBatch(ctx, runID, books)
		offset += imp.batchSize
		stats.LastOffset = offset

		if err := imp.runs.RecordBatch(ctx, runID, stats); err != nil {
			slog.Warn("⚠️ Failed to record batch stats", "run_id", runID, "error", err)
		}

		totalImported += stats.EditionsImported
		slog.Info("✅ Batch done",
			"offset", offset,
			"imported", stats.EditionsImported,
			"errors", stats.Errors,
			"total", totalImported,
		)

		if totalImported >= imp.targetLimit {
			slog.Info("🛑 Target reached", "imported", totalImported)
			return imp.endRun(runID, RunStatusCompleted,
				fmt.Sprintf("imported %d editions", totalImported))
		}
	}
}

func (imp *Importer) endRun(runID int64, status, notes string) error {
	// Contexte neuf : le contexte du run est déjà annulé à l'arrêt
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return imp.runs.EndRun(ctx, runID, status, notes)
}

func (imp *Importer) processBatch(ctx context.Context, runID int64, books []hardcover.Book) BatchStats {
	stats := BatchStats{BooksProcessed: len(books)}

	for i := range books {
		book := &books[i]
		stats.LastBookID = &book.ID

		authorsImported, err := imp.importBook(ctx, book)
		if err != nil {
			if errors.Is(err, errSkipped) {
				continue
			}
			stats.Errors++
			editionID := editionIDOf(book)
			_ = imp.runs.LogError(ctx, runID, "import_error", editionID, "edition", err.Error())
			continue
		}
		stats.EditionsImported++
		stats.AuthorsImported += authorsImported
	}
	return stats
}

func editionIDOf(b *hardcover.Book) *int64 {
	if b.Edition == nil {
		return nil
	}
	return &b.Edition.ID
}

// importBook valide puis insère une édition et ses relations dans une
// transaction. Retourne errSkipped (enrobé) pour les cas attendus : pas
// d'édition physique, déjà importé, ISBN invalides ou déjà au catalogue,
// langue non anglaise.
func (imp *Importer) importBook(ctx context.Context, book *hardcover.Book) (int, error) {
	edition := book.Edition
	if edition == nil {
		return 0, fmt.Errorf("%w: %w", errSkipped, errNoEdition)
	}

	exists, err := imp.editionExists(ctx, edition.ID)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, errSkipped
	}

	title := strings.TrimSpace(edition.Title)
	if title == "" {
		return 0, fmt.Errorf("%w: %w", errSkipped, errMissingTitle)
	}

	isbn10 := validISBN(edition.ISBN10, 10)
	isbn13 := validISBN(edition.ISBN13, 13)
	if isbn10 == nil && isbn13 == nil {
		return 0, fmt.Errorf("%w: %w", errSkipped, errBadISBN)
	}

	// Hardcover expose parfois la même édition sous plusieurs IDs :
	// un ISBN déjà présent dans le catalogue vaut doublon, quel que
	// soit l'external_id.
	dup, err := imp.isbnExists(ctx, isbn10, isbn13)
	if err != nil {
		return 0, err
	}
	if dup {
		return 0, fmt.Errorf("%w: %w", errSkipped, errDuplicateISBN)
	}

	if edition.Language != nil {
		lang := strings.ToLower(edition.Language.Language)
		if lang != "english" && lang != "en" {
			return 0, fmt.Errorf("%w: %w (%s)", errSkipped, errNotEnglish, lang)
		}
	}

	tx, err := imp.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	bookID, err := imp.insertBook(ctx, tx, book, title, isbn10, isbn13)
	if err != nil {
		return 0, err
	}

	authorsImported, err := imp.linkAuthors(ctx, tx, bookID, edition.Authors)
	if err != nil {
		return 0, err
	}

	if err := imp.linkGenres(ctx, tx, bookID, book.Genres(genreMinCount)); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	slog.Debug("✅ Imported edition", "title", title, "hardcover_id", edition.ID)
	return authorsImported, nil
}

func (imp *Importer) editionExists(ctx context.Context, editionID int64) (bool, error) {
	var exists bool
	err := imp.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE external_source = $1 AND external_id = $2)`,
		externalSource, strconv.FormatInt(editionID, 10),
	).Scan(&exists)
	return exists, err
}

func (imp *Importer) isbnExists(ctx context.Context, isbn10, isbn13 *string) (bool, error) {
	var exists bool
	err := imp.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM books
			WHERE (isbn_10 = $1 AND $1 IS NOT NULL)
			   OR (isbn_13 = $2 AND $2 IS NOT NULL)
		)`, isbn10, isbn13,
	).Scan(&exists)
	return exists, err
}

func (imp *Importer) insertBook(ctx context.Context, tx pgx.Tx, book *hardcover.Book, title string, isbn10, isbn13 *string) (int64, error) {
	edition := book.Edition

	query := `
		INSERT INTO books (title, subtitle, description, isbn_10, isbn_13,
			page_count, release_date, publisher, language,
			external_id, external_source, created_at, updated_at)
		VALUES (@title, @subtitle, @description, @isbn_10, @isbn_13,
			@page_count, @release_date, @publisher, @language,
			@external_id, @external_source, NOW(), NOW())
		RETURNING id`

	var publisher *string
	if edition.Publisher != nil && edition.Publisher.Name != "" {
		publisher = &edition.Publisher.Name
	}

	var pages *int
	if edition.Pages > 0 {
		pages = &edition.Pages
	}

	var releaseDate *time.Time
	if edition.ReleaseDate != "" {
		if parsed, err := time.Parse("2006-01-02", edition.ReleaseDate); err == nil {
			releaseDate = &parsed
		}
	}

	var description *string
	if d := strings.TrimSpace(book.Description); d != "" {
		description = &d
	}
	var subtitle *string
	if s := strings.TrimSpace(edition.Subtitle); s != "" {
		subtitle = &s
	}

	var bookID int64
	err := tx.QueryRow(ctx, query, pgx.NamedArgs{
		"title":           title,
		"subtitle":        subtitle,
		"description":     description,
		"isbn_10":         isbn10,
		"isbn_13":         isbn13,
		"page_count":      pages,
		"release_date":    releaseDate,
		"publisher":       publisher,
		"language":        "en",
		"external_id":     strconv.FormatInt(edition.ID, 10),
		"external_source": externalSource,
	}).Scan(&bookID)
	if err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}
	return bookID, nil
}

// linkAuthors : get-or-create par external_id puis liaison. Les auteurs
// sans biographie sont ignorés, comme les contributions vides.
func (imp *Importer) linkAuthors(ctx context.Context, tx pgx.Tx, bookID int64, contributions []hardcover.Contribution) (int, error) {
	imported := 0
	for _, contribution := range contributions {
		author := contribution.Author
		if author == nil || author.Bio == "" {
			continue
		}

		authorID, err := imp.getOrCreateAuthor(ctx, tx, author)
		if err != nil {
			return imported, err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO book_authors (book_id, author_id)
			VALUES ($1, $2)
			ON CONFLICT (book_id, author_id) DO NOTHING`,
			bookID, authorID)
		if err != nil {
			return imported, fmt.Errorf("link author %d: %w", authorID, err)
		}
		imported++
	}
	return imported, nil
}

func (imp *Importer) getOrCreateAuthor(ctx context.Context, tx pgx.Tx, author *hardcover.Author) (int64, error) {
	externalID := strconv.FormatInt(author.ID, 10)

	var id int64
	err := tx.QueryRow(ctx,
		`SELECT id FROM authors WHERE external_id = $1`, externalID,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO authors (name, bio, external_id, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id`,
		author.Name, author.Bio, externalID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create author %q: %w", author.Name, err)
	}
	return id, nil
}

func (imp *Importer) linkGenres(ctx context.Context, tx pgx.Tx, bookID int64, genres []string) error {
	for _, name := range genres {
		slug := slugify(name)

		var genreID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO genres (name, slug)
			VALUES ($1, $2)
			ON CONFLICT (slug) DO UPDATE SET name = genres.name
			RETURNING id`,
			name, slug,
		).Scan(&genreID)
		if err != nil {
			return fmt.Errorf("upsert genre %q: %w", name, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO book_genres (book_id, genre_id)
			VALUES ($1, $2)
			ON CONFLICT (book_id, genre_id) DO NOTHING`,
			bookID, genreID)
		if err != nil {
			return fmt.Errorf("link genre %q: %w", name, err)
		}
	}
	return nil
}

// validISBN normalise un ISBN : exactement n chiffres, sinon nil.
func validISBN(raw string, n int) *string {
	isbn := strings.TrimSpace(raw)
	if len(isbn) != n {
		return nil
	}
	for _, r := range isbn {
		if r < '0' || r > '9' {
			return nil
		}
	}
	return &isbn
}

// slugify doit produire les mêmes slugs que content-service pour que les
// genres convergent sur la contrainte unique.
func slugify(s string) string {
	slug := strings.ToLower(strings.TrimSpace(s))
	slug = strings.ReplaceAll(slug, " ", "-")

	var b strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
