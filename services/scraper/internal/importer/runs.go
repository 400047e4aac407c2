package importer

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run : une exécution du scraper, reprise possible après arrêt.
type Run struct {
	ID               int64
	Status           string
	LastOffset       int
	LastBookID       *int64
	BooksProcessed   int
	EditionsImported int
	AuthorsImported  int
	ErrorsCount      int
	StartedAt        time.Time
	EndedAt          *time.Time
	Notes            string
}

const (
	RunStatusRunning   = "running"
	RunStatusStopped   = "stopped"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunStore journalise les runs et leurs erreurs dans les tables
// scraper_runs / scraper_errors.
type RunStore struct {
	db *pgxpool.Pool
}

func NewRunStore(db *pgxpool.Pool) *RunStore {
	return &RunStore{db: db}
}

// GetResumableRun retourne le dernier run interrompu (running ou stopped),
// nil s'il n'y en a pas.
func (s *RunStore) GetResumableRun(ctx context.Context) (*Run, error) {
	query := `
		SELECT id, status, last_offset, last_hardcover_book_id
		FROM scraper_runs
		WHERE status IN ('running', 'stopped')
		ORDER BY started_at DESC
		LIMIT 1`

	var run Run
	err := s.db.QueryRow(ctx, query).Scan(&run.ID, &run.Status, &run.LastOffset, &run.LastBookID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// StartRun crée un nouveau run, ou remet un run interrompu en running.
func (s *RunStore) StartRun(ctx context.Context, resumeID *int64) (int64, error) {
	if resumeID != nil {
		query := `
			UPDATE scraper_runs
			SET status = 'running', started_at = NOW()
			WHERE id = @id
			RETURNING id`

		var id int64
		if err := s.db.QueryRow(ctx, query, pgx.NamedArgs{"id": *resumeID}).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	var id int64
	err := s.db.QueryRow(ctx, `INSERT INTO scraper_runs (status) VALUES ('running') RETURNING id`).Scan(&id)
	return id, err
}

// EndRun clôt le run avec son statut final.
func (s *RunStore) EndRun(ctx context.Context, runID int64, status, notes string) error {
	query := `
		UPDATE scraper_runs
		SET ended_at = NOW(), status = @status, notes = @notes
		WHERE id = @id`

	_, err := s.db.Exec(ctx, query, pgx.NamedArgs{
		"id":     runID,
		"status": status,
		"notes":  notes,
	})
	return err
}

// BatchStats : compteurs incrémentaux d'un lot.
type BatchStats struct {
	BooksProcessed   int
	EditionsImported int
	AuthorsImported  int
	Errors           int
	LastBookID       *int64
	LastOffset       int
}

// RecordBatch accumule les compteurs du lot et avance le point de reprise.
func (s *RunStore) RecordBatch(ctx context.Context, runID int64, stats BatchStats) error {
	query := `
		UPDATE scraper_runs
		SET books_processed = books_processed + @books,
		    editions_imported = editions_imported + @editions,
		    authors_imported = authors_imported + @authors,
		    errors_count = errors_count + @errors,
		    last_hardcover_book_id = COALESCE(@last_book_id, last_hardcover_book_id),
		    last_offset = @last_offset
		WHERE id = @id`

	_, err := s.db.Exec(ctx, query, pgx.NamedArgs{
		"id":           runID,
		"books":        stats.BooksProcessed,
		"editions":     stats.EditionsImported,
		"authors":      stats.AuthorsImported,
		"errors":       stats.Errors,
		"last_book_id": stats.LastBookID,
		"last_offset":  stats.LastOffset,
	})
	return err
}

// LogError trace une erreur d'import sans interrompre le run.
func (s *RunStore) LogError(ctx context.Context, runID int64, errorType string, hardcoverID *int64, hardcoverType, message string) error {
	query := `
		INSERT INTO scraper_errors (scraper_run_id, error_type, hardcover_id, hardcover_type, error_message)
		VALUES (@run_id, @error_type, @hardcover_id, @hardcover_type, @message)`

	_, err := s.db.Exec(ctx, query, pgx.NamedArgs{
		"run_id":         runID,
		"error_type":     errorType,
		"hardcover_id":   hardcoverID,
		"hardcover_type": hardcoverType,
		"message":        message,
	})
	return err
}
