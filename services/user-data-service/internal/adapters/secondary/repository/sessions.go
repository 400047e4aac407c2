package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

type PostgresSessionRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSessionRepository(db *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

type sqlSession struct {
	ID          int64
	UserID      int64
	BookID      int64
	Method      string
	PagesRead   int
	MinutesRead int
	StartPage   *int
	EndPage     *int
	SessionDate time.Time
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s sqlSession) toDomain() *domain.ReadingSession {
	session := &domain.ReadingSession{
		ID:          s.ID,
		UserID:      s.UserID,
		BookID:      s.BookID,
		Method:      domain.ReadingMethod(s.Method),
		PagesRead:   s.PagesRead,
		MinutesRead: s.MinutesRead,
		StartPage:   s.StartPage,
		EndPage:     s.EndPage,
		SessionDate: s.SessionDate,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.Notes != nil {
		session.Notes = *s.Notes
	}
	return session
}

const sessionColumns = `id, user_id, book_id, method, pages_read, minutes_read,
	start_page, end_page, session_date, notes, created_at, updated_at`

func scanSession(row pgx.Row) (*domain.ReadingSession, error) {
	var s sqlSession
	err := row.Scan(&s.ID, &s.UserID, &s.BookID, &s.Method, &s.PagesRead, &s.MinutesRead,
		&s.StartPage, &s.EndPage, &s.SessionDate, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return s.toDomain(), nil
}

func collectSessions(rows pgx.Rows) ([]*domain.ReadingSession, error) {
	defer rows.Close()
	var out []*domain.ReadingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresSessionRepository) Save(ctx context.Context, s *domain.ReadingSession) error {
	query := `
		INSERT INTO reading_sessions (user_id, book_id, method, pages_read, minutes_read,
			start_page, end_page, session_date, notes, created_at, updated_at)
		VALUES (@user_id, @book_id, @method, @pages_read, @minutes_read,
			@start_page, @end_page, @session_date, @notes, @created_at, @updated_at)
		RETURNING id`

	var notes *string
	if s.Notes != "" {
		notes = &s.Notes
	}

	err := r.db.QueryRow(ctx, query, pgx.NamedArgs{
		"user_id":      s.UserID,
		"book_id":      s.BookID,
		"method":       string(s.Method),
		"pages_read":   s.PagesRead,
		"minutes_read": s.MinutesRead,
		"start_page":   s.StartPage,
		"end_page":     s.EndPage,
		"session_date": s.SessionDate,
		"notes":        notes,
		"created_at":   s.CreatedAt,
		"updated_at":   s.UpdatedAt,
	}).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) Update(ctx context.Context, s *domain.ReadingSession) error {
	var notes *string
	if s.Notes != "" {
		notes = &s.Notes
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE reading_sessions
		SET pages_read = @pages_read, minutes_read = @minutes_read, notes = @notes, updated_at = @updated_at
		WHERE id = @id`, pgx.NamedArgs{
		"id":           s.ID,
		"pages_read":   s.PagesRead,
		"minutes_read": s.MinutesRead,
		"notes":        notes,
		"updated_at":   s.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *PostgresSessionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reading_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id int64) (*domain.ReadingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM reading_sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresSessionRepository) GetByUser(ctx context.Context, userID int64, bookID *int64, limit, offset int) ([]*domain.ReadingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM reading_sessions WHERE user_id = @user_id`
	args := pgx.NamedArgs{"user_id": userID, "limit": limit, "offset": offset}

	if bookID != nil {
		query += ` AND book_id = @book_id`
		args["book_id"] = *bookID
	}
	query += ` ORDER BY session_date DESC, id DESC LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	return collectSessions(rows)
}

func (r *PostgresSessionRepository) GetRecentByUsers(ctx context.Context, userIDs []int64, limit int) ([]*domain.ReadingSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM reading_sessions
		WHERE user_id = ANY($1)
		ORDER BY session_date DESC, id DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	return collectSessions(rows)
}

// --- Agrégations statistiques ---

func (r *PostgresSessionRepository) GetDistinctDates(ctx context.Context, userID int64) ([]time.Time, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT session_date::date
		FROM reading_sessions
		WHERE user_id = $1
		ORDER BY session_date::date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query session dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (r *PostgresSessionRepository) GetRecentMethods(ctx context.Context, userID int64, n int) ([]domain.ReadingMethod, error) {
	rows, err := r.db.Query(ctx, `
		SELECT method
		FROM reading_sessions
		WHERE user_id = $1
		ORDER BY session_date DESC, id DESC
		LIMIT $2`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("query recent methods: %w", err)
	}
	defer rows.Close()

	var methods []domain.ReadingMethod
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		methods = append(methods, domain.ReadingMethod(m))
	}
	return methods, rows.Err()
}

func (r *PostgresSessionRepository) GetTotals(ctx context.Context, userID int64) (pages, minutes, sessions int, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(pages_read), 0), COALESCE(SUM(minutes_read), 0), COUNT(*)
		FROM reading_sessions
		WHERE user_id = $1`, userID).Scan(&pages, &minutes, &sessions)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("query session totals: %w", err)
	}
	return pages, minutes, sessions, nil
}

// GetTimeSeries : DATE_TRUNC côté SQL, buckets chronologiques, pas
// d'interpolation des périodes sans session.
func (r *PostgresSessionRepository) GetTimeSeries(ctx context.Context, userID int64, period ports.TimeSeriesPeriod) ([]domain.TimeBucket, error) {
	trunc := "week"
	switch period {
	case ports.PeriodMonth:
		trunc = "month"
	case ports.PeriodYear:
		trunc = "year"
	}

	query := fmt.Sprintf(`
		SELECT DATE_TRUNC('%s', session_date) AS bucket,
		       COALESCE(SUM(pages_read), 0),
		       COALESCE(SUM(minutes_read), 0),
		       COUNT(*)
		FROM reading_sessions
		WHERE user_id = $1
		GROUP BY bucket
		ORDER BY bucket`, trunc)

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query time series: %w", err)
	}
	defer rows.Close()

	buckets := []domain.TimeBucket{}
	for rows.Next() {
		var b domain.TimeBucket
		if err := rows.Scan(&b.Period, &b.Pages, &b.Minutes, &b.Sessions); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// GetMethodBreakdown : agrégats par méthode, triés par nom de méthode pour
// un ordre de lignes déterministe.
func (r *PostgresSessionRepository) GetMethodBreakdown(ctx context.Context, userID int64) ([]domain.MethodStats, error) {
	rows, err := r.db.Query(ctx, `
		SELECT method,
		       COUNT(DISTINCT book_id),
		       COALESCE(SUM(pages_read), 0),
		       COALESCE(SUM(minutes_read), 0),
		       COUNT(*)
		FROM reading_sessions
		WHERE user_id = $1
		GROUP BY method
		ORDER BY method`, userID)
	if err != nil {
		return nil, fmt.Errorf("query method breakdown: %w", err)
	}
	defer rows.Close()

	stats := []domain.MethodStats{}
	for rows.Next() {
		var s domain.MethodStats
		var method string
		if err := rows.Scan(&method, &s.BooksTouched, &s.PagesRead, &s.MinutesRead, &s.Sessions); err != nil {
			return nil, err
		}
		s.Method = domain.ReadingMethod(method)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
