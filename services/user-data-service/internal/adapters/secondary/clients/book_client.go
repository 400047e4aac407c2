package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
)

// BookClient interroge content-service avec trois couches de résilience :
// cache Redis (TTL court), circuit breaker, et fallback placeholder quand
// le catalogue est injoignable : une stats ou un feed ne doit jamais
// échouer parce que content-service est down.
type BookClient struct {
	baseURL string
	http    *http.Client
	cache   *redis.Client
	breaker *gobreaker.CircuitBreaker[map[int64]*domain.BookSummary]
	ttl     time.Duration
}

func NewBookClient(baseURL string, cache *redis.Client) *BookClient {
	breaker := gobreaker.NewCircuitBreaker[map[int64]*domain.BookSummary](gobreaker.Settings{
		Name:        "content-service",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("⚡ Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &BookClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cache:   cache,
		breaker: breaker,
		ttl:     10 * time.Minute,
	}
}

func bookCacheKey(id int64) string {
	return fmt.Sprintf("book:summary:%d", id)
}

func (c *BookClient) GetBook(ctx context.Context, bookID int64) (*domain.BookSummary, error) {
	books, err := c.GetBooks(ctx, []int64{bookID})
	if err != nil {
		return nil, err
	}
	if b, ok := books[bookID]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("book %d: %w", bookID, domain.ErrUserBookNotFound)
}

// GetBooks résout d'abord via le cache, puis complète les manquants par un
// appel batch derrière le breaker. En cas d'échec, fallback placeholder.
func (c *BookClient) GetBooks(ctx context.Context, bookIDs []int64) (map[int64]*domain.BookSummary, error) {
	result := make(map[int64]*domain.BookSummary, len(bookIDs))

	missing := c.fromCache(ctx, bookIDs, result)
	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := c.breaker.Execute(func() (map[int64]*domain.BookSummary, error) {
		return c.fetchBatch(ctx, missing)
	})
	if err != nil {
		slog.Warn("⚠️ Content service degraded, serving placeholders", "missing", len(missing), "error", err)
		for _, id := range missing {
			result[id] = fallbackSummary(id)
		}
		return result, nil
	}

	for id, summary := range fetched {
		result[id] = summary
		c.toCache(ctx, summary)
	}
	// Les IDs inconnus du catalogue restent simplement absents
	return result, nil
}

// Invalidate purge l'entrée cache (événement catalog.book.updated).
func (c *BookClient) Invalidate(ctx context.Context, bookID int64) error {
	return c.cache.Del(ctx, bookCacheKey(bookID)).Err()
}

// fallbackSummary : placeholder marqué Degraded, filtré des leaderboards.
func fallbackSummary(id int64) *domain.BookSummary {
	return &domain.BookSummary{
		ID:       id,
		Title:    "Book information temporarily unavailable",
		Degraded: true,
	}
}

func (c *BookClient) fromCache(ctx context.Context, ids []int64, out map[int64]*domain.BookSummary) []int64 {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = bookCacheKey(id)
	}

	values, err := c.cache.MGet(ctx, keys...).Result()
	if err != nil {
		// Cache indisponible : tout passe par l'appel HTTP
		return ids
	}

	var missing []int64
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var summary domain.BookSummary
		if err := json.Unmarshal([]byte(raw), &summary); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		out[ids[i]] = &summary
	}
	return missing
}

func (c *BookClient) toCache(ctx context.Context, summary *domain.BookSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, bookCacheKey(summary.ID), data, c.ttl).Err(); err != nil {
		slog.Debug("Cache write failed", "book_id", summary.ID, "error", err)
	}
}

// --- Wire types du content-service ---

type wireNamedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type wireBook struct {
	ID                 int64          `json:"id"`
	Title              string         `json:"title"`
	CoverURL           string         `json:"coverUrl"`
	PageCount          int            `json:"pageCount"`
	AudioLengthSeconds int            `json:"audioLengthSeconds"`
	Authors            []wireNamedRef `json:"authors"`
	Genres             []wireNamedRef `json:"genres"`
}

type batchResponse struct {
	Books map[string]wireBook `json:"books"`
}

func (c *BookClient) fetchBatch(ctx context.Context, ids []int64) (map[int64]*domain.BookSummary, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	url := fmt.Sprintf("%s/api/books/batch?ids=%s", c.baseURL, strings.Join(parts, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content service call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content service returned %d", resp.StatusCode)
	}

	var body batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}

	out := make(map[int64]*domain.BookSummary, len(body.Books))
	for _, wb := range body.Books {
		summary := &domain.BookSummary{
			ID:                 wb.ID,
			Title:              wb.Title,
			CoverURL:           wb.CoverURL,
			PageCount:          wb.PageCount,
			AudioLengthSeconds: wb.AudioLengthSeconds,
		}
		for _, a := range wb.Authors {
			summary.Authors = append(summary.Authors, domain.NamedRef{ID: a.ID, Name: a.Name})
		}
		for _, g := range wb.Genres {
			summary.Genres = append(summary.Genres, domain.NamedRef{ID: g.ID, Name: g.Name})
		}
		out[wb.ID] = summary
	}
	return out, nil
}
