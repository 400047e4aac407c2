package hardcover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Requête unique : les livres populaires avec leur édition physique par
// défaut, triés par nombre de lecteurs décroissant.
const popularBooksQuery = `
query GetPopularBooksWithEditions($limit: Int! = 100, $offset: Int! = 0) {
    books(
        limit: $limit
        offset: $offset
        order_by: {users_count: desc}
    ) {
        id
        title
        slug
        cached_tags
        description
        default_physical_edition {
            id
            title
            subtitle
            isbn_10
            isbn_13
            pages
            release_date
            release_year
            book_id
            publisher {
                id
                name
            }
            language {
                id
                language
            }
            contributions {
                author {
                    id
                    name
                    bio
                    born_year
                    death_year
                }
            }
        }
    }
}`

// Book : un livre Hardcover avec son édition physique par défaut.
type Book struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	CachedTags  json.RawMessage `json:"cached_tags"`
	Edition     *Edition        `json:"default_physical_edition"`
}

type Edition struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle"`
	ISBN10      string         `json:"isbn_10"`
	ISBN13      string         `json:"isbn_13"`
	Pages       int            `json:"pages"`
	ReleaseDate string         `json:"release_date"`
	ReleaseYear int            `json:"release_year"`
	BookID      int64          `json:"book_id"`
	Publisher   *Publisher     `json:"publisher"`
	Language    *Language      `json:"language"`
	Authors     []Contribution `json:"contributions"`
}

type Publisher struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Language struct {
	ID       int64  `json:"id"`
	Language string `json:"language"`
}

type Contribution struct {
	Author *Author `json:"author"`
}

type Author struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	BornYear  int    `json:"born_year"`
	DeathYear int    `json:"death_year"`
}

// tag : une entrée de cached_tags, catégorie "Genre".
type tag struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Genres extrait les genres de cached_tags : seuls les tags portés par au
// moins minCount lecteurs comptent, le bruit des tags perso est filtré.
func (b *Book) Genres(minCount int) []string {
	if len(b.CachedTags) == 0 {
		return nil
	}

	var tags struct {
		Genre []tag `json:"Genre"`
	}
	if err := json.Unmarshal(b.CachedTags, &tags); err != nil {
		return nil
	}

	var genres []string
	for _, t := range tags.Genre {
		if t.Tag != "" && t.Count >= minCount {
			genres = append(genres, t.Tag)
		}
	}
	return genres
}

// Client interroge l'API GraphQL de Hardcover en respectant sa limite de
// débit. Chaque POST est réessayé en backoff exponentiel.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(baseURL, token string, requestsPerMinute int) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// GetPopularBooks retourne un lot de livres populaires à partir de offset.
func (c *Client) GetPopularBooks(ctx context.Context, limit, offset int) ([]Book, error) {
	payload, err := json.Marshal(graphqlRequest{
		Query:     popularBooksQuery,
		Variables: map[string]any{"limit": limit, "offset": offset},
	})
	if err != nil {
		return nil, err
	}

	operation := func() ([]Book, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		return c.post(ctx, payload)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(5),
	)
}

func (c *Client) post(ctx context.Context, payload []byte) ([]Book, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, backoff.Permanent(fmt.Errorf("hardcover auth rejected: %s", resp.Status))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hardcover returned %s", resp.Status)
	}

	var decoded struct {
		Data struct {
			Books []Book `json:"books"`
		} `json:"data"`
		Errors []graphqlError `json:"errors"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode hardcover response: %w", err))
	}

	if len(decoded.Errors) > 0 {
		slog.Error("❌ GraphQL errors", "first", decoded.Errors[0].Message, "count", len(decoded.Errors))
		return nil, backoff.Permanent(fmt.Errorf("graphql: %s", decoded.Errors[0].Message))
	}

	return decoded.Data.Books, nil
}
