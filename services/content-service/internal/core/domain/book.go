package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrAuthorNotFound = errors.New("author not found")
	ErrGenreNotFound  = errors.New("genre not found")
	ErrDuplicateBook  = errors.New("book already exists for this external source")
	ErrInvalidBook    = errors.New("invalid book data")
)

// Book est l'agrégat central du catalogue. Un livre peut venir d'une saisie
// manuelle ou d'une source externe (Hardcover) ; dans ce dernier cas le
// couple (ExternalSource, ExternalID) est unique.
type Book struct {
	ID                 int64
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
	ExternalID         string
	ExternalSource     string
	Rating             float64
	RatingsCount       int
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Relations chargées à la demande (pas toujours remplies)
	Authors []Author
	Genres  []Genre
}

func NewBook(title string) (*Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidBook
	}

	now := time.Now().UTC()
	return &Book{
		Title:     title,
		Language:  "en",
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (b *Book) Touch() {
	b.UpdatedAt = time.Now().UTC()
}

// IsExternal indique si le livre est rattaché à une source externe.
func (b *Book) IsExternal() bool {
	return b.ExternalSource != "" && b.ExternalID != ""
}

type Author struct {
	ID         int64
	Name       string
	Bio        string
	ImageURL   string
	ExternalID string
	CreatedAt  time.Time
}

type Genre struct {
	ID   int64
	Name string
	Slug string
}

// NormalizeISBN retire tirets et espaces ("978-0-441-17271-9" -> "9780441172719").
func NormalizeISBN(isbn string) string {
	isbn = strings.TrimSpace(isbn)
	isbn = strings.ReplaceAll(isbn, "-", "")
	return strings.ReplaceAll(isbn, " ", "")
}

// Slugify normalise un nom de genre en slug URL ("Science Fiction" -> "science-fiction").
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")

	var b strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
