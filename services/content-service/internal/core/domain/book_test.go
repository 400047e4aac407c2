package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBook(t *testing.T) {
	book, err := NewBook("  The Left Hand of Darkness  ")
	require.NoError(t, err)

	assert.Equal(t, "The Left Hand of Darkness", book.Title)
	assert.Equal(t, "en", book.Language)
	assert.False(t, book.IsExternal())

	_, err = NewBook("   ")
	assert.ErrorIs(t, err, ErrInvalidBook)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Science Fiction", "science-fiction"},
		{"LGBTQ+", "lgbtq"},
		{"  Young Adult  ", "young-adult"},
		{"Sci-Fi & Fantasy", "sci-fi--fantasy"},
		{"---", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"978-0-441-17271-9", "9780441172719"},
		{" 0441172717 ", "0441172717"},
		{"978 0441 172719", "9780441172719"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeISBN(tt.in), "NormalizeISBN(%q)", tt.in)
	}
}
