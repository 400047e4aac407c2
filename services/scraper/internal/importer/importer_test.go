package importer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidISBN(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		n    int
		want *string
	}{
		{name: "valid isbn-10", raw: "0441172717", n: 10, want: strPtr("0441172717")},
		{name: "valid isbn-13", raw: "9780441172719", n: 13, want: strPtr("9780441172719")},
		{name: "whitespace trimmed", raw: " 0441172717 ", n: 10, want: strPtr("0441172717")},
		{name: "wrong length", raw: "044117271", n: 10, want: nil},
		{name: "non-numeric", raw: "044117271X", n: 10, want: nil},
		{name: "empty", raw: "", n: 10, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validISBN(tt.raw, tt.n)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func TestDuplicateISBNIsSkippedNotErrored(t *testing.T) {
	// Une édition dont l'ISBN est déjà au catalogue doit compter comme
	// skip dans les stats de batch, pas comme erreur loguée.
	err := fmt.Errorf("%w: %w", errSkipped, errDuplicateISBN)
	assert.ErrorIs(t, err, errSkipped)
	assert.ErrorIs(t, err, errDuplicateISBN)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Science Fiction", "science-fiction"},
		{"Sci-Fi & Fantasy", "sci-fi--fantasy"},
		{"  Horror  ", "horror"},
		{"Young Adult (YA)", "young-adult-ya"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), tt.in)
	}
}

func strPtr(s string) *string { return &s }
