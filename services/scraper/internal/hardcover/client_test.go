package hardcover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBook = `{
	"id": 441723,
	"title": "Dune",
	"slug": "dune",
	"description": "Arrakis, desert planet.",
	"cached_tags": {
		"Genre": [
			{"tag": "Science Fiction", "count": 1542},
			{"tag": "Classics", "count": 87},
			{"tag": "dads-shelf", "count": 2}
		],
		"Mood": [
			{"tag": "adventurous", "count": 300}
		]
	},
	"default_physical_edition": {
		"id": 30292389,
		"title": "Dune",
		"subtitle": "",
		"isbn_10": "0441172717",
		"isbn_13": "9780441172719",
		"pages": 412,
		"release_date": "1990-09-01",
		"release_year": 1990,
		"book_id": 441723,
		"publisher": {"id": 12, "name": "Ace"},
		"language": {"id": 1, "language": "English"},
		"contributions": [
			{"author": {"id": 81085, "name": "Frank Herbert", "bio": "American author.", "born_year": 1920, "death_year": 1986}}
		]
	}
}`

func TestBookDecoding(t *testing.T) {
	var book Book
	require.NoError(t, json.Unmarshal([]byte(sampleBook), &book))

	assert.Equal(t, int64(441723), book.ID)
	require.NotNil(t, book.Edition)
	assert.Equal(t, int64(30292389), book.Edition.ID)
	assert.Equal(t, "9780441172719", book.Edition.ISBN13)
	assert.Equal(t, 412, book.Edition.Pages)
	require.NotNil(t, book.Edition.Publisher)
	assert.Equal(t, "Ace", book.Edition.Publisher.Name)
	require.Len(t, book.Edition.Authors, 1)
	assert.Equal(t, "Frank Herbert", book.Edition.Authors[0].Author.Name)
}

func TestBook_Genres(t *testing.T) {
	var book Book
	require.NoError(t, json.Unmarshal([]byte(sampleBook), &book))

	// Seuls les tags Genre au-dessus du seuil sont retenus
	genres := book.Genres(10)
	assert.Equal(t, []string{"Science Fiction", "Classics"}, genres)

	assert.Empty(t, book.Genres(10000))
}

func TestBook_Genres_NoTags(t *testing.T) {
	book := Book{}
	assert.Nil(t, book.Genres(10))

	book.CachedTags = json.RawMessage(`"not an object"`)
	assert.Nil(t, book.Genres(10))
}

func TestGetPopularBooks(t *testing.T) {
	var captured graphqlRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"books": [` + sampleBook + `]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", 600)

	books, err := client.GetPopularBooks(context.Background(), 50, 100)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)

	assert.Equal(t, float64(50), captured.Variables["limit"])
	assert.Equal(t, float64(100), captured.Variables["offset"])
}

func TestGetPopularBooks_GraphQLErrorNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors": [{"message": "field does not exist"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", 600)

	_, err := client.GetPopularBooks(context.Background(), 50, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field does not exist")
	assert.Equal(t, 1, calls, "les erreurs GraphQL sont permanentes")
}
