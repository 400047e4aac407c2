package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/safegergis/tome/services/content-service/internal/core/domain"
	"github.com/safegergis/tome/services/content-service/internal/core/ports"
)

// Server expose le catalogue en REST/JSON. Les lectures sont publiques,
// l'import est réservé au scraper (réseau interne).
type Server struct {
	service ports.CatalogService
	engine  *gin.Engine
}

func NewServer(service ports.CatalogService) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware("content-service"))
	engine.Use(requestIDMiddleware())

	s := &Server{service: service, engine: engine}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	books := s.engine.Group("/api/books")
	{
		books.GET("", s.browseBooks)
		books.GET("/search", s.searchBooks)
		books.GET("/batch", s.getBooksBatch)
		books.GET("/isbn/:isbn", s.getBookByISBN)
		books.GET("/:id", s.getBook)
		books.POST("", s.createBook)
		books.PATCH("/:id", s.updateBook)
		books.POST("/import", s.importBook)
	}

	authors := s.engine.Group("/api/authors")
	{
		authors.GET("/search", s.searchAuthors)
		authors.GET("/:id", s.getAuthor)
		authors.GET("/:id/books", s.getBooksByAuthor)
	}

	genres := s.engine.Group("/api/genres")
	{
		genres.GET("", s.listGenres)
		genres.GET("/:slug/books", s.getBooksByGenre)
	}
}

// --- DTO ---

type authorResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Bio      string `json:"bio,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type genreResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type bookResponse struct {
	ID                 int64            `json:"id"`
	Title              string           `json:"title"`
	Subtitle           string           `json:"subtitle,omitempty"`
	Description        string           `json:"description,omitempty"`
	ISBN10             string           `json:"isbn10,omitempty"`
	ISBN13             string           `json:"isbn13,omitempty"`
	CoverURL           string           `json:"coverUrl,omitempty"`
	PageCount          int              `json:"pageCount,omitempty"`
	AudioLengthSeconds int              `json:"audioLengthSeconds,omitempty"`
	ReleaseDate        *time.Time       `json:"releaseDate,omitempty"`
	Publisher          string           `json:"publisher,omitempty"`
	Language           string           `json:"language,omitempty"`
	Rating             float64          `json:"rating,omitempty"`
	RatingsCount       int              `json:"ratingsCount,omitempty"`
	Authors            []authorResponse `json:"authors,omitempty"`
	Genres             []genreResponse  `json:"genres,omitempty"`
}

func toBookResponse(b *domain.Book) bookResponse {
	resp := bookResponse{
		ID:                 b.ID,
		Title:              b.Title,
		Subtitle:           b.Subtitle,
		Description:        b.Description,
		ISBN10:             b.ISBN10,
		ISBN13:             b.ISBN13,
		CoverURL:           b.CoverURL,
		PageCount:          b.PageCount,
		AudioLengthSeconds: b.AudioLengthSeconds,
		ReleaseDate:        b.ReleaseDate,
		Publisher:          b.Publisher,
		Language:           b.Language,
		Rating:             b.Rating,
		RatingsCount:       b.RatingsCount,
	}
	for _, a := range b.Authors {
		resp.Authors = append(resp.Authors, authorResponse{ID: a.ID, Name: a.Name, Bio: a.Bio, ImageURL: a.ImageURL})
	}
	for _, g := range b.Genres {
		resp.Genres = append(resp.Genres, genreResponse{ID: g.ID, Name: g.Name, Slug: g.Slug})
	}
	return resp
}

type createBookRequest struct {
	Title              string     `json:"title" binding:"required"`
	Subtitle           string     `json:"subtitle"`
	Description        string     `json:"description"`
	ISBN10             string     `json:"isbn10"`
	ISBN13             string     `json:"isbn13"`
	CoverURL           string     `json:"coverUrl"`
	PageCount          int        `json:"pageCount"`
	AudioLengthSeconds int        `json:"audioLengthSeconds"`
	ReleaseDate        *time.Time `json:"releaseDate"`
	Publisher          string     `json:"publisher"`
	Language           string     `json:"language"`
	Authors            []string   `json:"authors"`
	Genres             []string   `json:"genres"`
}

type updateBookRequest struct {
	Title       *string `json:"title"`
	Subtitle    *string `json:"subtitle"`
	Description *string `json:"description"`
	CoverURL    *string `json:"coverUrl"`
	PageCount   *int    `json:"pageCount"`
	Publisher   *string `json:"publisher"`
}

type importBookRequest struct {
	Source             string     `json:"source" binding:"required"`
	ExternalID         string     `json:"externalId" binding:"required"`
	Title              string     `json:"title" binding:"required"`
	Subtitle           string     `json:"subtitle"`
	Description        string     `json:"description"`
	ISBN10             string     `json:"isbn10"`
	ISBN13             string     `json:"isbn13"`
	CoverURL           string     `json:"coverUrl"`
	PageCount          int        `json:"pageCount"`
	AudioLengthSeconds int        `json:"audioLengthSeconds"`
	ReleaseDate        *time.Time `json:"releaseDate"`
	Rating             float64    `json:"rating"`
	RatingsCount       int        `json:"ratingsCount"`
	Authors            []string   `json:"authors"`
	Genres             []string   `json:"genres"`
}

// --- HANDLERS ---

func (s *Server) getBook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	book, err := s.service.GetBook(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookResponse(book))
}

// getBooksBatch : utilisé par user-data-service pour enrichir shelf et feed.
func (s *Server) getBooksBatch(c *gin.Context) {
	raw := c.Query("ids")
	if raw == "" {
		c.JSON(http.StatusOK, gin.H{"books": map[string]bookResponse{}})
		return
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ids parameter"})
			return
		}
		ids = append(ids, id)
	}

	books, err := s.service.GetBooks(c.Request.Context(), ids)
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := make(map[string]bookResponse, len(books))
	for id, b := range books {
		out[strconv.FormatInt(id, 10)] = toBookResponse(b)
	}
	c.JSON(http.StatusOK, gin.H{"books": out})
}

func (s *Server) getBookByISBN(c *gin.Context) {
	book, err := s.service.GetBookByISBN(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookResponse(book))
}

// browseBooks : parcours du catalogue, filtrable par éditeur et langue.
func (s *Server) browseBooks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := ports.BrowseFilter{
		Publisher: strings.TrimSpace(c.Query("publisher")),
		Language:  strings.TrimSpace(c.Query("language")),
	}

	books, err := s.service.BrowseBooks(c.Request.Context(), filter, limit, offset)
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResponse(b))
	}
	c.JSON(http.StatusOK, gin.H{"books": out})
}

func (s *Server) searchBooks(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	books, err := s.service.SearchBooks(c.Request.Context(), query, limit, offset)
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResponse(b))
	}
	c.JSON(http.StatusOK, gin.H{"books": out})
}

func (s *Server) createBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := s.service.CreateBook(c.Request.Context(), ports.CreateBookCmd{
		Title:              req.Title,
		Subtitle:           req.Subtitle,
		Description:        req.Description,
		ISBN10:             req.ISBN10,
		ISBN13:             req.ISBN13,
		CoverURL:           req.CoverURL,
		PageCount:          req.PageCount,
		AudioLengthSeconds: req.AudioLengthSeconds,
		ReleaseDate:        req.ReleaseDate,
		Publisher:          req.Publisher,
		Language:           req.Language,
		AuthorNames:        req.Authors,
		GenreNames:         req.Genres,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookResponse(book))
}

func (s *Server) updateBook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	var req updateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := s.service.UpdateBook(c.Request.Context(), ports.UpdateBookCmd{
		BookID:      id,
		Title:       req.Title,
		Subtitle:    req.Subtitle,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		PageCount:   req.PageCount,
		Publisher:   req.Publisher,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookResponse(book))
}

func (s *Server) importBook(c *gin.Context) {
	var req importBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.service.ImportExternalBook(c.Request.Context(), ports.ImportBookCmd{
		Source:             req.Source,
		ExternalID:         req.ExternalID,
		Title:              req.Title,
		Subtitle:           req.Subtitle,
		Description:        req.Description,
		ISBN10:             req.ISBN10,
		ISBN13:             req.ISBN13,
		CoverURL:           req.CoverURL,
		PageCount:          req.PageCount,
		AudioLengthSeconds: req.AudioLengthSeconds,
		ReleaseDate:        req.ReleaseDate,
		Rating:             req.Rating,
		RatingsCount:       req.RatingsCount,
		AuthorNames:        req.Authors,
		GenreNames:         req.Genres,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"book":    toBookResponse(result.Book),
		"created": result.Created,
	})
}

func (s *Server) getAuthor(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
		return
	}

	author, err := s.service.GetAuthor(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, authorResponse{ID: author.ID, Name: author.Name, Bio: author.Bio, ImageURL: author.ImageURL})
}

func (s *Server) searchAuthors(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	authors, err := s.service.SearchAuthors(c.Request.Context(), query, limit, offset)
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := make([]authorResponse, 0, len(authors))
	for _, a := range authors {
		out = append(out, authorResponse{ID: a.ID, Name: a.Name, Bio: a.Bio, ImageURL: a.ImageURL})
	}
	c.JSON(http.StatusOK, gin.H{"authors": out})
}

func (s *Server) getBooksByAuthor(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	books, err := s.service.GetBooksByAuthor(c.Request.Context(), id, limit, offset)
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResponse(b))
	}
	c.JSON(http.StatusOK, gin.H{"books": out})
}

func (s *Server) listGenres(c *gin.Context) {
	genres, err := s.service.ListGenres(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := make([]genreResponse, 0, len(genres))
	for _, g := range genres {
		out = append(out, genreResponse{ID: g.ID, Name: g.Name, Slug: g.Slug})
	}
	c.JSON(http.StatusOK, gin.H{"genres": out})
}

func (s *Server) getBooksByGenre(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	books, err := s.service.GetBooksByGenre(c.Request.Context(), c.Param("slug"), limit, offset)
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResponse(b))
	}
	c.JSON(http.StatusOK, gin.H{"books": out})
}

func (s *Server) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrBookNotFound),
		errors.Is(err, domain.ErrAuthorNotFound),
		errors.Is(err, domain.ErrGenreNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrDuplicateBook):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidBook):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("💥 Unhandled error", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
