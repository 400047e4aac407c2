package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

type userBookResponse struct {
	ID                  int64      `json:"id"`
	BookID              int64      `json:"bookId"`
	Status              string     `json:"status"`
	CurrentPage         int        `json:"currentPage"`
	CurrentSeconds      int        `json:"currentSeconds"`
	PageCountOverride   *int       `json:"pageCountOverride,omitempty"`
	AudioLengthOverride *int       `json:"audioLengthOverride,omitempty"`
	Rating              *float64   `json:"rating,omitempty"`
	Review              string     `json:"review,omitempty"`
	StartedAt           *time.Time `json:"startedAt,omitempty"`
	FinishedAt          *time.Time `json:"finishedAt,omitempty"`
	DNFDate             *time.Time `json:"dnfDate,omitempty"`
	DNFReason           string     `json:"dnfReason,omitempty"`
}

type bookSummaryResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CoverURL  string `json:"coverUrl,omitempty"`
	PageCount int    `json:"pageCount,omitempty"`
	Degraded  bool   `json:"degraded,omitempty"`
}

type shelfEntryResponse struct {
	UserBook userBookResponse     `json:"userBook"`
	Book     *bookSummaryResponse `json:"book,omitempty"`
}

func toUserBookResponse(ub *domain.UserBook) userBookResponse {
	return userBookResponse{
		ID:                  ub.ID,
		BookID:              ub.BookID,
		Status:              string(ub.Status),
		CurrentPage:         ub.CurrentPage,
		CurrentSeconds:      ub.CurrentSeconds,
		PageCountOverride:   ub.PageCountOverride,
		AudioLengthOverride: ub.AudioLengthOverride,
		Rating:              ub.Rating,
		Review:              ub.Review,
		StartedAt:           ub.StartedAt,
		FinishedAt:          ub.FinishedAt,
		DNFDate:             ub.DNFDate,
		DNFReason:           ub.DNFReason,
	}
}

func toBookSummaryResponse(b *domain.BookSummary) *bookSummaryResponse {
	if b == nil {
		return nil
	}
	return &bookSummaryResponse{
		ID:        b.ID,
		Title:     b.Title,
		CoverURL:  b.CoverURL,
		PageCount: b.PageCount,
		Degraded:  b.Degraded,
	}
}

type addToShelfRequest struct {
	BookID int64  `json:"bookId" binding:"required"`
	Status string `json:"status" binding:"required"`
}

func (s *Server) addToShelf(c *gin.Context) {
	var req addToShelfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := domain.ParseReadingStatus(req.Status)
	if err != nil {
		s.handleError(c, err)
		return
	}

	ub, err := s.shelf.AddToShelf(c.Request.Context(), ports.AddToShelfCmd{
		UserID: currentUser(c),
		BookID: req.BookID,
		Status: status,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toUserBookResponse(ub))
}

func (s *Server) getShelf(c *gin.Context) {
	var status *domain.ReadingStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := domain.ParseReadingStatus(raw)
		if err != nil {
			s.handleError(c, err)
			return
		}
		status = &parsed
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := s.shelf.GetShelf(c.Request.Context(), currentUser(c), status, limit, offset)
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := make([]shelfEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, shelfEntryResponse{
			UserBook: toUserBookResponse(e.UserBook),
			Book:     toBookSummaryResponse(e.Book),
		})
	}
	c.JSON(http.StatusOK, gin.H{"userBooks": out})
}

func (s *Server) getUserBook(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("bookId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	entry, err := s.shelf.GetUserBook(c.Request.Context(), currentUser(c), bookID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, shelfEntryResponse{
		UserBook: toUserBookResponse(entry.UserBook),
		Book:     toBookSummaryResponse(entry.Book),
	})
}

type changeStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	DNFReason string `json:"dnfReason"`
}

func (s *Server) changeStatus(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("bookId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := domain.ParseReadingStatus(req.Status)
	if err != nil {
		s.handleError(c, err)
		return
	}

	ub, err := s.shelf.ChangeStatus(c.Request.Context(), ports.ChangeStatusCmd{
		UserID:    currentUser(c),
		BookID:    bookID,
		Status:    status,
		DNFReason: req.DNFReason,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserBookResponse(ub))
}

type updateProgressRequest struct {
	CurrentPage         *int     `json:"currentPage"`
	CurrentSeconds      *int     `json:"currentSeconds"`
	PageCountOverride   *int     `json:"pageCountOverride"`
	AudioLengthOverride *int     `json:"audioLengthOverride"`
	Rating              *float64 `json:"rating"`
	Review              *string  `json:"review"`
}

func (s *Server) updateProgress(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("bookId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	var req updateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ub, err := s.shelf.UpdateProgress(c.Request.Context(), ports.UpdateProgressCmd{
		UserID:              currentUser(c),
		BookID:              bookID,
		CurrentPage:         req.CurrentPage,
		CurrentSeconds:      req.CurrentSeconds,
		PageCountOverride:   req.PageCountOverride,
		AudioLengthOverride: req.AudioLengthOverride,
		Rating:              req.Rating,
		Review:              req.Review,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserBookResponse(ub))
}
