package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

type sessionResponse struct {
	ID          int64                `json:"id"`
	BookID      int64                `json:"bookId"`
	Method      string               `json:"method"`
	PagesRead   int                  `json:"pagesRead"`
	MinutesRead int                  `json:"minutesRead"`
	StartPage   *int                 `json:"startPage,omitempty"`
	EndPage     *int                 `json:"endPage,omitempty"`
	SessionDate time.Time            `json:"sessionDate"`
	Notes       string               `json:"notes,omitempty"`
	Book        *bookSummaryResponse `json:"book,omitempty"`
}

func toSessionResponse(sess *domain.ReadingSession, book *domain.BookSummary) sessionResponse {
	return sessionResponse{
		ID:          sess.ID,
		BookID:      sess.BookID,
		Method:      string(sess.Method),
		PagesRead:   sess.PagesRead,
		MinutesRead: sess.MinutesRead,
		StartPage:   sess.StartPage,
		EndPage:     sess.EndPage,
		SessionDate: sess.SessionDate,
		Notes:       sess.Notes,
		Book:        toBookSummaryResponse(book),
	}
}

type logSessionRequest struct {
	BookID      int64      `json:"bookId" binding:"required"`
	Method      string     `json:"method" binding:"required"`
	PagesRead   int        `json:"pagesRead"`
	MinutesRead int        `json:"minutesRead"`
	StartPage   *int       `json:"startPage"`
	EndPage     *int       `json:"endPage"`
	SessionDate *time.Time `json:"sessionDate"`
	Notes       string     `json:"notes"`
}

func (s *Server) logSession(c *gin.Context) {
	var req logSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	method, err := domain.ParseReadingMethod(req.Method)
	if err != nil {
		s.handleError(c, err)
		return
	}

	var sessionDate time.Time
	if req.SessionDate != nil {
		sessionDate = *req.SessionDate
	}

	sess, err := s.sessions.LogSession(c.Request.Context(), ports.LogSessionCmd{
		UserID:      currentUser(c),
		BookID:      req.BookID,
		Method:      method,
		PagesRead:   req.PagesRead,
		MinutesRead: req.MinutesRead,
		StartPage:   req.StartPage,
		EndPage:     req.EndPage,
		SessionDate: sessionDate,
		Notes:       req.Notes,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSessionResponse(sess, nil))
}

func (s *Server) getSessions(c *gin.Context) {
	var bookID *int64
	if raw := c.Query("bookId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
			return
		}
		bookID = &id
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	views, err := s.sessions.GetSessions(c.Request.Context(), currentUser(c), bookID, limit, offset)
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := make([]sessionResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toSessionResponse(v.Session, v.Book))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (s *Server) getSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	view, err := s.sessions.GetSession(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(view.Session, view.Book))
}

type updateSessionRequest struct {
	PagesRead   *int    `json:"pagesRead"`
	MinutesRead *int    `json:"minutesRead"`
	Notes       *string `json:"notes"`
}

func (s *Server) updateSession(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := s.sessions.UpdateSession(c.Request.Context(), ports.UpdateSessionCmd{
		UserID:      currentUser(c),
		SessionID:   sessionID,
		PagesRead:   req.PagesRead,
		MinutesRead: req.MinutesRead,
		Notes:       req.Notes,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(sess, nil))
}

func (s *Server) deleteSession(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	if err := s.sessions.DeleteSession(c.Request.Context(), currentUser(c), sessionID); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
