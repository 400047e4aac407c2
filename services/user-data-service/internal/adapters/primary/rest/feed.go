package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) getFeed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.feed.GetFeed(c.Request.Context(), currentUser(c), limit, offset)
	if err != nil {
		s.handleError(c, err)
		return
	}

	type activityResponse struct {
		ID         string    `json:"id"`
		Type       string    `json:"type"`
		UserID     int64     `json:"userId"`
		Username   string    `json:"username,omitempty"`
		BookID     int64     `json:"bookId,omitempty"`
		BookTitle  string    `json:"bookTitle,omitempty"`
		ListID     int64     `json:"listId,omitempty"`
		ListName   string    `json:"listName,omitempty"`
		OccurredAt time.Time `json:"occurredAt"`
	}

	out := make([]activityResponse, 0, len(items))
	for _, item := range items {
		out = append(out, activityResponse{
			ID:         item.ID,
			Type:       string(item.Type),
			UserID:     item.UserID,
			Username:   item.Username,
			BookID:     item.BookID,
			BookTitle:  item.BookTitle,
			ListID:     item.ListID,
			ListName:   item.ListName,
			OccurredAt: item.OccurredAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"activities": out})
}
