package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

type listResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	IsPublic    bool      `json:"isPublic"`
	ItemCount   int       `json:"itemCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type listItemResponse struct {
	ID       int64                `json:"id"`
	BookID   int64                `json:"bookId"`
	Position int                  `json:"position"`
	Note     string               `json:"note,omitempty"`
	AddedAt  time.Time            `json:"addedAt"`
	Book     *bookSummaryResponse `json:"book,omitempty"`
}

func toListResponse(l *domain.List) listResponse {
	return listResponse{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		Type:        l.Type.Slug(),
		IsPublic:    l.IsPublic,
		ItemCount:   l.ItemCount,
		CreatedAt:   l.CreatedAt,
	}
}

type createListRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type"`
	IsPublic    bool   `json:"isPublic"`
}

func (s *Server) createList(c *gin.Context) {
	var req createListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listType := domain.ListCustom
	if req.Type != "" {
		parsed, err := domain.ParseListType(req.Type)
		if err != nil {
			s.handleError(c, err)
			return
		}
		listType = parsed
	}

	list, err := s.lists.CreateList(c.Request.Context(), ports.CreateListCmd{
		UserID:      currentUser(c),
		Name:        req.Name,
		Description: req.Description,
		Type:        listType,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toListResponse(list))
}

func (s *Server) getLists(c *gin.Context) {
	viewerID := currentUser(c)
	ownerID := viewerID
	if raw := c.Query("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		ownerID = id
	}

	lists, err := s.lists.GetLists(c.Request.Context(), ownerID, viewerID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := make([]listResponse, 0, len(lists))
	for _, l := range lists {
		out = append(out, toListResponse(l))
	}
	c.JSON(http.StatusOK, gin.H{"lists": out})
}

func (s *Server) getList(c *gin.Context) {
	listID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid list id"})
		return
	}

	view, err := s.lists.GetList(c.Request.Context(), listID, currentUser(c))
	if err != nil {
		s.handleError(c, err)
		return
	}

	items := make([]listItemResponse, 0, len(view.Items))
	for _, iv := range view.Items {
		items = append(items, listItemResponse{
			ID:       iv.Item.ID,
			BookID:   iv.Item.BookID,
			Position: iv.Item.Position,
			Note:     iv.Item.Note,
			AddedAt:  iv.Item.AddedAt,
			Book:     toBookSummaryResponse(iv.Book),
		})
	}

	resp := toListResponse(view.List)
	c.JSON(http.StatusOK, gin.H{"list": resp, "items": items})
}

type updateListRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}

func (s *Server) updateList(c *gin.Context) {
	listID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid list id"})
		return
	}

	var req updateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list, err := s.lists.UpdateList(c.Request.Context(), ports.UpdateListCmd{
		UserID:      currentUser(c),
		ListID:      listID,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toListResponse(list))
}

func (s *Server) deleteList(c *gin.Context) {
	listID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid list id"})
		return
	}

	if err := s.lists.DeleteList(c.Request.Context(), currentUser(c), listID); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type addBookToListRequest struct {
	BookID int64  `json:"bookId" binding:"required"`
	Note   string `json:"note"`
}

func (s *Server) addBookToList(c *gin.Context) {
	listID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid list id"})
		return
	}

	var req addBookToListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := s.lists.AddBookToList(c.Request.Context(), currentUser(c), listID, req.BookID, req.Note)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, listItemResponse{
		ID:       item.ID,
		BookID:   item.BookID,
		Position: item.Position,
		Note:     item.Note,
		AddedAt:  item.AddedAt,
	})
}

func (s *Server) removeBookFromList(c *gin.Context) {
	listID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid list id"})
		return
	}
	bookID, err := strconv.ParseInt(c.Param("bookId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	if err := s.lists.RemoveBookFromList(c.Request.Context(), currentUser(c), listID, bookID); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type reorderListRequest struct {
	BookIDs []int64 `json:"bookIds" binding:"required"`
}

func (s *Server) reorderList(c *gin.Context) {
	listID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid list id"})
		return
	}

	var req reorderListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.lists.ReorderList(c.Request.Context(), currentUser(c), listID, req.BookIDs); err != nil {
		s.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
