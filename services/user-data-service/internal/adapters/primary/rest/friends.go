package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

type userSummaryResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

func toUserSummaryResponse(u domain.UserSummary) userSummaryResponse {
	return userSummaryResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

type requestResponse struct {
	ID        int64               `json:"id"`
	Status    string              `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
	User      userSummaryResponse `json:"user"`
}

func toRequestResponse(v ports.RequestView) requestResponse {
	return requestResponse{
		ID:        v.Request.ID,
		Status:    string(v.Request.Status),
		CreatedAt: v.Request.CreatedAt,
		User:      toUserSummaryResponse(v.User),
	}
}

type sendRequestRequest struct {
	AddresseeID int64 `json:"addresseeId" binding:"required"`
}

func (s *Server) sendRequest(c *gin.Context) {
	var req sendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := s.friendships.SendRequest(c.Request.Context(), currentUser(c), req.AddresseeID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        request.ID,
		"status":    string(request.Status),
		"createdAt": request.CreatedAt,
	})
}

func (s *Server) acceptRequest(c *gin.Context) {
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	friendship, err := s.friendships.AcceptRequest(c.Request.Context(), currentUser(c), requestID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"friendshipId": friendship.ID,
		"since":        friendship.CreatedAt,
	})
}

func (s *Server) rejectRequest(c *gin.Context) {
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	if err := s.friendships.RejectRequest(c.Request.Context(), currentUser(c), requestID); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) cancelRequest(c *gin.Context) {
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	if err := s.friendships.CancelRequest(c.Request.Context(), currentUser(c), requestID); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) getIncomingRequests(c *gin.Context) {
	views, err := s.friendships.GetIncomingRequests(c.Request.Context(), currentUser(c))
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := make([]requestResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toRequestResponse(v))
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func (s *Server) getOutgoingRequests(c *gin.Context) {
	views, err := s.friendships.GetOutgoingRequests(c.Request.Context(), currentUser(c))
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := make([]requestResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toRequestResponse(v))
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func (s *Server) getFriends(c *gin.Context) {
	friends, err := s.friendships.GetFriends(c.Request.Context(), currentUser(c))
	if err != nil {
		s.handleError(c, err)
		return
	}

	type friendResponse struct {
		FriendshipID int64               `json:"friendshipId"`
		User         userSummaryResponse `json:"user"`
		Since        time.Time           `json:"since"`
	}

	out := make([]friendResponse, 0, len(friends))
	for _, f := range friends {
		out = append(out, friendResponse{
			FriendshipID: f.FriendshipID,
			User:         toUserSummaryResponse(f.User),
			Since:        f.Since,
		})
	}
	c.JSON(http.StatusOK, gin.H{"friends": out})
}

func (s *Server) unfriend(c *gin.Context) {
	friendID, err := strconv.ParseInt(c.Param("friendId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friend id"})
		return
	}

	if err := s.friendships.Unfriend(c.Request.Context(), currentUser(c), friendID); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) getFriendshipStatus(c *gin.Context) {
	otherID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	status, err := s.friendships.GetFriendshipStatus(c.Request.Context(), currentUser(c), otherID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":        string(status.State),
		"friendshipId": status.FriendshipID,
		"requestId":    status.RequestID,
	})
}
