package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

// Server expose les données utilisateur en REST/JSON. Tous les endpoints
// sont authentifiés (Bearer JWT émis par auth-service).
type Server struct {
	shelf       ports.ShelfService
	sessions    ports.SessionService
	lists       ports.ListService
	friendships ports.FriendshipService
	stats       ports.StatisticsService
	feed        ports.FeedService

	engine *gin.Engine
}

func NewServer(
	shelf ports.ShelfService,
	sessions ports.SessionService,
	lists ports.ListService,
	friendships ports.FriendshipService,
	stats ports.StatisticsService,
	feed ports.FeedService,
	tokens TokenValidator,
) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware("user-data-service"))
	engine.Use(requestIDMiddleware())

	s := &Server{
		shelf:       shelf,
		sessions:    sessions,
		lists:       lists,
		friendships: friendships,
		stats:       stats,
		feed:        feed,
		engine:      engine,
	}
	s.registerRoutes(tokens)
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

func (s *Server) registerRoutes(tokens TokenValidator) {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api", authMiddleware(tokens))

	userBooks := api.Group("/user-books")
	{
		userBooks.POST("", s.addToShelf)
		userBooks.GET("", s.getShelf)
		userBooks.GET("/:bookId", s.getUserBook)
		userBooks.PATCH("/:bookId/status", s.changeStatus)
		userBooks.PATCH("/:bookId/progress", s.updateProgress)
	}

	readingSessions := api.Group("/reading-sessions")
	{
		readingSessions.POST("", s.logSession)
		readingSessions.GET("", s.getSessions)
		readingSessions.GET("/:id", s.getSession)
		readingSessions.PATCH("/:id", s.updateSession)
		readingSessions.DELETE("/:id", s.deleteSession)
	}

	lists := api.Group("/lists")
	{
		lists.POST("", s.createList)
		lists.GET("", s.getLists)
		lists.GET("/:id", s.getList)
		lists.PATCH("/:id", s.updateList)
		lists.DELETE("/:id", s.deleteList)
		lists.POST("/:id/books", s.addBookToList)
		lists.DELETE("/:id/books/:bookId", s.removeBookFromList)
		lists.PUT("/:id/books/order", s.reorderList)
	}

	friendships := api.Group("/friendships")
	{
		friendships.POST("/requests", s.sendRequest)
		friendships.POST("/requests/:id/accept", s.acceptRequest)
		friendships.POST("/requests/:id/reject", s.rejectRequest)
		friendships.DELETE("/requests/:id", s.cancelRequest)
		friendships.GET("/requests/incoming", s.getIncomingRequests)
		friendships.GET("/requests/outgoing", s.getOutgoingRequests)
		friendships.GET("", s.getFriends)
		friendships.DELETE("/:friendId", s.unfriend)
		friendships.GET("/status/:userId", s.getFriendshipStatus)
	}

	stats := api.Group("/statistics")
	{
		stats.GET("/overview", s.getStatsOverview)
		stats.GET("/time-series", s.getTimeSeries)
		stats.GET("/methods", s.getMethodBreakdown)
		stats.GET("/genres", s.getGenreLeaderboard)
		stats.GET("/authors", s.getAuthorLeaderboard)
	}

	api.GET("/activity-feed", s.getFeed)
}

// handleError : traduction uniforme erreurs domaine -> statuts HTTP.
func (s *Server) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUserBookNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrListNotFound),
		errors.Is(err, domain.ErrListItemNotFound),
		errors.Is(err, domain.ErrRequestNotFound),
		errors.Is(err, domain.ErrFriendNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrNotAddressee),
		errors.Is(err, domain.ErrNotRequester),
		errors.Is(err, domain.ErrPrivateResource):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrDuplicateUserBook),
		errors.Is(err, domain.ErrDuplicateListItem),
		errors.Is(err, domain.ErrDuplicateList),
		errors.Is(err, domain.ErrAlreadyFriends),
		errors.Is(err, domain.ErrRequestPending),
		errors.Is(err, domain.ErrReverseRequest),
		errors.Is(err, domain.ErrRequestNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidMethod),
		errors.Is(err, domain.ErrInvalidListType),
		errors.Is(err, domain.ErrInvalidSession),
		errors.Is(err, domain.ErrInvalidProgress),
		errors.Is(err, domain.ErrInvalidReorder),
		errors.Is(err, domain.ErrSelfFriendship),
		errors.Is(err, domain.ErrDefaultListLocked):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		slog.Error("💥 Unhandled error", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
