package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

func (s *Server) getStatsOverview(c *gin.Context) {
	overview, err := s.stats.GetOverview(c.Request.Context(), currentUser(c))
	if err != nil {
		s.handleError(c, err)
		return
	}

	activeDates := make([]string, 0, len(overview.ActiveDates))
	for _, d := range overview.ActiveDates {
		activeDates = append(activeDates, d.Format("2006-01-02"))
	}

	c.JSON(http.StatusOK, gin.H{
		"totalBooksRead":   overview.TotalBooksRead,
		"totalDnf":         overview.TotalDNF,
		"currentlyReading": overview.CurrentlyReading,
		"wantToRead":       overview.WantToRead,
		"totalPagesRead":   overview.TotalPagesRead,
		"totalMinutesRead": overview.TotalMinutesRead,
		"totalSessions":    overview.TotalSessions,
		"completionRate":   overview.CompletionRate,
		"currentStreak":    overview.CurrentStreak,
		"longestStreak":    overview.LongestStreak,
		"activeDates":      activeDates,
		"preferredMethod":  string(overview.PreferredMethod),
	})
}

func (s *Server) getTimeSeries(c *gin.Context) {
	period := ports.TimeSeriesPeriod(c.DefaultQuery("period", string(ports.PeriodWeek)))
	switch period {
	case ports.PeriodWeek, ports.PeriodMonth, ports.PeriodYear:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be week, month or year"})
		return
	}

	buckets, err := s.stats.GetTimeSeries(c.Request.Context(), currentUser(c), period)
	if err != nil {
		s.handleError(c, err)
		return
	}

	type bucketResponse struct {
		Period   time.Time `json:"period"`
		Pages    int       `json:"pages"`
		Minutes  int       `json:"minutes"`
		Sessions int       `json:"sessions"`
	}

	out := make([]bucketResponse, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, bucketResponse{
			Period:   b.Period,
			Pages:    b.Pages,
			Minutes:  b.Minutes,
			Sessions: b.Sessions,
		})
	}
	c.JSON(http.StatusOK, gin.H{"buckets": out})
}

func (s *Server) getMethodBreakdown(c *gin.Context) {
	stats, err := s.stats.GetMethodBreakdown(c.Request.Context(), currentUser(c))
	if err != nil {
		s.handleError(c, err)
		return
	}

	type methodResponse struct {
		Method       string  `json:"method"`
		BooksTouched int     `json:"booksTouched"`
		PagesRead    int     `json:"pagesRead"`
		MinutesRead  int     `json:"minutesRead"`
		Sessions     int     `json:"sessions"`
		Percentage   float64 `json:"percentage"`
	}

	out := make([]methodResponse, 0, len(stats))
	for _, m := range stats {
		out = append(out, methodResponse{
			Method:       string(m.Method),
			BooksTouched: m.BooksTouched,
			PagesRead:    m.PagesRead,
			MinutesRead:  m.MinutesRead,
			Sessions:     m.Sessions,
			Percentage:   m.Percentage,
		})
	}
	c.JSON(http.StatusOK, gin.H{"methods": out})
}

func (s *Server) getGenreLeaderboard(c *gin.Context) {
	s.leaderboard(c, s.stats.GetGenreLeaderboard)
}

func (s *Server) getAuthorLeaderboard(c *gin.Context) {
	s.leaderboard(c, s.stats.GetAuthorLeaderboard)
}

func (s *Server) leaderboard(c *gin.Context, fetch func(ctx context.Context, userID int64, topN int) ([]domain.LeaderboardEntry, error)) {
	topN, _ := strconv.Atoi(c.DefaultQuery("top", "10"))

	entries, err := fetch(c.Request.Context(), currentUser(c), topN)
	if err != nil {
		s.handleError(c, err)
		return
	}

	type entryResponse struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		BooksRead int    `json:"booksRead"`
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{ID: e.ID, Name: e.Name, BooksRead: e.BooksRead})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}
