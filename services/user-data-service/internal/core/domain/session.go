package domain

import (
	"time"
)

// ReadingMethod : support de lecture d'une session.
type ReadingMethod string

const (
	MethodPhysical  ReadingMethod = "PHYSICAL"
	MethodEbook     ReadingMethod = "EBOOK"
	MethodAudiobook ReadingMethod = "AUDIOBOOK"
)

func ParseReadingMethod(s string) (ReadingMethod, error) {
	switch ReadingMethod(s) {
	case MethodPhysical, MethodEbook, MethodAudiobook:
		return ReadingMethod(s), nil
	}
	return "", ErrInvalidMethod
}

// ReadingSession : journal append-only d'un événement de lecture.
// Immuable sauf édition par son auteur.
type ReadingSession struct {
	ID     int64
	UserID int64
	BookID int64

	Method      ReadingMethod
	PagesRead   int
	MinutesRead int
	StartPage   *int
	EndPage     *int
	SessionDate time.Time
	Notes       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewReadingSession(userID, bookID int64, method ReadingMethod, pagesRead, minutesRead int, startPage, endPage *int, sessionDate time.Time, notes string) (*ReadingSession, error) {
	if _, err := ParseReadingMethod(string(method)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if sessionDate.IsZero() {
		sessionDate = now
	}

	s := &ReadingSession{
		UserID:      userID,
		BookID:      bookID,
		Method:      method,
		PagesRead:   pagesRead,
		MinutesRead: minutesRead,
		StartPage:   startPage,
		EndPage:     endPage,
		SessionDate: sessionDate.UTC(),
		Notes:       notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate : l'audio se mesure en minutes, le reste en pages.
// endPage doit rester cohérent avec startPage.
func (s *ReadingSession) Validate() error {
	if s.PagesRead < 0 || s.MinutesRead < 0 {
		return ErrInvalidSession
	}

	if s.Method == MethodAudiobook {
		if s.MinutesRead <= 0 {
			return ErrInvalidSession
		}
	} else {
		if s.PagesRead <= 0 && s.EndPage == nil {
			return ErrInvalidSession
		}
	}

	if s.StartPage != nil && s.EndPage != nil && *s.EndPage <= *s.StartPage {
		return ErrInvalidSession
	}

	if s.SessionDate.After(time.Now().UTC().Add(24 * time.Hour)) {
		return ErrInvalidSession
	}

	return nil
}

// Day retourne la date calendaire de la session (pour les streaks).
func (s *ReadingSession) Day() time.Time {
	y, m, d := s.SessionDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
