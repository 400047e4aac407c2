package domain

import (
	"time"
)

// ReadingStatus suit le cycle de vie d'un livre sur l'étagère.
type ReadingStatus string

const (
	StatusWantToRead       ReadingStatus = "WANT_TO_READ"
	StatusCurrentlyReading ReadingStatus = "CURRENTLY_READING"
	StatusRead             ReadingStatus = "READ"
	StatusDidNotFinish     ReadingStatus = "DID_NOT_FINISH"
)

func ParseReadingStatus(s string) (ReadingStatus, error) {
	switch ReadingStatus(s) {
	case StatusWantToRead, StatusCurrentlyReading, StatusRead, StatusDidNotFinish:
		return ReadingStatus(s), nil
	}
	return "", ErrInvalidStatus
}

// UserBook relie un utilisateur à un livre du catalogue : statut, progression,
// jalons temporels. Unique par (UserID, BookID), jamais supprimé physiquement.
type UserBook struct {
	ID     int64
	UserID int64
	BookID int64

	Status ReadingStatus

	// Progression (pages pour papier/ebook, secondes pour audio)
	CurrentPage    int
	CurrentSeconds int

	// Overrides par utilisateur quand l'édition diffère du catalogue
	PageCountOverride   *int
	AudioLengthOverride *int

	Rating *float64
	Review string

	StartedAt  *time.Time
	FinishedAt *time.Time
	DNFDate    *time.Time
	DNFReason  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewUserBook(userID, bookID int64, status ReadingStatus) (*UserBook, error) {
	if _, err := ParseReadingStatus(string(status)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ub := &UserBook{
		UserID:    userID,
		BookID:    bookID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == StatusCurrentlyReading {
		ub.StartedAt = &now
	}
	return ub, nil
}

// ChangeStatus applique la transition et pose les jalons associés :
// started_at une seule fois au premier passage en CURRENTLY_READING,
// finished_at au passage en READ, dnf_date au passage en DID_NOT_FINISH.
func (ub *UserBook) ChangeStatus(status ReadingStatus, dnfReason string) error {
	if _, err := ParseReadingStatus(string(status)); err != nil {
		return err
	}

	now := time.Now().UTC()

	switch status {
	case StatusCurrentlyReading:
		if ub.StartedAt == nil {
			ub.StartedAt = &now
		}
	case StatusRead:
		if ub.StartedAt == nil {
			ub.StartedAt = &now
		}
		ub.FinishedAt = &now
	case StatusDidNotFinish:
		ub.DNFDate = &now
		ub.DNFReason = dnfReason
	}

	ub.Status = status
	ub.UpdatedAt = now
	return nil
}

// ApplyProgress met à jour les compteurs de progression selon le support.
// endPage absolu prime sur pagesRead relatif ; les minutes s'ajoutent en secondes.
// Une session audio ne touche jamais à la page courante : les deux compteurs
// avancent indépendamment.
func (ub *UserBook) ApplyProgress(method ReadingMethod, pagesRead, minutesRead int, endPage *int) error {
	if pagesRead < 0 || minutesRead < 0 {
		return ErrInvalidProgress
	}
	if endPage != nil && *endPage < 0 {
		return ErrInvalidProgress
	}

	if method != MethodAudiobook {
		if endPage != nil {
			ub.CurrentPage = *endPage
		} else if pagesRead > 0 {
			ub.CurrentPage += pagesRead
		}
	}

	if minutesRead > 0 {
		ub.CurrentSeconds += minutesRead * 60
	}

	ub.UpdatedAt = time.Now().UTC()
	return nil
}

// EffectivePageCount retourne l'override utilisateur s'il existe.
func (ub *UserBook) EffectivePageCount(catalogPages int) int {
	if ub.PageCountOverride != nil {
		return *ub.PageCountOverride
	}
	return catalogPages
}

func (ub *UserBook) EffectiveAudioLength(catalogSeconds int) int {
	if ub.AudioLengthOverride != nil {
		return *ub.AudioLengthOverride
	}
	return catalogSeconds
}
