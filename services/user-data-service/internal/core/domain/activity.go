package domain

import "time"

// ActivityType : nature d'un élément du fil d'activité.
type ActivityType string

const (
	ActivitySessionLogged ActivityType = "SESSION_LOGGED"
	ActivityBookFinished  ActivityType = "BOOK_FINISHED"
	ActivityListCreated   ActivityType = "LIST_CREATED"
)

// ActivityItem : un élément du fil, produit par les écritures des amis.
// ID synthétique (uuid) car le fil agrège trois sources sans clé commune.
type ActivityItem struct {
	ID         string
	Type       ActivityType
	UserID     int64
	BookID     int64
	ListID     int64
	OccurredAt time.Time

	// Enrichissement cross-service (best effort)
	Username  string
	BookTitle string
	ListName  string
}
