package domain

// NamedRef : référence (id, nom) vers une entité d'un autre service.
type NamedRef struct {
	ID   int64
	Name string
}

// BookSummary : vue minimale d'un livre du catalogue, telle que servie par
// content-service. Les classements genres/auteurs s'appuient sur Authors/Genres.
type BookSummary struct {
	ID                 int64
	Title              string
	CoverURL           string
	PageCount          int
	AudioLengthSeconds int
	Authors            []NamedRef
	Genres             []NamedRef

	// Degraded vaut true quand le catalogue était injoignable et que la
	// valeur vient du fallback du circuit breaker.
	Degraded bool
}

// UserSummary : vue minimale d'un utilisateur servie par auth-service.
type UserSummary struct {
	ID          int64
	Username    string
	DisplayName string
	AvatarURL   string
}
