package domain

import (
	"strings"
	"time"
)

// ListType distingue les listes système des listes libres.
type ListType string

const (
	ListCustom           ListType = "CUSTOM"
	ListCurrentlyReading ListType = "CURRENTLY_READING"
	ListToBeRead         ListType = "TO_BE_READ"
)

// ParseListType accepte l'enum brut ou sa forme kebab-case URL
// ("to-be-read" -> TO_BE_READ).
func ParseListType(s string) (ListType, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	switch ListType(normalized) {
	case ListCustom, ListCurrentlyReading, ListToBeRead:
		return ListType(normalized), nil
	}
	return "", ErrInvalidListType
}

// Slug retourne la forme kebab-case pour les URLs.
func (t ListType) Slug() string {
	return strings.ToLower(strings.ReplaceAll(string(t), "_", "-"))
}

// IsDefault : les listes système sont créées d'office et verrouillées
// (pas de renommage ni de suppression, une seule par utilisateur).
func (t ListType) IsDefault() bool {
	return t == ListCurrentlyReading || t == ListToBeRead
}

type List struct {
	ID          int64
	UserID      int64
	Name        string
	Description string
	Type        ListType
	IsPublic    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Rempli à la lecture, pas géré par l'agrégat
	ItemCount int
}

func NewList(userID int64, name string, listType ListType, isPublic bool) (*List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidListType
	}
	if _, err := ParseListType(string(listType)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &List{
		UserID:    userID,
		Name:      name,
		Type:      listType,
		IsPublic:  isPublic,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ListItem : un livre dans une liste, ordonné par position.
type ListItem struct {
	ID       int64
	ListID   int64
	BookID   int64
	Position int
	Note     string
	AddedAt  time.Time
}
