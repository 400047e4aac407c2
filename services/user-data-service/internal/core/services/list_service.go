package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

// ListService : listes de lecture, dont les deux listes système
// (currently-reading, to-be-read) créées d'office.
type ListService struct {
	lists       ports.ListRepository
	friendships ports.FriendshipRepository
	books       ports.BookClient
	broker      ports.ActivityPublisher
}

func NewListService(
	lists ports.ListRepository,
	friendships ports.FriendshipRepository,
	books ports.BookClient,
	broker ports.ActivityPublisher,
) *ListService {
	return &ListService{
		lists:       lists,
		friendships: friendships,
		books:       books,
		broker:      broker,
	}
}

func (s *ListService) CreateList(ctx context.Context, cmd ports.CreateListCmd) (*domain.List, error) {
	listType := cmd.Type
	if listType == "" {
		listType = domain.ListCustom
	}

	// Une seule liste système de chaque type par utilisateur
	if listType.IsDefault() {
		if _, err := s.lists.GetDefaultList(ctx, cmd.UserID, listType); err == nil {
			return nil, domain.ErrDuplicateList
		}
	}

	list, err := domain.NewList(cmd.UserID, cmd.Name, listType, cmd.IsPublic)
	if err != nil {
		return nil, err
	}
	list.Description = cmd.Description

	if err := s.lists.Save(ctx, list); err != nil {
		return nil, err
	}

	if list.IsPublic && list.Type == domain.ListCustom {
		_ = s.broker.PublishActivity(ctx, &domain.ActivityItem{
			ID:         uuid.NewString(),
			Type:       domain.ActivityListCreated,
			UserID:     cmd.UserID,
			ListID:     list.ID,
			OccurredAt: time.Now().UTC(),
		})
	}

	return list, nil
}

// EnsureDefaultLists crée les listes système manquantes (idempotent).
func (s *ListService) EnsureDefaultLists(ctx context.Context, userID int64) error {
	defaults := []struct {
		listType domain.ListType
		name     string
	}{
		{domain.ListCurrentlyReading, "Currently Reading"},
		{domain.ListToBeRead, "To Be Read"},
	}

	for _, d := range defaults {
		_, err := s.lists.GetDefaultList(ctx, userID, d.listType)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrListNotFound) {
			return err
		}

		list, err := domain.NewList(userID, d.name, d.listType, false)
		if err != nil {
			return err
		}
		if err := s.lists.Save(ctx, list); err != nil {
			// Course possible avec une création concurrente, l'index partiel tranche
			if errors.Is(err, domain.ErrDuplicateList) {
				continue
			}
			return err
		}
	}
	return nil
}

// GetLists : le propriétaire voit tout, les amis voient le public,
// les autres aussi (les listes privées restent privées).
func (s *ListService) GetLists(ctx context.Context, ownerID, viewerID int64) ([]*domain.List, error) {
	publicOnly := ownerID != viewerID
	if !publicOnly {
		// Filet de sécurité pour les comptes créés avant l'événement users.registered
		if err := s.EnsureDefaultLists(ctx, ownerID); err != nil {
			slog.Warn("⚠️ Default lists check failed", "user_id", ownerID, "error", err)
		}
	}
	return s.lists.GetByUser(ctx, ownerID, publicOnly)
}

func (s *ListService) GetList(ctx context.Context, listID, viewerID int64) (*ports.ListView, error) {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, err
	}

	if !list.IsPublic && list.UserID != viewerID {
		return nil, domain.ErrPrivateResource
	}

	items, err := s.lists.GetItems(ctx, listID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.BookID)
	}

	summaries := map[int64]*domain.BookSummary{}
	if len(ids) > 0 {
		if summaries, err = s.books.GetBooks(ctx, ids); err != nil {
			slog.Warn("⚠️ Book enrichment failed", "list_id", listID, "error", err)
			summaries = map[int64]*domain.BookSummary{}
		}
	}

	view := &ports.ListView{List: list}
	for _, item := range items {
		view.Items = append(view.Items, ports.ListItemView{
			Item: item,
			Book: summaries[item.BookID],
		})
	}
	return view, nil
}

func (s *ListService) UpdateList(ctx context.Context, cmd ports.UpdateListCmd) (*domain.List, error) {
	list, err := s.ownedList(ctx, cmd.UserID, cmd.ListID)
	if err != nil {
		return nil, err
	}

	if cmd.Name != nil {
		if list.Type.IsDefault() {
			return nil, domain.ErrDefaultListLocked
		}
		list.Name = *cmd.Name
	}
	if cmd.Description != nil {
		list.Description = *cmd.Description
	}
	if cmd.IsPublic != nil {
		list.IsPublic = *cmd.IsPublic
	}
	list.UpdatedAt = time.Now().UTC()

	if err := s.lists.Update(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *ListService) DeleteList(ctx context.Context, userID, listID int64) error {
	list, err := s.ownedList(ctx, userID, listID)
	if err != nil {
		return err
	}
	if list.Type.IsDefault() {
		return domain.ErrDefaultListLocked
	}
	return s.lists.Delete(ctx, listID)
}

func (s *ListService) AddBookToList(ctx context.Context, userID, listID, bookID int64, note string) (*domain.ListItem, error) {
	if _, err := s.ownedList(ctx, userID, listID); err != nil {
		return nil, err
	}

	if _, err := s.books.GetBook(ctx, bookID); err != nil {
		return nil, err
	}

	item := &domain.ListItem{
		ListID:  listID,
		BookID:  bookID,
		Note:    note,
		AddedAt: time.Now().UTC(),
	}
	if err := s.lists.AddItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ListService) RemoveBookFromList(ctx context.Context, userID, listID, bookID int64) error {
	if _, err := s.ownedList(ctx, userID, listID); err != nil {
		return err
	}
	return s.lists.RemoveItem(ctx, listID, bookID)
}

// ReorderList réécrit l'ordre complet : bookIDs doit contenir exactement
// les livres de la liste, dans l'ordre voulu.
func (s *ListService) ReorderList(ctx context.Context, userID, listID int64, bookIDs []int64) error {
	if _, err := s.ownedList(ctx, userID, listID); err != nil {
		return err
	}

	items, err := s.lists.GetItems(ctx, listID)
	if err != nil {
		return err
	}
	if len(bookIDs) != len(items) {
		return domain.ErrInvalidReorder
	}

	current := make(map[int64]struct{}, len(items))
	for _, item := range items {
		current[item.BookID] = struct{}{}
	}
	for _, id := range bookIDs {
		if _, ok := current[id]; !ok {
			return domain.ErrInvalidReorder
		}
		delete(current, id)
	}

	return s.lists.ReorderItems(ctx, listID, bookIDs)
}

func (s *ListService) ownedList(ctx context.Context, userID, listID int64) (*domain.List, error) {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if list.UserID != userID {
		return nil, domain.ErrNotOwner
	}
	return list, nil
}
