package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

type stubListRepo struct {
	nextID  int64
	lists   map[int64]*domain.List
	items   map[int64][]*domain.ListItem
	deleted map[int64]bool
}

func newStubListRepo() *stubListRepo {
	return &stubListRepo{
		nextID:  1,
		lists:   make(map[int64]*domain.List),
		items:   make(map[int64][]*domain.ListItem),
		deleted: make(map[int64]bool),
	}
}

func (r *stubListRepo) Save(_ context.Context, l *domain.List) error {
	l.ID = r.nextID
	r.nextID++
	r.lists[l.ID] = l
	return nil
}

func (r *stubListRepo) Update(_ context.Context, l *domain.List) error {
	if _, ok := r.lists[l.ID]; !ok || r.deleted[l.ID] {
		return domain.ErrListNotFound
	}
	r.lists[l.ID] = l
	return nil
}

// Delete marque la liste comme supprimée sans retirer la ligne,
// comme le fait l'adapter Postgres avec deleted_at.
func (r *stubListRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.lists[id]; !ok || r.deleted[id] {
		return domain.ErrListNotFound
	}
	r.deleted[id] = true
	return nil
}

func (r *stubListRepo) GetByID(_ context.Context, id int64) (*domain.List, error) {
	l, ok := r.lists[id]
	if !ok || r.deleted[id] {
		return nil, domain.ErrListNotFound
	}
	return l, nil
}

func (r *stubListRepo) GetByUser(_ context.Context, userID int64, publicOnly bool) ([]*domain.List, error) {
	var out []*domain.List
	for _, l := range r.lists {
		if l.UserID != userID || r.deleted[l.ID] {
			continue
		}
		if publicOnly && !l.IsPublic {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *stubListRepo) GetDefaultList(_ context.Context, userID int64, listType domain.ListType) (*domain.List, error) {
	for _, l := range r.lists {
		if l.UserID == userID && l.Type == listType && !r.deleted[l.ID] {
			return l, nil
		}
	}
	return nil, domain.ErrListNotFound
}

func (r *stubListRepo) GetRecentPublicByUsers(_ context.Context, _ []int64, _ int) ([]*domain.List, error) {
	return nil, nil
}

func (r *stubListRepo) AddItem(_ context.Context, item *domain.ListItem) error {
	for _, existing := range r.items[item.ListID] {
		if existing.BookID == item.BookID {
			return domain.ErrDuplicateListItem
		}
	}
	item.ID = r.nextID
	r.nextID++
	item.Position = len(r.items[item.ListID]) + 1
	r.items[item.ListID] = append(r.items[item.ListID], item)
	return nil
}

func (r *stubListRepo) RemoveItem(_ context.Context, listID, bookID int64) error {
	items := r.items[listID]
	for i, item := range items {
		if item.BookID == bookID {
			r.items[listID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return domain.ErrListItemNotFound
}

func (r *stubListRepo) GetItems(_ context.Context, listID int64) ([]*domain.ListItem, error) {
	return r.items[listID], nil
}

func (r *stubListRepo) ReorderItems(_ context.Context, listID int64, bookIDs []int64) error {
	position := map[int64]int{}
	for i, id := range bookIDs {
		position[id] = i + 1
	}
	for _, item := range r.items[listID] {
		item.Position = position[item.BookID]
	}
	return nil
}

func newListFixture() (*ListService, *stubListRepo, *stubActivityPublisher) {
	lists := newStubListRepo()
	friendships := newStubFriendshipRepo()
	books := &stubBookClient{books: map[int64]*domain.BookSummary{
		10: {ID: 10, Title: "Dune"},
		11: {ID: 11, Title: "Hyperion"},
	}}
	broker := &stubActivityPublisher{}
	return NewListService(lists, friendships, books, broker), lists, broker
}

func TestCreateList(t *testing.T) {
	ctx := context.Background()
	svc, _, broker := newListFixture()

	list, err := svc.CreateList(ctx, ports.CreateListCmd{
		UserID:   1,
		Name:     "Summer reads",
		IsPublic: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ListCustom, list.Type)

	// Liste publique CUSTOM : visible dans le fil des amis
	require.Len(t, broker.published, 1)
	assert.Equal(t, domain.ActivityListCreated, broker.published[0].Type)
}

func TestCreateList_PrivateNotPublished(t *testing.T) {
	ctx := context.Background()
	svc, _, broker := newListFixture()

	_, err := svc.CreateList(ctx, ports.CreateListCmd{UserID: 1, Name: "Secret"})
	require.NoError(t, err)
	assert.Empty(t, broker.published)
}

func TestCreateList_SingleDefaultPerType(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newListFixture()

	_, err := svc.CreateList(ctx, ports.CreateListCmd{
		UserID: 1,
		Name:   "Currently Reading",
		Type:   domain.ListCurrentlyReading,
	})
	require.NoError(t, err)

	_, err = svc.CreateList(ctx, ports.CreateListCmd{
		UserID: 1,
		Name:   "Reading again",
		Type:   domain.ListCurrentlyReading,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateList)
}

func TestEnsureDefaultLists_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, lists, _ := newListFixture()

	require.NoError(t, svc.EnsureDefaultLists(ctx, 1))
	require.NoError(t, svc.EnsureDefaultLists(ctx, 1))

	owned, err := lists.GetByUser(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

func TestUpdateList_DefaultsLocked(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newListFixture()

	require.NoError(t, svc.EnsureDefaultLists(ctx, 1))
	owned, err := svc.GetLists(ctx, 1, 1)
	require.NoError(t, err)
	require.NotEmpty(t, owned)

	name := "Renamed"
	_, err = svc.UpdateList(ctx, ports.UpdateListCmd{
		UserID: 1,
		ListID: owned[0].ID,
		Name:   &name,
	})
	assert.ErrorIs(t, err, domain.ErrDefaultListLocked)

	assert.ErrorIs(t, svc.DeleteList(ctx, 1, owned[0].ID), domain.ErrDefaultListLocked)

	// La visibilité reste modifiable
	public := true
	_, err = svc.UpdateList(ctx, ports.UpdateListCmd{
		UserID:   1,
		ListID:   owned[0].ID,
		IsPublic: &public,
	})
	assert.NoError(t, err)
}

func TestDeleteList_HiddenFromReads(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newListFixture()

	list, err := svc.CreateList(ctx, ports.CreateListCmd{UserID: 1, Name: "Abandonnés"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteList(ctx, 1, list.ID))

	_, err = svc.GetList(ctx, list.ID, 1)
	assert.ErrorIs(t, err, domain.ErrListNotFound)

	owned, err := svc.GetLists(ctx, 1, 1)
	require.NoError(t, err)
	for _, l := range owned {
		assert.NotEqual(t, list.ID, l.ID)
	}

	// Une seconde suppression ne trouve plus la liste
	assert.ErrorIs(t, svc.DeleteList(ctx, 1, list.ID), domain.ErrListNotFound)
}

func TestGetList_PrivacyEnforced(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newListFixture()

	private, err := svc.CreateList(ctx, ports.CreateListCmd{UserID: 1, Name: "Secret"})
	require.NoError(t, err)

	_, err = svc.GetList(ctx, private.ID, 2)
	assert.ErrorIs(t, err, domain.ErrPrivateResource)

	view, err := svc.GetList(ctx, private.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Secret", view.List.Name)
}

func TestAddBookToList(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newListFixture()

	list, err := svc.CreateList(ctx, ports.CreateListCmd{UserID: 1, Name: "Sci-fi"})
	require.NoError(t, err)

	item, err := svc.AddBookToList(ctx, 1, list.ID, 10, "à relire")
	require.NoError(t, err)
	assert.Equal(t, 1, item.Position)

	_, err = svc.AddBookToList(ctx, 1, list.ID, 10, "")
	assert.ErrorIs(t, err, domain.ErrDuplicateListItem)

	// Pas le propriétaire
	_, err = svc.AddBookToList(ctx, 2, list.ID, 10, "")
	assert.ErrorIs(t, err, domain.ErrNotOwner)
}

func TestGetLists_VisitorSeesPublicOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newListFixture()

	_, err := svc.CreateList(ctx, ports.CreateListCmd{UserID: 1, Name: "Secret"})
	require.NoError(t, err)
	_, err = svc.CreateList(ctx, ports.CreateListCmd{UserID: 1, Name: "Open", IsPublic: true})
	require.NoError(t, err)

	visible, err := svc.GetLists(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "Open", visible[0].Name)

	own, err := svc.GetLists(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, own, 2)
}

func TestReorderList(t *testing.T) {
	ctx := context.Background()
	svc, lists, _ := newListFixture()

	list, err := svc.CreateList(ctx, ports.CreateListCmd{UserID: 1, Name: "Sci-fi"})
	require.NoError(t, err)
	_, err = svc.AddBookToList(ctx, 1, list.ID, 10, "")
	require.NoError(t, err)
	_, err = svc.AddBookToList(ctx, 1, list.ID, 11, "")
	require.NoError(t, err)

	require.NoError(t, svc.ReorderList(ctx, 1, list.ID, []int64{11, 10}))

	items, err := lists.GetItems(ctx, list.ID)
	require.NoError(t, err)
	positions := map[int64]int{}
	for _, item := range items {
		positions[item.BookID] = item.Position
	}
	assert.Equal(t, 1, positions[11])
	assert.Equal(t, 2, positions[10])

	// L'ordre doit couvrir exactement les livres de la liste
	assert.ErrorIs(t, svc.ReorderList(ctx, 1, list.ID, []int64{11}), domain.ErrInvalidReorder)
	assert.ErrorIs(t, svc.ReorderList(ctx, 1, list.ID, []int64{11, 99}), domain.ErrInvalidReorder)

	assert.ErrorIs(t, svc.ReorderList(ctx, 2, list.ID, []int64{11, 10}), domain.ErrNotOwner)
}
