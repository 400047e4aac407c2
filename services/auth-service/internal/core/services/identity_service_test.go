package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safegergis/tome/services/auth-service/internal/core/domain"
	"github.com/safegergis/tome/services/auth-service/internal/core/ports"
)

// --- Stubs ---

type stubUserRepo struct {
	byEmail    map[string]*domain.User
	byUsername map[string]*domain.User
	byID       map[int64]*domain.User
	nextID     int64
	saveErr    error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byEmail:    map[string]*domain.User{},
		byUsername: map[string]*domain.User{},
		byID:       map[int64]*domain.User{},
		nextID:     1,
	}
}

func (r *stubUserRepo) Save(ctx context.Context, u *domain.User) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	u.ID = r.nextID
	r.nextID++
	r.byEmail[u.Email] = u
	r.byUsername[u.Username] = u
	r.byID[u.ID] = u
	return nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if u, ok := r.byUsername[username]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) GetByIDs(ctx context.Context, ids []int64) ([]*domain.User, error) {
	var out []*domain.User
	for _, id := range ids {
		if u, ok := r.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) Search(ctx context.Context, q string, limit int) ([]*domain.User, error) {
	return nil, nil
}

func (r *stubUserRepo) Update(ctx context.Context, u *domain.User) error {
	r.byID[u.ID] = u
	return nil
}

type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (stubHasher) Compare(hash, password string) error {
	if hash == "hashed:"+password {
		return nil
	}
	return domain.ErrInvalidCredentials
}

type stubTokens struct{ lastUserID int64 }

func (s *stubTokens) GenerateTokens(u *domain.User) (string, string, error) {
	s.lastUserID = u.ID
	return "access-token", "refresh-token", nil
}
func (s *stubTokens) Validate(token string) (int64, error) {
	if token == "access-token" {
		return s.lastUserID, nil
	}
	return 0, domain.ErrInvalidToken
}
func (s *stubTokens) ValidateRefresh(token string) (int64, error) {
	if token == "refresh-token" {
		return s.lastUserID, nil
	}
	return 0, domain.ErrInvalidToken
}

type stubPublisher struct{ published []int64 }

func (p *stubPublisher) PublishUserRegistered(ctx context.Context, userID int64, email string) error {
	p.published = append(p.published, userID)
	return nil
}

func newTestService() (*IdentityService, *stubUserRepo, *stubPublisher) {
	repo := newStubUserRepo()
	pub := &stubPublisher{}
	svc := NewIdentityService(repo, stubHasher{}, &stubTokens{}, pub)
	return svc, repo, pub
}

// --- Tests ---

func TestRegister(t *testing.T) {
	svc, _, pub := newTestService()

	resp, err := svc.Register(context.Background(), ports.RegisterCmd{
		Email:       "alice@example.com",
		Username:    "alice",
		Password:    "Str0ngPass",
		DisplayName: "Alice",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.User.ID)
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, []int64{1}, pub.published, "registration event is published")
}

func TestTokenTypesNotInterchangeable(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	resp, err := svc.Register(ctx, ports.RegisterCmd{
		Email: "alice@example.com", Username: "alice", Password: "Str0ngPass",
	})
	require.NoError(t, err)

	// Le refresh token ne vaut pas access token, et inversement
	_, err = svc.ValidateToken(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = svc.RefreshToken(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	refreshed, err := svc.RefreshToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, refreshed.User.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), ports.RegisterCmd{
		Email: "alice@example.com", Username: "alice", Password: "Str0ngPass",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), ports.RegisterCmd{
		Email: "alice@example.com", Username: "alice2", Password: "Str0ngPass",
	})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), ports.RegisterCmd{
		Email: "alice@example.com", Username: "alice", Password: "Str0ngPass",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), ports.RegisterCmd{
		Email: "other@example.com", Username: "alice", Password: "Str0ngPass",
	})
	assert.ErrorIs(t, err, domain.ErrUsernameAlreadyExists)
}

func TestRegister_WeakPassword(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.Register(context.Background(), ports.RegisterCmd{
		Email: "alice@example.com", Username: "alice", Password: "weak",
	})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)
	assert.Empty(t, repo.byID, "nothing persisted on validation failure")
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), ports.RegisterCmd{
		Email: "alice@example.com", Username: "alice", Password: "Str0ngPass",
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), ports.LoginCmd{
		Email: "alice@example.com", Password: "Str0ngPass",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), ports.RegisterCmd{
		Email: "alice@example.com", Username: "alice", Password: "Str0ngPass",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), ports.LoginCmd{
		Email: "alice@example.com", Password: "WrongPass1",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newTestService()

	// Même erreur générique que pour un mauvais mot de passe
	_, err := svc.Login(context.Background(), ports.LoginCmd{
		Email: "ghost@example.com", Password: "Str0ngPass",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	svc, repo, _ := newTestService()

	resp, err := svc.Register(context.Background(), ports.RegisterCmd{
		Email: "alice@example.com", Username: "alice", Password: "Str0ngPass",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), resp.User.ID, "Str0ngPass", "N3wPassword")
	require.NoError(t, err)
	assert.Equal(t, "hashed:N3wPassword", repo.byID[resp.User.ID].PasswordHash)

	err = svc.ChangePassword(context.Background(), resp.User.ID, "Str0ngPass", "An0therPass")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "old password no longer valid")
}

func TestUpdateProfile_PartialUpdate(t *testing.T) {
	svc, _, _ := newTestService()

	resp, err := svc.Register(context.Background(), ports.RegisterCmd{
		Email: "alice@example.com", Username: "alice", Password: "Str0ngPass", DisplayName: "Alice",
	})
	require.NoError(t, err)

	bio := "Bibliophile"
	user, err := svc.UpdateProfile(context.Background(), ports.UpdateProfileCmd{
		UserID: resp.User.ID,
		Bio:    &bio,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bibliophile", user.Bio)
	assert.Equal(t, "Alice", user.DisplayName, "fields not in the command are untouched")
}

func TestGetUsers_Batch(t *testing.T) {
	svc, _, _ := newTestService()

	for _, name := range []string{"alice", "bruno", "chloe"} {
		_, err := svc.Register(context.Background(), ports.RegisterCmd{
			Email: name + "@example.com", Username: name, Password: "Str0ngPass",
		})
		require.NoError(t, err)
	}

	users, err := svc.GetUsers(context.Background(), []int64{1, 3, 99})
	require.NoError(t, err)

	assert.Len(t, users, 2, "unknown IDs are simply absent")
	assert.Equal(t, "alice", users[1].Username)
	assert.Equal(t, "chloe", users[3].Username)
}
