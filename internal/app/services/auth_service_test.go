package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvill/rosterbase/internal/app/models"
	"github.com/mvill/rosterbase/internal/app/models/dto"
	"github.com/mvill/rosterbase/internal/pkg/apperrors"
	"github.com/mvill/rosterbase/internal/pkg/auth"
)

type fakeUserRepo struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*models.User), nextID: 1}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) (int64, error) {
	id := f.nextID
	f.nextID++
	copied := *user
	copied.ID = id
	f.users[id] = &copied
	return id, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUserRepo) UsernameExists(_ context.Context, username string, excludeID int64) (bool, error) {
	for _, user := range f.users {
		if user.Username == username && user.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) List(_ context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0, len(f.users))
	for id := int64(1); id < f.nextID; id++ {
		if user, ok := f.users[id]; ok {
			copied := *user
			users = append(users, &copied)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return apperrors.ErrUserNotFound
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return apperrors.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func newTestAuthService(repo *fakeUserRepo) AuthService {
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "rosterbase-test",
	})
	return NewAuthService(repo, jwtService, zerolog.Nop())
}

func TestRegisterIssuesToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	response, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "registrar",
		Password: "correct-horse",
		Name:     "Registrar",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, response.Token.AccessToken)
	assert.Equal(t, "Bearer", response.Token.TokenType)
	assert.Equal(t, int64(3600), response.Token.ExpiresIn)
	assert.Equal(t, "registrar", response.User.Username)
	require.Len(t, repo.users, 1)

	// The stored password is hashed, never the raw input.
	stored := repo.users[response.User.ID]
	assert.NotEqual(t, "correct-horse", stored.Password)
	assert.True(t, auth.CheckPassword(stored.Password, "correct-horse"))
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "registrar", Password: "correct-horse", Name: "A", Role: models.RoleAdmin,
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{
		Username: "registrar", Password: "battery-staple", Name: "B", Role: models.RoleAdmin,
	})
	assert.ErrorIs(t, err, apperrors.ErrUsernameAlreadyExists)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "ab", Password: "correct-horse", Role: models.RoleAdmin,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{
		Username: "registrar", Password: "short", Role: models.RoleAdmin,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{
		Username: "registrar", Password: "correct-horse", Role: models.RoleType("STUDENT"),
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "registrar", Password: "correct-horse", Name: "A", Role: models.RoleSuperAdmin,
	})
	require.NoError(t, err)

	response, err := svc.Login(context.Background(), dto.LoginRequest{
		Username: "registrar", Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, response.Token.AccessToken)
	assert.Equal(t, models.RoleSuperAdmin, response.User.Role)
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "registrar", Password: "correct-horse", Name: "A", Role: models.RoleAdmin,
	})
	require.NoError(t, err)

	// Wrong password and unknown user collapse into the same error.
	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "registrar", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "nobody", Password: "correct-horse"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUpdateUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	response, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "registrar", Password: "correct-horse", Name: "Old", Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	userID := response.User.ID

	newName := "New Name"
	newRole := models.RoleSuperAdmin
	user, err := svc.UpdateUser(context.Background(), userID, dto.UpdateUserRequest{
		Name: &newName,
		Role: &newRole,
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.Name)
	assert.Equal(t, models.RoleSuperAdmin, user.Role)

	// Username unchanged by the partial update.
	assert.Equal(t, "registrar", user.Username)
}

func TestUpdateUserUsernameCollision(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "first", Password: "correct-horse", Name: "A", Role: models.RoleAdmin,
	})
	require.NoError(t, err)

	second, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "second", Password: "correct-horse", Name: "B", Role: models.RoleAdmin,
	})
	require.NoError(t, err)

	taken := "first"
	_, err = svc.UpdateUser(context.Background(), second.User.ID, dto.UpdateUserRequest{Username: &taken})
	assert.ErrorIs(t, err, apperrors.ErrUsernameAlreadyExists)
}

func TestDeleteUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	response, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "registrar", Password: "correct-horse", Name: "A", Role: models.RoleAdmin,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(context.Background(), response.User.ID))
	assert.ErrorIs(t, svc.DeleteUser(context.Background(), response.User.ID), apperrors.ErrUserNotFound)
}
