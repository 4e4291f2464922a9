package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookinsights/insights-backend/internal/lib/jwt"
	"github.com/bookinsights/insights-backend/internal/lib/password"
	"github.com/bookinsights/insights-backend/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *RepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *RepoMock) UpdateDailyEmailOptIn(ctx context.Context, uid string, optIn bool) error {
	return m.Called(ctx, uid, optIn).Error(0)
}

func newTestMaker() jwt.Maker {
	return jwt.NewJWTMaker("test-secret", time.Hour)
}

func TestRegister_Success(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetUserByEmail", mock.Anything, "new@example.com").Return(nil, nil).Once()
	repo.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Email == "new@example.com" &&
			u.Role == models.RoleUser &&
			u.DailyEmailOptIn &&
			u.PasswordHash != "" && u.PasswordHash != "secret-password"
	})).Return("uid-new", nil).Once()
	svc := New(repo, newTestMaker())

	result, err := svc.Register(context.Background(), "new@example.com", "Reader", "secret-password")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "uid-new", result.User.UID)
	repo.AssertExpectations(t)
}

func TestRegister_EmailTaken(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetUserByEmail", mock.Anything, "taken@example.com").
		Return(&models.User{UID: "uid-1"}, nil).Once()
	svc := New(repo, newTestMaker())

	_, err := svc.Register(context.Background(), "taken@example.com", "Reader", "secret-password")
	assert.ErrorIs(t, err, ErrUserExists)
	repo.AssertNotCalled(t, "RegisterUser")
}

func TestLogin_Success(t *testing.T) {
	hash, err := password.GetHash("secret-password")
	require.NoError(t, err)

	repo := new(RepoMock)
	repo.On("GetUserByEmail", mock.Anything, "reader@example.com").Return(&models.User{
		UID:          "uid-1",
		Email:        "reader@example.com",
		PasswordHash: hash,
		Role:         models.RoleUser,
	}, nil).Once()
	svc := New(repo, newTestMaker())

	result, err := svc.Login(context.Background(), "reader@example.com", "secret-password")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, err := password.GetHash("secret-password")
	require.NoError(t, err)

	repo := new(RepoMock)
	repo.On("GetUserByEmail", mock.Anything, "reader@example.com").Return(&models.User{
		UID:          "uid-1",
		PasswordHash: hash,
	}, nil).Once()
	svc := New(repo, newTestMaker())

	_, err = svc.Login(context.Background(), "reader@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetUserByEmail", mock.Anything, "missing@example.com").Return(nil, nil).Once()
	svc := New(repo, newTestMaker())

	_, err := svc.Login(context.Background(), "missing@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
