// Package auth реализует регистрацию и вход пользователей.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookinsights/insights-backend/internal/lib/jwt"
	"github.com/bookinsights/insights-backend/internal/lib/password"
	"github.com/bookinsights/insights-backend/internal/models"
)

// Ошибки сервиса аутентификации.
var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserRepository операции хранилища над пользователями.
type UserRepository interface {
	RegisterUser(ctx context.Context, user models.User) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateDailyEmailOptIn(ctx context.Context, uid string, optIn bool) error
}

// Service сервис аутентификации.
type Service struct {
	repo     UserRepository
	jwtMaker jwt.Maker
}

// New создает сервис аутентификации.
func New(repo UserRepository, jwtMaker jwt.Maker) *Service {
	return &Service{repo: repo, jwtMaker: jwtMaker}
}

// AuthResult токен и данные пользователя после входа или регистрации.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register создает пользователя и возвращает токен доступа.
func (s *Service) Register(ctx context.Context, email, name, rawPassword string) (*AuthResult, error) {
	const op = "auth.Register"

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{
		Email:           email,
		Name:            name,
		PasswordHash:    hash,
		Role:            models.RoleUser,
		DailyEmailOptIn: true,
	}
	uid, err := s.repo.RegisterUser(ctx, *user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.UID = uid

	token, err := s.jwtMaker.GenerateToken(user.UID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Login проверяет пароль и выдает токен. Неизвестный email и неверный
// пароль дают одинаковую ошибку.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*AuthResult, error) {
	const op = "auth.Login"

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtMaker.GenerateToken(user.UID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// SetDailyEmailOptIn переключает подписку пользователя на дайджест.
func (s *Service) SetDailyEmailOptIn(ctx context.Context, uid string, optIn bool) error {
	const op = "auth.SetDailyEmailOptIn"

	if err := s.repo.UpdateDailyEmailOptIn(ctx, uid, optIn); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
