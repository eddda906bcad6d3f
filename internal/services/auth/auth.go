// Package services содержит логику аутентификации администраторов,
// работающих с заявками.
package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/magabrotheeeer/lead-intake/internal/lib/jwt"
	"github.com/magabrotheeeer/lead-intake/internal/lib/password"
	"github.com/magabrotheeeer/lead-intake/internal/models"
)

// ErrInvalidCredentials неверное имя пользователя или пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его UID.
	CreateUser(ctx context.Context, username, email, passwordHash, role string) (string, error)
	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthService отвечает за регистрацию администраторов и выдачу JWT.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register создает нового администратора с хэшированием пароля.
// Роль по умолчанию manager, расширенные права выдаются вручную.
func (s *AuthService) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	return s.users.CreateUser(ctx, username, email, hashed, "manager")
}

// Login проверяет пароль администратора и генерирует JWT.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", ErrInvalidCredentials
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, user.Role)
	if err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// ValidateToken проверяет JWT и возвращает имя пользователя и роль.
func (s *AuthService) ValidateToken(_ context.Context, token string) (username, role string, err error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return "", "", err
	}
	return claims.Username, claims.Role, nil
}
