package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/magabrotheeeer/lead-intake/internal/models"
)

// CreateUser регистрирует административного пользователя и возвращает его UID.
func (s *Storage) CreateUser(ctx context.Context, username, email, passwordHash, role string) (string, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	uid := uuid.New().String()
	query := `INSERT INTO users (uid, username, email, password_hash, role)
			  VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.DB.ExecContext(ctx, query, uid, username, email, passwordHash, role); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// GetUserByUsername возвращает административного пользователя по имени.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var user models.User
	query := `SELECT uid, username, email, password_hash, role, created_at
			  FROM users
			  WHERE username = $1`
	err := s.DB.QueryRowContext(ctx, query, username).Scan(
		&user.UID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}
