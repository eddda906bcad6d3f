package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	jwtlib "github.com/magabrotheeeer/lead-intake/internal/lib/jwt"
	"github.com/magabrotheeeer/lead-intake/internal/lib/password"
	"github.com/magabrotheeeer/lead-intake/internal/models"
)

type UsersMock struct{ mock.Mock }

func (m *UsersMock) CreateUser(ctx context.Context, username, email, passwordHash, role string) (string, error) {
	args := m.Called(ctx, username, email, passwordHash, role)
	return args.String(0), args.Error(1)
}
func (m *UsersMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newTestMaker() jwtlib.Maker {
	return jwtlib.NewJWTMaker("test-secret", time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	users := new(UsersMock)
	svc := NewAuthService(users, newTestMaker())

	users.On("CreateUser", mock.Anything, "admin1", "admin@example.com",
		mock.MatchedBy(func(hash string) bool {
			return password.CompareHash(hash, "secret123") == nil
		}), "manager").Return("uid-1", nil).Once()

	uid, err := svc.Register(context.Background(), "admin@example.com", "admin1", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	users.AssertExpectations(t)
}

func TestAuthService_Login(t *testing.T) {
	hash, err := password.GetHash("secret123")
	require.NoError(t, err)
	user := &models.User{
		UID:          "uid-1",
		Username:     "admin1",
		PasswordHash: hash,
		Role:         "admin",
	}

	tests := []struct {
		name       string
		rawPass    string
		setupMocks func(u *UsersMock)
		wantErr    error
	}{
		{
			name:    "success login",
			rawPass: "secret123",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "admin1").Return(user, nil).Once()
			},
		},
		{
			name:    "wrong password",
			rawPass: "wrong",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "admin1").Return(user, nil).Once()
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "unknown user",
			rawPass: "secret123",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "admin1").Return(nil, sql.ErrNoRows).Once()
			},
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UsersMock)
			svc := NewAuthService(users, newTestMaker())

			tt.setupMocks(users)

			token, role, err := svc.Login(context.Background(), "admin1", tt.rawPass)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, token)
				assert.Equal(t, "admin", role)

				username, gotRole, err := svc.ValidateToken(context.Background(), token)
				require.NoError(t, err)
				assert.Equal(t, "admin1", username)
				assert.Equal(t, "admin", gotRole)
			}

			users.AssertExpectations(t)
		})
	}
}

func TestAuthService_ValidateToken_Invalid(t *testing.T) {
	svc := NewAuthService(new(UsersMock), newTestMaker())

	_, _, err := svc.ValidateToken(context.Background(), "not-a-token")
	assert.Error(t, err)
}
