package intake

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/lead-intake/internal/models"
	trialsvc "github.com/magabrotheeeer/lead-intake/internal/services/trial"
)

// MockService реализует интерфейс intake.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, req models.DummyTrialRequest, meta trialsvc.ClientMeta) (*models.Trial, error) {
	args := m.Called(ctx, req, meta)
	if res := args.Get(0); res != nil {
		return res.(*models.Trial), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestIntakeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	validBody := `{"company_name":"Acme","contact_name":"Иван Петров","phone":"13800138000","email":"ivan@acme.example"}`

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная регистрация заявки",
			body: validBody,
			setupMock: func(m *MockService) {
				trial := &models.Trial{
					ID: 1,
					Account: models.TrialAccount{
						Username:  "trial_Acme_1234",
						Password:  "aBcDeFgH",
						AccessURL: "https://trial.example.com/login?user=trial_Acme_1234",
					},
					TrialEndDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
				}
				m.On("Register", mock.Anything, mock.AnythingOfType("models.DummyTrialRequest"),
					mock.AnythingOfType("services.ClientMeta")).Return(trial, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"username":"trial_Acme_1234"`,
		},
		{
			name:           "некорректный JSON",
			body:           `not a json`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:           "отсутствует название компании",
			body:           `{"contact_name":"Иван","phone":"13800138000","email":"ivan@acme.example"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field CompanyName is a required field`,
		},
		{
			name:           "некорректный телефон",
			body:           `{"company_name":"Acme","contact_name":"Иван","phone":"12345","email":"ivan@acme.example"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Phone must be a valid mobile phone number`,
		},
		{
			name: "повторная заявка с той же почтой",
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, mock.AnythingOfType("models.DummyTrialRequest"),
					mock.AnythingOfType("services.ClientMeta")).Return(nil, trialsvc.ErrDuplicateIdentity)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `trial already requested with this email or phone`,
		},
		{
			name: "ошибка сервиса регистрации",
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, mock.AnythingOfType("models.DummyTrialRequest"),
					mock.AnythingOfType("services.ClientMeta")).Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not register trial`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/trials", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}

func TestIntakeHandler_ClientMeta(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mockService := new(MockService)
	mockService.On("Register", mock.Anything, mock.AnythingOfType("models.DummyTrialRequest"),
		mock.MatchedBy(func(meta trialsvc.ClientMeta) bool {
			return meta.IPAddress == "203.0.113.7" && meta.UserAgent == "test-agent"
		})).Return(&models.Trial{ID: 2}, nil)

	handler := New(logger, mockService)

	body := `{"company_name":"Acme","contact_name":"Иван Петров","phone":"13800138000","email":"ivan@acme.example"}`
	req := httptest.NewRequest(http.MethodPost, "/trials", bytes.NewBufferString(body))
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("User-Agent", "test-agent")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}
