package update

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

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/lead-intake/internal/models"
	trialsvc "github.com/magabrotheeeer/lead-intake/internal/services/trial"
)

// MockService реализует интерфейс update.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Update(ctx context.Context, id int, req models.DummyTrialUpdate) (*models.Trial, error) {
	args := m.Called(ctx, id, req)
	if res := args.Get(0); res != nil {
		return res.(*models.Trial), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestUpdateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		id             string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное обновление статуса",
			id:   "10",
			body: `{"status":"cancelled"}`,
			setupMock: func(m *MockService) {
				trial := &models.Trial{ID: 10, Status: models.TrialStatusCancelled}
				m.On("Update", mock.Anything, 10,
					models.DummyTrialUpdate{Status: models.TrialStatusCancelled}).Return(trial, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"cancelled"`,
		},
		{
			name: "сохранение отзыва",
			id:   "11",
			body: `{"feedback":{"rating":4,"comments":"понравилось"}}`,
			setupMock: func(m *MockService) {
				trial := &models.Trial{ID: 11, Status: models.TrialStatusActive}
				m.On("Update", mock.Anything, 11, mock.MatchedBy(func(req models.DummyTrialUpdate) bool {
					return req.Feedback != nil && req.Feedback.Rating == 4
				})).Return(trial, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name:           "некорректный статус",
			id:             "12",
			body:           `{"status":"frozen"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Status must be one of`,
		},
		{
			name:           "отзыв без оценки",
			id:             "12",
			body:           `{"feedback":{"comments":"без оценки"}}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Rating is a required field`,
		},
		{
			name:           "некорректный JSON",
			id:             "13",
			body:           `not a json`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name: "недопустимый переход статуса",
			id:   "14",
			body: `{"status":"active"}`,
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, 14,
					models.DummyTrialUpdate{Status: models.TrialStatusActive}).
					Return(nil, trialsvc.ErrInvalidTransition)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `status transition is not allowed`,
		},
		{
			name: "заявка не найдена",
			id:   "15",
			body: `{"status":"cancelled"}`,
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, 15,
					models.DummyTrialUpdate{Status: models.TrialStatusCancelled}).
					Return(nil, trialsvc.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `trial not found`,
		},
		{
			name: "ошибка сервиса обновления",
			id:   "16",
			body: `{"status":"cancelled"}`,
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, 16,
					models.DummyTrialUpdate{Status: models.TrialStatusCancelled}).
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not update trial`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPut, "/trials/"+tt.id, bytes.NewBufferString(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
