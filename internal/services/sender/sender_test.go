package services

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/lead-intake/internal/lib/smtp"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

type MockSMTPWriter struct {
	mock.Mock
	written []byte
}

func (m *MockSMTPWriter) Write(p []byte) (n int, err error) {
	m.written = append(m.written, p...)
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockSMTPWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func setupHappyPath(t *MockTransport, rcpt string) *MockSMTPWriter {
	mockClient := new(MockSMTPClient)
	mockWriter := new(MockSMTPWriter)

	t.On("GetSMTPUser").Return("noreply@example.com")
	t.On("Connect").Return(mockClient, nil).Once()
	mockClient.On("Mail", "noreply@example.com").Return(nil).Once()
	mockClient.On("Rcpt", rcpt).Return(nil).Once()
	mockClient.On("Data").Return(mockWriter, nil).Once()
	mockWriter.On("Write", mock.AnythingOfType("[]uint8")).Return(100, nil).Once()
	mockWriter.On("Close").Return(nil).Once()
	mockClient.On("Quit").Return(nil).Once()
	mockClient.On("Close").Return(nil).Once()
	return mockWriter
}

func TestSenderService_SendTrialAccountEmail(t *testing.T) {
	body := []byte(`{"email":"client@example.com","contact_name":"Wang Wei","company_name":"Acme Corp",` +
		`"username":"trial_Acme_1234","password":"a7Km2xQp","access_url":"https://trial.example.com/login?user=trial_Acme_1234",` +
		`"trial_end_date":"2026-10-01T00:00:00Z"}`)

	tests := []struct {
		name          string
		body          []byte
		setupMocks    func(*MockTransport) *MockSMTPWriter
		expectedError bool
		errorMessage  string
	}{
		{
			name: "success - credentials email contains account data",
			body: body,
			setupMocks: func(tr *MockTransport) *MockSMTPWriter {
				return setupHappyPath(tr, "client@example.com")
			},
		},
		{
			name: "invalid JSON",
			body: []byte(`invalid json`),
			setupMocks: func(_ *MockTransport) *MockSMTPWriter {
				return nil
			},
			expectedError: true,
			errorMessage:  "error unmarshalling message",
		},
		{
			name: "SMTP connection error",
			body: body,
			setupMocks: func(tr *MockTransport) *MockSMTPWriter {
				tr.On("GetSMTPUser").Return("noreply@example.com")
				tr.On("Connect").Return(nil, errors.New("connection error")).Once()
				return nil
			},
			expectedError: true,
			errorMessage:  "connection error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			service := NewSenderService(transport, "sales@example.com", newNoopLogger())

			writer := tt.setupMocks(transport)

			err := service.SendTrialAccountEmail(tt.body)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMessage)
			} else {
				assert.NoError(t, err)
				sent := string(writer.written)
				assert.Contains(t, sent, "trial_Acme_1234")
				assert.Contains(t, sent, "a7Km2xQp")
				assert.Contains(t, sent, "login?user=trial_Acme_1234")
			}

			transport.AssertExpectations(t)
		})
	}
}

func TestSenderService_SendTrialReminderEmail(t *testing.T) {
	body := []byte(`{"trial_id":1,"email":"client@example.com","contact_name":"Li Na",` +
		`"company_name":"Example Ltd","trial_end_date":"2026-09-08T00:00:00Z","days_remaining":7,"login_count":12}`)

	transport := new(MockTransport)
	service := NewSenderService(transport, "sales@example.com", newNoopLogger())

	writer := setupHappyPath(transport, "client@example.com")

	err := service.SendTrialReminderEmail(body)
	assert.NoError(t, err)
	assert.Contains(t, string(writer.written), "осталось дней: 7")

	transport.AssertExpectations(t)
}

func TestSenderService_SendQuoteAlertEmail(t *testing.T) {
	body := []byte(`{"quote_id":15,"company_name":"Example Ltd","contact_name":"Zhang San",` +
		`"phone":"13912345678","email":"zhang@example.com","company_type":"enterprise",` +
		`"user_count":"11-50","requirements":"нужна интеграция с 1С","created_at":"2026-09-01T10:00:00Z"}`)

	transport := new(MockTransport)
	service := NewSenderService(transport, "sales@example.com", newNoopLogger())

	// Письмо уходит отделу продаж, не клиенту.
	writer := setupHappyPath(transport, "sales@example.com")

	err := service.SendQuoteAlertEmail(body)
	assert.NoError(t, err)
	assert.Contains(t, string(writer.written), "#15")
	assert.Contains(t, string(writer.written), "13912345678")

	transport.AssertExpectations(t)
}

func TestSenderService_SMTPErrorHandling(t *testing.T) {
	body := []byte(`{"email":"client@example.com","contact_name":"Wang Wei","company_name":"Acme Corp",` +
		`"username":"trial_Acme_1234","password":"a7Km2xQp","access_url":"https://trial.example.com/login",` +
		`"trial_end_date":"2026-10-01T00:00:00Z"}`)

	tests := []struct {
		name         string
		setupMocks   func(*MockTransport)
		errorMessage string
	}{
		{
			name: "SMTP Mail error",
			setupMocks: func(tr *MockTransport) {
				mockClient := new(MockSMTPClient)
				tr.On("GetSMTPUser").Return("noreply@example.com")
				tr.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "noreply@example.com").Return(errors.New("mail error")).Once()
				mockClient.On("Close").Return(nil).Once()
			},
			errorMessage: "mail error",
		},
		{
			name: "SMTP Rcpt error",
			setupMocks: func(tr *MockTransport) {
				mockClient := new(MockSMTPClient)
				tr.On("GetSMTPUser").Return("noreply@example.com")
				tr.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "noreply@example.com").Return(nil).Once()
				mockClient.On("Rcpt", "client@example.com").Return(errors.New("rcpt error")).Once()
				mockClient.On("Close").Return(nil).Once()
			},
			errorMessage: "rcpt error",
		},
		{
			name: "SMTP Data error",
			setupMocks: func(tr *MockTransport) {
				mockClient := new(MockSMTPClient)
				tr.On("GetSMTPUser").Return("noreply@example.com")
				tr.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "noreply@example.com").Return(nil).Once()
				mockClient.On("Rcpt", "client@example.com").Return(nil).Once()
				mockClient.On("Data").Return(nil, errors.New("data error")).Once()
				mockClient.On("Close").Return(nil).Once()
			},
			errorMessage: "data error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			service := NewSenderService(transport, "sales@example.com", newNoopLogger())

			tt.setupMocks(transport)

			err := service.SendTrialAccountEmail(body)

			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMessage)

			transport.AssertExpectations(t)
		})
	}
}

func TestSenderService_MessageHeaders(t *testing.T) {
	body := []byte(`{"trial_id":2,"email":"client@example.com","contact_name":"Li Na",` +
		`"company_name":"Example Ltd","trial_end_date":"2026-09-08T00:00:00Z","days_remaining":3}`)

	transport := new(MockTransport)
	service := NewSenderService(transport, "sales@example.com", newNoopLogger())
	writer := setupHappyPath(transport, "client@example.com")

	err := service.SendTrialReminderEmail(body)
	assert.NoError(t, err)

	sent := string(writer.written)
	assert.True(t, strings.HasPrefix(sent, "From: noreply@example.com\r\n"))
	assert.Contains(t, sent, "Content-Type: text/plain; charset=\"UTF-8\"")
}
