// Package services содержит отправку писем по сообщениям из очереди:
// учётные данные нового пробного аккаунта, напоминания о скором окончании
// пробного периода и уведомления отдела продаж о заявках на расчёт цены.
package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/lead-intake/internal/lib/sl"
	"github.com/magabrotheeeer/lead-intake/internal/lib/smtp"
	"github.com/magabrotheeeer/lead-intake/internal/models"
)

// SenderService отправляет письма через SMTP транспорт.
type SenderService struct {
	transport  smtp.TransportInterface
	salesEmail string
	log        *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, salesEmail string, log *slog.Logger) *SenderService {
	return &SenderService{
		transport:  transport,
		salesEmail: salesEmail,
		log:        log,
	}
}

// SendTrialAccountEmail отправляет клиенту письмо с учётными данными
// нового пробного аккаунта.
func (s *SenderService) SendTrialAccountEmail(body []byte) error {
	var message models.TrialAccountInfo
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Данные для входа в пробную версию"
	bodyText := fmt.Sprintf(`Здравствуйте, %s!

Компания %s получила пробный доступ к системе.

Имя пользователя: %s
Пароль: %s
Ссылка для входа: %s

Пробный период действует до %s.`,
		message.ContactName, message.CompanyName,
		message.Username, message.Password, message.AccessURL,
		message.TrialEndDate.Format("02.01.2006"))

	return s.sendEmail(to, subject, bodyText)
}

// SendTrialReminderEmail напоминает клиенту о скором окончании
// пробного периода.
func (s *SenderService) SendTrialReminderEmail(body []byte) error {
	var message models.TrialReminderInfo
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Пробный период скоро закончится"
	bodyText := fmt.Sprintf(`Здравствуйте, %s!

Пробный доступ компании %s заканчивается %s, осталось дней: %d.

Чтобы продолжить работу без перерыва, свяжитесь с нашим менеджером
для оформления подписки или продления пробного периода.`,
		message.ContactName, message.CompanyName,
		message.TrialEndDate.Format("02.01.2006"), message.DaysRemaining)

	return s.sendEmail(to, subject, bodyText)
}

// SendQuoteAlertEmail уведомляет отдел продаж о новой заявке на расчёт цены.
func (s *SenderService) SendQuoteAlertEmail(body []byte) error {
	var message models.QuoteAlertInfo
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{s.salesEmail}
	subject := fmt.Sprintf("Новая заявка на расчёт цены #%d", message.QuoteID)
	bodyText := fmt.Sprintf(`Поступила новая заявка на расчёт цены.

Компания: %s (%s)
Контактное лицо: %s
Телефон: %s
Почта: %s
Число пользователей: %s

Требования:
%s`,
		message.CompanyName, message.CompanyType,
		message.ContactName, message.Phone, message.Email,
		message.UserCount, message.Requirements)

	return s.sendEmail(to, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
