// Package services содержит бизнес-логику заявок "запросить расчёт цены":
// приём с веб-формы, уведомление отдела продаж и административную обработку.
package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/lead-intake/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lead-intake/internal/lib/sl"
	"github.com/magabrotheeeer/lead-intake/internal/models"
)

// ErrNotFound заявка на расчёт цены не найдена.
var ErrNotFound = errors.New("quote not found")

// QuoteRepository определяет методы для работы с заявками в хранилище.
type QuoteRepository interface {
	// CreateQuote добавляет новую заявку и возвращает её ID.
	CreateQuote(ctx context.Context, q models.Quote) (int, error)
	// ReadQuote возвращает заявку по ID.
	ReadQuote(ctx context.Context, id int) (*models.Quote, error)
	// UpdateQuote обновляет административные поля заявки.
	UpdateQuote(ctx context.Context, id int, upd models.DummyQuoteUpdate) (int, error)
	// RemoveQuote удаляет заявку по ID.
	RemoveQuote(ctx context.Context, id int) (int, error)
	// ListQuotes возвращает заявки по фильтру с пагинацией.
	ListQuotes(ctx context.Context, filter models.QuoteFilter) ([]*models.Quote, error)
	// CountQuotes возвращает общее число заявок по фильтру.
	CountQuotes(ctx context.Context, filter models.QuoteFilter) (int, error)
	// QuoteOverview собирает сводную статистику.
	QuoteOverview(ctx context.Context, now time.Time) (*models.QuoteOverview, error)
}

// Publisher описывает публикацию уведомлений в очередь.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// ClientMeta технические сведения о запросе с веб-формы.
type ClientMeta struct {
	IPAddress string
	UserAgent string
	Referrer  string
}

// QuoteService реализует бизнес-логику заявок на расчёт цены.
type QuoteService struct {
	repo      QuoteRepository
	publisher Publisher
	log       *slog.Logger
}

// NewQuoteService создает новый экземпляр QuoteService.
func NewQuoteService(repo QuoteRepository, publisher Publisher, log *slog.Logger) *QuoteService {
	return &QuoteService{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// Create регистрирует заявку с веб-формы и ставит в очередь письмо
// отделу продаж.
func (s *QuoteService) Create(ctx context.Context, req models.DummyQuoteRequest, meta ClientMeta) (*models.Quote, error) {
	quote := models.Quote{
		CompanyName:  req.CompanyName,
		ContactName:  req.ContactName,
		Phone:        req.Phone,
		Email:        req.Email,
		CompanyType:  req.CompanyType,
		UserCount:    req.UserCount,
		Requirements: req.Requirements,
		Status:       models.QuoteStatusPending,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Referrer:     meta.Referrer,
	}

	id, err := s.repo.CreateQuote(ctx, quote)
	if err != nil {
		return nil, err
	}
	quote.ID = id
	quote.CreatedAt = time.Now()

	s.log.Info("registered new quote request", slog.Int("id", id))

	if err := s.publisher.Publish(rabbitmq.RouteQuoteAlert, models.QuoteAlertInfo{
		QuoteID:      id,
		CompanyName:  quote.CompanyName,
		ContactName:  quote.ContactName,
		Phone:        quote.Phone,
		Email:        quote.Email,
		CompanyType:  quote.CompanyType,
		UserCount:    quote.UserCount,
		Requirements: quote.Requirements,
		CreatedAt:    quote.CreatedAt,
	}); err != nil {
		s.log.Warn("failed to publish quote alert", sl.Err(err))
	}

	return &quote, nil
}

// Read возвращает заявку по ID.
func (s *QuoteService) Read(ctx context.Context, id int) (*models.Quote, error) {
	quote, err := s.repo.ReadQuote(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return quote, nil
}

// List возвращает заявки по фильтру и их общее количество.
func (s *QuoteService) List(ctx context.Context, filter models.QuoteFilter) ([]*models.Quote, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	quotes, err := s.repo.ListQuotes(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountQuotes(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

// Update применяет административное обновление и возвращает заявку.
func (s *QuoteService) Update(ctx context.Context, id int, req models.DummyQuoteUpdate) (*models.Quote, error) {
	count, err := s.repo.UpdateQuote(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		// Либо заявки нет, либо запрос не содержал изменяемых полей.
		if _, err := s.Read(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.Read(ctx, id)
}

// Remove удаляет заявку по ID.
func (s *QuoteService) Remove(ctx context.Context, id int) (int, error) {
	count, err := s.repo.RemoveQuote(ctx, id)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrNotFound
	}
	return count, nil
}

// StatsOverview возвращает сводную статистику по заявкам.
func (s *QuoteService) StatsOverview(ctx context.Context) (*models.QuoteOverview, error) {
	return s.repo.QuoteOverview(ctx, time.Now())
}
