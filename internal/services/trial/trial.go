// Package services содержит бизнес-логику жизненного цикла заявок на пробный
// доступ: регистрацию с генерацией учётных данных, проверку доступа,
// продление, смену статусов и отчёты об использовании.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/lead-intake/internal/config"
	"github.com/magabrotheeeer/lead-intake/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lead-intake/internal/lib/sl"
	"github.com/magabrotheeeer/lead-intake/internal/lib/trialacct"
	"github.com/magabrotheeeer/lead-intake/internal/models"
)

// Ошибки уровня бизнес-логики. Обработчики переводят их в HTTP-статусы.
var (
	ErrDuplicateIdentity = errors.New("trial already requested with this email or phone")
	ErrNotFound          = errors.New("trial not found")
	ErrAccessDenied      = errors.New("trial account is not active or has expired")
	ErrInvalidTransition = errors.New("status transition is not allowed")
)

// Число попыток подобрать свободное имя аккаунта до принудительного суффикса.
const maxUsernameAttempts = 5

// TrialRepository определяет методы для работы с заявками в хранилище.
type TrialRepository interface {
	// CreateTrial добавляет новую заявку и возвращает её ID.
	CreateTrial(ctx context.Context, t models.Trial) (int, error)
	// ReadTrial возвращает заявку по ID.
	ReadTrial(ctx context.Context, id int) (*models.Trial, error)
	// ReadTrialByUsername возвращает заявку по имени пробного аккаунта.
	ReadTrialByUsername(ctx context.Context, username string) (*models.Trial, error)
	// ExistsTrialUsername проверяет занятость имени аккаунта.
	ExistsTrialUsername(ctx context.Context, username string) (bool, error)
	// ExistsTrialByIdentity проверяет наличие заявки с такой почтой или телефоном.
	ExistsTrialByIdentity(ctx context.Context, email, phone string) (bool, error)
	// UpdateTrialStatus меняет статус и возвращает количество изменённых строк.
	UpdateTrialStatus(ctx context.Context, id int, status string) (int, error)
	// UpdateTrialFeedback сохраняет отзыв клиента.
	UpdateTrialFeedback(ctx context.Context, id int, fb models.Feedback) (int, error)
	// ExtendTrial прибавляет дни к дате окончания и возвращает новую дату.
	ExtendTrial(ctx context.Context, id int, days int) (time.Time, error)
	// RecordTrialLogin увеличивает счётчик входов и возвращает новое значение.
	RecordTrialLogin(ctx context.Context, id int) (int, error)
	// ConvertTrial помечает заявку как конвертированную.
	ConvertTrial(ctx context.Context, id int, quoteID *int) (int, error)
	// RemoveTrial удаляет заявку по ID.
	RemoveTrial(ctx context.Context, id int) (int, error)
	// ListTrials возвращает заявки по фильтру с пагинацией.
	ListTrials(ctx context.Context, filter models.TrialFilter) ([]*models.Trial, error)
	// CountTrials возвращает общее число заявок по фильтру.
	CountTrials(ctx context.Context, filter models.TrialFilter) (int, error)
	// AddFollowUp добавляет запись о контакте с клиентом.
	AddFollowUp(ctx context.Context, fu models.FollowUp) (*models.FollowUp, error)
	// ListFollowUps возвращает записи о контактах по заявке.
	ListFollowUps(ctx context.Context, trialID int) ([]*models.FollowUp, error)
	// TrialOverview собирает сводную статистику.
	TrialOverview(ctx context.Context, now time.Time) (*models.TrialOverview, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// Publisher описывает публикацию уведомлений в очередь.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// ClientMeta технические сведения о запросе с веб-формы.
type ClientMeta struct {
	IPAddress string
	UserAgent string
	Source    string
	Referrer  string
}

// TrialService реализует бизнес-логику заявок на пробный доступ.
type TrialService struct {
	repo      TrialRepository
	cache     Cache
	publisher Publisher
	log       *slog.Logger
	policy    config.Trial
}

// NewTrialService создает новый экземпляр TrialService.
func NewTrialService(repo TrialRepository, cache Cache, publisher Publisher,
	log *slog.Logger, policy config.Trial) *TrialService {
	return &TrialService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		log:       log,
		policy:    policy,
	}
}

// Register регистрирует заявку с веб-формы: проверяет, что с такой почтой или
// телефоном ещё не обращались, генерирует учётные данные пробного аккаунта и
// ставит письмо с ними в очередь отправки.
func (s *TrialService) Register(ctx context.Context, req models.DummyTrialRequest, meta ClientMeta) (*models.Trial, error) {
	exists, err := s.repo.ExistsTrialByIdentity(ctx, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateIdentity
	}

	account, err := s.resolveAccount(ctx, req.CompanyName)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	source := meta.Source
	if source == "" {
		source = req.Source
	}
	if source == "" {
		source = "website"
	}
	trial := models.Trial{
		CompanyName:    req.CompanyName,
		ContactName:    req.ContactName,
		Phone:          req.Phone,
		Email:          req.Email,
		Account:        *account,
		TrialStartDate: now,
		TrialEndDate:   now.AddDate(0, 0, s.policy.TrialDays),
		Status:         models.TrialStatusActive,
		Source:         source,
		Referrer:       meta.Referrer,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
	}

	id, err := s.repo.CreateTrial(ctx, trial)
	if err != nil {
		// Проверка занятости имени и вставка не атомарны, уникальный индекс
		// ловит гонку. Повторяем один раз с принудительным суффиксом.
		if isUniqueViolation(err) {
			id, err = s.retryWithSuffix(ctx, &trial)
		}
		if err != nil {
			return nil, err
		}
	}
	trial.ID = id

	s.log.Info("registered new trial",
		slog.Int("id", id),
		slog.String("username", trial.Account.Username))

	if err := s.publisher.Publish(rabbitmq.RouteTrialAccount, models.TrialAccountInfo{
		Email:        trial.Email,
		ContactName:  trial.ContactName,
		CompanyName:  trial.CompanyName,
		Username:     trial.Account.Username,
		Password:     trial.Account.Password,
		AccessURL:    trial.Account.AccessURL,
		TrialEndDate: trial.TrialEndDate,
	}); err != nil {
		s.log.Warn("failed to publish trial account notification", sl.Err(err))
	}

	cacheKey := fmt.Sprintf("trial:%d", id)
	if err := s.cache.Set(cacheKey, trial, time.Hour); err != nil {
		s.log.Warn("failed to cache trial", slog.String("key", cacheKey), sl.Err(err))
	}

	return &trial, nil
}

// resolveAccount подбирает свободное имя пробного аккаунта. После пяти занятых
// кандидатов к имени принудительно добавляется случайный суффикс.
func (s *TrialService) resolveAccount(ctx context.Context, companyName string) (*models.TrialAccount, error) {
	var account *trialacct.Account
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		candidate, err := trialacct.New(companyName, s.policy.TrialAccessBaseURL)
		if err != nil {
			return nil, err
		}
		taken, err := s.repo.ExistsTrialUsername(ctx, candidate.Username)
		if err != nil {
			return nil, err
		}
		account = candidate
		if !taken {
			return &models.TrialAccount{
				Username:  candidate.Username,
				Password:  candidate.Password,
				AccessURL: candidate.AccessURL,
			}, nil
		}
	}

	suffix, err := trialacct.RandomSuffix(3)
	if err != nil {
		return nil, err
	}
	username := account.Username + suffix
	s.log.Warn("username collisions exhausted retries, forcing suffix",
		slog.String("username", username))
	return &models.TrialAccount{
		Username:  username,
		Password:  account.Password,
		AccessURL: trialacct.AccessURL(s.policy.TrialAccessBaseURL, username),
	}, nil
}

func (s *TrialService) retryWithSuffix(ctx context.Context, trial *models.Trial) (int, error) {
	suffix, err := trialacct.RandomSuffix(3)
	if err != nil {
		return 0, err
	}
	trial.Account.Username += suffix
	trial.Account.AccessURL = trialacct.AccessURL(s.policy.TrialAccessBaseURL, trial.Account.Username)
	return s.repo.CreateTrial(ctx, *trial)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// ValidateAccess проверяет, что пробный аккаунт существует, активен и его
// срок не истёк. Возвращает заявку для страницы входа.
func (s *TrialService) ValidateAccess(ctx context.Context, username string) (*models.Trial, error) {
	trial, err := s.repo.ReadTrialByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if trial.Status != models.TrialStatusActive || trial.TrialEndDate.Before(time.Now()) {
		return nil, ErrAccessDenied
	}
	return trial, nil
}

// RecordLogin фиксирует вход в пробный аккаунт. Вход возможен только для
// активного аккаунта с неистёкшим сроком, иначе счётчик не меняется.
func (s *TrialService) RecordLogin(ctx context.Context, id int) (int, error) {
	trial, err := s.repo.ReadTrial(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if trial.Status != models.TrialStatusActive || trial.TrialEndDate.Before(time.Now()) {
		return 0, ErrAccessDenied
	}
	count, err := s.repo.RecordTrialLogin(ctx, trial.ID)
	if err != nil {
		return 0, err
	}
	s.invalidate(trial.ID)
	return count, nil
}

// Read возвращает заявку по ID, используя кеш или репозиторий.
func (s *TrialService) Read(ctx context.Context, id int) (*models.Trial, error) {
	var result *models.Trial
	cacheKey := fmt.Sprintf("trial:%d", id)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		return nil, err
	}
	if found {
		return result, nil
	}
	result, err = s.repo.ReadTrial(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.cache.Set(cacheKey, result, time.Hour); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return result, nil
}

// List возвращает заявки по фильтру и их общее количество.
func (s *TrialService) List(ctx context.Context, filter models.TrialFilter) ([]*models.Trial, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	trials, err := s.repo.ListTrials(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountTrials(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return trials, total, nil
}

// Update применяет административное обновление: смену статуса и отзыв клиента.
// При включённой строгой проверке переход статусов сверяется с графом.
func (s *TrialService) Update(ctx context.Context, id int, req models.DummyTrialUpdate) (*models.Trial, error) {
	trial, err := s.repo.ReadTrial(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if req.Status != "" && req.Status != trial.Status {
		if err := s.checkTransition(trial.Status, req.Status); err != nil {
			return nil, err
		}
		if _, err := s.repo.UpdateTrialStatus(ctx, id, req.Status); err != nil {
			return nil, err
		}
		s.log.Info("updated trial status",
			slog.Int("id", id),
			slog.String("from", trial.Status),
			slog.String("to", req.Status))
	}

	if req.Feedback != nil {
		now := time.Now()
		fb := models.Feedback{
			Rating:      req.Feedback.Rating,
			Comments:    req.Feedback.Comments,
			SubmittedAt: &now,
		}
		if _, err := s.repo.UpdateTrialFeedback(ctx, id, fb); err != nil {
			return nil, err
		}
	}

	s.invalidate(id)
	result, err := s.repo.ReadTrial(ctx, id)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Переходы, разрешённые при включённой строгой проверке. Остальные пары
// отклоняются. При выключенной проверке сохраняется разрешающее поведение:
// администратор может выставить любой статус.
var allowedTransitions = map[string][]string{
	models.TrialStatusPending: {models.TrialStatusActive, models.TrialStatusCancelled},
	models.TrialStatusActive:  {models.TrialStatusExpired, models.TrialStatusConverted, models.TrialStatusCancelled},
}

func (s *TrialService) checkTransition(from, to string) error {
	if !s.policy.StrictStatusTransitions {
		return nil
	}
	for _, allowed := range allowedTransitions[from] {
		if to == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Extend продлевает пробный период на заданное число дней. Отсчёт идёт от
// текущей даты окончания, продления складываются.
func (s *TrialService) Extend(ctx context.Context, id, days int) (time.Time, error) {
	if _, err := s.repo.ReadTrial(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, err
	}
	newEndDate, err := s.repo.ExtendTrial(ctx, id, days)
	if err != nil {
		return time.Time{}, err
	}
	s.invalidate(id)
	s.log.Info("extended trial",
		slog.Int("id", id),
		slog.Int("days", days),
		slog.Time("new_end_date", newEndDate))
	return newEndDate, nil
}

// Convert помечает заявку как конвертированную в платного клиента,
// опционально привязывая заявку на расчёт цены.
func (s *TrialService) Convert(ctx context.Context, id int, quoteID *int) error {
	trial, err := s.repo.ReadTrial(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if trial.Status != models.TrialStatusConverted {
		if err := s.checkTransition(trial.Status, models.TrialStatusConverted); err != nil {
			return err
		}
	}
	if _, err := s.repo.ConvertTrial(ctx, id, quoteID); err != nil {
		return err
	}
	s.invalidate(id)
	s.log.Info("converted trial", slog.Int("id", id))
	return nil
}

// AddFollowUp добавляет запись о контакте с клиентом по заявке.
func (s *TrialService) AddFollowUp(ctx context.Context, id int, req models.DummyFollowUp) (*models.FollowUp, error) {
	if _, err := s.repo.ReadTrial(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	fu := models.FollowUp{
		TrialID:     id,
		Type:        req.Type,
		Content:     req.Content,
		ContactedBy: req.ContactedBy,
	}
	if req.ScheduledAt != "" {
		scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduled date: %w", err)
		}
		fu.ScheduledAt = &scheduledAt
	}
	return s.repo.AddFollowUp(ctx, fu)
}

// ListFollowUps возвращает записи о контактах по заявке.
func (s *TrialService) ListFollowUps(ctx context.Context, id int) ([]*models.FollowUp, error) {
	if _, err := s.repo.ReadTrial(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.repo.ListFollowUps(ctx, id)
}

// Remove удаляет заявку и инвалидирует кеш.
func (s *TrialService) Remove(ctx context.Context, id int) (int, error) {
	s.invalidate(id)
	count, err := s.repo.RemoveTrial(ctx, id)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrNotFound
	}
	return count, nil
}

// StatsOverview возвращает сводную статистику по всем заявкам.
func (s *TrialService) StatsOverview(ctx context.Context) (*models.TrialOverview, error) {
	return s.repo.TrialOverview(ctx, time.Now())
}

// UsageStats собирает отчёт об использовании одного пробного аккаунта.
func (s *TrialService) UsageStats(ctx context.Context, id int) (*models.TrialUsageReport, error) {
	trial, err := s.repo.ReadTrial(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	now := time.Now()
	totalDays := ceilDays(trial.TrialEndDate.Sub(trial.TrialStartDate))
	usedDays := ceilDays(now.Sub(trial.TrialStartDate))
	if usedDays < 0 {
		usedDays = 0
	}
	if usedDays > totalDays {
		usedDays = totalDays
	}

	report := models.TrialUsageReport{
		TotalDays:     totalDays,
		UsedDays:      usedDays,
		RemainingDays: RemainingDays(trial, now),
		LoginCount:    trial.LoginCount,
		LastLoginAt:   trial.LastLoginAt,
	}
	if totalDays > 0 {
		report.UsageRate = round2(float64(usedDays) / float64(totalDays) * 100)
	}
	if usedDays > 0 {
		report.AvgLoginsPerDay = round2(float64(trial.LoginCount) / float64(usedDays))
	}
	return &report, nil
}

// RemainingDays возвращает число оставшихся дней пробного периода.
// Для неактивной заявки всегда 0, отрицательные значения не возвращаются.
func RemainingDays(trial *models.Trial, now time.Time) int {
	if trial.Status != models.TrialStatusActive {
		return 0
	}
	days := ceilDays(trial.TrialEndDate.Sub(now))
	if days < 0 {
		return 0
	}
	return days
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *TrialService) invalidate(id int) {
	cacheKey := fmt.Sprintf("trial:%d", id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cacheKey), sl.Err(err))
	}
}
