// Package services содержит фонового обработчика пробных периодов:
// перевод просроченных заявок в статус expired и рассылку напоминаний
// о скором окончании.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/lead-intake/internal/config"
	"github.com/magabrotheeeer/lead-intake/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lead-intake/internal/lib/sl"
	"github.com/magabrotheeeer/lead-intake/internal/models"
	trialsvc "github.com/magabrotheeeer/lead-intake/internal/services/trial"
)

// TrialRepository определяет методы хранилища, нужные фоновому обработчику.
type TrialRepository interface {
	// SweepExpiredTrials переводит просроченные активные заявки в expired.
	SweepExpiredTrials(ctx context.Context, now time.Time) (int, error)
	// FindTrialsExpiringSoon находит активные заявки с окончанием в окне,
	// по которым напоминание ещё не отправлялось.
	FindTrialsExpiringSoon(ctx context.Context, now time.Time, windowDays int) ([]*models.Trial, error)
	// MarkTrialReminded проставляет отметку об отправленном напоминании.
	MarkTrialReminded(ctx context.Context, id int) (int, error)
}

// Publisher описывает публикацию уведомлений в очередь.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// SweeperService периодически прибирает просроченные пробные периоды
// и ставит в очередь письма-напоминания.
type SweeperService struct {
	repo      TrialRepository
	publisher Publisher
	log       *slog.Logger
	policy    config.Trial
}

// NewSweeperService создает новый экземпляр SweeperService.
func NewSweeperService(repo TrialRepository, publisher Publisher,
	log *slog.Logger, policy config.Trial) *SweeperService {
	return &SweeperService{
		repo:      repo,
		publisher: publisher,
		log:       log,
		policy:    policy,
	}
}

// Run запускает цикл обработки: сразу при старте и далее по таймеру,
// пока контекст не будет отменён.
func (s *SweeperService) Run(ctx context.Context) {
	s.runSweep(ctx)
	s.runReminders(ctx)

	ticker := time.NewTicker(s.policy.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep(ctx)
			s.runReminders(ctx)
		}
	}
}

func (s *SweeperService) runSweep(ctx context.Context) {
	s.log.Info("starting sweep of expired trials")
	count, err := s.repo.SweepExpiredTrials(ctx, time.Now())
	if err != nil {
		s.log.Error("failed to sweep expired trials", sl.Err(err))
		return
	}
	if count == 0 {
		s.log.Info("no expired trials found")
		return
	}
	s.log.Info("marked trials as expired", slog.Int("count", count))
}

func (s *SweeperService) runReminders(ctx context.Context) {
	s.log.Info("starting search for trials expiring soon")
	now := time.Now()
	trials, err := s.repo.FindTrialsExpiringSoon(ctx, now, s.policy.ReminderWindowDays)
	if err != nil {
		s.log.Error("failed to find expiring trials", sl.Err(err))
		return
	}
	if len(trials) == 0 {
		s.log.Info("no trials expiring soon")
		return
	}
	s.log.Info("found trials expiring soon", slog.Int("count", len(trials)))
	for _, trial := range trials {
		// Выборка и расчёт не атомарны, поэтому окно перепроверяется
		// перед публикацией.
		days := trialsvc.RemainingDays(trial, now)
		if days <= 0 || days > s.policy.ReminderWindowDays {
			continue
		}
		err = s.publisher.Publish(rabbitmq.RouteTrialReminder, models.TrialReminderInfo{
			TrialID:       trial.ID,
			Email:         trial.Email,
			ContactName:   trial.ContactName,
			CompanyName:   trial.CompanyName,
			TrialEndDate:  trial.TrialEndDate,
			DaysRemaining: days,
			LoginCount:    trial.LoginCount,
		})
		if err != nil {
			s.log.Error("failed to publish reminder", sl.Err(err))
			continue
		}
		// Отметка ставится только после успешной публикации, при сбое
		// публикации следующий запуск повторит попытку.
		if _, err = s.repo.MarkTrialReminded(ctx, trial.ID); err != nil {
			s.log.Error("failed to mark trial as reminded", sl.Err(err))
		}
	}
}
