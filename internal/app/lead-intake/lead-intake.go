// Package leadintake собирает основное HTTP-приложение приёма заявок:
// подключение к базе, кэшу и брокеру, сборку сервисов и запуск сервера.
package leadintake

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/lead-intake/internal/cache"
	"github.com/magabrotheeeer/lead-intake/internal/config"
	"github.com/magabrotheeeer/lead-intake/internal/lib/jwt"
	"github.com/magabrotheeeer/lead-intake/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lead-intake/internal/migrations"
	authservice "github.com/magabrotheeeer/lead-intake/internal/services/auth"
	quoteservice "github.com/magabrotheeeer/lead-intake/internal/services/quote"
	trialservice "github.com/magabrotheeeer/lead-intake/internal/services/trial"
	"github.com/magabrotheeeer/lead-intake/internal/storage/repository"
)

// App основное приложение приёма заявок.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New собирает приложение: хранилище, миграции, кэш, брокер,
// сервисы и маршруты HTTP.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeBroker(nil, conn, logger)
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	trialService := trialservice.NewTrialService(db, cacheRedis, publisher, logger, cfg.Trial)
	quoteService := quoteservice.NewQuoteService(db, publisher, logger)
	authService := authservice.NewAuthService(db, jwtMaker)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, trialService, quoteService, authService, db)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до отмены контекста
// или ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		closeBroker(a.ch, a.conn, a.logger)
		if dbErr := a.db.DB.Close(); dbErr != nil {
			a.logger.Error("failed to close database", slog.Any("err", dbErr))
		}
		return err
	}
}

func closeBroker(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", slog.Any("err", err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", slog.Any("err", err))
		}
	}
}
