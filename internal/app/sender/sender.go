// Package sender содержит приложение отправки писем: потребляет сообщения
// очередей уведомлений и рассылает их по SMTP.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/lead-intake/internal/config"
	"github.com/magabrotheeeer/lead-intake/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lead-intake/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/lead-intake/internal/services/sender"
)

// App представляет приложение отправки писем.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

// New создает новый экземпляр приложения отправки писем.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg, logger)
	senderService := senderservice.NewSenderService(transport, cfg.SalesEmail, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run запускает потребителей очередей уведомлений.
func (a *App) Run(ctx context.Context) error {
	consumers := []struct {
		queue   string
		handler func([]byte) error
	}{
		{rabbitmq.QueueTrialAccount, a.senderService.SendTrialAccountEmail},
		{rabbitmq.QueueTrialReminder, a.senderService.SendTrialReminderEmail},
		{rabbitmq.QueueQuoteAlert, a.senderService.SendQuoteAlertEmail},
	}
	for _, c := range consumers {
		if err := rabbitmq.ConsumerMessage(ctx, a.ch, c.queue, c.handler); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", c.queue), slog.Any("err", err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
