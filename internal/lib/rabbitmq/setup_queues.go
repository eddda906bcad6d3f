package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// QueueConfig описывает очередь и ключ маршрутизации в exchange "notifications".
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Routing keys событий. Публикатор и потребитель должны использовать одни значения.
const (
	RouteTrialAccount  = "trial_account"
	RouteTrialReminder = "trial_reminder"
	RouteQuoteAlert    = "quote_alert"
)

// Имена очередей для каждого типа уведомления.
const (
	QueueTrialAccount  = "notifications.trial_account"
	QueueTrialReminder = "notifications.trial_reminder"
	QueueQuoteAlert    = "notifications.quote_alert"
)

// GetNotificationQueues возвращает конфигурацию всех очередей уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueTrialAccount, RoutingKey: RouteTrialAccount},
		{QueueName: QueueTrialReminder, RoutingKey: RouteTrialReminder},
		{QueueName: QueueQuoteAlert, RoutingKey: RouteQuoteAlert},
	}
}

// SetupChannel открывает канал, объявляет exchange и привязывает очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	err = ch.ExchangeDeclare(
		"notifications", // exchange
		"direct",        // тип
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			"notifications",
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
