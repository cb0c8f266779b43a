package rabbitMQ

import (
	"DebtNotifier/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DelayedExchange = "reminderDelayedExchange"
	WorkQueueName   = "reminderJobQueue"
	RoutingKey      = "reminder_jobs"
)

// Declare sets up the delayed exchange, the work queue and the binding.
// Both the producer and the worker call it; declarations are idempotent.
func Declare(ch *amqp.Channel) error {
	const op = "rabbitMQ.Declare"

	// обменник отложенных сообщений
	args := amqp.Table{
		"x-delayed-type": "direct",
	}
	err := ch.ExchangeDeclare(
		DelayedExchange,
		"x-delayed-message", // type to delayed messages
		true,
		false,
		false,
		false,
		args,
	)
	if err != nil {
		return fmt.Errorf("%s: declare exchange: %w", op, err)
	}

	// основная очередь для передачи сообщений на обработку в consumer
	workQueue, err := ch.QueueDeclare(
		WorkQueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: declare queue: %w", op, err)
	}

	err = ch.QueueBind(
		workQueue.Name,
		RoutingKey,
		DelayedExchange,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: bind queue: %w", op, err)
	}

	return nil
}

type QueueProps struct {
	Channel         *amqp.Channel
	WaitingExchange string
	RoutingKey      string
}

func NewQueueProps(ch *amqp.Channel) *QueueProps {
	return &QueueProps{
		Channel:         ch,
		WaitingExchange: DelayedExchange,
		RoutingKey:      RoutingKey,
	}
}

// PublishJob publishes a job reference with the given delay. Only the job id
// and seq travel through the broker; the payload stays in Redis so that a
// later re-enqueue or cancel can supersede a message already in flight.
func (qp *QueueProps) PublishJob(ctx context.Context, msg models.JobMessage, delay time.Duration) error {
	const op = "rabbitMQ.PublishJob"

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if delay < 0 {
		delay = 0
	}
	headers := amqp.Table{
		"x-delay": delay.Milliseconds(),
	}

	err = qp.Channel.PublishWithContext(
		ctx,
		qp.WaitingExchange,
		qp.RoutingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    uuid.New().String(),
			Body:         body,
			Headers:      headers,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
