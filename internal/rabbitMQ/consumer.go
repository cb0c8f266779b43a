package rabbitMQ

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consume opens a manually-acked delivery stream from the work queue.
// prefetch bounds how many unacked deliveries the broker hands this channel,
// so it matches the worker pool's concurrency. Unacked deliveries are
// redelivered to another consumer when this one dies.
func Consume(ch *amqp.Channel, prefetch int) (<-chan amqp.Delivery, error) {
	const op = "rabbitMQ.Consume"

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("%s: qos: %w", op, err)
	}

	deliveries, err := ch.Consume(
		WorkQueueName,
		"",
		false, // manual ack: a job belongs to exactly one consumer until acked
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return deliveries, nil
}
