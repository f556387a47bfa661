package notify

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// QueueName is the durable queue notices are published to and consumed from.
const QueueName = "cardcapital.notices"

var _ Queue = (*AMQPQueue)(nil)

// AMQPQueue publishes notices to a RabbitMQ queue. Publishes on a single
// channel preserve order, so consumers observe the primary notice before any
// follow-up reward notices for the same workflow run.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPQueue connects to the broker at url and declares the notice queue.
func NewAMQPQueue(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}

	// Durable queue so notices survive a broker restart.
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare %s", QueueName)
	}

	return &AMQPQueue{conn: conn, ch: ch}, nil
}

// Publish sends one notice as a persistent JSON message.
func (q *AMQPQueue) Publish(ctx context.Context, n Notice) error {
	body, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "marshal notice")
	}

	err = q.ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return errors.Wrap(err, "publish notice")
	}
	return nil
}

// Close releases the channel and connection.
func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
