package notify

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer reads notices from the RabbitMQ queue and hands them to a
// delivery handler one at a time, preserving queue order.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewConsumer connects to the broker and declares the notice queue.
func NewConsumer(url string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}

	// One unacked message at a time keeps delivery strictly ordered.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "set qos")
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare queue")
	}

	return &Consumer{conn: conn, channel: ch}, nil
}

// Consume delivers notices to handler until ctx is cancelled or the channel
// closes. A handler error nacks the message back onto the queue; malformed
// bodies are dropped after acking so a poison message cannot wedge the queue.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, Notice) error) error {
	msgs, err := c.channel.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "register consumer")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}

			var n Notice
			if err := json.Unmarshal(msg.Body, &n); err != nil {
				_ = msg.Ack(false)
				continue
			}

			if err := handler(ctx, n); err != nil {
				_ = msg.Nack(false, true)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}

// Close tears down the channel and connection.
func (c *Consumer) Close() error {
	if err := c.channel.Close(); err != nil {
		_ = c.conn.Close()
		return errors.Wrap(err, "close channel")
	}
	return c.conn.Close()
}
