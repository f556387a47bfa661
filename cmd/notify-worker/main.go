// Command notify-worker drains the notice queue and delivers each notice.
// Delivery here is structured logging; a real deployment would swap in an
// email or push gateway behind the same handler.
package main

import (
	"context"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/sawamura722/cardcapital/internal/notify"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		url := os.Getenv("CARD_AMQP_URL")
		if url == "" {
			url = os.Getenv("CLOUDAMQP_URL")
		}
		if url == "" {
			return errors.New("AMQP URL is required: set CARD_AMQP_URL or CLOUDAMQP_URL")
		}

		consumer, err := notify.NewConsumer(url)
		if err != nil {
			return errors.Wrap(err, "connect consumer")
		}
		defer func() { _ = consumer.Close() }()

		lg.Info("Consuming notices", zap.String("queue", notify.QueueName))

		err = consumer.Consume(ctx, func(_ context.Context, n notify.Notice) error {
			lg.Info("notice delivered",
				zap.String("kind", string(n.Kind)),
				zap.String("user_id", n.UserID),
				zap.String("order_id", n.OrderID),
				zap.String("reward", n.Reward),
				zap.String("message", n.Message),
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}
