package notify

import (
	"context"

	"go.uber.org/zap"
)

var _ Queue = (*LogQueue)(nil)

// LogQueue writes notices to the application log. Used when no broker is
// configured, e.g. local development and unit tests.
type LogQueue struct {
	lg *zap.Logger
}

// NewLogQueue creates a LogQueue writing to lg.
func NewLogQueue(lg *zap.Logger) *LogQueue {
	return &LogQueue{lg: lg}
}

// Publish logs the notice and always succeeds.
func (q *LogQueue) Publish(_ context.Context, n Notice) error {
	q.lg.Info("notice",
		zap.String("kind", string(n.Kind)),
		zap.String("user_id", n.UserID),
		zap.String("order_id", n.OrderID),
		zap.String("reward", n.Reward),
		zap.String("message", n.Message),
	)
	return nil
}
