// Package notify delivers user-facing notices produced by the checkout and
// cancellation workflows. Notices form an ordered queue: the primary outcome
// (order placed / order cancelled) is always enqueued before any follow-up
// reward notices, and each notice fails independently of the others.
package notify

import "context"

// Kind identifies the type of a notice.
type Kind string

const (
	KindOrderPlaced    Kind = "order_placed"
	KindOrderCancelled Kind = "order_cancelled"
	KindRewardGained   Kind = "reward_gained"
	KindRewardLost     Kind = "reward_lost"
)

// Notice is a single user-facing notification.
type Notice struct {
	Kind    Kind   `json:"kind"`
	UserID  string `json:"userId"`
	OrderID string `json:"orderId,omitempty"`
	Reward  string `json:"reward,omitempty"`
	Message string `json:"message"`
}

// Queue accepts notices for asynchronous delivery. Publish order is delivery
// order. A Publish failure affects only that notice; callers log and move on
// rather than failing the workflow that produced it.
type Queue interface {
	Publish(ctx context.Context, n Notice) error
}
