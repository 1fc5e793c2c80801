// Package notify fans a category's new-announcement batch out to its
// subscribers.
//
// Delivery is best-effort and at-most-once per recipient per batch: a
// transient failure is logged and the recipient simply misses that batch;
// there is no durable outbound queue and no redelivery. A permanent
// rejection (blocked, chat gone) removes the recipient after the fan-out.
package notify

import "context"

// Outcome classifies one delivery attempt.
type Outcome int

const (
	// Success: the message reached the recipient.
	Success Outcome = iota
	// TransientFailure: timeout, network or generic protocol error.
	// No state change; the recipient misses this batch.
	TransientFailure
	// PermanentRejection: the recipient blocked the bot or no longer
	// exists. The recipient record is pruned after the fan-out.
	PermanentRejection
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case TransientFailure:
		return "transient"
	case PermanentRejection:
		return "rejected"
	default:
		return "unknown"
	}
}

// Notifier delivers one already-formatted message to one recipient and
// reports the outcome. Implementations never panic across this boundary.
type Notifier interface {
	Send(ctx context.Context, recipient int64, text string) Outcome
}

// RecipientPruner removes recipients the transport rejected permanently.
// Satisfied by *storage.Store.
type RecipientPruner interface {
	DeleteRecipient(ctx context.Context, id int64) (bool, error)
}
