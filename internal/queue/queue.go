package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Logical bus topics for the order processing pipeline.
const (
	QueuePastDue       = "orders.past-due"
	QueuePastDueRetry  = "orders.past-due.retry"
	QueueStatusEmail   = "status.email"
	QueueStatusSMS     = "status.sms"
	QueueServiceUpdate = "status.service-update"
)

// ErrRejectMessage tells the consumer to drop a poison message to the
// dead-letter queue instead of requeueing it.
var ErrRejectMessage = errors.New("reject message")

// Publisher publishes pipeline messages to a queue. PublishWithDelay holds
// the message back for the given duration before it becomes consumable.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg Message) error
	PublishWithDelay(ctx context.Context, queue string, msg Message, delay time.Duration) error
	Close() error
}

// MessageHandler handles one consumed delivery body. Returning nil
// acknowledges the delivery; any other error requeues it, except
// ErrRejectMessage which dead-letters it.
type MessageHandler func(ctx context.Context, body []byte) error

// Consumer consumes pipeline messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// DLQName returns the dead-letter queue name for a work queue,
// e.g. dlq.orders.past-due.
func DLQName(queue string) string {
	return fmt.Sprintf("dlq.%s", queue)
}

// WorkQueueNames returns all pipeline queues consumed by this process.
func WorkQueueNames() []string {
	return []string{
		QueuePastDue,
		QueuePastDueRetry,
		QueueStatusEmail,
		QueueStatusSMS,
		QueueServiceUpdate,
	}
}
