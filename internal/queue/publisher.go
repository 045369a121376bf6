package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQPublisher struct {
	client *RabbitMQ
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, queue string, msg Message) error {
	return p.publish(ctx, queue, msg, 0)
}

// PublishWithDelay routes the message through the queue's wait queue with a
// per-message TTL, so it lands in the work queue only after the delay.
func (p *RabbitMQPublisher) PublishWithDelay(ctx context.Context, queue string, msg Message, delay time.Duration) error {
	if delay <= 0 {
		return p.publish(ctx, queue, msg, 0)
	}
	return p.publish(ctx, waitQueueName(queue), msg, delay)
}

func (p *RabbitMQPublisher) publish(ctx context.Context, queue string, msg Message, expiration time.Duration) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if msg == nil {
		return fmt.Errorf("message is required")
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message for queue %q: %w", queue, err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ch, err := p.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    msg.Key(),
		Body:         payload,
	}
	if expiration > 0 {
		publishing.Expiration = strconv.FormatInt(expiration.Milliseconds(), 10)
	}

	if err := ch.PublishWithContext(ctx, "", queue, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish message to queue %q: %w", queue, err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
