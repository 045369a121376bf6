package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Altinn/altinn-notifications-sub006/internal/condition"
	"github.com/Altinn/altinn-notifications-sub006/internal/contact"
	"github.com/Altinn/altinn-notifications-sub006/internal/dispatch"
	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
	"github.com/Altinn/altinn-notifications-sub006/internal/observability"
	"github.com/Altinn/altinn-notifications-sub006/internal/queue"
	"github.com/Altinn/altinn-notifications-sub006/internal/ratelimit"
	"github.com/Altinn/altinn-notifications-sub006/internal/repository"
)

const (
	minConsumerConcurrency  = 1
	maxConditionAttempts    = 5
	baseConditionRetryDelay = 30 * time.Second
	maxConditionRetryDelay  = 10 * time.Minute

	shipmentTypeNotification = "Notification"
)

// PastDueConsumer drives a past-due order from intake status to a recorded
// outcome: condition gate, contact resolution, gateway dispatch, and the
// completion entry on the status feed. It consumes both the past-due topic
// and its retry topic; retry messages carry a NotBefore gate.
type PastDueConsumer struct {
	orders      repository.OrderRepository
	consumer    queue.Consumer
	publisher   queue.Publisher
	evaluator   condition.Evaluator
	contacts    contact.Resolver
	email       dispatch.EmailDispatcher
	sms         dispatch.SmsDispatcher
	pauser      *ChannelPauser
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewPastDueConsumer(
	orders repository.OrderRepository,
	consumer queue.Consumer,
	publisher queue.Publisher,
	evaluator condition.Evaluator,
	contacts contact.Resolver,
	email dispatch.EmailDispatcher,
	sms dispatch.SmsDispatcher,
	pauser *ChannelPauser,
	rateLimiter ratelimit.RateLimiter,
	concurrency int,
	logger *zap.Logger,
) (*PastDueConsumer, error) {
	if orders == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if consumer == nil || publisher == nil {
		return nil, fmt.Errorf("queue consumer and publisher are required")
	}
	if concurrency < minConsumerConcurrency {
		concurrency = minConsumerConcurrency
	}
	if pauser == nil {
		pauser = NewChannelPauser()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PastDueConsumer{
		orders:      orders,
		consumer:    consumer,
		publisher:   publisher,
		evaluator:   evaluator,
		contacts:    contacts,
		email:       email,
		sms:         sms,
		pauser:      pauser,
		rateLimiter: rateLimiter,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func (s *PastDueConsumer) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes the past-due topics until context cancellation.
func (s *PastDueConsumer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	queueNames := []string{queue.QueuePastDue, queue.QueuePastDueRetry}

	// Every queue gets at least one worker: a starved retry topic would
	// leave gated orders parked behind their not-before forever.
	workersPerQueue := s.concurrency / len(queueNames)
	if workersPerQueue < 1 {
		workersPerQueue = 1
	}

	g, groupCtx := errgroup.WithContext(ctx)
	workerID := 0
	for _, name := range queueNames {
		for i := 0; i < workersPerQueue; i++ {
			queueName := name
			workerID++
			id := workerID

			g.Go(func() error {
				s.logger.Info("past-due worker started",
					zap.Int("workerId", id),
					zap.String("queue", queueName),
				)

				err := s.consumer.Consume(groupCtx, queueName, s.processMessage)
				if err != nil {
					s.logger.Error("past-due worker stopped with error",
						zap.Int("workerId", id),
						zap.String("queue", queueName),
						zap.Error(err),
					)
					return err
				}

				s.logger.Info("past-due worker stopped",
					zap.Int("workerId", id),
					zap.String("queue", queueName),
				)
				return nil
			})
		}
	}

	return g.Wait()
}

func (s *PastDueConsumer) processMessage(ctx context.Context, body []byte) error {
	var msg queue.PastDueOrderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.logger.Warn("dropping undecodable past-due message", zap.Error(err))
		return queue.ErrRejectMessage
	}
	if err := msg.Validate(); err != nil {
		s.logger.Warn("dropping invalid past-due message",
			zap.String("orderId", msg.OrderID),
			zap.Error(err),
		)
		return queue.ErrRejectMessage
	}

	if s.metrics != nil {
		s.metrics.IncConsumerInFlight("past-due")
		defer s.metrics.DecConsumerInFlight("past-due")
	}

	// Retry messages are gated; an early redelivery goes back on the retry
	// topic for the remaining delay.
	if msg.NotBefore != nil {
		if remaining := msg.NotBefore.Sub(s.now()); remaining > 0 {
			return s.republish(ctx, msg, remaining)
		}
	}

	order, err := s.orders.GetByID(ctx, msg.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("order not found, skipping past-due message",
				zap.String("orderId", msg.OrderID),
			)
			return nil
		}
		return fmt.Errorf("failed to load order: %w", err)
	}

	// Redeliveries of already decided orders are acked and dropped.
	if order.Status.IsTerminal() {
		s.logger.Info("order already in terminal status, skipping",
			zap.String("orderId", order.ID),
			zap.String("status", order.Status.String()),
		)
		return nil
	}

	if order.Status == domain.OrderStatusRegistered && order.HasSendCondition() {
		proceed, err := s.evaluateCondition(ctx, order, msg)
		if err != nil || !proceed {
			return err
		}
	}

	if until, paused := s.pauser.PausedUntil(order.Channel); paused {
		s.logger.Info("channel paused, deferring order",
			zap.String("orderId", order.ID),
			zap.String("channel", order.Channel.String()),
			zap.Time("pausedUntil", until),
		)
		deferred := msg
		deferred.NotBefore = &until
		return s.republish(ctx, deferred, until.Sub(s.now()))
	}

	if err := s.orders.MarkProcessing(ctx, order.ID); err != nil {
		return fmt.Errorf("failed to mark order processing: %w", err)
	}

	feedRecipients, err := s.dispatchRecipients(ctx, order)
	if err != nil {
		return err
	}

	entry := &domain.StatusFeedEntry{
		OrderID:          order.ID,
		ShipmentID:       order.ID,
		SendersReference: order.SendersReference,
		ShipmentType:     shipmentTypeNotification,
		Status:           domain.LifecycleCompleted,
		Recipients:       feedRecipients,
		LastUpdated:      s.now().UTC(),
	}

	if err := s.orders.MarkCompleted(ctx, order.ID, entry); err != nil {
		return fmt.Errorf("failed to mark order completed: %w", err)
	}
	if s.metrics != nil {
		s.metrics.IncOrderProcessed("completed")
		s.metrics.IncFeedAppend("past-due", true)
	}

	s.logger.Info("order processed",
		zap.String("orderId", order.ID),
		zap.String("channel", order.Channel.String()),
		zap.Int("recipients", len(feedRecipients)),
	)
	return nil
}

// evaluateCondition runs the send-condition gate. It returns true when
// dispatch may proceed; false with a nil error means the message was
// handled (retried or recorded as not met) and must be acked.
func (s *PastDueConsumer) evaluateCondition(
	ctx context.Context,
	order *domain.NotificationOrder,
	msg queue.PastDueOrderMessage,
) (bool, error) {
	if s.evaluator == nil {
		return true, nil
	}

	result, err := s.evaluator.Evaluate(ctx, *order.ConditionEndpoint)
	if err != nil {
		// Shutdown cancellation requeues the message as-is; the attempt
		// counter only moves for real check outcomes.
		if errors.Is(err, context.Canceled) {
			return false, fmt.Errorf("send condition check interrupted: %w", err)
		}

		// Invalid endpoint on the stored order cannot heal on retry.
		s.logger.Error("send condition endpoint rejected",
			zap.String("orderId", order.ID),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.IncConditionCheck("invalid_endpoint")
		}
		if err := s.orders.MarkSendConditionNotMet(ctx, order.ID, nil); err != nil {
			return false, fmt.Errorf("failed to mark send condition not met: %w", err)
		}
		if s.metrics != nil {
			s.metrics.IncOrderProcessed("send_condition_not_met")
		}
		return false, nil
	}

	if result.RetryNeeded {
		if s.metrics != nil {
			s.metrics.IncConditionCheck("inconclusive")
		}
		if msg.Attempt+1 >= maxConditionAttempts {
			s.logger.Warn("send condition retries exhausted, treating as not met",
				zap.String("orderId", order.ID),
				zap.Int("attempts", msg.Attempt+1),
			)
			if err := s.orders.MarkSendConditionNotMet(ctx, order.ID, nil); err != nil {
				return false, fmt.Errorf("failed to mark send condition not met: %w", err)
			}
			if s.metrics != nil {
				s.metrics.IncOrderProcessed("send_condition_not_met")
			}
			return false, nil
		}

		delay := conditionRetryDelay(msg.Attempt)
		notBefore := s.now().Add(delay)
		retry := queue.PastDueOrderMessage{
			OrderID:   order.ID,
			Attempt:   msg.Attempt + 1,
			NotBefore: &notBefore,
		}
		if s.metrics != nil {
			s.metrics.IncConditionRetry()
		}
		return false, s.republish(ctx, retry, delay)
	}

	if result.NotMet() {
		if s.metrics != nil {
			s.metrics.IncConditionCheck("not_met")
		}
		if err := s.orders.MarkSendConditionNotMet(ctx, order.ID, nil); err != nil {
			return false, fmt.Errorf("failed to mark send condition not met: %w", err)
		}
		if s.metrics != nil {
			s.metrics.IncOrderProcessed("send_condition_not_met")
		}
		s.logger.Info("send condition not met, order will not dispatch",
			zap.String("orderId", order.ID),
		)
		return false, nil
	}

	if s.metrics != nil {
		s.metrics.IncConditionCheck("met")
	}
	return true, nil
}

func (s *PastDueConsumer) dispatchRecipients(
	ctx context.Context,
	order *domain.NotificationOrder,
) ([]domain.FeedRecipient, error) {
	feedRecipients := make([]domain.FeedRecipient, 0, len(order.Recipients))

	for _, recipient := range order.Recipients {
		contactPoint, status, err := s.resolveRecipient(ctx, order.Channel, recipient)
		if err != nil {
			return nil, err
		}
		if status != "" {
			feedRecipients = append(feedRecipients, domain.FeedRecipient{
				Type:        order.Channel,
				Destination: recipient.Value,
				Status:      status,
			})
			continue
		}

		destination := contactPoint.AddressFor(order.Channel)
		feedRecipients = append(feedRecipients, domain.FeedRecipient{
			Type:        order.Channel,
			Destination: destination,
			Status:      s.sendToGateway(ctx, order, destination),
		})
	}

	return feedRecipients, nil
}

// resolveRecipient returns either a usable contact point or a terminal
// per-recipient status explaining why dispatch is impossible.
func (s *PastDueConsumer) resolveRecipient(
	ctx context.Context,
	channel domain.Channel,
	recipient domain.Recipient,
) (domain.ContactPoint, domain.LifecycleStatus, error) {
	if s.contacts == nil {
		return domain.ContactPoint{}, "", fmt.Errorf("contact resolver is not configured")
	}

	contactPoint, err := s.contacts.Resolve(ctx, recipient)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return domain.ContactPoint{}, domain.LifecycleFailedRecipientNotReachable, nil
		case errors.Is(err, domain.ErrValidation):
			return domain.ContactPoint{}, domain.LifecycleFailedInvalidRecipient, nil
		}
		return domain.ContactPoint{}, "", fmt.Errorf("failed to resolve recipient: %w", err)
	}

	if contactPoint.Reserved {
		return domain.ContactPoint{}, domain.LifecycleFailedRecipientReserved, nil
	}
	if strings.TrimSpace(contactPoint.AddressFor(channel)) == "" {
		return domain.ContactPoint{}, domain.LifecycleFailedRecipientNotReachable, nil
	}
	return contactPoint, "", nil
}

// sendToGateway performs one dispatch attempt and returns the resulting
// per-recipient lifecycle stage. Gateway failures never fail the message;
// the outcome is recorded on the feed entry instead.
func (s *PastDueConsumer) sendToGateway(
	ctx context.Context,
	order *domain.NotificationOrder,
	destination string,
) domain.LifecycleStatus {
	channelName := strings.ToLower(order.Channel.String())

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, channelName); err != nil {
			s.logger.Warn("rate limiter wait interrupted",
				zap.String("orderId", order.ID),
				zap.Error(err),
			)
			return domain.LifecycleFailed
		}
	}

	template := order.TemplateFor(order.Channel)
	if template == nil {
		s.logger.Error("no template for channel",
			zap.String("orderId", order.ID),
			zap.String("channel", order.Channel.String()),
		)
		return domain.LifecycleFailed
	}

	start := s.now()
	result, err := s.dispatchOne(ctx, order, template, destination)
	if s.metrics != nil {
		s.metrics.ObserveDispatchDuration(channelName, s.now().Sub(start))
		s.metrics.IncDispatch(channelName, err == nil && result.Success)
	}

	if err != nil {
		s.logger.Error("gateway dispatch rejected message",
			zap.String("orderId", order.ID),
			zap.Error(err),
		)
		return domain.LifecycleFailed
	}
	if !result.Success {
		s.logger.Warn("gateway dispatch failed",
			zap.String("orderId", order.ID),
			zap.Int("statusCode", result.StatusCode),
			zap.String("details", result.ErrorDetails),
		)
		return domain.LifecycleFailed
	}
	return domain.LifecycleSending
}

func (s *PastDueConsumer) dispatchOne(
	ctx context.Context,
	order *domain.NotificationOrder,
	template *domain.Template,
	destination string,
) (dispatch.SendResult, error) {
	switch order.Channel {
	case domain.ChannelEmail:
		if s.email == nil {
			return dispatch.SendResult{}, fmt.Errorf("email dispatcher is not configured")
		}
		return s.email.Send(ctx, dispatch.InstantEmail{
			Recipient:   destination,
			FromAddress: template.Sender,
			Subject:     template.Subject,
			Body:        template.Body,
			OrderID:     order.ID,
		})
	case domain.ChannelSMS:
		if s.sms == nil {
			return dispatch.SendResult{}, fmt.Errorf("sms dispatcher is not configured")
		}
		return s.sms.Send(ctx, dispatch.ShortMessage{
			Recipient:         destination,
			Sender:            template.Sender,
			Message:           template.Body,
			OrderID:           order.ID,
			TimeToLiveSeconds: order.TimeToLiveSeconds,
		})
	}
	return dispatch.SendResult{}, fmt.Errorf("unsupported channel %q", order.Channel)
}

func (s *PastDueConsumer) republish(ctx context.Context, msg queue.PastDueOrderMessage, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	if err := s.publisher.PublishWithDelay(ctx, queue.QueuePastDueRetry, msg, delay); err != nil {
		return fmt.Errorf("failed to republish past-due message: %w", err)
	}
	return nil
}

func conditionRetryDelay(attempt int) time.Duration {
	delay := baseConditionRetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maxConditionRetryDelay {
			return maxConditionRetryDelay
		}
	}
	return delay
}
