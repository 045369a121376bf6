package service

import (
	"context"
	"time"

	"github.com/Altinn/altinn-notifications-sub006/internal/condition"
	"github.com/Altinn/altinn-notifications-sub006/internal/dispatch"
	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
	"github.com/Altinn/altinn-notifications-sub006/internal/queue"
)

type fakeOrderRepo struct {
	createFn                  func(ctx context.Context, order *domain.NotificationOrder) (*domain.NotificationOrder, error)
	getByIDFn                 func(ctx context.Context, id string) (*domain.NotificationOrder, error)
	getByIdempotencyKeyFn     func(ctx context.Context, creator, key string) (*domain.NotificationOrder, error)
	markProcessingFn          func(ctx context.Context, orderID string) error
	markCompletedFn           func(ctx context.Context, orderID string, entry *domain.StatusFeedEntry) error
	markSendConditionNotMetFn func(ctx context.Context, orderID string, entry *domain.StatusFeedEntry) error
	appendStatusFeedEntryFn   func(ctx context.Context, entry *domain.StatusFeedEntry) (bool, error)
	readStatusFeedFn          func(ctx context.Context, sinceSequence int64, limit int) ([]domain.StatusFeedEntry, error)
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *domain.NotificationOrder) (*domain.NotificationOrder, error) {
	if f.createFn != nil {
		return f.createFn(ctx, order)
	}
	return order, nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id string) (*domain.NotificationOrder, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrderRepo) GetByIdempotencyKey(ctx context.Context, creator, key string) (*domain.NotificationOrder, error) {
	if f.getByIdempotencyKeyFn != nil {
		return f.getByIdempotencyKeyFn(ctx, creator, key)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrderRepo) MarkProcessing(ctx context.Context, orderID string) error {
	if f.markProcessingFn != nil {
		return f.markProcessingFn(ctx, orderID)
	}
	return nil
}

func (f *fakeOrderRepo) MarkCompleted(ctx context.Context, orderID string, entry *domain.StatusFeedEntry) error {
	if f.markCompletedFn != nil {
		return f.markCompletedFn(ctx, orderID, entry)
	}
	return nil
}

func (f *fakeOrderRepo) MarkSendConditionNotMet(ctx context.Context, orderID string, entry *domain.StatusFeedEntry) error {
	if f.markSendConditionNotMetFn != nil {
		return f.markSendConditionNotMetFn(ctx, orderID, entry)
	}
	return nil
}

func (f *fakeOrderRepo) AppendStatusFeedEntry(ctx context.Context, entry *domain.StatusFeedEntry) (bool, error) {
	if f.appendStatusFeedEntryFn != nil {
		return f.appendStatusFeedEntryFn(ctx, entry)
	}
	return true, nil
}

func (f *fakeOrderRepo) ReadStatusFeed(ctx context.Context, sinceSequence int64, limit int) ([]domain.StatusFeedEntry, error) {
	if f.readStatusFeedFn != nil {
		return f.readStatusFeedFn(ctx, sinceSequence, limit)
	}
	return nil, nil
}

type fakePublisher struct {
	publishFn          func(ctx context.Context, queueName string, msg queue.Message) error
	publishWithDelayFn func(ctx context.Context, queueName string, msg queue.Message, delay time.Duration) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.Message) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, msg)
	}
	return nil
}

func (f *fakePublisher) PublishWithDelay(ctx context.Context, queueName string, msg queue.Message, delay time.Duration) error {
	if f.publishWithDelayFn != nil {
		return f.publishWithDelayFn(ctx, queueName, msg, delay)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

type fakeEvaluator struct {
	evaluateFn func(ctx context.Context, endpoint string) (condition.EvaluationResult, error)
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, endpoint string) (condition.EvaluationResult, error) {
	if f.evaluateFn != nil {
		return f.evaluateFn(ctx, endpoint)
	}
	met := true
	return condition.EvaluationResult{SendConditionMet: &met}, nil
}

type fakeResolver struct {
	resolveFn func(ctx context.Context, recipient domain.Recipient) (domain.ContactPoint, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, recipient domain.Recipient) (domain.ContactPoint, error) {
	if f.resolveFn != nil {
		return f.resolveFn(ctx, recipient)
	}
	return domain.ContactPoint{
		EmailAddress: recipient.Value,
		MobileNumber: recipient.Value,
	}, nil
}

type fakeEmailDispatcher struct {
	sendFn func(ctx context.Context, email dispatch.InstantEmail) (dispatch.SendResult, error)
}

func (f *fakeEmailDispatcher) Send(ctx context.Context, email dispatch.InstantEmail) (dispatch.SendResult, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, email)
	}
	return dispatch.SendResult{Success: true, StatusCode: 200}, nil
}

type fakeSmsDispatcher struct {
	sendFn func(ctx context.Context, msg dispatch.ShortMessage) (dispatch.SendResult, error)
}

func (f *fakeSmsDispatcher) Send(ctx context.Context, msg dispatch.ShortMessage) (dispatch.SendResult, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return dispatch.SendResult{Success: true, StatusCode: 200}, nil
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, channel string) (bool, error)
	waitFn  func(ctx context.Context, channel string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, channel)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, channel string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, channel)
	}
	return nil
}
