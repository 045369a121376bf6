package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
	"github.com/Altinn/altinn-notifications-sub006/internal/observability"
	"github.com/Altinn/altinn-notifications-sub006/internal/queue"
	"github.com/Altinn/altinn-notifications-sub006/internal/repository"
)

// StatusConsumer translates gateway delivery receipts into canonical
// lifecycle stages and appends them to the status feed. Redeliveries of an
// already recorded (order, destination, status) triple are deduplicated by
// the repository and acked without a new feed row.
type StatusConsumer struct {
	orders   repository.OrderRepository
	consumer queue.Consumer
	logger   *zap.Logger
	metrics  *observability.Metrics
}

func NewStatusConsumer(
	orders repository.OrderRepository,
	consumer queue.Consumer,
	logger *zap.Logger,
) (*StatusConsumer, error) {
	if orders == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("queue consumer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StatusConsumer{
		orders:   orders,
		consumer: consumer,
		logger:   logger,
	}, nil
}

func (s *StatusConsumer) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes both channel status topics until context cancellation.
func (s *StatusConsumer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.consumer.Consume(groupCtx, queue.QueueStatusEmail, s.handlerFor("status-email"))
	})
	g.Go(func() error {
		return s.consumer.Consume(groupCtx, queue.QueueStatusSMS, s.handlerFor("status-sms"))
	})

	return g.Wait()
}

func (s *StatusConsumer) handlerFor(source string) queue.MessageHandler {
	return func(ctx context.Context, body []byte) error {
		return s.processMessage(ctx, source, body)
	}
}

func (s *StatusConsumer) processMessage(ctx context.Context, source string, body []byte) error {
	var msg queue.DeliveryStatusMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.logger.Warn("dropping undecodable status message",
			zap.String("source", source),
			zap.Error(err),
		)
		return queue.ErrRejectMessage
	}
	if err := msg.Validate(); err != nil {
		s.logger.Warn("dropping invalid status message",
			zap.String("source", source),
			zap.String("shipmentId", msg.ShipmentID),
			zap.Error(err),
		)
		return queue.ErrRejectMessage
	}

	if s.metrics != nil {
		s.metrics.IncConsumerInFlight(source)
		defer s.metrics.DecConsumerInFlight(source)
	}

	status := domain.MapChannelStatus(msg.Channel, msg.Status)
	if status == domain.LifecycleUnknown {
		s.logger.Warn("unrecognized gateway status",
			zap.String("source", source),
			zap.String("shipmentId", msg.ShipmentID),
			zap.String("gatewayStatus", msg.Status),
		)
	}

	entry := &domain.StatusFeedEntry{
		OrderID:          msg.OrderID,
		ShipmentID:       msg.ShipmentID,
		SendersReference: msg.SendersReference,
		ShipmentType:     shipmentTypeNotification,
		Status:           status,
		Recipients: []domain.FeedRecipient{{
			Type:        msg.Channel,
			Destination: msg.Destination,
			Status:      status,
		}},
		LastUpdated: msg.OccurredAt,
	}

	appended, err := s.orders.AppendStatusFeedEntry(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to append status feed entry: %w", err)
	}
	if s.metrics != nil {
		s.metrics.IncFeedAppend(source, appended)
	}

	if !appended {
		s.logger.Debug("duplicate delivery receipt deduplicated",
			zap.String("source", source),
			zap.String("shipmentId", msg.ShipmentID),
			zap.String("status", string(status)),
		)
		return nil
	}

	s.logger.Info("delivery receipt recorded",
		zap.String("source", source),
		zap.String("shipmentId", msg.ShipmentID),
		zap.String("orderId", msg.OrderID),
		zap.String("status", string(status)),
	)
	return nil
}
