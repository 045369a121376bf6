package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
	"github.com/Altinn/altinn-notifications-sub006/internal/observability"
	"github.com/Altinn/altinn-notifications-sub006/internal/queue"
)

// ServiceUpdateConsumer reacts to platform-level events. A resource limit
// announcement pauses dispatch on the affected channel until the advertised
// reset time; past-due processing defers orders while the pause holds.
type ServiceUpdateConsumer struct {
	consumer queue.Consumer
	pauser   *ChannelPauser
	logger   *zap.Logger
	metrics  *observability.Metrics
}

func NewServiceUpdateConsumer(
	consumer queue.Consumer,
	pauser *ChannelPauser,
	logger *zap.Logger,
) (*ServiceUpdateConsumer, error) {
	if consumer == nil {
		return nil, fmt.Errorf("queue consumer is required")
	}
	if pauser == nil {
		return nil, fmt.Errorf("channel pauser is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ServiceUpdateConsumer{
		consumer: consumer,
		pauser:   pauser,
		logger:   logger,
	}, nil
}

func (s *ServiceUpdateConsumer) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *ServiceUpdateConsumer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.consumer.Consume(ctx, queue.QueueServiceUpdate, s.processMessage)
}

func (s *ServiceUpdateConsumer) processMessage(ctx context.Context, body []byte) error {
	var msg queue.ServiceUpdateMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.logger.Warn("dropping undecodable service update", zap.Error(err))
		return queue.ErrRejectMessage
	}
	if err := msg.Validate(); err != nil {
		s.logger.Warn("dropping invalid service update", zap.Error(err))
		return queue.ErrRejectMessage
	}

	if msg.Kind != queue.ServiceUpdateResourceLimitExceeded {
		s.logger.Info("ignoring service update of unknown kind",
			zap.String("kind", msg.Kind),
			zap.String("resource", msg.Resource),
		)
		return nil
	}

	channel, err := domain.ParseChannelFromString(msg.Resource)
	if err != nil {
		s.logger.Warn("service update names no known channel",
			zap.String("resource", msg.Resource),
		)
		return nil
	}

	s.pauser.Pause(channel, msg.ResetTime)
	if s.metrics != nil {
		s.metrics.SetChannelPaused(channel.String(), true)
	}

	s.logger.Warn("channel dispatch paused by service update",
		zap.String("channel", channel.String()),
		zap.Time("resetTime", msg.ResetTime),
	)
	return nil
}
