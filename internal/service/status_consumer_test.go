package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
	"github.com/Altinn/altinn-notifications-sub006/internal/queue"
)

func testStatusMessage(t *testing.T) ([]byte, queue.DeliveryStatusMessage) {
	t.Helper()

	msg := queue.DeliveryStatusMessage{
		ShipmentID:       "0e2d7c3f-6f3d-4f2a-9a47-0a6b0c2d4e5f",
		OrderID:          "6b9a2537-8b25-4a44-b7a0-4b355f4eb8d3",
		SendersReference: "ref-42",
		Channel:          domain.ChannelEmail,
		Destination:      "user@example.com",
		Status:           "Delivered",
		OccurredAt:       time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	return body, msg
}

func TestNewStatusConsumerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewStatusConsumer(nil, &fakeConsumer{}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error when order repository is nil")
	}

	_, err = NewStatusConsumer(&fakeOrderRepo{}, nil, zap.NewNop())
	if err == nil {
		t.Fatal("expected error when consumer is nil")
	}
}

func TestStatusConsumerAppendsCanonicalEntry(t *testing.T) {
	t.Parallel()

	body, msg := testStatusMessage(t)

	var appended *domain.StatusFeedEntry
	repo := &fakeOrderRepo{
		appendStatusFeedEntryFn: func(ctx context.Context, entry *domain.StatusFeedEntry) (bool, error) {
			appended = entry
			return true, nil
		},
	}
	consumer, err := NewStatusConsumer(repo, &fakeConsumer{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStatusConsumer() error = %v", err)
	}

	if err := consumer.processMessage(context.Background(), "status-email", body); err != nil {
		t.Fatalf("processMessage() error = %v", err)
	}
	if appended == nil {
		t.Fatal("no feed entry appended")
	}
	if appended.Status != domain.LifecycleDelivered {
		t.Errorf("entry status = %s, want %s", appended.Status, domain.LifecycleDelivered)
	}
	if appended.OrderID != msg.OrderID {
		t.Errorf("entry order id = %s, want %s", appended.OrderID, msg.OrderID)
	}
	if appended.ShipmentID != msg.ShipmentID {
		t.Errorf("entry shipment id = %s, want %s", appended.ShipmentID, msg.ShipmentID)
	}
	if !appended.LastUpdated.Equal(msg.OccurredAt) {
		t.Errorf("entry last updated = %v, want %v", appended.LastUpdated, msg.OccurredAt)
	}
	if len(appended.Recipients) != 1 {
		t.Fatalf("entry recipients = %d, want 1", len(appended.Recipients))
	}
	if appended.Recipients[0].Destination != msg.Destination {
		t.Errorf("recipient destination = %s, want %s", appended.Recipients[0].Destination, msg.Destination)
	}
	if appended.Recipients[0].Status != domain.LifecycleDelivered {
		t.Errorf("recipient status = %s, want %s", appended.Recipients[0].Status, domain.LifecycleDelivered)
	}
}

func TestStatusConsumerUnknownGatewayStatusMapsToUnknown(t *testing.T) {
	t.Parallel()

	msg := queue.DeliveryStatusMessage{
		ShipmentID:  "s-1",
		OrderID:     "o-1",
		Channel:     domain.ChannelSMS,
		Destination: "+4799315000",
		Status:      "Weird_Gateway_Code",
		OccurredAt:  time.Now().UTC(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}

	var appended *domain.StatusFeedEntry
	repo := &fakeOrderRepo{
		appendStatusFeedEntryFn: func(ctx context.Context, entry *domain.StatusFeedEntry) (bool, error) {
			appended = entry
			return true, nil
		},
	}
	consumer, err := NewStatusConsumer(repo, &fakeConsumer{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStatusConsumer() error = %v", err)
	}

	if err := consumer.processMessage(context.Background(), "status-sms", body); err != nil {
		t.Fatalf("processMessage() error = %v", err)
	}
	if appended == nil || appended.Status != domain.LifecycleUnknown {
		t.Fatalf("unknown gateway status must map to %s", domain.LifecycleUnknown)
	}
}

func TestStatusConsumerAcksDeduplicatedRedelivery(t *testing.T) {
	t.Parallel()

	body, _ := testStatusMessage(t)

	repo := &fakeOrderRepo{
		appendStatusFeedEntryFn: func(ctx context.Context, entry *domain.StatusFeedEntry) (bool, error) {
			return false, nil
		},
	}
	consumer, err := NewStatusConsumer(repo, &fakeConsumer{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStatusConsumer() error = %v", err)
	}

	if err := consumer.processMessage(context.Background(), "status-email", body); err != nil {
		t.Fatalf("deduplicated redelivery must ack, got error %v", err)
	}
}

func TestStatusConsumerRejectsInvalidMessages(t *testing.T) {
	t.Parallel()

	consumer, err := NewStatusConsumer(&fakeOrderRepo{}, &fakeConsumer{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStatusConsumer() error = %v", err)
	}

	err = consumer.processMessage(context.Background(), "status-email", []byte("not json"))
	if !errors.Is(err, queue.ErrRejectMessage) {
		t.Fatalf("undecodable message error = %v, want ErrRejectMessage", err)
	}

	err = consumer.processMessage(context.Background(), "status-email", []byte(`{"shipmentId":""}`))
	if !errors.Is(err, queue.ErrRejectMessage) {
		t.Fatalf("invalid message error = %v, want ErrRejectMessage", err)
	}
}

func TestStatusConsumerRepoFailureRequeues(t *testing.T) {
	t.Parallel()

	body, _ := testStatusMessage(t)

	repo := &fakeOrderRepo{
		appendStatusFeedEntryFn: func(ctx context.Context, entry *domain.StatusFeedEntry) (bool, error) {
			return false, errors.New("connection refused")
		},
	}
	consumer, err := NewStatusConsumer(repo, &fakeConsumer{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStatusConsumer() error = %v", err)
	}

	err = consumer.processMessage(context.Background(), "status-email", body)
	if err == nil {
		t.Fatal("repository failure must surface so the message is requeued")
	}
	if errors.Is(err, queue.ErrRejectMessage) {
		t.Error("repository failure must requeue, not dead-letter")
	}
}
