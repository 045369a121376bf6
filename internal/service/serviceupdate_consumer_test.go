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

func TestNewServiceUpdateConsumerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewServiceUpdateConsumer(nil, NewChannelPauser(), zap.NewNop())
	if err == nil {
		t.Fatal("expected error when consumer is nil")
	}

	_, err = NewServiceUpdateConsumer(&fakeConsumer{}, nil, zap.NewNop())
	if err == nil {
		t.Fatal("expected error when pauser is nil")
	}
}

func TestServiceUpdatePausesChannelUntilReset(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reset := now.Add(30 * time.Minute)

	pauser := NewChannelPauser()
	pauser.now = func() time.Time { return now }

	consumer, err := NewServiceUpdateConsumer(&fakeConsumer{}, pauser, zap.NewNop())
	if err != nil {
		t.Fatalf("NewServiceUpdateConsumer() error = %v", err)
	}

	body, err := json.Marshal(queue.ServiceUpdateMessage{
		Kind:      queue.ServiceUpdateResourceLimitExceeded,
		Resource:  "sms",
		ResetTime: reset,
	})
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}

	if err := consumer.processMessage(context.Background(), body); err != nil {
		t.Fatalf("processMessage() error = %v", err)
	}

	until, paused := pauser.PausedUntil(domain.ChannelSMS)
	if !paused {
		t.Fatal("resource limit event did not pause the channel")
	}
	if !until.Equal(reset) {
		t.Errorf("paused until = %v, want %v", until, reset)
	}
	if _, paused := pauser.PausedUntil(domain.ChannelEmail); paused {
		t.Error("email channel must be unaffected")
	}
}

func TestServiceUpdateIgnoresUnknownKindsAndResources(t *testing.T) {
	t.Parallel()

	pauser := NewChannelPauser()
	consumer, err := NewServiceUpdateConsumer(&fakeConsumer{}, pauser, zap.NewNop())
	if err != nil {
		t.Fatalf("NewServiceUpdateConsumer() error = %v", err)
	}

	unknownKind, _ := json.Marshal(queue.ServiceUpdateMessage{
		Kind:     "MaintenanceWindow",
		Resource: "sms",
	})
	if err := consumer.processMessage(context.Background(), unknownKind); err != nil {
		t.Fatalf("unknown kind must ack, got %v", err)
	}

	unknownResource, _ := json.Marshal(queue.ServiceUpdateMessage{
		Kind:      queue.ServiceUpdateResourceLimitExceeded,
		Resource:  "fax",
		ResetTime: time.Now().Add(time.Hour),
	})
	if err := consumer.processMessage(context.Background(), unknownResource); err != nil {
		t.Fatalf("unknown resource must ack, got %v", err)
	}

	if _, paused := pauser.PausedUntil(domain.ChannelSMS); paused {
		t.Error("no channel should be paused")
	}
	if _, paused := pauser.PausedUntil(domain.ChannelEmail); paused {
		t.Error("no channel should be paused")
	}
}

func TestServiceUpdateRejectsInvalidMessages(t *testing.T) {
	t.Parallel()

	consumer, err := NewServiceUpdateConsumer(&fakeConsumer{}, NewChannelPauser(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewServiceUpdateConsumer() error = %v", err)
	}

	err = consumer.processMessage(context.Background(), []byte("not json"))
	if !errors.Is(err, queue.ErrRejectMessage) {
		t.Fatalf("undecodable message error = %v, want ErrRejectMessage", err)
	}

	err = consumer.processMessage(context.Background(), []byte(`{"kind":""}`))
	if !errors.Is(err, queue.ErrRejectMessage) {
		t.Fatalf("invalid message error = %v, want ErrRejectMessage", err)
	}
}
