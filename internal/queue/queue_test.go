package queue

import (
	"testing"
	"time"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
)

func TestWorkQueueNames(t *testing.T) {
	t.Parallel()

	work := WorkQueueNames()
	if len(work) != 5 {
		t.Fatalf("WorkQueueNames len = %d, want 5", len(work))
	}

	expected := map[string]struct{}{
		"orders.past-due":       {},
		"orders.past-due.retry": {},
		"status.email":          {},
		"status.sms":            {},
		"status.service-update": {},
	}

	for _, name := range work {
		if _, ok := expected[name]; !ok {
			t.Fatalf("unexpected queue name: %s", name)
		}
	}
}

func TestDLQName(t *testing.T) {
	t.Parallel()

	if got := DLQName(QueuePastDue); got != "dlq.orders.past-due" {
		t.Fatalf("DLQName = %s, want dlq.orders.past-due", got)
	}
}

func TestWaitQueueName(t *testing.T) {
	t.Parallel()

	if got := waitQueueName(QueuePastDueRetry); got != "orders.past-due.retry.wait" {
		t.Fatalf("waitQueueName = %s, want orders.past-due.retry.wait", got)
	}
}

func TestPastDueOrderMessageValidate(t *testing.T) {
	t.Parallel()

	msg := PastDueOrderMessage{OrderID: "o1", Attempt: 0}
	if err := msg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Key() != "o1" {
		t.Fatalf("Key() = %s, want o1", msg.Key())
	}

	if err := (PastDueOrderMessage{OrderID: " "}).Validate(); err == nil {
		t.Fatal("expected error for blank order id")
	}
	if err := (PastDueOrderMessage{OrderID: "o1", Attempt: -1}).Validate(); err == nil {
		t.Fatal("expected error for negative attempt")
	}
}

func TestDeliveryStatusMessageValidate(t *testing.T) {
	t.Parallel()

	valid := DeliveryStatusMessage{
		ShipmentID:  "s1",
		OrderID:     "o1",
		Channel:     domain.ChannelEmail,
		Destination: "recipient@example.com",
		Status:      "delivered",
		OccurredAt:  time.Now(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(m *DeliveryStatusMessage)
	}{
		{"missing shipment id", func(m *DeliveryStatusMessage) { m.ShipmentID = "" }},
		{"missing order id", func(m *DeliveryStatusMessage) { m.OrderID = "" }},
		{"invalid channel", func(m *DeliveryStatusMessage) { m.Channel = domain.Channel("FAX") }},
		{"missing destination", func(m *DeliveryStatusMessage) { m.Destination = "" }},
		{"missing status", func(m *DeliveryStatusMessage) { m.Status = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := valid
			tt.mutate(&msg)
			if err := msg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestServiceUpdateMessageValidate(t *testing.T) {
	t.Parallel()

	msg := ServiceUpdateMessage{
		Kind:      ServiceUpdateResourceLimitExceeded,
		Resource:  "email",
		ResetTime: time.Now().Add(time.Minute),
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := (ServiceUpdateMessage{Resource: "email"}).Validate(); err == nil {
		t.Fatal("expected error for missing kind")
	}
	if err := (ServiceUpdateMessage{Kind: "x"}).Validate(); err == nil {
		t.Fatal("expected error for missing resource")
	}
}
