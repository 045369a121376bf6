package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
)

// Message is a structured bus event with a stable key used as the broker
// message id.
type Message interface {
	Validate() error
	Key() string
}

// PastDueOrderMessage signals that an order's requested send time has
// arrived. Retry re-publications carry an incremented Attempt and a
// NotBefore gate so the condition check is not re-evaluated too early.
type PastDueOrderMessage struct {
	OrderID   string     `json:"orderId"`
	Attempt   int        `json:"attempt"`
	NotBefore *time.Time `json:"notBefore,omitempty"`
}

func (m PastDueOrderMessage) Validate() error {
	if strings.TrimSpace(m.OrderID) == "" {
		return fmt.Errorf("orderId is required")
	}
	if m.Attempt < 0 {
		return fmt.Errorf("attempt must not be negative")
	}
	return nil
}

func (m PastDueOrderMessage) Key() string { return m.OrderID }

// DeliveryStatusMessage is a delivery receipt emitted by a channel gateway.
// Status carries the gateway's own vocabulary; translation to the canonical
// lifecycle stage happens in the consumer.
type DeliveryStatusMessage struct {
	ShipmentID       string         `json:"shipmentId"`
	OrderID          string         `json:"orderId"`
	SendersReference string         `json:"sendersReference,omitempty"`
	Channel          domain.Channel `json:"channel"`
	Destination      string         `json:"destination"`
	Status           string         `json:"status"`
	GatewayReference string         `json:"gatewayReference,omitempty"`
	OccurredAt       time.Time      `json:"occurredAt"`
}

func (m DeliveryStatusMessage) Validate() error {
	if strings.TrimSpace(m.ShipmentID) == "" {
		return fmt.Errorf("shipmentId is required")
	}
	if strings.TrimSpace(m.OrderID) == "" {
		return fmt.Errorf("orderId is required")
	}
	if !m.Channel.IsValid() {
		return fmt.Errorf("invalid channel %q", m.Channel)
	}
	if strings.TrimSpace(m.Destination) == "" {
		return fmt.Errorf("destination is required")
	}
	if strings.TrimSpace(m.Status) == "" {
		return fmt.Errorf("status is required")
	}
	return nil
}

func (m DeliveryStatusMessage) Key() string { return m.ShipmentID }

// Service-update event kinds.
const (
	ServiceUpdateResourceLimitExceeded = "ResourceLimitExceeded"
)

// ServiceUpdateMessage is a platform-level event, e.g. a gateway reporting
// that a resource limit was exceeded and when it resets.
type ServiceUpdateMessage struct {
	Kind      string    `json:"kind"`
	Resource  string    `json:"resource"`
	ResetTime time.Time `json:"resetTime"`
}

func (m ServiceUpdateMessage) Validate() error {
	if strings.TrimSpace(m.Kind) == "" {
		return fmt.Errorf("kind is required")
	}
	if strings.TrimSpace(m.Resource) == "" {
		return fmt.Errorf("resource is required")
	}
	return nil
}

func (m ServiceUpdateMessage) Key() string { return m.Resource }
