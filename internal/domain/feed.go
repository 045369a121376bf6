package domain

import (
	"fmt"
	"strings"
	"time"
)

// FeedRecipient is the per-recipient delivery truth carried on a feed entry.
type FeedRecipient struct {
	Type        Channel         `json:"type"`
	Destination string          `json:"destination"`
	Status      LifecycleStatus `json:"status"`
}

// StatusFeedEntry is one append-only row of the globally sequenced status
// feed. SequenceNumber is assigned exactly once by the repository; callers
// leave it zero.
type StatusFeedEntry struct {
	SequenceNumber   int64
	OrderID          string
	ShipmentID       string
	SendersReference string
	ShipmentType     string
	Status           LifecycleStatus
	Recipients       []FeedRecipient
	LastUpdated      time.Time
}

func (e *StatusFeedEntry) Validate() error {
	if strings.TrimSpace(e.OrderID) == "" {
		return fmt.Errorf("%w: feed entry order id is required", ErrValidation)
	}
	if strings.TrimSpace(e.ShipmentID) == "" {
		return fmt.Errorf("%w: feed entry shipment id is required", ErrValidation)
	}
	if e.Status == "" {
		return fmt.Errorf("%w: feed entry status is required", ErrValidation)
	}
	for _, r := range e.Recipients {
		if !r.Type.IsValid() {
			return fmt.Errorf("%w: invalid feed recipient type %q", ErrValidation, r.Type)
		}
		if strings.TrimSpace(r.Destination) == "" {
			return fmt.Errorf("%w: feed recipient destination is required", ErrValidation)
		}
	}
	return nil
}
