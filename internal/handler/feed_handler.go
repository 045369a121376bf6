package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 500
)

// StatusFeedReader is the read side of the status feed consumed by polling
// clients.
type StatusFeedReader interface {
	ReadStatusFeed(ctx context.Context, sinceSequence int64, limit int) ([]domain.StatusFeedEntry, error)
}

type FeedHandler struct {
	feed StatusFeedReader
}

func NewFeedHandler(feed StatusFeedReader) (*FeedHandler, error) {
	if feed == nil {
		return nil, fmt.Errorf("status feed reader is required")
	}
	return &FeedHandler{feed: feed}, nil
}

func RegisterFeedRoutes(router fiber.Router, feed StatusFeedReader) error {
	h, err := NewFeedHandler(feed)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/shipments/feed", h.GetFeed)

	return nil
}

type feedRecipientResponse struct {
	Type        string `json:"type"`
	Destination string `json:"destination"`
	Status      string `json:"status"`
}

type feedEntryResponse struct {
	SequenceNumber   int64                   `json:"sequenceNumber"`
	ShipmentID       string                  `json:"shipmentId"`
	SendersReference string                  `json:"sendersReference,omitempty"`
	ShipmentType     string                  `json:"shipmentType"`
	Status           string                  `json:"status"`
	Recipients       []feedRecipientResponse `json:"recipients"`
	LastUpdated      time.Time               `json:"lastUpdated"`
}

// GetFeed returns feed entries with sequence number greater than the `since`
// cursor, ascending, so clients can poll with their last seen sequence.
func (h *FeedHandler) GetFeed(c *fiber.Ctx) error {
	since := int64(c.QueryInt("since", 0))
	if since < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "since must not be negative")
	}

	limit := c.QueryInt("limit", defaultFeedLimit)
	if limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	entries, err := h.feed.ReadStatusFeed(c.Context(), since, limit)
	if err != nil {
		return fmt.Errorf("failed to read status feed: %w", err)
	}

	response := make([]feedEntryResponse, 0, len(entries))
	for _, entry := range entries {
		recipients := make([]feedRecipientResponse, 0, len(entry.Recipients))
		for _, r := range entry.Recipients {
			recipients = append(recipients, feedRecipientResponse{
				Type:        r.Type.String(),
				Destination: r.Destination,
				Status:      string(r.Status),
			})
		}
		response = append(response, feedEntryResponse{
			SequenceNumber:   entry.SequenceNumber,
			ShipmentID:       entry.ShipmentID,
			SendersReference: entry.SendersReference,
			ShipmentType:     entry.ShipmentType,
			Status:           string(entry.Status),
			Recipients:       recipients,
			LastUpdated:      entry.LastUpdated,
		})
	}

	return c.Status(fiber.StatusOK).JSON(response)
}
