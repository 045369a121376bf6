package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
)

type fakeFeedReader struct {
	readFn func(ctx context.Context, sinceSequence int64, limit int) ([]domain.StatusFeedEntry, error)
}

func (f *fakeFeedReader) ReadStatusFeed(ctx context.Context, sinceSequence int64, limit int) ([]domain.StatusFeedEntry, error) {
	if f.readFn != nil {
		return f.readFn(ctx, sinceSequence, limit)
	}
	return nil, nil
}

func newFeedTestApp(t *testing.T, reader StatusFeedReader) *fiber.App {
	t.Helper()

	app := fiber.New()
	if err := RegisterFeedRoutes(app, reader); err != nil {
		t.Fatalf("RegisterFeedRoutes() error = %v", err)
	}
	return app
}

func TestGetFeedReturnsEntries(t *testing.T) {
	t.Parallel()

	lastUpdated := time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC)
	reader := &fakeFeedReader{
		readFn: func(ctx context.Context, sinceSequence int64, limit int) ([]domain.StatusFeedEntry, error) {
			if sinceSequence != 7 {
				t.Fatalf("sinceSequence = %d, want 7", sinceSequence)
			}
			if limit != 25 {
				t.Fatalf("limit = %d, want 25", limit)
			}
			return []domain.StatusFeedEntry{
				{
					SequenceNumber:   8,
					OrderID:          "6b9a2537-8b25-4a44-b7a0-4b355f4eb8d3",
					ShipmentID:       "6b9a2537-8b25-4a44-b7a0-4b355f4eb8d3",
					SendersReference: "ref-42",
					ShipmentType:     "Notification",
					Status:           domain.LifecycleDelivered,
					Recipients: []domain.FeedRecipient{
						{Type: domain.ChannelEmail, Destination: "user@example.com", Status: domain.LifecycleDelivered},
					},
					LastUpdated: lastUpdated,
				},
			}, nil
		},
	}
	app := newFeedTestApp(t, reader)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/shipments/feed?since=7&limit=25", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var entries []map[string]any
	if err := json.Unmarshal(body, &entries); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0]["sequenceNumber"].(float64) != 8 {
		t.Errorf("sequenceNumber = %v, want 8", entries[0]["sequenceNumber"])
	}
	if entries[0]["shipmentId"] != "6b9a2537-8b25-4a44-b7a0-4b355f4eb8d3" {
		t.Errorf("shipmentId = %v", entries[0]["shipmentId"])
	}
	if entries[0]["status"] != "Delivered" {
		t.Errorf("status = %v, want Delivered", entries[0]["status"])
	}

	recipients := entries[0]["recipients"].([]any)
	if len(recipients) != 1 {
		t.Fatalf("recipients = %d, want 1", len(recipients))
	}
	recipient := recipients[0].(map[string]any)
	if recipient["type"] != "EMAIL" {
		t.Errorf("recipient type = %v, want EMAIL", recipient["type"])
	}
	if recipient["destination"] != "user@example.com" {
		t.Errorf("recipient destination = %v", recipient["destination"])
	}
}

func TestGetFeedEmptyFeedReturnsEmptyArray(t *testing.T) {
	t.Parallel()

	app := newFeedTestApp(t, &fakeFeedReader{})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/shipments/feed", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

func TestGetFeedDefaultsAndCapsLimit(t *testing.T) {
	t.Parallel()

	var gotLimit int
	reader := &fakeFeedReader{
		readFn: func(ctx context.Context, sinceSequence int64, limit int) ([]domain.StatusFeedEntry, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	app := newFeedTestApp(t, reader)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/shipments/feed", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	resp.Body.Close()
	if gotLimit != defaultFeedLimit {
		t.Errorf("default limit = %d, want %d", gotLimit, defaultFeedLimit)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/shipments/feed?limit=10000", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	resp.Body.Close()
	if gotLimit != maxFeedLimit {
		t.Errorf("capped limit = %d, want %d", gotLimit, maxFeedLimit)
	}
}

func TestGetFeedRejectsNegativeCursor(t *testing.T) {
	t.Parallel()

	app := newFeedTestApp(t, &fakeFeedReader{})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/shipments/feed?since=-1", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetFeedSurfacesReaderError(t *testing.T) {
	t.Parallel()

	reader := &fakeFeedReader{
		readFn: func(ctx context.Context, sinceSequence int64, limit int) ([]domain.StatusFeedEntry, error) {
			return nil, errors.New("connection refused")
		},
	}
	app := newFeedTestApp(t, reader)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/shipments/feed", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}
