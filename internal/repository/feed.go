package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultFeedPageSize = 50
	maxFeedPageSize     = 500
)

// AppendStatusFeedEntry inserts one feed row, letting the database sequence
// assign the next global sequence number atomically. Redelivered events are
// absorbed: when every recipient on the entry already carries the same
// canonical status as the most recent stored status, no row is written.
// Returns whether a row was appended.
func (r *GormOrderRepo) AppendStatusFeedEntry(ctx context.Context, entry *domain.StatusFeedEntry) (bool, error) {
	if entry == nil {
		return false, domain.ErrValidation
	}
	if err := entry.Validate(); err != nil {
		return false, err
	}

	var appended bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		appended, err = appendFeedEntryTx(tx, entry)
		return err
	})
	return appended, err
}

// appendFeedEntryTx runs within the caller's transaction so feed rows stay
// in sync with any status transition they accompany.
func appendFeedEntryTx(tx *gorm.DB, entry *domain.StatusFeedEntry) (bool, error) {
	if entry.LastUpdated.IsZero() {
		entry.LastUpdated = time.Now().UTC()
	}

	fresh, err := filterRedelivered(tx, entry)
	if err != nil {
		return false, err
	}
	if len(entry.Recipients) > 0 && len(fresh) == 0 {
		return false, nil
	}

	// Persist only the recipients that actually changed, so a partial
	// redelivery does not duplicate already recorded truth.
	persisted := *entry
	persisted.Recipients = fresh

	model, err := feedModelFromDomain(&persisted)
	if err != nil {
		return false, err
	}
	model.SequenceNumber = 0

	if err := tx.Create(model).Error; err != nil {
		return false, err
	}
	entry.SequenceNumber = model.SequenceNumber

	for _, recipient := range fresh {
		projection := RecipientStatusModel{
			OrderID:     entry.OrderID,
			Destination: recipient.Destination,
			Channel:     recipient.Type,
			Status:      recipient.Status,
			UpdatedAt:   entry.LastUpdated,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "destination"}},
			DoUpdates: clause.AssignmentColumns([]string{"channel", "status", "updated_at"}),
		}).Create(&projection).Error
		if err != nil {
			return false, err
		}
	}

	return true, nil
}

// filterRedelivered drops recipients whose (orderId, destination, status)
// matches the most recent stored status, so replaying the same delivery
// event produces at most one feed row.
func filterRedelivered(tx *gorm.DB, entry *domain.StatusFeedEntry) ([]domain.FeedRecipient, error) {
	fresh := make([]domain.FeedRecipient, 0, len(entry.Recipients))
	for _, recipient := range entry.Recipients {
		var current RecipientStatusModel
		err := tx.Where("order_id = ? AND destination = ?", entry.OrderID, recipient.Destination).
			First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fresh = append(fresh, recipient)
			continue
		}
		if err != nil {
			return nil, err
		}
		if current.Status != recipient.Status {
			fresh = append(fresh, recipient)
		}
	}
	return fresh, nil
}

// ReadStatusFeed returns committed entries with sequence number greater than
// the cursor, ascending, for polling-based feed consumers.
func (r *GormOrderRepo) ReadStatusFeed(ctx context.Context, sinceSequence int64, limit int) ([]domain.StatusFeedEntry, error) {
	if limit < 1 {
		limit = defaultFeedPageSize
	}
	if limit > maxFeedPageSize {
		limit = maxFeedPageSize
	}

	var models []StatusFeedModel
	err := r.db.WithContext(ctx).
		Where("sequence_number > ?", sinceSequence).
		Order("sequence_number ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]domain.StatusFeedEntry, 0, len(models))
	for i := range models {
		entry, err := feedModelToDomain(&models[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, nil
}
