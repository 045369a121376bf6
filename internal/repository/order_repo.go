package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository is the persistence boundary of the pipeline: orders,
// idempotent status transitions, and the globally sequenced status feed.
//
// Mark* transitions are idempotent (re-applying the current status is a
// no-op) and monotonic (terminal states never revert); violating transitions
// fail with domain.ErrInvalidTransition. When a transition carries a feed
// entry, both commit in one transaction.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.NotificationOrder) (*domain.NotificationOrder, error)
	GetByID(ctx context.Context, id string) (*domain.NotificationOrder, error)
	GetByIdempotencyKey(ctx context.Context, creator, idempotencyKey string) (*domain.NotificationOrder, error)
	MarkProcessing(ctx context.Context, orderID string) error
	MarkCompleted(ctx context.Context, orderID string, entry *domain.StatusFeedEntry) error
	MarkSendConditionNotMet(ctx context.Context, orderID string, entry *domain.StatusFeedEntry) error
	AppendStatusFeedEntry(ctx context.Context, entry *domain.StatusFeedEntry) (bool, error)
	ReadStatusFeed(ctx context.Context, sinceSequence int64, limit int) ([]domain.StatusFeedEntry, error)
}

type GormOrderRepo struct {
	db *gorm.DB
}

func NewGormOrderRepo(db *gorm.DB) *GormOrderRepo {
	return &GormOrderRepo{db: db}
}

// Create persists the order with its recipients and templates in one
// transaction. A duplicate (creator, idempotency key) pair resolves to the
// already persisted order instead of surfacing a conflict.
func (r *GormOrderRepo) Create(ctx context.Context, order *domain.NotificationOrder) (*domain.NotificationOrder, error) {
	if order == nil {
		return nil, fmt.Errorf("%w: order is required", domain.ErrValidation)
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(orderModelFromDomain(order)).Error; err != nil {
			return err
		}

		for _, recipient := range order.Recipients {
			model := OrderRecipientModel{
				ID:      uuid.NewString(),
				OrderID: order.ID,
				Kind:    recipient.Kind,
				Value:   recipient.Value,
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		}

		for _, template := range order.Templates {
			model := OrderTemplateModel{
				ID:      uuid.NewString(),
				OrderID: order.ID,
				Channel: template.Channel,
				Sender:  template.Sender,
				Subject: template.Subject,
				Body:    template.Body,
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err == nil {
		return order, nil
	}

	if order.IdempotencyKey != nil && isUniqueViolationError(err) {
		existing, lookupErr := r.GetByIdempotencyKey(ctx, order.Creator, *order.IdempotencyKey)
		if lookupErr != nil {
			return nil, fmt.Errorf("%w: failed to load existing order: %v", domain.ErrDuplicateIdempotencyKey, lookupErr)
		}
		return existing, nil
	}

	return nil, err
}

func (r *GormOrderRepo) GetByID(ctx context.Context, id string) (*domain.NotificationOrder, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return r.loadOrderRows(ctx, r.db, &model)
}

func (r *GormOrderRepo) GetByIdempotencyKey(ctx context.Context, creator, idempotencyKey string) (*domain.NotificationOrder, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).
		Where("creator = ? AND idempotency_key = ?", creator, idempotencyKey).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return r.loadOrderRows(ctx, r.db, &model)
}

func (r *GormOrderRepo) loadOrderRows(ctx context.Context, db *gorm.DB, model *OrderModel) (*domain.NotificationOrder, error) {
	var recipients []OrderRecipientModel
	if err := db.WithContext(ctx).Where("order_id = ?", model.ID).Find(&recipients).Error; err != nil {
		return nil, err
	}

	var templates []OrderTemplateModel
	if err := db.WithContext(ctx).Where("order_id = ?", model.ID).Find(&templates).Error; err != nil {
		return nil, err
	}

	return orderModelToDomain(model, recipients, templates), nil
}

func (r *GormOrderRepo) MarkProcessing(ctx context.Context, orderID string) error {
	return r.transition(ctx, orderID, domain.OrderStatusProcessing, nil)
}

func (r *GormOrderRepo) MarkCompleted(ctx context.Context, orderID string, entry *domain.StatusFeedEntry) error {
	return r.transition(ctx, orderID, domain.OrderStatusCompleted, entry)
}

func (r *GormOrderRepo) MarkSendConditionNotMet(ctx context.Context, orderID string, entry *domain.StatusFeedEntry) error {
	return r.transition(ctx, orderID, domain.OrderStatusSendConditionNotMet, entry)
}

// transition locks the order row, enforces the monotonic status machine, and
// appends the accompanying feed entry inside the same transaction.
func (r *GormOrderRepo) transition(ctx context.Context, orderID string, target domain.OrderStatus, entry *domain.StatusFeedEntry) error {
	if strings.TrimSpace(orderID) == "" {
		return fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model OrderModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		if !model.Status.CanTransitionTo(target) {
			return fmt.Errorf("%w: %s -> %s for order %s", domain.ErrInvalidTransition, model.Status, target, orderID)
		}

		// Re-applying the current status is a no-op; redelivered events may
		// still carry a feed entry, which the dedup below absorbs.
		if model.Status != target {
			if err := tx.Model(&OrderModel{}).
				Where("id = ?", orderID).
				Update("status", target).Error; err != nil {
				return err
			}
		}

		if entry != nil {
			if _, err := appendFeedEntryTx(tx, entry); err != nil {
				return err
			}
		}

		return nil
	})
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
