package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
	"gorm.io/datatypes"
)

// OrderModel is the persistence model for the orders table.
type OrderModel struct {
	ID                string             `gorm:"type:uuid;primaryKey"`
	Creator           string             `gorm:"type:varchar(255);not null"`
	SendersReference  string             `gorm:"type:varchar(255)"`
	IdempotencyKey    *string            `gorm:"type:varchar(255)"`
	Channel           domain.Channel     `gorm:"type:varchar(10);not null"`
	ConditionEndpoint *string            `gorm:"type:text"`
	RequestedSendTime time.Time          `gorm:"not null"`
	Status            domain.OrderStatus `gorm:"type:varchar(30);not null"`
	TimeToLiveSeconds int                `gorm:"not null;default:172800"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderRecipientModel is the persistence model for order_recipients.
type OrderRecipientModel struct {
	ID      string               `gorm:"type:uuid;primaryKey"`
	OrderID string               `gorm:"type:uuid;not null;index"`
	Kind    domain.RecipientKind `gorm:"type:varchar(30);not null"`
	Value   string               `gorm:"type:varchar(255);not null"`
}

func (OrderRecipientModel) TableName() string {
	return "order_recipients"
}

// OrderTemplateModel is the persistence model for order_templates.
type OrderTemplateModel struct {
	ID      string         `gorm:"type:uuid;primaryKey"`
	OrderID string         `gorm:"type:uuid;not null;index"`
	Channel domain.Channel `gorm:"type:varchar(10);not null"`
	Sender  string         `gorm:"type:varchar(255)"`
	Subject string         `gorm:"type:varchar(255)"`
	Body    string         `gorm:"type:text;not null"`
}

func (OrderTemplateModel) TableName() string {
	return "order_templates"
}

// StatusFeedModel is the persistence model for the append-only status feed.
// SequenceNumber is a BIGSERIAL: the database assigns the next global value
// atomically inside the inserting transaction.
type StatusFeedModel struct {
	SequenceNumber   int64                  `gorm:"primaryKey;autoIncrement"`
	OrderID          string                 `gorm:"type:uuid;not null;index"`
	ShipmentID       string                 `gorm:"type:uuid;not null"`
	SendersReference string                 `gorm:"type:varchar(255)"`
	ShipmentType     string                 `gorm:"type:varchar(30);not null"`
	Status           domain.LifecycleStatus `gorm:"type:varchar(40);not null"`
	Recipients       datatypes.JSON         `gorm:"type:jsonb"`
	LastUpdated      time.Time              `gorm:"not null"`
}

func (StatusFeedModel) TableName() string {
	return "status_feed"
}

// RecipientStatusModel projects the most recent canonical status per
// (order, destination). It is maintained in the same transaction as feed
// appends and backs the redelivery dedup check.
type RecipientStatusModel struct {
	OrderID     string                 `gorm:"type:uuid;primaryKey"`
	Destination string                 `gorm:"type:varchar(255);primaryKey"`
	Channel     domain.Channel         `gorm:"type:varchar(10);not null"`
	Status      domain.LifecycleStatus `gorm:"type:varchar(40);not null"`
	UpdatedAt   time.Time
}

func (RecipientStatusModel) TableName() string {
	return "recipient_status"
}

func orderModelFromDomain(o *domain.NotificationOrder) *OrderModel {
	if o == nil {
		return nil
	}

	return &OrderModel{
		ID:                o.ID,
		Creator:           o.Creator,
		SendersReference:  o.SendersReference,
		IdempotencyKey:    o.IdempotencyKey,
		Channel:           o.Channel,
		ConditionEndpoint: o.ConditionEndpoint,
		RequestedSendTime: o.RequestedSendTime,
		Status:            o.Status,
		TimeToLiveSeconds: o.TimeToLiveSeconds,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func orderModelToDomain(m *OrderModel, recipients []OrderRecipientModel, templates []OrderTemplateModel) *domain.NotificationOrder {
	if m == nil {
		return nil
	}

	order := &domain.NotificationOrder{
		ID:                m.ID,
		Creator:           m.Creator,
		SendersReference:  m.SendersReference,
		IdempotencyKey:    m.IdempotencyKey,
		Channel:           m.Channel,
		ConditionEndpoint: m.ConditionEndpoint,
		RequestedSendTime: m.RequestedSendTime,
		Status:            m.Status,
		TimeToLiveSeconds: m.TimeToLiveSeconds,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}

	for _, r := range recipients {
		order.Recipients = append(order.Recipients, domain.Recipient{Kind: r.Kind, Value: r.Value})
	}
	for _, t := range templates {
		order.Templates = append(order.Templates, domain.Template{
			Channel: t.Channel,
			Sender:  t.Sender,
			Subject: t.Subject,
			Body:    t.Body,
		})
	}

	return order
}

func feedModelFromDomain(e *domain.StatusFeedEntry) (*StatusFeedModel, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: feed entry is required", domain.ErrValidation)
	}

	recipients, err := json.Marshal(e.Recipients)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feed recipients: %w", err)
	}

	return &StatusFeedModel{
		SequenceNumber:   e.SequenceNumber,
		OrderID:          e.OrderID,
		ShipmentID:       e.ShipmentID,
		SendersReference: e.SendersReference,
		ShipmentType:     e.ShipmentType,
		Status:           e.Status,
		Recipients:       datatypes.JSON(recipients),
		LastUpdated:      e.LastUpdated,
	}, nil
}

func feedModelToDomain(m *StatusFeedModel) (*domain.StatusFeedEntry, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: feed row is required", domain.ErrValidation)
	}

	var recipients []domain.FeedRecipient
	if len(m.Recipients) > 0 {
		if err := json.Unmarshal(m.Recipients, &recipients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal feed recipients: %w", err)
		}
	}

	return &domain.StatusFeedEntry{
		SequenceNumber:   m.SequenceNumber,
		OrderID:          m.OrderID,
		ShipmentID:       m.ShipmentID,
		SendersReference: m.SendersReference,
		ShipmentType:     m.ShipmentType,
		Status:           m.Status,
		Recipients:       recipients,
		LastUpdated:      m.LastUpdated,
	}, nil
}
