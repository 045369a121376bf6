package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus represents the processing state of a notification order.
type OrderStatus string

const (
	OrderStatusRegistered          OrderStatus = "REGISTERED"
	OrderStatusProcessing          OrderStatus = "PROCESSING"
	OrderStatusCompleted           OrderStatus = "COMPLETED"
	OrderStatusSendConditionNotMet OrderStatus = "SEND_CONDITION_NOT_MET"
	OrderStatusCancelled           OrderStatus = "CANCELLED"
)

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusRegistered, OrderStatusProcessing, OrderStatusCompleted,
		OrderStatusSendConditionNotMet, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status is final. Processing is the only
// non-terminal post-intake state.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusSendConditionNotMet, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to target is a legal,
// monotonic transition. Re-applying the current status is allowed so that
// redelivered events stay no-ops.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s == target {
		return true
	}
	if s.IsTerminal() {
		return false
	}

	switch s {
	case OrderStatusRegistered:
		return target == OrderStatusProcessing ||
			target == OrderStatusSendConditionNotMet ||
			target == OrderStatusCancelled
	case OrderStatusProcessing:
		return target == OrderStatusCompleted ||
			target == OrderStatusSendConditionNotMet ||
			target == OrderStatusCancelled
	}
	return false
}

func ParseOrderStatusFromString(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid order status %q", ErrValidation, s)
	}
	return st, nil
}

// Channel represents the delivery channel.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// Template holds the message content for one channel of an order.
type Template struct {
	Channel Channel
	Sender  string
	Subject string
	Body    string
}

func (t Template) Validate() error {
	if !t.Channel.IsValid() {
		return fmt.Errorf("%w: invalid template channel %q", ErrValidation, t.Channel)
	}
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("%w: template body is required", ErrValidation)
	}
	if t.Channel == ChannelEmail && strings.TrimSpace(t.Subject) == "" {
		return fmt.Errorf("%w: email template subject is required", ErrValidation)
	}
	return nil
}

// NotificationOrder is the core entity: a request to deliver notifications to
// one or more recipients over one or more channels. Read-only after intake
// except for its processing status.
type NotificationOrder struct {
	ID                string  `gorm:"type:uuid;primaryKey"`
	Creator           string  `gorm:"type:varchar(255);not null"`
	SendersReference  string  `gorm:"type:varchar(255)"`
	IdempotencyKey    *string `gorm:"type:varchar(255)"`
	Channel           Channel `gorm:"type:varchar(10);not null"`
	ConditionEndpoint *string `gorm:"type:text"`
	RequestedSendTime time.Time
	Status            OrderStatus `gorm:"type:varchar(30);not null"`
	Recipients        []Recipient `gorm:"-"`
	Templates         []Template  `gorm:"-"`
	TimeToLiveSeconds int         `gorm:"not null;default:172800"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (o *NotificationOrder) Validate() error {
	if strings.TrimSpace(o.Creator) == "" {
		return fmt.Errorf("%w: creator is required", ErrValidation)
	}
	if !o.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, o.Channel)
	}
	if len(o.Recipients) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrValidation)
	}
	for _, r := range o.Recipients {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	if len(o.Templates) == 0 {
		return fmt.Errorf("%w: at least one template is required", ErrValidation)
	}
	for _, t := range o.Templates {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	if o.TemplateFor(o.Channel) == nil {
		return fmt.Errorf("%w: no template for channel %q", ErrValidation, o.Channel)
	}
	if o.ConditionEndpoint != nil && strings.TrimSpace(*o.ConditionEndpoint) == "" {
		return fmt.Errorf("%w: condition endpoint must not be blank", ErrValidation)
	}
	return nil
}

// TemplateFor returns the template registered for the given channel, or nil.
func (o *NotificationOrder) TemplateFor(channel Channel) *Template {
	for i := range o.Templates {
		if o.Templates[i].Channel == channel {
			return &o.Templates[i]
		}
	}
	return nil
}

// HasSendCondition reports whether dispatch is gated on an external webhook.
func (o *NotificationOrder) HasSendCondition() bool {
	return o.ConditionEndpoint != nil && strings.TrimSpace(*o.ConditionEndpoint) != ""
}
