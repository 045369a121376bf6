package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
)

// InstantEmail is one immutable email dispatch attempt for one recipient.
type InstantEmail struct {
	Recipient   string
	FromAddress string
	Subject     string
	Body        string
	OrderID     string
}

func (e InstantEmail) Validate() error {
	if strings.TrimSpace(e.Recipient) == "" {
		return fmt.Errorf("%w: email recipient is required", domain.ErrValidation)
	}
	if strings.TrimSpace(e.FromAddress) == "" {
		return fmt.Errorf("%w: email from address is required", domain.ErrValidation)
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Errorf("%w: email body is required", domain.ErrValidation)
	}
	if strings.TrimSpace(e.OrderID) == "" {
		return fmt.Errorf("%w: email order id is required", domain.ErrValidation)
	}
	return nil
}

// ShortMessage is one immutable SMS dispatch attempt for one recipient.
// TimeToLiveSeconds is whole seconds, passed through to the gateway
// unmodified.
type ShortMessage struct {
	Recipient         string
	Sender            string
	Message           string
	OrderID           string
	TimeToLiveSeconds int
}

func (m ShortMessage) Validate() error {
	if strings.TrimSpace(m.Recipient) == "" {
		return fmt.Errorf("%w: sms recipient is required", domain.ErrValidation)
	}
	if strings.TrimSpace(m.Sender) == "" {
		return fmt.Errorf("%w: sms sender is required", domain.ErrValidation)
	}
	if strings.TrimSpace(m.Message) == "" {
		return fmt.Errorf("%w: sms message is required", domain.ErrValidation)
	}
	if strings.TrimSpace(m.OrderID) == "" {
		return fmt.Errorf("%w: sms order id is required", domain.ErrValidation)
	}
	if m.TimeToLiveSeconds <= 0 {
		return fmt.Errorf("%w: sms time to live must be positive", domain.ErrValidation)
	}
	return nil
}

// SendResult is the uniform outcome of one dispatch attempt. Ordinary
// gateway failures are carried here, never as errors.
type SendResult struct {
	Success      bool
	StatusCode   int
	GatewayID    string
	ErrorDetails string
}

// EmailDispatcher sends one email per invocation, no internal retry.
type EmailDispatcher interface {
	Send(ctx context.Context, email InstantEmail) (SendResult, error)
}

// SmsDispatcher sends one short message per invocation, no internal retry.
type SmsDispatcher interface {
	Send(ctx context.Context, message ShortMessage) (SendResult, error)
}
