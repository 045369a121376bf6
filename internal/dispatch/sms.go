package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
	"github.com/go-resty/resty/v2"
)

type smsSendRequest struct {
	To         string `json:"to"`
	Sender     string `json:"sender"`
	Message    string `json:"message"`
	Reference  string `json:"reference"`
	TimeToLive int    `json:"timeToLive"`
}

// SmsGatewayClient dispatches short messages over the gateway's
// /instantmessage/send endpoint. Recipient numbers are normalized to
// international form before they enter the payload.
type SmsGatewayClient struct {
	client  *resty.Client
	baseURL string
}

func NewSmsGatewayClient(baseURL string) (*SmsGatewayClient, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)

	return NewSmsGatewayClientWithClient(baseURL, client)
}

func NewSmsGatewayClientWithClient(baseURL string, client *resty.Client) (*SmsGatewayClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("sms gateway url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid sms gateway url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &SmsGatewayClient{
		client:  client,
		baseURL: trimmed,
	}, nil
}

// Send performs exactly one outbound gateway call. Only contract violations
// surface as errors; gateway and transport failures become an unsuccessful
// SendResult so retry policy stays with the caller.
func (c *SmsGatewayClient) Send(ctx context.Context, message ShortMessage) (SendResult, error) {
	if c == nil || c.client == nil {
		return SendResult{}, fmt.Errorf("sms gateway client is not initialized")
	}
	if err := message.Validate(); err != nil {
		return SendResult{}, err
	}

	reqBody := smsSendRequest{
		To:         domain.NormalizeMobileNumber(message.Recipient),
		Sender:     message.Sender,
		Message:    message.Message,
		Reference:  message.OrderID,
		TimeToLive: message.TimeToLiveSeconds,
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(c.baseURL + "/instantmessage/send")
	if err != nil {
		return SendResult{
			Success:      false,
			ErrorDetails: fmt.Sprintf("sms gateway request failed: %v", err),
		}, nil
	}

	return resultFromResponse(response), nil
}
