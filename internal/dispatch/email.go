package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultGatewayTimeout = 10 * time.Second

type emailSendRequest struct {
	To        string `json:"to"`
	From      string `json:"from"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Reference string `json:"reference"`
}

// EmailGatewayClient dispatches instant emails over the gateway's
// /instantmessage/send endpoint.
type EmailGatewayClient struct {
	client  *resty.Client
	baseURL string
}

func NewEmailGatewayClient(baseURL string) (*EmailGatewayClient, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)

	return NewEmailGatewayClientWithClient(baseURL, client)
}

func NewEmailGatewayClientWithClient(baseURL string, client *resty.Client) (*EmailGatewayClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("email gateway url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid email gateway url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &EmailGatewayClient{
		client:  client,
		baseURL: trimmed,
	}, nil
}

// Send performs exactly one outbound gateway call. Only contract violations
// surface as errors; gateway and transport failures become an unsuccessful
// SendResult so retry policy stays with the caller.
func (c *EmailGatewayClient) Send(ctx context.Context, email InstantEmail) (SendResult, error) {
	if c == nil || c.client == nil {
		return SendResult{}, fmt.Errorf("email gateway client is not initialized")
	}
	if err := email.Validate(); err != nil {
		return SendResult{}, err
	}

	reqBody := emailSendRequest{
		To:        email.Recipient,
		From:      email.FromAddress,
		Subject:   email.Subject,
		Body:      email.Body,
		Reference: email.OrderID,
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(c.baseURL + "/instantmessage/send")
	if err != nil {
		return SendResult{
			Success:      false,
			ErrorDetails: fmt.Sprintf("email gateway request failed: %v", err),
		}, nil
	}

	return resultFromResponse(response), nil
}

func resultFromResponse(response *resty.Response) SendResult {
	statusCode := response.StatusCode()
	body := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return SendResult{
			Success:    true,
			StatusCode: statusCode,
			GatewayID:  gatewayMessageID(response),
		}
	}

	return SendResult{
		Success:      false,
		StatusCode:   statusCode,
		ErrorDetails: gatewayErrorDetails(statusCode, body),
	}
}

func gatewayErrorDetails(statusCode int, body string) string {
	base := fmt.Sprintf("gateway returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func gatewayMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
