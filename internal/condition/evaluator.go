package condition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultCheckTimeout = 10 * time.Second

// EvaluationResult classifies one send-condition check.
// SendConditionMet is tri-state: nil means the check failed and the outcome
// is unknown. RetryNeeded is set only for transient failures; a definitive
// false outcome never asks for a retry.
type EvaluationResult struct {
	SendConditionMet *bool
	RetryNeeded      bool
}

// Met reports a definitive positive outcome.
func (r EvaluationResult) Met() bool {
	return r.SendConditionMet != nil && *r.SendConditionMet
}

// NotMet reports a definitive negative outcome.
func (r EvaluationResult) NotMet() bool {
	return r.SendConditionMet != nil && !*r.SendConditionMet
}

// Evaluator decides whether a gated order may proceed to dispatch.
type Evaluator interface {
	Evaluate(ctx context.Context, endpoint string) (EvaluationResult, error)
}

// conditionResponse is the accepted webhook response body. A bare JSON
// boolean is accepted as well.
type conditionResponse struct {
	SendNotification *bool `json:"sendNotification"`
}

// WebhookEvaluator calls the order-supplied condition endpoint with a
// bounded timeout and classifies the response. It holds no retry state;
// the attempt counter lives on the message envelope.
type WebhookEvaluator struct {
	client *resty.Client
}

func NewWebhookEvaluator(timeout time.Duration) *WebhookEvaluator {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return &WebhookEvaluator{client: client}
}

func NewWebhookEvaluatorWithClient(client *resty.Client) (*WebhookEvaluator, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultCheckTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookEvaluator{client: client}, nil
}

// Evaluate returns an error only for contract violations (blank or invalid
// endpoint). Transport failures and non-2xx responses are folded into the
// result classification.
func (e *WebhookEvaluator) Evaluate(ctx context.Context, endpoint string) (EvaluationResult, error) {
	if e == nil || e.client == nil {
		return EvaluationResult{}, fmt.Errorf("evaluator is not initialized")
	}

	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return EvaluationResult{}, fmt.Errorf("condition endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return EvaluationResult{}, fmt.Errorf("invalid condition endpoint: %w", err)
	}

	response, err := e.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(trimmed)
	if err != nil {
		// A canceled context is shutdown, not a dependency failure; surface
		// it so the message is redelivered without consuming an attempt.
		if errors.Is(err, context.Canceled) {
			return EvaluationResult{}, fmt.Errorf("condition check aborted: %w", err)
		}
		// Timeouts and connection errors are transient.
		return EvaluationResult{RetryNeeded: true}, nil
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusInternalServerError {
		return EvaluationResult{RetryNeeded: true}, nil
	}

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		met := parseConditionBody(response.Body())
		return EvaluationResult{SendConditionMet: &met}, nil
	}

	// Non-transient client error: treated as a definitive not-met outcome.
	notMet := false
	return EvaluationResult{SendConditionMet: &notMet}, nil
}

func parseConditionBody(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))

	var bare bool
	if err := json.Unmarshal([]byte(trimmed), &bare); err == nil {
		return bare
	}

	var wrapped conditionResponse
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err == nil && wrapped.SendNotification != nil {
		return *wrapped.SendNotification
	}

	return strings.EqualFold(trimmed, "true")
}
