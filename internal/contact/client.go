package contact

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultLookupTimeout = 10 * time.Second

// Resolver turns a recipient specifier into concrete contact addresses.
// Identity-based specifiers (national identity number, organization number)
// require an external lookup; direct addresses resolve locally.
type Resolver interface {
	Resolve(ctx context.Context, recipient domain.Recipient) (domain.ContactPoint, error)
}

type lookupRequest struct {
	NationalIdentityNumber string `json:"nationalIdentityNumber,omitempty"`
	OrganizationNumber     string `json:"organizationNumber,omitempty"`
}

type lookupResponse struct {
	EmailAddress string `json:"emailAddress"`
	MobileNumber string `json:"mobileNumber"`
	Reserved     bool   `json:"reserved"`
}

// ProfileClient resolves identity-based recipients against the profile
// service's contact point lookup.
type ProfileClient struct {
	client  *resty.Client
	baseURL string
}

func NewProfileClient(baseURL string) (*ProfileClient, error) {
	client := resty.New()
	client.SetTimeout(defaultLookupTimeout)
	client.SetRetryCount(0)

	return NewProfileClientWithClient(baseURL, client)
}

func NewProfileClientWithClient(baseURL string, client *resty.Client) (*ProfileClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("profile service url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid profile service url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultLookupTimeout)
	}
	client.SetRetryCount(0)

	return &ProfileClient{
		client:  client,
		baseURL: trimmed,
	}, nil
}

func (c *ProfileClient) Resolve(ctx context.Context, recipient domain.Recipient) (domain.ContactPoint, error) {
	if c == nil || c.client == nil {
		return domain.ContactPoint{}, fmt.Errorf("profile client is not initialized")
	}
	if err := recipient.Validate(); err != nil {
		return domain.ContactPoint{}, err
	}

	switch recipient.Kind {
	case domain.RecipientKindEmailAddress:
		return domain.ContactPoint{EmailAddress: recipient.Value}, nil
	case domain.RecipientKindMobileNumber:
		return domain.ContactPoint{MobileNumber: domain.NormalizeMobileNumber(recipient.Value)}, nil
	}

	reqBody := lookupRequest{}
	switch recipient.Kind {
	case domain.RecipientKindNationalIdentity:
		reqBody.NationalIdentityNumber = recipient.Value
	case domain.RecipientKindOrganizationNumber:
		reqBody.OrganizationNumber = recipient.Value
	}

	var respBody lookupResponse
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		SetResult(&respBody).
		Post(c.baseURL + "/contactpoint/lookup")
	if err != nil {
		return domain.ContactPoint{}, fmt.Errorf("contact lookup for %s failed: %w", recipient.Kind, err)
	}

	statusCode := response.StatusCode()
	if statusCode == http.StatusNotFound {
		return domain.ContactPoint{}, fmt.Errorf("contact lookup: %w", domain.ErrNotFound)
	}
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return domain.ContactPoint{}, fmt.Errorf("contact lookup returned status %d", statusCode)
	}

	return domain.ContactPoint{
		EmailAddress: respBody.EmailAddress,
		MobileNumber: domain.NormalizeMobileNumber(respBody.MobileNumber),
		Reserved:     respBody.Reserved,
	}, nil
}
