package domain

import (
	"fmt"
	"strings"
)

// RecipientKind is the discriminator for the closed set of recipient
// specifier variants.
type RecipientKind string

const (
	RecipientKindEmailAddress       RecipientKind = "EMAIL_ADDRESS"
	RecipientKindMobileNumber       RecipientKind = "MOBILE_NUMBER"
	RecipientKindNationalIdentity   RecipientKind = "NATIONAL_IDENTITY_NUMBER"
	RecipientKindOrganizationNumber RecipientKind = "ORGANIZATION_NUMBER"
)

func (k RecipientKind) String() string { return string(k) }

func (k RecipientKind) IsValid() bool {
	switch k {
	case RecipientKindEmailAddress, RecipientKindMobileNumber,
		RecipientKindNationalIdentity, RecipientKindOrganizationNumber:
		return true
	}
	return false
}

func ParseRecipientKindFromString(s string) (RecipientKind, error) {
	k := RecipientKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid recipient kind %q", ErrValidation, s)
	}
	return k, nil
}

// Recipient is a tagged recipient specifier: Kind selects how Value is
// interpreted (a concrete address, or an identity that needs contact lookup).
type Recipient struct {
	Kind  RecipientKind `gorm:"type:varchar(30);not null"`
	Value string        `gorm:"type:varchar(255);not null"`
}

func (r Recipient) Validate() error {
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: invalid recipient kind %q", ErrValidation, r.Kind)
	}
	if strings.TrimSpace(r.Value) == "" {
		return fmt.Errorf("%w: recipient value is required", ErrValidation)
	}
	return nil
}

// IsDirect reports whether the recipient already carries a concrete address
// and needs no contact lookup.
func (r Recipient) IsDirect() bool {
	return r.Kind == RecipientKindEmailAddress || r.Kind == RecipientKindMobileNumber
}

// ContactPoint is a recipient resolved to concrete addresses. Reserved means
// the person has opted out of digital communication and must not be
// dispatched to.
type ContactPoint struct {
	EmailAddress string
	MobileNumber string
	Reserved     bool
}

// AddressFor returns the concrete address for the channel, empty if none.
func (c ContactPoint) AddressFor(channel Channel) string {
	switch channel {
	case ChannelEmail:
		return c.EmailAddress
	case ChannelSMS:
		return c.MobileNumber
	}
	return ""
}
