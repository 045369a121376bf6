package domain

import "strings"

// LifecycleStatus is the canonical delivery lifecycle stage used in the
// status feed regardless of which channel or gateway reported it.
type LifecycleStatus string

const (
	LifecycleNew                         LifecycleStatus = "New"
	LifecycleSending                     LifecycleStatus = "Sending"
	LifecycleAccepted                    LifecycleStatus = "Accepted"
	LifecycleDelivered                   LifecycleStatus = "Delivered"
	LifecycleCompleted                   LifecycleStatus = "Completed"
	LifecycleFailed                      LifecycleStatus = "Failed"
	LifecycleFailedRecipientReserved     LifecycleStatus = "Failed_RecipientReserved"
	LifecycleFailedRecipientNotReachable LifecycleStatus = "Failed_RecipientNotReachable"
	LifecycleFailedInvalidRecipient      LifecycleStatus = "Failed_InvalidRecipient"
	LifecycleFailedBounced               LifecycleStatus = "Failed_Bounced"
	LifecycleFailedExpired               LifecycleStatus = "Failed_Expired"
	LifecycleUnknown                     LifecycleStatus = "Unknown"
)

func (s LifecycleStatus) String() string { return string(s) }

// IsTerminal reports whether the stage is a final delivery outcome.
func (s LifecycleStatus) IsTerminal() bool {
	switch s {
	case LifecycleDelivered, LifecycleCompleted, LifecycleFailed, LifecycleFailedRecipientReserved,
		LifecycleFailedRecipientNotReachable, LifecycleFailedInvalidRecipient,
		LifecycleFailedBounced, LifecycleFailedExpired:
		return true
	}
	return false
}

// emailStatusMap translates the email gateway's status vocabulary.
var emailStatusMap = map[string]LifecycleStatus{
	"new":                   LifecycleNew,
	"sending":               LifecycleSending,
	"succeeded":             LifecycleAccepted,
	"delivered":             LifecycleDelivered,
	"failed":                LifecycleFailed,
	"failed_bounced":        LifecycleFailedBounced,
	"failed_filteredspam":   LifecycleFailedBounced,
	"failed_quarantined":    LifecycleFailedBounced,
	"failed_invalidformat":  LifecycleFailedInvalidRecipient,
	"failed_suppressed":     LifecycleFailedInvalidRecipient,
	"failed_recipientreserved": LifecycleFailedRecipientReserved,
	"failed_transienterror":    LifecycleFailed,
}

// smsStatusMap translates the SMS gateway's status vocabulary.
var smsStatusMap = map[string]LifecycleStatus{
	"new":                      LifecycleNew,
	"sending":                  LifecycleSending,
	"accepted":                 LifecycleAccepted,
	"delivered":                LifecycleDelivered,
	"failed":                   LifecycleFailed,
	"failed_barredreceiver":    LifecycleFailedInvalidRecipient,
	"failed_invalidrecipient":  LifecycleFailedInvalidRecipient,
	"failed_deleted":           LifecycleFailed,
	"failed_expired":           LifecycleFailedExpired,
	"failed_undelivered":       LifecycleFailed,
	"failed_recipientreserved": LifecycleFailedRecipientReserved,
	"failed_recipientnotidentified": LifecycleFailedRecipientNotReachable,
}

// MapEmailStatus translates an email gateway status to the canonical stage.
// Total: unrecognized input maps to LifecycleUnknown, never an error.
func MapEmailStatus(gatewayStatus string) LifecycleStatus {
	return lookupStatus(emailStatusMap, gatewayStatus)
}

// MapSmsStatus translates an SMS gateway status to the canonical stage.
// Total: unrecognized input maps to LifecycleUnknown, never an error.
func MapSmsStatus(gatewayStatus string) LifecycleStatus {
	return lookupStatus(smsStatusMap, gatewayStatus)
}

// MapChannelStatus dispatches to the channel-specific mapper.
func MapChannelStatus(channel Channel, gatewayStatus string) LifecycleStatus {
	switch channel {
	case ChannelEmail:
		return MapEmailStatus(gatewayStatus)
	case ChannelSMS:
		return MapSmsStatus(gatewayStatus)
	}
	return LifecycleUnknown
}

func lookupStatus(table map[string]LifecycleStatus, gatewayStatus string) LifecycleStatus {
	normalized := strings.ToLower(strings.TrimSpace(gatewayStatus))
	if stage, ok := table[normalized]; ok {
		return stage
	}
	return LifecycleUnknown
}
