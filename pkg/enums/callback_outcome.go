package enums

import (
	"fmt"
	"strings"
)

// CallbackOutcome is the result the payment provider reports for a
// transaction.
type CallbackOutcome string

const (
	CallbackOutcomeSuccess   CallbackOutcome = "success"
	CallbackOutcomeFailed    CallbackOutcome = "failed"
	CallbackOutcomeCancelled CallbackOutcome = "cancelled"
)

var validCallbackOutcomes = []CallbackOutcome{
	CallbackOutcomeSuccess,
	CallbackOutcomeFailed,
	CallbackOutcomeCancelled,
}

// String implements fmt.Stringer.
func (c CallbackOutcome) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CallbackOutcome.
func (c CallbackOutcome) IsValid() bool {
	for _, candidate := range validCallbackOutcomes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCallbackOutcome converts raw provider input into a CallbackOutcome.
func ParseCallbackOutcome(value string) (CallbackOutcome, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validCallbackOutcomes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid callback outcome %q", value)
}
