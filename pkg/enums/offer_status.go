package enums

import "fmt"

// OfferStatus tracks the ingestion lifecycle of a supplier offer.
type OfferStatus string

const (
	OfferStatusNew     OfferStatus = "new"
	OfferStatusUpdated OfferStatus = "updated"
	OfferStatusExpired OfferStatus = "expired"
)

var validOfferStatuses = []OfferStatus{
	OfferStatusNew,
	OfferStatusUpdated,
	OfferStatusExpired,
}

// String implements fmt.Stringer.
func (o OfferStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OfferStatus.
func (o OfferStatus) IsValid() bool {
	for _, candidate := range validOfferStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOfferStatus converts raw input into an OfferStatus.
func ParseOfferStatus(value string) (OfferStatus, error) {
	for _, candidate := range validOfferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer status %q", value)
}
