package enums

import "fmt"

// IntegrationMode describes how a supplier delivers its inventory feed.
type IntegrationMode string

const (
	IntegrationModePull IntegrationMode = "pull"
	IntegrationModePush IntegrationMode = "push"
	IntegrationModeCSV  IntegrationMode = "csv"
)

var validIntegrationModes = []IntegrationMode{
	IntegrationModePull,
	IntegrationModePush,
	IntegrationModeCSV,
}

// String implements fmt.Stringer.
func (m IntegrationMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known IntegrationMode.
func (m IntegrationMode) IsValid() bool {
	for _, candidate := range validIntegrationModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseIntegrationMode converts raw input into an IntegrationMode.
func ParseIntegrationMode(value string) (IntegrationMode, error) {
	for _, candidate := range validIntegrationModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid integration mode %q", value)
}
