package enums

import (
	"fmt"
	"strings"
)

// Category classifies a bookable inventory line.
type Category string

const (
	CategoryTour   Category = "tour"
	CategoryBus    Category = "bus"
	CategoryFlight Category = "flight"
	CategoryShip   Category = "ship"
)

var validCategories = []Category{
	CategoryTour,
	CategoryBus,
	CategoryFlight,
	CategoryShip,
}

// Supplier feeds are not consistent about transport naming; map the
// aliases seen in the wild onto the canonical categories.
var categoryAliases = map[string]Category{
	"coach":    CategoryBus,
	"autobus":  CategoryBus,
	"plane":    CategoryFlight,
	"air":      CategoryFlight,
	"ferry":    CategoryShip,
	"boat":     CategoryShip,
	"activity": CategoryTour,
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Category.
func (c Category) IsValid() bool {
	for _, candidate := range validCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCategory converts raw input into a Category, accepting known aliases.
func ParseCategory(value string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validCategories {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	if mapped, ok := categoryAliases[normalized]; ok {
		return mapped, nil
	}
	return "", fmt.Errorf("invalid category %q", value)
}
