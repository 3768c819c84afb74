package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
)

// InventoryItem is the canonical bookable unit. SeatsLeft is mutated
// only through conditional updates in the booking and payments
// packages; 0 <= seats_left <= seats_total holds at all times and is
// backed by a CHECK constraint.
type InventoryItem struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID       *uuid.UUID     `gorm:"column:supplier_id;type:uuid"`
	VendorOfferID    string         `gorm:"column:vendor_offer_id"`
	Title            string         `gorm:"column:title;not null"`
	Category         enums.Category `gorm:"column:category;type:text;not null"`
	Origin           string         `gorm:"column:origin;not null"`
	Destination      string         `gorm:"column:destination;not null"`
	DepartsAt        time.Time      `gorm:"column:departs_at;not null"`
	ReturnsAt        *time.Time     `gorm:"column:returns_at"`
	PriceMinor       int64          `gorm:"column:price_minor;not null"`
	Currency         enums.Currency `gorm:"column:currency;type:text;not null;default:'TRY'"`
	SeatsTotal       int            `gorm:"column:seats_total;not null"`
	SeatsLeft        int            `gorm:"column:seats_left;not null"`
	RequiresPassport bool           `gorm:"column:requires_passport;not null;default:false"`
	RequiresVisa     bool           `gorm:"column:requires_visa;not null;default:false"`
	OwnerID          uuid.UUID      `gorm:"column:owner_id;type:uuid;not null"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
