package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
)

// Offer is a supplier's raw inventory line, deduplicated on the
// (supplier_id, vendor_offer_id) pair. Re-ingesting the same pair
// updates the row in place.
type Offer struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID      uuid.UUID         `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:ux_offers_supplier_vendor,priority:1"`
	VendorOfferID   string            `gorm:"column:vendor_offer_id;not null;uniqueIndex:ux_offers_supplier_vendor,priority:2"`
	Title           string            `gorm:"column:title;not null"`
	Category        enums.Category    `gorm:"column:category;type:text;not null"`
	Origin          string            `gorm:"column:origin;not null"`
	Destination     string            `gorm:"column:destination;not null"`
	DepartsAt       time.Time         `gorm:"column:departs_at;not null"`
	ReturnsAt       *time.Time        `gorm:"column:returns_at"`
	PriceMinor      int64             `gorm:"column:price_minor;not null"`
	Currency        enums.Currency    `gorm:"column:currency;type:text;not null;default:'TRY'"`
	SeatsTotal      int               `gorm:"column:seats_total;not null;default:0"`
	RequiresPassport bool             `gorm:"column:requires_passport;not null;default:false"`
	RequiresVisa    bool              `gorm:"column:requires_visa;not null;default:false"`
	RawPayload      json.RawMessage   `gorm:"column:raw_payload;type:jsonb"`
	Status          enums.OfferStatus `gorm:"column:status;type:text;not null;default:'new'"`
	// InventoryItemID is the promotion back-reference. It is claimed
	// with a conditional update and set at most once.
	InventoryItemID     *uuid.UUID `gorm:"column:inventory_item_id;type:uuid"`
	ImportedToInventory bool       `gorm:"column:imported_to_inventory;not null;default:false"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
