package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
)

// Order is a seat reservation plus its payment lifecycle. It is
// created pending with seats already decremented; paid keeps them,
// failed restores them exactly once.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	InventoryItemID uuid.UUID           `gorm:"column:inventory_item_id;type:uuid;not null"`
	CustomerID      uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	ContactName     string              `gorm:"column:contact_name;not null"`
	ContactEmail    string              `gorm:"column:contact_email;not null"`
	ContactPhone    string              `gorm:"column:contact_phone"`
	PassportNumber  *string             `gorm:"column:passport_number"`
	VisaNumber      *string             `gorm:"column:visa_number"`
	Seats           int                 `gorm:"column:seats;not null"`
	TotalPriceMinor int64               `gorm:"column:total_price_minor;not null"`
	Currency        enums.Currency      `gorm:"column:currency;type:text;not null;default:'TRY'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	// TransactionID starts as the reference handed to the provider and
	// is overwritten with the provider's transaction id on settlement.
	TransactionID string     `gorm:"column:transaction_id;not null"`
	PNRCode       string     `gorm:"column:pnr_code;not null;uniqueIndex:ux_orders_pnr_code"`
	PaidAt        *time.Time `gorm:"column:paid_at"`
	FailedAt      *time.Time `gorm:"column:failed_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
