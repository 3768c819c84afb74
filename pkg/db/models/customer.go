package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the minimal guest identity provisioned on first booking
// for a contact email. Email is the natural key.
type Customer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex:ux_customers_email"`
	FullName  string    `gorm:"column:full_name;not null"`
	Phone     string    `gorm:"column:phone"`
	Guest     bool      `gorm:"column:guest;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
