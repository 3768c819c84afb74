package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
)

// Supplier is an inventory source. Credential fields hold sealed
// ciphertext (pkg/security), never plaintext. Deactivating a supplier
// stops new offer ingestion but leaves existing inventory bookable.
type Supplier struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Name            string                `gorm:"column:name;not null"`
	IntegrationMode enums.IntegrationMode `gorm:"column:integration_mode;type:text;not null;default:'csv'"`
	APIKeySealed    []byte                `gorm:"column:api_key_sealed"`
	APISecretSealed []byte                `gorm:"column:api_secret_sealed"`
	WebhookSecret   string                `gorm:"column:webhook_secret;not null"`
	Active          bool                  `gorm:"column:active;not null;default:true"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
