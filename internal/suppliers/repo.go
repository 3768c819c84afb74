package suppliers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
)

// Repository manages persistence for suppliers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, supplier *models.Supplier) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	ListActive(ctx context.Context) ([]models.Supplier, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateCredentials(ctx context.Context, supplier *models.Supplier) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a supplier repository bound to the provided database.
func NewRepository(database *gorm.DB) Repository {
	return &repository{db: database}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Supplier, error) {
	var result []models.Supplier
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("id = ?", id).
		Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) UpdateCredentials(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("id = ?", supplier.ID).
		Updates(map[string]any{
			"api_key_sealed":    supplier.APIKeySealed,
			"api_secret_sealed": supplier.APISecretSealed,
			"webhook_secret":    supplier.WebhookSecret,
		}).Error
}
