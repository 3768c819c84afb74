package customers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
)

// Repository manages persistence for customer identities.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	FindOrCreateGuest(ctx context.Context, email, fullName, phone string) (*models.Customer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a customer repository bound to the provided database.
func NewRepository(database *gorm.DB) Repository {
	return &repository{db: database}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindOrCreateGuest provisions a guest identity for a contact email on
// first use. A concurrent insert losing the unique-index race falls
// back to re-reading the winner's row.
func (r *repository) FindOrCreateGuest(ctx context.Context, email, fullName, phone string) (*models.Customer, error) {
	email = normalizeEmail(email)

	existing, err := r.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	customer := &models.Customer{
		ID:       uuid.New(),
		Email:    email,
		FullName: fullName,
		Phone:    phone,
		Guest:    true,
	}
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return r.FindByEmail(ctx, email)
		}
		return nil, err
	}
	return customer, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
