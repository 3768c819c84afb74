package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
)

// Repository manages inventory seat counters and orders. SeatsLeft is
// only ever changed through the conditional statements below, so two
// racing callers can never both get past the seat limit.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindInventoryItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	SeatsLeft(ctx context.Context, itemID uuid.UUID) (int, error)
	DecrementSeats(ctx context.Context, itemID uuid.UUID, seats int) (bool, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByPNR(ctx context.Context, pnrCode string) (*models.Order, error)
	PNRExists(ctx context.Context, pnrCode string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a booking repository bound to the provided database.
func NewRepository(database *gorm.DB) Repository {
	return &repository{db: database}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindInventoryItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) SeatsLeft(ctx context.Context, itemID uuid.UUID) (int, error) {
	var seatsLeft int
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", itemID).
		Pluck("seats_left", &seatsLeft).Error
	if err != nil {
		return 0, err
	}
	return seatsLeft, nil
}

// DecrementSeats takes seats off the counter only when enough remain.
// The WHERE clause re-validates the precondition at write time; a
// false return means the item vanished or the seats are gone.
func (r *repository) DecrementSeats(ctx context.Context, itemID uuid.UUID, seats int) (bool, error) {
	if seats <= 0 {
		return false, errors.New("seat count must be positive")
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET seats_left = seats_left - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND seats_left >= ?
	`, seats, itemID, seats)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByPNR(ctx context.Context, pnrCode string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "pnr_code = ?", pnrCode).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) PNRExists(ctx context.Context, pnrCode string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("pnr_code = ?", pnrCode).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
