package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
)

// Repository applies payment outcomes to orders. Both transitions are
// conditional on the order still being pending, which makes the state
// flip itself the exactly-once guard.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, transactionID string) (bool, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID, transactionID string) (bool, error)
	RestoreSeats(ctx context.Context, itemID uuid.UUID, seats int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(database *gorm.DB) Repository {
	return &repository{db: database}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID, transactionID string) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET payment_status = ?,
			transaction_id = ?,
			paid_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND payment_status = ?
	`, enums.PaymentStatusPaid, transactionID, orderID, enums.PaymentStatusPending)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkFailed(ctx context.Context, orderID uuid.UUID, transactionID string) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET payment_status = ?,
			transaction_id = ?,
			failed_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND payment_status = ?
	`, enums.PaymentStatusFailed, transactionID, orderID, enums.PaymentStatusPending)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RestoreSeats gives seats back without ever exceeding the total. It
// runs in the same transaction as the failed-status flip; callers only
// invoke it after winning that flip.
func (r *repository) RestoreSeats(ctx context.Context, itemID uuid.UUID, seats int) error {
	if seats <= 0 {
		return errors.New("seat count must be positive")
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET seats_left = seats_left + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND seats_left + ? <= seats_total
	`, seats, itemID, seats)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("seat restoration would exceed the seat total")
	}
	return nil
}
