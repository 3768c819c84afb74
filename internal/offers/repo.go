package offers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
)

// Repository manages persistence for supplier offers and their
// promoted inventory items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, offer *models.Offer) (created bool, err error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	FindBySupplierVendor(ctx context.Context, supplierID uuid.UUID, vendorOfferID string) (*models.Offer, error)
	MarkExpired(ctx context.Context, supplierID uuid.UUID, keepVendorIDs []string) (int64, error)

	CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error
	DeleteInventoryItem(ctx context.Context, id uuid.UUID) error
	ClaimPromotion(ctx context.Context, offerID, itemID uuid.UUID) (bool, error)
	FindInventoryItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	FindInventoryItemBySupplierVendor(ctx context.Context, supplierID uuid.UUID, vendorOfferID string) (*models.InventoryItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an offer repository bound to the provided database.
func NewRepository(database *gorm.DB) Repository {
	return &repository{db: database}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// Upsert writes the offer keyed on (supplier_id, vendor_offer_id).
// An existing row is updated in place and flipped to 'updated'; the
// promotion back-reference is never touched here.
func (r *repository) Upsert(ctx context.Context, offer *models.Offer) (bool, error) {
	existing, err := r.FindBySupplierVendor(ctx, offer.SupplierID, offer.VendorOfferID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if existing != nil {
		offer.ID = existing.ID
		offer.InventoryItemID = existing.InventoryItemID
		offer.ImportedToInventory = existing.ImportedToInventory
		offer.CreatedAt = existing.CreatedAt
		offer.Status = enums.OfferStatusUpdated
		return false, r.db.WithContext(ctx).
			Model(&models.Offer{}).
			Where("id = ?", existing.ID).
			Updates(updateColumns(offer)).Error
	}

	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	offer.Status = enums.OfferStatusNew
	if err := r.db.WithContext(ctx).Create(offer).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			// Lost the insert race; land on the winner's row.
			winner, ferr := r.FindBySupplierVendor(ctx, offer.SupplierID, offer.VendorOfferID)
			if ferr != nil {
				return false, ferr
			}
			offer.ID = winner.ID
			offer.InventoryItemID = winner.InventoryItemID
			offer.ImportedToInventory = winner.ImportedToInventory
			offer.Status = enums.OfferStatusUpdated
			return false, r.db.WithContext(ctx).
				Model(&models.Offer{}).
				Where("id = ?", winner.ID).
				Updates(updateColumns(offer)).Error
		}
		return false, err
	}
	return true, nil
}

func updateColumns(offer *models.Offer) map[string]any {
	return map[string]any{
		"title":             offer.Title,
		"category":          offer.Category,
		"origin":            offer.Origin,
		"destination":       offer.Destination,
		"departs_at":        offer.DepartsAt,
		"returns_at":        offer.ReturnsAt,
		"price_minor":       offer.PriceMinor,
		"currency":          offer.Currency,
		"seats_total":       offer.SeatsTotal,
		"requires_passport": offer.RequiresPassport,
		"requires_visa":     offer.RequiresVisa,
		"raw_payload":       offer.RawPayload,
		"status":            offer.Status,
	}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).First(&offer, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) FindBySupplierVendor(ctx context.Context, supplierID uuid.UUID, vendorOfferID string) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND vendor_offer_id = ?", supplierID, vendorOfferID).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// MarkExpired flips offers absent from the supplier's latest feed to
// 'expired'. Promoted offers keep their inventory back-reference.
func (r *repository) MarkExpired(ctx context.Context, supplierID uuid.UUID, keepVendorIDs []string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("supplier_id = ? AND status <> ?", supplierID, enums.OfferStatusExpired)
	if len(keepVendorIDs) > 0 {
		query = query.Where("vendor_offer_id NOT IN ?", keepVendorIDs)
	}
	result := query.Update("status", enums.OfferStatusExpired)
	return result.RowsAffected, result.Error
}

func (r *repository) CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) DeleteInventoryItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.InventoryItem{}, "id = ?", id).Error
}

// ClaimPromotion sets the offer's inventory back-reference only when
// no other promotion has landed first. The WHERE clause is the race
// arbiter; exactly one caller ever sees a true result per offer.
func (r *repository) ClaimPromotion(ctx context.Context, offerID, itemID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND inventory_item_id IS NULL", offerID).
		Updates(map[string]any{
			"inventory_item_id":     itemID,
			"imported_to_inventory": true,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindInventoryItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindInventoryItemBySupplierVendor(ctx context.Context, supplierID uuid.UUID, vendorOfferID string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND vendor_offer_id = ?", supplierID, vendorOfferID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}
