package offers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonkoltuk/sonkoltuk-backend/internal/audit"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PromoteInput identifies the offer to promote and who asked.
type PromoteInput struct {
	OfferID   uuid.UUID
	Actor     string
	ActorRole enums.ActorRole
}

// Service promotes supplier offers into bookable inventory.
type Service interface {
	Promote(ctx context.Context, input PromoteInput) (*models.InventoryItem, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Offer, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	audit audit.Service
}

// NewService wires the offer promotion service.
func NewService(repo Repository, tx txRunner, auditSvc audit.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("offer repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, audit: auditSvc}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	offer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading offer")
	}
	return offer, nil
}

// Promote materializes the offer as an inventory item exactly once.
// Concurrent callers race on a conditional claim of the offer's
// back-reference; losers discard their item and adopt the winner's.
func (s *service) Promote(ctx context.Context, input PromoteInput) (*models.InventoryItem, error) {
	offer, err := s.Get(ctx, input.OfferID)
	if err != nil {
		return nil, err
	}

	if offer.InventoryItemID != nil {
		return s.loadItem(ctx, *offer.InventoryItemID)
	}

	if offer.Status == enums.OfferStatusExpired {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot promote an expired offer")
	}
	if offer.SeatsTotal <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer has no seats to promote").
			WithDetails(map[string]any{"seats_total": offer.SeatsTotal})
	}

	var promoted *models.InventoryItem
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item := itemFromOffer(offer)
		if err := repo.CreateInventoryItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating inventory item")
		}

		claimed, err := repo.ClaimPromotion(ctx, offer.ID, item.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claiming promotion")
		}
		if claimed {
			promoted = item
			return nil
		}

		// Another promotion landed first; drop our copy and adopt theirs.
		if err := repo.DeleteInventoryItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing duplicate inventory item")
		}
		winner, err := repo.FindByID(ctx, offer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-reading offer")
		}
		if winner.InventoryItemID != nil {
			existing, err := repo.FindInventoryItem(ctx, *winner.InventoryItemID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading winning inventory item")
			}
			promoted = existing
			return nil
		}
		// Back-reference lost entirely; fall back to the vendor key.
		existing, err := repo.FindInventoryItemBySupplierVendor(ctx, offer.SupplierID, offer.VendorOfferID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "promotion claim lost without winner")
		}
		promoted = existing
		return nil
	})
	if err != nil {
		s.recordAudit(ctx, input, offer, enums.AuditStatusFailed, err)
		return nil, err
	}

	s.recordAudit(ctx, input, offer, enums.AuditStatusOK, nil)
	return promoted, nil
}

func (s *service) loadItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.repo.FindInventoryItem(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading inventory item")
	}
	return item, nil
}

func (s *service) recordAudit(ctx context.Context, input PromoteInput, offer *models.Offer, status enums.AuditStatus, cause error) {
	if s.audit == nil {
		return
	}
	offerID := offer.ID
	s.audit.Record(ctx, audit.Entry{
		Action:    "offer.promote",
		Entity:    "offer",
		EntityID:  &offerID,
		Actor:     input.Actor,
		ActorRole: input.ActorRole,
		Status:    status,
		Err:       cause,
		Metadata: map[string]any{
			"vendor_offer_id": offer.VendorOfferID,
			"supplier_id":     offer.SupplierID.String(),
		},
	})
}

func itemFromOffer(offer *models.Offer) *models.InventoryItem {
	supplierID := offer.SupplierID
	return &models.InventoryItem{
		ID:               uuid.New(),
		SupplierID:       &supplierID,
		VendorOfferID:    offer.VendorOfferID,
		Title:            offer.Title,
		Category:         offer.Category,
		Origin:           offer.Origin,
		Destination:      offer.Destination,
		DepartsAt:        offer.DepartsAt,
		ReturnsAt:        offer.ReturnsAt,
		PriceMinor:       offer.PriceMinor,
		Currency:         offer.Currency,
		SeatsTotal:       offer.SeatsTotal,
		SeatsLeft:        offer.SeatsTotal,
		RequiresPassport: offer.RequiresPassport,
		RequiresVisa:     offer.RequiresVisa,
		OwnerID:          offer.SupplierID,
	}
}
