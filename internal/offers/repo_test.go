package offers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:offers_%s?mode=memory&cache=shared", uuid.NewString())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := database.AutoMigrate(&models.Offer{}, &models.InventoryItem{}); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return database
}

func seedOffer(supplierID uuid.UUID, vendorOfferID string) *models.Offer {
	return &models.Offer{
		ID:            uuid.New(),
		SupplierID:    supplierID,
		VendorOfferID: vendorOfferID,
		Title:         "Istanbul - Izmir Express",
		Category:      enums.CategoryBus,
		Origin:        "IST",
		Destination:   "IZM",
		DepartsAt:     time.Now().Add(48 * time.Hour).UTC(),
		PriceMinor:    45000,
		Currency:      enums.CurrencyTRY,
		SeatsTotal:    40,
	}
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	supplierID := uuid.New()

	offer := seedOffer(supplierID, "V-100")
	created, err := repo.Upsert(ctx, offer)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !created {
		t.Error("expected created=true on first upsert")
	}
	if offer.Status != enums.OfferStatusNew {
		t.Errorf("status = %q, want new", offer.Status)
	}

	revised := seedOffer(supplierID, "V-100")
	revised.PriceMinor = 39900
	created, err = repo.Upsert(ctx, revised)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Error("expected created=false on re-ingest")
	}
	if revised.ID != offer.ID {
		t.Errorf("re-ingest must reuse the row: %s vs %s", revised.ID, offer.ID)
	}

	stored, err := repo.FindBySupplierVendor(ctx, supplierID, "V-100")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.PriceMinor != 39900 {
		t.Errorf("price = %d, want 39900", stored.PriceMinor)
	}
	if stored.Status != enums.OfferStatusUpdated {
		t.Errorf("status = %q, want updated", stored.Status)
	}
}

func TestUpsertPreservesPromotionBackReference(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	supplierID := uuid.New()

	offer := seedOffer(supplierID, "V-200")
	if _, err := repo.Upsert(ctx, offer); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	itemID := uuid.New()
	if err := db.Exec(
		"UPDATE offers SET inventory_item_id = ?, imported_to_inventory = ? WHERE id = ?",
		itemID, true, offer.ID,
	).Error; err != nil {
		t.Fatalf("seeding back-reference: %v", err)
	}

	revised := seedOffer(supplierID, "V-200")
	if _, err := repo.Upsert(ctx, revised); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	stored, _ := repo.FindBySupplierVendor(ctx, supplierID, "V-200")
	if stored.InventoryItemID == nil || *stored.InventoryItemID != itemID {
		t.Errorf("back-reference lost on re-ingest: %v", stored.InventoryItemID)
	}
	if !stored.ImportedToInventory {
		t.Error("imported flag lost on re-ingest")
	}
}

func TestClaimPromotionIsExclusive(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	offer := seedOffer(uuid.New(), "V-300")
	if _, err := repo.Upsert(ctx, offer); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	first, err := repo.ClaimPromotion(ctx, offer.ID, uuid.New())
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !first {
		t.Fatal("first claim must win")
	}

	second, err := repo.ClaimPromotion(ctx, offer.ID, uuid.New())
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if second {
		t.Fatal("second claim must lose")
	}
}

func TestMarkExpired(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	supplierID := uuid.New()

	for _, vendorID := range []string{"V-1", "V-2", "V-3"} {
		if _, err := repo.Upsert(ctx, seedOffer(supplierID, vendorID)); err != nil {
			t.Fatalf("seeding %s: %v", vendorID, err)
		}
	}

	expired, err := repo.MarkExpired(ctx, supplierID, []string{"V-2"})
	if err != nil {
		t.Fatalf("MarkExpired: %v", err)
	}
	if expired != 2 {
		t.Errorf("expired = %d, want 2", expired)
	}

	kept, _ := repo.FindBySupplierVendor(ctx, supplierID, "V-2")
	if kept.Status == enums.OfferStatusExpired {
		t.Error("V-2 must survive the sweep")
	}
	gone, _ := repo.FindBySupplierVendor(ctx, supplierID, "V-1")
	if gone.Status != enums.OfferStatusExpired {
		t.Errorf("V-1 status = %q, want expired", gone.Status)
	}
}
