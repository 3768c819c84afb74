package ingestion

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
)

type fakeUpserter struct {
	byKey       map[string]*models.Offer
	failOnKey   string
	expireErr   error
	expireCalls int
	lastKeep    []string
}

func newFakeUpserter() *fakeUpserter {
	return &fakeUpserter{byKey: make(map[string]*models.Offer)}
}

func (f *fakeUpserter) Upsert(_ context.Context, offer *models.Offer) (bool, error) {
	key := offer.SupplierID.String() + "/" + offer.VendorOfferID
	if offer.VendorOfferID == f.failOnKey {
		return false, fmt.Errorf("insert failed")
	}
	_, existed := f.byKey[key]
	f.byKey[key] = offer
	return !existed, nil
}

func (f *fakeUpserter) MarkExpired(_ context.Context, supplierID uuid.UUID, keep []string) (int64, error) {
	f.expireCalls++
	f.lastKeep = keep
	if f.expireErr != nil {
		return 0, f.expireErr
	}
	keepSet := make(map[string]bool, len(keep))
	for _, v := range keep {
		keepSet[v] = true
	}
	var flipped int64
	for _, offer := range f.byKey {
		if offer.SupplierID != supplierID || keepSet[offer.VendorOfferID] || offer.Status == enums.OfferStatusExpired {
			continue
		}
		offer.Status = enums.OfferStatusExpired
		flipped++
	}
	return flipped, nil
}

type fakeSupplierSource struct {
	supplier *models.Supplier
}

func (f *fakeSupplierSource) Get(_ context.Context, id uuid.UUID) (*models.Supplier, error) {
	if f.supplier == nil || f.supplier.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	return f.supplier, nil
}

func activeSupplier() *models.Supplier {
	return &models.Supplier{ID: uuid.New(), Name: "Anatolia Tours", Active: true}
}

const validBatch = `vendor_offer_id,title,category,origin,destination,departs_at,price,currency,seats_total
V-1,Istanbul City Tour,tour,IST,IST,2026-09-10 09:00,450.50,TRY,30
V-2,Izmir Coach,coach,IST,IZM,2026-09-11,120,try,44
`

func TestImportBatchHappyPath(t *testing.T) {
	upserter := newFakeUpserter()
	supplier := activeSupplier()
	svc, err := NewService(upserter, &fakeSupplierSource{supplier: supplier}, nil, nil, 0)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	result, err := svc.ImportBatch(context.Background(), ImportInput{
		SupplierID: supplier.ID,
		Data:       strings.NewReader(validBatch),
	})
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}
	if result.Imported != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}

	tour := upserter.byKey[supplier.ID.String()+"/V-1"]
	if tour.PriceMinor != 45050 {
		t.Errorf("price minor = %d, want 45050", tour.PriceMinor)
	}
	if tour.Category != enums.CategoryTour {
		t.Errorf("category = %q", tour.Category)
	}
	if len(tour.RawPayload) == 0 {
		t.Error("raw payload not captured")
	}

	coach := upserter.byKey[supplier.ID.String()+"/V-2"]
	if coach.Category != enums.CategoryBus {
		t.Errorf("coach alias not resolved: %q", coach.Category)
	}
	if coach.Currency != enums.CurrencyTRY {
		t.Errorf("currency not normalized: %q", coach.Currency)
	}
}

func TestImportBatchPartialSuccess(t *testing.T) {
	upserter := newFakeUpserter()
	supplier := activeSupplier()
	svc, _ := NewService(upserter, &fakeSupplierSource{supplier: supplier}, nil, nil, 0)

	batch := `vendor_offer_id,title,category,origin,destination,departs_at,price,currency,seats_total
V-1,Good Row,tour,IST,IST,2026-09-10,100,TRY,10
V-2,,spaceship,IST,IZM,not-a-date,-5,XXX,many
V-3,Another Good Row,ferry,IST,BUR,2026-09-12,80,EUR,120
`
	result, err := svc.ImportBatch(context.Background(), ImportInput{
		SupplierID: supplier.ID,
		Data:       strings.NewReader(batch),
	})
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}
	if result.Imported != 2 || result.Failed != 1 {
		t.Fatalf("result = imported %d failed %d", result.Imported, result.Failed)
	}
	if len(result.Errors) < 5 {
		t.Errorf("expected every violation collected, got %d: %+v", len(result.Errors), result.Errors)
	}
	for _, rowErr := range result.Errors {
		if rowErr.Row != 3 {
			t.Errorf("error attributed to row %d, want 3", rowErr.Row)
		}
	}

	fields := map[string]bool{}
	for _, rowErr := range result.Errors {
		fields[rowErr.Field] = true
	}
	for _, want := range []string{"title", "category", "departs_at", "price", "currency", "seats_total"} {
		if !fields[want] {
			t.Errorf("missing violation for field %q", want)
		}
	}
}

func TestImportBatchMalformedFileAborts(t *testing.T) {
	upserter := newFakeUpserter()
	supplier := activeSupplier()
	svc, _ := NewService(upserter, &fakeSupplierSource{supplier: supplier}, nil, nil, 0)

	ragged := "vendor_offer_id,title,category\nV-1,\"unterminated\n"
	_, err := svc.ImportBatch(context.Background(), ImportInput{
		SupplierID: supplier.ID,
		Data:       strings.NewReader(ragged),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(upserter.byKey) != 0 {
		t.Error("malformed batch must write nothing")
	}
}

func TestImportBatchColumnMapping(t *testing.T) {
	upserter := newFakeUpserter()
	supplier := activeSupplier()
	svc, _ := NewService(upserter, &fakeSupplierSource{supplier: supplier}, nil, nil, 0)

	batch := `ref,name,kind,from,to,departure,amount,ccy,capacity
V-9,Mapped Offer,bus,ANK,IST,2026-10-01T08:30:00Z,75.00,USD,50
`
	result, err := svc.ImportBatch(context.Background(), ImportInput{
		SupplierID: supplier.ID,
		Data:       strings.NewReader(batch),
		Mapping: ColumnMapping{
			"vendor_offer_id": "ref",
			"title":           "name",
			"category":        "kind",
			"origin":          "from",
			"destination":     "to",
			"departs_at":      "departure",
			"price":           "amount",
			"currency":        "ccy",
			"seats_total":     "capacity",
		},
	})
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("result = %+v", result)
	}
	offer := upserter.byKey[supplier.ID.String()+"/V-9"]
	if offer.Title != "Mapped Offer" || offer.PriceMinor != 7500 || offer.SeatsTotal != 50 {
		t.Errorf("mapped offer = %+v", offer)
	}
}

func TestImportBatchIdempotentReimport(t *testing.T) {
	upserter := newFakeUpserter()
	supplier := activeSupplier()
	svc, _ := NewService(upserter, &fakeSupplierSource{supplier: supplier}, nil, nil, 0)

	for i := 0; i < 2; i++ {
		result, err := svc.ImportBatch(context.Background(), ImportInput{
			SupplierID: supplier.ID,
			Data:       strings.NewReader(validBatch),
		})
		if err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
		if result.Imported != 2 {
			t.Fatalf("pass %d result = %+v", i, result)
		}
	}
	if len(upserter.byKey) != 2 {
		t.Errorf("re-import created duplicates: %d rows", len(upserter.byKey))
	}
}

func TestImportBatchExpiresOffersAbsentFromFeed(t *testing.T) {
	upserter := newFakeUpserter()
	supplier := activeSupplier()
	stale := &models.Offer{
		ID:            uuid.New(),
		SupplierID:    supplier.ID,
		VendorOfferID: "V-GONE",
		Status:        enums.OfferStatusNew,
	}
	upserter.byKey[supplier.ID.String()+"/V-GONE"] = stale

	svc, _ := NewService(upserter, &fakeSupplierSource{supplier: supplier}, nil, nil, 0)
	result, err := svc.ImportBatch(context.Background(), ImportInput{
		SupplierID: supplier.ID,
		Data:       strings.NewReader(validBatch),
	})
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}
	if result.Expired != 1 {
		t.Errorf("expired = %d, want 1", result.Expired)
	}
	if stale.Status != enums.OfferStatusExpired {
		t.Errorf("absent offer status = %q, want expired", stale.Status)
	}

	keep := map[string]bool{}
	for _, v := range upserter.lastKeep {
		keep[v] = true
	}
	if !keep["V-1"] || !keep["V-2"] {
		t.Errorf("feed offers missing from the keep list: %v", upserter.lastKeep)
	}
}

func TestImportBatchSweepSparesInvalidRows(t *testing.T) {
	upserter := newFakeUpserter()
	supplier := activeSupplier()
	broken := &models.Offer{
		ID:            uuid.New(),
		SupplierID:    supplier.ID,
		VendorOfferID: "V-BROKEN",
		Status:        enums.OfferStatusUpdated,
	}
	upserter.byKey[supplier.ID.String()+"/V-BROKEN"] = broken

	// V-BROKEN's row fails validation but it is still in the feed, so
	// the sweep must not reap it.
	batch := `vendor_offer_id,title,category,origin,destination,departs_at,price,currency,seats_total
V-1,Good Row,tour,IST,IST,2026-09-10,100,TRY,10
V-BROKEN,,tour,IST,IST,2026-09-10,100,TRY,10
`
	svc, _ := NewService(upserter, &fakeSupplierSource{supplier: supplier}, nil, nil, 0)
	result, err := svc.ImportBatch(context.Background(), ImportInput{
		SupplierID: supplier.ID,
		Data:       strings.NewReader(batch),
	})
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}
	if result.Expired != 0 {
		t.Errorf("expired = %d, want 0", result.Expired)
	}
	if broken.Status == enums.OfferStatusExpired {
		t.Error("invalid row's offer must survive the sweep")
	}
}

func TestImportBatchSkipsSweepWhenNothingLanded(t *testing.T) {
	upserter := newFakeUpserter()
	supplier := activeSupplier()
	svc, _ := NewService(upserter, &fakeSupplierSource{supplier: supplier}, nil, nil, 0)

	allBad := `vendor_offer_id,title,category,origin,destination,departs_at,price,currency,seats_total
V-1,,spaceship,IST,IZM,not-a-date,-5,XXX,many
`
	result, err := svc.ImportBatch(context.Background(), ImportInput{
		SupplierID: supplier.ID,
		Data:       strings.NewReader(allBad),
	})
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}
	if result.Imported != 0 {
		t.Fatalf("result = %+v", result)
	}
	if upserter.expireCalls != 0 {
		t.Error("an all-failed batch must not trigger the expiry sweep")
	}
}

func TestImportBatchGuards(t *testing.T) {
	upserter := newFakeUpserter()
	inactive := activeSupplier()
	inactive.Active = false
	svc, _ := NewService(upserter, &fakeSupplierSource{supplier: inactive}, nil, nil, 1)

	_, err := svc.ImportBatch(context.Background(), ImportInput{
		SupplierID: inactive.ID,
		Data:       strings.NewReader(validBatch),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Errorf("inactive supplier: expected validation error, got %v", err)
	}

	active := activeSupplier()
	svc, _ = NewService(upserter, &fakeSupplierSource{supplier: active}, nil, nil, 1)
	_, err = svc.ImportBatch(context.Background(), ImportInput{
		SupplierID: active.ID,
		Data:       strings.NewReader(validBatch),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Errorf("row limit: expected validation error, got %v", err)
	}
}
