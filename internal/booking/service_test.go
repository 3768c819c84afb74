package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonkoltuk/sonkoltuk-backend/internal/customers"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/offers"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type fakePromoter struct {
	item *models.InventoryItem
	err  error
}

func (f *fakePromoter) Promote(_ context.Context, _ offers.PromoteInput) (*models.InventoryItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.item, nil
}

func newTestService(t *testing.T, db *gorm.DB, promoter offerPromoter) Service {
	t.Helper()
	if promoter == nil {
		promoter = &fakePromoter{err: pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")}
	}
	svc, err := NewService(
		NewRepository(db),
		customers.NewRepository(db),
		promoter,
		gormTxRunner{db: db},
		nil,
		nil,
		20,
		8,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func validInput(targetID uuid.UUID, seats int) ReserveInput {
	return ReserveInput{
		TargetID:     targetID,
		Seats:        seats,
		ContactName:  "Elif Kaya",
		ContactEmail: "elif@example.com",
		ContactPhone: "+905551110000",
		ActorRole:    enums.ActorRoleCustomer,
	}
}

func TestReserveSeatsHappyPath(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	item := seedItem(t, db, 10, 10)

	reservation, err := svc.ReserveSeats(context.Background(), validInput(item.ID, 3))
	if err != nil {
		t.Fatalf("ReserveSeats: %v", err)
	}

	order := reservation.Order
	if order.PaymentStatus != enums.PaymentStatusPending {
		t.Errorf("status = %q, want pending", order.PaymentStatus)
	}
	if order.TotalPriceMinor != 3*item.PriceMinor {
		t.Errorf("total = %d, want %d", order.TotalPriceMinor, 3*item.PriceMinor)
	}
	if len(order.PNRCode) != 8 {
		t.Errorf("pnr = %q, want 8 characters", order.PNRCode)
	}
	if order.TransactionID == "" {
		t.Error("payment reference missing")
	}
	if reservation.Customer == nil || !reservation.Customer.Guest {
		t.Error("guest identity not provisioned")
	}

	seatsLeft, _ := NewRepository(db).SeatsLeft(context.Background(), item.ID)
	if seatsLeft != 7 {
		t.Errorf("seats left = %d, want 7", seatsLeft)
	}
}

func TestReserveSeatsReusesCustomer(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	item := seedItem(t, db, 10, 10)
	ctx := context.Background()

	first, err := svc.ReserveSeats(ctx, validInput(item.ID, 1))
	if err != nil {
		t.Fatalf("first reservation: %v", err)
	}
	second, err := svc.ReserveSeats(ctx, validInput(item.ID, 1))
	if err != nil {
		t.Fatalf("second reservation: %v", err)
	}
	if first.Customer.ID != second.Customer.ID {
		t.Error("same email must map to one customer")
	}
	if first.Order.PNRCode == second.Order.PNRCode {
		t.Error("orders must get distinct pnr codes")
	}
}

func TestReserveSeatsInsufficientReportsCurrentCount(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	item := seedItem(t, db, 5, 5)
	ctx := context.Background()

	if _, err := svc.ReserveSeats(ctx, validInput(item.ID, 3)); err != nil {
		t.Fatalf("winning reservation: %v", err)
	}

	_, err := svc.ReserveSeats(ctx, validInput(item.ID, 4))
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientSeats) {
		t.Fatalf("expected insufficient-seats, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok {
		t.Fatalf("details missing: %v", err)
	}
	// The count after the winning decrement, not the stale pre-read.
	if details["seats_left"] != 2 {
		t.Errorf("seats_left detail = %v, want 2", details["seats_left"])
	}

	seatsLeft, _ := NewRepository(db).SeatsLeft(ctx, item.ID)
	if seatsLeft != 2 {
		t.Errorf("losing attempt changed the counter: %d", seatsLeft)
	}

	var orderCount int64
	db.Model(&models.Order{}).Count(&orderCount)
	if orderCount != 1 {
		t.Errorf("losing attempt left an order behind: %d", orderCount)
	}
}

func TestReserveSeatsValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	item := seedItem(t, db, 10, 10)

	cases := []struct {
		name  string
		input ReserveInput
		code  pkgerrors.Code
	}{
		{"zero seats", validInput(item.ID, 0), pkgerrors.CodeValidation},
		{"too many seats", validInput(item.ID, 21), pkgerrors.CodeValidation},
		{"unknown target", validInput(uuid.New(), 2), pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ReserveSeats(context.Background(), tc.input)
			if !pkgerrors.HasCode(err, tc.code) {
				t.Errorf("expected %s, got %v", tc.code, err)
			}
		})
	}

	missingName := validInput(item.ID, 2)
	missingName.ContactName = ""
	if _, err := svc.ReserveSeats(context.Background(), missingName); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Errorf("missing name: got %v", err)
	}
}

func TestReserveSeatsRequiresDocuments(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)

	item := seedItem(t, db, 10, 10)
	db.Model(&models.InventoryItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{"requires_passport": true, "requires_visa": true})

	_, err := svc.ReserveSeats(context.Background(), validInput(item.ID, 2))
	if !pkgerrors.HasCode(err, pkgerrors.CodeMissingDocument) {
		t.Fatalf("expected missing-document, got %v", err)
	}

	withPassport := validInput(item.ID, 2)
	withPassport.PassportNumber = "U12345678"
	_, err = svc.ReserveSeats(context.Background(), withPassport)
	if !pkgerrors.HasCode(err, pkgerrors.CodeMissingDocument) {
		t.Fatalf("expected visa still required, got %v", err)
	}

	complete := withPassport
	complete.VisaNumber = "V98765"
	reservation, err := svc.ReserveSeats(context.Background(), complete)
	if err != nil {
		t.Fatalf("complete documents: %v", err)
	}
	if reservation.Order.PassportNumber == nil || *reservation.Order.PassportNumber != "U12345678" {
		t.Error("passport not stored on the order")
	}
}

func TestReserveSeatsPromotesOffer(t *testing.T) {
	db := newTestDB(t)
	item := seedItem(t, db, 12, 12)
	// The promoter answers for an offer id unknown to inventory.
	svc := newTestService(t, db, &fakePromoter{item: item})

	reservation, err := svc.ReserveSeats(context.Background(), validInput(uuid.New(), 2))
	if err != nil {
		t.Fatalf("ReserveSeats via offer: %v", err)
	}
	if reservation.Order.InventoryItemID != item.ID {
		t.Errorf("order bound to %s, want %s", reservation.Order.InventoryItemID, item.ID)
	}
	seatsLeft, _ := NewRepository(db).SeatsLeft(context.Background(), item.ID)
	if seatsLeft != 10 {
		t.Errorf("seats left = %d, want 10", seatsLeft)
	}
}
