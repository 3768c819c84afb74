package booking

import (
	"context"
	"fmt"
	"sync"
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

	dsn := fmt.Sprintf("file:booking_%s?mode=memory&cache=shared", uuid.NewString())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := database.AutoMigrate(
		&models.InventoryItem{},
		&models.Order{},
		&models.Customer{},
	); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return database
}

func seedItem(t *testing.T, db *gorm.DB, seatsTotal, seatsLeft int) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		ID:          uuid.New(),
		Title:       "Ankara - Istanbul Night Bus",
		Category:    enums.CategoryBus,
		Origin:      "ANK",
		Destination: "IST",
		DepartsAt:   time.Now().Add(24 * time.Hour),
		PriceMinor:  30000,
		Currency:    enums.CurrencyTRY,
		SeatsTotal:  seatsTotal,
		SeatsLeft:   seatsLeft,
		OwnerID:     uuid.New(),
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seeding item: %v", err)
	}
	return item
}

func TestDecrementSeatsConditional(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	item := seedItem(t, db, 5, 5)

	ok, err := repo.DecrementSeats(ctx, item.ID, 3)
	if err != nil {
		t.Fatalf("first decrement: %v", err)
	}
	if !ok {
		t.Fatal("first decrement must succeed")
	}

	// Only 2 left now; asking for 4 must not go through.
	ok, err = repo.DecrementSeats(ctx, item.ID, 4)
	if err != nil {
		t.Fatalf("second decrement: %v", err)
	}
	if ok {
		t.Fatal("oversell decrement must fail")
	}

	seatsLeft, err := repo.SeatsLeft(ctx, item.ID)
	if err != nil {
		t.Fatalf("SeatsLeft: %v", err)
	}
	if seatsLeft != 2 {
		t.Errorf("seats left = %d, want 2", seatsLeft)
	}
}

func TestDecrementSeatsConcurrentSingleWinner(t *testing.T) {
	db := newTestDB(t)
	// One pooled connection keeps sqlite from throwing lock errors at
	// the second writer; the guard itself decides who wins.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrapping db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	repo := NewRepository(db)
	ctx := context.Background()
	item := seedItem(t, db, 5, 5)

	type attempt struct {
		seats int
		ok    bool
		err   error
	}
	results := make(chan attempt, 2)
	var wg sync.WaitGroup
	for _, seats := range []int{3, 4} {
		wg.Add(1)
		go func(seats int) {
			defer wg.Done()
			ok, err := repo.DecrementSeats(ctx, item.ID, seats)
			results <- attempt{seats: seats, ok: ok, err: err}
		}(seats)
	}
	wg.Wait()
	close(results)

	var winners []attempt
	for res := range results {
		if res.err != nil {
			t.Fatalf("decrementing %d seats: %v", res.seats, res.err)
		}
		if res.ok {
			winners = append(winners, res)
		}
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one winning reservation, got %d", len(winners))
	}

	seatsLeft, err := repo.SeatsLeft(ctx, item.ID)
	if err != nil {
		t.Fatalf("SeatsLeft: %v", err)
	}
	if want := 5 - winners[0].seats; seatsLeft != want {
		t.Errorf("seats left = %d, want %d", seatsLeft, want)
	}
}

func TestDecrementSeatsExactFit(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	item := seedItem(t, db, 4, 4)

	ok, err := repo.DecrementSeats(ctx, item.ID, 4)
	if err != nil || !ok {
		t.Fatalf("exact-fit decrement: ok=%v err=%v", ok, err)
	}
	seatsLeft, _ := repo.SeatsLeft(ctx, item.ID)
	if seatsLeft != 0 {
		t.Errorf("seats left = %d, want 0", seatsLeft)
	}

	ok, _ = repo.DecrementSeats(ctx, item.ID, 1)
	if ok {
		t.Error("decrement below zero must fail")
	}
}

func TestDecrementSeatsUnknownItem(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	ok, err := repo.DecrementSeats(context.Background(), uuid.New(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("decrement on a missing item must report false")
	}
}

func TestPNRLookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	item := seedItem(t, db, 10, 10)

	order := &models.Order{
		ID:              uuid.New(),
		InventoryItemID: item.ID,
		CustomerID:      uuid.New(),
		ContactName:     "Mehmet Demir",
		ContactEmail:    "mehmet@example.com",
		Seats:           2,
		TotalPriceMinor: 60000,
		Currency:        enums.CurrencyTRY,
		PaymentStatus:   enums.PaymentStatusPending,
		TransactionID:   uuid.NewString(),
		PNRCode:         "BDKM7W2X",
	}
	if err := repo.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	exists, err := repo.PNRExists(ctx, "BDKM7W2X")
	if err != nil || !exists {
		t.Errorf("PNRExists = %v, %v", exists, err)
	}
	exists, _ = repo.PNRExists(ctx, "ZZZZZZZZ")
	if exists {
		t.Error("unknown pnr reported as existing")
	}

	found, err := repo.FindOrderByPNR(ctx, "BDKM7W2X")
	if err != nil {
		t.Fatalf("FindOrderByPNR: %v", err)
	}
	if found.ID != order.ID {
		t.Errorf("found order %s, want %s", found.ID, order.ID)
	}
}
