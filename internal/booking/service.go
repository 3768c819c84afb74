package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonkoltuk/sonkoltuk-backend/internal/audit"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/customers"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/offers"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/metrics"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// offerPromoter materializes inventory for a not-yet-promoted offer.
type offerPromoter interface {
	Promote(ctx context.Context, input offers.PromoteInput) (*models.InventoryItem, error)
}

// ReserveInput captures one reservation attempt. TargetID may be an
// inventory item id or an offer id; offers are promoted on first use.
type ReserveInput struct {
	TargetID       uuid.UUID
	Seats          int
	ContactName    string
	ContactEmail   string
	ContactPhone   string
	PassportNumber string
	VisaNumber     string
	Actor          string
	ActorRole      enums.ActorRole
}

// Reservation is the allocator's result.
type Reservation struct {
	Order    *models.Order
	Customer *models.Customer
	Item     *models.InventoryItem
}

// Service atomically allocates seats and opens pending orders.
type Service interface {
	ReserveSeats(ctx context.Context, input ReserveInput) (*Reservation, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type service struct {
	repo      Repository
	customers customers.Repository
	promoter  offerPromoter
	tx        txRunner
	audit     audit.Service
	metrics   *metrics.EngineMetrics
	maxSeats  int
	pnrLength int
	now       func() time.Time
}

// maxPNRAttempts bounds the regeneration loop on a code collision.
const maxPNRAttempts = 5

// NewService wires the reservation allocator.
func NewService(
	repo Repository,
	customerRepo customers.Repository,
	promoter offerPromoter,
	tx txRunner,
	auditSvc audit.Service,
	engineMetrics *metrics.EngineMetrics,
	maxSeats int,
	pnrLength int,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if customerRepo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if promoter == nil {
		return nil, fmt.Errorf("offer promoter required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if maxSeats <= 0 {
		maxSeats = 20
	}
	if pnrLength <= 0 {
		pnrLength = security.DefaultPNRLength
	}
	return &service{
		repo:      repo,
		customers: customerRepo,
		promoter:  promoter,
		tx:        tx,
		audit:     auditSvc,
		metrics:   engineMetrics,
		maxSeats:  maxSeats,
		pnrLength: pnrLength,
		now:       time.Now,
	}, nil
}

// ReserveSeats decrements the seat counter and creates a pending
// order in one transaction. The seat check happens at write time via
// a conditional decrement, never as a separate read.
func (s *service) ReserveSeats(ctx context.Context, input ReserveInput) (*Reservation, error) {
	started := s.now()

	if err := s.validate(input); err != nil {
		s.metrics.ObserveReservation("rejected", s.now().Sub(started))
		return nil, err
	}

	item, err := s.resolveTarget(ctx, input)
	if err != nil {
		s.metrics.ObserveReservation("rejected", s.now().Sub(started))
		return nil, err
	}

	if err := s.checkDocuments(item, input); err != nil {
		s.metrics.ObserveReservation("rejected", s.now().Sub(started))
		s.recordAudit(ctx, input, item, nil, enums.AuditStatusRejected, err)
		return nil, err
	}

	reservation := &Reservation{Item: item}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.DecrementSeats(ctx, item.ID, input.Seats)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrementing seats")
		}
		if !ok {
			// Report the count as it stands after the losing attempt,
			// not whatever we read before.
			seatsLeft, lerr := repo.SeatsLeft(ctx, item.ID)
			if lerr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, lerr, "reading seats left")
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientSeats,
				fmt.Sprintf("only %d seats left", seatsLeft)).
				WithDetails(map[string]any{"seats_left": seatsLeft, "requested": input.Seats})
		}

		customer, err := s.customers.WithTx(tx).
			FindOrCreateGuest(ctx, input.ContactEmail, input.ContactName, input.ContactPhone)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "provisioning customer")
		}
		reservation.Customer = customer

		pnr, err := s.uniquePNR(ctx, repo)
		if err != nil {
			return err
		}

		order := &models.Order{
			ID:              uuid.New(),
			InventoryItemID: item.ID,
			CustomerID:      customer.ID,
			ContactName:     input.ContactName,
			ContactEmail:    customer.Email,
			ContactPhone:    input.ContactPhone,
			Seats:           input.Seats,
			TotalPriceMinor: item.PriceMinor * int64(input.Seats),
			Currency:        item.Currency,
			PaymentStatus:   enums.PaymentStatusPending,
			TransactionID:   uuid.NewString(),
			PNRCode:         pnr,
		}
		if input.PassportNumber != "" {
			order.PassportNumber = &input.PassportNumber
		}
		if input.VisaNumber != "" {
			order.VisaNumber = &input.VisaNumber
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}
		reservation.Order = order
		return nil
	})
	if err != nil {
		result := "failed"
		if pkgerrors.HasCode(err, pkgerrors.CodeInsufficientSeats) {
			result = "insufficient_seats"
		}
		s.metrics.ObserveReservation(result, s.now().Sub(started))
		s.recordAudit(ctx, input, item, nil, enums.AuditStatusRejected, err)
		return nil, err
	}

	s.metrics.ObserveReservation("success", s.now().Sub(started))
	s.recordAudit(ctx, input, item, reservation.Order, enums.AuditStatusOK, nil)
	return reservation, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) validate(input ReserveInput) error {
	if input.Seats < 1 || input.Seats > s.maxSeats {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("seat count must be between 1 and %d", s.maxSeats)).
			WithDetails(map[string]any{"seats": input.Seats})
	}
	if input.ContactName == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "contact name is required")
	}
	if input.ContactEmail == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "contact email is required")
	}
	return nil
}

// resolveTarget accepts either an inventory item id or an offer id.
// Offers are promoted lazily on the first booking attempt.
func (s *service) resolveTarget(ctx context.Context, input ReserveInput) (*models.InventoryItem, error) {
	item, err := s.repo.FindInventoryItem(ctx, input.TargetID)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading inventory item")
	}

	promoted, err := s.promoter.Promote(ctx, offers.PromoteInput{
		OfferID:   input.TargetID,
		Actor:     input.Actor,
		ActorRole: input.ActorRole,
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking target not found")
		}
		return nil, err
	}
	return promoted, nil
}

func (s *service) checkDocuments(item *models.InventoryItem, input ReserveInput) error {
	if item.RequiresPassport && input.PassportNumber == "" {
		return pkgerrors.New(pkgerrors.CodeMissingDocument, "passport number is required for this trip").
			WithDetails(map[string]string{"field": "passport_number"})
	}
	if item.RequiresVisa && input.VisaNumber == "" {
		return pkgerrors.New(pkgerrors.CodeMissingDocument, "visa number is required for this trip").
			WithDetails(map[string]string{"field": "visa_number"})
	}
	return nil
}

// uniquePNR draws confirmation codes until one is free. Collisions on
// an 8-character code are vanishingly rare, so a short retry loop is
// enough; the unique index backstops the residual race.
func (s *service) uniquePNR(ctx context.Context, repo Repository) (string, error) {
	for attempt := 0; attempt < maxPNRAttempts; attempt++ {
		pnr, err := security.GeneratePNR(s.pnrLength)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating pnr code")
		}
		exists, err := repo.PNRExists(ctx, pnr)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking pnr code")
		}
		if !exists {
			return pnr, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique pnr code")
}

func (s *service) recordAudit(ctx context.Context, input ReserveInput, item *models.InventoryItem, order *models.Order, status enums.AuditStatus, cause error) {
	if s.audit == nil {
		return
	}
	entry := audit.Entry{
		Action:    "booking.reserve",
		Entity:    "inventory_item",
		Actor:     input.Actor,
		ActorRole: input.ActorRole,
		Status:    status,
		Err:       cause,
		Metadata: map[string]any{
			"seats": input.Seats,
		},
	}
	if item != nil {
		itemID := item.ID
		entry.EntityID = &itemID
	}
	if order != nil {
		entry.Entity = "order"
		orderID := order.ID
		entry.EntityID = &orderID
		entry.Metadata["pnr_code"] = order.PNRCode
	}
	s.audit.Record(ctx, entry)
}
