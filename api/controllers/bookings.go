package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sonkoltuk/sonkoltuk-backend/api/middleware"
	"github.com/sonkoltuk/sonkoltuk-backend/api/responses"
	"github.com/sonkoltuk/sonkoltuk-backend/api/validators"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/booking"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/logger"
)

type createBookingRequest struct {
	TargetID       string `json:"target_id" validate:"required,uuid"`
	Seats          int    `json:"seats" validate:"required,min=1"`
	ContactName    string `json:"contact_name" validate:"required"`
	ContactEmail   string `json:"contact_email" validate:"required,email"`
	ContactPhone   string `json:"contact_phone"`
	PassportNumber string `json:"passport_number"`
	VisaNumber     string `json:"visa_number"`
}

type bookingResponse struct {
	OrderID          string `json:"order_id"`
	PNRCode          string `json:"pnr_code"`
	PaymentStatus    string `json:"payment_status"`
	PaymentReference string `json:"payment_reference"`
	Seats            int    `json:"seats"`
	TotalPriceMinor  int64  `json:"total_price_minor"`
	Currency         string `json:"currency"`
	CustomerID       string `json:"customer_id"`
	InventoryItemID  string `json:"inventory_item_id"`
}

// CreateBooking reserves seats against an inventory item or a
// not-yet-promoted offer and opens a pending order.
func CreateBooking(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createBookingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		targetID, err := uuid.Parse(req.TargetID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "target_id must be a uuid"))
			return
		}

		role := middleware.RoleFromContext(ctx)
		if !role.IsValid() {
			role = enums.ActorRoleCustomer
		}
		actor := middleware.UserIDFromContext(ctx)
		if actor == "" {
			actor = req.ContactEmail
		}

		reservation, err := svc.ReserveSeats(ctx, booking.ReserveInput{
			TargetID:       targetID,
			Seats:          req.Seats,
			ContactName:    validators.SanitizeString(req.ContactName, 120),
			ContactEmail:   validators.SanitizeString(req.ContactEmail, 254),
			ContactPhone:   validators.SanitizeString(req.ContactPhone, 32),
			PassportNumber: validators.SanitizeString(req.PassportNumber, 24),
			VisaNumber:     validators.SanitizeString(req.VisaNumber, 24),
			Actor:          actor,
			ActorRole:      role,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toBookingResponse(reservation.Order))
	}
}

// GetBooking returns an order by id.
func GetBooking(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a uuid"))
			return
		}

		order, err := svc.GetOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBookingResponse(order))
	}
}

func toBookingResponse(order *models.Order) bookingResponse {
	return bookingResponse{
		OrderID:          order.ID.String(),
		PNRCode:          order.PNRCode,
		PaymentStatus:    string(order.PaymentStatus),
		PaymentReference: order.TransactionID,
		Seats:            order.Seats,
		TotalPriceMinor:  order.TotalPriceMinor,
		Currency:         string(order.Currency),
		CustomerID:       order.CustomerID.String(),
		InventoryItemID:  order.InventoryItemID.String(),
	}
}
