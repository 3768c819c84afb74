package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sonkoltuk/sonkoltuk-backend/api/middleware"
	"github.com/sonkoltuk/sonkoltuk-backend/api/responses"
	"github.com/sonkoltuk/sonkoltuk-backend/api/validators"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/ingestion"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/offers"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/logger"
)

type importOffersRequest struct {
	SupplierID    string            `json:"supplier_id" validate:"required,uuid"`
	CSVData       string            `json:"csv_data" validate:"required"`
	ColumnMapping map[string]string `json:"column_mapping"`
}

// ImportOffers accepts a supplier CSV batch. Bad rows are reported in
// the response; good rows land regardless.
func ImportOffers(svc ingestion.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req importOffersRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		supplierID, err := uuid.Parse(req.SupplierID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "supplier_id must be a uuid"))
			return
		}

		result, err := svc.ImportBatch(ctx, ingestion.ImportInput{
			SupplierID: supplierID,
			Data:       strings.NewReader(req.CSVData),
			Mapping:    ingestion.ColumnMapping(req.ColumnMapping),
			Actor:      middleware.UserIDFromContext(ctx),
			ActorRole:  middleware.RoleFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type promotedItemResponse struct {
	InventoryItemID string `json:"inventory_item_id"`
	Title           string `json:"title"`
	SeatsTotal      int    `json:"seats_total"`
	SeatsLeft       int    `json:"seats_left"`
	PriceMinor      int64  `json:"price_minor"`
	Currency        string `json:"currency"`
}

// PromoteOffer materializes an offer as bookable inventory. Repeated
// calls return the same item.
func PromoteOffer(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		offerID, err := uuid.Parse(chi.URLParam(r, "offerID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "offer id must be a uuid"))
			return
		}

		item, err := svc.Promote(ctx, offers.PromoteInput{
			OfferID:   offerID,
			Actor:     middleware.UserIDFromContext(ctx),
			ActorRole: middleware.RoleFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, promotedItemResponse{
			InventoryItemID: item.ID.String(),
			Title:           item.Title,
			SeatsTotal:      item.SeatsTotal,
			SeatsLeft:       item.SeatsLeft,
			PriceMinor:      item.PriceMinor,
			Currency:        string(item.Currency),
		})
	}
}
