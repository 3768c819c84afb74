package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sonkoltuk/sonkoltuk-backend/internal/audit"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/metrics"
)

// offerUpserter is the slice of the offers repository ingestion needs.
type offerUpserter interface {
	Upsert(ctx context.Context, offer *models.Offer) (bool, error)
	MarkExpired(ctx context.Context, supplierID uuid.UUID, keepVendorIDs []string) (int64, error)
}

// supplierSource resolves and gates the supplier a batch belongs to.
type supplierSource interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
}

// ImportInput is one bulk upload.
type ImportInput struct {
	SupplierID uuid.UUID
	Data       io.Reader
	Mapping    ColumnMapping
	Actor      string
	ActorRole  enums.ActorRole
}

// Result reports the partial-success outcome of a batch.
type Result struct {
	Imported int        `json:"imported"`
	Failed   int        `json:"failed"`
	Expired  int        `json:"expired"`
	Errors   []RowError `json:"errors"`
}

// Service converts supplier bulk uploads into offer rows.
type Service interface {
	ImportBatch(ctx context.Context, input ImportInput) (*Result, error)
}

type service struct {
	offers    offerUpserter
	suppliers supplierSource
	audit     audit.Service
	metrics   *metrics.EngineMetrics
	maxRows   int
}

// NewService wires the CSV ingestion service. maxRows caps the batch
// size; zero disables the cap.
func NewService(offers offerUpserter, suppliers supplierSource, auditSvc audit.Service, engineMetrics *metrics.EngineMetrics, maxRows int) (Service, error) {
	if offers == nil {
		return nil, fmt.Errorf("offer upserter required")
	}
	if suppliers == nil {
		return nil, fmt.Errorf("supplier source required")
	}
	return &service{
		offers:    offers,
		suppliers: suppliers,
		audit:     auditSvc,
		metrics:   engineMetrics,
		maxRows:   maxRows,
	}, nil
}

// ImportBatch parses, validates and upserts a supplier CSV. Invalid
// rows are collected and skipped; only a structurally broken file or
// an inactive supplier aborts the batch with nothing written.
func (s *service) ImportBatch(ctx context.Context, input ImportInput) (*Result, error) {
	supplier, err := s.suppliers.Get(ctx, input.SupplierID)
	if err != nil {
		return nil, err
	}
	if !supplier.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier is deactivated")
	}

	rows, err := parseCSV(input.Data)
	if err != nil {
		s.recordAudit(ctx, input, nil, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed csv batch")
	}
	if s.maxRows > 0 && len(rows) > s.maxRows {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch exceeds the row limit").
			WithDetails(map[string]any{"rows": len(rows), "max_rows": s.maxRows})
	}

	result := &Result{Errors: []RowError{}}
	seen := make([]string, 0, len(rows))
	for _, row := range rows {
		// A row that fails validation still attests its offer is in
		// the feed; the expiry sweep must not reap it.
		if vendorID := row.get(input.Mapping, "vendor_offer_id"); vendorID != "" {
			seen = append(seen, vendorID)
		}
		offer, rowErrs := s.mapRow(row, input)
		if len(rowErrs) > 0 {
			result.Failed++
			result.Errors = append(result.Errors, rowErrs...)
			continue
		}
		if _, err := s.offers.Upsert(ctx, offer); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RowError{
				Row:     row.number,
				Field:   "vendor_offer_id",
				Value:   offer.VendorOfferID,
				Message: "persisting offer failed",
			})
			continue
		}
		result.Imported++
	}

	// Offers the feed no longer carries get swept to expired. An
	// upload that landed nothing skips the sweep so a broken batch
	// cannot blank the supplier's catalog.
	if result.Imported > 0 {
		expired, err := s.offers.MarkExpired(ctx, input.SupplierID, seen)
		if err != nil {
			s.recordAudit(ctx, input, result, err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "expiring offers absent from the feed")
		}
		result.Expired = int(expired)
	}

	s.metrics.AddCSVRows("imported", result.Imported)
	s.metrics.AddCSVRows("failed", result.Failed)
	s.metrics.AddCSVRows("expired", result.Expired)
	s.recordAudit(ctx, input, result, nil)
	return result, nil
}

// mapRow converts one parsed row into an offer, collecting every
// violation rather than stopping at the first.
func (s *service) mapRow(row parsedRow, input ImportInput) (*models.Offer, []RowError) {
	var errs []RowError
	fail := func(field, value, message string) {
		errs = append(errs, RowError{Row: row.number, Field: field, Value: value, Message: message})
	}
	required := func(field string) string {
		value := row.get(input.Mapping, field)
		if value == "" {
			fail(field, "", "required field is missing")
		}
		return value
	}

	vendorOfferID := required("vendor_offer_id")
	title := required("title")
	origin := required("origin")
	destination := required("destination")

	var category enums.Category
	if raw := required("category"); raw != "" {
		parsed, err := enums.ParseCategory(raw)
		if err != nil {
			fail("category", raw, "unknown category")
		} else {
			category = parsed
		}
	}

	var currency enums.Currency
	if raw := required("currency"); raw != "" {
		parsed, err := enums.ParseCurrency(raw)
		if err != nil {
			fail("currency", raw, "unsupported currency")
		} else {
			currency = parsed
		}
	}

	var departsAt time.Time
	if raw := required("departs_at"); raw != "" {
		parsed, err := parseTimestamp(raw)
		if err != nil {
			fail("departs_at", raw, "unparseable timestamp")
		} else {
			departsAt = parsed
		}
	}

	var returnsAt *time.Time
	if raw := row.get(input.Mapping, "returns_at"); raw != "" {
		parsed, err := parseTimestamp(raw)
		if err != nil {
			fail("returns_at", raw, "unparseable timestamp")
		} else {
			returnsAt = &parsed
		}
	}

	var priceMinor int64
	if raw := required("price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		switch {
		case err != nil:
			fail("price", raw, "not a number")
		case !price.IsPositive():
			fail("price", raw, "price must be greater than zero")
		default:
			priceMinor = price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		}
	}

	seatsTotal := 0
	if raw := required("seats_total"); raw != "" {
		seats, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			fail("seats_total", raw, "not an integer")
		case seats < 0:
			fail("seats_total", raw, "seats cannot be negative")
		default:
			seatsTotal = seats
		}
	}

	requiresPassport, err := parseOptionalBool(row.get(input.Mapping, "requires_passport"))
	if err != nil {
		fail("requires_passport", row.get(input.Mapping, "requires_passport"), "not a boolean")
	}
	requiresVisa, err := parseOptionalBool(row.get(input.Mapping, "requires_visa"))
	if err != nil {
		fail("requires_visa", row.get(input.Mapping, "requires_visa"), "not a boolean")
	}

	if len(errs) > 0 {
		return nil, errs
	}

	raw, _ := json.Marshal(row.values)
	return &models.Offer{
		ID:               uuid.New(),
		SupplierID:       input.SupplierID,
		VendorOfferID:    vendorOfferID,
		Title:            title,
		Category:         category,
		Origin:           origin,
		Destination:      destination,
		DepartsAt:        departsAt,
		ReturnsAt:        returnsAt,
		PriceMinor:       priceMinor,
		Currency:         currency,
		SeatsTotal:       seatsTotal,
		RequiresPassport: requiresPassport,
		RequiresVisa:     requiresVisa,
		RawPayload:       raw,
	}, nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", value)
}

func parseOptionalBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "", "false", "0", "no":
		return false, nil
	case "true", "1", "yes":
		return true, nil
	default:
		return false, fmt.Errorf("unsupported boolean %q", value)
	}
}

func (s *service) recordAudit(ctx context.Context, input ImportInput, result *Result, cause error) {
	if s.audit == nil {
		return
	}
	supplierID := input.SupplierID
	entry := audit.Entry{
		Action:    "csv.import",
		Entity:    "supplier",
		EntityID:  &supplierID,
		Actor:     input.Actor,
		ActorRole: input.ActorRole,
		Status:    enums.AuditStatusOK,
		Err:       cause,
	}
	if result != nil {
		entry.Metadata = map[string]any{
			"imported": result.Imported,
			"failed":   result.Failed,
		}
		if result.Failed > 0 {
			entry.Status = enums.AuditStatusRejected
		}
	}
	if cause != nil {
		entry.Status = enums.AuditStatusFailed
	}
	s.audit.Record(ctx, entry)
}
