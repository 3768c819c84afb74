package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonkoltuk/sonkoltuk-backend/internal/audit"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/metrics"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/redis"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/security"
)

const guardScope = "payment-callback"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// inventorySource loads the item an order reserved against.
type inventorySource interface {
	FindInventoryItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
}

// secretSource resolves a supplier's webhook signing secret.
type secretSource interface {
	WebhookSecretFor(ctx context.Context, id uuid.UUID) (string, error)
}

// CallbackPayload is the provider's signed notification body.
type CallbackPayload struct {
	PaymentReferenceID string `json:"payment_reference_id"`
	OrderID            string `json:"order_id"`
	TransactionID      string `json:"transaction_id"`
	Outcome            string `json:"outcome"`
	AmountMinor        int64  `json:"amount_minor"`
	Currency           string `json:"currency"`
}

// CallbackResult reports the order's payment status after the apply.
type CallbackResult struct {
	OrderID       uuid.UUID           `json:"order_id"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}

// Service reconciles asynchronous provider outcomes with orders,
// exactly once per outcome.
type Service interface {
	ApplyCallback(ctx context.Context, rawBody []byte, signature string) (*CallbackResult, error)
}

type service struct {
	repo           Repository
	inventory      inventorySource
	secrets        secretSource
	guard          redis.IdempotencyStore
	guardTTL       time.Duration
	fallbackSecret string
	tx             txRunner
	audit          audit.Service
	metrics        *metrics.EngineMetrics
}

// NewService wires the payment reconciler. The guard is optional; the
// terminal-status check alone already makes replays safe.
func NewService(
	repo Repository,
	inventory inventorySource,
	secrets secretSource,
	guard redis.IdempotencyStore,
	guardTTL time.Duration,
	fallbackSecret string,
	tx txRunner,
	auditSvc audit.Service,
	engineMetrics *metrics.EngineMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory source required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:           repo,
		inventory:      inventory,
		secrets:        secrets,
		guard:          guard,
		guardTTL:       guardTTL,
		fallbackSecret: fallbackSecret,
		tx:             tx,
		audit:          auditSvc,
		metrics:        engineMetrics,
	}, nil
}

// ApplyCallback verifies, correlates and applies one provider
// notification. Rejections leave no state change behind; the status
// flip and any seat restoration commit together or not at all.
func (s *service) ApplyCallback(ctx context.Context, rawBody []byte, signature string) (*CallbackResult, error) {
	var payload CallbackPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		s.reject(ctx, nil, payload, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "undecodable callback payload"))
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "undecodable callback payload")
	}
	outcome, err := enums.ParseCallbackOutcome(payload.Outcome)
	if err != nil {
		rejection := pkgerrors.New(pkgerrors.CodeValidation, "unknown callback outcome").
			WithDetails(map[string]string{"outcome": payload.Outcome})
		s.reject(ctx, nil, payload, rejection)
		return nil, rejection
	}
	orderID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		rejection := pkgerrors.New(pkgerrors.CodeValidation, "callback order id is not a uuid")
		s.reject(ctx, nil, payload, rejection)
		return nil, rejection
	}

	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rejection := pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			s.reject(ctx, &orderID, payload, rejection)
			return nil, rejection
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	secret := s.resolveSecret(ctx, order)
	if !security.VerifySignature(rawBody, secret, signature) {
		s.metrics.IncCallback("invalid_signature")
		rejection := pkgerrors.New(pkgerrors.CodeInvalidSignature, "callback signature verification failed")
		s.reject(ctx, &orderID, payload, rejection)
		return nil, rejection
	}

	// Terminal orders absorb replays: same answer, no side effects.
	// This runs before correlation because MarkPaid/MarkFailed record
	// the provider's transaction id on the order, so a redelivered
	// callback no longer matches the outbound reference.
	if order.PaymentStatus.IsTerminal() {
		s.metrics.IncCallback("replay")
		return &CallbackResult{OrderID: order.ID, PaymentStatus: order.PaymentStatus}, nil
	}

	if order.TransactionID != payload.PaymentReferenceID {
		s.metrics.IncCallback("reference_mismatch")
		rejection := pkgerrors.New(pkgerrors.CodeReferenceMismatch, "payment reference does not match the order")
		s.reject(ctx, &orderID, payload, rejection)
		return nil, rejection
	}

	eventID := fmt.Sprintf("%s:%s:%s", order.ID, payload.TransactionID, outcome)
	if marked, err := s.markGuard(ctx, eventID); err == nil && marked {
		// A concurrent delivery already holds this event.
		current, err := s.repo.FindOrderByID(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-reading order")
		}
		s.metrics.IncCallback("replay")
		return &CallbackResult{OrderID: current.ID, PaymentStatus: current.PaymentStatus}, nil
	}

	result, err := s.apply(ctx, order, payload, outcome)
	if err != nil {
		s.releaseGuard(ctx, eventID)
		s.metrics.IncCallback("error")
		s.reject(ctx, &orderID, payload, err)
		return nil, err
	}

	s.metrics.IncCallback(string(result.PaymentStatus))
	s.recordApplied(ctx, order, payload, result)
	return result, nil
}

func (s *service) apply(ctx context.Context, order *models.Order, payload CallbackPayload, outcome enums.CallbackOutcome) (*CallbackResult, error) {
	result := &CallbackResult{OrderID: order.ID}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		switch outcome {
		case enums.CallbackOutcomeSuccess:
			flipped, err := repo.MarkPaid(ctx, order.ID, payload.TransactionID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order paid")
			}
			if !flipped {
				return s.adoptCurrentStatus(ctx, repo, order.ID, result)
			}
			result.PaymentStatus = enums.PaymentStatusPaid
			return nil

		default: // failed or cancelled
			flipped, err := repo.MarkFailed(ctx, order.ID, payload.TransactionID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order failed")
			}
			if !flipped {
				return s.adoptCurrentStatus(ctx, repo, order.ID, result)
			}
			// Restoration rides the same transaction as the flip, so
			// neither can land without the other.
			if err := repo.RestoreSeats(ctx, order.InventoryItemID, order.Seats); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restoring seats")
			}
			s.metrics.AddSeatsRestored(order.Seats)
			result.PaymentStatus = enums.PaymentStatusFailed
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// adoptCurrentStatus resolves the lost-flip race by answering with
// whatever terminal state won.
func (s *service) adoptCurrentStatus(ctx context.Context, repo Repository, orderID uuid.UUID, result *CallbackResult) error {
	current, err := repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-reading order")
	}
	result.PaymentStatus = current.PaymentStatus
	return nil
}

func (s *service) resolveSecret(ctx context.Context, order *models.Order) string {
	if s.secrets != nil {
		item, err := s.inventory.FindInventoryItem(ctx, order.InventoryItemID)
		if err == nil && item.SupplierID != nil {
			secret, err := s.secrets.WebhookSecretFor(ctx, *item.SupplierID)
			if err == nil && secret != "" {
				return secret
			}
		}
	}
	return s.fallbackSecret
}

func (s *service) markGuard(ctx context.Context, eventID string) (bool, error) {
	if s.guard == nil {
		return false, nil
	}
	key := s.guard.IdempotencyKey(guardScope, eventID)
	set, err := s.guard.SetNX(ctx, key, "1", s.guardTTL)
	if err != nil {
		// Redis being down must not block reconciliation; the terminal
		// check still protects against double-apply.
		return false, nil
	}
	return !set, nil
}

func (s *service) releaseGuard(ctx context.Context, eventID string) {
	if s.guard == nil {
		return
	}
	_ = s.guard.Del(ctx, s.guard.IdempotencyKey(guardScope, eventID))
}

func (s *service) reject(ctx context.Context, orderID *uuid.UUID, payload CallbackPayload, cause error) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, audit.Entry{
		Action:    "payment.callback",
		Entity:    "order",
		EntityID:  orderID,
		ActorRole: enums.ActorRoleSystem,
		Status:    enums.AuditStatusRejected,
		Err:       cause,
		Metadata: map[string]any{
			"payment_reference_id": payload.PaymentReferenceID,
			"transaction_id":       payload.TransactionID,
			"outcome":              payload.Outcome,
		},
	})
}

func (s *service) recordApplied(ctx context.Context, order *models.Order, payload CallbackPayload, result *CallbackResult) {
	if s.audit == nil {
		return
	}
	orderID := order.ID
	s.audit.Record(ctx, audit.Entry{
		Action:    "payment.callback",
		Entity:    "order",
		EntityID:  &orderID,
		ActorRole: enums.ActorRoleSystem,
		Status:    enums.AuditStatusOK,
		Metadata: map[string]any{
			"payment_reference_id": payload.PaymentReferenceID,
			"transaction_id":       payload.TransactionID,
			"outcome":              payload.Outcome,
			"payment_status":       string(result.PaymentStatus),
		},
	})
}
