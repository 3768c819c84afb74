package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/logger"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/pagination"
)

// Service records engine actions and answers the health-check queries.
// Record is fire-and-forget: a failed write is logged, never returned,
// so auditing can never fail or roll back a business operation.
type Service interface {
	Record(ctx context.Context, input Entry)
	RecentErrorCount(ctx context.Context, windowHours int) (int64, error)
	RecentErrorsByAction(ctx context.Context, windowHours int) ([]ActionCount, error)
	Trail(ctx context.Context, entity string, entityID string, params pagination.Params) (*TrailResult, error)
}

// TrailResult wraps one page of an entity's audit history and the
// cursor for the next page.
type TrailResult struct {
	Items  []models.AuditLog `json:"items"`
	Cursor string            `json:"cursor"`
}

// Entry captures one auditable action.
type Entry struct {
	Action    string
	Entity    string
	EntityID  *uuid.UUID
	Actor     string
	ActorRole enums.ActorRole
	Status    enums.AuditStatus
	Err       error
	Metadata  map[string]any
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

func (s *service) Record(ctx context.Context, input Entry) {
	entry := &models.AuditLog{
		ID:        uuid.New(),
		Action:    input.Action,
		Entity:    input.Entity,
		EntityID:  input.EntityID,
		Actor:     input.Actor,
		ActorRole: input.ActorRole,
		Status:    input.Status,
	}
	if entry.Actor == "" {
		entry.Actor = "system"
	}
	if !entry.ActorRole.IsValid() {
		entry.ActorRole = enums.ActorRoleSystem
	}
	if !entry.Status.IsValid() {
		entry.Status = enums.AuditStatusOK
	}
	if input.Err != nil {
		msg := input.Err.Error()
		entry.Error = &msg
		if entry.Status == enums.AuditStatusOK {
			entry.Status = enums.AuditStatusFailed
		}
	}
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err == nil {
			entry.Metadata = raw
		}
	}

	if err := s.repo.Create(ctx, entry); err != nil && s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"audit_action": input.Action,
			"audit_entity": input.Entity,
		})
		s.logg.Error(ctx, "audit.write_failed", err)
	}
}

func (s *service) RecentErrorCount(ctx context.Context, windowHours int) (int64, error) {
	if windowHours <= 0 {
		return 0, fmt.Errorf("window hours must be positive")
	}
	since := s.now().Add(-time.Duration(windowHours) * time.Hour)
	return s.repo.CountErrorsSince(ctx, since)
}

func (s *service) RecentErrorsByAction(ctx context.Context, windowHours int) ([]ActionCount, error) {
	if windowHours <= 0 {
		return nil, fmt.Errorf("window hours must be positive")
	}
	since := s.now().Add(-time.Duration(windowHours) * time.Hour)
	return s.repo.CountErrorsByActionSince(ctx, since)
}

func (s *service) Trail(ctx context.Context, entity string, entityID string, params pagination.Params) (*TrailResult, error) {
	if entity == "" || entityID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity and entity id required")
	}

	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	items, next, err := s.repo.ListByEntity(ctx, entity, entityID, params.Limit, cursor)
	if err != nil {
		return nil, err
	}

	result := &TrailResult{Items: items}
	if next != nil {
		result.Cursor = next.Encode()
	}
	return result, nil
}
