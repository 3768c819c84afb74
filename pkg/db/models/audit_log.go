package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
)

// AuditLog is an append-only record of an engine action. Rows are
// never updated or deleted.
type AuditLog struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Action     string            `gorm:"column:action;not null;index:ix_audit_logs_action_created,priority:1"`
	Entity     string            `gorm:"column:entity;not null"`
	EntityID   *uuid.UUID        `gorm:"column:entity_id;type:uuid"`
	Actor      string            `gorm:"column:actor;not null"`
	ActorRole  enums.ActorRole   `gorm:"column:actor_role;type:text;not null;default:'system'"`
	Status     enums.AuditStatus `gorm:"column:status;type:text;not null;default:'ok'"`
	Error      *string           `gorm:"column:error"`
	Metadata   json.RawMessage   `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime;index:ix_audit_logs_action_created,priority:2"`
}
