package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/pagination"
)

// ActionCount is a per-action error tally over a time window.
type ActionCount struct {
	Action string `gorm:"column:action"`
	Count  int64  `gorm:"column:count"`
}

// Repository manages persistence for audit entries. The table is
// append-only; there are no update or delete operations.
type Repository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	CountErrorsSince(ctx context.Context, since time.Time) (int64, error)
	CountErrorsByActionSince(ctx context.Context, since time.Time) ([]ActionCount, error)
	ListByEntity(ctx context.Context, entity string, entityID string, limit int, cursor *pagination.Cursor) ([]models.AuditLog, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) CountErrorsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Where("status IN ? AND created_at >= ?", errorStatuses(), since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CountErrorsByActionSince(ctx context.Context, since time.Time) ([]ActionCount, error) {
	var counts []ActionCount
	err := r.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Select("action, COUNT(*) AS count").
		Where("status IN ? AND created_at >= ?", errorStatuses(), since).
		Group("action").
		Order("count DESC").
		Find(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *repository) ListByEntity(ctx context.Context, entity string, entityID string, limit int, cursor *pagination.Cursor) ([]models.AuditLog, *pagination.Cursor, error) {
	buffered := pagination.LimitWithBuffer(limit)
	normalized := pagination.NormalizeLimit(limit)

	query := r.db.WithContext(ctx).
		Where("entity = ? AND entity_id = ?", entity, entityID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var entries []models.AuditLog
	if err := query.Order("created_at DESC, id DESC").Limit(buffered).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	if len(entries) > normalized {
		entries = entries[:normalized]
		last := entries[len(entries)-1]
		return entries, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return entries, nil, nil
}

func errorStatuses() []enums.AuditStatus {
	return []enums.AuditStatus{enums.AuditStatusRejected, enums.AuditStatusFailed}
}
