package services

import (
	"context"
	"time"

	"github.com/yeremiapane/restroflow/models"
	"gorm.io/gorm"
)

// MaxActionLogEntries caps every action log query.
const MaxActionLogEntries = 200

type ActionLog struct {
	*core
}

// ActorFilter selects entries by who performed them. The zero value matches
// everyone.
type ActorFilter struct {
	Admin    bool
	WaiterID *uint
}

type ActionFilter struct {
	Actor   ActorFilter
	TableID *uint
	From    *time.Time
	To      *time.Time
	Limit   int
}

// Append writes one entry inside tx. The caller's transaction decides whether
// it survives.
func (l *ActionLog) Append(tx *gorm.DB, actor Actor, action string, tableID *uint, details string) error {
	entry := models.ActionLogEntry{
		WaiterID:  actor.WaiterID,
		TableID:   tableID,
		Action:    action,
		Details:   details,
		CreatedAt: l.now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return storeErr("append action log", err)
	}
	return nil
}

// Query returns matching entries newest first.
func (l *ActionLog) Query(ctx context.Context, f ActionFilter) ([]models.ActionLogEntry, error) {
	q := l.db.WithContext(ctx).Model(&models.ActionLogEntry{})

	switch {
	case f.Actor.WaiterID != nil:
		q = q.Where("waiter_id = ?", *f.Actor.WaiterID)
	case f.Actor.Admin:
		q = q.Where("waiter_id IS NULL")
	}
	if f.TableID != nil {
		q = q.Where("table_id = ?", *f.TableID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", f.To.UTC())
	}

	limit := f.Limit
	if limit <= 0 || limit > MaxActionLogEntries {
		limit = MaxActionLogEntries
	}

	var entries []models.ActionLogEntry
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, storeErr("query action log", err)
	}
	return entries, nil
}
