package services

import (
	"context"
	"strings"
	"time"

	"github.com/yeremiapane/restroflow/models"
	"gorm.io/gorm"
)

type HistoryLedger struct {
	*core
}

// HistoryFilter bounds are inclusive and apply to the seated time.
type HistoryFilter struct {
	From        *time.Time
	To          *time.Time
	Name        string
	TableNumber string
	Limit       int
}

func (h *HistoryLedger) Record(tx *gorm.DB, rec *models.HistoryRecord) error {
	if err := tx.Create(rec).Error; err != nil {
		return storeErr("record history", err)
	}
	return nil
}

// BackfillDeparture stamps the newest open record that includes tableNumber.
// It reports false when no open record exists.
func (h *HistoryLedger) BackfillDeparture(tx *gorm.DB, tableNumber string, at time.Time) (bool, error) {
	var rec models.HistoryRecord
	err := matchTableNumber(tx.Where("departed_at IS NULL"), tableNumber).
		Order("seated_at DESC").Order("id DESC").
		First(&rec).Error
	if err != nil {
		if isRecordNotFound(err) {
			return false, nil
		}
		return false, storeErr("find open history record", err)
	}
	return h.stampDeparture(tx, rec.ID, at)
}

// BackfillOccupant stamps the open record of the party a table holds. The
// occupant's name and seated time identify it even after tables were
// renumbered; the table number only breaks ties between identical parties.
// A multi-table seating already closed through another table stays as is.
// Without any matching record it falls back to BackfillDeparture.
func (h *HistoryLedger) BackfillOccupant(tx *gorm.DB, occ models.Occupant, tableNumber string, at time.Time) (bool, error) {
	var candidates []models.HistoryRecord
	err := tx.Where("name = ? AND seated_at = ?", occ.Name, occ.OccupiedAt.UTC()).
		Order("id DESC").
		Find(&candidates).Error
	if err != nil {
		return false, storeErr("find open history record", err)
	}
	if len(candidates) == 0 {
		return h.BackfillDeparture(tx, tableNumber, at)
	}

	var pick *models.HistoryRecord
	for i := range candidates {
		rec := &candidates[i]
		if rec.DepartedAt != nil {
			continue
		}
		if pick == nil || (hasTableNumber(rec, tableNumber) && !hasTableNumber(pick, tableNumber)) {
			pick = rec
		}
	}
	if pick == nil {
		return false, nil
	}
	return h.stampDeparture(tx, pick.ID, at)
}

func hasTableNumber(rec *models.HistoryRecord, number string) bool {
	for _, n := range rec.Tables() {
		if n == number {
			return true
		}
	}
	return false
}

func (h *HistoryLedger) stampDeparture(tx *gorm.DB, id uint, at time.Time) (bool, error) {
	res := tx.Model(&models.HistoryRecord{}).
		Where("id = ? AND departed_at IS NULL", id).
		Update("departed_at", at.UTC())
	if res.Error != nil {
		return false, storeErr("back-fill departure", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Query returns matching records newest seating first.
func (h *HistoryLedger) Query(ctx context.Context, f HistoryFilter) ([]models.HistoryRecord, error) {
	q := h.db.WithContext(ctx).Model(&models.HistoryRecord{})
	if f.From != nil {
		q = q.Where("seated_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("seated_at <= ?", f.To.UTC())
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if number := strings.TrimSpace(f.TableNumber); number != "" {
		q = matchTableNumber(q, strings.ToUpper(number))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var records []models.HistoryRecord
	if err := q.Order("seated_at DESC").Order("id DESC").Find(&records).Error; err != nil {
		return nil, storeErr("query history", err)
	}
	return records, nil
}

// matchTableNumber matches whole tokens of the joined list, so T1 never
// matches T10.
func matchTableNumber(q *gorm.DB, number string) *gorm.DB {
	sep := models.TableNumberSeparator
	return q.Where("(table_numbers = ? OR table_numbers LIKE ? OR table_numbers LIKE ? OR table_numbers LIKE ?)",
		number, number+sep+"%", "%"+sep+number, "%"+sep+number+sep+"%")
}
