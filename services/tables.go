package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restroflow/hub"
	"github.com/yeremiapane/restroflow/models"
	"github.com/yeremiapane/restroflow/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TableRegistry struct {
	*core
	history   *HistoryLedger
	actions   *ActionLog
	allocator *Allocator
}

// FreeResult reports what a Free call changed.
type FreeResult struct {
	Table   *models.Table `json:"table"`
	Changed bool          `json:"changed"`
	Seated  []Seating     `json:"seated,omitempty"`
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

func (r *TableRegistry) List(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	if err := orderedTables(r.db.WithContext(ctx)).Find(&tables).Error; err != nil {
		return nil, storeErr("list tables", err)
	}
	return tables, nil
}

func (r *TableRegistry) Get(ctx context.Context, id uint) (*models.Table, error) {
	var table models.Table
	if err := r.db.WithContext(ctx).First(&table, id).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, notFoundf("table %d not found", id)
		}
		return nil, storeErr("get table", err)
	}
	return &table, nil
}

// FreeTables lists free tables in display order.
func (r *TableRegistry) FreeTables(ctx context.Context) ([]models.Table, error) {
	return freeTables(r.db.WithContext(ctx))
}

func freeTables(db *gorm.DB) ([]models.Table, error) {
	var tables []models.Table
	if err := orderedTables(db.Where("status = ?", models.TableStatusFree)).Find(&tables).Error; err != nil {
		return nil, storeErr("list free tables", err)
	}
	return tables, nil
}

func orderedTables(db *gorm.DB) *gorm.DB {
	return db.Order("display_order ASC").Order("id ASC")
}

// AddTable creates a free table under the smallest unused number and places
// it last.
func (r *TableRegistry) AddTable(ctx context.Context, actor Actor, capacity int) (*models.Table, error) {
	if capacity <= 0 {
		return nil, validationf("capacity must be a positive number, got %d", capacity)
	}

	var table models.Table
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var numbers []string
		if err := tx.Model(&models.Table{}).Pluck("table_number", &numbers).Error; err != nil {
			return storeErr("list table numbers", err)
		}
		used := make(map[int]bool, len(numbers))
		for _, s := range numbers {
			if n, ok := models.ParseTableNumber(s); ok {
				used[n] = true
			}
		}
		next := 1
		for used[next] {
			next++
		}

		var maxOrder int
		if err := tx.Model(&models.Table{}).Select("COALESCE(MAX(display_order), -1)").Row().Scan(&maxOrder); err != nil {
			return storeErr("read display order", err)
		}

		table = models.Table{
			TableNumber:  models.FormatTableNumber(next),
			Capacity:     capacity,
			Status:       models.TableStatusFree,
			DisplayOrder: maxOrder + 1,
		}
		if err := tx.Create(&table).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflictf("table number %s was taken concurrently, try again", table.TableNumber)
			}
			return storeErr("create table", err)
		}
		return r.actions.Append(tx, actor, models.ActionTableAdded, &table.ID,
			fmt.Sprintf("%s (Cap: %d)", table.TableNumber, capacity))
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"table":    table.TableNumber,
		"capacity": capacity,
		"actor":    actor.Name,
	}).Info("Table added")
	r.broadcast(hub.EventTables)
	return &table, nil
}

// DeleteTable removes a free or blocked table. Remaining tables keep their
// numbers.
func (r *TableRegistry) DeleteTable(ctx context.Context, actor Actor, id uint) error {
	var table models.Table
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTable(tx, id, &table); err != nil {
			return err
		}
		if table.Status == models.TableStatusOccupied {
			return conflictf("table %s is occupied, free it before deleting", table.TableNumber)
		}
		res := tx.Where("id = ? AND status <> ?", id, models.TableStatusOccupied).Delete(&models.Table{})
		if res.Error != nil {
			return storeErr("delete table", res.Error)
		}
		if res.RowsAffected != 1 {
			return conflictf("table %s changed while deleting, try again", table.TableNumber)
		}
		return r.actions.Append(tx, actor, models.ActionTableDeleted, &table.ID, table.TableNumber)
	})
	if err != nil {
		return err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"table": table.TableNumber,
		"actor": actor.Name,
	}).Info("Table deleted")
	r.broadcast(hub.EventTables)
	return nil
}

// Block takes a free table out of service. Blocking a blocked table is a
// no-op.
func (r *TableRegistry) Block(ctx context.Context, actor Actor, id uint) (*models.Table, error) {
	var (
		table   models.Table
		changed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTable(tx, id, &table); err != nil {
			return err
		}
		switch table.Status {
		case models.TableStatusBlocked:
			return nil
		case models.TableStatusOccupied:
			return conflictf("table %s is occupied, free it before blocking", table.TableNumber)
		}

		res := tx.Model(&models.Table{}).
			Where("id = ? AND status = ?", id, models.TableStatusFree).
			Update("status", models.TableStatusBlocked)
		if res.Error != nil {
			return storeErr("block table", res.Error)
		}
		if res.RowsAffected != 1 {
			return conflictf("table %s is no longer free", table.TableNumber)
		}
		table.Status = models.TableStatusBlocked
		changed = true
		return r.actions.Append(tx, actor, models.ActionBlocked, &table.ID, table.TableNumber)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		r.broadcast(hub.EventTables)
	}
	return &table, nil
}

// Free releases an occupied or blocked table and then gives the allocator a
// chance to use it. An occupied table's open history record gets its
// departure time.
func (r *TableRegistry) Free(ctx context.Context, actor Actor, id uint) (*FreeResult, error) {
	var (
		table   models.Table
		changed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTable(tx, id, &table); err != nil {
			return err
		}

		action, details := "", table.TableNumber
		switch table.Status {
		case models.TableStatusFree:
			return nil
		case models.TableStatusOccupied:
			now := r.now()
			if occ := table.Occupant(); occ != nil {
				if _, err := r.history.BackfillOccupant(tx, *occ, table.TableNumber, now); err != nil {
					return err
				}
				details = fmt.Sprintf("%s (%s)", table.TableNumber, occ.Name)
			} else if _, err := r.history.BackfillDeparture(tx, table.TableNumber, now); err != nil {
				return err
			}
			action = models.ActionCleared
		case models.TableStatusBlocked:
			action = models.ActionMadeAvailable
		}

		res := tx.Model(&models.Table{}).
			Where("id = ? AND status = ?", id, table.Status).
			Updates(map[string]interface{}{
				"status":           models.TableStatusFree,
				"customer_name":    nil,
				"party_size":       nil,
				"customer_contact": nil,
				"occupied_at":      nil,
			})
		if res.Error != nil {
			return storeErr("free table", res.Error)
		}
		if res.RowsAffected != 1 {
			return conflictf("table %s changed while freeing, try again", table.TableNumber)
		}

		table.Status = models.TableStatusFree
		table.CustomerName, table.PartySize, table.CustomerContact, table.OccupiedAt = nil, nil, nil, nil
		changed = true
		return r.actions.Append(tx, actor, action, &table.ID, details)
	})
	if err != nil {
		return nil, err
	}

	result := &FreeResult{Table: &table, Changed: changed}
	if !changed {
		return result, nil
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"table": table.TableNumber,
		"actor": actor.Name,
	}).Info("Table freed")
	r.broadcast(hub.EventTables)

	result.Seated = r.allocator.followUp(ctx, "table freed")
	return result, nil
}

// Reorder renumbers every table by its position in orderedIDs: the first
// becomes T1 with display order 0.
func (r *TableRegistry) Reorder(ctx context.Context, actor Actor, orderedIDs []uint) ([]models.Table, error) {
	if len(orderedIDs) == 0 {
		return nil, validationf("table order must not be empty")
	}
	seen := make(map[uint]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if seen[id] {
			return nil, validationf("table %d listed more than once", id)
		}
		seen[id] = true
	}

	var tables []models.Table
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []models.Table
		if err := tx.Clauses(forUpdate).Order("id ASC").Find(&current).Error; err != nil {
			return storeErr("lock tables", err)
		}
		existing := make(map[uint]bool, len(current))
		for _, t := range current {
			existing[t.ID] = true
		}
		for _, id := range orderedIDs {
			if !existing[id] {
				return validationf("table %d not found", id)
			}
		}
		if len(orderedIDs) != len(current) {
			return conflictf("table order lists %d of %d tables, reload and try again", len(orderedIDs), len(current))
		}

		// Numbers are unique, so move everything out of the T<n> space first.
		for _, id := range orderedIDs {
			if err := tx.Model(&models.Table{}).Where("id = ?", id).
				Update("table_number", fmt.Sprintf("__reorder_%d", id)).Error; err != nil {
				return storeErr("renumber table", err)
			}
		}
		for i, id := range orderedIDs {
			if err := tx.Model(&models.Table{}).Where("id = ?", id).
				Updates(map[string]interface{}{
					"table_number":  models.FormatTableNumber(i + 1),
					"display_order": i,
				}).Error; err != nil {
				return storeErr("renumber table", err)
			}
		}
		return orderedTables(tx).Find(&tables).Error
	})
	if err != nil {
		return nil, storeErr("reorder tables", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"tables": len(tables),
		"actor":  actor.Name,
	}).Info("Tables reordered")
	r.broadcast(hub.EventTables)
	return tables, nil
}

func lockTable(tx *gorm.DB, id uint, table *models.Table) error {
	if err := tx.Clauses(forUpdate).First(table, id).Error; err != nil {
		if isRecordNotFound(err) {
			return notFoundf("table %d not found", id)
		}
		return storeErr("load table", err)
	}
	return nil
}
