package database

import (
	"fmt"
	"strconv"

	"github.com/yeremiapane/restroflow/models"
	"github.com/yeremiapane/restroflow/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLayout is the floor plan seeded into an empty store: capacity and
// how many tables of it, in numbering order.
var DefaultLayout = []struct {
	Capacity int
	Count    int
}{
	{Capacity: 2, Count: 9},
	{Capacity: 4, Count: 29},
	{Capacity: 6, Count: 8},
}

// Migrate creates or updates the schema, makes sure the settings row exists
// and, when seedTables is set, seeds the default floor plan into an empty
// table registry.
func Migrate(db *gorm.DB, seedTables bool) error {
	err := db.AutoMigrate(
		&models.Table{},
		&models.QueuedParty{},
		&models.HistoryRecord{},
		&models.ActionLogEntry{},
		&models.Waiter{},
		&models.Setting{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Info("AutoMigrate completed.")

	// Keep an existing value; only create the row.
	err = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Setting{
		Key:   models.SettingAutoAllocatorEnabled,
		Value: strconv.FormatBool(true),
	}).Error
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	if seedTables {
		return SeedTables(db)
	}
	return nil
}

// SeedTables inserts DefaultLayout when no table exists yet.
func SeedTables(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Table{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count tables: %w", err)
		}
		if count > 0 {
			return nil
		}

		var tables []models.Table
		for _, group := range DefaultLayout {
			for i := 0; i < group.Count; i++ {
				n := len(tables) + 1
				tables = append(tables, models.Table{
					TableNumber:  models.FormatTableNumber(n),
					Capacity:     group.Capacity,
					Status:       models.TableStatusFree,
					DisplayOrder: n - 1,
				})
			}
		}
		if err := tx.CreateInBatches(tables, 50).Error; err != nil {
			return fmt.Errorf("seed tables: %w", err)
		}
		utils.InfoLogger.Infof("Seeded %d default tables", len(tables))
		return nil
	})
}
