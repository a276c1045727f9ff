package services

import (
	"context"
	"strconv"

	"github.com/yeremiapane/restroflow/hub"
	"github.com/yeremiapane/restroflow/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultAutoAllocator applies while the settings row has never been written.
const DefaultAutoAllocator = true

type SettingsStore struct {
	*core
}

func (s *SettingsStore) AutoAllocatorEnabled(ctx context.Context) (bool, error) {
	return autoAllocatorEnabled(s.db.WithContext(ctx))
}

// SetAutoAllocator stores the flag and reports whether it changed.
func (s *SettingsStore) SetAutoAllocator(ctx context.Context, enabled bool) (bool, error) {
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockedAutoAllocator(tx)
		if err != nil {
			return err
		}
		changed = current != enabled
		return putSetting(tx, models.SettingAutoAllocatorEnabled, strconv.FormatBool(enabled))
	})
	if err != nil {
		return false, storeErr("update auto allocator setting", err)
	}
	if changed {
		s.broadcast(hub.EventSettings)
	}
	return changed, nil
}

// Toggle flips the flag in one transaction and returns the new value.
func (s *SettingsStore) Toggle(ctx context.Context) (bool, error) {
	var enabled bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockedAutoAllocator(tx)
		if err != nil {
			return err
		}
		enabled = !current
		return putSetting(tx, models.SettingAutoAllocatorEnabled, strconv.FormatBool(enabled))
	})
	if err != nil {
		return false, storeErr("toggle auto allocator setting", err)
	}
	s.broadcast(hub.EventSettings)
	return enabled, nil
}

func autoAllocatorEnabled(db *gorm.DB) (bool, error) {
	var setting models.Setting
	err := db.Where(&models.Setting{Key: models.SettingAutoAllocatorEnabled}).First(&setting).Error
	return parseAutoAllocator(setting, err)
}

func lockedAutoAllocator(tx *gorm.DB) (bool, error) {
	var setting models.Setting
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(&models.Setting{Key: models.SettingAutoAllocatorEnabled}).
		First(&setting).Error
	return parseAutoAllocator(setting, err)
}

func parseAutoAllocator(setting models.Setting, err error) (bool, error) {
	if err != nil {
		if isRecordNotFound(err) {
			return DefaultAutoAllocator, nil
		}
		return false, storeErr("read auto allocator setting", err)
	}
	// ParseBool also accepts the "True"/"False" spelling of older rows.
	enabled, perr := strconv.ParseBool(setting.Value)
	if perr != nil {
		return DefaultAutoAllocator, nil
	}
	return enabled, nil
}

func putSetting(tx *gorm.DB, key, value string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.Setting{Key: key, Value: value}).Error
}
