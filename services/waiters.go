package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restroflow/hub"
	"github.com/yeremiapane/restroflow/models"
	"github.com/yeremiapane/restroflow/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 4

type WaiterDirectory struct {
	*core
	actions *ActionLog
}

// WaiterUpdate changes the fields that are set.
type WaiterUpdate struct {
	Username *string
	Password *string
}

func (d *WaiterDirectory) List(ctx context.Context) ([]models.Waiter, error) {
	var waiters []models.Waiter
	if err := d.db.WithContext(ctx).Order("username ASC").Find(&waiters).Error; err != nil {
		return nil, storeErr("list waiters", err)
	}
	return waiters, nil
}

func (d *WaiterDirectory) Add(ctx context.Context, actor Actor, username, password string) (*models.Waiter, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	waiter := models.Waiter{Username: username, PasswordHash: hash}
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUsernameFree(tx, username, 0); err != nil {
			return err
		}
		if err := tx.Create(&waiter).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflictf("username %q already exists", username)
			}
			return storeErr("create waiter", err)
		}
		return d.actions.Append(tx, actor, models.ActionWaiterAdded, nil, username)
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{"waiter": username, "actor": actor.Name}).Info("Waiter added")
	d.broadcast(hub.EventWaiters)
	return &waiter, nil
}

// Update renames a waiter and/or resets the password.
func (d *WaiterDirectory) Update(ctx context.Context, actor Actor, id uint, upd WaiterUpdate) (*models.Waiter, error) {
	if upd.Username == nil && upd.Password == nil {
		return nil, validationf("nothing to update")
	}

	updates := map[string]interface{}{}
	var changes []string
	if upd.Username != nil {
		name := strings.TrimSpace(*upd.Username)
		if name == "" {
			return nil, validationf("username is required")
		}
		updates["username"] = name
	}
	if upd.Password != nil {
		if len(*upd.Password) < minPasswordLength {
			return nil, validationf("password must be at least %d characters", minPasswordLength)
		}
		hash, err := hashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
		changes = append(changes, "password reset")
	}

	var waiter models.Waiter
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate).First(&waiter, id).Error; err != nil {
			if isRecordNotFound(err) {
				return notFoundf("waiter %d not found", id)
			}
			return storeErr("load waiter", err)
		}
		if name, ok := updates["username"].(string); ok && name != waiter.Username {
			if err := ensureUsernameFree(tx, name, id); err != nil {
				return err
			}
			changes = append([]string{fmt.Sprintf("renamed %s to %s", waiter.Username, name)}, changes...)
		}
		if err := tx.Model(&waiter).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflictf("username %q already exists", updates["username"])
			}
			return storeErr("update waiter", err)
		}
		if len(changes) == 0 {
			return nil
		}
		return d.actions.Append(tx, actor, models.ActionWaiterUpdated, nil, strings.Join(changes, "; "))
	})
	if err != nil {
		return nil, err
	}

	d.broadcast(hub.EventWaiters)
	return &waiter, nil
}

func (d *WaiterDirectory) Delete(ctx context.Context, actor Actor, id uint) error {
	var waiter models.Waiter
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate).First(&waiter, id).Error; err != nil {
			if isRecordNotFound(err) {
				return notFoundf("waiter %d not found", id)
			}
			return storeErr("load waiter", err)
		}
		if err := tx.Delete(&waiter).Error; err != nil {
			return storeErr("delete waiter", err)
		}
		return d.actions.Append(tx, actor, models.ActionWaiterDeleted, nil, waiter.Username)
	})
	if err != nil {
		return err
	}

	utils.InfoLogger.WithFields(logrus.Fields{"waiter": waiter.Username, "actor": actor.Name}).Info("Waiter deleted")
	d.broadcast(hub.EventWaiters)
	return nil
}

// Authenticate checks a waiter's credentials. Unknown users and wrong
// passwords fail the same way.
func (d *WaiterDirectory) Authenticate(ctx context.Context, username, password string) (*models.Waiter, error) {
	var waiter models.Waiter
	err := d.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&waiter).Error
	if err != nil {
		if isRecordNotFound(err) {
			return nil, validationf("invalid username or password")
		}
		return nil, storeErr("load waiter", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(waiter.PasswordHash), []byte(password)) != nil {
		return nil, validationf("invalid username or password")
	}
	return &waiter, nil
}

func validateCredentials(username, password string) error {
	if username == "" {
		return validationf("username is required")
	}
	if len(password) < minPasswordLength {
		return validationf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func ensureUsernameFree(tx *gorm.DB, username string, exceptID uint) error {
	var count int64
	if err := tx.Model(&models.Waiter{}).Where("username = ? AND id <> ?", username, exceptID).Count(&count).Error; err != nil {
		return storeErr("check username", err)
	}
	if count > 0 {
		return conflictf("username %q already exists", username)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", storeErr("hash password", err)
	}
	return string(hash), nil
}
