package models

import (
	"time"
)

const (
	ActionSeated                = "seated"
	ActionSeatedManually        = "seated_manually"
	ActionCleared               = "cleared"
	ActionBlocked               = "blocked"
	ActionMadeAvailable         = "made_available"
	ActionTableAdded            = "table_added"
	ActionTableDeleted          = "table_deleted"
	ActionWaiterAdded           = "waiter_added"
	ActionWaiterDeleted         = "waiter_deleted"
	ActionWaiterUpdated         = "waiter_updated"
	ActionCustomerAddedManually = "customer_added_manually"
)

// ActionLogEntry is immutable once written. WaiterID nil means the top-level
// admin. References are plain values (no foreign keys) so entries outlive the
// tables and waiters they mention.
type ActionLogEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	WaiterID  *uint     `gorm:"index" json:"waiter_id,omitempty"`
	TableID   *uint     `gorm:"index" json:"table_id,omitempty"`
	Action    string    `gorm:"type:varchar(40);not null;index" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `gorm:"not null;index" json:"timestamp"`
}

func (ActionLogEntry) TableName() string {
	return "action_log"
}
