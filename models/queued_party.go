package models

import (
	"time"
)

// QueuedParty is a party waiting to be seated. Contact is unique among queued
// parties when present; NULL contacts never collide.
type QueuedParty struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	PartySize int       `gorm:"not null" json:"party_size"`
	Contact   *string   `gorm:"type:varchar(32);uniqueIndex" json:"contact,omitempty"`
	ArrivedAt time.Time `gorm:"not null;index" json:"arrived_at"`
}

func (QueuedParty) TableName() string {
	return "wait_queue"
}
