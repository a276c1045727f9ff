package models

import (
	"strings"
	"time"
)

// TableNumberSeparator joins the numbers of a multi-table seating into one record.
const TableNumberSeparator = ", "

type HistoryRecord struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"type:varchar(255);not null" json:"name"`
	Contact      *string    `gorm:"type:varchar(32)" json:"contact,omitempty"`
	PartySize    int        `gorm:"not null" json:"party_size"`
	ArrivedAt    time.Time  `gorm:"not null" json:"arrived_at"`
	SeatedAt     time.Time  `gorm:"not null;index" json:"seated_at"`
	DepartedAt   *time.Time `gorm:"index" json:"departed_at,omitempty"`
	TableNumbers string     `gorm:"type:varchar(255);not null" json:"table_numbers"`
}

func (HistoryRecord) TableName() string {
	return "customer_history"
}

func (h *HistoryRecord) Tables() []string {
	return strings.Split(h.TableNumbers, TableNumberSeparator)
}

// WaitDuration is the time between arrival and seating.
func (h *HistoryRecord) WaitDuration() time.Duration {
	return h.SeatedAt.Sub(h.ArrivedAt)
}
