package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	TableStatusFree     = "free"
	TableStatusOccupied = "occupied"
	TableStatusBlocked  = "blocked"
)

// TableNumberPrefix is the display prefix of every table number ("T1", "T2", ...).
const TableNumberPrefix = "T"

type Table struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	TableNumber     string     `gorm:"type:varchar(50);not null;uniqueIndex" json:"table_number"`
	Capacity        int        `gorm:"not null" json:"capacity"`
	Status          string     `gorm:"type:varchar(20);not null;default:'free';index" json:"status"`
	DisplayOrder    int        `gorm:"not null;default:0;index" json:"display_order"`
	CustomerName    *string    `gorm:"type:varchar(255)" json:"customer_name,omitempty"`
	PartySize       *int       `json:"party_size,omitempty"`
	CustomerContact *string    `gorm:"type:varchar(32)" json:"customer_contact,omitempty"`
	OccupiedAt      *time.Time `json:"occupied_at,omitempty"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

// Occupant is the snapshot of the party sitting at an occupied table.
type Occupant struct {
	Name       string    `json:"name"`
	PartySize  int       `json:"party_size"`
	Contact    *string   `json:"contact,omitempty"`
	OccupiedAt time.Time `json:"occupied_at"`
}

// Occupant returns nil unless the table carries a full occupant snapshot.
func (t *Table) Occupant() *Occupant {
	if t.CustomerName == nil || t.PartySize == nil || t.OccupiedAt == nil {
		return nil
	}
	return &Occupant{
		Name:       *t.CustomerName,
		PartySize:  *t.PartySize,
		Contact:    t.CustomerContact,
		OccupiedAt: *t.OccupiedAt,
	}
}

func (t *Table) IsFree() bool {
	return t.Status == TableStatusFree
}

// FormatTableNumber -> "T<n>"
func FormatTableNumber(n int) string {
	return fmt.Sprintf("%s%d", TableNumberPrefix, n)
}

// ParseTableNumber returns the numeric part of "T<n>"; ok is false for anything else.
func ParseTableNumber(s string) (int, bool) {
	if !strings.HasPrefix(s, TableNumberPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, TableNumberPrefix))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
