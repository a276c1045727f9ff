package services

import (
	"time"

	"github.com/yeremiapane/restroflow/hub"
	"github.com/yeremiapane/restroflow/metrics"
	"gorm.io/gorm"
)

// ChangeNotifier receives a signal after every committed mutation that a
// dashboard can see.
type ChangeNotifier interface {
	Broadcast(event hub.Event)
}

type Options struct {
	Notifier Notifier
	Changes  ChangeNotifier
	Metrics  *metrics.Metrics
	Clock    func() time.Time
	// AllocateOnToggle runs an automatic pass when the allocator is switched on.
	AllocateOnToggle   bool
	DefaultCountryCode string
	// Location defines "today" for analytics. Timestamps are stored in UTC.
	Location *time.Location
}

// core is shared by every component of one Restaurant.
type core struct {
	db      *gorm.DB
	clock   func() time.Time
	changes ChangeNotifier
	metrics *metrics.Metrics
}

func (c *core) now() time.Time {
	return c.clock().UTC()
}

func (c *core) broadcast(events ...hub.Event) {
	if c.changes == nil {
		return
	}
	for _, e := range events {
		c.changes.Broadcast(e)
	}
}

// Restaurant wires the seating engine together over one store.
type Restaurant struct {
	DB        *gorm.DB
	Tables    *TableRegistry
	Queue     *WaitQueue
	History   *HistoryLedger
	Actions   *ActionLog
	Settings  *SettingsStore
	Allocator *Allocator
	Waiters   *WaiterDirectory

	core     *core
	location *time.Location
}

func NewRestaurant(db *gorm.DB, opts Options) *Restaurant {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultCountryCode == "" {
		opts.DefaultCountryCode = DefaultCountryCode
	}

	c := &core{
		db:      db,
		clock:   opts.Clock,
		changes: opts.Changes,
		metrics: opts.Metrics,
	}

	history := &HistoryLedger{core: c}
	actions := &ActionLog{core: c}
	settings := &SettingsStore{core: c}
	allocator := &Allocator{
		core:             c,
		history:          history,
		actions:          actions,
		settings:         settings,
		notifier:         opts.Notifier,
		allocateOnToggle: opts.AllocateOnToggle,
	}

	return &Restaurant{
		DB:        db,
		History:   history,
		Actions:   actions,
		Settings:  settings,
		Allocator: allocator,
		Tables: &TableRegistry{
			core:      c,
			history:   history,
			actions:   actions,
			allocator: allocator,
		},
		Queue: &WaitQueue{
			core:        c,
			actions:     actions,
			allocator:   allocator,
			countryCode: opts.DefaultCountryCode,
		},
		Waiters:  &WaiterDirectory{core: c, actions: actions},
		core:     c,
		location: opts.Location,
	}
}

// Location is the restaurant's local time zone.
func (r *Restaurant) Location() *time.Location {
	return r.location
}
