package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restroflow/hub"
	"github.com/yeremiapane/restroflow/models"
	"github.com/yeremiapane/restroflow/utils"
	"gorm.io/gorm"
)

// maxLostRaces stops a pass that keeps losing to concurrent writers.
const maxLostRaces = 5

const (
	modeAuto   = "auto"
	modeManual = "manual"
	modeMulti  = "multi"
)

type Allocator struct {
	*core
	history          *HistoryLedger
	actions          *ActionLog
	settings         *SettingsStore
	notifier         Notifier
	allocateOnToggle bool
}

// Seating is one committed seating of a party at one or more tables.
type Seating struct {
	Party  models.QueuedParty   `json:"party"`
	Tables []models.Table       `json:"tables"`
	Record models.HistoryRecord `json:"record"`
}

func (s *Seating) TableNumbers() []string {
	numbers := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		numbers[i] = t.TableNumber
	}
	return numbers
}

// IdealCapacity rounds the party size up to the next even number.
func IdealCapacity(partySize int) int {
	return (partySize + 1) / 2 * 2
}

// Run performs an allocator pass regardless of the auto allocator setting.
func (a *Allocator) Run(ctx context.Context) ([]Seating, error) {
	a.metrics.Pass("manual")
	return a.pass(ctx)
}

// RunAutomatic performs a pass only while the auto allocator is enabled. The
// setting is read on every call.
func (a *Allocator) RunAutomatic(ctx context.Context) ([]Seating, error) {
	enabled, err := a.settings.AutoAllocatorEnabled(ctx)
	if err != nil {
		return nil, err
	}
	if !enabled {
		a.metrics.Pass("skipped")
		return nil, nil
	}
	a.metrics.Pass("automatic")
	return a.pass(ctx)
}

// SetAutoAllocator stores the setting. Switching it on may run a pass.
func (a *Allocator) SetAutoAllocator(ctx context.Context, enabled bool) ([]Seating, error) {
	changed, err := a.settings.SetAutoAllocator(ctx, enabled)
	if err != nil {
		return nil, err
	}
	if changed && enabled && a.allocateOnToggle {
		return a.followUp(ctx, "allocator enabled"), nil
	}
	return nil, nil
}

// ToggleAutoAllocator flips the setting and returns the new value.
func (a *Allocator) ToggleAutoAllocator(ctx context.Context) (bool, []Seating, error) {
	enabled, err := a.settings.Toggle(ctx)
	if err != nil {
		return false, nil, err
	}
	if enabled && a.allocateOnToggle {
		return enabled, a.followUp(ctx, "allocator toggled"), nil
	}
	return enabled, nil, nil
}

// followUp runs the automatic pass after a committed change. The change
// stands even when the pass fails, so the failure is only logged and whatever
// was seated before it is returned.
func (a *Allocator) followUp(ctx context.Context, trigger string) []Seating {
	seated, err := a.RunAutomatic(ctx)
	if err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"trigger": trigger,
			"seated":  len(seated),
		}).Errorf("Allocator pass failed: %v", err)
	}
	return seated
}

// pass seats parties in arrival order at free tables of exactly their ideal
// capacity, rescanning after each seating until a full scan seats nobody.
func (a *Allocator) pass(ctx context.Context) ([]Seating, error) {
	var (
		seated    []Seating
		lostRaces int
	)
	for {
		party, table, err := a.nextMatch(ctx)
		if err != nil {
			return seated, err
		}
		if party == nil {
			return seated, nil
		}

		s, err := a.seat(ctx, SystemActor, party.ID, []uint{table.ID}, models.ActionSeated)
		if err != nil {
			if !IsLostRace(err) {
				return seated, err
			}
			a.metrics.Conflict()
			lostRaces++
			utils.InfoLogger.WithFields(logrus.Fields{
				"party_id": party.ID,
				"table":    table.TableNumber,
			}).Debug("Allocator lost a race, rescanning: ", err)
			if lostRaces >= maxLostRaces {
				return seated, nil
			}
			continue
		}

		lostRaces = 0
		a.metrics.Seated(modeAuto)
		a.afterSeat(ctx, s)
		seated = append(seated, *s)
	}
}

func (a *Allocator) nextMatch(ctx context.Context) (*models.QueuedParty, *models.Table, error) {
	db := a.db.WithContext(ctx)
	parties, err := queuedParties(db)
	if err != nil || len(parties) == 0 {
		return nil, nil, err
	}
	tables, err := freeTables(db)
	if err != nil || len(tables) == 0 {
		return nil, nil, err
	}
	for i := range parties {
		ideal := IdealCapacity(parties[i].PartySize)
		for j := range tables {
			if tables[j].Capacity == ideal {
				return &parties[i], &tables[j], nil
			}
		}
	}
	return nil, nil, nil
}

// SeatOne seats a waiting party at one free table.
func (a *Allocator) SeatOne(ctx context.Context, actor Actor, partyID, tableID uint) (*Seating, error) {
	s, err := a.seat(ctx, actor, partyID, []uint{tableID}, models.ActionSeated)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			a.metrics.Conflict()
		}
		return nil, err
	}
	a.metrics.Seated(modeManual)
	a.afterSeat(ctx, s)
	return s, nil
}

// SeatAtMultiple seats one party across several free tables, all or nothing.
// The seating is one history record and one notification.
func (a *Allocator) SeatAtMultiple(ctx context.Context, actor Actor, partyID uint, tableIDs []uint) (*Seating, error) {
	if len(tableIDs) == 0 {
		return nil, validationf("select at least one table")
	}
	s, err := a.seat(ctx, actor, partyID, tableIDs, models.ActionSeatedManually)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			a.metrics.Conflict()
		}
		return nil, err
	}
	a.metrics.Seated(modeMulti)
	a.afterSeat(ctx, s)
	return s, nil
}

func (a *Allocator) seat(ctx context.Context, actor Actor, partyID uint, tableIDs []uint, action string) (*Seating, error) {
	lockOrder := make([]uint, len(tableIDs))
	copy(lockOrder, tableIDs)
	sort.Slice(lockOrder, func(i, j int) bool { return lockOrder[i] < lockOrder[j] })
	for i := 1; i < len(lockOrder); i++ {
		if lockOrder[i] == lockOrder[i-1] {
			return nil, validationf("table %d selected more than once", lockOrder[i])
		}
	}

	var s Seating
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var party models.QueuedParty
		if err := tx.Clauses(forUpdate).First(&party, partyID).Error; err != nil {
			if isRecordNotFound(err) {
				return notFoundf("party %d is not in the queue", partyID)
			}
			return storeErr("load party", err)
		}

		var locked []models.Table
		if err := tx.Clauses(forUpdate).Where("id IN ?", lockOrder).Order("id ASC").Find(&locked).Error; err != nil {
			return storeErr("lock tables", err)
		}
		byID := make(map[uint]models.Table, len(locked))
		for _, t := range locked {
			byID[t.ID] = t
		}
		var busy []string
		for _, id := range lockOrder {
			t, ok := byID[id]
			if !ok {
				return notFoundf("table %d not found", id)
			}
			if !t.IsFree() {
				busy = append(busy, t.TableNumber)
			}
		}
		if len(busy) > 0 {
			return conflictf("table %s is no longer free", strings.Join(busy, models.TableNumberSeparator))
		}

		now := a.now()
		details := fmt.Sprintf("%s (Party of %d)", party.Name, party.PartySize)
		tables := make([]models.Table, 0, len(tableIDs))
		for _, id := range tableIDs {
			t := byID[id]
			res := tx.Model(&models.Table{}).
				Where("id = ? AND status = ?", t.ID, models.TableStatusFree).
				Updates(map[string]interface{}{
					"status":           models.TableStatusOccupied,
					"customer_name":    party.Name,
					"party_size":       party.PartySize,
					"customer_contact": party.Contact,
					"occupied_at":      now,
				})
			if res.Error != nil {
				return storeErr("occupy table", res.Error)
			}
			if res.RowsAffected != 1 {
				return conflictf("table %s is no longer free", t.TableNumber)
			}

			t.Status = models.TableStatusOccupied
			t.CustomerName = &party.Name
			t.PartySize = &party.PartySize
			t.CustomerContact = party.Contact
			t.OccupiedAt = &now
			tables = append(tables, t)

			tableID := t.ID
			if err := a.actions.Append(tx, actor, action, &tableID, fmt.Sprintf("%s: %s", t.TableNumber, details)); err != nil {
				return err
			}
		}

		s = Seating{Party: party, Tables: tables}
		s.Record = models.HistoryRecord{
			Name:         party.Name,
			Contact:      party.Contact,
			PartySize:    party.PartySize,
			ArrivedAt:    party.ArrivedAt,
			SeatedAt:     now,
			TableNumbers: strings.Join(s.TableNumbers(), models.TableNumberSeparator),
		}
		if err := a.history.Record(tx, &s.Record); err != nil {
			return err
		}

		res := tx.Delete(&models.QueuedParty{}, party.ID)
		if res.Error != nil {
			return storeErr("remove party from queue", res.Error)
		}
		if res.RowsAffected != 1 {
			return notFoundf("party %d is not in the queue", partyID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// afterSeat runs once the seating is committed.
func (a *Allocator) afterSeat(ctx context.Context, s *Seating) {
	utils.InfoLogger.WithFields(logrus.Fields{
		"party_id":   s.Party.ID,
		"party_size": s.Party.PartySize,
		"tables":     s.Record.TableNumbers,
	}).Info("Party seated")

	if s.Party.Contact != nil && a.notifier != nil {
		msg := seatedMessage(s.Party.Name, s.TableNumbers())
		if err := a.notifier.Notify(ctx, *s.Party.Contact, msg); err != nil {
			nerr := &Error{Kind: ErrNotification, Reason: "seating notification failed", Cause: err}
			utils.ErrorLogger.WithFields(logrus.Fields{
				"party_id": s.Party.ID,
			}).Warn(nerr.Error())
			a.metrics.NotificationFailed()
		}
	}
	a.broadcast(hub.EventTables, hub.EventQueue)
}
