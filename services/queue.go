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
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// DefaultCountryCode is prefixed to 10-digit local contact numbers.
const DefaultCountryCode = "+91"

type WaitQueue struct {
	*core
	actions     *ActionLog
	allocator   *Allocator
	countryCode string
}

// EnqueueRequest is a party arriving. Actor is nil for self-service intake.
type EnqueueRequest struct {
	Name      string
	PartySize int
	Contact   string
	Actor     *Actor
}

type EnqueueResult struct {
	Party *models.QueuedParty `json:"party"`
	// AlreadyQueued is set when a party with the same contact was waiting;
	// Party is then the existing entry.
	AlreadyQueued bool      `json:"already_queued"`
	Seated        []Seating `json:"seated,omitempty"`
}

// PartySuggestion lists the free tables a waiting party would fit at,
// smallest first.
type PartySuggestion struct {
	models.QueuedParty
	IdealCapacity   int      `json:"ideal_capacity"`
	SuggestedTables []string `json:"suggested_tables"`
}

var errAlreadyQueued = errors.New("contact already queued")

// Enqueue adds a party to the back of the queue and runs an automatic
// allocator pass.
func (q *WaitQueue) Enqueue(ctx context.Context, req EnqueueRequest) (*EnqueueResult, error) {
	name := NormalizeName(req.Name)
	if name == "" {
		return nil, validationf("name is required")
	}
	if req.PartySize < 1 {
		return nil, validationf("party size must be at least 1, got %d", req.PartySize)
	}
	contact, err := NormalizeContact(req.Contact, q.countryCode)
	if err != nil {
		return nil, err
	}

	party := models.QueuedParty{
		Name:      name,
		PartySize: req.PartySize,
		Contact:   contact,
		ArrivedAt: q.now(),
	}
	err = q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if contact != nil {
			var count int64
			if err := tx.Model(&models.QueuedParty{}).Where("contact = ?", *contact).Count(&count).Error; err != nil {
				return storeErr("check queued contact", err)
			}
			if count > 0 {
				return errAlreadyQueued
			}
		}
		if err := tx.Create(&party).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errAlreadyQueued
			}
			return storeErr("enqueue party", err)
		}
		if req.Actor == nil {
			return nil
		}
		return q.actions.Append(tx, *req.Actor, models.ActionCustomerAddedManually, nil,
			fmt.Sprintf("%s (Party of %d)", party.Name, party.PartySize))
	})
	if errors.Is(err, errAlreadyQueued) {
		q.metrics.QueueJoin("already_queued")
		var existing models.QueuedParty
		if err := q.db.WithContext(ctx).Where("contact = ?", *contact).First(&existing).Error; err != nil {
			if isRecordNotFound(err) {
				// The other entry was seated or removed in the meantime.
				return nil, conflictf("contact %s was queued concurrently, try again", *contact)
			}
			return nil, storeErr("load queued party", err)
		}
		return &EnqueueResult{Party: &existing, AlreadyQueued: true}, nil
	}
	if err != nil {
		return nil, err
	}

	q.metrics.QueueJoin("queued")
	utils.InfoLogger.WithFields(logrus.Fields{
		"party_id":   party.ID,
		"party_size": party.PartySize,
	}).Info("Party joined the queue")
	q.broadcast(hub.EventQueue)

	return &EnqueueResult{
		Party:  &party,
		Seated: q.allocator.followUp(ctx, "party queued"),
	}, nil
}

// Dequeue removes a waiting party without seating it.
func (q *WaitQueue) Dequeue(ctx context.Context, id uint) error {
	res := q.db.WithContext(ctx).Delete(&models.QueuedParty{}, id)
	if res.Error != nil {
		return storeErr("dequeue party", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundf("party %d is not in the queue", id)
	}
	q.broadcast(hub.EventQueue)
	return nil
}

func (q *WaitQueue) Get(ctx context.Context, id uint) (*models.QueuedParty, error) {
	var party models.QueuedParty
	if err := q.db.WithContext(ctx).First(&party, id).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, notFoundf("party %d is not in the queue", id)
		}
		return nil, storeErr("get queued party", err)
	}
	return &party, nil
}

// PeekOrdered lists waiting parties in arrival order.
func (q *WaitQueue) PeekOrdered(ctx context.Context) ([]models.QueuedParty, error) {
	return queuedParties(q.db.WithContext(ctx))
}

func queuedParties(db *gorm.DB) ([]models.QueuedParty, error) {
	var parties []models.QueuedParty
	if err := db.Order("arrived_at ASC").Order("id ASC").Find(&parties).Error; err != nil {
		return nil, storeErr("list queue", err)
	}
	return parties, nil
}

// Suggestions pairs every waiting party with the free tables that can hold it.
func (q *WaitQueue) Suggestions(ctx context.Context) ([]PartySuggestion, error) {
	db := q.db.WithContext(ctx)
	parties, err := queuedParties(db)
	if err != nil {
		return nil, err
	}
	free, err := freeTables(db)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(free, func(i, j int) bool {
		return free[i].Capacity < free[j].Capacity
	})

	out := make([]PartySuggestion, 0, len(parties))
	for _, p := range parties {
		s := PartySuggestion{
			QueuedParty:     p,
			IdealCapacity:   IdealCapacity(p.PartySize),
			SuggestedTables: []string{},
		}
		for _, t := range free {
			if t.Capacity >= p.PartySize {
				s.SuggestedTables = append(s.SuggestedTables, t.TableNumber)
			}
		}
		out = append(out, s)
	}
	return out, nil
}

var titleCaser = cases.Title(language.Und)

// NormalizeName collapses whitespace and title-cases the name.
func NormalizeName(name string) string {
	return titleCaser.String(strings.Join(strings.Fields(name), " "))
}

// NormalizeContact returns nil for an empty contact. Ten local digits get
// countryCode prepended; numbers starting with + must carry 8 to 15 digits.
func NormalizeContact(raw, countryCode string) (*string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if cleaned == "" {
		return nil, nil
	}

	if strings.HasPrefix(cleaned, "+") {
		digits := cleaned[1:]
		if isDigits(digits) && len(digits) >= 8 && len(digits) <= 15 {
			return &cleaned, nil
		}
	} else if isDigits(cleaned) && len(cleaned) == 10 {
		full := countryCode + cleaned
		return &full, nil
	}
	return nil, validationf("invalid contact %q: use 10 digits or an international number starting with +", raw)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
