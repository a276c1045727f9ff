package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restroflow/database"
	"github.com/yeremiapane/restroflow/hub"
	"github.com/yeremiapane/restroflow/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var admin = AdminActor("admin")

type sentNotification struct {
	Contact string
	Message string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, contact, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{Contact: contact, Message: message})
	return n.err
}

func (n *recordingNotifier) Sent() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

type recordingChanges struct {
	mu     sync.Mutex
	events []hub.Event
}

func (r *recordingChanges) Broadcast(event hub.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingChanges) Events() []hub.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]hub.Event(nil), r.events...)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	R        *Restaurant
	DB       *gorm.DB
	Notifier *recordingNotifier
	Changes  *recordingChanges
	Clock    *testClock
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db, false))
	return db
}

func newFixture(t *testing.T, configure ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		DB:       setupTestDB(t),
		Notifier: &recordingNotifier{},
		Changes:  &recordingChanges{},
		Clock:    &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	opts := Options{
		Notifier:         f.Notifier,
		Changes:          f.Changes,
		Clock:            f.Clock.Now,
		AllocateOnToggle: true,
		Location:         time.UTC,
	}
	for _, fn := range configure {
		fn(&opts)
	}
	f.R = NewRestaurant(f.DB, opts)
	return f
}

func (f *fixture) setAutoAllocator(t *testing.T, enabled bool) {
	t.Helper()
	_, err := f.R.Settings.SetAutoAllocator(context.Background(), enabled)
	require.NoError(t, err)
}

// addTables creates one table per capacity, numbered in order.
func (f *fixture) addTables(t *testing.T, capacities ...int) []models.Table {
	t.Helper()
	tables := make([]models.Table, 0, len(capacities))
	for _, c := range capacities {
		table, err := f.R.Tables.AddTable(context.Background(), admin, c)
		require.NoError(t, err)
		tables = append(tables, *table)
	}
	return tables
}

func (f *fixture) enqueue(t *testing.T, name string, size int, contact string) *EnqueueResult {
	t.Helper()
	res, err := f.R.Queue.Enqueue(context.Background(), EnqueueRequest{Name: name, PartySize: size, Contact: contact})
	require.NoError(t, err)
	f.Clock.Advance(time.Minute)
	return res
}

func (f *fixture) table(t *testing.T, id uint) models.Table {
	t.Helper()
	table, err := f.R.Tables.Get(context.Background(), id)
	require.NoError(t, err)
	return *table
}

func (f *fixture) actions(t *testing.T, action string) []models.ActionLogEntry {
	t.Helper()
	var entries []models.ActionLogEntry
	require.NoError(t, f.DB.Where("action = ?", action).Order("id ASC").Find(&entries).Error)
	return entries
}

// requireSnapshotInvariant checks every table: occupied exactly when it holds
// an occupant.
func (f *fixture) requireSnapshotInvariant(t *testing.T) {
	t.Helper()
	tables, err := f.R.Tables.List(context.Background())
	require.NoError(t, err)
	for _, tbl := range tables {
		occupied := tbl.Status == models.TableStatusOccupied
		require.Equal(t, occupied, tbl.Occupant() != nil, "table %s status %s", tbl.TableNumber, tbl.Status)
		if !occupied {
			require.Nil(t, tbl.CustomerName)
			require.Nil(t, tbl.PartySize)
			require.Nil(t, tbl.CustomerContact)
			require.Nil(t, tbl.OccupiedAt)
		}
	}
}
