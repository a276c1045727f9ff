package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restroflow/models"
	"gorm.io/gorm"
)

func TestIdealCapacity(t *testing.T) {
	for size, want := range map[int]int{1: 2, 2: 2, 3: 4, 4: 4, 5: 6, 6: 6, 7: 8} {
		assert.Equal(t, want, IdealCapacity(size), "party of %d", size)
	}
}

func TestAutoPassSeatsExactCapacityOnly(t *testing.T) {
	t.Run("ideal table free", func(t *testing.T) {
		f := newFixture(t)
		f.addTables(t, 2, 4, 6)

		res := f.enqueue(t, "Trio", 3, "")
		require.Len(t, res.Seated, 1)
		assert.Equal(t, "T2", res.Seated[0].Tables[0].TableNumber)
		assert.Equal(t, 4, res.Seated[0].Tables[0].Capacity)
	})

	t.Run("no ideal table", func(t *testing.T) {
		f := newFixture(t)
		f.addTables(t, 2, 6)

		res := f.enqueue(t, "Trio", 3, "")
		assert.Empty(t, res.Seated)

		parties, err := f.R.Queue.PeekOrdered(context.Background())
		require.NoError(t, err)
		assert.Len(t, parties, 1, "a bigger free table is never used automatically")
		f.requireSnapshotInvariant(t)
	})
}

func TestAutoPassSkipsUnmatchedParties(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setAutoAllocator(t, false)
	f.addTables(t, 2, 2)

	f.enqueue(t, "Five", 5, "")
	f.enqueue(t, "Pair", 2, "")
	f.enqueue(t, "Solo", 1, "")
	f.enqueue(t, "Duo", 2, "")

	seated, err := f.R.Allocator.Run(ctx)
	require.NoError(t, err)
	require.Len(t, seated, 2)
	assert.Equal(t, "Pair", seated[0].Party.Name)
	assert.Equal(t, "T1", seated[0].Tables[0].TableNumber)
	assert.Equal(t, "Solo", seated[1].Party.Name)
	assert.Equal(t, "T2", seated[1].Tables[0].TableNumber)

	parties, err := f.R.Queue.PeekOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, parties, 2)
	assert.Equal(t, "Five", parties[0].Name)
	assert.Equal(t, "Duo", parties[1].Name)

	logs := f.actions(t, models.ActionSeated)
	require.Len(t, logs, 2)
	assert.Nil(t, logs[0].WaiterID, "automatic seatings are attributed to the admin")
}

func TestAutoAllocatorDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setAutoAllocator(t, false)
	f.addTables(t, 4)

	res := f.enqueue(t, "Four", 4, "")
	assert.Empty(t, res.Seated)

	seated, err := f.R.Allocator.RunAutomatic(ctx)
	require.NoError(t, err)
	assert.Empty(t, seated)

	// The explicit trigger ignores the setting.
	seated, err = f.R.Allocator.Run(ctx)
	require.NoError(t, err)
	require.Len(t, seated, 1)
	assert.Equal(t, "Four", seated[0].Party.Name)
}

func TestToggleAutoAllocator(t *testing.T) {
	ctx := context.Background()

	t.Run("allocates when switched on", func(t *testing.T) {
		f := newFixture(t)
		f.setAutoAllocator(t, false)
		f.addTables(t, 2)
		f.enqueue(t, "Waiting", 2, "")

		enabled, seated, err := f.R.Allocator.ToggleAutoAllocator(ctx)
		require.NoError(t, err)
		assert.True(t, enabled)
		require.Len(t, seated, 1)

		enabled, seated, err = f.R.Allocator.ToggleAutoAllocator(ctx)
		require.NoError(t, err)
		assert.False(t, enabled)
		assert.Empty(t, seated)

		on, err := f.R.Settings.AutoAllocatorEnabled(ctx)
		require.NoError(t, err)
		assert.False(t, on)
	})

	t.Run("switching on without a pass", func(t *testing.T) {
		f := newFixture(t, func(o *Options) { o.AllocateOnToggle = false })
		f.setAutoAllocator(t, false)
		f.addTables(t, 2)
		f.enqueue(t, "Waiting", 2, "")

		seated, err := f.R.Allocator.SetAutoAllocator(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, seated)

		parties, err := f.R.Queue.PeekOrdered(ctx)
		require.NoError(t, err)
		assert.Len(t, parties, 1)
	})
}

func TestSeatOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setAutoAllocator(t, false)
	tables := f.addTables(t, 6)
	party := f.enqueue(t, "manual", 2, "9123456789").Party

	waiter := WaiterActor(3, "joe")
	s, err := f.R.Allocator.SeatOne(ctx, waiter, party.ID, tables[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "T1", s.Record.TableNumbers)
	assert.Equal(t, s.Record.SeatedAt, *s.Tables[0].OccupiedAt)

	got := f.table(t, tables[0].ID)
	assert.Equal(t, models.TableStatusOccupied, got.Status)
	assert.Equal(t, "Manual", *got.CustomerName)
	assert.Equal(t, 2, *got.PartySize)
	assert.Equal(t, "+919123456789", *got.CustomerContact)

	logs := f.actions(t, models.ActionSeated)
	require.Len(t, logs, 1)
	assert.Equal(t, uint(3), *logs[0].WaiterID)

	sent := f.Notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "+919123456789", sent[0].Contact)
	assert.Contains(t, sent[0].Message, "T1")

	_, err = f.R.Queue.Get(ctx, party.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	f.requireSnapshotInvariant(t)
}

func TestSeatOneErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setAutoAllocator(t, false)
	tables := f.addTables(t, 2, 2)
	a := f.enqueue(t, "A", 2, "").Party
	b := f.enqueue(t, "B", 2, "").Party

	_, err := f.R.Allocator.SeatOne(ctx, admin, 999, tables[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.R.Allocator.SeatOne(ctx, admin, a.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.R.Allocator.SeatOne(ctx, admin, a.ID, tables[0].ID)
	require.NoError(t, err)

	_, err = f.R.Allocator.SeatOne(ctx, admin, b.ID, tables[0].ID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.R.Tables.Block(ctx, admin, tables[1].ID)
	require.NoError(t, err)
	_, err = f.R.Allocator.SeatOne(ctx, admin, b.ID, tables[1].ID)
	assert.ErrorIs(t, err, ErrConflict)

	// B is still waiting after both failures.
	_, err = f.R.Queue.Get(ctx, b.ID)
	assert.NoError(t, err)
	f.requireSnapshotInvariant(t)
}

func TestConcurrentSeatingOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setAutoAllocator(t, false)
	tables := f.addTables(t, 4)
	a := f.enqueue(t, "A", 4, "").Party
	b := f.enqueue(t, "B", 4, "").Party

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uint{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, partyID uint) {
			defer wg.Done()
			_, errs[i] = f.R.Allocator.SeatOne(ctx, admin, partyID, tables[0].ID)
		}(i, id)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	var history int64
	require.NoError(t, f.DB.Model(&models.HistoryRecord{}).Count(&history).Error)
	assert.Equal(t, int64(1), history)

	parties, err := f.R.Queue.PeekOrdered(ctx)
	require.NoError(t, err)
	assert.Len(t, parties, 1, "the losing party keeps its place")
	f.requireSnapshotInvariant(t)
}

func TestSeatAtMultiple(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setAutoAllocator(t, false)
	tables := f.addTables(t, 4, 4, 2)
	party := f.enqueue(t, "Wedding Party", 8, "9988776655").Party

	s, err := f.R.Allocator.SeatAtMultiple(ctx, admin, party.ID, []uint{tables[1].ID, tables[0].ID})
	require.NoError(t, err)
	assert.Equal(t, "T2, T1", s.Record.TableNumbers)

	var records []models.HistoryRecord
	require.NoError(t, f.DB.Find(&records).Error)
	require.Len(t, records, 1, "one seating is one record")
	assert.Equal(t, []string{"T2", "T1"}, records[0].Tables())
	assert.Equal(t, 8, records[0].PartySize)

	logs := f.actions(t, models.ActionSeatedManually)
	require.Len(t, logs, 2)
	assert.Equal(t, tables[1].ID, *logs[0].TableID)
	assert.Equal(t, tables[0].ID, *logs[1].TableID)

	sent := f.Notifier.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Message, "T2, T1")

	for _, id := range []uint{tables[0].ID, tables[1].ID} {
		got := f.table(t, id)
		assert.Equal(t, models.TableStatusOccupied, got.Status)
		assert.Equal(t, "Wedding Party", *got.CustomerName)
	}
	assert.Equal(t, models.TableStatusFree, f.table(t, tables[2].ID).Status)

	// Freeing the first table closes the shared record.
	_, err = f.R.Tables.Free(ctx, admin, tables[1].ID)
	require.NoError(t, err)
	require.NoError(t, f.DB.First(&records[0], records[0].ID).Error)
	assert.NotNil(t, records[0].DepartedAt)
	f.requireSnapshotInvariant(t)
}

func TestSeatAtMultipleIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setAutoAllocator(t, false)
	tables := f.addTables(t, 4, 4)
	first := f.enqueue(t, "First", 4, "").Party
	group := f.enqueue(t, "Group", 8, "").Party

	_, err := f.R.Allocator.SeatOne(ctx, admin, first.ID, tables[1].ID)
	require.NoError(t, err)

	_, err = f.R.Allocator.SeatAtMultiple(ctx, admin, group.ID, []uint{tables[0].ID, tables[1].ID})
	assert.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, models.TableStatusFree, f.table(t, tables[0].ID).Status)
	_, err = f.R.Queue.Get(ctx, group.ID)
	assert.NoError(t, err)
	assert.Empty(t, f.actions(t, models.ActionSeatedManually))

	_, err = f.R.Allocator.SeatAtMultiple(ctx, admin, group.ID, nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.R.Allocator.SeatAtMultiple(ctx, admin, group.ID, []uint{tables[0].ID, tables[0].ID})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNotificationFailureDoesNotFailSeating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.Notifier.err = errors.New("gateway down")
	f.addTables(t, 2)

	res, err := f.R.Queue.Enqueue(ctx, EnqueueRequest{Name: "Zoya", PartySize: 2, Contact: "9000000000"})
	require.NoError(t, err)
	require.Len(t, res.Seated, 1)
	assert.Len(t, f.Notifier.Sent(), 1)

	var history int64
	require.NoError(t, f.DB.Model(&models.HistoryRecord{}).Count(&history).Error)
	assert.Equal(t, int64(1), history)
}

func TestNoNotificationWithoutContact(t *testing.T) {
	f := newFixture(t)
	f.addTables(t, 2)
	res := f.enqueue(t, "Anon", 2, "")
	require.Len(t, res.Seated, 1)
	assert.Empty(t, f.Notifier.Sent())
}

func TestFreedTableReseatsWaitingParty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tables := f.addTables(t, 2)

	f.enqueue(t, "One", 2, "")
	f.enqueue(t, "Two", 1, "")
	assert.Equal(t, "One", *f.table(t, tables[0].ID).CustomerName)

	res, err := f.R.Tables.Free(ctx, admin, tables[0].ID)
	require.NoError(t, err)
	require.Len(t, res.Seated, 1)
	assert.Equal(t, "Two", *f.table(t, tables[0].ID).CustomerName)

	var records []models.HistoryRecord
	require.NoError(t, f.DB.Order("id ASC").Find(&records).Error)
	require.Len(t, records, 2)
	assert.NotNil(t, records[0].DepartedAt)
	assert.Nil(t, records[1].DepartedAt)
}

// failQueueReads makes every later read of the wait queue fail, which breaks
// allocator passes without touching the writes before them.
func failQueueReads(t *testing.T, f *fixture) {
	t.Helper()
	err := f.DB.Callback().Query().Before("gorm:query").Register("test:fail_queue_reads", func(db *gorm.DB) {
		if db.Statement.Table == (models.QueuedParty{}).TableName() {
			db.AddError(errors.New("queue unavailable"))
		}
	})
	require.NoError(t, err)
}

func TestFailedFollowUpPassKeepsCommittedChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tables := f.addTables(t, 2, 4)
	_, err := f.R.Tables.Block(ctx, admin, tables[0].ID)
	require.NoError(t, err)
	f.setAutoAllocator(t, false)
	failQueueReads(t, f)

	enabled, seated, err := f.R.Allocator.ToggleAutoAllocator(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Empty(t, seated)
	on, err := f.R.Settings.AutoAllocatorEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, on)

	res, err := f.R.Tables.Free(ctx, admin, tables[0].ID)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.TableStatusFree, f.table(t, tables[0].ID).Status)

	queued, err := f.R.Queue.Enqueue(ctx, EnqueueRequest{Name: "Asha", PartySize: 2})
	require.NoError(t, err)
	require.NotNil(t, queued.Party)
	assert.NotZero(t, queued.Party.ID)

	_, err = f.R.Settings.SetAutoAllocator(ctx, false)
	require.NoError(t, err)
	seated, err = f.R.Allocator.SetAutoAllocator(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, seated)

	// Explicit runs still report the failure.
	_, err = f.R.Allocator.Run(ctx)
	assert.ErrorIs(t, err, ErrStore)
}
