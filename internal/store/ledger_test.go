package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"vehicle-counter-go/internal/models"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "counts.db"))
	require.NoError(t, err)
	l.loc = time.UTC
	t.Cleanup(func() { l.Close() })
	return l
}

func event(id, camera, counter string, dir models.Direction, at time.Time) models.CountEvent {
	return models.CountEvent{
		ID:         id,
		Camera:     camera,
		Zone:       "b",
		Counter:    counter,
		Direction:  dir,
		InCounts:   1,
		ClassWise:  map[string]models.Tally{"car": {In: 1}},
		OccurredAt: at,
	}
}

func TestLedgerMigrates(t *testing.T) {
	l := openTestLedger(t)

	v, err := l.Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, v)
	require.NoError(t, l.Ping(context.Background()))
}

func TestLedgerReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.db")
	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err, "no pending migrations on reopen")
	require.NoError(t, l.Close())
}

func TestLedgerDailyTotals(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	events := []models.CountEvent{
		event("e1", "cam_b-in", "counter1", models.DirectionIn, day),
		event("e2", "cam_b-in", "counter1", models.DirectionIn, day.Add(time.Hour)),
		event("e3", "cam_b-in", "counter2", models.DirectionOut, day.Add(2*time.Hour)),
		event("e4", "cam_b-out", "counter1", models.DirectionOut, day.Add(3*time.Hour)),
		event("e5", "cam_b-in", "counter1", models.DirectionIn, day.AddDate(0, 0, 1)),
	}
	// two tracks crossed counter2 in the same frame
	both := event("e6", "cam_b-in", "counter2", models.DirectionIn, day.Add(4*time.Hour))
	both.Delta = 2
	events = append(events, both)
	for _, ev := range events {
		require.NoError(t, l.InsertCountEvent(ctx, ev))
	}
	require.NoError(t, l.InsertCountEvent(ctx, events[0]), "duplicate ids are ignored")

	got, err := l.DailyTotals(ctx, "cam_b-in", day)
	require.NoError(t, err)
	want := []DailyTotal{
		{Camera: "cam_b-in", Zone: "b", Counter: "counter1", In: 2},
		{Camera: "cam_b-in", Zone: "b", Counter: "counter2", In: 2, Out: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DailyTotals mismatch (-want +got):\n%s", diff)
	}

	all, err := l.DailyTotals(ctx, "", day)
	require.NoError(t, err)
	require.Len(t, all, 3)

	none, err := l.DailyTotals(ctx, "cam_b-in", day.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestLedgerDeviceEvents(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	_, _, err := l.LastDeviceStatus(ctx, "cam_b-in")
	require.ErrorIs(t, err, sql.ErrNoRows)

	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, l.InsertDeviceEvent(ctx, models.DeviceStatusEvent{Camera: "cam_b-in", Detail: models.DeviceOnline, OccurredAt: at}))
	require.NoError(t, l.InsertDeviceEvent(ctx, models.DeviceStatusEvent{Camera: "cam_b-in", Detail: models.DeviceOffline, OccurredAt: at.Add(time.Minute)}))

	detail, when, err := l.LastDeviceStatus(ctx, "cam_b-in")
	require.NoError(t, err)
	require.Equal(t, models.DeviceOffline, detail)
	require.True(t, at.Add(time.Minute).Equal(when))
}
