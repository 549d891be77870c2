package sweep

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"meeting-room-backend/internal/booking"
	"meeting-room-backend/internal/clock"
	"meeting-room-backend/internal/device"
	"meeting-room-backend/internal/model"
	"meeting-room-backend/internal/notify"
	"meeting-room-backend/internal/store"
)

type recordingCommander struct {
	mu   sync.Mutex
	sent []device.Command
}

func (r *recordingCommander) Send(_ context.Context, _ string, cmd device.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, cmd)
	return nil
}

func (r *recordingCommander) Request(_ context.Context, _ string, _ device.Command) (string, error) {
	return "", device.ErrUnreachable
}

func (r *recordingCommander) count(cmd device.Command) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.sent {
		if c == cmd {
			n++
		}
	}
	return n
}

type sweepFixture struct {
	sweeper *Sweeper
	svc     *booking.Service
	store   store.Store
	clock   *clock.Fake
	cmd     *recordingCommander
	room    model.Room

	eventsMu sync.Mutex
	events   []notify.Event
}

func (f *sweepFixture) eventCount(from, to model.ReservationStatus) int {
	f.eventsMu.Lock()
	defer f.eventsMu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.OldStatus == from && e.NewStatus == to {
			n++
		}
	}
	return n
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(&model.Room{}, &model.Reservation{}, &model.RoomStatus{}))

	s := store.NewGormStore(testDB)
	require.NoError(t, s.SeedRooms(context.Background(), []model.Room{
		{Name: "Room C", Capacity: 8, Controller: "10.0.0.13:7700"},
	}))
	room, err := s.GetRoomByName(context.Background(), "Room C")
	require.NoError(t, err)

	clk := clock.NewFake(time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC))
	cmd := &recordingCommander{}
	bus := notify.NewBus(1, 64)
	svc := booking.NewService(s, clk, cmd, bus)
	t.Cleanup(svc.Timers().Stop)

	f := &sweepFixture{
		sweeper: New(s, svc, bus, clk, 5*time.Second),
		svc:     svc,
		store:   s,
		clock:   clk,
		cmd:     cmd,
		room:    room,
	}
	bus.Subscribe(func(e notify.Event) {
		f.eventsMu.Lock()
		f.events = append(f.events, e)
		f.eventsMu.Unlock()
	})
	busCtx, busCancel := context.WithCancel(context.Background())
	t.Cleanup(busCancel)
	bus.Start(busCtx)
	return f
}

func (f *sweepFixture) book(t *testing.T, start, end time.Time) model.Reservation {
	t.Helper()
	res, err := f.svc.Create(context.Background(), booking.CreateInput{
		RoomID: f.room.ID, UID: "uid-1", Name: "Park",
		StartTime: start, EndTime: end,
	})
	require.NoError(t, err)
	return res
}

func TestSweepConsistentStoreIsNoOp(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	res := f.book(t, now, now.Add(time.Hour))

	f.sweeper.SweepOnce(ctx)

	got, err := f.store.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusBooked, got.Status, "a reservation inside its window is untouched")
	assert.Zero(t, len(f.cmd.sent))
}

func TestSweepClosesNoShows(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	res := f.book(t, now, now.Add(30*time.Minute))

	f.clock.Advance(time.Hour)
	f.sweeper.SweepOnce(ctx)

	got, err := f.store.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedOut, got.Status)

	// Never checked in means climate was never enabled, so the sweep
	// owes the controller nothing.
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, len(f.cmd.sent))

	// The transition still goes out for display refresh; no user action
	// will ever announce a no-show.
	assert.Eventually(t, func() bool {
		return f.eventCount(model.StatusBooked, model.StatusCheckedOut) == 1
	}, time.Second, 5*time.Millisecond)

	f.eventsMu.Lock()
	defer f.eventsMu.Unlock()
	for _, e := range f.events {
		if e.OldStatus == model.StatusBooked && e.NewStatus == model.StatusCheckedOut {
			assert.Equal(t, res.ID, e.ReservationID)
			assert.Equal(t, f.room.ID, e.RoomID)
			assert.Equal(t, f.clock.Now(), e.At)
		}
	}
}

func TestSweepPublishesNoShowOnce(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	f.book(t, now, now.Add(30*time.Minute))

	f.clock.Advance(time.Hour)
	f.sweeper.SweepOnce(ctx)
	f.sweeper.SweepOnce(ctx)

	assert.Eventually(t, func() bool {
		return f.eventCount(model.StatusBooked, model.StatusCheckedOut) >= 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.eventCount(model.StatusBooked, model.StatusCheckedOut),
		"repeat sweeps must not re-announce a closed no-show")
}

func TestSweepChecksOutOverstay(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	res := f.book(t, now, now.Add(30*time.Minute))
	require.NoError(t, f.svc.CheckIn(ctx, res.ID, res.AuthCode))

	f.clock.Advance(time.Hour)
	f.sweeper.SweepOnce(ctx)

	got, err := f.store.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedOut, got.Status)
	assert.False(t, f.svc.Timers().Armed(res.ID))

	assert.Eventually(t, func() bool { return f.cmd.count(device.ClimateOff) == 1 },
		time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return f.cmd.count(device.LightOff) == 1 },
		time.Second, 5*time.Millisecond)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	res := f.book(t, now, now.Add(30*time.Minute))
	require.NoError(t, f.svc.CheckIn(ctx, res.ID, res.AuthCode))

	f.clock.Advance(time.Hour)
	f.sweeper.SweepOnce(ctx)
	f.sweeper.SweepOnce(ctx)
	f.sweeper.SweepOnce(ctx)

	got, err := f.store.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedOut, got.Status)

	assert.Eventually(t, func() bool { return f.cmd.count(device.ClimateOff) >= 1 },
		time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.cmd.count(device.ClimateOff), "repeat sweeps must not repeat the device-off")
	assert.Equal(t, 1, f.cmd.count(device.LightOff))
}

func TestSweepLeavesTerminalStatesAlone(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	canceled := f.book(t, now, now.Add(30*time.Minute))
	require.NoError(t, f.svc.Cancel(ctx, canceled.ID))

	f.clock.Advance(time.Hour)
	f.sweeper.SweepOnce(ctx)

	got, err := f.store.GetReservation(ctx, canceled.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, got.Status, "sweep never rewrites CANCELED")
}
