package telemetry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"meeting-room-backend/internal/clock"
	"meeting-room-backend/internal/db"
	"meeting-room-backend/internal/model"
	"meeting-room-backend/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(testDB))
	return store.NewGormStore(testDB)
}

func TestIngestUpsertsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	clk := clock.NewFake(time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC))
	ingestor := NewIngestor(s, nil, clk, time.Second)

	err := ingestor.Ingest(ctx, 7, "TEMP:24.1C HUM:48.0% ENABLE:1 STATE:COOLING LIGHT:ON")
	require.NoError(t, err)

	status, err := s.GetRoomStatus(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 24.1, status.TempC)
	assert.Equal(t, 48.0, status.Humidity)
	assert.True(t, status.ClimateOn)
	assert.Equal(t, "COOLING", status.State)
	assert.True(t, status.LightOn)
	assert.WithinDuration(t, clk.Now(), status.ObservedAt, time.Second)
}

func TestIngestPartialLineKeepsPriorFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	clk := clock.NewFake(time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC))
	ingestor := NewIngestor(s, nil, clk, time.Second)

	require.NoError(t, ingestor.Ingest(ctx, 7, "TEMP:24.1C HUM:48.0% ENABLE:1 STATE:COOLING LIGHT:ON"))

	// A later line with no TEMP token must leave the prior temperature
	// untouched while updating everything it did recover.
	clk.Advance(5 * time.Second)
	require.NoError(t, ingestor.Ingest(ctx, 7, "HUM:52.5% ENABLE:0 STATE:DISABLED LIGHT:OFF"))

	status, err := s.GetRoomStatus(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 24.1, status.TempC, "temperature should survive the partial line")
	assert.Equal(t, 52.5, status.Humidity)
	assert.False(t, status.ClimateOn)
	assert.Equal(t, "DISABLED", status.State)
	assert.False(t, status.LightOn)
	assert.WithinDuration(t, clk.Now(), status.ObservedAt, time.Second)
}

func TestIngestDiscardsUnusableLine(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	clk := clock.NewFake(time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC))
	ingestor := NewIngestor(s, nil, clk, time.Second)

	err := ingestor.Ingest(ctx, 7, "STATE:COOLING LIGHT:ON")
	assert.ErrorIs(t, err, ErrNoUsableFields)

	_, err = s.GetRoomStatus(ctx, 7)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIngestIsIndependentOfReservations(t *testing.T) {
	// Telemetry touches RoomStatus only; no reservation rows are needed or
	// created along the way.
	ctx := context.Background()
	s := newTestStore(t)
	clk := clock.NewFake(time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC))
	ingestor := NewIngestor(s, nil, clk, time.Second)

	require.NoError(t, ingestor.Ingest(ctx, 3, "TEMP:20.0C HUM:40.0% ENABLE:0 STATE:IDLE LIGHT:OFF"))

	none, err := s.ListByStatus(ctx, model.StatusBooked)
	require.NoError(t, err)
	assert.Empty(t, none)
}
