package telemetry

import (
	"context"
	"errors"
	"log"
	"time"

	"meeting-room-backend/internal/clock"
	"meeting-room-backend/internal/device"
	"meeting-room-backend/internal/store"
)

// Ingestor polls every room controller for a status line and upserts the
// RoomStatus snapshot. It runs independently of reservation state: the
// snapshot reflects the hardware, not the calendar.
type Ingestor struct {
	store     store.Store
	commander device.Commander
	clock     clock.Clock
	interval  time.Duration
}

// NewIngestor creates an Ingestor.
func NewIngestor(s store.Store, cmd device.Commander, clk clock.Clock, interval time.Duration) *Ingestor {
	return &Ingestor{store: s, commander: cmd, clock: clk, interval: interval}
}

// Run polls until the context is canceled.
func (i *Ingestor) Run(ctx context.Context) {
	log.Println("Starting telemetry ingestor...")

	i.PollOnce(ctx)

	timer := time.NewTimer(i.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Telemetry ingestor shutting down.")
			return
		case <-timer.C:
			i.PollOnce(ctx)
			timer.Reset(i.interval)
		}
	}
}

// PollOnce requests one status line from each configured controller. An
// unreachable controller or a garbage line is logged and skipped; neither
// stops the loop or reaches a caller.
func (i *Ingestor) PollOnce(ctx context.Context) {
	rooms, err := i.store.ListRooms(ctx)
	if err != nil {
		log.Printf("telemetry: room list failed: %v", err)
		return
	}

	for _, room := range rooms {
		if room.Controller == "" {
			continue
		}
		line, err := i.commander.Request(ctx, room.Controller, device.StatusRequest)
		if err != nil {
			if errors.Is(err, device.ErrUnreachable) {
				log.Printf("warning: telemetry poll of room %s: %v", room.Name, err)
				continue
			}
			log.Printf("telemetry poll of room %s failed: %v", room.Name, err)
			continue
		}

		if err := i.Ingest(ctx, room.ID, line); err != nil {
			log.Printf("warning: telemetry line from room %s discarded: %v (line %q)", room.Name, err, line)
		}
	}
}

// Ingest parses one raw status line and upserts whatever it recovered.
func (i *Ingestor) Ingest(ctx context.Context, roomID int64, line string) error {
	reading, err := Parse(line)
	if err != nil {
		return err
	}

	patch := store.StatusPatch{
		RoomID:     roomID,
		TempC:      reading.TempC,
		Humidity:   reading.Humidity,
		ClimateOn:  reading.ClimateOn,
		State:      reading.State,
		LightOn:    reading.LightOn,
		ObservedAt: i.clock.Now(),
	}
	return i.store.UpsertRoomStatus(ctx, patch)
}
