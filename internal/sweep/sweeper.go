// Package sweep reconciles reservation state against the clock. It is the
// resilience path for missed deadline timers: after a crash or clock skew
// the next pass performs the exact same checkout the timer would have.
package sweep

import (
	"context"
	"log"
	"time"

	"meeting-room-backend/internal/booking"
	"meeting-room-backend/internal/clock"
	"meeting-room-backend/internal/model"
	"meeting-room-backend/internal/notify"
	"meeting-room-backend/internal/store"
)

// Sweeper runs the periodic expiry pass.
type Sweeper struct {
	store    store.Store
	svc      *booking.Service
	bus      *notify.Bus
	clock    clock.Clock
	interval time.Duration
}

// New creates a Sweeper.
func New(s store.Store, svc *booking.Service, bus *notify.Bus, clk clock.Clock, interval time.Duration) *Sweeper {
	return &Sweeper{store: s, svc: svc, bus: bus, clock: clk, interval: interval}
}

// Run executes sweep passes until the context is canceled. A failing pass
// logs and waits for the next tick; it never crashes the process.
func (s *Sweeper) Run(ctx context.Context) {
	log.Println("Starting expiry sweeper...")

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Expiry sweeper shutting down.")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// SweepOnce performs one idempotent reconciliation pass. Sweeping an
// already-consistent store is a no-op.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("sweep pass panicked: %v", r)
		}
	}()

	now := s.clock.Now()

	// No-shows: BOOKED past its end was never checked in, so climate was
	// never enabled and no device command is owed. The transitions still
	// go out on the bus; nothing else announces them.
	noShows, err := s.store.ExpireNoShows(ctx, now)
	if err != nil {
		log.Printf("sweep: expiring no-shows failed: %v", err)
	} else if len(noShows) > 0 {
		log.Printf("sweep: closed %d no-show reservation(s)", len(noShows))
		for _, res := range noShows {
			s.bus.Publish(notify.Event{
				RoomID:        res.RoomID,
				ReservationID: res.ID,
				OldStatus:     model.StatusBooked,
				NewStatus:     model.StatusCheckedOut,
				At:            now,
			})
		}
	}

	// Overstays: CHECKED_IN past its end goes through the same checkout
	// path the deadline timer uses, which cancels any still-armed timer
	// and issues the single device-off.
	overdue, err := s.store.ListExpired(ctx, model.StatusCheckedIn, now)
	if err != nil {
		log.Printf("sweep: listing overdue check-ins failed: %v", err)
		return
	}
	for _, res := range overdue {
		if err := s.svc.CheckOut(ctx, res.ID, "", booking.ReasonSwept); err != nil {
			log.Printf("sweep: checkout of reservation %s failed: %v", res.ID, err)
		}
	}
}
