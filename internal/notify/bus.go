// Package notify fans lifecycle-change events out to interested
// collaborators (monitoring panels, display refresh) without blocking the
// transition that produced them.
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"meeting-room-backend/internal/model"
)

// Event describes one lifecycle transition.
type Event struct {
	RoomID        int64
	ReservationID string
	OldStatus     model.ReservationStatus
	NewStatus     model.ReservationStatus
	At            time.Time
}

// Subscriber receives lifecycle events. It runs on a bus worker goroutine.
type Subscriber func(Event)

// Bus delivers events through a small worker pool.
type Bus struct {
	size int
	jobs chan Event

	mu   sync.RWMutex
	subs []Subscriber
}

// NewBus creates a bus with the given worker count and queue depth.
func NewBus(size, buffer int) *Bus {
	return &Bus{
		size: size,
		jobs: make(chan Event, buffer),
	}
}

// Subscribe registers a subscriber for all future events.
func (b *Bus) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Start launches the worker goroutines.
func (b *Bus) Start(ctx context.Context) {
	for i := 0; i < b.size; i++ {
		go b.worker(ctx, i)
	}
}

func (b *Bus) worker(ctx context.Context, id int) {
	for {
		select {
		case ev := <-b.jobs:
			b.deliver(ev)
		case <-ctx.Done():
			log.Printf("notify worker %d shutting down", id)
			return
		}
	}
}

// Publish queues an event. A full queue drops the event with a warning
// instead of blocking the lifecycle transition that produced it.
func (b *Bus) Publish(ev Event) {
	select {
	case b.jobs <- ev:
	default:
		log.Printf("notify queue full, dropping event for reservation %s (%s -> %s)",
			ev.ReservationID, ev.OldStatus, ev.NewStatus)
	}
}

func (b *Bus) deliver(ev Event) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("notify subscriber panicked on event for reservation %s: %v", ev.ReservationID, r)
				}
			}()
			fn(ev)
		}()
	}
}
