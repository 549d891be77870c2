package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"meeting-room-backend/internal/model"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(2, 8)

	var mu sync.Mutex
	counts := make(map[string]int)
	for _, name := range []string{"panel", "display"} {
		name := name
		bus.Subscribe(func(Event) {
			mu.Lock()
			counts[name]++
			mu.Unlock()
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)

	bus.Publish(Event{ReservationID: "r1", NewStatus: model.StatusCheckedIn})
	bus.Publish(Event{ReservationID: "r1", NewStatus: model.StatusCheckedOut})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return counts["panel"] == 2 && counts["display"] == 2
	}, time.Second, 5*time.Millisecond)
}

func TestBusPublishNeverBlocks(t *testing.T) {
	// No workers started and a tiny queue: overflow is dropped, not blocked.
	bus := NewBus(1, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(Event{ReservationID: "r1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}

func TestBusSurvivesPanickingSubscriber(t *testing.T) {
	bus := NewBus(1, 8)

	bus.Subscribe(func(Event) { panic("subscriber bug") })

	var mu sync.Mutex
	received := 0
	bus.Subscribe(func(Event) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)

	bus.Publish(Event{ReservationID: "r1"})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received == 1
	}, time.Second, 5*time.Millisecond)
}
