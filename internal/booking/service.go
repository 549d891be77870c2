// Package booking implements the reservation lifecycle and drives the room
// environment alongside it: checking in enables climate and lighting, every
// path out of CHECKED_IN disables them exactly once.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"meeting-room-backend/internal/clock"
	"meeting-room-backend/internal/device"
	"meeting-room-backend/internal/model"
	"meeting-room-backend/internal/notify"
	"meeting-room-backend/internal/store"
	"meeting-room-backend/internal/timer"
)

// CheckOutReason records which actor ended a session.
type CheckOutReason string

const (
	ReasonManual CheckOutReason = "manual" // user at the kiosk, code re-confirmed
	ReasonAuto   CheckOutReason = "auto"   // deadline timer fired
	ReasonSwept  CheckOutReason = "swept"  // expiry sweeper reconciliation
)

const codeAttempts = 64

// deviceSendTimeout bounds a single command exchange. It must never gate a
// lifecycle transition; commands are dispatched on their own goroutine.
const deviceSendTimeout = 3 * time.Second

// Service is the lifecycle state machine. All transitions for a room are
// serialized by a per-room lock so the kiosk, the timer callback and the
// sweeper cannot race each other into a double state write or a duplicate
// device command.
type Service struct {
	store     store.Store
	clock     clock.Clock
	commander device.Commander
	bus       *notify.Bus
	timers    *timer.Manager

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex

	sessMu   sync.Mutex
	sessions map[int64]string // roomID -> checked-in reservation id

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService wires the state machine to its collaborators. The deadline
// timer manager is owned here: its fire callback is the auto-checkout path.
func NewService(s store.Store, clk clock.Clock, cmd device.Commander, bus *notify.Bus) *Service {
	svc := &Service{
		store:     s,
		clock:     clk,
		commander: cmd,
		bus:       bus,
		locks:     make(map[int64]*sync.Mutex),
		sessions:  make(map[int64]string),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	svc.timers = timer.NewManager(clk, svc.autoCheckOut)
	return svc
}

// Timers exposes the deadline timer manager, mainly for shutdown and tests.
func (s *Service) Timers() *timer.Manager {
	return s.timers
}

// ActiveSession returns the checked-in reservation id for a room, if any.
func (s *Service) ActiveSession(roomID int64) (string, bool) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	id, ok := s.sessions[roomID]
	return id, ok
}

func (s *Service) roomLock(roomID int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[roomID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[roomID] = mu
	}
	return mu
}

// CreateInput is a booking request.
type CreateInput struct {
	RoomID    int64
	UID       string
	Name      string
	Company   string
	StartTime time.Time
	EndTime   time.Time
}

// Create validates the request, generates a fresh auth code and inserts the
// reservation as BOOKED. The conflict check and the insert run in one store
// transaction; the room lock additionally serializes concurrent bookings in
// this process.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Reservation, error) {
	if in.UID == "" || in.Name == "" {
		return model.Reservation{}, fmt.Errorf("%w: requester id and name are required", ErrValidation)
	}
	start, end := in.StartTime.UTC(), in.EndTime.UTC()
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return model.Reservation{}, fmt.Errorf("%w: start must precede end", ErrValidation)
	}
	if _, err := s.store.GetRoom(ctx, in.RoomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Reservation{}, fmt.Errorf("%w: unknown room %d", ErrValidation, in.RoomID)
		}
		return model.Reservation{}, err
	}

	mu := s.roomLock(in.RoomID)
	mu.Lock()
	defer mu.Unlock()

	code, err := s.generateCode(ctx, in.RoomID, start, end)
	if err != nil {
		return model.Reservation{}, err
	}

	now := s.clock.Now()
	res := model.Reservation{
		ID:        uuid.NewString(),
		RoomID:    in.RoomID,
		UID:       in.UID,
		Name:      in.Name,
		Company:   in.Company,
		StartTime: start,
		EndTime:   end,
		AuthCode:  code,
		Status:    model.StatusBooked,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateReservation(ctx, &res); err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

// generateCode draws 4-digit codes until one is free among the active
// reservations overlapping the window.
func (s *Service) generateCode(ctx context.Context, roomID int64, start, end time.Time) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		s.rngMu.Lock()
		code := fmt.Sprintf("%04d", s.rng.Intn(10000))
		s.rngMu.Unlock()

		inUse, err := s.store.CodeInUse(ctx, roomID, code, start, end)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// CheckIn transitions a reservation to CHECKED_IN, arms the auto-checkout
// deadline and enables the room environment. Re-entering an already
// checked-in reservation is allowed and re-arms the timer.
func (s *Service) CheckIn(ctx context.Context, id, code string) error {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotBookable
		}
		return err
	}

	mu := s.roomLock(res.RoomID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock: a timer fire or sweep may have just ended it.
	res, err = s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotBookable
		}
		return err
	}
	if res.Status != model.StatusBooked && res.Status != model.StatusCheckedIn {
		return ErrNotBookable
	}
	if code != res.AuthCode {
		return ErrAuthFailed
	}
	now := s.clock.Now()
	if now.Before(res.StartTime) || now.After(res.EndTime) {
		return ErrNotInWindow
	}

	if res.Status == model.StatusBooked {
		applied, err := s.store.TransitionStatus(ctx, id,
			[]model.ReservationStatus{model.StatusBooked}, model.StatusCheckedIn, now)
		if err != nil {
			return err
		}
		if applied {
			s.bus.Publish(notify.Event{
				RoomID:        res.RoomID,
				ReservationID: id,
				OldStatus:     model.StatusBooked,
				NewStatus:     model.StatusCheckedIn,
				At:            now,
			})
		}
	}

	s.sessMu.Lock()
	s.sessions[res.RoomID] = id
	s.sessMu.Unlock()

	s.timers.Arm(id, res.EndTime)
	// The kiosk enables climate and sets lighting to AUTO for the session.
	s.dispatchEnvironment(res.RoomID, device.ClimateOn, device.LightAuto)
	return nil
}

// CheckOut ends a checked-in session. Manual checkout re-confirms the auth
// code; auto and swept checkouts are system-triggered and skip it. A
// reservation that is already CHECKED_OUT is a success no-op: the timer
// callback and the sweeper may race to this transition and only the winner
// touches the device.
func (s *Service) CheckOut(ctx context.Context, id, code string, reason CheckOutReason) error {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotBookable
		}
		return err
	}
	if reason == ReasonManual && code != res.AuthCode {
		return ErrAuthFailed
	}

	mu := s.roomLock(res.RoomID)
	mu.Lock()
	defer mu.Unlock()

	now := s.clock.Now()
	applied, err := s.store.TransitionStatus(ctx, id,
		[]model.ReservationStatus{model.StatusCheckedIn}, model.StatusCheckedOut, now)
	if err != nil {
		return err
	}
	if !applied {
		current, err := s.store.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == model.StatusCheckedOut {
			return nil // another actor already performed the transition
		}
		return ErrNotBookable
	}

	s.timers.Cancel(id)
	s.clearSession(res.RoomID, id)
	s.dispatchEnvironment(res.RoomID, device.ClimateOff, device.LightOff)
	s.bus.Publish(notify.Event{
		RoomID:        res.RoomID,
		ReservationID: id,
		OldStatus:     model.StatusCheckedIn,
		NewStatus:     model.StatusCheckedOut,
		At:            now,
	})
	log.Printf("reservation %s checked out (%s)", id, reason)
	return nil
}

// Cancel is the administrative exit from BOOKED or CHECKED_IN. The caller is
// responsible for authorization; no code is required.
func (s *Service) Cancel(ctx context.Context, id string) error {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotBookable
		}
		return err
	}

	mu := s.roomLock(res.RoomID)
	mu.Lock()
	defer mu.Unlock()

	res, err = s.store.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	wasCheckedIn := res.Status == model.StatusCheckedIn

	now := s.clock.Now()
	applied, err := s.store.TransitionStatus(ctx, id,
		[]model.ReservationStatus{model.StatusBooked, model.StatusCheckedIn}, model.StatusCanceled, now)
	if err != nil {
		return err
	}
	if !applied {
		return ErrNotBookable
	}

	s.timers.Cancel(id)
	if wasCheckedIn {
		s.clearSession(res.RoomID, id)
		s.dispatchEnvironment(res.RoomID, device.ClimateOff, device.LightOff)
	}
	s.bus.Publish(notify.Event{
		RoomID:        res.RoomID,
		ReservationID: id,
		OldStatus:     res.Status,
		NewStatus:     model.StatusCanceled,
		At:            now,
	})
	return nil
}

// RestoreSessions rebuilds in-memory state after a restart: every
// CHECKED_IN row either gets its deadline re-armed or, if the window has
// already passed, is checked out immediately.
func (s *Service) RestoreSessions(ctx context.Context) error {
	active, err := s.store.ListByStatus(ctx, model.StatusCheckedIn)
	if err != nil {
		return fmt.Errorf("restore sessions: %w", err)
	}

	now := s.clock.Now()
	for _, res := range active {
		if !res.EndTime.After(now) {
			if err := s.CheckOut(ctx, res.ID, "", ReasonAuto); err != nil {
				log.Printf("restore: checkout of expired reservation %s failed: %v", res.ID, err)
			}
			continue
		}
		s.sessMu.Lock()
		s.sessions[res.RoomID] = res.ID
		s.sessMu.Unlock()
		s.timers.Arm(res.ID, res.EndTime)
	}
	if len(active) > 0 {
		log.Printf("restored %d checked-in session(s)", len(active))
	}
	return nil
}

// autoCheckOut is the timer manager's fire callback.
func (s *Service) autoCheckOut(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.CheckOut(ctx, id, "", ReasonAuto); err != nil && !errors.Is(err, ErrNotBookable) {
		log.Printf("auto checkout of reservation %s failed: %v", id, err)
	}
}

func (s *Service) clearSession(roomID int64, id string) {
	s.sessMu.Lock()
	if s.sessions[roomID] == id {
		delete(s.sessions, roomID)
	}
	s.sessMu.Unlock()
}

// dispatchEnvironment sends device commands on their own goroutine. A dead
// controller logs a warning and nothing else: device availability never
// blocks a lifecycle transition.
func (s *Service) dispatchEnvironment(roomID int64, cmds ...device.Command) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deviceSendTimeout)
		defer cancel()

		room, err := s.store.GetRoom(ctx, roomID)
		if err != nil {
			log.Printf("environment command skipped, room %d lookup failed: %v", roomID, err)
			return
		}
		for _, cmd := range cmds {
			if err := s.commander.Send(ctx, room.Controller, cmd); err != nil {
				log.Printf("warning: %q to room %s failed: %v", cmd, room.Name, err)
			}
		}
	}()
}
