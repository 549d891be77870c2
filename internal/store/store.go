package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"meeting-room-backend/internal/model"
)

var (
	// ErrConflict is returned when a candidate window strictly overlaps an
	// active reservation for the same room. The store is left unchanged.
	ErrConflict = errors.New("time unavailable: overlapping reservation")
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
)

// activeStatuses are the states that occupy a room's calendar.
var activeStatuses = []model.ReservationStatus{model.StatusBooked, model.StatusCheckedIn}

// Store defines the interface for all database operations.
type Store interface {
	// Rooms
	SeedRooms(ctx context.Context, rooms []model.Room) error
	GetRoom(ctx context.Context, id int64) (model.Room, error)
	GetRoomByName(ctx context.Context, name string) (model.Room, error)
	ListRooms(ctx context.Context) ([]model.Room, error)

	// Reservations
	CreateReservation(ctx context.Context, res *model.Reservation) error
	GetReservation(ctx context.Context, id string) (model.Reservation, error)
	IsAvailable(ctx context.Context, roomID int64, start, end time.Time, excludeID string) (bool, error)
	ListReservationsForDay(ctx context.Context, roomID int64, day time.Time) ([]model.Reservation, error)
	ListByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error)
	ListExpired(ctx context.Context, status model.ReservationStatus, now time.Time) ([]model.Reservation, error)
	TransitionStatus(ctx context.Context, id string, from []model.ReservationStatus, to model.ReservationStatus, now time.Time) (bool, error)
	ExpireNoShows(ctx context.Context, now time.Time) ([]model.Reservation, error)
	CodeInUse(ctx context.Context, roomID int64, code string, start, end time.Time) (bool, error)
	DeleteReservation(ctx context.Context, id string) error

	// Telemetry snapshots
	UpsertRoomStatus(ctx context.Context, patch StatusPatch) error
	GetRoomStatus(ctx context.Context, roomID int64) (model.RoomStatus, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// SeedRooms upserts the configured rooms by name so restarts and config
// edits converge on the same row set.
func (s *gormStore) SeedRooms(ctx context.Context, rooms []model.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"capacity", "location", "equipment", "controller", "updated_at"}),
	}).Create(&rooms).Error; err != nil {
		return fmt.Errorf("batch upsert rooms failed: %w", err)
	}
	return nil
}

func (s *gormStore) GetRoom(ctx context.Context, id int64) (model.Room, error) {
	var room model.Room
	err := s.db.WithContext(ctx).First(&room, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Room{}, ErrNotFound
	}
	return room, err
}

func (s *gormStore) GetRoomByName(ctx context.Context, name string) (model.Room, error) {
	var room model.Room
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Room{}, ErrNotFound
	}
	return room, err
}

func (s *gormStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	err := s.db.WithContext(ctx).Order("name").Find(&rooms).Error
	return rooms, err
}

// overlapQuery selects active reservations whose [start,end) interval
// strictly overlaps the candidate window. Touching endpoints do not count.
func overlapQuery(tx *gorm.DB, roomID int64, start, end time.Time, excludeID string) *gorm.DB {
	q := tx.Model(&model.Reservation{}).
		Where("room_id = ?", roomID).
		Where("NOT (end_time <= ? OR start_time >= ?)", start, end).
		Where("status IN ?", activeStatuses)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	return q
}

// IsAvailable reports whether the candidate window is free of conflicts.
func (s *gormStore) IsAvailable(ctx context.Context, roomID int64, start, end time.Time, excludeID string) (bool, error) {
	var count int64
	if err := overlapQuery(s.db.WithContext(ctx), roomID, start, end, excludeID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("overlap query failed: %w", err)
	}
	return count == 0, nil
}

// CreateReservation performs the conflict check and the insert as one
// transaction so two concurrent bookings for the same slot cannot both
// succeed.
func (s *gormStore) CreateReservation(ctx context.Context, res *model.Reservation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := overlapQuery(tx, res.RoomID, res.StartTime, res.EndTime, res.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("overlap query failed: %w", err)
		}
		if count > 0 {
			return ErrConflict
		}
		if err := tx.Create(res).Error; err != nil {
			return fmt.Errorf("insert reservation failed: %w", err)
		}
		return nil
	})
}

func (s *gormStore) GetReservation(ctx context.Context, id string) (model.Reservation, error) {
	var res model.Reservation
	err := s.db.WithContext(ctx).First(&res, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Reservation{}, ErrNotFound
	}
	return res, err
}

// ListReservationsForDay returns a room's reservations whose start falls on
// the given UTC day, ordered by start time.
func (s *gormStore) ListReservationsForDay(ctx context.Context, roomID int64, day time.Time) ([]model.Reservation, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	var out []model.Reservation
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND start_time >= ? AND start_time < ?", roomID, dayStart, dayEnd).
		Order("start_time").
		Find(&out).Error
	return out, err
}

func (s *gormStore) ListByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	var out []model.Reservation
	err := s.db.WithContext(ctx).Where("status = ?", status).Find(&out).Error
	return out, err
}

// ListExpired returns reservations in the given state whose window has
// already ended at now.
func (s *gormStore) ListExpired(ctx context.Context, status model.ReservationStatus, now time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	err := s.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", status, now).
		Find(&out).Error
	return out, err
}

// TransitionStatus performs a guarded state write: the update only applies
// while the row is still in one of the expected states. The boolean result
// reports whether this call performed the write, which is what makes
// concurrent checkout attempts idempotent.
func (s *gormStore) TransitionStatus(ctx context.Context, id string, from []model.ReservationStatus, to model.ReservationStatus, now time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": now})
	if result.Error != nil {
		return false, fmt.Errorf("transition to %s failed: %w", to, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ExpireNoShows transitions BOOKED reservations whose window has passed
// without a check-in and returns the closed rows so the caller can announce
// each transition. They end as CHECKED_OUT rather than CANCELED so the
// record distinguishes "time passed" from "explicitly canceled".
func (s *gormStore) ExpireNoShows(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	var expired []model.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("status = ? AND end_time <= ?", model.StatusBooked, now).
			Find(&expired).Error; err != nil {
			return fmt.Errorf("no-show lookup failed: %w", err)
		}
		if len(expired) == 0 {
			return nil
		}
		ids := make([]string, len(expired))
		for i, res := range expired {
			ids[i] = res.ID
		}
		if err := tx.Model(&model.Reservation{}).
			Where("id IN ?", ids).
			Updates(map[string]any{"status": model.StatusCheckedOut, "updated_at": now}).Error; err != nil {
			return fmt.Errorf("expire no-shows failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// CodeInUse reports whether an active reservation overlapping the window
// already carries the given auth code for this room.
func (s *gormStore) CodeInUse(ctx context.Context, roomID int64, code string, start, end time.Time) (bool, error) {
	var count int64
	err := overlapQuery(s.db.WithContext(ctx), roomID, start, end, "").
		Where("auth_code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("code lookup failed: %w", err)
	}
	return count > 0, nil
}

// DeleteReservation physically removes a row. Lifecycle transitions never
// call this; it exists for explicit administrative deletes only.
func (s *gormStore) DeleteReservation(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&model.Reservation{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
