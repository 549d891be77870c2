package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"meeting-room-backend/internal/model"
)

// StatusPatch carries the fields recovered from one telemetry line. Nil
// pointers mean the field could not be parsed and the stored value is left
// unchanged. ObservedAt always advances: even a partial line proves the
// controller answered.
type StatusPatch struct {
	RoomID     int64
	TempC      *float64
	Humidity   *float64
	ClimateOn  *bool
	State      *string
	LightOn    *bool
	ObservedAt time.Time
}

// columns flattens the patch into an update map of only the known fields.
func (p StatusPatch) columns() map[string]any {
	cols := map[string]any{"observed_at": p.ObservedAt}
	if p.TempC != nil {
		cols["temp_c"] = *p.TempC
	}
	if p.Humidity != nil {
		cols["humidity"] = *p.Humidity
	}
	if p.ClimateOn != nil {
		cols["climate_on"] = *p.ClimateOn
	}
	if p.State != nil {
		cols["state"] = *p.State
	}
	if p.LightOn != nil {
		cols["light_on"] = *p.LightOn
	}
	return cols
}

// UpsertRoomStatus inserts or updates the snapshot row for a room,
// overwriting only the fields the patch carries.
func (s *gormStore) UpsertRoomStatus(ctx context.Context, patch StatusPatch) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.RoomStatus
		err := tx.First(&existing, "room_id = ?", patch.RoomID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := model.RoomStatus{RoomID: patch.RoomID, ObservedAt: patch.ObservedAt}
			if patch.TempC != nil {
				row.TempC = *patch.TempC
			}
			if patch.Humidity != nil {
				row.Humidity = *patch.Humidity
			}
			if patch.ClimateOn != nil {
				row.ClimateOn = *patch.ClimateOn
			}
			if patch.State != nil {
				row.State = *patch.State
			}
			if patch.LightOn != nil {
				row.LightOn = *patch.LightOn
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert room status for room %d failed: %w", patch.RoomID, err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("room status lookup for room %d failed: %w", patch.RoomID, err)
		default:
			if err := tx.Model(&model.RoomStatus{}).
				Where("room_id = ?", patch.RoomID).
				Updates(patch.columns()).Error; err != nil {
				return fmt.Errorf("update room status for room %d failed: %w", patch.RoomID, err)
			}
			return nil
		}
	})
}

func (s *gormStore) GetRoomStatus(ctx context.Context, roomID int64) (model.RoomStatus, error) {
	var status model.RoomStatus
	err := s.db.WithContext(ctx).First(&status, "room_id = ?", roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.RoomStatus{}, ErrNotFound
	}
	return status, err
}
