package model

import "time"

// RoomStatus is the latest telemetry snapshot for a room (one row per room,
// upsert semantics). Each update overwrites the prior snapshot; no history
// is retained.
type RoomStatus struct {
	RoomID     int64     `gorm:"primaryKey"`
	TempC      float64   `gorm:"not null"`
	Humidity   float64   `gorm:"not null"`
	ClimateOn  bool      `gorm:"not null"`
	State      string    `gorm:"size:32;not null"` // DISABLED/IDLE/COOLING/HEATING
	LightOn    bool      `gorm:"not null"`
	ObservedAt time.Time `gorm:"not null"`
}
