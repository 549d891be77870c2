package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusBooked     ReservationStatus = "BOOKED"
	StatusCheckedIn  ReservationStatus = "CHECKED_IN"
	StatusCheckedOut ReservationStatus = "CHECKED_OUT"
	StatusCanceled   ReservationStatus = "CANCELED"
)

// Terminal reports whether no further transition may leave this state.
func (s ReservationStatus) Terminal() bool {
	return s == StatusCheckedOut || s == StatusCanceled
}

// Reservation represents a time-boxed booking of a room. Rows are never
// deleted when a booking ends; the status column records the outcome.
// All instants are stored in UTC.
type Reservation struct {
	ID        string            `gorm:"primaryKey;size:36"`
	RoomID    int64             `gorm:"index;not null"`
	UID       string            `gorm:"size:64;not null"`
	Name      string            `gorm:"size:128;not null"`
	Company   string            `gorm:"size:128"`
	StartTime time.Time         `gorm:"index;not null"`
	EndTime   time.Time         `gorm:"index;not null"`
	AuthCode  string            `gorm:"size:4;not null"`
	Status    ReservationStatus `gorm:"size:16;not null;index"`
	CreatedAt time.Time         `gorm:"not null"`
	UpdatedAt time.Time         `gorm:"not null"`

	// Associations
	Room Room `gorm:"constraint:OnDelete:CASCADE"`
}
