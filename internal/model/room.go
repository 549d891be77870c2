package model

import "time"

// Room represents a bookable meeting room and the address of its
// environment controller.
type Room struct {
	ID         int64  `gorm:"primaryKey"`
	Name       string `gorm:"uniqueIndex;size:128;not null"`
	Capacity   int    `gorm:"not null"`
	Location   string `gorm:"size:128"`
	Equipment  string `gorm:"size:256"`
	Controller string `gorm:"size:128"` // host:port of the room controller bridge
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Associations
	Reservations []Reservation `gorm:"foreignKey:RoomID"`
}
