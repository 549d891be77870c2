package api

import (
	"meeting-room-backend/internal/booking"
	"meeting-room-backend/internal/clock"
	"meeting-room-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	booking *booking.Service
	clock   clock.Clock
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, svc *booking.Service, clk clock.Clock) *Handler {
	return &Handler{
		store:   s,
		booking: svc,
		clock:   clk,
	}
}
