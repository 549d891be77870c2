package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"meeting-room-backend/internal/store"
)

// roomResponse represents the API response for a single room.
type roomResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Location  string `json:"location"`
	Equipment string `json:"equipment"`
}

// GetRooms handles the GET /api/rooms request.
func (h *Handler) GetRooms(c *gin.Context) {
	rooms, err := h.store.ListRooms(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rooms"})
		return
	}

	responses := make([]roomResponse, 0, len(rooms))
	for _, r := range rooms {
		responses = append(responses, roomResponse{
			ID: r.ID, Name: r.Name,
			Capacity: r.Capacity, Location: r.Location, Equipment: r.Equipment,
		})
	}
	c.JSON(http.StatusOK, responses)
}

// GetRoomReservations handles GET /api/rooms/{room_id}/reservations?date=.
// Without a date it lists today's schedule (UTC).
func (h *Handler) GetRoomReservations(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	day := h.clock.Now()
	if dateParam := c.Query("date"); dateParam != "" {
		day, err = time.Parse("2006-01-02", dateParam)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'date' format. Use YYYY-MM-DD."})
			return
		}
	}

	reservations, err := h.store.ListReservationsForDay(c.Request.Context(), roomID, day)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reservations"})
		return
	}

	responses := make([]reservationResponse, 0, len(reservations))
	for _, res := range reservations {
		responses = append(responses, toReservationResponse(res))
	}
	c.JSON(http.StatusOK, responses)
}

// roomStatusResponse is the telemetry read model for monitoring panels.
type roomStatusResponse struct {
	RoomID     int64     `json:"roomId"`
	TempC      float64   `json:"tempC"`
	Humidity   float64   `json:"humidity"`
	ClimateOn  bool      `json:"climateOn"`
	State      string    `json:"state"`
	LightOn    bool      `json:"lightOn"`
	ObservedAt time.Time `json:"observedAt"`
}

// GetRoomStatus handles GET /api/rooms/{room_id}/status.
func (h *Handler) GetRoomStatus(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	status, err := h.store.GetRoomStatus(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No telemetry for this room yet"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve room status"})
		return
	}

	c.JSON(http.StatusOK, roomStatusResponse{
		RoomID:     status.RoomID,
		TempC:      status.TempC,
		Humidity:   status.Humidity,
		ClimateOn:  status.ClimateOn,
		State:      status.State,
		LightOn:    status.LightOn,
		ObservedAt: status.ObservedAt,
	})
}
