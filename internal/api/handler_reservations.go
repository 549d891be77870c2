package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"meeting-room-backend/internal/booking"
	"meeting-room-backend/internal/model"
	"meeting-room-backend/internal/store"
)

// createReservationRequest is the booking request body.
type createReservationRequest struct {
	RoomID    int64     `json:"roomId" binding:"required"`
	UID       string    `json:"uid" binding:"required"`
	Name      string    `json:"name" binding:"required"`
	Company   string    `json:"company"`
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
}

// reservationResponse is the flattened reservation representation. The auth
// code is included: the booking surface shows it to the requester, who needs
// it at the kiosk.
type reservationResponse struct {
	ID        string                  `json:"id"`
	RoomID    int64                   `json:"roomId"`
	UID       string                  `json:"uid"`
	Name      string                  `json:"name"`
	Company   string                  `json:"company,omitempty"`
	StartTime time.Time               `json:"startTime"`
	EndTime   time.Time               `json:"endTime"`
	AuthCode  string                  `json:"authCode"`
	Status    model.ReservationStatus `json:"status"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

func toReservationResponse(res model.Reservation) reservationResponse {
	return reservationResponse{
		ID:        res.ID,
		RoomID:    res.RoomID,
		UID:       res.UID,
		Name:      res.Name,
		Company:   res.Company,
		StartTime: res.StartTime,
		EndTime:   res.EndTime,
		AuthCode:  res.AuthCode,
		Status:    res.Status,
		UpdatedAt: res.UpdatedAt,
	}
}

// CreateReservation handles POST /api/reservations.
func (h *Handler) CreateReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := h.booking.Create(c.Request.Context(), booking.CreateInput{
		RoomID:    req.RoomID,
		UID:       req.UID,
		Name:      req.Name,
		Company:   req.Company,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		abortWithLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReservationResponse(res))
}

type codeRequest struct {
	Code string `json:"code"`
}

// CheckIn handles POST /api/reservations/{id}/checkin.
func (h *Handler) CheckIn(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Auth code is required"})
		return
	}

	if err := h.booking.CheckIn(c.Request.Context(), c.Param("id"), req.Code); err != nil {
		abortWithLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": model.StatusCheckedIn})
}

// CheckOut handles POST /api/reservations/{id}/checkout. This is the manual
// path and requires the auth code to be re-confirmed.
func (h *Handler) CheckOut(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Auth code is required"})
		return
	}

	if err := h.booking.CheckOut(c.Request.Context(), c.Param("id"), req.Code, booking.ReasonManual); err != nil {
		abortWithLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": model.StatusCheckedOut})
}

// CancelReservation handles POST /api/reservations/{id}/cancel. The admin
// surface calling this has already authorized the requester.
func (h *Handler) CancelReservation(c *gin.Context) {
	if err := h.booking.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		abortWithLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": model.StatusCanceled})
}

// abortWithLifecycleError maps domain errors onto HTTP statuses.
func abortWithLifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrAuthFailed):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrNotInWindow):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrNotBookable):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrCodeSpaceExhausted):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
