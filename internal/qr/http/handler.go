package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IT22056320/ev-booking-backend/internal/auth"
	"github.com/IT22056320/ev-booking-backend/internal/booking"
	"github.com/IT22056320/ev-booking-backend/internal/pkg/request"
	"github.com/IT22056320/ev-booking-backend/internal/pkg/response"
	"github.com/IT22056320/ev-booking-backend/internal/qr"
	"github.com/IT22056320/ev-booking-backend/internal/user"
)

type QRHandler struct {
	qrService      qr.Service
	bookingService booking.Service
	userService    user.Service
}

func NewHandler(qrService qr.Service, bookingService booking.Service, userService user.Service) *QRHandler {
	return &QRHandler{
		qrService:      qrService,
		bookingService: bookingService,
		userService:    userService,
	}
}

func (h *QRHandler) isOperator(c *gin.Context) bool {
	userID := auth.GetUserID(c)
	if userID == "" {
		return false
	}
	u, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		return false
	}
	return u.IsOperator
}

// canAccess loads the booking and checks ownership or operator access.
func (h *QRHandler) canAccess(c *gin.Context, bookingID string) bool {
	b, err := h.bookingService.GetByID(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return false
	}
	if b.UserID != auth.GetUserID(c) && !h.isOperator(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return false
	}
	return true
}

// Issue mints (or returns the existing) check-in token for a booking.
func (h *QRHandler) Issue(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if !h.canAccess(c, req.ID) {
		return
	}

	token, err := h.qrService.Issue(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, QRResponse{BookingID: req.ID, Token: token})
}

// Get returns the stored check-in token for a booking.
func (h *QRHandler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if !h.canAccess(c, req.ID) {
		return
	}

	token, err := h.qrService.Get(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, QRResponse{BookingID: req.ID, Token: token})
}

// Invalidate revokes the stored token.
// Access Control: Operator only.
func (h *QRHandler) Invalidate(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if err := h.qrService.Invalidate(c.Request.Context(), req.ID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CheckIn validates a scanned token at the station.
// Access Control: Operator only.
func (h *QRHandler) CheckIn(c *gin.Context) {
	var body CheckInRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	result, err := h.qrService.Validate(c.Request.Context(), body.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewCheckInResponse(result))
}
