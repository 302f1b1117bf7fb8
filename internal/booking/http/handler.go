package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IT22056320/ev-booking-backend/internal/auth"
	"github.com/IT22056320/ev-booking-backend/internal/booking"
	"github.com/IT22056320/ev-booking-backend/internal/pkg/request"
	"github.com/IT22056320/ev-booking-backend/internal/pkg/response"
	"github.com/IT22056320/ev-booking-backend/internal/user"
)

type BookingHandler struct {
	bookingService booking.Service
	userService    user.Service

	now func() time.Time
}

func NewHandler(bookingService booking.Service, userService user.Service) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		userService:    userService,
		now:            time.Now,
	}
}

// isOperator reports whether the authenticated user has operator access.
func (h *BookingHandler) isOperator(c *gin.Context) bool {
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

// respondError writes the error response, expanding conflict errors with the
// list of blocking bookings.
func respondError(c *gin.Context, err error) {
	var conflictErr *booking.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     booking.ErrTimeConflict.Message,
			"conflicts": newConflictResponses(conflictErr.Conflicts),
		})
		return
	}
	response.Error(c, err)
}

// Create places a booking for the authenticated user.
func (h *BookingHandler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	userID := auth.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	b, err := h.bookingService.Create(c.Request.Context(), booking.CreateRequest{
		UserID:           userID,
		StationID:        body.StationID,
		BookingDate:      body.BookingDate,
		StartTime:        body.StartTime,
		EndTime:          body.EndTime,
		VehicleNumber:    body.VehicleNumber,
		VehicleType:      body.VehicleType,
		EstimatedMinutes: body.EstimatedMinutes,
		Notes:            body.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b, h.now().UTC()))
}

// Get retrieves a booking. Owners see their own; operators see any.
func (h *BookingHandler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	b, err := h.bookingService.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	if b.UserID != auth.GetUserID(c) && !h.isOperator(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b, h.now().UTC()))
}

// List retrieves a paginated list of bookings. Non-operators are scoped to
// their own bookings regardless of the user_id filter.
func (h *BookingHandler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	filter := booking.Filter{
		UserID:        req.UserID,
		StationID:     req.StationID,
		Status:        req.Status,
		DateFrom:      req.DateFrom,
		DateTo:        req.DateTo,
		CreatedFrom:   req.CreatedFrom,
		CreatedTo:     req.CreatedTo,
		VehicleNumber: req.VehicleNumber,
		Page:          req.Page,
		PageSize:      req.PageSize,
		SortBy:        req.SortBy,
		SortOrder:     req.SortOrder,
	}

	if !h.isOperator(c) {
		filter.UserID = auth.GetUserID(c)
	}

	bookings, total, err := h.bookingService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list bookings"})
		return
	}

	now := h.now().UTC()
	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b, now)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// Update modifies a pending booking. Owner only.
func (h *BookingHandler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	var body UpdateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
		return
	}

	b, err := h.bookingService.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if b.UserID != auth.GetUserID(c) && !h.isOperator(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	updated, err := h.bookingService.Modify(c.Request.Context(), uri.ID, booking.ModifyRequest{
		BookingDate:      body.BookingDate,
		StartTime:        body.StartTime,
		EndTime:          body.EndTime,
		VehicleNumber:    body.VehicleNumber,
		VehicleType:      body.VehicleType,
		EstimatedMinutes: body.EstimatedMinutes,
		Notes:            body.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(updated, h.now().UTC()))
}

// UpdateStatus performs a lifecycle transition. Owners may cancel their own
// bookings; every other transition requires operator access.
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	var body UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
		return
	}

	userID := auth.GetUserID(c)
	target := booking.Status(body.Status)

	if target != booking.StatusCancelled && !h.isOperator(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "operator access required"})
		return
	}
	if target == booking.StatusCancelled && !h.isOperator(c) {
		b, err := h.bookingService.GetByID(c.Request.Context(), uri.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		if b.UserID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
	}

	b, err := h.bookingService.UpdateStatus(c.Request.Context(), uri.ID, booking.StatusChangeRequest{
		Status:          target,
		Actor:           userID,
		Reason:          body.Reason,
		ActualStartTime: body.ActualStartTime,
		ActualEndTime:   body.ActualEndTime,
		TotalCost:       body.TotalCost,
		EnergyConsumed:  body.EnergyConsumed,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b, h.now().UTC()))
}

// Delete cancels a booking and keeps the record. Owner or operator.
func (h *BookingHandler) Delete(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	userID := auth.GetUserID(c)

	b, err := h.bookingService.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if b.UserID != userID && !h.isOperator(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	if err := h.bookingService.Delete(c.Request.Context(), req.ID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CheckAvailability reports whether a station interval is free.
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	result, err := h.bookingService.CheckAvailability(c.Request.Context(), req.StationID, req.StartTime, req.EndTime, req.ExcludeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AvailabilityResponse{
		Available: result.Available,
		Conflicts: newConflictResponses(result.Conflicts),
	})
}

// Stats returns aggregate booking statistics.
// Access Control: Operator only.
func (h *BookingHandler) Stats(c *gin.Context) {
	var req StatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	stats, err := h.bookingService.Stats(c.Request.Context(), booking.StatsFilter{
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}

	c.JSON(http.StatusOK, StatsResponse{
		Total:              stats.Total,
		ByStatus:           byStatus,
		TotalRevenue:       stats.TotalRevenue,
		AvgDurationMinutes: stats.AvgDurationMinutes,
	})
}
