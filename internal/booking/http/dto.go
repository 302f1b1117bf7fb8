package http

import (
	"time"

	"github.com/IT22056320/ev-booking-backend/internal/booking"
	"github.com/IT22056320/ev-booking-backend/internal/pkg/request"
)

// CreateBookingRequest defines the payload for creating a booking.
type CreateBookingRequest struct {
	StationID        string    `json:"station_id" binding:"required,uuid"`
	BookingDate      time.Time `json:"booking_date" binding:"required"`
	StartTime        time.Time `json:"start_time" binding:"required"`
	EndTime          time.Time `json:"end_time" binding:"required"`
	VehicleNumber    string    `json:"vehicle_number" binding:"required,min=2,max=20"`
	VehicleType      string    `json:"vehicle_type"`
	EstimatedMinutes int       `json:"estimated_minutes" binding:"required,min=1,max=1440"`
	Notes            string    `json:"notes" binding:"omitempty,max=500"`
}

// UpdateBookingRequest defines the editable fields for PATCH /bookings/:id.
// Use pointers to distinguish between "field not sent" and zero values.
type UpdateBookingRequest struct {
	BookingDate      *time.Time `json:"booking_date"`
	StartTime        *time.Time `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	VehicleNumber    *string    `json:"vehicle_number" binding:"omitempty,min=2,max=20"`
	VehicleType      *string    `json:"vehicle_type"`
	EstimatedMinutes *int       `json:"estimated_minutes" binding:"omitempty,min=1,max=1440"`
	Notes            *string    `json:"notes" binding:"omitempty,max=500"`
}

// UpdateStatusRequest defines the payload for lifecycle transitions.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected completed cancelled"`
	Reason string `json:"reason" binding:"omitempty,max=500"`

	// Completion metrics, honoured on transition to completed.
	ActualStartTime *time.Time `json:"actual_start_time"`
	ActualEndTime   *time.Time `json:"actual_end_time"`
	TotalCost       *float64   `json:"total_cost" binding:"omitempty,min=0"`
	EnergyConsumed  *float64   `json:"energy_consumed" binding:"omitempty,min=0"`
}

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	UserID        string     `form:"user_id" binding:"omitempty,uuid"`
	StationID     string     `form:"station_id" binding:"omitempty,uuid"`
	Status        string     `form:"status" binding:"omitempty,oneof=pending approved rejected completed cancelled"`
	DateFrom      *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo        *time.Time `form:"date_to" time_format:"2006-01-02"`
	CreatedFrom   *time.Time `form:"created_from"`
	CreatedTo     *time.Time `form:"created_to"`
	VehicleNumber string     `form:"vehicle_number"`
	SortBy        string     `form:"sort_by" binding:"omitempty,oneof=created_at booking_date status"`
}

// AvailabilityRequest defines query parameters for the availability check.
type AvailabilityRequest struct {
	StationID string    `form:"station_id" binding:"required,uuid"`
	StartTime time.Time `form:"start_time" binding:"required"`
	EndTime   time.Time `form:"end_time" binding:"required"`
	ExcludeID string    `form:"exclude_id" binding:"omitempty,uuid"`
}

// StatsRequest defines query parameters for the stats endpoint.
type StatsRequest struct {
	CreatedFrom *time.Time `form:"created_from"`
	CreatedTo   *time.Time `form:"created_to"`
}

// BookingResponse is the shape of booking data returned by the API.
type BookingResponse struct {
	ID                 string     `json:"id"`
	BookingNumber      string     `json:"booking_number"`
	UserID             string     `json:"user_id"`
	StationID          string     `json:"station_id"`
	BookingDate        time.Time  `json:"booking_date"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            time.Time  `json:"end_time"`
	DurationMinutes    int        `json:"duration_minutes"`
	VehicleNumber      string     `json:"vehicle_number"`
	VehicleType        string     `json:"vehicle_type,omitempty"`
	EstimatedMinutes   int        `json:"estimated_minutes"`
	Notes              string     `json:"notes,omitempty"`
	Status             string     `json:"status"`
	CanModify          bool       `json:"can_modify"`
	CanCancel          bool       `json:"can_cancel"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	RejectedAt         *time.Time `json:"rejected_at,omitempty"`
	RejectionReason    string     `json:"rejection_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ActualStartTime    *time.Time `json:"actual_start_time,omitempty"`
	ActualEndTime      *time.Time `json:"actual_end_time,omitempty"`
	TotalCost          *float64   `json:"total_cost,omitempty"`
	EnergyConsumed     *float64   `json:"energy_consumed,omitempty"`
	HasQR              bool       `json:"has_qr"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewBookingResponse converts a domain booking to its API representation.
// Derived flags are computed against the supplied instant.
func NewBookingResponse(b *booking.Booking, now time.Time) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		BookingNumber:      b.BookingNumber,
		UserID:             b.UserID,
		StationID:          b.StationID,
		BookingDate:        b.BookingDate,
		StartTime:          b.StartTime,
		EndTime:            b.EndTime,
		DurationMinutes:    b.DurationMinutes(),
		VehicleNumber:      b.VehicleNumber,
		VehicleType:        b.VehicleType,
		EstimatedMinutes:   b.EstimatedMinutes,
		Notes:              b.Notes,
		Status:             string(b.Status),
		CanModify:          b.CanBeModified(now),
		CanCancel:          b.CanBeCancelled(),
		ApprovedAt:         b.ApprovedAt,
		RejectedAt:         b.RejectedAt,
		RejectionReason:    b.RejectionReason,
		CancelledAt:        b.CancelledAt,
		CancellationReason: b.CancellationReason,
		CompletedAt:        b.CompletedAt,
		ActualStartTime:    b.ActualStartTime,
		ActualEndTime:      b.ActualEndTime,
		TotalCost:          b.TotalCost,
		EnergyConsumed:     b.EnergyConsumed,
		HasQR:              b.QRToken != "",
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

// ConflictResponse summarizes a booking that blocks a requested interval.
type ConflictResponse struct {
	BookingID     string    `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
}

func newConflictResponses(conflicts []*booking.Booking) []ConflictResponse {
	out := make([]ConflictResponse, len(conflicts))
	for i, b := range conflicts {
		out[i] = ConflictResponse{
			BookingID:     b.ID,
			BookingNumber: b.BookingNumber,
			StartTime:     b.StartTime,
			EndTime:       b.EndTime,
			Status:        string(b.Status),
		}
	}
	return out
}

// AvailabilityResponse is the outcome of an availability check.
type AvailabilityResponse struct {
	Available bool               `json:"available"`
	Conflicts []ConflictResponse `json:"conflicts"`
}

// StatsResponse aggregates bookings by status plus revenue and duration.
type StatsResponse struct {
	Total              int            `json:"total"`
	ByStatus           map[string]int `json:"by_status"`
	TotalRevenue       float64        `json:"total_revenue"`
	AvgDurationMinutes float64        `json:"avg_duration_minutes"`
}
