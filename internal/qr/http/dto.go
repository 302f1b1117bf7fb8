package http

import (
	"time"

	"github.com/IT22056320/ev-booking-backend/internal/qr"
)

// QRResponse carries an issued check-in token.
type QRResponse struct {
	BookingID string `json:"booking_id"`
	Token     string `json:"token"`
}

// CheckInRequest defines the payload for validating a scanned token.
type CheckInRequest struct {
	Token string `json:"token" binding:"required"`
}

// CheckInResponse is returned for a valid scan.
type CheckInResponse struct {
	Valid         bool      `json:"valid"`
	BookingID     string    `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	UserID        string    `json:"user_id"`
	StationID     string    `json:"station_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	VehicleNumber string    `json:"vehicle_number"`
}

// NewCheckInResponse converts a validation result to its API representation.
func NewCheckInResponse(r *qr.ValidationResult) CheckInResponse {
	return CheckInResponse{
		Valid:         true,
		BookingID:     r.BookingID,
		BookingNumber: r.BookingNumber,
		UserID:        r.UserID,
		StationID:     r.StationID,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		VehicleNumber: r.VehicleNumber,
	}
}
