package booking

import (
	"net/http"
	"time"

	"github.com/IT22056320/ev-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "booking not found")
	ErrTimeConflict       = apperror.New(http.StatusConflict, "time slot already booked")
	ErrInvalidTimeRange   = apperror.New(http.StatusBadRequest, "start time must be before end time")
	ErrStartTimePast      = apperror.New(http.StatusBadRequest, "start time must be in the future")
	ErrPastDate           = apperror.New(http.StatusBadRequest, "booking date cannot be in the past")
	ErrOutsideWindow      = apperror.New(http.StatusBadRequest, "booking date is outside the 7-day booking window")
	ErrStationNotFound    = apperror.New(http.StatusNotFound, "station not found")
	ErrStationUnavailable = apperror.New(http.StatusConflict, "station is not available for booking")
	ErrCannotModify       = apperror.New(http.StatusConflict, "booking can no longer be modified")
	ErrCannotCancel       = apperror.New(http.StatusConflict, "booking can no longer be cancelled")
	ErrInvalidTransition  = apperror.New(http.StatusConflict, "invalid status transition")
	ErrInvalidVehicle     = apperror.New(http.StatusBadRequest, "vehicle number must be 2-20 characters")
	ErrInvalidDuration    = apperror.New(http.StatusBadRequest, "estimated minutes must be between 1 and 1440")
	ErrNotesTooLong       = apperror.New(http.StatusBadRequest, "notes must not exceed 500 characters")
	ErrInvalidInput       = apperror.New(http.StatusBadRequest, "invalid input parameters")
)

// Business-rule constants for the booking window and modification cutoff.
const (
	BookingWindowDays = 7
	ModifyCutoff      = 12 * time.Hour

	MinVehicleNumberLen = 2
	MaxVehicleNumberLen = 20
	MinEstimatedMinutes = 1
	MaxEstimatedMinutes = 1440
	MaxNotesLen         = 500
)

// Booking represents a charging slot reservation at a station.
type Booking struct {
	ID            string
	BookingNumber string
	UserID        string
	StationID     string

	BookingDate time.Time // date of the reservation (UTC, midnight)
	StartTime   time.Time // absolute UTC timestamps; interval is half-open [start, end)
	EndTime     time.Time

	VehicleNumber    string
	VehicleType      string
	EstimatedMinutes int
	Notes            string

	Status Status

	ApprovedAt *time.Time
	ApprovedBy string

	RejectedAt      *time.Time
	RejectedBy      string
	RejectionReason string

	CancelledAt        *time.Time
	CancelledBy        string
	CancellationReason string

	CompletedAt     *time.Time
	ActualStartTime *time.Time
	ActualEndTime   *time.Time
	TotalCost       *float64
	EnergyConsumed  *float64

	QRToken       string     // empty when no token has been issued
	QRGeneratedAt *time.Time // nil when no token has been issued

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsWithinBookingWindow reports whether the booking date falls on today
// or within the next 7 days (inclusive, compared by UTC date).
func (b *Booking) IsWithinBookingWindow(now time.Time) bool {
	today := truncateToDay(now.UTC())
	date := truncateToDay(b.BookingDate.UTC())
	max := today.AddDate(0, 0, BookingWindowDays)
	return !date.Before(today) && !date.After(max)
}

// CanBeModified reports whether the booking may still be edited:
// only while pending and at least 12 hours before the start time.
func (b *Booking) CanBeModified(now time.Time) bool {
	return b.Status == StatusPending && b.StartTime.Sub(now) >= ModifyCutoff
}

// CanBeCancelled reports whether the booking may still be cancelled.
func (b *Booking) CanBeCancelled() bool {
	return b.Status == StatusPending || b.Status == StatusApproved
}

// IsActive reports whether the booking is approved and currently in progress.
func (b *Booking) IsActive(now time.Time) bool {
	return b.Status == StatusApproved &&
		!now.Before(b.StartTime) && !now.After(b.EndTime)
}

// DurationMinutes returns the scheduled duration in whole minutes.
func (b *Booking) DurationMinutes() int {
	return int(b.EndTime.Sub(b.StartTime) / time.Minute)
}

// Overlaps reports whether the booking's interval intersects [start, end).
// Half-open semantics: back-to-back intervals do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Filter defines parameters for listing bookings.
type Filter struct {
	UserID        string
	StationID     string
	Status        string
	DateFrom      *time.Time // booking_date range
	DateTo        *time.Time
	CreatedFrom   *time.Time // created_at range
	CreatedTo     *time.Time
	VehicleNumber string // case-insensitive substring match
	Page          int
	PageSize      int
	SortBy        string // created_at | booking_date | status
	SortOrder     string
}

// StatsFilter narrows booking statistics to a created-at range.
type StatsFilter struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Stats aggregates bookings by status plus revenue and average duration.
type Stats struct {
	Total              int
	ByStatus           map[Status]int
	TotalRevenue       float64
	AvgDurationMinutes float64
}

// AvailabilityResult is the outcome of an availability check for a station interval.
type AvailabilityResult struct {
	Available bool
	Conflicts []*Booking
}
