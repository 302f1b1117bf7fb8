package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/IT22056320/ev-booking-backend/internal/notify"
	"github.com/IT22056320/ev-booking-backend/internal/station"
)

// ConflictError reports a rejected interval together with the bookings it
// collides with. errors.Is(err, ErrTimeConflict) matches it.
type ConflictError struct {
	Conflicts []*Booking
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time slot already booked (%d conflicting bookings)", len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error {
	return ErrTimeConflict
}

// StationDirectory is the station lookup consumed by creation validation.
type StationDirectory interface {
	GetByID(ctx context.Context, id string) (*station.Station, error)
}

// QRIssuer creates a check-in token for a newly approved booking.
type QRIssuer interface {
	Issue(ctx context.Context, bookingID string) (string, error)
}

type CreateRequest struct {
	UserID           string
	StationID        string
	BookingDate      time.Time
	StartTime        time.Time
	EndTime          time.Time
	VehicleNumber    string
	VehicleType      string
	EstimatedMinutes int
	Notes            string
}

// ModifyRequest carries the editable booking fields. Nil means "leave unchanged".
type ModifyRequest struct {
	BookingDate      *time.Time
	StartTime        *time.Time
	EndTime          *time.Time
	VehicleNumber    *string
	VehicleType      *string
	EstimatedMinutes *int
	Notes            *string
}

// StatusChangeRequest describes a lifecycle transition request.
type StatusChangeRequest struct {
	Status Status
	Actor  string
	Reason string

	// Completion metrics, only honoured when transitioning to completed.
	ActualStartTime *time.Time
	ActualEndTime   *time.Time
	TotalCost       *float64
	EnergyConsumed  *float64
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	Modify(ctx context.Context, id string, req ModifyRequest) (*Booking, error)
	UpdateStatus(ctx context.Context, id string, req StatusChangeRequest) (*Booking, error)
	Delete(ctx context.Context, id, deletedBy string) error
	CheckAvailability(ctx context.Context, stationID string, start, end time.Time, excludeID string) (*AvailabilityResult, error)
	Stats(ctx context.Context, filter StatsFilter) (*Stats, error)
}

type service struct {
	repo     Repository
	stations StationDirectory
	notifier notify.Notifier
	qrIssuer QRIssuer
	numbers  *NumberGenerator
	log      *zap.Logger

	now func() time.Time // injected clock, UTC everywhere
}

func NewService(
	repo Repository,
	stations StationDirectory,
	notifier notify.Notifier,
	qrIssuer QRIssuer,
	numbers *NumberGenerator,
	log *zap.Logger,
) Service {
	return &service{
		repo:     repo,
		stations: stations,
		notifier: notifier,
		qrIssuer: qrIssuer,
		numbers:  numbers,
		log:      log,
		now:      time.Now,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	now := s.now().UTC()

	if err := validateCreateFields(req); err != nil {
		return nil, err
	}
	if err := s.validateCreateRules(ctx, req, now); err != nil {
		return nil, err
	}

	b := &Booking{
		BookingNumber:    s.numbers.Generate(ctx),
		UserID:           req.UserID,
		StationID:        req.StationID,
		BookingDate:      truncateToDay(req.BookingDate.UTC()),
		StartTime:        req.StartTime.UTC(),
		EndTime:          req.EndTime.UTC(),
		VehicleNumber:    req.VehicleNumber,
		VehicleType:      req.VehicleType,
		EstimatedMinutes: req.EstimatedMinutes,
		Notes:            req.Notes,
		Status:           StatusPending,
	}

	// The store's exclusion constraint is the authoritative gate: when two
	// requests pass the availability check concurrently, only one insert
	// lands, the other comes back with ErrTimeConflict.
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.emit(ctx, notify.Event{
		Kind:          notify.EventBookingCreated,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		UserID:        b.UserID,
		StationID:     b.StationID,
		NewStatus:     string(b.Status),
		OccurredAt:    now,
	})

	return b, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Modify(ctx context.Context, id string, req ModifyRequest) (*Booking, error) {
	now := s.now().UTC()

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !b.CanBeModified(now) {
		return nil, ErrCannotModify
	}

	if err := applyModify(b, req); err != nil {
		return nil, err
	}

	timeChanged := req.BookingDate != nil || req.StartTime != nil || req.EndTime != nil
	if timeChanged {
		if !b.StartTime.Before(b.EndTime) {
			return nil, ErrInvalidTimeRange
		}
		if !b.StartTime.After(now) {
			return nil, ErrStartTimePast
		}
		if !b.IsWithinBookingWindow(now) {
			return nil, ErrOutsideWindow
		}

		// Re-validate the interval against everyone but ourselves.
		conflicts, err := s.repo.FindConflicts(ctx, b.StationID, b.StartTime, b.EndTime, b.ID)
		if err != nil {
			return nil, fmt.Errorf("availability check failed: %w", err)
		}
		if len(conflicts) > 0 {
			return nil, &ConflictError{Conflicts: conflicts}
		}
	}

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}

	s.emit(ctx, notify.Event{
		Kind:          notify.EventBookingUpdated,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		UserID:        b.UserID,
		StationID:     b.StationID,
		NewStatus:     string(b.Status),
		OccurredAt:    now,
	})

	return b, nil
}

func (s *service) UpdateStatus(ctx context.Context, id string, req StatusChangeRequest) (*Booking, error) {
	now := s.now().UTC()

	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Status)
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := b.Status
	if !oldStatus.CanTransitionTo(req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, oldStatus, req.Status)
	}

	b.Status = req.Status
	switch req.Status {
	case StatusApproved:
		b.ApprovedAt = &now
		b.ApprovedBy = req.Actor
	case StatusRejected:
		b.RejectedAt = &now
		b.RejectedBy = req.Actor
		b.RejectionReason = req.Reason
	case StatusCancelled:
		b.CancelledAt = &now
		b.CancelledBy = req.Actor
		b.CancellationReason = req.Reason
		// An issued check-in token dies with the booking.
		b.QRToken = ""
		b.QRGeneratedAt = nil
	case StatusCompleted:
		b.CompletedAt = &now
		if req.ActualStartTime != nil {
			b.ActualStartTime = req.ActualStartTime
		}
		if req.ActualEndTime != nil {
			b.ActualEndTime = req.ActualEndTime
		}
		if req.TotalCost != nil {
			b.TotalCost = req.TotalCost
		}
		if req.EnergyConsumed != nil {
			b.EnergyConsumed = req.EnergyConsumed
		}
	}

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}

	if req.Status == StatusApproved && s.qrIssuer != nil {
		if _, err := s.qrIssuer.Issue(ctx, b.ID); err != nil {
			// Approval stands; the token can be issued again from the console.
			s.log.Error("qr issuance after approval failed",
				zap.String("bookingID", b.ID), zap.Error(err))
		} else {
			if fresh, err := s.repo.GetByID(ctx, b.ID); err == nil {
				b = fresh
			}
			s.emit(ctx, notify.Event{
				Kind:          notify.EventQRCodeIssued,
				BookingID:     b.ID,
				BookingNumber: b.BookingNumber,
				UserID:        b.UserID,
				StationID:     b.StationID,
				NewStatus:     string(b.Status),
				OccurredAt:    now,
			})
		}
	}

	s.emit(ctx, notify.Event{
		Kind:          notify.EventBookingStatusChanged,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		UserID:        b.UserID,
		StationID:     b.StationID,
		OldStatus:     string(oldStatus),
		NewStatus:     string(req.Status),
		Reason:        req.Reason,
		OccurredAt:    now,
	})

	return b, nil
}

// Delete is a soft delete: the booking is cancelled with a fixed reason and
// the row is kept for history. Nothing is ever physically removed.
func (s *service) Delete(ctx context.Context, id, deletedBy string) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !b.CanBeCancelled() {
		return ErrCannotCancel
	}

	now := s.now().UTC()
	oldStatus := b.Status

	b.Status = StatusCancelled
	b.CancelledAt = &now
	b.CancelledBy = deletedBy
	b.CancellationReason = "Booking deleted"
	b.QRToken = ""
	b.QRGeneratedAt = nil

	if err := s.repo.Update(ctx, b); err != nil {
		return err
	}

	s.emit(ctx, notify.Event{
		Kind:          notify.EventBookingDeleted,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		UserID:        b.UserID,
		StationID:     b.StationID,
		OldStatus:     string(oldStatus),
		NewStatus:     string(StatusCancelled),
		Reason:        b.CancellationReason,
		OccurredAt:    now,
	})

	return nil
}

func (s *service) CheckAvailability(ctx context.Context, stationID string, start, end time.Time, excludeID string) (*AvailabilityResult, error) {
	if !start.Before(end) {
		return nil, ErrInvalidTimeRange
	}

	conflicts, err := s.repo.FindConflicts(ctx, stationID, start.UTC(), end.UTC(), excludeID)
	if err != nil {
		return nil, fmt.Errorf("availability check failed: %w", err)
	}

	return &AvailabilityResult{
		Available: len(conflicts) == 0,
		Conflicts: conflicts,
	}, nil
}

func (s *service) Stats(ctx context.Context, filter StatsFilter) (*Stats, error) {
	return s.repo.Stats(ctx, filter)
}

// emit publishes a lifecycle event. Notification delivery is best-effort:
// failures are logged and never surfaced to the caller.
func (s *service) emit(ctx context.Context, e notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, e); err != nil {
		s.log.Warn("notification delivery failed",
			zap.String("kind", string(e.Kind)),
			zap.String("bookingID", e.BookingID),
			zap.Error(err))
	}
}

// validateCreateRules runs the ordered business-rule checks for creation.
// The first failing rule wins; nothing is persisted on failure.
func (s *service) validateCreateRules(ctx context.Context, req CreateRequest, now time.Time) error {
	today := truncateToDay(now)
	date := truncateToDay(req.BookingDate.UTC())

	if date.Before(today) {
		return ErrPastDate
	}
	if date.After(today.AddDate(0, 0, BookingWindowDays)) {
		return ErrOutsideWindow
	}
	if !req.StartTime.Before(req.EndTime) {
		return ErrInvalidTimeRange
	}
	if !req.StartTime.After(now) {
		return ErrStartTimePast
	}

	conflicts, err := s.repo.FindConflicts(ctx, req.StationID, req.StartTime.UTC(), req.EndTime.UTC(), "")
	if err != nil {
		return fmt.Errorf("availability check failed: %w", err)
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}

	st, err := s.stations.GetByID(ctx, req.StationID)
	if err != nil {
		if errors.Is(err, station.ErrNotFound) {
			return ErrStationNotFound
		}
		return fmt.Errorf("station lookup failed: %w", err)
	}
	if !st.IsAvailable {
		return ErrStationUnavailable
	}

	return nil
}

func validateCreateFields(req CreateRequest) error {
	if req.UserID == "" || req.StationID == "" || req.BookingDate.IsZero() ||
		req.StartTime.IsZero() || req.EndTime.IsZero() {
		return ErrInvalidInput
	}
	if l := len(req.VehicleNumber); l < MinVehicleNumberLen || l > MaxVehicleNumberLen {
		return ErrInvalidVehicle
	}
	if req.EstimatedMinutes < MinEstimatedMinutes || req.EstimatedMinutes > MaxEstimatedMinutes {
		return ErrInvalidDuration
	}
	if len(req.Notes) > MaxNotesLen {
		return ErrNotesTooLong
	}
	return nil
}

// applyModify copies the supplied fields onto the booking, validating the
// simple field constraints as it goes.
func applyModify(b *Booking, req ModifyRequest) error {
	if req.BookingDate != nil {
		b.BookingDate = truncateToDay(req.BookingDate.UTC())
	}
	if req.StartTime != nil {
		b.StartTime = req.StartTime.UTC()
	}
	if req.EndTime != nil {
		b.EndTime = req.EndTime.UTC()
	}
	if req.VehicleNumber != nil {
		if l := len(*req.VehicleNumber); l < MinVehicleNumberLen || l > MaxVehicleNumberLen {
			return ErrInvalidVehicle
		}
		b.VehicleNumber = *req.VehicleNumber
	}
	if req.VehicleType != nil {
		b.VehicleType = *req.VehicleType
	}
	if req.EstimatedMinutes != nil {
		if *req.EstimatedMinutes < MinEstimatedMinutes || *req.EstimatedMinutes > MaxEstimatedMinutes {
			return ErrInvalidDuration
		}
		b.EstimatedMinutes = *req.EstimatedMinutes
	}
	if req.Notes != nil {
		if len(*req.Notes) > MaxNotesLen {
			return ErrNotesTooLong
		}
		b.Notes = *req.Notes
	}
	return nil
}
