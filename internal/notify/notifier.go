package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventKind identifies the lifecycle transition that produced an event.
type EventKind string

const (
	EventBookingCreated       EventKind = "booking.created"
	EventBookingUpdated       EventKind = "booking.updated"
	EventBookingStatusChanged EventKind = "booking.status_changed"
	EventBookingDeleted       EventKind = "booking.deleted"
	EventQRCodeIssued         EventKind = "booking.qr_issued"
)

// Event is the payload published on every booking lifecycle transition.
type Event struct {
	Kind          EventKind
	BookingID     string
	BookingNumber string
	UserID        string
	StationID     string
	OldStatus     string
	NewStatus     string
	Reason        string
	OccurredAt    time.Time
}

// Notifier is the outbound port for lifecycle notifications.
// Delivery is best-effort: callers must never let a Notify failure
// abort the operation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// LogNotifier writes events to the structured log. It stands in for the
// push/real-time transport, which is an external collaborator.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates a Notifier that records events via zap.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, e Event) error {
	n.log.Info("booking notification",
		zap.String("kind", string(e.Kind)),
		zap.String("bookingID", e.BookingID),
		zap.String("bookingNumber", e.BookingNumber),
		zap.String("userID", e.UserID),
		zap.String("stationID", e.StationID),
		zap.String("oldStatus", e.OldStatus),
		zap.String("newStatus", e.NewStatus),
		zap.String("reason", e.Reason),
		zap.Time("occurredAt", e.OccurredAt),
	)
	return nil
}
