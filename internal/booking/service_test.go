package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/IT22056320/ev-booking-backend/internal/notify"
	"github.com/IT22056320/ev-booking-backend/internal/station"
)

type memStations struct {
	stations map[string]*station.Station
}

func (m *memStations) GetByID(_ context.Context, id string) (*station.Station, error) {
	st, ok := m.stations[id]
	if !ok {
		return nil, station.ErrNotFound
	}
	return st, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) kinds() []notify.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.EventKind, len(n.events))
	for i, e := range n.events {
		out[i] = e.Kind
	}
	return out
}

// fakeIssuer stores a predictable token on the booking, standing in for the
// real QR service.
type fakeIssuer struct {
	repo Repository
	err  error
}

func (f *fakeIssuer) Issue(ctx context.Context, bookingID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	token := "qr-" + bookingID
	if err := f.repo.SetQR(ctx, bookingID, token, time.Now().UTC()); err != nil {
		return "", err
	}
	return token, nil
}

type fixture struct {
	repo     *memRepository
	stations *memStations
	notifier *recordingNotifier
	issuer   *fakeIssuer
	svc      *service
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newMemRepository()
	stations := &memStations{stations: map[string]*station.Station{
		"station-1": {ID: "station-1", Name: "Downtown A", ConnectorType: "ccs2", PowerKW: 50, IsAvailable: true},
		"station-2": {ID: "station-2", Name: "Airport B", ConnectorType: "type2", PowerKW: 22, IsAvailable: true},
		"station-offline": {ID: "station-offline", Name: "Under Maintenance", ConnectorType: "ccs2", PowerKW: 50, IsAvailable: false},
	}}
	notifier := &recordingNotifier{}
	issuer := &fakeIssuer{repo: repo}

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	gen := NewNumberGenerator(repo, zap.NewNop())
	gen.now = func() time.Time { return now }

	svc := NewService(repo, stations, notifier, issuer, gen, zap.NewNop()).(*service)
	svc.now = func() time.Time { return now }

	return &fixture{
		repo:     repo,
		stations: stations,
		notifier: notifier,
		issuer:   issuer,
		svc:      svc,
		now:      now,
	}
}

func (f *fixture) validRequest() CreateRequest {
	return CreateRequest{
		UserID:           "user-1",
		StationID:        "station-1",
		BookingDate:      time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		StartTime:        time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
		EndTime:          time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC),
		VehicleNumber:    "CAB-1234",
		VehicleType:      "car",
		EstimatedMinutes: 120,
	}
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.validRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, "BK-20260310-0001", b.BookingNumber)
	assert.Equal(t, "user-1", b.UserID)
	assert.NotEmpty(t, b.ID)

	assert.Equal(t, []notify.EventKind{notify.EventBookingCreated}, f.notifier.kinds())
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*CreateRequest)
		wantErr error
	}{
		{
			"date in the past",
			func(r *CreateRequest) {
				r.BookingDate = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
				r.StartTime = time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
				r.EndTime = time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
			},
			ErrPastDate,
		},
		{
			"date beyond the seven day window",
			func(r *CreateRequest) {
				r.BookingDate = time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)
				r.StartTime = time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)
				r.EndTime = time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)
			},
			ErrOutsideWindow,
		},
		{
			"seventh day is still allowed",
			func(r *CreateRequest) {
				r.BookingDate = time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)
				r.StartTime = time.Date(2026, 3, 17, 10, 0, 0, 0, time.UTC)
				r.EndTime = time.Date(2026, 3, 17, 12, 0, 0, 0, time.UTC)
			},
			nil,
		},
		{
			"start not before end",
			func(r *CreateRequest) { r.EndTime = r.StartTime },
			ErrInvalidTimeRange,
		},
		{
			"start earlier in the day than now",
			func(r *CreateRequest) {
				r.BookingDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
				r.StartTime = time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
				r.EndTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
			},
			ErrStartTimePast,
		},
		{
			"unknown station",
			func(r *CreateRequest) { r.StationID = "station-missing" },
			ErrStationNotFound,
		},
		{
			"station offline",
			func(r *CreateRequest) { r.StationID = "station-offline" },
			ErrStationUnavailable,
		},
		{
			"vehicle number too short",
			func(r *CreateRequest) { r.VehicleNumber = "X" },
			ErrInvalidVehicle,
		},
		{
			"estimated minutes zero",
			func(r *CreateRequest) { r.EstimatedMinutes = 0 },
			ErrInvalidDuration,
		},
		{
			"estimated minutes above a full day",
			func(r *CreateRequest) { r.EstimatedMinutes = 1441 },
			ErrInvalidDuration,
		},
		{
			"missing user",
			func(r *CreateRequest) { r.UserID = "" },
			ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.validRequest()
			tt.mutate(&req)

			_, err := f.svc.Create(ctx, req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateBookingConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.validRequest())
	require.NoError(t, err)

	// Same slot, different user.
	req := f.validRequest()
	req.UserID = "user-2"
	_, err = f.svc.Create(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeConflict)

	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, first.ID, conflictErr.Conflicts[0].ID)

	// Back-to-back is fine.
	req = f.validRequest()
	req.UserID = "user-2"
	req.StartTime = time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	req.EndTime = time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)
	_, err = f.svc.Create(ctx, req)
	assert.NoError(t, err)

	// The same slot on another station is fine too.
	req = f.validRequest()
	req.UserID = "user-2"
	req.StationID = "station-2"
	_, err = f.svc.Create(ctx, req)
	assert.NoError(t, err)
}

func TestCreateBookingIgnoresInactiveConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.validRequest())
	require.NoError(t, err)

	// Cancel it; the slot frees up.
	require.NoError(t, f.svc.Delete(ctx, b.ID, "user-1"))

	req := f.validRequest()
	req.UserID = "user-2"
	_, err = f.svc.Create(ctx, req)
	assert.NoError(t, err)
}

func TestConcurrentCreatesSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const racers = 8

	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := f.validRequest()
			req.UserID = fmt.Sprintf("user-%d", i)
			_, errs[i] = f.svc.Create(ctx, req)
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		default:
			assert.ErrorIs(t, err, ErrTimeConflict)
			lost++
		}
	}

	assert.Equal(t, 1, won, "exactly one racing create may win the slot")
	assert.Equal(t, racers-1, lost)
}

func TestModifyBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.validRequest())
	require.NoError(t, err)

	t.Run("move to a free slot", func(t *testing.T) {
		start := time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)
		end := time.Date(2026, 3, 11, 16, 0, 0, 0, time.UTC)

		updated, err := f.svc.Modify(ctx, b.ID, ModifyRequest{StartTime: &start, EndTime: &end})
		require.NoError(t, err)
		assert.Equal(t, start, updated.StartTime)
		assert.Equal(t, end, updated.EndTime)
	})

	t.Run("keeping the same slot does not conflict with itself", func(t *testing.T) {
		start := time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)
		end := time.Date(2026, 3, 11, 16, 0, 0, 0, time.UTC)

		_, err := f.svc.Modify(ctx, b.ID, ModifyRequest{StartTime: &start, EndTime: &end})
		assert.NoError(t, err)
	})

	t.Run("moving onto another booking conflicts", func(t *testing.T) {
		req := f.validRequest()
		req.UserID = "user-2"
		req.StartTime = time.Date(2026, 3, 11, 17, 0, 0, 0, time.UTC)
		req.EndTime = time.Date(2026, 3, 11, 19, 0, 0, 0, time.UTC)
		_, err := f.svc.Create(ctx, req)
		require.NoError(t, err)

		start := time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC)
		end := time.Date(2026, 3, 11, 20, 0, 0, 0, time.UTC)
		_, err = f.svc.Modify(ctx, b.ID, ModifyRequest{StartTime: &start, EndTime: &end})
		assert.ErrorIs(t, err, ErrTimeConflict)
	})

	t.Run("within the cutoff window", func(t *testing.T) {
		// 11h59m before start: too late.
		f.svc.now = func() time.Time {
			return time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC).Add(-12*time.Hour + time.Minute)
		}
		notes := "late edit"
		_, err := f.svc.Modify(ctx, b.ID, ModifyRequest{Notes: &notes})
		assert.ErrorIs(t, err, ErrCannotModify)
	})

	t.Run("non-pending bookings are frozen", func(t *testing.T) {
		f.svc.now = func() time.Time { return f.now }

		_, err := f.svc.UpdateStatus(ctx, b.ID, StatusChangeRequest{Status: StatusApproved, Actor: "op-1"})
		require.NoError(t, err)

		notes := "after approval"
		_, err = f.svc.Modify(ctx, b.ID, ModifyRequest{Notes: &notes})
		assert.ErrorIs(t, err, ErrCannotModify)
	})
}

func TestUpdateStatusLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.validRequest())
	require.NoError(t, err)

	t.Run("approve stamps the actor and issues a qr token", func(t *testing.T) {
		approved, err := f.svc.UpdateStatus(ctx, b.ID, StatusChangeRequest{Status: StatusApproved, Actor: "op-1"})
		require.NoError(t, err)

		assert.Equal(t, StatusApproved, approved.Status)
		require.NotNil(t, approved.ApprovedAt)
		assert.Equal(t, f.now, *approved.ApprovedAt)
		assert.Equal(t, "op-1", approved.ApprovedBy)
		assert.Equal(t, "qr-"+b.ID, approved.QRToken)
	})

	t.Run("complete records actual usage", func(t *testing.T) {
		actualStart := time.Date(2026, 3, 11, 10, 5, 0, 0, time.UTC)
		actualEnd := time.Date(2026, 3, 11, 11, 45, 0, 0, time.UTC)
		cost := 18.50
		energy := 32.4

		completed, err := f.svc.UpdateStatus(ctx, b.ID, StatusChangeRequest{
			Status:          StatusCompleted,
			Actor:           "op-1",
			ActualStartTime: &actualStart,
			ActualEndTime:   &actualEnd,
			TotalCost:       &cost,
			EnergyConsumed:  &energy,
		})
		require.NoError(t, err)

		assert.Equal(t, StatusCompleted, completed.Status)
		require.NotNil(t, completed.CompletedAt)
		assert.Equal(t, &cost, completed.TotalCost)
		assert.Equal(t, &energy, completed.EnergyConsumed)
	})

	t.Run("terminal states have no exits", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, b.ID, StatusChangeRequest{Status: StatusCancelled, Actor: "op-1"})
		assert.ErrorIs(t, err, ErrInvalidTransition)

		_, err = f.svc.UpdateStatus(ctx, b.ID, StatusChangeRequest{Status: StatusApproved, Actor: "op-1"})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestUpdateStatusReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.validRequest())
	require.NoError(t, err)

	rejected, err := f.svc.UpdateStatus(ctx, b.ID, StatusChangeRequest{
		Status: StatusRejected,
		Actor:  "op-1",
		Reason: "station reserved for maintenance",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "station reserved for maintenance", rejected.RejectionReason)
	require.NotNil(t, rejected.RejectedAt)

	// Rejecting frees the slot.
	req := f.validRequest()
	req.UserID = "user-2"
	_, err = f.svc.Create(ctx, req)
	assert.NoError(t, err)
}

func TestUpdateStatusInvalidValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.validRequest())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, b.ID, StatusChangeRequest{Status: Status("archived"), Actor: "op-1"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Skipping approval entirely is rejected.
	_, err = f.svc.UpdateStatus(ctx, b.ID, StatusChangeRequest{Status: StatusCompleted, Actor: "op-1"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelClearsQRToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.validRequest())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, b.ID, StatusChangeRequest{Status: StatusApproved, Actor: "op-1"})
	require.NoError(t, err)

	cancelled, err := f.svc.UpdateStatus(ctx, b.ID, StatusChangeRequest{
		Status: StatusCancelled,
		Actor:  "user-1",
		Reason: "change of plans",
	})
	require.NoError(t, err)

	assert.Empty(t, cancelled.QRToken)
	assert.Nil(t, cancelled.QRGeneratedAt)
	assert.Equal(t, "change of plans", cancelled.CancellationReason)
}

func TestDeleteIsSoft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.validRequest())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, b.ID, "user-1"))

	// The record survives as a cancelled booking.
	got, err := f.svc.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, "Booking deleted", got.CancellationReason)
	assert.Equal(t, "user-1", got.CancelledBy)

	// Deleting twice fails: the booking is already terminal.
	assert.ErrorIs(t, f.svc.Delete(ctx, b.ID, "user-1"), ErrCannotCancel)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.validRequest())
	require.NoError(t, err)

	t.Run("occupied slot", func(t *testing.T) {
		result, err := f.svc.CheckAvailability(ctx, "station-1",
			time.Date(2026, 3, 11, 11, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 11, 13, 0, 0, 0, time.UTC), "")
		require.NoError(t, err)
		assert.False(t, result.Available)
		require.Len(t, result.Conflicts, 1)
		assert.Equal(t, b.ID, result.Conflicts[0].ID)
	})

	t.Run("free slot", func(t *testing.T) {
		result, err := f.svc.CheckAvailability(ctx, "station-1",
			time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC), "")
		require.NoError(t, err)
		assert.True(t, result.Available)
		assert.Empty(t, result.Conflicts)
	})

	t.Run("excluding the booking itself", func(t *testing.T) {
		result, err := f.svc.CheckAvailability(ctx, "station-1", b.StartTime, b.EndTime, b.ID)
		require.NoError(t, err)
		assert.True(t, result.Available)
	})

	t.Run("invalid range", func(t *testing.T) {
		_, err := f.svc.CheckAvailability(ctx, "station-1", b.EndTime, b.StartTime, "")
		assert.ErrorIs(t, err, ErrInvalidTimeRange)
	})
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b1, err := f.svc.Create(ctx, f.validRequest())
	require.NoError(t, err)

	req := f.validRequest()
	req.UserID = "user-2"
	req.StartTime = time.Date(2026, 3, 11, 13, 0, 0, 0, time.UTC)
	req.EndTime = time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC)
	_, err = f.svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, b1.ID, StatusChangeRequest{Status: StatusApproved, Actor: "op-1"})
	require.NoError(t, err)
	cost := 25.0
	_, err = f.svc.UpdateStatus(ctx, b1.ID, StatusChangeRequest{Status: StatusCompleted, Actor: "op-1", TotalCost: &cost})
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, StatsFilter{})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[StatusCompleted])
	assert.Equal(t, 1, stats.ByStatus[StatusPending])
	assert.Equal(t, 25.0, stats.TotalRevenue)
	assert.Equal(t, 120.0, stats.AvgDurationMinutes)
}
