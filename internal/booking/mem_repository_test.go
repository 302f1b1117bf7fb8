package booking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// memRepository is an in-memory Repository for tests. Like the real store,
// Create enforces the no-overlap invariant at insert time under a single
// lock, so racing creates for the same slot resolve to exactly one winner.
type memRepository struct {
	mu       sync.Mutex
	bookings map[string]*Booking
	counters map[string]int
	nextID   int

	takenNumbers map[string]bool // extra numbers treated as taken
	counterErr   error           // forces NextDaySequence to fail
}

func newMemRepository() *memRepository {
	return &memRepository{
		bookings:     make(map[string]*Booking),
		counters:     make(map[string]int),
		takenNumbers: make(map[string]bool),
	}
}

func cloneBooking(b *Booking) *Booking {
	c := *b
	return &c
}

func isActiveStatus(s Status) bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

func (r *memRepository) Create(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.bookings {
		if existing.StationID == b.StationID && isActiveStatus(existing.Status) &&
			existing.Overlaps(b.StartTime, b.EndTime) {
			return ErrTimeConflict
		}
	}

	r.nextID++
	b.ID = fmt.Sprintf("booking-%d", r.nextID)
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	r.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (r *memRepository) GetByID(_ context.Context, id string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *memRepository) List(_ context.Context, filter Filter) ([]*Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Booking
	for _, b := range r.bookings {
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.StationID != "" && b.StationID != filter.StationID {
			continue
		}
		if filter.Status != "" && string(b.Status) != filter.Status {
			continue
		}
		if filter.VehicleNumber != "" &&
			!strings.Contains(strings.ToLower(b.VehicleNumber), strings.ToLower(filter.VehicleNumber)) {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	return out, len(out), nil
}

func (r *memRepository) Update(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[b.ID]; !ok {
		return ErrNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	r.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (r *memRepository) FindConflicts(_ context.Context, stationID string, start, end time.Time, excludeID string) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Booking
	for _, b := range r.bookings {
		if b.ID == excludeID || b.StationID != stationID || !isActiveStatus(b.Status) {
			continue
		}
		if b.Overlaps(start, end) {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (r *memRepository) NumberExists(_ context.Context, number string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.takenNumbers[number] {
		return true, nil
	}
	for _, b := range r.bookings {
		if b.BookingNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepository) NextDaySequence(_ context.Context, day string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.counterErr != nil {
		return 0, r.counterErr
	}
	r.counters[day]++
	return r.counters[day], nil
}

func (r *memRepository) SetQR(_ context.Context, id, token string, generatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.QRToken = token
	t := generatedAt
	b.QRGeneratedAt = &t
	return nil
}

func (r *memRepository) ClearQR(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.QRToken = ""
	b.QRGeneratedAt = nil
	return nil
}

func (r *memRepository) Stats(_ context.Context, _ StatsFilter) (*Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &Stats{ByStatus: make(map[Status]int)}
	var totalMinutes float64
	for _, b := range r.bookings {
		stats.Total++
		stats.ByStatus[b.Status]++
		if b.TotalCost != nil {
			stats.TotalRevenue += *b.TotalCost
		}
		totalMinutes += float64(b.DurationMinutes())
	}
	if stats.Total > 0 {
		stats.AvgDurationMinutes = totalMinutes / float64(stats.Total)
	}
	return stats, nil
}
