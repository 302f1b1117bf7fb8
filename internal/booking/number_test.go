package booking

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestNumberGenerator(repo Repository, now time.Time) *NumberGenerator {
	g := NewNumberGenerator(repo, zap.NewNop())
	g.now = func() time.Time { return now }
	return g
}

func TestGenerateBookingNumberFormat(t *testing.T) {
	repo := newMemRepository()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gen := newTestNumberGenerator(repo, now)

	number := gen.Generate(context.Background())
	assert.Equal(t, "BK-20260310-0001", number)
	assert.Regexp(t, regexp.MustCompile(`^BK-\d{8}-\d{4}$`), number)
}

func TestGenerateBookingNumberSequence(t *testing.T) {
	repo := newMemRepository()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gen := newTestNumberGenerator(repo, now)

	seen := make(map[string]bool)
	for i := 1; i <= 5; i++ {
		n := gen.Generate(context.Background())
		assert.False(t, seen[n], "numbers must be unique")
		seen[n] = true
	}
	assert.True(t, seen["BK-20260310-0005"])

	// A new day restarts the sequence.
	gen.now = func() time.Time { return now.AddDate(0, 0, 1) }
	assert.Equal(t, "BK-20260311-0001", gen.Generate(context.Background()))
}

func TestGenerateBookingNumberCollisionRetry(t *testing.T) {
	repo := newMemRepository()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gen := newTestNumberGenerator(repo, now)

	// Some other writer already took the first number of the day.
	repo.takenNumbers["BK-20260310-0001"] = true

	assert.Equal(t, "BK-20260310-0002", gen.Generate(context.Background()))
}

func TestGenerateBookingNumberFallback(t *testing.T) {
	repo := newMemRepository()
	repo.counterErr = errors.New("counter table unavailable")
	now := time.Date(2026, 3, 10, 9, 41, 22, 0, time.UTC)
	gen := newTestNumberGenerator(repo, now)

	assert.Equal(t, "BK-20260310094122", gen.Generate(context.Background()))
}
