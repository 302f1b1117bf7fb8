package booking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	bookingNumberDayFormat      = "20060102"
	bookingNumberFallbackFormat = "20060102150405"
)

// NumberGenerator produces human-readable booking numbers of the form
// BK-YYYYMMDD-NNNN, where NNNN is a 4-digit per-UTC-day sequence backed
// by an atomic store counter. It never fails: when the counter or the
// collision check is unavailable it falls back to a timestamp number.
type NumberGenerator struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewNumberGenerator(repo Repository, log *zap.Logger) *NumberGenerator {
	return &NumberGenerator{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// Generate returns the next booking number for the current UTC day.
func (g *NumberGenerator) Generate(ctx context.Context) string {
	now := g.now().UTC()
	day := now.Format(bookingNumberDayFormat)

	seq, err := g.repo.NextDaySequence(ctx, day)
	if err != nil {
		g.log.Warn("booking number counter unavailable, using timestamp fallback", zap.Error(err))
		return g.fallback(now)
	}

	candidate := formatBookingNumber(day, seq)

	// The counter makes collisions implausible, but the number column is
	// also user-visible and unique, so double-check and retry once.
	exists, err := g.repo.NumberExists(ctx, candidate)
	if err != nil {
		g.log.Warn("booking number collision check failed, using timestamp fallback", zap.Error(err))
		return g.fallback(now)
	}
	if !exists {
		return candidate
	}

	candidate = formatBookingNumber(day, seq+1)
	exists, err = g.repo.NumberExists(ctx, candidate)
	if err != nil || exists {
		g.log.Warn("booking number retry collided, using timestamp fallback",
			zap.String("candidate", candidate), zap.Error(err))
		return g.fallback(now)
	}
	return candidate
}

func (g *NumberGenerator) fallback(now time.Time) string {
	return "BK-" + now.Format(bookingNumberFallbackFormat)
}

func formatBookingNumber(day string, seq int) string {
	return fmt.Sprintf("BK-%s-%04d", day, seq)
}
