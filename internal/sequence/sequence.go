// Package sequence mints human-readable daily order numbers of the form
// PREFIXYYYYMMDD-NNN, e.g. expo20250831-004.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Counter provides the per-day serial backing. Implementations must hand out
// each serial exactly once per day key; the first serial of a day is 1.
type Counter interface {
	NextSerial(ctx context.Context, dayKey string) (int, error)
}

// Generator composes order numbers from a fixed prefix, a day key derived in
// a fixed location, and an at-least-3-digit daily serial. The location is
// chosen once at startup; changing it on a running deployment would split a
// calendar day across two day keys and break serial uniqueness.
type Generator struct {
	prefix  string
	loc     *time.Location
	counter Counter
	logger  zerolog.Logger
}

// New creates a new order number generator.
func New(prefix string, loc *time.Location, counter Counter, logger zerolog.Logger) *Generator {
	return &Generator{
		prefix:  prefix,
		loc:     loc,
		counter: counter,
		logger:  logger.With().Str("component", "sequence").Logger(),
	}
}

// DayKey derives the YYYYMMDD key for t in the generator's location.
func (g *Generator) DayKey(t time.Time) string {
	return t.In(g.loc).Format("20060102")
}

// Next mints the order number for a submission confirmed at now.
func (g *Generator) Next(ctx context.Context, now time.Time) (string, error) {
	dayKey := g.DayKey(now)

	serial, err := g.counter.NextSerial(ctx, dayKey)
	if err != nil {
		return "", fmt.Errorf("failed to obtain serial for day %s: %w", dayKey, err)
	}

	number := fmt.Sprintf("%s%s-%03d", g.prefix, dayKey, serial)

	g.logger.Debug().
		Str("day_key", dayKey).
		Int("serial", serial).
		Str("order_number", number).
		Msg("order number minted")

	return number, nil
}
