// Package service defines the interfaces shared between the roll-forward
// engine, its front ends and its persistence.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/biweekly/internal/model"
	"github.com/Veraticus/biweekly/internal/period"
)

// HistoryStore records every budget document the generator produces.
type HistoryStore interface {
	RecordGeneration(ctx context.Context, gen *model.Generation) error
	GetGeneration(ctx context.Context, p period.Period) (*model.Generation, error)
	ListGenerations(ctx context.Context) ([]model.Generation, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Publisher mirrors a generated period somewhere outside the local workbook.
type Publisher interface {
	Publish(ctx context.Context, gen *model.Generation) error
}

// StartDaySource supplies the first day of a period when there is no
// previous document to continue from.
type StartDaySource interface {
	StartDay(ctx context.Context, p period.Period) (int, error)
}

// StartDayFunc adapts a function to StartDaySource.
type StartDayFunc func(ctx context.Context, p period.Period) (int, error)

// StartDay implements StartDaySource.
func (f StartDayFunc) StartDay(ctx context.Context, p period.Period) (int, error) {
	return f(ctx, p)
}

// FixedStartDay is a StartDaySource that always answers the same day.
type FixedStartDay int

// StartDay implements StartDaySource.
func (d FixedStartDay) StartDay(_ context.Context, _ period.Period) (int, error) {
	return int(d), nil
}

// RetryOptions configures retry behavior for remote calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
