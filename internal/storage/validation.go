// Package storage provides the generation history persistence layer.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/biweekly/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidGeneration = errors.New("invalid generation")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateGeneration validates a generation before it is recorded.
func validateGeneration(gen *model.Generation) error {
	if gen == nil {
		return fmt.Errorf("%w: generation", ErrNilParameter)
	}
	if gen.Period.Year < 1 || gen.Period.Month < 1 || gen.Period.Month > 12 {
		return fmt.Errorf("%w: bad period %d-%d", ErrInvalidGeneration, gen.Period.Year, gen.Period.Month)
	}
	if err := validateString(gen.OutputPath, "output path"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGeneration, err)
	}
	if gen.AnchorDate.IsZero() {
		return fmt.Errorf("%w: missing anchor date", ErrInvalidGeneration)
	}
	switch gen.AnchorKind {
	case model.AnchorPredecessor, model.AnchorOperator:
	default:
		return fmt.Errorf("%w: anchor kind %q", ErrInvalidGeneration, gen.AnchorKind)
	}
	return nil
}
