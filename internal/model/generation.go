// Package model defines the core data types of a budget roll-forward.
package model

import (
	"time"

	"github.com/Veraticus/biweekly/internal/period"
	"github.com/shopspring/decimal"
)

// AnchorKind records where the first sub-period's start date came from.
type AnchorKind string

const (
	// AnchorPredecessor means the start date follows the previous month's last end date.
	AnchorPredecessor AnchorKind = "predecessor"
	// AnchorOperator means the operator supplied the start day.
	AnchorOperator AnchorKind = "operator"
)

// SubPeriod is a computed sub-period and whether its sheets were kept.
type SubPeriod struct {
	period.SubPeriod
	Retained bool
}

// Balance is one category row carried forward from the predecessor.
// A blank source cell leaves Amount invalid and Text empty.
type Balance struct {
	Text   string
	Amount decimal.NullDecimal
	Row    int
}

// NewBalance builds a Balance from a raw cell value.
func NewBalance(row int, raw string) Balance {
	b := Balance{Row: row, Text: raw}
	if d, err := decimal.NewFromString(raw); err == nil {
		b.Amount = decimal.NewNullDecimal(d)
	}
	return b
}

// IsBlank reports whether the source cell was empty.
func (b Balance) IsBlank() bool {
	return b.Text == ""
}

// Generation describes a budget document produced by a roll-forward.
type Generation struct {
	CreatedAt       time.Time
	AnchorDate      time.Time
	ID              string
	OutputPath      string
	PredecessorPath string
	SourceSheet     string
	AnchorKind      AnchorKind
	SubPeriods      []SubPeriod
	Balances        []Balance
	Period          period.Period
}

// HasPredecessor reports whether balances were carried from a previous document.
func (g *Generation) HasPredecessor() bool {
	return g.PredecessorPath != ""
}

// RetainedSubPeriods returns the sub-periods whose sheets remain in the document.
func (g *Generation) RetainedSubPeriods() []SubPeriod {
	var kept []SubPeriod
	for _, sp := range g.SubPeriods {
		if sp.Retained {
			kept = append(kept, sp)
		}
	}
	return kept
}

// CarriedTotal sums every numeric carried balance.
func (g *Generation) CarriedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, b := range g.Balances {
		if b.Amount.Valid {
			total = total.Add(b.Amount.Decimal)
		}
	}
	return total
}
