package model

import (
	"testing"
	"time"

	"github.com/Veraticus/biweekly/internal/period"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewBalance(t *testing.T) {
	b := NewBalance(2, "500")
	assert.False(t, b.IsBlank())
	assert.True(t, b.Amount.Valid)
	assert.True(t, decimal.NewFromInt(500).Equal(b.Amount.Decimal))

	blank := NewBalance(3, "")
	assert.True(t, blank.IsBlank())
	assert.False(t, blank.Amount.Valid)

	text := NewBalance(4, "see notes")
	assert.False(t, text.IsBlank())
	assert.False(t, text.Amount.Valid)
}

func TestGeneration_Summaries(t *testing.T) {
	chain := period.Chain(time.Date(2024, time.January, 29, 0, 0, 0, 0, time.UTC))
	g := &Generation{
		Period: period.Period{Year: 2024, Month: time.February},
		SubPeriods: []SubPeriod{
			{SubPeriod: chain[0], Retained: true},
			{SubPeriod: chain[1], Retained: true},
			{SubPeriod: chain[2], Retained: false},
		},
		Balances: []Balance{
			NewBalance(2, "500.25"),
			NewBalance(3, ""),
			NewBalance(4, "-0.25"),
		},
	}

	assert.False(t, g.HasPredecessor())
	assert.Len(t, g.RetainedSubPeriods(), 2)
	assert.Equal(t, "500", g.CarriedTotal().String())
}
