package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/Veraticus/biweekly/internal/model"
	"github.com/Veraticus/biweekly/internal/period"
	"github.com/stretchr/testify/assert"
)

func febGeneration() *model.Generation {
	p := period.Period{Year: 2024, Month: time.February}
	gen := &model.Generation{
		Period:          p,
		OutputPath:      "/budgets/2024/2024 - February.xlsx",
		PredecessorPath: "/budgets/2024/2024 - January.xlsx",
		SourceSheet:     "Jan - Pay 3",
		AnchorKind:      model.AnchorPredecessor,
		AnchorDate:      time.Date(2024, time.January, 29, 0, 0, 0, 0, time.UTC),
		Balances:        []model.Balance{model.NewBalance(2, "500"), model.NewBalance(3, "")},
	}
	for _, sp := range period.Chain(gen.AnchorDate) {
		gen.SubPeriods = append(gen.SubPeriods, model.SubPeriod{SubPeriod: sp, Retained: !sp.Overflows(p)})
	}
	return gen
}

func TestRenderGeneration(t *testing.T) {
	out := RenderGeneration(febGeneration())

	assert.Contains(t, out, "Budget for 2024 - February")
	assert.Contains(t, out, "Jan - Pay 3")
	assert.Contains(t, out, "Jan 29, 2024 to Feb 11, 2024")
	assert.Contains(t, out, "removed, ends next month")
	assert.Contains(t, out, "Carried 1 balances, total 500.00")
}

func TestRenderHistory(t *testing.T) {
	assert.Contains(t, RenderHistory(nil), "No budget workbooks")

	out := RenderHistory([]model.Generation{*febGeneration()})
	assert.Contains(t, out, "Period")
	assert.Contains(t, out, "2024 - February")
	assert.Contains(t, out, "2/3")
	assert.Contains(t, out, "500.00")
}

func TestPhaseProgress(t *testing.T) {
	var out bytes.Buffer
	p := NewPhaseProgress(&out, 2)
	p.Update("rename sheets", 1, 2)
	p.Update("prune sub-periods", 2, 2)
	assert.NotEmpty(t, out.String())
}
