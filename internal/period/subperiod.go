package period

import "time"

const (
	// Count is the number of sub-periods a budget document is seeded with.
	Count = 3
	// Length is the number of days in one sub-period, inclusive.
	Length = 14
)

// SubPeriod is one biweekly pay cycle. Start and End are both inclusive.
type SubPeriod struct {
	Start time.Time
	End   time.Time
	Index int
}

// Chain computes Count contiguous sub-periods, the first starting on start.
// Each sub-period begins the day after the previous one ends.
func Chain(start time.Time) [Count]SubPeriod {
	var chain [Count]SubPeriod
	next := Day(start)
	for i := range chain {
		chain[i] = SubPeriod{
			Index: i + 1,
			Start: next,
			End:   next.AddDate(0, 0, Length-1),
		}
		next = chain[i].End.AddDate(0, 0, 1)
	}
	return chain
}

// Overflows reports whether the sub-period ends after the last day of p.
func (s SubPeriod) Overflows(p Period) bool {
	return s.End.After(p.LastDay())
}

// Days returns the inclusive length of the sub-period in days.
func (s SubPeriod) Days() int {
	return int(s.End.Sub(s.Start).Hours()/24) + 1
}
