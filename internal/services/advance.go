// Package services provides business logic and orchestration.
//
// This file implements the strategy for stepping a recurrence cursor
// forward. Each cadence owns the calendar arithmetic for one step.

package services

import (
	"fmt"

	"tally/internal/core"
)

// Advancer steps a catch-up cursor one cadence interval forward.
type Advancer interface {
	// Next returns the occurrence date immediately after d.
	Next(d core.Date) core.Date
}

// DailyAdvancer steps by one calendar day.
type DailyAdvancer struct{}

func (DailyAdvancer) Next(d core.Date) core.Date { return d.AddDays(1) }

// WeeklyAdvancer steps by seven calendar days.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(d core.Date) core.Date { return d.AddDays(7) }

// MonthlyAdvancer steps by one calendar month. An anchor day past the end of
// the target month clamps to that month's last day (Jan 31 -> Feb 28/29);
// later steps advance from the clamped cursor.
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(d core.Date) core.Date { return d.AddMonths(1) }

var advancers = map[core.Recurrence]Advancer{
	core.RecurDaily:   DailyAdvancer{},
	core.RecurWeekly:  WeeklyAdvancer{},
	core.RecurMonthly: MonthlyAdvancer{},
}

// AdvancerFor returns the advancer for a cadence. RecurNone has no advancer:
// non-recurring rows are never projected.
func AdvancerFor(r core.Recurrence) (Advancer, error) {
	adv, ok := advancers[r]
	if !ok {
		return nil, fmt.Errorf("no advancer for recurrence %q", r)
	}
	return adv, nil
}

// RegisterAdvancer installs a custom advancer for a new cadence.
func RegisterAdvancer(r core.Recurrence, adv Advancer) {
	advancers[r] = adv
}
