/*
period.go - Compliance period calculation

PURPOSE:
  Pure calendar logic: given a template's frequency, its duration modifier,
  and a reference instant, compute the next compliance period's boundaries.
  This is the only part of the generator with real temporal branching; each
  frequency has its own calendar rules.

PERIOD SHAPE:
  Periods span whole days. Start is midnight UTC of the first day; End is
  23:59:59.999 UTC of the last day. Multi-year frequencies produce a single
  multi-year span, not one period per year.

DETERMINISM:
  The calculator is deterministic: the same (frequency, modifier, reference)
  always yields bytewise-equal boundaries. Duplicate detection relies on this
  by comparing periods with instant-level equality rather than overlap.

SEE ALSO:
  - frequency.go: The closed variant set switched on here
  - generator.go: Feeds the computed period through the lead-window gate
*/
package compliance

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD
// =============================================================================

// Period is the [Start, End] compliance window a generated instance covers.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s]", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// Equal reports instant-level equality of both boundaries.
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

// =============================================================================
// PERIOD CALCULATOR
// =============================================================================

// DefaultFiscalYearStart is the fiscal year start month used when no other
// is configured.
const DefaultFiscalYearStart = time.July

// PeriodCalculator computes the next compliance period for a frequency.
type PeriodCalculator struct {
	// FiscalYearStart is the month a fiscal year begins on (day 1).
	// Zero value falls back to DefaultFiscalYearStart.
	FiscalYearStart time.Month
}

// NextPeriod returns the compliance period following the reference instant,
// or ok=false when the frequency produces no period (one-time, unsupported).
func (pc PeriodCalculator) NextPeriod(freq Frequency, mod DurationModifier, ref time.Time) (Period, bool) {
	ref = ref.UTC()

	switch freq.Kind {
	case FreqDaily:
		day := StartOfDay(ref.AddDate(0, 0, 1))
		return Period{Start: day, End: EndOfDay(day)}, true

	case FreqWeekly:
		start := StartOfDay(ref.AddDate(0, 0, 1))
		return Period{Start: start, End: EndOfDay(start.AddDate(0, 0, 6))}, true

	case FreqBiweekly:
		start := StartOfDay(ref.AddDate(0, 0, 1))
		return Period{Start: start, End: EndOfDay(start.AddDate(0, 0, 13))}, true

	case FreqMonthly:
		// "previous" covers the month just ended (filed in arrears);
		// otherwise the month ahead.
		anchor := StartOfMonth(ref.Year(), ref.Month())
		if mod == ModifierPrevious {
			anchor = anchor.AddDate(0, -1, 0)
		} else {
			anchor = anchor.AddDate(0, 1, 0)
		}
		return Period{Start: anchor, End: EndOfMonth(anchor.Year(), anchor.Month())}, true

	case FreqQuarterly:
		q := quarterOf(ref.Month())
		year := ref.Year()
		q++
		if q > 4 {
			q = 1
			year++
		}
		start := StartOfMonth(year, quarterStartMonth(q))
		return Period{Start: start, End: EndOfMonth(year, quarterStartMonth(q)+2)}, true

	case FreqSemiAnnual:
		// Halves are Jan-Jun and Jul-Dec.
		year := ref.Year()
		var start time.Time
		if ref.Month() <= time.June {
			start = StartOfMonth(year, time.July)
		} else {
			start = StartOfMonth(year+1, time.January)
		}
		return Period{Start: start, End: EndOfMonth(start.Year(), start.Month()+5)}, true

	case FreqYearly:
		if mod == ModifierFiscalYear {
			return pc.nextFiscalYear(ref), true
		}
		year := ref.Year() + 1
		return Period{Start: StartOfYear(year), End: EndOfYear(year)}, true

	case FreqMultiYear:
		start := ref.Year() + 1
		return Period{Start: StartOfYear(start), End: EndOfYear(start + freq.Years - 1)}, true

	default:
		// FreqOneTime and FreqUnsupported produce nothing.
		return Period{}, false
	}
}

// nextFiscalYear returns the fiscal year following the one containing ref.
func (pc PeriodCalculator) nextFiscalYear(ref time.Time) Period {
	startMonth := pc.FiscalYearStart
	if startMonth == 0 {
		startMonth = DefaultFiscalYearStart
	}

	// Fiscal year containing ref starts this calendar year if ref is on or
	// past the start month, otherwise the previous one.
	fyStartYear := ref.Year()
	if ref.Month() < startMonth {
		fyStartYear--
	}

	nextStart := StartOfMonth(fyStartYear+1, startMonth)
	nextEnd := nextStart.AddDate(1, 0, 0).Add(-time.Millisecond)
	return Period{Start: nextStart, End: nextEnd}
}

// =============================================================================
// DUE DATE AND LEAD WINDOW
// =============================================================================

// dueDateOffsetDays is how many days before the period end an instance falls
// due. Policy constant for now; a likely future tenant setting.
const dueDateOffsetDays = 5

// DueDate derives the due timestamp from a period end.
func DueDate(periodEnd time.Time) time.Time {
	return periodEnd.AddDate(0, 0, -dueDateOffsetDays)
}

// WithinLeadWindow reports whether generation may occur now: true iff
// now >= due - leadDays.
func WithinLeadWindow(now, due time.Time, leadDays int) bool {
	return !now.Before(due.AddDate(0, 0, -leadDays))
}
