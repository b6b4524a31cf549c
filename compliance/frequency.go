/*
frequency.go - Closed frequency and modifier variants

PURPOSE:
  Task records historically carried free-text frequency strings. This file
  replaces that with a closed set of variants plus an explicit Unsupported
  case, so the period calculator can switch exhaustively and unknown inputs
  degrade to a logged skip instead of a surprise.

PARSING:
  ParseFrequency accepts the spellings that appear in real tenant data
  ("biannually", "annually", "2 years", ...) and normalizes them. Anything
  unrecognized parses to FreqUnsupported with the original spelling kept
  for logging.

SEE ALSO:
  - period.go: Switches on FrequencyKind
*/
package compliance

import (
	"fmt"
	"strings"
)

// =============================================================================
// FREQUENCY
// =============================================================================

type FrequencyKind int

const (
	FreqUnsupported FrequencyKind = iota
	FreqOneTime
	FreqDaily
	FreqWeekly
	FreqBiweekly
	FreqMonthly
	FreqQuarterly
	FreqSemiAnnual
	FreqYearly
	FreqMultiYear
)

// Frequency is how often a template recurs. Years is set only for
// FreqMultiYear (2 through 5). Label preserves the original spelling so
// unsupported values can be logged and round-tripped through storage.
type Frequency struct {
	Kind  FrequencyKind
	Years int
	Label string
}

func NewFrequency(kind FrequencyKind) Frequency {
	return Frequency{Kind: kind}
}

func NewMultiYearFrequency(years int) Frequency {
	return Frequency{Kind: FreqMultiYear, Years: years}
}

// ParseFrequency normalizes a frequency string into a Frequency.
// Unrecognized input yields FreqUnsupported, never an error.
func ParseFrequency(s string) Frequency {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "_", " ")
	norm = strings.ReplaceAll(norm, "-", " ")

	switch norm {
	case "one time", "onetime", "once", "one off":
		return Frequency{Kind: FreqOneTime, Label: s}
	case "daily":
		return Frequency{Kind: FreqDaily, Label: s}
	case "weekly":
		return Frequency{Kind: FreqWeekly, Label: s}
	case "biweekly", "bi weekly", "fortnightly":
		return Frequency{Kind: FreqBiweekly, Label: s}
	case "monthly":
		return Frequency{Kind: FreqMonthly, Label: s}
	case "quarterly":
		return Frequency{Kind: FreqQuarterly, Label: s}
	case "semi annual", "semiannual", "semi annually", "biannual", "biannually", "half yearly":
		return Frequency{Kind: FreqSemiAnnual, Label: s}
	case "yearly", "annual", "annually":
		return Frequency{Kind: FreqYearly, Label: s}
	}

	// Multi-year spellings: "2 year", "2 years", "every 2 years".
	trimmed := strings.TrimPrefix(norm, "every ")
	trimmed = strings.TrimSuffix(trimmed, " years")
	trimmed = strings.TrimSuffix(trimmed, " year")
	switch trimmed {
	case "2", "3", "4", "5":
		return Frequency{Kind: FreqMultiYear, Years: int(trimmed[0] - '0'), Label: s}
	}

	return Frequency{Kind: FreqUnsupported, Label: s}
}

// String returns the canonical spelling, or the original label for
// unsupported values.
func (f Frequency) String() string {
	switch f.Kind {
	case FreqOneTime:
		return "one-time"
	case FreqDaily:
		return "daily"
	case FreqWeekly:
		return "weekly"
	case FreqBiweekly:
		return "biweekly"
	case FreqMonthly:
		return "monthly"
	case FreqQuarterly:
		return "quarterly"
	case FreqSemiAnnual:
		return "semi-annual"
	case FreqYearly:
		return "yearly"
	case FreqMultiYear:
		return fmt.Sprintf("%d-year", f.Years)
	default:
		return f.Label
	}
}

// =============================================================================
// DURATION MODIFIER
// =============================================================================

// DurationModifier qualifies how a frequency maps onto the calendar.
type DurationModifier int

const (
	// ModifierNone: the default calendar interpretation.
	ModifierNone DurationModifier = iota

	// ModifierPrevious: monthly templates cover the month just ended
	// rather than the month ahead (e.g. payroll filed in arrears).
	ModifierPrevious

	// ModifierFiscalYear: yearly templates follow the fiscal year rather
	// than the calendar year.
	ModifierFiscalYear
)

// ParseModifier normalizes a free-form duration qualifier.
func ParseModifier(s string) DurationModifier {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(norm, "previous"):
		return ModifierPrevious
	case strings.Contains(norm, "fiscal"):
		return ModifierFiscalYear
	default:
		return ModifierNone
	}
}

func (m DurationModifier) String() string {
	switch m {
	case ModifierPrevious:
		return "previous"
	case ModifierFiscalYear:
		return "fiscal-year"
	default:
		return ""
	}
}
