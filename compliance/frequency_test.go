package compliance_test

import (
	"testing"

	"github.com/warp/compliance-engine/compliance"
)

func TestParseFrequency_KnownSpellings(t *testing.T) {
	tests := []struct {
		input     string
		wantKind  compliance.FrequencyKind
		wantYears int
	}{
		{"one-time", compliance.FreqOneTime, 0},
		{"One Time", compliance.FreqOneTime, 0},
		{"once", compliance.FreqOneTime, 0},
		{"daily", compliance.FreqDaily, 0},
		{"weekly", compliance.FreqWeekly, 0},
		{"biweekly", compliance.FreqBiweekly, 0},
		{"bi-weekly", compliance.FreqBiweekly, 0},
		{"fortnightly", compliance.FreqBiweekly, 0},
		{"monthly", compliance.FreqMonthly, 0},
		{"quarterly", compliance.FreqQuarterly, 0},
		{"semi-annual", compliance.FreqSemiAnnual, 0},
		{"biannually", compliance.FreqSemiAnnual, 0},
		{"half-yearly", compliance.FreqSemiAnnual, 0},
		{"yearly", compliance.FreqYearly, 0},
		{"Annually", compliance.FreqYearly, 0},
		{"2 years", compliance.FreqMultiYear, 2},
		{"3-year", compliance.FreqMultiYear, 3},
		{"every 4 years", compliance.FreqMultiYear, 4},
		{"5 years", compliance.FreqMultiYear, 5},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f := compliance.ParseFrequency(tt.input)
			if f.Kind != tt.wantKind {
				t.Errorf("kind: got %v, want %v", f.Kind, tt.wantKind)
			}
			if f.Years != tt.wantYears {
				t.Errorf("years: got %d, want %d", f.Years, tt.wantYears)
			}
		})
	}
}

func TestParseFrequency_UnknownIsUnsupported(t *testing.T) {
	for _, input := range []string{"whenever", "6 years", "hourly", "per diem"} {
		f := compliance.ParseFrequency(input)
		if f.Kind != compliance.FreqUnsupported {
			t.Errorf("%q: got kind %v, want FreqUnsupported", input, f.Kind)
		}
		if f.Label != input {
			t.Errorf("%q: label not preserved, got %q", input, f.Label)
		}
	}
}

func TestFrequency_StringRoundTrip(t *testing.T) {
	// Canonical spellings must survive a store round trip through
	// String -> ParseFrequency.
	kinds := []compliance.Frequency{
		compliance.NewFrequency(compliance.FreqOneTime),
		compliance.NewFrequency(compliance.FreqDaily),
		compliance.NewFrequency(compliance.FreqWeekly),
		compliance.NewFrequency(compliance.FreqBiweekly),
		compliance.NewFrequency(compliance.FreqMonthly),
		compliance.NewFrequency(compliance.FreqQuarterly),
		compliance.NewFrequency(compliance.FreqSemiAnnual),
		compliance.NewFrequency(compliance.FreqYearly),
		compliance.NewMultiYearFrequency(3),
	}

	for _, f := range kinds {
		parsed := compliance.ParseFrequency(f.String())
		if parsed.Kind != f.Kind || parsed.Years != f.Years {
			t.Errorf("%q did not round trip: got kind %v years %d", f.String(), parsed.Kind, parsed.Years)
		}
	}
}

func TestParseModifier(t *testing.T) {
	tests := []struct {
		input string
		want  compliance.DurationModifier
	}{
		{"", compliance.ModifierNone},
		{"previous", compliance.ModifierPrevious},
		{"Previous month", compliance.ModifierPrevious},
		{"fiscal year", compliance.ModifierFiscalYear},
		{"Fiscal", compliance.ModifierFiscalYear},
		{"something else", compliance.ModifierNone},
	}

	for _, tt := range tests {
		if got := compliance.ParseModifier(tt.input); got != tt.want {
			t.Errorf("ParseModifier(%q): got %v, want %v", tt.input, got, tt.want)
		}
	}
}
