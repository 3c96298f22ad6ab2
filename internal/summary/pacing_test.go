package summary

import (
	"testing"
	"time"
)

func TestParsePacingMode(t *testing.T) {
	cases := []struct {
		in   string
		want PacingMode
		ok   bool
	}{
		{"", PacingCalendar, true},
		{"calendar", PacingCalendar, true},
		{" Elapsed ", PacingElapsed, true},
		{"fiscal", "", false},
	}
	for _, tc := range cases {
		got, err := ParsePacingMode(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParsePacingMode(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParsePacingMode(%q) expected error", tc.in)
		}
	}
}

func TestPacingReferenceMonth(t *testing.T) {
	now := time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		mode PacingMode
		year int
		want int
	}{
		{PacingCalendar, 2026, 4},
		{PacingCalendar, 2024, 4},
		{PacingCalendar, 2027, 4},
		{PacingElapsed, 2026, 4},
		{PacingElapsed, 2025, 12},
		{PacingElapsed, 2027, 0},
	}
	for _, tc := range cases {
		p := Pacing{Mode: tc.mode, Now: now}
		if got := p.ReferenceMonth(tc.year); got != tc.want {
			t.Errorf("%s/%d: got %d, want %d", tc.mode, tc.year, got, tc.want)
		}
	}
}

func TestExpectedPace(t *testing.T) {
	p := Pacing{Mode: PacingElapsed, Now: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)}
	if got := p.ExpectedPace(2026); got != 75 {
		t.Fatalf("expected 75, got %v", got)
	}
	if got := p.ExpectedPace(2025); got != 100 {
		t.Fatalf("expected 100 for a closed year, got %v", got)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		used, pace float64
		want       PaceStatus
	}{
		{75, 75, StatusOnTrack},
		{75.01, 75, StatusOverPace},
		{100, 50, StatusOverPace},
		{100.5, 100, StatusOverBudget},
		{0, 0, StatusOnTrack},
		{-20, 50, StatusOnTrack},
	}
	for _, tc := range cases {
		if got := Classify(tc.used, tc.pace); got != tc.want {
			t.Errorf("Classify(%v, %v) = %s, want %s", tc.used, tc.pace, got, tc.want)
		}
	}
}
