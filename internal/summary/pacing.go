package summary

import (
	"fmt"
	"strings"
	"time"
)

// PacingMode decides which month of the year the expected spend pace is
// measured against.
type PacingMode string

const (
	// PacingCalendar uses today's month whatever year is being viewed.
	PacingCalendar PacingMode = "calendar"
	// PacingElapsed uses today's month for the current year, the full
	// year for past years and nothing for future years.
	PacingElapsed PacingMode = "elapsed"
)

func ParsePacingMode(s string) (PacingMode, error) {
	switch m := PacingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case PacingCalendar, PacingElapsed:
		return m, nil
	case "":
		return PacingCalendar, nil
	default:
		return "", fmt.Errorf("unknown pacing mode %q (want calendar or elapsed)", s)
	}
}

// Pacing carries the reference date used for yearly pace status.
type Pacing struct {
	Mode PacingMode
	Now  time.Time
}

// ReferenceMonth returns how many months of year count as elapsed.
func (p Pacing) ReferenceMonth(year int) int {
	current := int(p.Now.Month())
	if p.Mode != PacingElapsed {
		return current
	}
	switch {
	case year < p.Now.Year():
		return 12
	case year > p.Now.Year():
		return 0
	default:
		return current
	}
}

// ExpectedPace is the share of the annual budget that should be spent by
// the reference month, as a percentage.
func (p Pacing) ExpectedPace(year int) float64 {
	return float64(p.ReferenceMonth(year)) / 12 * 100
}

type PaceStatus string

const (
	StatusOnTrack    PaceStatus = "on_track"
	StatusOverPace   PaceStatus = "over_pace"
	StatusOverBudget PaceStatus = "over_budget"
)

// Classify compares a percentage used against the expected pace.
func Classify(percentUsed, expectedPace float64) PaceStatus {
	switch {
	case percentUsed > 100:
		return StatusOverBudget
	case percentUsed > expectedPace:
		return StatusOverPace
	default:
		return StatusOnTrack
	}
}
