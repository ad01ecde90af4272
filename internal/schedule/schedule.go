// Package schedule builds the ordered list of timed phases a match clock
// steps through: quarters interleaved with breaks, with halftime replacing
// the break at the midpoint.
package schedule

import (
	"fmt"

	"github.com/teamvine/matchday/internal/models"
)

// PhaseKind distinguishes playing time from the two break variants.
type PhaseKind string

const (
	PhaseQuarter  PhaseKind = "QUARTER"
	PhaseBreak    PhaseKind = "BREAK"
	PhaseHalftime PhaseKind = "HALFTIME"
)

// Phase is one timed segment of a match.
type Phase struct {
	Kind        PhaseKind `json:"kind"`
	Label       string    `json:"label"`
	DurationSec int       `json:"duration_sec"`
	// Quarter is the quarter number for QUARTER phases, 0 otherwise.
	Quarter int `json:"quarter,omitempty"`
}

// Build returns the phase list for the given rules. Phases are indexed
// 1-based by the match clock; index 0 is the not-started sentinel and has no
// entry here. Halftime replaces the break after quarter ceil(n/2) and no
// break follows the final quarter. Pure: identical input, identical output.
func Build(rules models.MatchRules) ([]Phase, error) {
	if rules.QuarterCount < 1 {
		return nil, fmt.Errorf("quarter count must be at least 1, got %d", rules.QuarterCount)
	}
	if rules.QuarterMinutes < 1 {
		return nil, fmt.Errorf("quarter length must be at least 1 minute, got %d", rules.QuarterMinutes)
	}

	halftimeAfter := (rules.QuarterCount + 1) / 2

	phases := make([]Phase, 0, 2*rules.QuarterCount-1)
	for q := 1; q <= rules.QuarterCount; q++ {
		phases = append(phases, Phase{
			Kind:        PhaseQuarter,
			Label:       fmt.Sprintf("Q%d", q),
			DurationSec: rules.QuarterMinutes * 60,
			Quarter:     q,
		})
		if q == rules.QuarterCount {
			break
		}
		if q == halftimeAfter {
			phases = append(phases, Phase{
				Kind:        PhaseHalftime,
				Label:       "Halftime",
				DurationSec: rules.HalftimeMinutes * 60,
			})
		} else {
			phases = append(phases, Phase{
				Kind:        PhaseBreak,
				Label:       "Break",
				DurationSec: rules.QuarterBreakMinutes * 60,
			})
		}
	}
	return phases, nil
}

// At returns the phase at the given 1-based index, or false when the index is
// the not-started sentinel or out of range.
func At(phases []Phase, idx int) (Phase, bool) {
	if idx < 1 || idx > len(phases) {
		return Phase{}, false
	}
	return phases[idx-1], true
}
