// Package clock implements the per-match timer state machine. All operations
// are idempotent and bounded so that racing duplicate calls from two recorders
// converge instead of corrupting state.
package clock

import (
	"time"

	"github.com/teamvine/matchday/internal/models"
	"github.com/teamvine/matchday/internal/schedule"
)

// Action is a clock mutation requested by a recorder.
type Action string

const (
	ActionStart Action = "start"
	ActionPause Action = "pause"
	ActionNext  Action = "next"
	ActionPrev  Action = "prev"
)

// Valid reports whether the action is one of the four clock operations.
func (a Action) Valid() bool {
	switch a {
	case ActionStart, ActionPause, ActionNext, ActionPrev:
		return true
	}
	return false
}

// Start resumes the clock without resetting accumulated elapsed time.
// Starting an already-running clock, or a clock that has never entered a
// phase, is a no-op.
func Start(state models.ClockState, now time.Time) models.ClockState {
	if state.TimerRunning || state.TimerPhase == 0 {
		return state
	}
	state.TimerRunning = true
	state.TimerStartedAt = &now
	return state
}

// Pause folds the running time into TimerElapsedSec and stops the clock.
// Pausing an already-paused clock is a no-op.
func Pause(state models.ClockState, now time.Time) models.ClockState {
	if !state.TimerRunning {
		return state
	}
	state.TimerElapsedSec = state.Elapsed(now)
	state.TimerRunning = false
	state.TimerStartedAt = nil
	return state
}

// Next advances the clock to the following phase with fresh elapsed time.
// From the not-started sentinel it enters phase 1 running. Past the final
// phase it is a no-op. Entering a later phase preserves the running flag.
func Next(state models.ClockState, now time.Time, phaseCount int) models.ClockState {
	if state.TimerPhase == 0 {
		state.TimerPhase = 1
		state.TimerRunning = true
		state.TimerStartedAt = &now
		state.TimerElapsedSec = 0
		return state
	}
	if state.TimerPhase >= phaseCount {
		return state
	}
	state.TimerPhase++
	state.TimerElapsedSec = 0
	if state.TimerRunning {
		state.TimerStartedAt = &now
	} else {
		state.TimerStartedAt = nil
	}
	return state
}

// Prev steps back one phase, flooring at phase 1: a started clock never
// returns to the sentinel. Elapsed time resets either way.
func Prev(state models.ClockState, now time.Time) models.ClockState {
	if state.TimerPhase == 0 {
		return state
	}
	if state.TimerPhase > 1 {
		state.TimerPhase--
	}
	state.TimerElapsedSec = 0
	if state.TimerRunning {
		state.TimerStartedAt = &now
	} else {
		state.TimerStartedAt = nil
	}
	return state
}

// Apply dispatches one action against the state.
func Apply(state models.ClockState, action Action, now time.Time, phaseCount int) models.ClockState {
	switch action {
	case ActionStart:
		return Start(state, now)
	case ActionPause:
		return Pause(state, now)
	case ActionNext:
		return Next(state, now, phaseCount)
	case ActionPrev:
		return Prev(state, now)
	}
	return state
}

// Remaining returns the seconds left in the current phase at the given
// instant, floored at zero. Before the first phase it returns the duration of
// phase 1 so pre-match clients can render the full quarter.
func Remaining(state models.ClockState, phases []schedule.Phase, now time.Time) int {
	idx := state.TimerPhase
	if idx == 0 {
		idx = 1
	}
	phase, ok := schedule.At(phases, idx)
	if !ok {
		return 0
	}
	remaining := phase.DurationSec - state.Elapsed(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
