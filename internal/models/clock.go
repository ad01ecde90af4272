package models

import "time"

// ClockState is the persisted timer state of a match. TimerPhase is a 1-based
// index into the match's phase schedule; 0 means the clock has never started.
//
// Elapsed time is never stored as a running total. Readers derive it from
// TimerElapsedSec plus the wall-clock time since TimerStartedAt, so that any
// number of polling clients converge on the same value without a push channel.
type ClockState struct {
	TimerPhase      int        `json:"timer_phase"`
	TimerRunning    bool       `json:"timer_running"`
	TimerStartedAt  *time.Time `json:"timer_started_at,omitempty"`
	TimerElapsedSec int        `json:"timer_elapsed_sec"`
}

// Elapsed returns the seconds elapsed in the current phase at the given instant.
func (c ClockState) Elapsed(now time.Time) int {
	elapsed := c.TimerElapsedSec
	if c.TimerRunning && c.TimerStartedAt != nil {
		elapsed += int(now.Sub(*c.TimerStartedAt).Seconds())
	}
	return elapsed
}
