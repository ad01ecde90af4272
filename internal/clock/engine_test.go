package clock

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamvine/matchday/internal/models"
	"github.com/teamvine/matchday/internal/schedule"
)

func testPhases(t *testing.T) []schedule.Phase {
	t.Helper()
	phases, err := schedule.Build(models.MatchRules{
		QuarterCount:        4,
		QuarterMinutes:      12,
		QuarterBreakMinutes: 2,
		HalftimeMinutes:     5,
	})
	require.NoError(t, err)
	return phases
}

func TestNext_FromSentinelStartsPhaseOne(t *testing.T) {
	clk := clockwork.NewFakeClock()
	now := clk.Now()

	state := Next(models.ClockState{}, now, 7)

	assert.Equal(t, 1, state.TimerPhase)
	assert.True(t, state.TimerRunning)
	assert.Equal(t, 0, state.TimerElapsedSec)
	require.NotNil(t, state.TimerStartedAt)
	assert.True(t, state.TimerStartedAt.Equal(now))
}

func TestNext_AtLastPhaseIsNoOp(t *testing.T) {
	clk := clockwork.NewFakeClock()
	state := models.ClockState{TimerPhase: 7, TimerElapsedSec: 33}

	got := Next(state, clk.Now(), 7)

	assert.Equal(t, state, got)
}

func TestNext_PreservesRunningFlag(t *testing.T) {
	clk := clockwork.NewFakeClock()
	now := clk.Now()

	running := models.ClockState{TimerPhase: 2, TimerRunning: true, TimerStartedAt: &now, TimerElapsedSec: 40}
	got := Next(running, now, 7)
	assert.Equal(t, 3, got.TimerPhase)
	assert.True(t, got.TimerRunning)
	assert.Equal(t, 0, got.TimerElapsedSec)

	paused := models.ClockState{TimerPhase: 2, TimerRunning: false, TimerElapsedSec: 40}
	got = Next(paused, now, 7)
	assert.Equal(t, 3, got.TimerPhase)
	assert.False(t, got.TimerRunning)
	assert.Nil(t, got.TimerStartedAt)
}

func TestPrev_FloorsAtPhaseOne(t *testing.T) {
	clk := clockwork.NewFakeClock()
	now := clk.Now()

	got := Prev(models.ClockState{TimerPhase: 1, TimerElapsedSec: 50}, now)
	assert.Equal(t, 1, got.TimerPhase, "never returns to the sentinel once started")
	assert.Equal(t, 0, got.TimerElapsedSec)

	got = Prev(models.ClockState{TimerPhase: 3, TimerElapsedSec: 50}, now)
	assert.Equal(t, 2, got.TimerPhase)
	assert.Equal(t, 0, got.TimerElapsedSec)

	got = Prev(models.ClockState{}, now)
	assert.Equal(t, 0, got.TimerPhase, "no-op before the match starts")
}

func TestStartPause_FoldsElapsedTime(t *testing.T) {
	clk := clockwork.NewFakeClock()
	start := clk.Now()

	state := Next(models.ClockState{}, start, 7)

	clk.Advance(90 * time.Second)
	state = Pause(state, clk.Now())
	assert.False(t, state.TimerRunning)
	assert.Nil(t, state.TimerStartedAt)
	assert.Equal(t, 90, state.TimerElapsedSec)

	// Pausing again is a no-op.
	clk.Advance(30 * time.Second)
	state = Pause(state, clk.Now())
	assert.Equal(t, 90, state.TimerElapsedSec)

	// Resuming keeps the accumulated 90s.
	resumed := Start(state, clk.Now())
	assert.True(t, resumed.TimerRunning)
	assert.Equal(t, 90, resumed.TimerElapsedSec)

	clk.Advance(10 * time.Second)
	assert.Equal(t, 100, resumed.Elapsed(clk.Now()))
}

func TestStart_IsIdempotent(t *testing.T) {
	clk := clockwork.NewFakeClock()
	now := clk.Now()
	state := Next(models.ClockState{}, now, 7)

	clk.Advance(20 * time.Second)
	again := Start(state, clk.Now())

	assert.Equal(t, state, again, "starting a running clock must not move the start timestamp")
}

func TestStart_BeforeFirstPhaseIsNoOp(t *testing.T) {
	clk := clockwork.NewFakeClock()
	got := Start(models.ClockState{}, clk.Now())
	assert.Equal(t, models.ClockState{}, got)
}

func TestRemaining_ReadModel(t *testing.T) {
	phases := testPhases(t)
	clk := clockwork.NewFakeClock()
	now := clk.Now()

	// Before the match the full first quarter is shown.
	assert.Equal(t, 720, Remaining(models.ClockState{}, phases, now))

	state := Next(models.ClockState{}, now, len(phases))

	// Reading twice at the same instant yields the same value.
	assert.Equal(t, Remaining(state, phases, now), Remaining(state, phases, now))

	// Remaining strictly decreases while running.
	clk.Advance(30 * time.Second)
	afterThirty := Remaining(state, phases, clk.Now())
	assert.Equal(t, 690, afterThirty)
	clk.Advance(1 * time.Second)
	assert.Less(t, Remaining(state, phases, clk.Now()), afterThirty)

	// Remaining freezes while paused no matter how much wall time passes.
	state = Pause(state, clk.Now())
	frozen := Remaining(state, phases, clk.Now())
	clk.Advance(10 * time.Minute)
	assert.Equal(t, frozen, Remaining(state, phases, clk.Now()))

	// Never negative.
	state = Start(state, clk.Now())
	clk.Advance(time.Hour)
	assert.Equal(t, 0, Remaining(state, phases, clk.Now()))
}
