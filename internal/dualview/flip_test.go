package dualview

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/teamvine/matchday/internal/models"
)

func TestFlipSide_Involution(t *testing.T) {
	for _, side := range []models.TeamSide{models.TeamSideA, models.TeamSideB} {
		flipped := FlipSide(side)
		assert.NotEqual(t, side, flipped)
		assert.Equal(t, side, FlipSide(flipped), "flip twice must reproduce the original")
	}
}

func TestFlipScore_Involution(t *testing.T) {
	s := Score{TeamA: 3, TeamB: 1}
	assert.Equal(t, Score{TeamA: 1, TeamB: 3}, FlipScore(s))
	assert.Equal(t, s, FlipScore(FlipScore(s)))
}

func TestFlipGoal_OnlyTouchesSide(t *testing.T) {
	g := models.GoalRecord{
		ID:          uuid.New(),
		Quarter:     2,
		ScoringTeam: models.TeamSideA,
		IsOwnGoal:   true,
	}
	flipped := FlipGoal(g)
	assert.Equal(t, models.TeamSideB, flipped.ScoringTeam)
	assert.Equal(t, g.ID, flipped.ID)
	assert.Equal(t, g.Quarter, flipped.Quarter)
	assert.True(t, flipped.IsOwnGoal)
	assert.Equal(t, g, FlipGoal(flipped))
}

func TestPerspective_HostReadsStraight(t *testing.T) {
	host := &models.MatchEvent{ID: uuid.New()}
	p := For(host)

	assert.Equal(t, PerspectiveHost, p)
	assert.Equal(t, models.TeamSideA, p.Side(models.TeamSideA))
	assert.Equal(t, Score{TeamA: 2, TeamB: 0}, p.Score(Score{TeamA: 2, TeamB: 0}))
}

func TestPerspective_OpponentFlipsOnce(t *testing.T) {
	hostID := uuid.New()
	mirrored := &models.MatchEvent{ID: uuid.New(), LinkedEventID: &hostID}
	p := For(mirrored)

	assert.Equal(t, PerspectiveOpponent, p)
	assert.Equal(t, models.TeamSideB, p.Side(models.TeamSideA))
	assert.Equal(t, Score{TeamA: 0, TeamB: 2}, p.Score(Score{TeamA: 2, TeamB: 0}))

	goals := []models.GoalRecord{
		{ScoringTeam: models.TeamSideA},
		{ScoringTeam: models.TeamSideB},
	}
	flipped := p.Goals(goals)
	assert.Equal(t, models.TeamSideB, flipped[0].ScoringTeam)
	assert.Equal(t, models.TeamSideA, flipped[1].ScoringTeam)
	// stored records untouched
	assert.Equal(t, models.TeamSideA, goals[0].ScoringTeam)

	cards := p.Cards([]models.CardRecord{{TeamSide: models.TeamSideB, CardType: models.CardTypeRed}})
	assert.Equal(t, models.TeamSideA, cards[0].TeamSide)

	subs := p.Substitutions([]models.SubstitutionRecord{{TeamSide: models.TeamSideA}})
	assert.Equal(t, models.TeamSideB, subs[0].TeamSide)
}
