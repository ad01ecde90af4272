package live

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/teamvine/matchday/internal/apperr"
	"github.com/teamvine/matchday/internal/matchevent"
	"github.com/teamvine/matchday/internal/models"
)

// FixtureApp is the slice of the fixture app the HTTP layer drives.
type FixtureApp interface {
	CreateFixture(ctx context.Context, req matchevent.CreateFixtureRequest) (*models.MatchEvent, error)
	GetFixture(ctx context.Context, id uuid.UUID) (*models.MatchEvent, error)
	ListFixtures(ctx context.Context, teamID uuid.UUID) ([]models.MatchEvent, error)
	UpdateFixture(ctx context.Context, id uuid.UUID, req matchevent.UpdateFixtureRequest) (*models.MatchEvent, error)
}

// ChallengeSender issues a challenge token on a fixture.
type ChallengeSender interface {
	Send(ctx context.Context, hostEventID, actingUserID uuid.UUID) (*models.MatchEvent, error)
}

// FixtureHandler serves fixture scheduling and challenge issuance.
type FixtureHandler struct {
	fixtures   FixtureApp
	challenges ChallengeSender
	roster     RosterReader
}

func NewFixtureHandler(fixtures FixtureApp, challenges ChallengeSender, roster RosterReader) *FixtureHandler {
	return &FixtureHandler{fixtures: fixtures, challenges: challenges, roster: roster}
}

// RegisterRoutes mounts the fixture API on the mux.
func (h *FixtureHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/teams/{teamID}/events", h.handleCreate)
	mux.HandleFunc("GET /api/teams/{teamID}/events", h.handleList)
	mux.HandleFunc("GET /api/events/{id}", h.handleGet)
	mux.HandleFunc("PATCH /api/events/{id}", h.handleUpdate)
	mux.HandleFunc("POST /api/events/{id}/challenge", h.handleSendChallenge)
}

func (h *FixtureHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	teamID, ok := parsePathID(w, r, "teamID")
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	role, err := h.roster.GetTeamRole(r.Context(), teamID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !role.CanRecord() {
		writeCodedError(w, http.StatusForbidden, apperr.CodeNotRecorder, "only a team owner or admin may schedule fixtures")
		return
	}

	var req matchevent.CreateFixtureRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.TeamID = teamID

	event, err := h.fixtures.CreateFixture(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *FixtureHandler) handleList(w http.ResponseWriter, r *http.Request) {
	teamID, ok := parsePathID(w, r, "teamID")
	if !ok {
		return
	}
	events, err := h.fixtures.ListFixtures(r.Context(), teamID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *FixtureHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r, "id")
	if !ok {
		return
	}
	event, err := h.fixtures.GetFixture(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *FixtureHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	event, err := h.fixtures.GetFixture(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	role, err := h.roster.GetTeamRole(r.Context(), event.TeamID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !role.CanRecord() {
		writeCodedError(w, http.StatusForbidden, apperr.CodeNotRecorder, "only a team owner or admin may edit fixtures")
		return
	}

	var req matchevent.UpdateFixtureRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := h.fixtures.UpdateFixture(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *FixtureHandler) handleSendChallenge(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	event, err := h.challenges.Send(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"challenge_token":      event.ChallengeToken,
		"challenge_expires_at": event.ChallengeExpiresAt,
	})
}

func parsePathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeCodedError(w, http.StatusBadRequest, apperr.CodeValidation, "malformed "+name)
		return uuid.Nil, false
	}
	return id, true
}
