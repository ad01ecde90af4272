package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/teamvine/matchday/internal/apperr"
	"github.com/teamvine/matchday/internal/auth"
	"github.com/teamvine/matchday/internal/clock"
	"github.com/teamvine/matchday/internal/dualview"
	"github.com/teamvine/matchday/internal/ledger"
	"github.com/teamvine/matchday/internal/matchevent"
	"github.com/teamvine/matchday/internal/models"
)

// ChallengeProtocol is the full protocol surface the HTTP layer drives.
type ChallengeProtocol interface {
	ChallengeApp
	Accept(ctx context.Context, token uuid.UUID, actingTeamID, actingUserID uuid.UUID) (*models.MatchEvent, error)
	Reject(ctx context.Context, token uuid.UUID, reason *string) error
	SetStatus(ctx context.Context, token uuid.UUID, status models.MatchStatus, actingUserID uuid.UUID) (*models.MatchEvent, error)
}

// Handler serves the live session API.
type Handler struct {
	provider   *Provider
	challenges ChallengeProtocol
	clockApp   *clock.App
	ledgerApp  *ledger.App
	eventsApp  RulesUpdater
	roster     RosterReader
	cache      *SnapshotCache
}

// RulesUpdater is the slice of the fixture app the rules endpoint needs.
type RulesUpdater interface {
	UpdateRules(ctx context.Context, hostEventID uuid.UUID, rules models.MatchRules) (*models.MatchEvent, error)
}

func NewHandler(provider *Provider, challenges ChallengeProtocol, clockApp *clock.App, ledgerApp *ledger.App, eventsApp RulesUpdater, roster RosterReader, cache *SnapshotCache) *Handler {
	return &Handler{
		provider:   provider,
		challenges: challenges,
		clockApp:   clockApp,
		ledgerApp:  ledgerApp,
		eventsApp:  eventsApp,
		roster:     roster,
		cache:      cache,
	}
}

// RegisterRoutes mounts the live session API on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/live-session/{token}", h.handleLiveSession)
	mux.HandleFunc("POST /api/challenges/{token}/accept", h.handleAccept)
	mux.HandleFunc("POST /api/challenges/{token}/reject", h.handleReject)
	mux.HandleFunc("POST /api/matches/{token}/status", h.handleStatus)
	mux.HandleFunc("POST /api/matches/{token}/timer", h.handleTimer)
	mux.HandleFunc("POST /api/matches/{token}/goals", h.handleGoal)
	mux.HandleFunc("POST /api/matches/{token}/cards", h.handleCard)
	mux.HandleFunc("POST /api/matches/{token}/substitutions", h.handleSubstitution)
	mux.HandleFunc("PATCH /api/matches/{token}/rules", h.handleRules)
}

func (h *Handler) handleLiveSession(w http.ResponseWriter, r *http.Request) {
	token, ok := parseToken(w, r)
	if !ok {
		return
	}
	viewerID := auth.UserID(r.Context())

	if snap := h.cache.Get(r.Context(), token, viewerID); snap != nil {
		writeJSON(w, http.StatusOK, snap)
		return
	}

	snap, err := h.provider.Snapshot(r.Context(), token, viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cache.Put(r.Context(), token, viewerID, snap)
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	token, ok := parseToken(w, r)
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		TeamID uuid.UUID `json:"team_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.TeamID == uuid.Nil {
		writeCodedError(w, http.StatusBadRequest, apperr.CodeValidation, "team_id is required")
		return
	}

	mirror, err := h.challenges.Accept(r.Context(), token, body.TeamID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cache.Invalidate(r.Context(), token)
	writeJSON(w, http.StatusOK, map[string]any{"opponent_event_id": mirror.ID})
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	token, ok := parseToken(w, r)
	if !ok {
		return
	}
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var body struct {
		Reason *string `json:"reason,omitempty"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	if err := h.challenges.Reject(r.Context(), token, body.Reason); err != nil {
		writeError(w, err)
		return
	}
	h.cache.Invalidate(r.Context(), token)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	token, ok := parseToken(w, r)
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Status models.MatchStatus `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	event, err := h.challenges.SetStatus(r.Context(), token, body.Status, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cache.Invalidate(r.Context(), token)
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) handleTimer(w http.ResponseWriter, r *http.Request) {
	token, ok := parseToken(w, r)
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Action clock.Action `json:"action"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if !body.Action.Valid() {
		writeCodedError(w, http.StatusBadRequest, apperr.CodeValidation, "action must be one of start, pause, next, prev")
		return
	}

	host, _, err := h.requireRecorder(r.Context(), token, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, _, err := h.clockApp.ApplyAction(r.Context(), host.ID, body.Action); err != nil {
		writeError(w, err)
		return
	}
	h.cache.Invalidate(r.Context(), token)

	snap, err := h.provider.Snapshot(r.Context(), token, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleGoal(w http.ResponseWriter, r *http.Request) {
	token, ok := parseToken(w, r)
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req ledger.AppendGoalRequest
	if !decodeBody(w, r, &req) {
		return
	}

	host, mirror, err := h.requireRecorder(r.Context(), token, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	perspective, err := h.perspectiveFor(r.Context(), host, mirror, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	// Requests arrive in the actor's perspective; storage is host
	// perspective, so cross-record writers flip on the way in and the
	// response flips back on the way out.
	req.ScoringTeam = perspective.Side(req.ScoringTeam)

	record, err := h.ledgerApp.AppendGoal(r.Context(), host.ID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cache.Invalidate(r.Context(), token)
	writeJSON(w, http.StatusCreated, perspective.Goals([]models.GoalRecord{*record})[0])
}

func (h *Handler) handleCard(w http.ResponseWriter, r *http.Request) {
	token, ok := parseToken(w, r)
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req ledger.AppendCardRequest
	if !decodeBody(w, r, &req) {
		return
	}

	host, mirror, err := h.requireRecorder(r.Context(), token, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	perspective, err := h.perspectiveFor(r.Context(), host, mirror, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	req.TeamSide = perspective.Side(req.TeamSide)

	record, err := h.ledgerApp.AppendCard(r.Context(), host.ID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cache.Invalidate(r.Context(), token)
	out := *record
	out.TeamSide = perspective.Side(out.TeamSide)
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) handleSubstitution(w http.ResponseWriter, r *http.Request) {
	token, ok := parseToken(w, r)
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req ledger.AppendSubstitutionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	host, mirror, err := h.requireRecorder(r.Context(), token, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	perspective, err := h.perspectiveFor(r.Context(), host, mirror, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	req.TeamSide = perspective.Side(req.TeamSide)

	record, err := h.ledgerApp.AppendSubstitution(r.Context(), host.ID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cache.Invalidate(r.Context(), token)
	out := *record
	out.TeamSide = perspective.Side(out.TeamSide)
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) handleRules(w http.ResponseWriter, r *http.Request) {
	token, ok := parseToken(w, r)
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var rules models.MatchRules
	if !decodeBody(w, r, &rules) {
		return
	}

	host, _, err := h.challenges.ResolvePair(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	role, err := h.roster.GetTeamRole(r.Context(), host.TeamID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !role.CanRecord() {
		writeCodedError(w, http.StatusForbidden, apperr.CodeNotRecorder, "only a host team admin may change match rules")
		return
	}

	event, err := h.eventsApp.UpdateRules(r.Context(), host.ID, rules)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cache.Invalidate(r.Context(), token)
	writeJSON(w, http.StatusOK, event)
}

// requireRecorder re-derives the can-record capability server-side before any
// mutation; client-side gating is advisory only.
func (h *Handler) requireRecorder(ctx context.Context, token uuid.UUID, userID uuid.UUID) (*models.MatchEvent, *models.MatchEvent, error) {
	host, mirror, err := h.challenges.ResolvePair(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	ok, err := h.challenges.IsRecorder(ctx, host, mirror, userID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, apperr.New(apperr.CodeNotRecorder, "user may not record for this match")
	}
	return host, mirror, nil
}

func (h *Handler) perspectiveFor(ctx context.Context, host, mirror *models.MatchEvent, userID uuid.UUID) (dualview.Perspective, error) {
	_, perspective, err := h.provider.entryRecord(ctx, host, mirror, userID)
	return perspective, err
}

// ---- HTTP helpers ----

func parseToken(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	token, err := uuid.Parse(r.PathValue("token"))
	if err != nil {
		writeCodedError(w, http.StatusBadRequest, apperr.CodeValidation, "malformed challenge token")
		return uuid.Nil, false
	}
	return token, true
}

func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID := auth.UserID(r.Context())
	if userID == uuid.Nil {
		writeCodedError(w, http.StatusUnauthorized, "UNAUTHORIZED", "a bearer token is required")
		return uuid.Nil, false
	}
	return userID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeCodedError(w, http.StatusBadRequest, apperr.CodeValidation, "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeCodedError(w http.ResponseWriter, status int, code apperr.Code, message string) {
	writeJSON(w, status, map[string]any{"error": message, "code": code})
}

// writeError maps domain errors to HTTP statuses with their stable codes.
func writeError(w http.ResponseWriter, err error) {
	var coded *apperr.Error
	if errors.As(err, &coded) {
		writeCodedError(w, statusFor(coded.Code), coded.Code, coded.Message)
		return
	}
	if errors.Is(err, matchevent.ErrNotFound) {
		writeCodedError(w, http.StatusNotFound, apperr.CodeNotFound, "match event not found")
		return
	}
	log.Error().Err(err).Msg("request failed")
	writeCodedError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeNotRecorder:
		return http.StatusForbidden
	case apperr.CodeValidation:
		return http.StatusBadRequest
	default:
		// INVALID_STATUS, SAME_TEAM, ALREADY_MATCHED, INSUFFICIENT_PLAYERS,
		// CHALLENGE_EXPIRED are state conflicts.
		return http.StatusConflict
	}
}
