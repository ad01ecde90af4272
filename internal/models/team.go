package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamRole defines a member's role within a team.
type TeamRole string

const (
	TeamRoleOwner  TeamRole = "OWNER"
	TeamRoleAdmin  TeamRole = "ADMIN"
	TeamRolePlayer TeamRole = "PLAYER"
)

// CanRecord reports whether the role is allowed to operate the match clock
// and append ledger records.
func (r TeamRole) CanRecord() bool {
	return r == TeamRoleOwner || r == TeamRoleAdmin
}

// Team represents a registered amateur team.
type Team struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// AttendanceStatus defines a member's RSVP state for a fixture.
type AttendanceStatus string

const (
	AttendanceConfirmed AttendanceStatus = "CONFIRMED"
	AttendanceDeclined  AttendanceStatus = "DECLINED"
	AttendanceCheckedIn AttendanceStatus = "CHECKED_IN"
)

// RosterEntry is one member's attendance record for a specific match event.
type RosterEntry struct {
	MatchEventID uuid.UUID        `json:"match_event_id"`
	UserID       uuid.UUID        `json:"user_id"`
	DisplayName  string           `json:"display_name"`
	Status       AttendanceStatus `json:"status"`
}
