// Package apperr defines the coded errors shared by the app layers. The HTTP
// edge maps codes to statuses, so every guard an endpoint can trip returns one
// of these instead of a bare error.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable failure code. Clients branch on these, so
// the strings are part of the API contract.
type Code string

const (
	CodeSameTeam            Code = "SAME_TEAM"
	CodeAlreadyMatched      Code = "ALREADY_MATCHED"
	CodeInsufficientPlayers Code = "INSUFFICIENT_PLAYERS"
	CodeChallengeExpired    Code = "CHALLENGE_EXPIRED"
	CodeNotRecorder         Code = "NOT_RECORDER"
	CodeInvalidStatus       Code = "INVALID_STATUS"
	CodeNotFound            Code = "NOT_FOUND"
	CodeValidation          Code = "VALIDATION"
)

// Error pairs a stable code with a human-readable message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds a coded error.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from an error, or "" for uncoded errors.
func CodeOf(err error) Code {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
