package live

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamvine/matchday/internal/apperr"
	"github.com/teamvine/matchday/internal/matchevent"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code, body.Error
}

func TestWriteError_MapsCodedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "ledger validation surfaces as 400",
			err:        apperr.New(apperr.CodeValidation, "quarter 9 is outside [1, 4]"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name:       "state conflict surfaces as 409",
			err:        apperr.New(apperr.CodeInvalidStatus, "match is CONFIRMED, the ledger only accepts records while IN_PROGRESS"),
			wantStatus: http.StatusConflict,
			wantCode:   "INVALID_STATUS",
		},
		{
			name:       "recorder check surfaces as 403",
			err:        apperr.New(apperr.CodeNotRecorder, "user may not record for this match"),
			wantStatus: http.StatusForbidden,
			wantCode:   "NOT_RECORDER",
		},
		{
			name:       "wrapped coded error keeps its code",
			err:        fmt.Errorf("append failed: %w", apperr.New(apperr.CodeChallengeExpired, "challenge expired")),
			wantStatus: http.StatusConflict,
			wantCode:   "CHALLENGE_EXPIRED",
		},
		{
			name:       "missing event surfaces as 404",
			err:        fmt.Errorf("failed to get fixture: %w", matchevent.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			code, message := decodeErrorBody(t, rec)
			assert.Equal(t, tc.wantCode, code)
			assert.NotEmpty(t, message, "the domain message must reach the client")
		})
	}
}

func TestWriteError_UncodedErrorsStayOpaque(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("pool exhausted"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	code, message := decodeErrorBody(t, rec)
	assert.Equal(t, "INTERNAL", code)
	assert.Equal(t, "internal error", message)
}
