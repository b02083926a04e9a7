package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweepifyAPI/internal/event"
	"sweepifyAPI/internal/submission"
	"sweepifyAPI/services"
)

func TestRespondWithJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	respondWithJSON(rr, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "abc", body["id"])
}

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{submission.ErrInvalidPayload, http.StatusBadRequest},
		{submission.ErrInvalidLocation, http.StatusBadRequest},
		{event.ErrInvalidEvent, http.StatusBadRequest},
		{submission.ErrNotFound, http.StatusNotFound},
		{event.ErrNotFound, http.StatusNotFound},
		{services.ErrUserNotFound, http.StatusNotFound},
		{services.ErrRewardNotFound, http.StatusNotFound},
		{submission.ErrSelfVerificationForbidden, http.StatusForbidden},
		{event.ErrNotOrganizer, http.StatusForbidden},
		{submission.ErrInvalidTransition, http.StatusConflict},
		{submission.ErrAlreadyCompleted, http.StatusConflict},
		{submission.ErrDuplicateVote, http.StatusConflict},
		{submission.ErrSubmissionAlreadyResolved, http.StatusConflict},
		{event.ErrEventFull, http.StatusConflict},
		{event.ErrAlreadyJoined, http.StatusConflict},
		{event.ErrCancelled, http.StatusConflict},
		{services.ErrInsufficientFunds, http.StatusConflict},
		{services.ErrRewardInactive, http.StatusConflict},
		{errors.New("database exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rr := httptest.NewRecorder()
			respondWithServiceError(rr, tt.err)
			assert.Equal(t, tt.expected, rr.Code)
		})
	}
}

func TestRespondWithServiceErrorWrapped(t *testing.T) {
	rr := httptest.NewRecorder()
	respondWithServiceError(rr, fmt.Errorf("complete: %w", submission.ErrAlreadyCompleted))
	assert.Equal(t, http.StatusConflict, rr.Code)
}
