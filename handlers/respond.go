package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"sweepifyAPI/internal/event"
	"sweepifyAPI/internal/scoring"
	"sweepifyAPI/internal/submission"
	"sweepifyAPI/services"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps domain sentinel errors onto the HTTP status
// taxonomy: validation 400, missing 404, forbidden 403, optimistic
// concurrency losers 409, everything else 500.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, submission.ErrInvalidPayload),
		errors.Is(err, submission.ErrInvalidLocation),
		errors.Is(err, event.ErrInvalidEvent):
		respondWithError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, submission.ErrNotFound),
		errors.Is(err, event.ErrNotFound),
		errors.Is(err, services.ErrRewardNotFound),
		errors.Is(err, services.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, submission.ErrSelfVerificationForbidden),
		errors.Is(err, event.ErrNotOrganizer):
		respondWithError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, submission.ErrInvalidTransition),
		errors.Is(err, submission.ErrAlreadyCompleted),
		errors.Is(err, submission.ErrDuplicateVote),
		errors.Is(err, submission.ErrSubmissionAlreadyResolved),
		errors.Is(err, event.ErrEventFull),
		errors.Is(err, event.ErrAlreadyJoined),
		errors.Is(err, event.ErrCancelled),
		errors.Is(err, scoring.ErrDuplicateAward),
		errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrRewardInactive):
		respondWithError(w, http.StatusConflict, err.Error())

	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
