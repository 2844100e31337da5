package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"tournament not found", services.ErrTournamentNotFound, http.StatusNotFound},
		{"match not found", fmt.Errorf("load: %w", services.ErrMatchNotFound), http.StatusNotFound},
		{"already generated", fmt.Errorf("%w: %w", services.ErrConfiguration, services.ErrStageAlreadyGenerated), http.StatusConflict},
		{"registration open", services.ErrRegistrationStillOpen, http.StatusConflict},
		{"odd pool", fmt.Errorf("%w: %w", services.ErrConfiguration, brackets.ErrOddPool), http.StatusUnprocessableEntity},
		{"not contestant", brackets.ErrNotContestant, http.StatusBadRequest},
		{"not eligible", brackets.ErrNotEligible, http.StatusBadRequest},
		{"validation", services.ErrValidationFailed, http.StatusBadRequest},
		{"forbidden", services.ErrForbiddenOperation, http.StatusForbidden},
		{"already final", brackets.ErrMatchAlreadyFinal, http.StatusConflict},
		{"storage disabled", services.ErrEvidenceStorageDisabled, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestReadJSON(t *testing.T) {
	var dst struct {
		TeamID int `json:"team_id"`
	}

	read := func(body string) error {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		return readJSON(httptest.NewRecorder(), req, &dst)
	}

	require.NoError(t, read(`{"team_id": 3}`))
	assert.Equal(t, 3, dst.TeamID)

	assert.ErrorContains(t, read(``), "must not be empty")
	assert.ErrorContains(t, read(`{"team_id": "x"}`), "incorrect JSON type")
	assert.ErrorContains(t, read(`{"other": 1}`), "unknown key")
	assert.ErrorContains(t, read(`{"team_id": 1}{}`), "single JSON value")
}
