package brackets

import (
	"fmt"
	"time"

	"github.com/Dosada05/tournament-engine/models"
)

// IsComplete reports whether the team has exactly teamSize accepted members.
func IsComplete(team *models.Team, teamSize int) bool {
	return team != nil && teamSize > 0 && team.AcceptedCount() == teamSize
}

// CheckTeamEligible returns an ErrNotEligible error when the team cannot enter a
// stage of the tournament.
func CheckTeamEligible(t *models.Tournament, team *models.Team) error {
	if team.TournamentID != t.ID {
		return fmt.Errorf("%w: team %d is registered for tournament %d, not %d",
			ErrNotEligible, team.ID, team.TournamentID, t.ID)
	}
	if !IsComplete(team, t.TeamSize) {
		return fmt.Errorf("%w: team %d has %d of %d accepted members",
			ErrNotEligible, team.ID, team.AcceptedCount(), t.TeamSize)
	}
	return nil
}

// RegistrationClosed reports whether the registration deadline has passed at now.
func RegistrationClosed(t *models.Tournament, now time.Time) bool {
	return !now.Before(t.RegistrationCloseDate)
}

// FilterEligible keeps the complete teams of the tournament, preserving order.
func FilterEligible(t *models.Tournament, teams []*models.Team) []*models.Team {
	eligible := make([]*models.Team, 0, len(teams))
	for _, team := range teams {
		if CheckTeamEligible(t, team) == nil {
			eligible = append(eligible, team)
		}
	}
	return eligible
}
