package models

import "time"

// StageKind описывает, какая стадия была сгенерирована для турнира.
type StageKind string

const (
	StageKindNone    StageKind = ""
	StageKindGroups  StageKind = "groups"
	StageKindPlayoff StageKind = "playoff"
)

// LadderRound records the shape of one playoff round at the moment it was created.
// MatchCount is the number of matches that must be decided before the round is complete.
type LadderRound struct {
	Number     int  `json:"number"`
	MatchCount int  `json:"match_count"`
	ByeTeamID  *int `json:"bye_team_id,omitempty"`
}

// Tournament представляет турнир.
type Tournament struct {
	ID                      int        `json:"id" db:"id"`
	Name                    string     `json:"name" db:"name"`
	TeamSize                int        `json:"team_size" db:"team_size"`
	RegistrationOpenDate    time.Time  `json:"registration_open_date" db:"registration_open_date"`
	RegistrationCloseDate   time.Time  `json:"registration_close_date" db:"registration_close_date"`
	RegistrationCheckInDate *time.Time `json:"registration_check_in_date,omitempty" db:"registration_check_in_date"`
	StageKind               StageKind  `json:"stage_kind" db:"stage_kind"`
	StageGeneratedAt        *time.Time `json:"stage_generated_at,omitempty" db:"stage_generated_at"`

	// PlayoffArray is the initial seed pairing of the ladder. Written once.
	PlayoffArray   [][]int       `json:"playoff_array,omitempty" db:"playoff_array"`
	LadderRounds   []LadderRound `json:"ladder_rounds,omitempty" db:"ladder_rounds"`
	LadderComplete bool          `json:"ladder_complete" db:"ladder_complete"`
	ChampionTeamID *int          `json:"champion_team_id,omitempty" db:"champion_team_id"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// CurrentRound returns the most recently created ladder round.
func (t *Tournament) CurrentRound() (LadderRound, bool) {
	if len(t.LadderRounds) == 0 {
		return LadderRound{}, false
	}
	return t.LadderRounds[len(t.LadderRounds)-1], true
}

// Round looks up a ladder round by its 1-based number.
func (t *Tournament) Round(number int) (LadderRound, bool) {
	for _, r := range t.LadderRounds {
		if r.Number == number {
			return r, true
		}
	}
	return LadderRound{}, false
}
