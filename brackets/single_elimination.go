package brackets

import (
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

// LadderPlan is the seeded first round of a single-elimination ladder.
type LadderPlan struct {
	// PlayoffArray is the seed pairing persisted on the tournament, one pair per match.
	PlayoffArray [][]int
	Round        models.LadderRound
	Pairings     []Pairing
}

// Pairing is a match to be created at a given bracket position of a round.
type Pairing struct {
	Round           int    `json:"round"`
	BracketPosition int    `json:"bracket_position"`
	ContestantIDs   [2]int `json:"contestant_ids"`
}

// BuildLadder seeds an already shuffled pool into round 1, pairing consecutive teams
// and preserving their order. Odd pools are a configuration error: there are no byes
// in round 1.
func BuildLadder(teamIDs []int) (*LadderPlan, error) {
	n := len(teamIDs)
	if n < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughTeams, n)
	}
	if n%2 != 0 {
		return nil, fmt.Errorf("%w: found %d teams", ErrOddPool, n)
	}

	chunks := Chunk(2, teamIDs)
	plan := &LadderPlan{
		PlayoffArray: chunks,
		Round:        models.LadderRound{Number: 1, MatchCount: len(chunks)},
		Pairings:     make([]Pairing, 0, len(chunks)),
	}
	for i, pair := range chunks {
		plan.Pairings = append(plan.Pairings, Pairing{
			Round:           1,
			BracketPosition: i,
			ContestantIDs:   [2]int{pair[0], pair[1]},
		})
	}
	return plan, nil
}
