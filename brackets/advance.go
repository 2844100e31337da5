package brackets

import (
	"fmt"
	"sort"

	"github.com/Dosada05/tournament-engine/models"
)

// Advancement describes what follows a completed ladder round.
// Either Next and Pairings are set, or ChampionID is.
type Advancement struct {
	FromRound  int                 `json:"from_round"`
	Winners    []int               `json:"winners"`
	Next       *models.LadderRound `json:"next,omitempty"`
	Pairings   []Pairing           `json:"pairings,omitempty"`
	ChampionID *int                `json:"champion_id,omitempty"`
}

// NextRound decides whether round is complete and, if so, what the next round
// looks like. It returns (nil, nil) while the round is still in progress.
//
// matches must be the playoff matches of round.Number. The round is complete when
// the number of decided matches equals round.MatchCount. Winners are ordered by
// bracket position, never by completion order, and the round's bye team (if any)
// enters the next round after them. Consecutive entrants are paired; with an odd
// entrant count the last one gets a bye. A single remaining entrant is the champion.
func NextRound(round models.LadderRound, matches []*models.Match) (*Advancement, error) {
	decided := make([]*models.Match, 0, len(matches))
	for _, m := range matches {
		if m.Stage != models.StagePlayoff || m.RoundNumber == nil || *m.RoundNumber != round.Number {
			return nil, fmt.Errorf("%w: match %d, round %d", ErrRoundMismatch, m.ID, round.Number)
		}
		if m.Decided() {
			decided = append(decided, m)
		}
	}

	if len(decided) > round.MatchCount {
		return nil, fmt.Errorf("%w: round %d has %d decided matches, expected %d",
			ErrDecidedExceedsExpected, round.Number, len(decided), round.MatchCount)
	}
	if len(decided) < round.MatchCount {
		return nil, nil
	}

	sort.SliceStable(decided, func(i, j int) bool {
		return decided[i].BracketPosition < decided[j].BracketPosition
	})

	adv := &Advancement{FromRound: round.Number, Winners: make([]int, 0, len(decided))}
	for _, m := range decided {
		if !m.IsContestant(*m.WinnerID) {
			return nil, fmt.Errorf("%w: match %d, winner %d", ErrWinnerNotContestant, m.ID, *m.WinnerID)
		}
		adv.Winners = append(adv.Winners, *m.WinnerID)
	}

	entrants := make([]int, 0, len(adv.Winners)+1)
	entrants = append(entrants, adv.Winners...)
	if round.ByeTeamID != nil {
		entrants = append(entrants, *round.ByeTeamID)
	}

	if len(entrants) == 1 {
		champion := entrants[0]
		adv.ChampionID = &champion
		return adv, nil
	}

	next := &models.LadderRound{Number: round.Number + 1, MatchCount: len(entrants) / 2}
	if len(entrants)%2 != 0 {
		bye := entrants[len(entrants)-1]
		next.ByeTeamID = &bye
	}
	adv.Next = next
	adv.Pairings = make([]Pairing, 0, next.MatchCount)
	for i := 0; i < next.MatchCount; i++ {
		adv.Pairings = append(adv.Pairings, Pairing{
			Round:           next.Number,
			BracketPosition: i,
			ContestantIDs:   [2]int{entrants[2*i], entrants[2*i+1]},
		})
	}
	return adv, nil
}
