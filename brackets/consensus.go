package brackets

import (
	"fmt"
	"strings"

	"github.com/Dosada05/tournament-engine/models"
)

type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// ParseOutcome accepts "win" or "loss" in any case.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(strings.ToUpper(strings.TrimSpace(s))) {
	case OutcomeWin:
		return OutcomeWin, nil
	case OutcomeLoss:
		return OutcomeLoss, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidOutcome, s)
}

type ResultStatus string

const (
	StatusPending   ResultStatus = "PENDING"
	StatusContested ResultStatus = "CONTESTED"
	StatusFinal     ResultStatus = "FINAL"
)

// StatusOf derives the public status of a match from its flags.
func StatusOf(m *models.Match) ResultStatus {
	switch {
	case m.IsContested:
		return StatusContested
	case m.IsFinal && m.WinnerID != nil:
		return StatusFinal
	default:
		return StatusPending
	}
}

// Standing is a match status seen from one contestant's side.
type Standing string

const (
	StandingWinner    Standing = "winner"
	StandingLoser     Standing = "loser"
	StandingPending   Standing = "pending"
	StandingContested Standing = "contested"
)

// StandingOf reports how the match stands for teamID.
func StandingOf(m *models.Match, teamID int) Standing {
	switch {
	case m.IsContested:
		return StandingContested
	case m.IsFinal && m.WinnerID != nil:
		if *m.WinnerID == teamID {
			return StandingWinner
		}
		return StandingLoser
	default:
		return StandingPending
	}
}

// ScoreDelta is the only way cumulative team scores change: one win for the winner,
// one loss for the loser, and GroupPoints for the winner of a group match.
type ScoreDelta struct {
	MatchID     int
	WinnerID    int
	LoserID     int
	GroupPoints int
}

// Transition is the result of applying a submission to a match. Match is the new
// state; Score is set only when the match became final with this transition.
type Transition struct {
	Match   models.Match
	Status  ResultStatus
	Changed bool
	Score   *ScoreDelta
	Events  []Event

	// ScoreCorrectionRequired is set when a final match got a different winner by
	// manual resolution. Scores already applied for the previous winner stay as they are.
	ScoreCorrectionRequired bool
}

// Resolve applies one contestant's reported outcome to the match.
//
// A team that already submitted gets the current status back unchanged. The first
// submission records the claimed winner and leaves the match pending. A second
// submission that agrees finalizes the match; one that disagrees marks it contested
// and touches no scores.
func Resolve(m models.Match, teamID int, outcome Outcome) (*Transition, error) {
	if outcome != OutcomeWin && outcome != OutcomeLoss {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidOutcome, outcome)
	}
	opponent, ok := m.Opponent(teamID)
	if !ok {
		return nil, fmt.Errorf("%w: team %d, match %d", ErrNotContestant, teamID, m.ID)
	}

	if m.HasSubmitted(teamID) {
		current := m.Clone()
		return &Transition{Match: current, Status: StatusOf(&current)}, nil
	}

	next := m.Clone()
	wasFinal := m.IsFinal
	wasContested := m.IsContested

	candidate := opponent
	if outcome == OutcomeWin {
		candidate = teamID
	}

	switch {
	case next.WinnerID == nil:
		next.WinnerID = &candidate
		if len(next.ResultSubmitted) > 0 {
			next.IsFinal = true
		}
	case *next.WinnerID == candidate:
		next.IsFinal = true
	default:
		next.IsContested = true
	}
	next.ResultSubmitted = append(next.ResultSubmitted, teamID)

	tr := &Transition{Match: next, Status: StatusOf(&next), Changed: true}
	if !wasFinal && next.IsFinal && !next.IsContested {
		tr.Score = scoreDelta(&next)
		tr.Events = append(tr.Events, Event{
			Type:         EventResultFinalized,
			TournamentID: next.TournamentID,
			MatchID:      next.ID,
			Round:        roundOf(&next),
			TeamID:       next.WinnerID,
		})
	}
	if !wasContested && next.IsContested {
		tr.Events = append(tr.Events, Event{
			Type:         EventMatchContested,
			TournamentID: next.TournamentID,
			MatchID:      next.ID,
			Round:        roundOf(&next),
			TeamIDs:      []int{next.ContestantIDs[0], next.ContestantIDs[1]},
		})
	}
	return tr, nil
}

// ResolveManually sets the winner of a match authoritatively, typically after a
// contested match has been reviewed. Scores are applied only if the match was not
// final before; repeating the same resolution is a no-op.
func ResolveManually(m models.Match, winnerID int) (*Transition, error) {
	if !m.IsContestant(winnerID) {
		return nil, fmt.Errorf("%w: team %d, match %d", ErrNotContestant, winnerID, m.ID)
	}

	if m.IsFinal && !m.IsContested {
		if m.WinnerID != nil && *m.WinnerID == winnerID {
			current := m.Clone()
			return &Transition{Match: current, Status: StatusOf(&current)}, nil
		}
		return nil, fmt.Errorf("%w: match %d", ErrMatchAlreadyFinal, m.ID)
	}

	next := m.Clone()
	wasFinal := m.IsFinal
	previousWinner := m.WinnerID

	next.WinnerID = &winnerID
	next.IsContested = false
	next.IsFinal = true

	tr := &Transition{Match: next, Status: StatusOf(&next), Changed: true}
	tr.Events = append(tr.Events, Event{
		Type:         EventMatchResolved,
		TournamentID: next.TournamentID,
		MatchID:      next.ID,
		Round:        roundOf(&next),
		TeamID:       next.WinnerID,
	})

	if !wasFinal {
		tr.Score = scoreDelta(&next)
		tr.Events = append(tr.Events, Event{
			Type:         EventResultFinalized,
			TournamentID: next.TournamentID,
			MatchID:      next.ID,
			Round:        roundOf(&next),
			TeamID:       next.WinnerID,
		})
	} else if previousWinner != nil && *previousWinner != winnerID {
		tr.ScoreCorrectionRequired = true
	}
	return tr, nil
}

func scoreDelta(m *models.Match) *ScoreDelta {
	loser, _ := m.Opponent(*m.WinnerID)
	delta := &ScoreDelta{MatchID: m.ID, WinnerID: *m.WinnerID, LoserID: loser}
	if m.Stage == models.StageGroup {
		delta.GroupPoints = 1
	}
	return delta
}

func roundOf(m *models.Match) int {
	if m.RoundNumber == nil {
		return 0
	}
	return *m.RoundNumber
}
