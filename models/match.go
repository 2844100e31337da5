package models

import (
	"slices"
	"time"
)

type MatchStage string

const (
	StageGroup   MatchStage = "GROUP"
	StagePlayoff MatchStage = "PLAYOFF"
)

type Match struct {
	ID              int        `json:"id" db:"id"`
	TournamentID    int        `json:"tournament_id" db:"tournament_id"`
	GroupID         *int       `json:"group_id,omitempty" db:"group_id"`
	Stage           MatchStage `json:"stage" db:"stage"`
	RoundNumber     *int       `json:"round_number,omitempty" db:"round_number"`
	BracketPosition int        `json:"bracket_position" db:"bracket_position"`
	ContestantIDs   [2]int     `json:"contestant_ids" db:"contestant_ids"`
	WinnerID        *int       `json:"winner_id,omitempty" db:"winner_id"`
	IsFinal         bool       `json:"is_final" db:"is_final"`
	IsContested     bool       `json:"is_contested" db:"is_contested"`
	ResultSubmitted []int      `json:"result_submitted" db:"result_submitted"`
	EvidenceKeys    []string   `json:"-" db:"evidence_keys"`
	Version         int        `json:"version" db:"version"`
	MatchStart      *time.Time `json:"match_start,omitempty" db:"match_start"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// IsContestant reports whether teamID plays in this match.
func (m *Match) IsContestant(teamID int) bool {
	return m.ContestantIDs[0] == teamID || m.ContestantIDs[1] == teamID
}

// Opponent returns the other contestant. ok is false if teamID does not play in the match.
func (m *Match) Opponent(teamID int) (opponent int, ok bool) {
	switch teamID {
	case m.ContestantIDs[0]:
		return m.ContestantIDs[1], true
	case m.ContestantIDs[1]:
		return m.ContestantIDs[0], true
	}
	return 0, false
}

// HasSubmitted reports whether teamID has already submitted a result for this match.
func (m *Match) HasSubmitted(teamID int) bool {
	return slices.Contains(m.ResultSubmitted, teamID)
}

// Decided reports whether the match has an agreed, undisputed winner.
func (m *Match) Decided() bool {
	return m.WinnerID != nil && m.IsFinal && !m.IsContested
}

// Clone returns a deep copy of the match.
func (m Match) Clone() Match {
	c := m
	if m.GroupID != nil {
		v := *m.GroupID
		c.GroupID = &v
	}
	if m.RoundNumber != nil {
		v := *m.RoundNumber
		c.RoundNumber = &v
	}
	if m.WinnerID != nil {
		v := *m.WinnerID
		c.WinnerID = &v
	}
	if m.MatchStart != nil {
		v := *m.MatchStart
		c.MatchStart = &v
	}
	c.ResultSubmitted = slices.Clone(m.ResultSubmitted)
	c.EvidenceKeys = slices.Clone(m.EvidenceKeys)
	return c
}
