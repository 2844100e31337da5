package models

import "time"

type Group struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	TeamIDs      []int     `json:"team_ids" db:"-"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// GroupStanding is one row of a group table, ordered by GroupScore, then wins minus losses.
type GroupStanding struct {
	TeamID     int    `json:"team_id"`
	TeamName   string `json:"team_name"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	GroupScore int    `json:"group_score"`
	Rank       int    `json:"rank"`
}
