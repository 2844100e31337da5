package models

import "time"

type MemberStatus string

const (
	MemberAccepted MemberStatus = "accepted"
	MemberPending  MemberStatus = "pending"
	MemberRejected MemberStatus = "rejected"
)

type TeamMember struct {
	UserID int          `json:"user_id" db:"user_id"`
	Status MemberStatus `json:"status" db:"status"`
}

type Team struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	CaptainID    int       `json:"captain_id" db:"captain_id"`
	Wins         int       `json:"wins" db:"wins"`
	Losses       int       `json:"losses" db:"losses"`
	GroupScore   int       `json:"group_score" db:"group_score"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	Members []TeamMember `json:"members,omitempty" db:"-"`
}

// AcceptedCount returns the number of members who accepted their invitation.
func (t *Team) AcceptedCount() int {
	n := 0
	for _, m := range t.Members {
		if m.Status == MemberAccepted {
			n++
		}
	}
	return n
}

// HasMember reports whether userID is an accepted member of the team.
func (t *Team) HasMember(userID int) bool {
	for _, m := range t.Members {
		if m.UserID == userID && m.Status == MemberAccepted {
			return true
		}
	}
	return false
}
