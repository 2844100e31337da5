package brackets

type EventType string

const (
	EventStageGenerated  EventType = "STAGE_GENERATED"
	EventResultFinalized EventType = "RESULT_FINALIZED"
	EventMatchContested  EventType = "MATCH_CONTESTED"
	EventMatchResolved   EventType = "MATCH_RESOLVED"
	EventRoundAdvanced   EventType = "ROUND_ADVANCED"
	EventChampionDecided EventType = "CHAMPION_DECIDED"
)

// Event is a side effect of a state transition, delivered after the transition commits.
type Event struct {
	Type         EventType `json:"type"`
	TournamentID int       `json:"tournament_id"`
	MatchID      int       `json:"match_id,omitempty"`
	Round        int       `json:"round,omitempty"`
	TeamID       *int      `json:"team_id,omitempty"`
	TeamIDs      []int     `json:"team_ids,omitempty"`
}
