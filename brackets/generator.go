package brackets

import (
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

// StagePlan is the outcome of stage generation before anything is persisted.
// Exactly one of Groups or Ladder is set, matching Kind.
type StagePlan struct {
	Kind   models.StageKind
	Groups []GroupPlan
	Ladder *LadderPlan
}

// PlanStage picks groups or a ladder by pool size and builds the matching plan.
// teamIDs must already be shuffled.
func PlanStage(teamIDs []int) (*StagePlan, error) {
	if len(teamIDs) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughTeams, len(teamIDs))
	}

	if len(teamIDs) <= LadderMaxPool {
		ladder, err := BuildLadder(teamIDs)
		if err != nil {
			return nil, err
		}
		return &StagePlan{Kind: models.StageKindPlayoff, Ladder: ladder}, nil
	}

	groups, err := BuildGroups(teamIDs)
	if err != nil {
		return nil, err
	}
	return &StagePlan{Kind: models.StageKindGroups, Groups: groups}, nil
}
