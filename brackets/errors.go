package brackets

import "errors"

var (
	ErrNotEnoughTeams         = errors.New("at least 2 eligible teams are required")
	ErrOddPool                = errors.New("ladder seeding requires an even number of teams")
	ErrPoolTooSmallForGroups  = errors.New("pool is small enough for a ladder, groups are not built")
	ErrDecidedExceedsExpected = errors.New("decided match count exceeds the expected count for the round")
	ErrRoundMismatch          = errors.New("match does not belong to the round being advanced")
	ErrWinnerNotContestant    = errors.New("recorded winner is not a contestant of the match")

	ErrNotContestant     = errors.New("team is not a contestant of this match")
	ErrInvalidOutcome    = errors.New("outcome must be WIN or LOSS")
	ErrMatchAlreadyFinal = errors.New("match is already final with a different winner")

	ErrNotEligible = errors.New("team is not eligible for this stage")
)
