package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

// Shuffler reorders team IDs in place before they are partitioned.
type Shuffler func(ids []int)

func defaultShuffle(ids []int) {
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}

// mapRepositoryError translates storage errors into service errors.
func mapRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrStageAlreadySet),
		errors.Is(err, repositories.ErrPlayoffArrayAlreadySet):
		return fmt.Errorf("%w: %w: %w", ErrConfiguration, ErrStageAlreadyGenerated, err)
	case errors.Is(err, repositories.ErrMatchVersionConflict),
		errors.Is(err, repositories.ErrMatchSlotTaken),
		errors.Is(err, repositories.ErrTeamAlreadyGrouped):
		return fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
	}
	return err
}

// mapPlanError marks bracket planning failures as configuration errors.
func mapPlanError(err error) error {
	switch {
	case errors.Is(err, brackets.ErrOddPool),
		errors.Is(err, brackets.ErrNotEnoughTeams),
		errors.Is(err, brackets.ErrDecidedExceedsExpected),
		errors.Is(err, brackets.ErrRoundMismatch),
		errors.Is(err, brackets.ErrWinnerNotContestant):
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return err
}

// retryOnConflict runs fn and, if it lost a race, runs it once more against the
// state the winner committed.
func retryOnConflict(ctx context.Context, logger *slog.Logger, op string, fn func() error) error {
	err := fn()
	if !errors.Is(err, ErrConcurrencyConflict) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return err
	}
	logger.Warn("retrying after concurrent modification", slog.String("op", op), slog.Any("error", err))
	return fn()
}

func teamIDs(teams []*models.Team) []int {
	ids := make([]int, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	return ids
}

func intPtr(v int) *int { return &v }
