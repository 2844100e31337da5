package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStage_FortyTeamsMakesGroups(t *testing.T) {
	env := newTestEnv(t, 40)
	ctx := context.Background()

	res, err := env.stages.GenerateStage(ctx, env.tournament.ID, GenerateOptions{})
	require.NoError(t, err)

	assert.Equal(t, models.StageKindGroups, res.Kind)
	require.Len(t, res.Groups, 5)
	assert.Len(t, res.Matches, 140)

	perGroup := map[int]int{}
	for _, m := range res.Matches {
		assert.Equal(t, models.StageGroup, m.Stage)
		require.NotNil(t, m.GroupID)
		perGroup[*m.GroupID]++
	}
	for _, g := range res.Groups {
		assert.Len(t, g.TeamIDs, 8)
		assert.Equal(t, 28, perGroup[g.ID])
	}

	status, err := env.stages.GetStageStatus(ctx, env.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, StageGroups, status)

	stored, err := env.store.Matches.ListByTournament(ctx, nil, env.tournament.ID, repositories.MatchFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 140)

	assert.Eventually(t, func() bool {
		return env.recorder.count(brackets.EventStageGenerated) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestGenerateStage_SixteenTeamsMakesLadder(t *testing.T) {
	env := newTestEnv(t, 16)
	ctx := context.Background()

	res, err := env.stages.GenerateStage(ctx, env.tournament.ID, GenerateOptions{})
	require.NoError(t, err)

	assert.Equal(t, models.StageKindPlayoff, res.Kind)
	assert.Len(t, res.Matches, 8)
	assert.Len(t, res.PlayoffArray, 8)
	require.NotNil(t, res.Round)
	assert.Equal(t, models.LadderRound{Number: 1, MatchCount: 8}, *res.Round)

	tournament := env.reloadTournament(t)
	assert.Equal(t, models.StageKindPlayoff, tournament.StageKind)
	assert.Equal(t, res.PlayoffArray, tournament.PlayoffArray)
	assert.Equal(t, []models.LadderRound{{Number: 1, MatchCount: 8}}, tournament.LadderRounds)

	for i, m := range env.playoffRound(t, 1) {
		assert.Equal(t, i, m.BracketPosition)
		assert.Equal(t, []int{m.ContestantIDs[0], m.ContestantIDs[1]}, tournament.PlayoffArray[i])
	}

	status, err := env.stages.GetStageStatus(ctx, env.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, StagePlayoff, status)
}

func TestGenerateStage_SecondCallIsRejected(t *testing.T) {
	env := newTestEnv(t, 8)
	ctx := context.Background()

	_, err := env.stages.GenerateStage(ctx, env.tournament.ID, GenerateOptions{})
	require.NoError(t, err)

	_, err = env.stages.GenerateStage(ctx, env.tournament.ID, GenerateOptions{Force: true})
	assert.ErrorIs(t, err, ErrStageAlreadyGenerated)
	assert.ErrorIs(t, err, ErrConfiguration)

	assert.Len(t, env.playoffRound(t, 1), 4)
}

func TestGenerateStage_OddPoolRollsBack(t *testing.T) {
	env := newTestEnv(t, 9)

	_, err := env.stages.GenerateStage(context.Background(), env.tournament.ID, GenerateOptions{})
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, brackets.ErrOddPool)

	tournament := env.reloadTournament(t)
	assert.Equal(t, models.StageKindNone, tournament.StageKind)
	assert.Nil(t, tournament.PlayoffArray)
}

func TestGenerateStage_SkipsIncompleteTeams(t *testing.T) {
	env := newTestEnv(t, 8)
	env.addTeam(t, models.MemberPending)
	env.addTeam(t, models.MemberRejected)

	res, err := env.stages.GenerateStage(context.Background(), env.tournament.ID, GenerateOptions{})
	require.NoError(t, err)

	assert.Len(t, res.Matches, 4)
	seeded := map[int]bool{}
	for _, pair := range res.PlayoffArray {
		for _, id := range pair {
			seeded[id] = true
		}
	}
	assert.False(t, seeded[env.teams[8].ID])
	assert.False(t, seeded[env.teams[9].ID])
}

func TestGenerateStage_NotEnoughTeams(t *testing.T) {
	env := newTestEnv(t, 1)

	_, err := env.stages.GenerateStage(context.Background(), env.tournament.ID, GenerateOptions{})
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, brackets.ErrNotEnoughTeams)
}

func TestGenerateStage_WaitsForRegistrationToClose(t *testing.T) {
	env := newTestEnv(t, 4)
	early := NewStageService(env.store, nil, NewLocks(), discardLogger(),
		WithClock(func() time.Time { return registrationClose.Add(-time.Minute) }))
	ctx := context.Background()

	_, err := early.GenerateStage(ctx, env.tournament.ID, GenerateOptions{})
	assert.ErrorIs(t, err, ErrRegistrationStillOpen)

	status, err := early.GetStageStatus(ctx, env.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, StageRegistrationOpen, status)

	_, err = early.GenerateStage(ctx, env.tournament.ID, GenerateOptions{Force: true})
	assert.NoError(t, err)
}

func TestGetStageStatus_ClosedButNotGenerated(t *testing.T) {
	env := newTestEnv(t, 4)

	status, err := env.stages.GetStageStatus(context.Background(), env.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, StageRegistrationClosed, status)

	_, err = env.stages.GetStageStatus(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestGenerateStage_ConcurrentCallsProduceOneStructure(t *testing.T) {
	env := newTestEnv(t, 16)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.stages.GenerateStage(ctx, env.tournament.ID, GenerateOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrStageAlreadyGenerated)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, env.playoffRound(t, 1), 8)
}

func TestAdvanceLadder_IsIdempotent(t *testing.T) {
	env := newTestEnv(t, 8)
	ctx := context.Background()
	_, err := env.stages.GenerateStage(ctx, env.tournament.ID, GenerateOptions{})
	require.NoError(t, err)

	for _, m := range env.playoffRound(t, 1) {
		env.playAgreed(t, m)
	}
	require.Len(t, env.playoffRound(t, 2), 2)

	for i := 0; i < 3; i++ {
		adv, err := env.stages.AdvanceLadder(ctx, env.tournament.ID)
		require.NoError(t, err)
		assert.Nil(t, adv)
	}
	assert.Len(t, env.playoffRound(t, 2), 2)
	assert.Len(t, env.reloadTournament(t).LadderRounds, 2)
}

func TestAdvanceLadder_ConcurrentTriggersCreateRoundOnce(t *testing.T) {
	env := newTestEnv(t, 8)
	ctx := context.Background()
	_, err := env.stages.GenerateStage(ctx, env.tournament.ID, GenerateOptions{})
	require.NoError(t, err)

	// Decide round 1 straight in the store so nothing has advanced yet.
	for _, m := range env.playoffRound(t, 1) {
		m.WinnerID = intPtr(m.ContestantIDs[0])
		m.IsFinal = true
		m.ResultSubmitted = []int{m.ContestantIDs[0], m.ContestantIDs[1]}
		require.NoError(t, env.store.Matches.UpdateResult(ctx, nil, m))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	advanced := 0
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adv, err := env.stages.AdvanceLadder(ctx, env.tournament.ID)
			assert.NoError(t, err)
			if adv != nil {
				mu.Lock()
				advanced++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, advanced)
	assert.Len(t, env.playoffRound(t, 2), 2)
}

func TestGetGroupStandings_OrdersByScore(t *testing.T) {
	env := newTestEnv(t, 17)
	ctx := context.Background()
	res, err := env.stages.GenerateStage(ctx, env.tournament.ID, GenerateOptions{})
	require.NoError(t, err)
	require.Equal(t, models.StageKindGroups, res.Kind)

	first := res.Groups[0]
	var played *models.Match
	for _, m := range res.Matches {
		if *m.GroupID == first.ID {
			played = m
			break
		}
	}
	require.NotNil(t, played)
	env.submit(t, played, played.ContestantIDs[1], brackets.OutcomeWin)
	env.submit(t, played, played.ContestantIDs[0], brackets.OutcomeLoss)

	tables, err := env.stages.GetGroupStandings(ctx, env.tournament.ID)
	require.NoError(t, err)
	require.Len(t, tables, len(res.Groups))

	top := tables[0].Standings[0]
	assert.Equal(t, played.ContestantIDs[1], top.TeamID)
	assert.Equal(t, 1, top.GroupScore)
	assert.Equal(t, 1, top.Rank)

	last := tables[0].Standings[len(tables[0].Standings)-1]
	assert.Equal(t, played.ContestantIDs[0], last.TeamID)
	assert.Equal(t, 1, last.Losses)
}

func TestCheckTeamEligibility(t *testing.T) {
	env := newTestEnv(t, 1)
	incomplete := env.addTeam(t, models.MemberPending)
	ctx := context.Background()

	report, err := env.stages.CheckTeamEligibility(ctx, env.teams[0].ID)
	require.NoError(t, err)
	assert.True(t, report.Eligible)

	report, err = env.stages.CheckTeamEligibility(ctx, incomplete.ID)
	require.NoError(t, err)
	assert.False(t, report.Eligible)
	assert.Equal(t, 0, report.AcceptedMembers)
	assert.Equal(t, 1, report.RequiredMembers)
	assert.NotEmpty(t, report.Reason)

	_, err = env.stages.CheckTeamEligibility(ctx, 9999)
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestGetBracketAndSchedule(t *testing.T) {
	env := newTestEnv(t, 4)
	ctx := context.Background()
	_, err := env.stages.GenerateStage(ctx, env.tournament.ID, GenerateOptions{})
	require.NoError(t, err)

	view, err := env.stages.GetBracket(ctx, env.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, env.tournament.ID, view.Tournament.ID)
	assert.Empty(t, view.Groups)
	assert.Len(t, view.Playoff, 2)

	teamID := env.teams[0].ID
	schedule, err := env.stages.ListSchedule(ctx, env.tournament.ID, &teamID)
	require.NoError(t, err)
	require.Len(t, schedule, 1)
	assert.True(t, schedule[0].IsContestant(teamID))

	_, err = env.stages.GetBracket(ctx, 9999)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}
