package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTournament(t *testing.T, store *Store, teams int) (*models.Tournament, []*models.Team) {
	t.Helper()
	ctx := context.Background()

	tournament := &models.Tournament{
		Name:                  "Spring Cup",
		TeamSize:              1,
		RegistrationOpenDate:  time.Now().Add(-48 * time.Hour),
		RegistrationCloseDate: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Tournaments.Create(ctx, tournament))

	created := make([]*models.Team, 0, teams)
	for i := 0; i < teams; i++ {
		team := &models.Team{
			TournamentID: tournament.ID,
			Name:         "team-" + string(rune('a'+i)),
			CaptainID:    1000 + i,
			Members:      []models.TeamMember{{UserID: 1000 + i, Status: models.MemberAccepted}},
		}
		require.NoError(t, store.Teams.Create(ctx, nil, team))
		created = append(created, team)
	}
	return tournament, created
}

func TestMemoryStore_StageIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tournament, _ := seedTournament(t, store, 0)

	require.NoError(t, store.Tournaments.MarkStageGenerated(ctx, nil, tournament.ID, models.StageKindPlayoff, time.Now()))
	err := store.Tournaments.MarkStageGenerated(ctx, nil, tournament.ID, models.StageKindGroups, time.Now())
	assert.ErrorIs(t, err, ErrStageAlreadySet)

	require.NoError(t, store.Tournaments.SavePlayoffArray(ctx, nil, tournament.ID, [][]int{{1, 2}}))
	err = store.Tournaments.SavePlayoffArray(ctx, nil, tournament.ID, [][]int{{3, 4}})
	assert.ErrorIs(t, err, ErrPlayoffArrayAlreadySet)

	got, err := store.Tournaments.GetByID(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageKindPlayoff, got.StageKind)
	assert.Equal(t, [][]int{{1, 2}}, got.PlayoffArray)
}

func TestMemoryStore_RollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tournament, teams := seedTournament(t, store, 2)
	boom := errors.New("boom")

	err := store.Tx.WithinTx(ctx, func(exec SQLExecutor) error {
		require.NoError(t, store.Tournaments.MarkStageGenerated(ctx, exec, tournament.ID, models.StageKindPlayoff, time.Now()))
		require.NoError(t, store.Teams.ApplyScore(ctx, exec, teams[0].ID, teams[1].ID, 0))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Tournaments.GetByID(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageKindNone, got.StageKind)

	winner, err := store.Teams.GetByID(ctx, nil, teams[0].ID)
	require.NoError(t, err)
	assert.Zero(t, winner.Wins)
}

func TestMemoryStore_PlayoffSlotIsUnique(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tournament, teams := seedTournament(t, store, 4)
	round := 2

	first := &models.Match{
		TournamentID:  tournament.ID,
		Stage:         models.StagePlayoff,
		RoundNumber:   &round,
		ContestantIDs: [2]int{teams[0].ID, teams[1].ID},
	}
	require.NoError(t, store.Matches.CreateBatch(ctx, nil, []*models.Match{first}))

	dup := &models.Match{
		TournamentID:  tournament.ID,
		Stage:         models.StagePlayoff,
		RoundNumber:   &round,
		ContestantIDs: [2]int{teams[2].ID, teams[3].ID},
	}
	assert.ErrorIs(t, store.Matches.CreateBatch(ctx, nil, []*models.Match{dup}), ErrMatchSlotTaken)
}

func TestMemoryStore_UpdateResultChecksVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tournament, teams := seedTournament(t, store, 2)

	m := &models.Match{
		TournamentID:  tournament.ID,
		Stage:         models.StageGroup,
		ContestantIDs: [2]int{teams[0].ID, teams[1].ID},
	}
	require.NoError(t, store.Matches.CreateBatch(ctx, nil, []*models.Match{m}))

	stale, err := store.Matches.GetByID(ctx, nil, m.ID)
	require.NoError(t, err)

	fresh, err := store.Matches.GetByID(ctx, nil, m.ID)
	require.NoError(t, err)
	fresh.WinnerID = &teams[0].ID
	fresh.ResultSubmitted = []int{teams[0].ID}
	require.NoError(t, store.Matches.UpdateResult(ctx, nil, fresh))
	assert.Equal(t, 1, fresh.Version)

	stale.WinnerID = &teams[1].ID
	assert.ErrorIs(t, store.Matches.UpdateResult(ctx, nil, stale), ErrMatchVersionConflict)

	got, err := store.Matches.GetByID(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Equal(t, teams[0].ID, *got.WinnerID)
}

func TestMemoryStore_TeamJoinsOneGroup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tournament, teams := seedTournament(t, store, 3)

	require.NoError(t, store.Groups.Create(ctx, nil, &models.Group{
		TournamentID: tournament.ID, Name: "Group A", TeamIDs: []int{teams[0].ID, teams[1].ID},
	}))
	err := store.Groups.Create(ctx, nil, &models.Group{
		TournamentID: tournament.ID, Name: "Group B", TeamIDs: []int{teams[1].ID, teams[2].ID},
	})
	assert.ErrorIs(t, err, ErrTeamAlreadyGrouped)

	groups, err := store.Groups.ListByTournament(ctx, nil, tournament.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []int{teams[0].ID, teams[1].ID}, groups[0].TeamIDs)
}

func TestMemoryStore_ListMatchesFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tournament, teams := seedTournament(t, store, 4)
	r1, r2 := 1, 2

	matches := []*models.Match{
		{TournamentID: tournament.ID, Stage: models.StagePlayoff, RoundNumber: &r2, BracketPosition: 0, ContestantIDs: [2]int{teams[0].ID, teams[2].ID}},
		{TournamentID: tournament.ID, Stage: models.StagePlayoff, RoundNumber: &r1, BracketPosition: 1, ContestantIDs: [2]int{teams[2].ID, teams[3].ID}},
		{TournamentID: tournament.ID, Stage: models.StagePlayoff, RoundNumber: &r1, BracketPosition: 0, ContestantIDs: [2]int{teams[0].ID, teams[1].ID}},
	}
	require.NoError(t, store.Matches.CreateBatch(ctx, nil, matches))

	all, err := store.Matches.ListByTournament(ctx, nil, tournament.ID, MatchFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, matches[2].ID, all[0].ID)
	assert.Equal(t, matches[1].ID, all[1].ID)
	assert.Equal(t, matches[0].ID, all[2].ID)

	round1, err := store.Matches.ListByTournament(ctx, nil, tournament.ID, MatchFilter{Round: &r1})
	require.NoError(t, err)
	assert.Len(t, round1, 2)

	forTeam, err := store.Matches.ListByTournament(ctx, nil, tournament.ID, MatchFilter{TeamID: &teams[3].ID})
	require.NoError(t, err)
	require.Len(t, forTeam, 1)
	assert.Equal(t, matches[1].ID, forTeam[0].ID)
}
