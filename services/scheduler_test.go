package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, env *testEnv) *Scheduler {
	t.Helper()
	s, err := NewScheduler(env.store, env.stages, time.Minute, discardLogger())
	require.NoError(t, err)
	s.now = func() time.Time { return afterClose }
	return s
}

func TestScheduler_GeneratesDueTournamentsOnce(t *testing.T) {
	env := newTestEnv(t, 8)
	s := newTestScheduler(t, env)
	ctx := context.Background()

	report := s.RunOnce(ctx)
	assert.Equal(t, 1, report.Generated)
	assert.Zero(t, report.Failed)
	assert.Equal(t, models.StageKindPlayoff, env.reloadTournament(t).StageKind)

	report = s.RunOnce(ctx)
	assert.Zero(t, report.Generated)
	assert.Zero(t, report.Advanced)
	assert.Len(t, env.playoffRound(t, 1), 4)
}

func TestScheduler_SkipsOpenRegistration(t *testing.T) {
	env := newTestEnv(t, 8)
	s := newTestScheduler(t, env)
	s.now = func() time.Time { return registrationClose.Add(-time.Second) }

	report := s.RunOnce(context.Background())
	assert.Zero(t, report.Generated)
	assert.Equal(t, models.StageKindNone, env.reloadTournament(t).StageKind)
}

func TestScheduler_ReportsConfigurationErrors(t *testing.T) {
	env := newTestEnv(t, 5)
	s := newTestScheduler(t, env)

	report := s.RunOnce(context.Background())
	assert.Zero(t, report.Generated)
	assert.Equal(t, 1, report.Failed)
}

func TestScheduler_SweepAdvancesStalledLadder(t *testing.T) {
	env := generateLadder(t, 4)
	s := newTestScheduler(t, env)
	ctx := context.Background()

	// Round 1 decided without going through the result service, as if the
	// post-commit advancement had been lost.
	for _, m := range env.playoffRound(t, 1) {
		m.WinnerID = intPtr(m.ContestantIDs[1])
		m.IsFinal = true
		m.ResultSubmitted = []int{m.ContestantIDs[0], m.ContestantIDs[1]}
		require.NoError(t, env.store.Matches.UpdateResult(ctx, nil, m))
	}

	report := s.RunOnce(ctx)
	assert.Equal(t, 1, report.Advanced)
	final := env.playoffRound(t, 2)
	require.Len(t, final, 1)
	assert.Equal(t, [2]int{env.teams[1].ID, env.teams[3].ID}, final[0].ContestantIDs)

	report = s.RunOnce(ctx)
	assert.Zero(t, report.Advanced)
}

func TestNewScheduler_RejectsZeroInterval(t *testing.T) {
	env := newTestEnv(t, 0)
	_, err := NewScheduler(env.store, env.stages, 0, discardLogger())
	assert.Error(t, err)
}
