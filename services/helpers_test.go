package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/storage"
	"github.com/stretchr/testify/require"
)

var (
	registrationClose = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	afterClose        = registrationClose.Add(time.Hour)
)

type eventRecorder struct {
	mu     sync.Mutex
	events []brackets.Event
}

func (r *eventRecorder) Notify(_ context.Context, e brackets.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) count(typ brackets.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, reader io.Reader) (*storage.UploadResult, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = body
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

type testEnv struct {
	store      *repositories.Store
	stages     StageService
	results    ResultService
	recorder   *eventRecorder
	uploader   *fakeUploader
	tournament *models.Tournament
	teams      []*models.Team
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv creates a tournament whose registration has closed with the given
// number of complete single-player teams. Shuffling is disabled so team order is
// creation order.
func newTestEnv(t *testing.T, teams int) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := repositories.NewMemoryStore()
	recorder := &eventRecorder{}
	uploader := newFakeUploader()
	locks := NewLocks()
	logger := discardLogger()

	stages := NewStageService(store, recorder, locks, logger,
		WithShuffler(func([]int) {}),
		WithClock(func() time.Time { return afterClose }))
	results := NewResultService(store, stages, recorder, uploader, locks, logger)

	tournament := &models.Tournament{
		Name:                  "Autumn Open",
		TeamSize:              1,
		RegistrationOpenDate:  registrationClose.Add(-7 * 24 * time.Hour),
		RegistrationCloseDate: registrationClose,
	}
	require.NoError(t, store.Tournaments.Create(ctx, tournament))

	env := &testEnv{
		store:      store,
		stages:     stages,
		results:    results,
		recorder:   recorder,
		uploader:   uploader,
		tournament: tournament,
	}
	for i := 0; i < teams; i++ {
		env.addTeam(t, models.MemberAccepted)
	}
	return env
}

func (e *testEnv) addTeam(t *testing.T, status models.MemberStatus) *models.Team {
	t.Helper()
	captain := 5000 + len(e.teams)
	team := &models.Team{
		TournamentID: e.tournament.ID,
		Name:         fmt.Sprintf("team-%02d", len(e.teams)),
		CaptainID:    captain,
		Members:      []models.TeamMember{{UserID: captain, Status: status}},
	}
	require.NoError(t, e.store.Teams.Create(context.Background(), nil, team))
	e.teams = append(e.teams, team)
	return team
}

func (e *testEnv) team(t *testing.T, id int) *models.Team {
	t.Helper()
	team, err := e.store.Teams.GetByID(context.Background(), nil, id)
	require.NoError(t, err)
	return team
}

func (e *testEnv) reloadTournament(t *testing.T) *models.Tournament {
	t.Helper()
	tournament, err := e.store.Tournaments.GetByID(context.Background(), nil, e.tournament.ID)
	require.NoError(t, err)
	return tournament
}

// captainOf returns the user allowed to submit for teamID.
func captainOf(teamID int, teams []*models.Team) int {
	for _, t := range teams {
		if t.ID == teamID {
			return t.CaptainID
		}
	}
	return 0
}

func (e *testEnv) submit(t *testing.T, m *models.Match, teamID int, outcome brackets.Outcome) *SubmitResultOutput {
	t.Helper()
	out, err := e.results.SubmitResult(context.Background(), SubmitResultInput{
		MatchID: m.ID,
		TeamID:  teamID,
		UserID:  captainOf(teamID, e.teams),
		Outcome: outcome,
	})
	require.NoError(t, err)
	return out
}

// playAgreed has both contestants agree that the first contestant won.
func (e *testEnv) playAgreed(t *testing.T, m *models.Match) {
	t.Helper()
	e.submit(t, m, m.ContestantIDs[0], brackets.OutcomeWin)
	e.submit(t, m, m.ContestantIDs[1], brackets.OutcomeLoss)
}

func (e *testEnv) playoffRound(t *testing.T, round int) []*models.Match {
	t.Helper()
	stage := models.StagePlayoff
	matches, err := e.store.Matches.ListByTournament(context.Background(), nil, e.tournament.ID,
		repositories.MatchFilter{Stage: &stage, Round: &round})
	require.NoError(t, err)
	return matches
}
