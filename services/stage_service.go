package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"golang.org/x/sync/errgroup"
)

type StageStatus string

const (
	StageRegistrationOpen   StageStatus = "REGISTRATION_OPEN"
	StageRegistrationClosed StageStatus = "REGISTRATION_CLOSED"
	StageGroups             StageStatus = "GROUPS"
	StagePlayoff            StageStatus = "PLAYOFF"
)

type GenerateOptions struct {
	// Force skips the registration deadline check.
	Force bool
}

type StageResult struct {
	TournamentID int                 `json:"tournament_id"`
	Kind         models.StageKind    `json:"kind"`
	Groups       []*models.Group     `json:"groups,omitempty"`
	PlayoffArray [][]int             `json:"playoff_array,omitempty"`
	Round        *models.LadderRound `json:"round,omitempty"`
	Matches      []*models.Match     `json:"matches"`
}

type GroupTable struct {
	Group     *models.Group          `json:"group"`
	Standings []models.GroupStanding `json:"standings"`
}

type BracketView struct {
	Tournament *models.Tournament `json:"tournament"`
	Groups     []GroupTable       `json:"groups"`
	Playoff    []*models.Match    `json:"playoff"`
}

type EligibilityReport struct {
	TeamID          int    `json:"team_id"`
	TournamentID    int    `json:"tournament_id"`
	Eligible        bool   `json:"eligible"`
	AcceptedMembers int    `json:"accepted_members"`
	RequiredMembers int    `json:"required_members"`
	Reason          string `json:"reason,omitempty"`
}

type StageService interface {
	GenerateStage(ctx context.Context, tournamentID int, opts GenerateOptions) (*StageResult, error)
	GetStageStatus(ctx context.Context, tournamentID int) (StageStatus, error)
	// AdvanceLadder moves a playoff ladder forward if its current round is complete.
	// It returns nil when there is nothing to do, so it is safe to call repeatedly.
	AdvanceLadder(ctx context.Context, tournamentID int) (*brackets.Advancement, error)
	CheckTeamEligibility(ctx context.Context, teamID int) (*EligibilityReport, error)
	GetGroupStandings(ctx context.Context, tournamentID int) ([]GroupTable, error)
	ListPlayoffMatches(ctx context.Context, tournamentID int) ([]*models.Match, error)
	ListSchedule(ctx context.Context, tournamentID int, teamID *int) ([]*models.Match, error)
	GetBracket(ctx context.Context, tournamentID int) (*BracketView, error)
}

type stageService struct {
	store    *repositories.Store
	notifier Notifier
	locks    *keyedMutex
	shuffle  Shuffler
	now      func() time.Time
	logger   *slog.Logger
}

type StageServiceOption func(*stageService)

// WithShuffler replaces the random shuffle applied to the pool before partitioning.
func WithShuffler(s Shuffler) StageServiceOption {
	return func(svc *stageService) { svc.shuffle = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StageServiceOption {
	return func(svc *stageService) { svc.now = now }
}

func NewStageService(store *repositories.Store, notifier Notifier, locks *Locks, logger *slog.Logger, opts ...StageServiceOption) StageService {
	s := &stageService{
		store:    store,
		notifier: notifier,
		locks:    locks.keys,
		shuffle:  defaultShuffle,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *stageService) GenerateStage(ctx context.Context, tournamentID int, opts GenerateOptions) (*StageResult, error) {
	unlock := s.locks.Lock(tournamentKey(tournamentID))
	defer unlock()

	var result *StageResult
	err := s.store.Tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.store.Tournaments.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapRepositoryError(err)
		}
		if t.StageKind != models.StageKindNone {
			return fmt.Errorf("%w: %w: tournament %d already has a %s stage",
				ErrConfiguration, ErrStageAlreadyGenerated, t.ID, t.StageKind)
		}
		now := s.now()
		if !opts.Force && !brackets.RegistrationClosed(t, now) {
			return fmt.Errorf("%w: tournament %d closes at %s",
				ErrRegistrationStillOpen, t.ID, t.RegistrationCloseDate.Format(time.RFC3339))
		}

		teams, err := s.store.Teams.ListByTournament(ctx, exec, t.ID)
		if err != nil {
			return fmt.Errorf("failed to list teams of tournament %d: %w", t.ID, err)
		}
		pool := teamIDs(brackets.FilterEligible(t, teams))
		s.shuffle(pool)

		plan, err := brackets.PlanStage(pool)
		if err != nil {
			return fmt.Errorf("tournament %d: %w", t.ID, mapPlanError(err))
		}

		if err := s.store.Tournaments.MarkStageGenerated(ctx, exec, t.ID, plan.Kind, now); err != nil {
			return mapRepositoryError(err)
		}

		result = &StageResult{TournamentID: t.ID, Kind: plan.Kind}
		switch plan.Kind {
		case models.StageKindGroups:
			err = s.persistGroups(ctx, exec, t.ID, plan.Groups, result)
		case models.StageKindPlayoff:
			err = s.persistLadder(ctx, exec, t.ID, plan.Ladder, result)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stage generated",
		slog.Int("tournament_id", tournamentID),
		slog.String("kind", string(result.Kind)),
		slog.Int("matches", len(result.Matches)))

	event := brackets.Event{Type: brackets.EventStageGenerated, TournamentID: tournamentID}
	if result.Round != nil {
		event.Round = result.Round.Number
	}
	dispatchEvents(s.logger, s.notifier, []brackets.Event{event})
	return result, nil
}

func (s *stageService) persistGroups(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, plans []brackets.GroupPlan, result *StageResult) error {
	for _, gp := range plans {
		group := &models.Group{TournamentID: tournamentID, Name: gp.Name, TeamIDs: gp.TeamIDs}
		if err := s.store.Groups.Create(ctx, exec, group); err != nil {
			return fmt.Errorf("failed to create %s: %w", gp.Name, mapRepositoryError(err))
		}

		matches := make([]*models.Match, 0, len(gp.Pairings))
		for i, pair := range gp.Pairings {
			matches = append(matches, &models.Match{
				TournamentID:    tournamentID,
				GroupID:         intPtr(group.ID),
				Stage:           models.StageGroup,
				BracketPosition: i,
				ContestantIDs:   pair,
			})
		}
		if err := s.store.Matches.CreateBatch(ctx, exec, matches); err != nil {
			return fmt.Errorf("failed to create matches of %s: %w", gp.Name, mapRepositoryError(err))
		}

		result.Groups = append(result.Groups, group)
		result.Matches = append(result.Matches, matches...)
	}
	return nil
}

func (s *stageService) persistLadder(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, plan *brackets.LadderPlan, result *StageResult) error {
	if err := s.store.Tournaments.SavePlayoffArray(ctx, exec, tournamentID, plan.PlayoffArray); err != nil {
		return mapRepositoryError(err)
	}
	if err := s.store.Tournaments.UpdateLadder(ctx, exec, tournamentID, []models.LadderRound{plan.Round}, false, nil); err != nil {
		return mapRepositoryError(err)
	}

	matches := pairingsToMatches(tournamentID, plan.Pairings)
	if err := s.store.Matches.CreateBatch(ctx, exec, matches); err != nil {
		return fmt.Errorf("failed to create round 1: %w", mapRepositoryError(err))
	}

	round := plan.Round
	result.PlayoffArray = plan.PlayoffArray
	result.Round = &round
	result.Matches = matches
	return nil
}

func pairingsToMatches(tournamentID int, pairings []brackets.Pairing) []*models.Match {
	matches := make([]*models.Match, 0, len(pairings))
	for _, p := range pairings {
		matches = append(matches, &models.Match{
			TournamentID:    tournamentID,
			Stage:           models.StagePlayoff,
			RoundNumber:     intPtr(p.Round),
			BracketPosition: p.BracketPosition,
			ContestantIDs:   p.ContestantIDs,
		})
	}
	return matches
}

func (s *stageService) GetStageStatus(ctx context.Context, tournamentID int) (StageStatus, error) {
	t, err := s.store.Tournaments.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return "", mapRepositoryError(err)
	}
	switch t.StageKind {
	case models.StageKindGroups:
		return StageGroups, nil
	case models.StageKindPlayoff:
		return StagePlayoff, nil
	}
	if brackets.RegistrationClosed(t, s.now()) {
		return StageRegistrationClosed, nil
	}
	return StageRegistrationOpen, nil
}

func (s *stageService) AdvanceLadder(ctx context.Context, tournamentID int) (*brackets.Advancement, error) {
	unlock := s.locks.Lock(tournamentKey(tournamentID))
	defer unlock()

	var adv *brackets.Advancement
	var events []brackets.Event
	err := retryOnConflict(ctx, s.logger, "advance_ladder", func() error {
		adv, events = nil, nil
		return s.store.Tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
			t, err := s.store.Tournaments.GetForUpdate(ctx, exec, tournamentID)
			if err != nil {
				return mapRepositoryError(err)
			}
			if t.StageKind != models.StageKindPlayoff || t.LadderComplete {
				return nil
			}
			round, ok := t.CurrentRound()
			if !ok {
				return nil
			}

			stage := models.StagePlayoff
			matches, err := s.store.Matches.ListByTournament(ctx, exec, t.ID, repositories.MatchFilter{Stage: &stage, Round: &round.Number})
			if err != nil {
				return fmt.Errorf("failed to list round %d of tournament %d: %w", round.Number, t.ID, err)
			}
			next, err := brackets.NextRound(round, matches)
			if err != nil {
				return fmt.Errorf("tournament %d round %d: %w", t.ID, round.Number, mapPlanError(err))
			}
			if next == nil {
				return nil
			}

			if next.ChampionID != nil {
				if err := s.store.Tournaments.UpdateLadder(ctx, exec, t.ID, t.LadderRounds, true, next.ChampionID); err != nil {
					return mapRepositoryError(err)
				}
				events = append(events, brackets.Event{
					Type:         brackets.EventChampionDecided,
					TournamentID: t.ID,
					Round:        round.Number,
					TeamID:       next.ChampionID,
				})
				adv = next
				return nil
			}

			created := pairingsToMatches(t.ID, next.Pairings)
			if err := s.store.Matches.CreateBatch(ctx, exec, created); err != nil {
				return fmt.Errorf("failed to create round %d: %w", next.Next.Number, mapRepositoryError(err))
			}
			rounds := append(append([]models.LadderRound{}, t.LadderRounds...), *next.Next)
			if err := s.store.Tournaments.UpdateLadder(ctx, exec, t.ID, rounds, false, nil); err != nil {
				return mapRepositoryError(err)
			}
			events = append(events, brackets.Event{
				Type:         brackets.EventRoundAdvanced,
				TournamentID: t.ID,
				Round:        next.Next.Number,
				TeamIDs:      next.Winners,
			})
			adv = next
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if adv != nil {
		attrs := []any{slog.Int("tournament_id", tournamentID), slog.Int("from_round", adv.FromRound)}
		if adv.ChampionID != nil {
			attrs = append(attrs, slog.Int("champion_team_id", *adv.ChampionID))
		}
		s.logger.Info("ladder advanced", attrs...)
	}
	dispatchEvents(s.logger, s.notifier, events)
	return adv, nil
}

func (s *stageService) CheckTeamEligibility(ctx context.Context, teamID int) (*EligibilityReport, error) {
	team, err := s.store.Teams.GetByID(ctx, nil, teamID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	t, err := s.store.Tournaments.GetByID(ctx, nil, team.TournamentID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	report := &EligibilityReport{
		TeamID:          team.ID,
		TournamentID:    t.ID,
		AcceptedMembers: team.AcceptedCount(),
		RequiredMembers: t.TeamSize,
		Eligible:        true,
	}
	if err := brackets.CheckTeamEligible(t, team); err != nil {
		if !errors.Is(err, brackets.ErrNotEligible) {
			return nil, err
		}
		report.Eligible = false
		report.Reason = err.Error()
	}
	return report, nil
}

func (s *stageService) GetGroupStandings(ctx context.Context, tournamentID int) ([]GroupTable, error) {
	if _, err := s.store.Tournaments.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapRepositoryError(err)
	}

	var groups []*models.Group
	var teams []*models.Team
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		groups, err = s.store.Groups.ListByTournament(gctx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = s.store.Teams.ListByTournament(gctx, nil, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load groups of tournament %d: %w", tournamentID, err)
	}

	return buildGroupTables(groups, teams), nil
}

func buildGroupTables(groups []*models.Group, teams []*models.Team) []GroupTable {
	byID := make(map[int]*models.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}

	tables := make([]GroupTable, 0, len(groups))
	for _, grp := range groups {
		standings := make([]models.GroupStanding, 0, len(grp.TeamIDs))
		for _, id := range grp.TeamIDs {
			team, ok := byID[id]
			if !ok {
				continue
			}
			standings = append(standings, models.GroupStanding{
				TeamID:     team.ID,
				TeamName:   team.Name,
				Wins:       team.Wins,
				Losses:     team.Losses,
				GroupScore: team.GroupScore,
			})
		}
		sort.SliceStable(standings, func(i, j int) bool {
			a, b := standings[i], standings[j]
			if a.GroupScore != b.GroupScore {
				return a.GroupScore > b.GroupScore
			}
			if da, db := a.Wins-a.Losses, b.Wins-b.Losses; da != db {
				return da > db
			}
			return a.TeamID < b.TeamID
		})
		for i := range standings {
			standings[i].Rank = i + 1
		}
		tables = append(tables, GroupTable{Group: grp, Standings: standings})
	}
	return tables
}

func (s *stageService) ListPlayoffMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	if _, err := s.store.Tournaments.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapRepositoryError(err)
	}
	stage := models.StagePlayoff
	matches, err := s.store.Matches.ListByTournament(ctx, nil, tournamentID, repositories.MatchFilter{Stage: &stage})
	if err != nil {
		return nil, fmt.Errorf("failed to list playoff of tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

func (s *stageService) ListSchedule(ctx context.Context, tournamentID int, teamID *int) ([]*models.Match, error) {
	if _, err := s.store.Tournaments.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapRepositoryError(err)
	}
	matches, err := s.store.Matches.ListByTournament(ctx, nil, tournamentID, repositories.MatchFilter{TeamID: teamID})
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule of tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

func (s *stageService) GetBracket(ctx context.Context, tournamentID int) (*BracketView, error) {
	view := &BracketView{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.store.Tournaments.GetByID(gctx, nil, tournamentID)
		if err != nil {
			return mapRepositoryError(err)
		}
		view.Tournament = t
		return nil
	})
	g.Go(func() error {
		tables, err := s.loadGroupTables(gctx, tournamentID)
		if err != nil {
			return err
		}
		view.Groups = tables
		return nil
	})
	g.Go(func() error {
		stage := models.StagePlayoff
		matches, err := s.store.Matches.ListByTournament(gctx, nil, tournamentID, repositories.MatchFilter{Stage: &stage})
		if err != nil {
			return fmt.Errorf("failed to list playoff: %w", err)
		}
		view.Playoff = matches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *stageService) loadGroupTables(ctx context.Context, tournamentID int) ([]GroupTable, error) {
	groups, err := s.store.Groups.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	if len(groups) == 0 {
		return []GroupTable{}, nil
	}
	teams, err := s.store.Teams.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return buildGroupTables(groups, teams), nil
}
