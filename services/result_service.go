package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/storage"
	"golang.org/x/sync/errgroup"
)

// LadderAdvancer is triggered after a playoff match becomes final.
type LadderAdvancer interface {
	AdvanceLadder(ctx context.Context, tournamentID int) (*brackets.Advancement, error)
}

type SubmitResultInput struct {
	MatchID int
	TeamID  int
	UserID  int
	Outcome brackets.Outcome
}

type SubmitResultOutput struct {
	Status   brackets.ResultStatus `json:"status"`
	Standing brackets.Standing     `json:"match_status"`
	WinnerID *int                  `json:"winner_id,omitempty"`
	Changed  bool                  `json:"changed"`
	Match    *models.Match         `json:"match"`
}

type MatchView struct {
	Match        *models.Match         `json:"match"`
	Status       brackets.ResultStatus `json:"status"`
	Standing     *brackets.Standing    `json:"match_status,omitempty"`
	EvidenceURLs []string              `json:"evidence_urls"`
}

type EvidenceInput struct {
	MatchID     int
	TeamID      int
	UserID      int
	ContentType string
	Body        io.Reader
}

type EvidenceOutput struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type ResultService interface {
	SubmitResult(ctx context.Context, in SubmitResultInput) (*SubmitResultOutput, error)
	// ResolveContested lets an admin settle a contested match.
	ResolveContested(ctx context.Context, matchID, winnerID int) (*SubmitResultOutput, error)
	GetMatch(ctx context.Context, matchID, userID int) (*MatchView, error)
	AttachEvidence(ctx context.Context, in EvidenceInput) (*EvidenceOutput, error)
}

type resultService struct {
	store    *repositories.Store
	advancer LadderAdvancer
	notifier Notifier
	uploader storage.FileUploader
	locks    *keyedMutex
	logger   *slog.Logger
}

// NewResultService builds the result service. uploader may be nil, which disables evidence upload.
func NewResultService(
	store *repositories.Store,
	advancer LadderAdvancer,
	notifier Notifier,
	uploader storage.FileUploader,
	locks *Locks,
	logger *slog.Logger,
) ResultService {
	return &resultService{
		store:    store,
		advancer: advancer,
		notifier: notifier,
		uploader: uploader,
		locks:    locks.keys,
		logger:   logger,
	}
}

func (s *resultService) SubmitResult(ctx context.Context, in SubmitResultInput) (*SubmitResultOutput, error) {
	unlock := s.locks.Lock(matchKey(in.MatchID))
	defer unlock()

	var tr *brackets.Transition
	err := retryOnConflict(ctx, s.logger, "submit_result", func() error {
		tr = nil
		return s.store.Tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
			m, err := s.store.Matches.GetForUpdate(ctx, exec, in.MatchID)
			if err != nil {
				return mapRepositoryError(err)
			}
			if err := s.authorizeTeam(ctx, exec, m, in.TeamID, in.UserID); err != nil {
				return err
			}

			tr, err = brackets.Resolve(*m, in.TeamID, in.Outcome)
			if err != nil {
				return err
			}
			return s.persistTransition(ctx, exec, tr)
		})
	})
	if err != nil {
		return nil, err
	}

	if tr.Changed {
		s.logger.Info("result submitted",
			slog.Int("match_id", in.MatchID),
			slog.Int("team_id", in.TeamID),
			slog.String("outcome", string(in.Outcome)),
			slog.String("status", string(tr.Status)))
	}
	s.afterCommit(ctx, tr)
	return toOutput(tr, in.TeamID), nil
}

func (s *resultService) ResolveContested(ctx context.Context, matchID, winnerID int) (*SubmitResultOutput, error) {
	unlock := s.locks.Lock(matchKey(matchID))
	defer unlock()

	var tr *brackets.Transition
	err := retryOnConflict(ctx, s.logger, "resolve_contested", func() error {
		tr = nil
		return s.store.Tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
			m, err := s.store.Matches.GetForUpdate(ctx, exec, matchID)
			if err != nil {
				return mapRepositoryError(err)
			}
			if !m.IsContested && !m.IsFinal {
				return fmt.Errorf("%w: match %d", ErrMatchNotContested, matchID)
			}

			tr, err = brackets.ResolveManually(*m, winnerID)
			if err != nil {
				return err
			}
			return s.persistTransition(ctx, exec, tr)
		})
	})
	if err != nil {
		return nil, err
	}

	if tr.ScoreCorrectionRequired {
		s.logger.Warn("final match re-resolved with a different winner, team scores need correction",
			slog.Int("match_id", matchID), slog.Int("winner_id", winnerID))
	}
	if tr.Changed {
		s.logger.Info("contested match resolved", slog.Int("match_id", matchID), slog.Int("winner_id", winnerID))
	}
	s.afterCommit(ctx, tr)
	return toOutput(tr, winnerID), nil
}

// persistTransition writes the new match state and, when the match just became
// final, the score delta. Both happen in exec's transaction.
func (s *resultService) persistTransition(ctx context.Context, exec repositories.SQLExecutor, tr *brackets.Transition) error {
	if !tr.Changed {
		return nil
	}
	if err := s.store.Matches.UpdateResult(ctx, exec, &tr.Match); err != nil {
		return mapRepositoryError(err)
	}
	if tr.Score != nil {
		if err := s.store.Teams.ApplyScore(ctx, exec, tr.Score.WinnerID, tr.Score.LoserID, tr.Score.GroupPoints); err != nil {
			return fmt.Errorf("failed to apply score of match %d: %w", tr.Score.MatchID, mapRepositoryError(err))
		}
	}
	return nil
}

// afterCommit publishes events and advances the ladder once a playoff match is decided.
// Advancement failures are logged; the scheduler sweep retries them.
func (s *resultService) afterCommit(ctx context.Context, tr *brackets.Transition) {
	dispatchEvents(s.logger, s.notifier, tr.Events)

	if tr.Score == nil || tr.Match.Stage != models.StagePlayoff || s.advancer == nil {
		return
	}
	if _, err := s.advancer.AdvanceLadder(ctx, tr.Match.TournamentID); err != nil {
		s.logger.Error("ladder advancement failed",
			slog.Int("tournament_id", tr.Match.TournamentID),
			slog.Int("match_id", tr.Match.ID),
			slog.Any("error", err))
	}
}

func toOutput(tr *brackets.Transition, teamID int) *SubmitResultOutput {
	m := tr.Match
	return &SubmitResultOutput{
		Status:   tr.Status,
		Standing: brackets.StandingOf(&m, teamID),
		WinnerID: m.WinnerID,
		Changed:  tr.Changed,
		Match:    &m,
	}
}

// authorizeTeam checks that userID plays for teamID and that the team belongs to
// the match's tournament.
func (s *resultService) authorizeTeam(ctx context.Context, exec repositories.SQLExecutor, m *models.Match, teamID, userID int) error {
	team, err := s.store.Teams.GetByID(ctx, exec, teamID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if !team.HasMember(userID) {
		return fmt.Errorf("%w: user %d is not a member of team %d", ErrForbiddenOperation, userID, teamID)
	}
	if team.TournamentID != m.TournamentID || !m.IsContestant(team.ID) {
		return fmt.Errorf("%w: team %d, match %d", brackets.ErrNotContestant, team.ID, m.ID)
	}
	return nil
}

func (s *resultService) GetMatch(ctx context.Context, matchID, userID int) (*MatchView, error) {
	m, err := s.store.Matches.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	view := &MatchView{Match: m, Status: brackets.StatusOf(m), EvidenceURLs: []string{}}
	if s.uploader != nil {
		for _, key := range m.EvidenceKeys {
			view.EvidenceURLs = append(view.EvidenceURLs, s.uploader.GetPublicURL(key))
		}
	}

	var teams [2]*models.Team
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range m.ContestantIDs {
		g.Go(func() error {
			team, err := s.store.Teams.GetByID(gctx, nil, id)
			if err != nil && !errors.Is(err, repositories.ErrTeamNotFound) {
				return err
			}
			teams[i] = team
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load contestants of match %d: %w", matchID, err)
	}

	for _, team := range teams {
		if team != nil && team.HasMember(userID) {
			standing := brackets.StandingOf(m, team.ID)
			view.Standing = &standing
			break
		}
	}
	return view, nil
}

func (s *resultService) AttachEvidence(ctx context.Context, in EvidenceInput) (*EvidenceOutput, error) {
	if s.uploader == nil {
		return nil, ErrEvidenceStorageDisabled
	}

	m, err := s.store.Matches.GetByID(ctx, nil, in.MatchID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if err := s.authorizeTeam(ctx, nil, m, in.TeamID, in.UserID); err != nil {
		return nil, err
	}

	key, err := storage.EvidenceKey(m.TournamentID, m.ID, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	uploaded, err := s.uploader.Upload(ctx, key, in.ContentType, in.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to upload evidence for match %d: %w", m.ID, err)
	}

	unlock := s.locks.Lock(matchKey(m.ID))
	defer unlock()
	if err := s.store.Matches.AppendEvidence(ctx, nil, m.ID, key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to remove orphaned evidence", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, mapRepositoryError(err)
	}

	s.logger.Info("evidence attached", slog.Int("match_id", m.ID), slog.Int("team_id", in.TeamID), slog.String("key", key))
	return &EvidenceOutput{Key: key, URL: uploaded.Location}, nil
}
