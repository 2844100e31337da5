package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrTeamNotFound          = errors.New("team not found")
	ErrTeamNameConflict      = errors.New("team name already used in this tournament")
	ErrTeamInvalidTournament = errors.New("invalid tournament reference")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Team, error)
	// ApplyScore adds one win to winnerID, one loss to loserID and groupPoints to
	// the winner's group score.
	ApplyScore(ctx context.Context, exec SQLExecutor, winnerID, loserID, groupPoints int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO teams (tournament_id, name, captain_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, team.TournamentID, team.Name, team.CaptainID).
		Scan(&team.ID, &team.CreatedAt)
	if err != nil {
		return r.handleTeamError(err)
	}

	for _, m := range team.Members {
		_, err = executor.ExecContext(ctx,
			`INSERT INTO team_members (team_id, user_id, status) VALUES ($1, $2, $3)`,
			team.ID, m.UserID, m.Status)
		if err != nil {
			return fmt.Errorf("failed to add member %d to team %d: %w", m.UserID, team.ID, err)
		}
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, name, captain_id, wins, losses, group_score, created_at
		FROM teams
		WHERE id = $1`

	team := &models.Team{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&team.ID, &team.TournamentID, &team.Name, &team.CaptainID,
		&team.Wins, &team.Losses, &team.GroupScore, &team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	if err := r.loadMembers(ctx, executor, []*models.Team{team}); err != nil {
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Team, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, name, captain_id, wins, losses, group_score, created_at
		FROM teams
		WHERE tournament_id = $1
		ORDER BY id ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team := &models.Team{}
		if scanErr := rows.Scan(
			&team.ID, &team.TournamentID, &team.Name, &team.CaptainID,
			&team.Wins, &team.Losses, &team.GroupScore, &team.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan team: %w", scanErr)
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadMembers(ctx, executor, teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) loadMembers(ctx context.Context, executor SQLExecutor, teams []*models.Team) error {
	if len(teams) == 0 {
		return nil
	}
	byID := make(map[int]*models.Team, len(teams))
	ids := make([]int, 0, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	rows, err := executor.QueryContext(ctx,
		`SELECT team_id, user_id, status FROM team_members WHERE team_id = ANY($1) ORDER BY team_id, user_id`,
		toInt64Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load team members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var teamID int
		var m models.TeamMember
		if err := rows.Scan(&teamID, &m.UserID, &m.Status); err != nil {
			return fmt.Errorf("failed to scan team member: %w", err)
		}
		if t, ok := byID[teamID]; ok {
			t.Members = append(t.Members, m)
		}
	}
	return rows.Err()
}

func (r *postgresTeamRepository) ApplyScore(ctx context.Context, exec SQLExecutor, winnerID, loserID, groupPoints int) error {
	executor := r.getExecutor(exec)

	result, err := executor.ExecContext(ctx,
		`UPDATE teams SET wins = wins + 1, group_score = group_score + $1 WHERE id = $2`,
		groupPoints, winnerID)
	if err != nil {
		return fmt.Errorf("failed to record win for team %d: %w", winnerID, err)
	}
	if err := checkAffectedRows(result, ErrTeamNotFound); err != nil {
		return err
	}

	result, err = executor.ExecContext(ctx, `UPDATE teams SET losses = losses + 1 WHERE id = $1`, loserID)
	if err != nil {
		return fmt.Errorf("failed to record loss for team %d: %w", loserID, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	if code, constraint, ok := pqErrorCode(err); ok {
		switch code {
		case pqUniqueViolation:
			if constraint == "teams_tournament_id_name_key" {
				return ErrTeamNameConflict
			}
		case pqForeignKeyViolation:
			return ErrTeamInvalidTournament
		}
	}
	return err
}
