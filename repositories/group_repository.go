package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/lib/pq"
)

var (
	ErrTeamAlreadyGrouped = errors.New("team already belongs to a group of this tournament")
	ErrGroupNameConflict  = errors.New("group name already used in this tournament")
)

type GroupRepository interface {
	// Create inserts the group and its memberships.
	Create(ctx context.Context, exec SQLExecutor, group *models.Group) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Group, error)
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGroupRepository) Create(ctx context.Context, exec SQLExecutor, g *models.Group) error {
	executor := r.getExecutor(exec)

	err := executor.QueryRowContext(ctx,
		`INSERT INTO tournament_groups (tournament_id, name) VALUES ($1, $2) RETURNING id, created_at`,
		g.TournamentID, g.Name,
	).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return r.handleGroupError(err)
	}

	for _, teamID := range g.TeamIDs {
		_, err = executor.ExecContext(ctx,
			`INSERT INTO group_teams (group_id, tournament_id, team_id) VALUES ($1, $2, $3)`,
			g.ID, g.TournamentID, teamID)
		if err != nil {
			return r.handleGroupError(err)
		}
	}
	return nil
}

func (r *postgresGroupRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Group, error) {
	query := `
		SELECT g.id, g.tournament_id, g.name, g.created_at,
		       COALESCE(array_agg(gt.team_id ORDER BY gt.team_id) FILTER (WHERE gt.team_id IS NOT NULL), '{}')
		FROM tournament_groups g
		LEFT JOIN group_teams gt ON gt.group_id = g.id
		WHERE g.tournament_id = $1
		GROUP BY g.id
		ORDER BY g.name ASC, g.id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	groups := make([]*models.Group, 0)
	for rows.Next() {
		g := &models.Group{}
		var teamIDs pq.Int64Array
		if scanErr := rows.Scan(&g.ID, &g.TournamentID, &g.Name, &g.CreatedAt, &teamIDs); scanErr != nil {
			return nil, fmt.Errorf("failed to scan group: %w", scanErr)
		}
		g.TeamIDs = fromInt64Array(teamIDs)
		groups = append(groups, g)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *postgresGroupRepository) handleGroupError(err error) error {
	if code, constraint, ok := pqErrorCode(err); ok && code == pqUniqueViolation {
		switch constraint {
		case "group_teams_tournament_id_team_id_key":
			return ErrTeamAlreadyGrouped
		case "tournament_groups_tournament_id_name_key":
			return ErrGroupNameConflict
		}
	}
	return err
}
