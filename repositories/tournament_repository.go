package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrStageAlreadySet        = errors.New("tournament stage is already set")
	ErrPlayoffArrayAlreadySet = errors.New("tournament playoff array is already set")
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetForUpdate reads the tournament and locks its row until exec's transaction ends.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	ListDueForGeneration(ctx context.Context, now time.Time) ([]*models.Tournament, error)
	ListOpenLadders(ctx context.Context) ([]*models.Tournament, error)
	MarkStageGenerated(ctx context.Context, exec SQLExecutor, id int, kind models.StageKind, at time.Time) error
	SavePlayoffArray(ctx context.Context, exec SQLExecutor, id int, playoff [][]int) error
	UpdateLadder(ctx context.Context, exec SQLExecutor, id int, rounds []models.LadderRound, complete bool, championID *int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, team_size, registration_open_date, registration_close_date, registration_check_in_date,
	stage_kind, stage_generated_at, playoff_array, ladder_rounds, ladder_complete, champion_team_id, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTournament(row rowScanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	var playoffJSON, roundsJSON []byte
	err := row.Scan(
		&t.ID, &t.Name, &t.TeamSize, &t.RegistrationOpenDate, &t.RegistrationCloseDate, &t.RegistrationCheckInDate,
		&t.StageKind, &t.StageGeneratedAt, &playoffJSON, &roundsJSON, &t.LadderComplete, &t.ChampionTeamID, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(playoffJSON) > 0 {
		if err := json.Unmarshal(playoffJSON, &t.PlayoffArray); err != nil {
			return nil, fmt.Errorf("failed to decode playoff_array of tournament %d: %w", t.ID, err)
		}
	}
	if len(roundsJSON) > 0 {
		if err := json.Unmarshal(roundsJSON, &t.LadderRounds); err != nil {
			return nil, fmt.Errorf("failed to decode ladder_rounds of tournament %d: %w", t.ID, err)
		}
	}
	return t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	executor := r.getExecutor(nil)
	query := `
		INSERT INTO tournaments (
			name, team_size, registration_open_date, registration_close_date, registration_check_in_date
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		t.Name, t.TeamSize, t.RegistrationOpenDate, t.RegistrationCloseDate, t.RegistrationCheckInDate,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(ctx, exec, id, "")
}

func (r *postgresTournamentRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(ctx, exec, id, " FOR UPDATE")
}

func (r *postgresTournamentRepository) get(ctx context.Context, exec SQLExecutor, id int, suffix string) (*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1` + suffix

	t, err := scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) ListDueForGeneration(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + `
		FROM tournaments
		WHERE stage_kind = '' AND registration_close_date <= $1
		ORDER BY registration_close_date ASC, id ASC`
	return r.list(ctx, query, now)
}

func (r *postgresTournamentRepository) ListOpenLadders(ctx context.Context) ([]*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + `
		FROM tournaments
		WHERE stage_kind = $1 AND NOT ladder_complete
		ORDER BY id ASC`
	return r.list(ctx, query, models.StageKindPlayoff)
}

func (r *postgresTournamentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Tournament, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

// MarkStageGenerated records the stage kind. It succeeds only the first time.
func (r *postgresTournamentRepository) MarkStageGenerated(ctx context.Context, exec SQLExecutor, id int, kind models.StageKind, at time.Time) error {
	query := `UPDATE tournaments SET stage_kind = $1, stage_generated_at = $2 WHERE id = $3 AND stage_kind = ''`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, kind, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark stage of tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrStageAlreadySet)
}

func (r *postgresTournamentRepository) SavePlayoffArray(ctx context.Context, exec SQLExecutor, id int, playoff [][]int) error {
	payload, err := json.Marshal(playoff)
	if err != nil {
		return fmt.Errorf("failed to encode playoff array: %w", err)
	}
	query := `UPDATE tournaments SET playoff_array = $1 WHERE id = $2 AND playoff_array IS NULL`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, payload, id)
	if err != nil {
		return fmt.Errorf("failed to save playoff array of tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayoffArrayAlreadySet)
}

func (r *postgresTournamentRepository) UpdateLadder(ctx context.Context, exec SQLExecutor, id int, rounds []models.LadderRound, complete bool, championID *int) error {
	payload, err := json.Marshal(rounds)
	if err != nil {
		return fmt.Errorf("failed to encode ladder rounds: %w", err)
	}
	query := `UPDATE tournaments SET ladder_rounds = $1, ladder_complete = $2, champion_team_id = $3 WHERE id = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, payload, complete, championID, id)
	if err != nil {
		return fmt.Errorf("failed to update ladder of tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
