package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchSlotTaken       = errors.New("a match already occupies this bracket slot")
	ErrMatchVersionConflict = errors.New("match was modified concurrently")
	ErrMatchTeamInvalid     = errors.New("match team or tournament reference invalid")
)

// MatchFilter narrows ListByTournament. Nil fields are ignored.
type MatchFilter struct {
	Stage   *models.MatchStage
	Round   *int
	GroupID *int
	TeamID  *int
}

type MatchRepository interface {
	// CreateBatch inserts all matches. A playoff match whose (round, bracket position)
	// is already used fails with ErrMatchSlotTaken.
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetForUpdate reads the match and locks its row until exec's transaction ends.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter MatchFilter) ([]*models.Match, error)
	// UpdateResult stores the result fields if the row still has match.Version, then
	// bumps match.Version. A stale version fails with ErrMatchVersionConflict.
	UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error
	AppendEvidence(ctx context.Context, exec SQLExecutor, matchID int, key string) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, group_id, stage, round_number, bracket_position, team1_id, team2_id,
	winner_id, is_final, is_contested, result_submitted, evidence_keys, version, match_start,
	created_at, updated_at`

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	var submitted pq.Int64Array
	var evidence pq.StringArray
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.GroupID, &m.Stage, &m.RoundNumber, &m.BracketPosition,
		&m.ContestantIDs[0], &m.ContestantIDs[1],
		&m.WinnerID, &m.IsFinal, &m.IsContested, &submitted, &evidence, &m.Version, &m.MatchStart,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.ResultSubmitted = fromInt64Array(submitted)
	m.EvidenceKeys = []string(evidence)
	return m, nil
}

func (r *postgresMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches
			(tournament_id, group_id, stage, round_number, bracket_position, team1_id, team2_id, match_start)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, version, created_at, updated_at`

	for _, m := range matches {
		err := executor.QueryRowContext(ctx, query,
			m.TournamentID, m.GroupID, m.Stage, m.RoundNumber, m.BracketPosition,
			m.ContestantIDs[0], m.ContestantIDs[1], m.MatchStart,
		).Scan(&m.ID, &m.Version, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return r.handleMatchError(err)
		}
		if m.ResultSubmitted == nil {
			m.ResultSubmitted = []int{}
		}
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.get(ctx, exec, id, "")
}

func (r *postgresMatchRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.get(ctx, exec, id, " FOR UPDATE")
}

func (r *postgresMatchRepository) get(ctx context.Context, exec SQLExecutor, id int, suffix string) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1` + suffix

	m, err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter MatchFilter) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if filter.Stage != nil {
		queryBuilder.WriteString(" AND stage = $" + strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Stage)
		placeholderIndex++
	}
	if filter.Round != nil {
		queryBuilder.WriteString(" AND round_number = $" + strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Round)
		placeholderIndex++
	}
	if filter.GroupID != nil {
		queryBuilder.WriteString(" AND group_id = $" + strconv.Itoa(placeholderIndex))
		args = append(args, *filter.GroupID)
		placeholderIndex++
	}
	if filter.TeamID != nil {
		p := strconv.Itoa(placeholderIndex)
		queryBuilder.WriteString(" AND (team1_id = $" + p + " OR team2_id = $" + p + ")")
		args = append(args, *filter.TeamID)
	}

	queryBuilder.WriteString(" ORDER BY round_number ASC NULLS FIRST, group_id ASC NULLS LAST, bracket_position ASC, id ASC")

	rows, err := r.getExecutor(exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		UPDATE matches SET
			winner_id = $1,
			is_final = $2,
			is_contested = $3,
			result_submitted = $4,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $5 AND version = $6
		RETURNING version, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		m.WinnerID, m.IsFinal, m.IsContested, toInt64Array(m.ResultSubmitted), m.ID, m.Version,
	).Scan(&m.Version, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: match %d at version %d", ErrMatchVersionConflict, m.ID, m.Version)
		}
		return r.handleMatchError(err)
	}
	return nil
}

func (r *postgresMatchRepository) AppendEvidence(ctx context.Context, exec SQLExecutor, matchID int, key string) error {
	query := `UPDATE matches SET evidence_keys = array_append(evidence_keys, $1), updated_at = NOW() WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, key, matchID)
	if err != nil {
		return fmt.Errorf("failed to append evidence to match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if code, constraint, ok := pqErrorCode(err); ok {
		switch code {
		case pqUniqueViolation:
			if constraint == "matches_playoff_slot_key" {
				return ErrMatchSlotTaken
			}
		case pqForeignKeyViolation:
			return ErrMatchTeamInvalid
		}
	}
	return err
}
