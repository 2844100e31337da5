package repositories

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tournament-engine/models"
)

// memoryStore keeps everything in process memory. Transactions are serialized by
// txMu and roll back by restoring a snapshot taken when they begin, so row locks
// are implied for the duration of WithinTx. It backs STORAGE_DRIVER=memory and tests.
type memoryStore struct {
	txMu sync.Mutex

	mu          sync.RWMutex
	nextID      int
	tournaments map[int]*models.Tournament
	teams       map[int]*models.Team
	groups      map[int]*models.Group
	matches     map[int]*models.Match
	grouped     map[[2]int]bool // (tournament, team)
	now         func() time.Time
}

type memorySnapshot struct {
	nextID      int
	tournaments map[int]*models.Tournament
	teams       map[int]*models.Team
	groups      map[int]*models.Group
	matches     map[int]*models.Match
	grouped     map[[2]int]bool
}

func NewMemoryStore() *Store {
	s := &memoryStore{
		tournaments: make(map[int]*models.Tournament),
		teams:       make(map[int]*models.Team),
		groups:      make(map[int]*models.Group),
		matches:     make(map[int]*models.Match),
		grouped:     make(map[[2]int]bool),
		now:         time.Now,
	}
	return &Store{
		Tx:          s,
		Tournaments: memoryTournaments{s},
		Teams:       memoryTeams{s},
		Groups:      memoryGroups{s},
		Matches:     memoryMatches{s},
	}
}

func (s *memoryStore) WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(nil)
}

func (s *memoryStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) snapshot() memorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := memorySnapshot{
		nextID:      s.nextID,
		tournaments: make(map[int]*models.Tournament, len(s.tournaments)),
		teams:       make(map[int]*models.Team, len(s.teams)),
		groups:      make(map[int]*models.Group, len(s.groups)),
		matches:     make(map[int]*models.Match, len(s.matches)),
		grouped:     make(map[[2]int]bool, len(s.grouped)),
	}
	for id, t := range s.tournaments {
		snap.tournaments[id] = cloneTournament(t)
	}
	for id, t := range s.teams {
		snap.teams[id] = cloneTeam(t)
	}
	for id, g := range s.groups {
		snap.groups[id] = cloneGroup(g)
	}
	for id, m := range s.matches {
		c := m.Clone()
		snap.matches[id] = &c
	}
	for k, v := range s.grouped {
		snap.grouped[k] = v
	}
	return snap
}

func (s *memoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID = snap.nextID
	s.tournaments = snap.tournaments
	s.teams = snap.teams
	s.groups = snap.groups
	s.matches = snap.matches
	s.grouped = snap.grouped
}

func cloneTournament(t *models.Tournament) *models.Tournament {
	c := *t
	if t.PlayoffArray != nil {
		c.PlayoffArray = make([][]int, len(t.PlayoffArray))
		for i, pair := range t.PlayoffArray {
			c.PlayoffArray[i] = slices.Clone(pair)
		}
	}
	c.LadderRounds = slices.Clone(t.LadderRounds)
	if t.ChampionTeamID != nil {
		v := *t.ChampionTeamID
		c.ChampionTeamID = &v
	}
	return &c
}

func cloneTeam(t *models.Team) *models.Team {
	c := *t
	c.Members = slices.Clone(t.Members)
	return &c
}

func cloneGroup(g *models.Group) *models.Group {
	c := *g
	c.TeamIDs = slices.Clone(g.TeamIDs)
	return &c
}

type memoryTournaments struct{ s *memoryStore }

func (r memoryTournaments) Create(_ context.Context, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t.ID = r.s.id()
	t.CreatedAt = r.s.now()
	r.s.tournaments[t.ID] = cloneTournament(t)
	return nil
}

func (r memoryTournaments) GetByID(_ context.Context, _ SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return cloneTournament(t), nil
}

func (r memoryTournaments) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r memoryTournaments) ListDueForGeneration(_ context.Context, now time.Time) ([]*models.Tournament, error) {
	return r.list(func(t *models.Tournament) bool {
		return t.StageKind == models.StageKindNone && !t.RegistrationCloseDate.After(now)
	}), nil
}

func (r memoryTournaments) ListOpenLadders(_ context.Context) ([]*models.Tournament, error) {
	return r.list(func(t *models.Tournament) bool {
		return t.StageKind == models.StageKindPlayoff && !t.LadderComplete
	}), nil
}

func (r memoryTournaments) list(keep func(*models.Tournament) bool) []*models.Tournament {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Tournament, 0)
	for _, t := range r.s.tournaments {
		if keep(t) {
			out = append(out, cloneTournament(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memoryTournaments) MarkStageGenerated(_ context.Context, _ SQLExecutor, id int, kind models.StageKind, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tournaments[id]
	if !ok || t.StageKind != models.StageKindNone {
		return ErrStageAlreadySet
	}
	t.StageKind = kind
	t.StageGeneratedAt = &at
	return nil
}

func (r memoryTournaments) SavePlayoffArray(_ context.Context, _ SQLExecutor, id int, playoff [][]int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tournaments[id]
	if !ok || t.PlayoffArray != nil {
		return ErrPlayoffArrayAlreadySet
	}
	t.PlayoffArray = cloneTournament(&models.Tournament{PlayoffArray: playoff}).PlayoffArray
	return nil
}

func (r memoryTournaments) UpdateLadder(_ context.Context, _ SQLExecutor, id int, rounds []models.LadderRound, complete bool, championID *int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tournaments[id]
	if !ok {
		return ErrTournamentNotFound
	}
	t.LadderRounds = slices.Clone(rounds)
	t.LadderComplete = complete
	t.ChampionTeamID = nil
	if championID != nil {
		v := *championID
		t.ChampionTeamID = &v
	}
	return nil
}

type memoryTeams struct{ s *memoryStore }

func (r memoryTeams) Create(_ context.Context, _ SQLExecutor, team *models.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tournaments[team.TournamentID]; !ok {
		return ErrTeamInvalidTournament
	}
	for _, existing := range r.s.teams {
		if existing.TournamentID == team.TournamentID && existing.Name == team.Name {
			return ErrTeamNameConflict
		}
	}
	team.ID = r.s.id()
	team.CreatedAt = r.s.now()
	r.s.teams[team.ID] = cloneTeam(team)
	return nil
}

func (r memoryTeams) GetByID(_ context.Context, _ SQLExecutor, id int) (*models.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	return cloneTeam(t), nil
}

func (r memoryTeams) ListByTournament(_ context.Context, _ SQLExecutor, tournamentID int) ([]*models.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Team, 0)
	for _, t := range r.s.teams {
		if t.TournamentID == tournamentID {
			out = append(out, cloneTeam(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memoryTeams) ApplyScore(_ context.Context, _ SQLExecutor, winnerID, loserID, groupPoints int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	winner, ok := r.s.teams[winnerID]
	if !ok {
		return ErrTeamNotFound
	}
	loser, ok := r.s.teams[loserID]
	if !ok {
		return ErrTeamNotFound
	}
	winner.Wins++
	winner.GroupScore += groupPoints
	loser.Losses++
	return nil
}

type memoryGroups struct{ s *memoryStore }

func (r memoryGroups) Create(_ context.Context, _ SQLExecutor, g *models.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.groups {
		if existing.TournamentID == g.TournamentID && existing.Name == g.Name {
			return ErrGroupNameConflict
		}
	}
	for _, teamID := range g.TeamIDs {
		if r.s.grouped[[2]int{g.TournamentID, teamID}] {
			return ErrTeamAlreadyGrouped
		}
	}

	g.ID = r.s.id()
	g.CreatedAt = r.s.now()
	for _, teamID := range g.TeamIDs {
		r.s.grouped[[2]int{g.TournamentID, teamID}] = true
	}
	r.s.groups[g.ID] = cloneGroup(g)
	return nil
}

func (r memoryGroups) ListByTournament(_ context.Context, _ SQLExecutor, tournamentID int) ([]*models.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Group, 0)
	for _, g := range r.s.groups {
		if g.TournamentID == tournamentID {
			c := cloneGroup(g)
			sort.Ints(c.TeamIDs)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type memoryMatches struct{ s *memoryStore }

func (r memoryMatches) CreateBatch(_ context.Context, _ SQLExecutor, matches []*models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	type slot struct{ tournament, round, position int }
	taken := make(map[slot]bool)
	for _, m := range r.s.matches {
		if m.Stage == models.StagePlayoff && m.RoundNumber != nil {
			taken[slot{m.TournamentID, *m.RoundNumber, m.BracketPosition}] = true
		}
	}

	for _, m := range matches {
		if _, ok := r.s.teams[m.ContestantIDs[0]]; !ok {
			return ErrMatchTeamInvalid
		}
		if _, ok := r.s.teams[m.ContestantIDs[1]]; !ok {
			return ErrMatchTeamInvalid
		}
		if m.Stage == models.StagePlayoff && m.RoundNumber != nil {
			key := slot{m.TournamentID, *m.RoundNumber, m.BracketPosition}
			if taken[key] {
				return ErrMatchSlotTaken
			}
			taken[key] = true
		}

		now := r.s.now()
		m.ID = r.s.id()
		m.Version = 0
		m.CreatedAt = now
		m.UpdatedAt = now
		if m.ResultSubmitted == nil {
			m.ResultSubmitted = []int{}
		}
		c := m.Clone()
		r.s.matches[m.ID] = &c
	}
	return nil
}

func (r memoryMatches) GetByID(_ context.Context, _ SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	c := m.Clone()
	return &c, nil
}

func (r memoryMatches) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r memoryMatches) ListByTournament(_ context.Context, _ SQLExecutor, tournamentID int, filter MatchFilter) ([]*models.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if filter.Stage != nil && m.Stage != *filter.Stage {
			continue
		}
		if filter.Round != nil && (m.RoundNumber == nil || *m.RoundNumber != *filter.Round) {
			continue
		}
		if filter.GroupID != nil && (m.GroupID == nil || *m.GroupID != *filter.GroupID) {
			continue
		}
		if filter.TeamID != nil && !m.IsContestant(*filter.TeamID) {
			continue
		}
		c := m.Clone()
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := roundKey(a), roundKey(b); ra != rb {
			return ra < rb
		}
		if ga, gb := groupKey(a), groupKey(b); ga != gb {
			return ga < gb
		}
		if a.BracketPosition != b.BracketPosition {
			return a.BracketPosition < b.BracketPosition
		}
		return a.ID < b.ID
	})
	return out, nil
}

func roundKey(m *models.Match) int {
	if m.RoundNumber == nil {
		return 0
	}
	return *m.RoundNumber
}

func groupKey(m *models.Match) int {
	if m.GroupID == nil {
		return int(^uint(0) >> 1)
	}
	return *m.GroupID
}

func (r memoryMatches) UpdateResult(_ context.Context, _ SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.matches[m.ID]
	if !ok {
		return ErrMatchNotFound
	}
	if stored.Version != m.Version {
		return ErrMatchVersionConflict
	}

	stored.WinnerID = nil
	if m.WinnerID != nil {
		v := *m.WinnerID
		stored.WinnerID = &v
	}
	stored.IsFinal = m.IsFinal
	stored.IsContested = m.IsContested
	stored.ResultSubmitted = slices.Clone(m.ResultSubmitted)
	stored.Version++
	stored.UpdatedAt = r.s.now()

	m.Version = stored.Version
	m.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r memoryMatches) AppendEvidence(_ context.Context, _ SQLExecutor, matchID int, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.matches[matchID]
	if !ok {
		return ErrMatchNotFound
	}
	m.EvidenceKeys = append(m.EvidenceKeys, key)
	m.UpdatedAt = r.s.now()
	return nil
}
