// Package memstore is an in-memory implementation of the repositories used by service
// tests. It enforces the same uniqueness rules as the PostgreSQL schema and rolls a
// transaction back when its function fails.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/pyramid-ladder/ladder"
	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

type state struct {
	seq               int
	categories        map[int]models.Category
	players           map[int]models.Player
	pyramids          map[int]models.Pyramid
	pyramidCategories map[int][]int
	teams             map[int]models.Team
	positions         map[int]models.Position
	matches           map[int]models.Match
	history           []models.PositionHistory
	notifications     map[int]models.Notification
}

func newState() state {
	return state{
		categories:        make(map[int]models.Category),
		players:           make(map[int]models.Player),
		pyramids:          make(map[int]models.Pyramid),
		pyramidCategories: make(map[int][]int),
		teams:             make(map[int]models.Team),
		positions:         make(map[int]models.Position),
		matches:           make(map[int]models.Match),
		notifications:     make(map[int]models.Notification),
	}
}

func (s state) clone() state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.players {
		c.players[k] = v
	}
	for k, v := range s.pyramids {
		c.pyramids[k] = v
	}
	for k, v := range s.pyramidCategories {
		c.pyramidCategories[k] = append([]int(nil), v...)
	}
	for k, v := range s.teams {
		c.teams[k] = v
	}
	for k, v := range s.positions {
		c.positions[k] = v
	}
	for k, v := range s.matches {
		c.matches[k] = v
	}
	c.history = append([]models.PositionHistory(nil), s.history...)
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	return c
}

// Store holds every table. The zero value is not usable; call New.
type Store struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	st       state
	failures map[string]error

	// Now stamps created_at and updated_at columns.
	Now func() time.Time
}

func New() *Store {
	return &Store{
		st:       newState(),
		failures: make(map[string]error),
		Now:      time.Now,
	}
}

// FailOn makes the next call of op (for example "positions.Exchange") return err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// fail must be called with s.mu held.
func (s *Store) fail(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

func (s *Store) nextID() int {
	s.st.seq++
	return s.st.seq
}

// WithinTx serializes transactions and restores the previous state when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repositories.SQLExecutor) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	return fn(nil)
}

func (s *Store) restore(snapshot state) {
	s.mu.Lock()
	s.st = snapshot
	s.mu.Unlock()
}

// AddCategory, AddPlayer and AddTeam seed fixtures and return the new id.
func (s *Store) AddCategory(name string, level int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID()
	s.st.categories[id] = models.Category{ID: id, Name: name, Level: level}
	return id
}

func (s *Store) AddPlayer(p models.Player) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	if p.Role == "" {
		p.Role = models.RolePlayer
	}
	p.CreatedAt = s.Now()
	s.st.players[p.ID] = p
	return p.ID
}

func (s *Store) AddTeam(categoryID int, player1ID, player2ID *int) int {
	team := &models.Team{CategoryID: categoryID, Player1ID: player1ID, Player2ID: player2ID}
	if err := (teamRepo{s}).Create(context.Background(), nil, team); err != nil {
		panic(fmt.Sprintf("memstore: seed team: %v", err))
	}
	return team.ID
}

// CheckGrid returns an error when two positions share a slot or a team shares two
// slots within one pyramid.
func (s *Store) CheckGrid() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkGrid()
}

func (s *Store) checkGrid() error {
	type slotKey struct {
		pyramidID int
		slot      models.Slot
	}
	type teamKey struct{ pyramidID, teamID int }
	slots := make(map[slotKey]int)
	teams := make(map[teamKey]int)
	for id, p := range s.st.positions {
		if other, ok := slots[slotKey{p.PyramidID, p.Slot()}]; ok {
			return fmt.Errorf("positions %d and %d share slot %v: %w", id, other, p.Slot(), repositories.ErrSlotOccupied)
		}
		slots[slotKey{p.PyramidID, p.Slot()}] = id
		if other, ok := teams[teamKey{p.PyramidID, p.TeamID}]; ok {
			return fmt.Errorf("positions %d and %d hold team %d: %w", id, other, p.TeamID, repositories.ErrTeamAlreadyPositioned)
		}
		teams[teamKey{p.PyramidID, p.TeamID}] = id
	}
	return nil
}

// Transactor and the repository accessors expose the store through the interfaces
// the services depend on.
func (s *Store) Transactor() repositories.Transactor { return s }
func (s *Store) Pyramids() repositories.PyramidRepository { return pyramidRepo{s} }
func (s *Store) Positions() repositories.PositionRepository { return positionRepo{s} }
func (s *Store) Teams() repositories.TeamRepository { return teamRepo{s} }
func (s *Store) Matches() repositories.MatchRepository { return matchRepo{s} }
func (s *Store) History() repositories.HistoryRepository { return historyRepo{s} }
func (s *Store) Notifications() repositories.NotificationRepository { return notificationRepo{s} }

func sortPositions(positions []*models.Position) {
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Row != positions[j].Row {
			return positions[i].Row < positions[j].Row
		}
		return positions[i].Col < positions[j].Col
	})
}

// hydrateTeam must be called with s.mu held.
func (s *Store) hydrateTeam(t models.Team) *models.Team {
	if t.Player1ID != nil {
		if p, ok := s.st.players[*t.Player1ID]; ok {
			t.Player1 = &p
		}
	}
	if t.Player2ID != nil {
		if p, ok := s.st.players[*t.Player2ID]; ok {
			t.Player2 = &p
		}
	}
	if c, ok := s.st.categories[t.CategoryID]; ok {
		t.Category = &c
	}
	t.DisplayName = ladder.DisplayName(t.Player1, t.Player2)
	return &t
}
