package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pivote/backend/internal/ledger"
	"github.com/pivote/backend/internal/models"
	"github.com/pivote/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// memStore is an in-memory repository.Store. Each With* call holds one mutex
// for its whole duration and applies a changeset all or nothing, the way the
// SQL stores do.
// ---------------------------------------------------------------------------

type memStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]models.User
	projects    map[uuid.UUID]*models.Project
	hidden      map[models.HiddenKey]bool
	entries     []models.LedgerEntry
	withdrawals map[uuid.UUID]models.Withdrawal
	settled     []uuid.UUID

	// failWrites, when set, is returned in place of applying the next changeset.
	failWrites error
}

var _ repository.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[uuid.UUID]models.User),
		projects:    make(map[uuid.UUID]*models.Project),
		hidden:      make(map[models.HiddenKey]bool),
		withdrawals: make(map[uuid.UUID]models.Withdrawal),
	}
}

func (m *memStore) addUser(name string, total int64) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := models.User{ID: uuid.New(), Username: name, TotalPoints: total}
	m.users[u.ID] = u
	return u
}

func (m *memStore) user(id uuid.UUID) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

// hide marks a project hidden without going through the service, for rows
// written before creators were limited to settled projects.
func (m *memStore) hide(userID, projectID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hidden[models.HiddenKey{UserID: userID, ProjectID: projectID}] = true
}

func (m *memStore) totalPoints() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		n += u.TotalPoints
	}
	return n
}

func (m *memStore) entriesFor(userID uuid.UUID) []models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (m *memStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	return &u, nil
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return fmt.Errorf("%w: username", repository.ErrConflict)
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) GetProject(_ context.Context, id uuid.UUID) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, repository.ErrNotFound)
	}
	return m.view(p), nil
}

// view copies p and derives HiddenByCreator the way the SQL stores do.
func (m *memStore) view(p *models.Project) *models.Project {
	cp := p.Clone()
	cp.HiddenByCreator = m.hidden[models.HiddenKey{UserID: p.CreatorID, ProjectID: p.ID}]
	return cp
}

func (m *memStore) ListProjects(_ context.Context, viewer uuid.UUID) ([]*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*models.Project
	for _, p := range m.projects {
		if !m.hidden[models.HiddenKey{UserID: viewer, ProjectID: p.ID}] {
			list = append(list, m.view(p))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (m *memStore) History(_ context.Context, userID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LedgerEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].UserID == userID {
			out = append(out, m.entries[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ProjectEntries(_ context.Context, projectID uuid.UUID) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range m.entries {
		if e.ProjectID != nil && *e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) ListWithdrawals(_ context.Context, status string) ([]models.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Withdrawal
	for _, w := range m.withdrawals {
		if w.Status == status {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) lockUsers(ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	users := make(map[uuid.UUID]models.User)
	for _, id := range ids {
		u, ok := m.users[id]
		if !ok {
			return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
		}
		users[id] = u
	}
	return users, nil
}

func (m *memStore) WithUsers(_ context.Context, ids []uuid.UUID, fn repository.MutateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	users, err := m.lockUsers(ids)
	if err != nil {
		return err
	}
	return m.run(&repository.Snapshot{Users: users, Hidden: map[uuid.UUID]bool{}}, fn)
}

func (m *memStore) WithProject(_ context.Context, projectID uuid.UUID, extra []uuid.UUID, fn repository.MutateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return fmt.Errorf("project %s: %w", projectID, repository.ErrNotFound)
	}
	users, err := m.lockUsers(append(p.Participants(), extra...))
	if err != nil {
		return err
	}
	hidden := make(map[uuid.UUID]bool)
	for id := range users {
		if m.hidden[models.HiddenKey{UserID: id, ProjectID: projectID}] {
			hidden[id] = true
		}
	}
	return m.run(&repository.Snapshot{Project: p.Clone(), Users: users, Hidden: hidden}, fn)
}

func (m *memStore) WithWithdrawal(_ context.Context, id uuid.UUID, fn repository.MutateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.withdrawals[id]
	if !ok {
		return fmt.Errorf("withdrawal %s: %w", id, repository.ErrNotFound)
	}
	users, err := m.lockUsers([]uuid.UUID{w.UserID})
	if err != nil {
		return err
	}
	return m.run(&repository.Snapshot{Users: users, Hidden: map[uuid.UUID]bool{}, Withdrawal: &w}, fn)
}

func (m *memStore) run(snap *repository.Snapshot, fn repository.MutateFunc) error {
	cs, err := fn(snap)
	if err != nil || cs == nil {
		return err
	}
	if err := m.failWrites; err != nil {
		m.failWrites = nil
		return err
	}
	if u := cs.NewUser; u != nil {
		for _, existing := range m.users {
			if existing.Username == u.Username {
				return fmt.Errorf("insert user: %w: username", repository.ErrConflict)
			}
		}
	}
	// Same rule as the users table CHECK constraint.
	for _, u := range cs.Users {
		if u.FrozenPoints < 0 || u.FrozenPoints > u.TotalPoints {
			return fmt.Errorf("%w: users_points_check", ledger.ErrInvariant)
		}
	}
	if cs.NewUser != nil {
		m.users[cs.NewUser.ID] = *cs.NewUser
	}
	if cs.NewProject != nil {
		m.projects[cs.NewProject.ID] = cs.NewProject.Clone()
	}
	if cs.Project != nil {
		// Like UPDATE projects: vote rows are only added through NewVotes.
		p := cs.Project.Clone()
		p.VoteDetails = m.projects[p.ID].VoteDetails
		m.projects[p.ID] = p
	}
	for _, v := range cs.NewVotes {
		p := m.projects[v.ProjectID]
		p.VoteDetails = append(p.VoteDetails, v)
	}
	for _, u := range cs.Users {
		m.users[u.ID] = u
	}
	if cs.NewWithdrawal != nil {
		m.withdrawals[cs.NewWithdrawal.ID] = *cs.NewWithdrawal
	}
	if cs.Withdrawal != nil {
		m.withdrawals[cs.Withdrawal.ID] = *cs.Withdrawal
	}
	m.entries = append(m.entries, cs.Entries...)
	for _, k := range cs.Hide {
		m.hidden[k] = true
	}
	if cs.Settled && cs.Project != nil {
		m.settled = append(m.settled, cs.Project.ID)
	}
	return nil
}
