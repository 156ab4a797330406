// Package memstore is an in-process implementation of the entity stores,
// used by the test suites and by the api binary when store.driver=memory.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohae/deepcopy"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/store"
)

// DB holds every collection behind one lock. Records handed out are deep
// copies, so callers never alias stored state.
type DB struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    map[string]*models.User
	clients  map[string]*models.Client
	projects map[string]*models.Project
	tests    map[string]map[string]*models.Test
}

func New() *DB {
	return &DB{
		now:      func() time.Time { return time.Now().UTC() },
		users:    map[string]*models.User{},
		clients:  map[string]*models.Client{},
		projects: map[string]*models.Project{},
		tests:    map[string]map[string]*models.Test{},
	}
}

// SetClock replaces the time source used for timestamps.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

// Stores returns the store set backed by db.
func (db *DB) Stores() store.Stores {
	return store.Stores{
		Users:    &userStore{db},
		Clients:  &clientStore{db},
		Projects: &projectStore{db},
		Tests:    &testStore{db},
	}
}

func copyOf[T any](v *T) *T {
	return deepcopy.Copy(v).(*T)
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// newerFirst orders by createdAt descending, then id descending so that
// records created at the same instant keep a fixed order across pages.
func newerFirst(ta, tb time.Time, ida, idb string) bool {
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return ida > idb
}

// page sorts newest first and slices out the requested page.
func page[T any](items []*T, key func(*T) (time.Time, string), opts store.ListOptions) store.Page[T] {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		return newerFirst(ti, tj, idi, idj)
	})
	opts = opts.Normalize()
	total := len(items)
	start := min(opts.Skip(), total)
	end := min(start+opts.Limit, total)
	out := make([]T, 0, end-start)
	for _, it := range items[start:end] {
		out = append(out, *copyOf(it))
	}
	return store.NewPage(out, opts, total)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

type userStore struct{ db *DB }

func (s *userStore) Create(_ context.Context, u *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u.Email = store.NormalizeEmail(u.Email)
	for _, existing := range s.db.users {
		if existing.Email == u.Email {
			return apperr.Conflictf("email %s is already in use", u.Email)
		}
	}
	if u.ID == "" {
		u.ID = newID()
	} else if _, ok := s.db.users[u.ID]; ok {
		return apperr.Conflictf("user %s already exists", u.ID)
	}
	now := s.db.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.db.users[u.ID] = copyOf(u)
	return nil
}

func (s *userStore) Get(_ context.Context, id string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, apperr.NotFoundf("user not found")
	}
	return copyOf(u), nil
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	email = store.NormalizeEmail(email)
	for _, u := range s.db.users {
		if u.Email == email {
			return copyOf(u), nil
		}
	}
	return nil, apperr.NotFoundf("user not found")
}

func (s *userStore) Update(_ context.Context, id string, patch *models.UserPatch) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, apperr.NotFoundf("user not found")
	}
	if patch.Email != nil {
		email := store.NormalizeEmail(*patch.Email)
		patch.Email = &email
		for otherID, other := range s.db.users {
			if otherID != id && other.Email == email {
				return nil, apperr.Conflictf("email %s is already in use", email)
			}
		}
	}
	patch.Apply(u)
	u.UpdatedAt = s.db.now()
	return copyOf(u), nil
}

func (s *userStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[id]; !ok {
		return apperr.NotFoundf("user not found")
	}
	delete(s.db.users, id)
	return nil
}

func (s *userStore) List(_ context.Context, f store.UserFilter, opts store.ListOptions) (store.Page[models.User], error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var items []*models.User
	for _, u := range s.db.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.ClientID != "" && u.ClientID != f.ClientID {
			continue
		}
		if f.Search != "" && !containsFold(u.FullName, f.Search) && !containsFold(u.Email, f.Search) {
			continue
		}
		items = append(items, u)
	}
	return page(items, func(u *models.User) (time.Time, string) { return u.CreatedAt, u.ID }, opts), nil
}

type clientStore struct{ db *DB }

func (s *clientStore) emailTaken(email, exceptID string) bool {
	if email == "" {
		return false
	}
	for id, c := range s.db.clients {
		if id != exceptID && c.Email == email {
			return true
		}
	}
	return false
}

func (s *clientStore) Create(_ context.Context, c *models.Client) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c.Email = store.NormalizeEmail(c.Email)
	if s.emailTaken(c.Email, "") {
		return apperr.Conflictf("email %s is already in use", c.Email)
	}
	c.ID = newID()
	now := s.db.now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.db.clients[c.ID] = copyOf(c)
	return nil
}

func (s *clientStore) Get(_ context.Context, id string) (*models.Client, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	c, ok := s.db.clients[id]
	if !ok {
		return nil, apperr.NotFoundf("client not found")
	}
	return copyOf(c), nil
}

func (s *clientStore) Update(_ context.Context, id string, patch *models.ClientPatch) (*models.Client, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.clients[id]
	if !ok {
		return nil, apperr.NotFoundf("client not found")
	}
	if patch.Email != nil {
		email := store.NormalizeEmail(*patch.Email)
		patch.Email = &email
		if s.emailTaken(email, id) {
			return nil, apperr.Conflictf("email %s is already in use", email)
		}
	}
	patch.Apply(c)
	c.UpdatedAt = s.db.now()
	return copyOf(c), nil
}

func (s *clientStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.clients[id]; !ok {
		return apperr.NotFoundf("client not found")
	}
	delete(s.db.clients, id)
	return nil
}

func (s *clientStore) List(_ context.Context, f store.ClientFilter, opts store.ListOptions) (store.Page[models.Client], error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var items []*models.Client
	for _, c := range s.db.clients {
		if f.Search != "" && !containsFold(c.Name, f.Search) && !containsFold(c.Email, f.Search) {
			continue
		}
		items = append(items, c)
	}
	return page(items, func(c *models.Client) (time.Time, string) { return c.CreatedAt, c.ID }, opts), nil
}

func (s *clientStore) Count(_ context.Context) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return len(s.db.clients), nil
}

type projectStore struct{ db *DB }

func matchProject(p *models.Project, f store.ProjectFilter) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Priority != "" && p.Priority != f.Priority {
		return false
	}
	if f.ClientID != "" && !p.HasClient(f.ClientID) {
		return false
	}
	if f.MemberID != "" && !p.HasMember(f.MemberID) {
		return false
	}
	if f.ResponsibleID != "" && p.ResponsibleID != f.ResponsibleID {
		return false
	}
	if f.Search != "" && !containsFold(p.Name, f.Search) && !containsFold(p.Description, f.Search) {
		return false
	}
	return true
}

func (s *projectStore) Create(_ context.Context, p *models.Project) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p.ID = newID()
	now := s.db.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.db.projects[p.ID] = copyOf(p)
	return nil
}

func (s *projectStore) Get(_ context.Context, id string) (*models.Project, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	p, ok := s.db.projects[id]
	if !ok {
		return nil, apperr.NotFoundf("project not found")
	}
	return copyOf(p), nil
}

func (s *projectStore) Update(_ context.Context, id string, patch *models.ProjectPatch) (*models.Project, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.projects[id]
	if !ok {
		return nil, apperr.NotFoundf("project not found")
	}
	patch.Apply(p)
	p.UpdatedAt = s.db.now()
	return copyOf(p), nil
}

func (s *projectStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.projects[id]; !ok {
		return apperr.NotFoundf("project not found")
	}
	delete(s.db.projects, id)
	return nil
}

func (s *projectStore) List(_ context.Context, f store.ProjectFilter, opts store.ListOptions) (store.Page[models.Project], error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var items []*models.Project
	for _, p := range s.db.projects {
		if matchProject(p, f) {
			items = append(items, p)
		}
	}
	return page(items, func(p *models.Project) (time.Time, string) { return p.CreatedAt, p.ID }, opts), nil
}

func (s *projectStore) Count(_ context.Context, f store.ProjectFilter) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	n := 0
	for _, p := range s.db.projects {
		if matchProject(p, f) {
			n++
		}
	}
	return n, nil
}

func (s *projectStore) ReferencedClients(_ context.Context) ([]string, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var ids []string
	for _, p := range s.db.projects {
		ids = append(ids, p.Clients...)
	}
	return models.UniqueIDs(ids), nil
}

type testStore struct{ db *DB }

func (s *testStore) lookup(projectID, testID string) (*models.Test, error) {
	t, ok := s.db.tests[projectID][testID]
	if !ok {
		return nil, apperr.NotFoundf("test not found")
	}
	return t, nil
}

func (s *testStore) Create(_ context.Context, projectID string, t *models.Test) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t.ID = newID()
	t.ProjectID = projectID
	now := s.db.now()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Steps == nil {
		t.Steps = []models.Step{}
	}
	if t.Evidences == nil {
		t.Evidences = []models.Evidence{}
	}
	if s.db.tests[projectID] == nil {
		s.db.tests[projectID] = map[string]*models.Test{}
	}
	s.db.tests[projectID][t.ID] = copyOf(t)
	return nil
}

func (s *testStore) Get(_ context.Context, projectID, testID string) (*models.Test, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	t, err := s.lookup(projectID, testID)
	if err != nil {
		return nil, err
	}
	return copyOf(t), nil
}

func (s *testStore) Update(_ context.Context, projectID, testID string, patch *models.TestPatch) (*models.Test, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, err := s.lookup(projectID, testID)
	if err != nil {
		return nil, err
	}
	patch.Apply(t)
	t.UpdatedAt = s.db.now()
	return copyOf(t), nil
}

func (s *testStore) Delete(_ context.Context, projectID, testID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, err := s.lookup(projectID, testID); err != nil {
		return err
	}
	delete(s.db.tests[projectID], testID)
	return nil
}

func (s *testStore) List(_ context.Context, projectID string) ([]models.Test, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	items := make([]*models.Test, 0, len(s.db.tests[projectID]))
	for _, t := range s.db.tests[projectID] {
		items = append(items, t)
	}
	sort.Slice(items, func(i, j int) bool {
		return newerFirst(items[i].CreatedAt, items[j].CreatedAt, items[i].ID, items[j].ID)
	})
	out := make([]models.Test, 0, len(items))
	for _, t := range items {
		out = append(out, *copyOf(t))
	}
	return out, nil
}

func (s *testStore) Count(_ context.Context, projectID string) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return len(s.db.tests[projectID]), nil
}

func (s *testStore) AppendEvidence(_ context.Context, projectID, testID string, ev models.Evidence) (*models.Test, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, err := s.lookup(projectID, testID)
	if err != nil {
		return nil, err
	}
	t.Evidences = append(t.Evidences, ev)
	t.UpdatedAt = s.db.now()
	return copyOf(t), nil
}

func (s *testStore) RemoveEvidence(_ context.Context, projectID, testID, path string) (*models.Test, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, err := s.lookup(projectID, testID)
	if err != nil {
		return nil, err
	}
	kept := t.Evidences[:0]
	for _, ev := range t.Evidences {
		if ev.Path != path {
			kept = append(kept, ev)
		}
	}
	t.Evidences = kept
	t.UpdatedAt = s.db.now()
	return copyOf(t), nil
}
