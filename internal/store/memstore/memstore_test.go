package memstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/store"
)

// tickingDB returns a DB whose clock advances one second per call.
func tickingDB() *DB {
	db := New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	db.SetClock(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	})
	return db
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := tickingDB().Stores()

	c := &models.Client{Name: "Acme", Email: " A@Acme.com ", IsActive: true}
	require.NoError(t, s.Clients.Create(ctx, c))
	require.NotEmpty(t, c.ID)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)

	got, err := s.Clients.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@acme.com", got.Email)
	assert.Equal(t, *c, *got)
}

func TestClientDuplicateEmailConflicts(t *testing.T) {
	ctx := context.Background()
	s := tickingDB().Stores()

	require.NoError(t, s.Clients.Create(ctx, &models.Client{Name: "A", Email: "a@acme.com"}))
	err := s.Clients.Create(ctx, &models.Client{Name: "B", Email: "A@acme.com"})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	// Empty emails never collide.
	require.NoError(t, s.Clients.Create(ctx, &models.Client{Name: "C"}))
	require.NoError(t, s.Clients.Create(ctx, &models.Client{Name: "D"}))
}

func TestUpdateMergesAndStamps(t *testing.T) {
	ctx := context.Background()
	s := tickingDB().Stores()

	c := &models.Client{Name: "Acme", Email: "a@acme.com", Phone: "555"}
	require.NoError(t, s.Clients.Create(ctx, c))

	name := "Acme Ltd"
	updated, err := s.Clients.Update(ctx, c.ID, &models.ClientPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", updated.Name)
	assert.Equal(t, "555", updated.Phone)
	assert.Equal(t, c.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(c.UpdatedAt))

	_, err = s.Clients.Update(ctx, "missing", &models.ClientPatch{Name: &name})
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := tickingDB().Stores()

	p := &models.Project{Name: "P", Clients: []string{"c1"}}
	require.NoError(t, s.Projects.Create(ctx, p))
	got, err := s.Projects.Get(ctx, p.ID)
	require.NoError(t, err)
	got.Clients[0] = "mutated"

	again, err := s.Projects.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, again.Clients)
}

func TestProjectListPaginationNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := tickingDB().Stores()

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Projects.Create(ctx, &models.Project{Name: fmt.Sprintf("p%d", i)}))
	}

	first, err := s.Projects.List(ctx, store.ProjectFilter{}, store.ListOptions{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, first.Total)
	assert.Equal(t, 3, first.Pages)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "p5", first.Items[0].Name)
	assert.Equal(t, "p4", first.Items[1].Name)

	last, err := s.Projects.List(ctx, store.ProjectFilter{}, store.ListOptions{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "p1", last.Items[0].Name)

	beyond, err := s.Projects.List(ctx, store.ProjectFilter{}, store.ListOptions{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.NotNil(t, beyond.Items)
}

func TestProjectPagesDisjointOnTiedTimestamps(t *testing.T) {
	ctx := context.Background()
	db := New()
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time { return fixed })
	s := db.Stores()

	for i := 1; i <= 6; i++ {
		require.NoError(t, s.Projects.Create(ctx, &models.Project{Name: fmt.Sprintf("p%d", i)}))
	}

	for round := 0; round < 3; round++ {
		seen := map[string]bool{}
		var prev string
		for pg := 1; pg <= 3; pg++ {
			got, err := s.Projects.List(ctx, store.ProjectFilter{}, store.ListOptions{Page: pg, Limit: 2})
			require.NoError(t, err)
			require.Len(t, got.Items, 2)
			for _, p := range got.Items {
				assert.False(t, seen[p.ID], "project %s returned twice", p.Name)
				seen[p.ID] = true
				if prev != "" {
					assert.Greater(t, prev, p.ID)
				}
				prev = p.ID
			}
		}
		assert.Len(t, seen, 6)
	}
}

func TestProjectFilterByClientAndSearch(t *testing.T) {
	ctx := context.Background()
	s := tickingDB().Stores()

	require.NoError(t, s.Projects.Create(ctx, &models.Project{Name: "Portal", Clients: []string{"c1"}}))
	require.NoError(t, s.Projects.Create(ctx, &models.Project{Name: "Mobile app", Description: "portal companion", Clients: []string{"c2"}}))

	byClient, err := s.Projects.List(ctx, store.ProjectFilter{ClientID: "c1"}, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, byClient.Items, 1)
	assert.Equal(t, "Portal", byClient.Items[0].Name)

	bySearch, err := s.Projects.List(ctx, store.ProjectFilter{Search: "PORTAL"}, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, bySearch.Items, 2)

	n, err := s.Projects.Count(ctx, store.ProjectFilter{ClientID: "c2"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	refs, err := s.Projects.ReferencedClients(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, refs)
}

func TestEvidenceAppendAndRemove(t *testing.T) {
	ctx := context.Background()
	s := tickingDB().Stores()

	tc := &models.Test{Title: "login works"}
	require.NoError(t, s.Tests.Create(ctx, "p1", tc))
	assert.Equal(t, "p1", tc.ProjectID)

	_, err := s.Tests.AppendEvidence(ctx, "p1", tc.ID, models.Evidence{Path: "a", URL: "u/a"})
	require.NoError(t, err)
	withTwo, err := s.Tests.AppendEvidence(ctx, "p1", tc.ID, models.Evidence{Path: "b", URL: "u/b"})
	require.NoError(t, err)
	require.Len(t, withTwo.Evidences, 2)

	after, err := s.Tests.RemoveEvidence(ctx, "p1", tc.ID, "a")
	require.NoError(t, err)
	require.Len(t, after.Evidences, 1)
	assert.Equal(t, "b", after.Evidences[0].Path)

	_, err = s.Tests.Get(ctx, "other-project", tc.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestUserEmailUniqueOnUpdate(t *testing.T) {
	ctx := context.Background()
	s := tickingDB().Stores()

	a := &models.User{Email: "a@x.io", Role: models.RoleAdmin}
	b := &models.User{Email: "b@x.io", Role: models.RoleCollaborator}
	require.NoError(t, s.Users.Create(ctx, a))
	require.NoError(t, s.Users.Create(ctx, b))

	taken := "A@X.io"
	_, err := s.Users.Update(ctx, b.ID, &models.UserPatch{Email: &taken})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	got, err := s.Users.GetByEmail(ctx, "B@x.io")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}
