package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/store"
)

func (f *fixture) user(t *testing.T, in NewUser) *models.User {
	t.Helper()
	u, err := f.svc.Users.Create(context.Background(), f.admin, in)
	require.NoError(t, err)
	return u
}

func TestCreateUserEnforcesClientLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.client(t, "Acme", "a@acme.com")

	_, err := f.svc.Users.Create(ctx, f.admin, NewUser{Email: "x@x.io", Role: models.RoleClient})
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = f.svc.Users.Create(ctx, f.admin, NewUser{Email: "x@x.io", Role: models.RoleCollaborator, ClientID: c.ID})
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = f.svc.Users.Create(ctx, f.admin, NewUser{Email: "x@x.io", Role: models.RoleClient, ClientID: "ghost"})
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = f.svc.Users.Create(ctx, f.admin, NewUser{Email: "x@x.io", Role: "owner"})
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	u, err := f.svc.Users.Create(ctx, f.admin, NewUser{Email: " X@X.io ", Role: models.RoleClient, ClientID: c.ID, Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "x@x.io", u.Email)
	assert.True(t, u.IsActive)
	assert.NotEmpty(t, u.PasswordHash)

	_, err = f.svc.Users.Create(ctx, f.admin, NewUser{Email: "x@x.io", Role: models.RoleAdmin})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	_, err = f.svc.Users.Create(ctx, f.collab, NewUser{Email: "y@x.io", Role: models.RoleAdmin})
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestUpdateUserRoleClearsClientID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.client(t, "Acme", "a@acme.com")
	u := f.user(t, NewUser{Email: "c@x.io", Role: models.RoleClient, ClientID: c.ID})

	role := models.RoleCollaborator
	updated, err := f.svc.Users.Update(ctx, f.admin, u.ID, &models.UserPatch{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCollaborator, updated.Role)
	assert.Empty(t, updated.ClientID)

	role = models.RoleClient
	_, err = f.svc.Users.Update(ctx, f.admin, u.ID, &models.UserPatch{Role: &role})
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))
}

func TestNonAdminCannotEscalate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, NewUser{Email: "me@x.io", Role: models.RoleCollaborator, FullName: "Me"})
	me := &auth.Identity{UID: u.ID, Role: models.RoleCollaborator}

	name := "New Name"
	updated, err := f.svc.Users.Update(ctx, me, u.ID, &models.UserPatch{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.FullName)

	role := models.RoleAdmin
	_, err = f.svc.Users.Update(ctx, me, u.ID, &models.UserPatch{Role: &role})
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	_, err = f.svc.Auth.SetClaims(ctx, me, u.ID, models.RoleAdmin, "")
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	updated, err = f.svc.Auth.SetClaims(ctx, f.admin, u.ID, models.RoleAdmin, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
}

func TestDeleteUserRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.user(t, NewUser{Email: "r@x.io", Role: models.RoleCollaborator})
	plain := f.user(t, NewUser{Email: "p@x.io", Role: models.RoleCollaborator})
	_, err := f.svc.Projects.Create(ctx, f.admin, &models.Project{Name: "P", ResponsibleID: resp.ID})
	require.NoError(t, err)

	err = f.svc.Users.Delete(ctx, f.admin, resp.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	self := &auth.Identity{UID: plain.ID, Role: models.RoleAdmin, IsAdmin: true}
	err = f.svc.Users.Delete(ctx, self, plain.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	err = f.svc.Users.Delete(ctx, f.collab, plain.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	require.NoError(t, f.svc.Users.Delete(ctx, f.admin, plain.ID))
}

func TestLoginAndPasswordChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, NewUser{Email: "l@x.io", Role: models.RoleCollaborator, Password: "first-pass"})

	_, err := f.svc.Auth.Login(ctx, "l@x.io", "wrong")
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
	_, err = f.svc.Auth.Login(ctx, "nobody@x.io", "first-pass")
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))

	sess, err := f.svc.Auth.Login(ctx, "L@x.io", "first-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	require.NotNil(t, sess.User.LastLoginAt)

	me := &auth.Identity{UID: u.ID, Role: models.RoleCollaborator}
	err = f.svc.Users.ChangePassword(ctx, me, u.ID, "bad", "second-pass")
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))
	err = f.svc.Users.ChangePassword(ctx, me, u.ID, "first-pass", "123")
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))
	require.NoError(t, f.svc.Users.ChangePassword(ctx, me, u.ID, "first-pass", "second-pass"))
	require.NoError(t, f.svc.Users.ChangePassword(ctx, f.admin, u.ID, "", "third-pass"))

	_, err = f.svc.Auth.Login(ctx, "l@x.io", "third-pass")
	require.NoError(t, err)

	inactive := false
	_, err = f.svc.Users.Update(ctx, f.admin, u.ID, &models.UserPatch{IsActive: &inactive})
	require.NoError(t, err)
	_, err = f.svc.Auth.Login(ctx, "l@x.io", "third-pass")
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestUpdateMePropagatesToClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.client(t, "Old Name", "c@x.io")
	u := f.user(t, NewUser{Email: "cu@x.io", Role: models.RoleClient, ClientID: c.ID})
	me := &auth.Identity{UID: u.ID, Role: models.RoleClient, ClientID: c.ID}

	name, addr := "New Name", "1 Main St"
	updated, err := f.svc.Users.UpdateMe(ctx, me, ProfileUpdate{FullName: &name, Address: &addr})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.FullName)

	client, err := f.svc.Clients.Get(ctx, me, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", client.Name)
	assert.Equal(t, "1 Main St", client.Address)

	_, err = f.svc.Users.UpdateMe(ctx, me, ProfileUpdate{})
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))
}

func TestListUsersByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, NewUser{Email: "a@x.io", Role: models.RoleAdmin})
	f.user(t, NewUser{Email: "b@x.io", Role: models.RoleCollaborator})
	f.user(t, NewUser{Email: "c@x.io", Role: models.RoleCollaborator})

	page, err := f.svc.Users.List(ctx, f.collab, store.UserFilter{Role: models.RoleCollaborator}, store.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	cli := &auth.Identity{UID: "cu", Role: models.RoleClient, ClientID: "c1"}
	_, err = f.svc.Users.List(ctx, cli, store.UserFilter{}, store.ListOptions{})
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}
