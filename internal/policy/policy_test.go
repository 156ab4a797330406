package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/models"
)

var (
	admin  = &auth.Identity{UID: "a1", Role: models.RoleAdmin, IsAdmin: true}
	collab = &auth.Identity{UID: "u1", Role: models.RoleCollaborator}
	cli    = &auth.Identity{UID: "u2", Role: models.RoleClient, ClientID: "c1"}
	orphan = &auth.Identity{UID: "u3", Role: models.RoleClient}
	weird  = &auth.Identity{UID: "u4", Role: models.Role("auditor")}

	ownProject   = &models.Project{ID: "p1", Clients: []string{"c1"}, Members: []string{"u1"}}
	otherProject = &models.Project{ID: "p2", Clients: []string{"c2"}}
	allActions   = []Action{Read, List, Create, Update, Delete}
)

func TestAdminMayDoAnything(t *testing.T) {
	for _, act := range allActions {
		assert.True(t, Allowed(admin, ProjectResource{Record: otherProject}, act))
		assert.True(t, Allowed(admin, UserResource{Record: &models.User{ID: "x"}}, act))
	}
}

func TestCollaboratorProjectMembership(t *testing.T) {
	assert.True(t, Allowed(collab, ProjectResource{}, Create))
	assert.True(t, Allowed(collab, ProjectResource{Record: otherProject}, Read))
	assert.True(t, Allowed(collab, ProjectResource{Record: ownProject}, Update))
	assert.True(t, Allowed(collab, ProjectResource{Record: ownProject}, Delete))
	assert.False(t, Allowed(collab, ProjectResource{Record: otherProject}, Update))
	assert.False(t, Allowed(collab, ProjectResource{Record: otherProject}, Delete))

	err := Check(collab, ProjectResource{Record: otherProject}, Update)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestCollaboratorClientsTestsUsers(t *testing.T) {
	for _, act := range allActions {
		assert.True(t, Allowed(collab, ClientResource{}, act))
		assert.True(t, Allowed(collab, TestResource{Project: otherProject}, act))
	}
	assert.True(t, Allowed(collab, UserResource{}, List))
	assert.True(t, Allowed(collab, UserResource{Record: &models.User{ID: "zz"}}, Read))
	assert.True(t, Allowed(collab, UserResource{Record: &models.User{ID: "u1"}}, Update))
	assert.False(t, Allowed(collab, UserResource{Record: &models.User{ID: "zz"}}, Update))
	assert.False(t, Allowed(collab, UserResource{}, Create))
	assert.False(t, Allowed(collab, UserResource{Record: &models.User{ID: "zz"}}, Delete))
}

func TestClientIsReadOnlyAndScoped(t *testing.T) {
	assert.True(t, Allowed(cli, ClientResource{Record: &models.Client{ID: "c1"}}, Read))
	assert.False(t, Allowed(cli, ClientResource{Record: &models.Client{ID: "c2"}}, Read))
	assert.True(t, Allowed(cli, ProjectResource{Record: ownProject}, Read))
	assert.False(t, Allowed(cli, ProjectResource{Record: otherProject}, Read))
	assert.True(t, Allowed(cli, TestResource{Project: ownProject}, List))
	assert.False(t, Allowed(cli, TestResource{Project: otherProject}, Read))
	assert.True(t, Allowed(cli, UserResource{Record: &models.User{ID: "u2"}}, Read))
	assert.False(t, Allowed(cli, UserResource{}, List))
	assert.False(t, Allowed(cli, UserResource{Record: &models.User{ID: "u2"}}, Update))

	for _, act := range []Action{Create, Update, Delete} {
		assert.False(t, Allowed(cli, ClientResource{Record: &models.Client{ID: "c1"}}, act))
		assert.False(t, Allowed(cli, ProjectResource{Record: ownProject}, act))
		assert.False(t, Allowed(cli, TestResource{Project: ownProject}, act))
	}
}

func TestClientWithoutClientIDSeesNothing(t *testing.T) {
	for _, act := range allActions {
		assert.False(t, Allowed(orphan, ProjectResource{Record: ownProject}, act))
		assert.False(t, Allowed(orphan, ClientResource{}, act))
	}
}

func TestUnknownRoleIsForbidden(t *testing.T) {
	for _, act := range allActions {
		assert.False(t, Allowed(weird, ClientResource{}, act))
		err := Check(weird, TestResource{Project: ownProject}, act)
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	}
	assert.False(t, Allowed(nil, ClientResource{}, Read))
}
