// Package policy decides whether an identity may perform an action on a
// resource. It is pure: callers load the records and pass them in.
package policy

import (
	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/models"
)

type Action string

const (
	Read   Action = "read"
	List   Action = "list"
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"
)

// Resource is one of ClientResource, ProjectResource, TestResource or
// UserResource. Record fields are nil for List and Create.
type Resource interface {
	kind() string
}

type ClientResource struct {
	Record *models.Client
}

type ProjectResource struct {
	Record *models.Project
}

// TestResource is judged through the project that owns the test.
type TestResource struct {
	Project *models.Project
}

type UserResource struct {
	Record *models.User
}

func (ClientResource) kind() string  { return "client" }
func (ProjectResource) kind() string { return "project" }
func (TestResource) kind() string    { return "test" }
func (UserResource) kind() string    { return "user" }

// Allowed reports whether id may perform act on res.
func Allowed(id *auth.Identity, res Resource, act Action) bool {
	if id == nil || res == nil {
		return false
	}
	switch id.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCollaborator:
		return collaborator(id, res, act)
	case models.RoleClient:
		return client(id, res, act)
	default:
		return false
	}
}

// Check is Allowed as an error.
func Check(id *auth.Identity, res Resource, act Action) error {
	if Allowed(id, res, act) {
		return nil
	}
	if res == nil {
		return apperr.Forbiddenf("you do not have permission to %s", act)
	}
	return apperr.Forbiddenf("you do not have permission to %s this %s", act, res.kind())
}

func collaborator(id *auth.Identity, res Resource, act Action) bool {
	switch r := res.(type) {
	case ClientResource, TestResource:
		return true
	case ProjectResource:
		switch act {
		case Create, Read, List:
			return true
		case Update, Delete:
			return r.Record != nil && r.Record.HasMember(id.UID)
		}
	case UserResource:
		switch act {
		case Read, List:
			return true
		case Update:
			return isSelf(id, r.Record)
		}
	}
	return false
}

// client users edit their own profile only through the self-profile
// update, which does not consult the policy.
func client(id *auth.Identity, res Resource, act Action) bool {
	if u, ok := res.(UserResource); ok {
		return act == Read && isSelf(id, u.Record)
	}
	if id.ClientID == "" {
		return false
	}
	switch r := res.(type) {
	case ClientResource:
		switch act {
		case List:
			return true
		case Read:
			return r.Record != nil && r.Record.ID == id.ClientID
		}
	case ProjectResource:
		switch act {
		case List:
			return true
		case Read:
			return r.Record != nil && r.Record.HasClient(id.ClientID)
		}
	case TestResource:
		if act == Read || act == List {
			return r.Project != nil && r.Project.HasClient(id.ClientID)
		}
	}
	return false
}

func isSelf(id *auth.Identity, u *models.User) bool {
	return u != nil && u.ID == id.UID
}
