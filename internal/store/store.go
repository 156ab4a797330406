// Package store declares the entity stores the services persist through.
//
// Every implementation stamps createdAt/updatedAt, generates ids on create,
// merges patches field by field on update and lists records newest first
// with offset pagination. Get, Update and Delete report a missing record as
// apperr.NotFound; unique-field violations surface as apperr.Conflict.
package store

import (
	"context"
	"strings"

	"github.com/harentsoaR/testmanager-api/internal/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListOptions selects one page of a listing. Page is 1-based.
type ListOptions struct {
	Page  int
	Limit int
}

// Normalize clamps the options to valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	return o
}

// Skip is the number of records before the page.
func (o ListOptions) Skip() int {
	o = o.Normalize()
	return (o.Page - 1) * o.Limit
}

// Page is one page of a listing plus the total count matching the filter.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPage assembles a page, computing the page count.
func NewPage[T any](items []T, opts ListOptions, total int) Page[T] {
	opts = opts.Normalize()
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = (total + opts.Limit - 1) / opts.Limit
	}
	return Page[T]{Items: items, Page: opts.Page, Limit: opts.Limit, Total: total, Pages: pages}
}

// UserFilter narrows a user listing. Search matches fullName or email.
type UserFilter struct {
	Search   string
	Role     models.Role
	ClientID string
}

type ClientFilter struct {
	Search string
}

// ProjectFilter narrows a project listing. ClientID and MemberID match
// membership in the respective sets; Search matches name or description.
type ProjectFilter struct {
	Search        string
	Status        models.ProjectStatus
	Priority      models.Priority
	ClientID      string
	MemberID      string
	ResponsibleID string
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, patch *models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f UserFilter, opts ListOptions) (Page[models.User], error)
}

type ClientStore interface {
	Create(ctx context.Context, c *models.Client) error
	Get(ctx context.Context, id string) (*models.Client, error)
	Update(ctx context.Context, id string, patch *models.ClientPatch) (*models.Client, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ClientFilter, opts ListOptions) (Page[models.Client], error)
	Count(ctx context.Context) (int, error)
}

type ProjectStore interface {
	Create(ctx context.Context, p *models.Project) error
	Get(ctx context.Context, id string) (*models.Project, error)
	Update(ctx context.Context, id string, patch *models.ProjectPatch) (*models.Project, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ProjectFilter, opts ListOptions) (Page[models.Project], error)
	Count(ctx context.Context, f ProjectFilter) (int, error)
	// ReferencedClients returns the distinct client ids referenced by any project.
	ReferencedClients(ctx context.Context) ([]string, error)
}

// TestStore keeps tests keyed by (projectID, testID).
type TestStore interface {
	Create(ctx context.Context, projectID string, t *models.Test) error
	Get(ctx context.Context, projectID, testID string) (*models.Test, error)
	Update(ctx context.Context, projectID, testID string, patch *models.TestPatch) (*models.Test, error)
	Delete(ctx context.Context, projectID, testID string) error
	List(ctx context.Context, projectID string) ([]models.Test, error)
	Count(ctx context.Context, projectID string) (int, error)
	AppendEvidence(ctx context.Context, projectID, testID string, ev models.Evidence) (*models.Test, error)
	RemoveEvidence(ctx context.Context, projectID, testID, path string) (*models.Test, error)
}

// Stores bundles one store per entity.
type Stores struct {
	Users    UserStore
	Clients  ClientStore
	Projects ProjectStore
	Tests    TestStore
}

// NormalizeEmail is the canonical form emails are stored and matched in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
