package services

import (
	"context"
	"strings"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/policy"
	"github.com/harentsoaR/testmanager-api/internal/store"
)

type ClientService struct {
	stores store.Stores
}

func (s *ClientService) Create(ctx context.Context, caller *auth.Identity, c *models.Client) (*models.Client, error) {
	if err := policy.Check(caller, policy.ClientResource{}, policy.Create); err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, apperr.Validation([]apperr.FieldError{{Field: "name", Message: "name is required"}})
	}
	c.Email = store.NormalizeEmail(c.Email)
	if err := s.stores.Clients.Create(ctx, c); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.Conflictf("a client with email %s already exists", c.Email)
		}
		return nil, err
	}
	return c, nil
}

func (s *ClientService) Get(ctx context.Context, caller *auth.Identity, id string) (*models.Client, error) {
	c, err := s.stores.Clients.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.ClientResource{Record: c}, policy.Read); err != nil {
		return nil, err
	}
	return c, nil
}

// List pages through clients. Client users only ever see their own record.
func (s *ClientService) List(ctx context.Context, caller *auth.Identity, f store.ClientFilter, opts store.ListOptions) (store.Page[models.Client], error) {
	if err := policy.Check(caller, policy.ClientResource{}, policy.List); err != nil {
		return store.Page[models.Client]{}, err
	}
	if caller.Role == models.RoleClient {
		var items []models.Client
		c, err := s.stores.Clients.Get(ctx, caller.ClientID)
		switch {
		case err == nil:
			items = append(items, *c)
		case !apperr.Is(err, apperr.NotFound):
			return store.Page[models.Client]{}, err
		}
		return store.NewPage(items, opts, len(items)), nil
	}
	return s.stores.Clients.List(ctx, f, opts)
}

func (s *ClientService) Update(ctx context.Context, caller *auth.Identity, id string, patch *models.ClientPatch) (*models.Client, error) {
	current, err := s.stores.Clients.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.ClientResource{Record: current}, policy.Update); err != nil {
		return nil, err
	}
	if patch == nil || patch.Empty() {
		return nil, apperr.InvalidArgumentf("no fields to update")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation([]apperr.FieldError{{Field: "name", Message: "name cannot be empty"}})
		}
		patch.Name = &name
	}
	if patch.Email != nil {
		patch.Email = ptr(store.NormalizeEmail(*patch.Email))
	}
	updated, err := s.stores.Clients.Update(ctx, id, patch)
	if err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.Conflictf("email is already used by another client")
		}
		return nil, err
	}
	return updated, nil
}

// Delete refuses while any project still references the client.
func (s *ClientService) Delete(ctx context.Context, caller *auth.Identity, id string) error {
	current, err := s.stores.Clients.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Check(caller, policy.ClientResource{Record: current}, policy.Delete); err != nil {
		return err
	}
	n, err := s.stores.Projects.Count(ctx, store.ProjectFilter{ClientID: id})
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflictf("client is linked to %d project(s)", n)
	}
	return s.stores.Clients.Delete(ctx, id)
}

// Stats counts clients; a client is active when at least one project
// references it.
func (s *ClientService) Stats(ctx context.Context, caller *auth.Identity) (*models.ClientStats, error) {
	if err := policy.Check(caller, policy.ClientResource{}, policy.List); err != nil {
		return nil, err
	}
	if caller.Role == models.RoleClient {
		return nil, apperr.Forbiddenf("you do not have permission to view client statistics")
	}
	total, err := s.stores.Clients.Count(ctx)
	if err != nil {
		return nil, err
	}
	refs, err := s.stores.Projects.ReferencedClients(ctx)
	if err != nil {
		return nil, err
	}
	active := min(len(refs), total)
	return &models.ClientStats{Total: total, Active: active, Inactive: total - active}, nil
}
