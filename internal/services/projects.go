package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/policy"
	"github.com/harentsoaR/testmanager-api/internal/store"
)

type ProjectService struct {
	stores store.Stores
	log    logrus.FieldLogger
}

// Create stores a new project. A collaborator creating a project is added
// to its members so it can keep editing it.
func (s *ProjectService) Create(ctx context.Context, caller *auth.Identity, p *models.Project) (*models.ProjectDetails, error) {
	if err := policy.Check(caller, policy.ProjectResource{}, policy.Create); err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, apperr.Validation([]apperr.FieldError{{Field: "name", Message: "name is required"}})
	}
	if p.Status == "" {
		p.Status = models.ProjectPlanning
	}
	if p.Priority == "" {
		p.Priority = models.PriorityMedium
	}
	if err := checkEnums(&p.Status, &p.Priority); err != nil {
		return nil, err
	}
	p.Clients = models.UniqueIDs(p.Clients)
	p.Members = models.UniqueIDs(p.Members)
	if caller.Role == models.RoleCollaborator && !p.HasMember(caller.UID) {
		p.Members = append(p.Members, caller.UID)
	}
	if err := s.checkReferences(ctx, p.Clients, p.ResponsibleID); err != nil {
		return nil, err
	}
	p.CreatedBy = caller.UID
	p.UpdatedBy = caller.UID

	if err := s.stores.Projects.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.enrich(ctx, p), nil
}

func (s *ProjectService) load(ctx context.Context, caller *auth.Identity, id string, act policy.Action) (*models.Project, error) {
	p, err := s.stores.Projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.ProjectResource{Record: p}, act); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, caller *auth.Identity, id string) (*models.ProjectDetails, error) {
	p, err := s.load(ctx, caller, id, policy.Read)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, p), nil
}

// scope narrows f to what the caller may see. It reports false when the
// caller can see nothing at all.
func scope(caller *auth.Identity, f store.ProjectFilter) (store.ProjectFilter, bool) {
	if caller.Role != models.RoleClient {
		return f, true
	}
	if caller.ClientID == "" || (f.ClientID != "" && f.ClientID != caller.ClientID) {
		return f, false
	}
	f.ClientID = caller.ClientID
	return f, true
}

// List returns projects matching f. Client users are limited to projects
// linked to their client.
func (s *ProjectService) List(ctx context.Context, caller *auth.Identity, f store.ProjectFilter, opts store.ListOptions) (store.Page[models.Project], error) {
	if caller.Role == models.RoleClient && caller.ClientID == "" {
		return store.NewPage[models.Project](nil, opts, 0), nil
	}
	if err := policy.Check(caller, policy.ProjectResource{}, policy.List); err != nil {
		return store.Page[models.Project]{}, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return store.Page[models.Project]{}, apperr.InvalidArgumentf("invalid status %q", f.Status)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return store.Page[models.Project]{}, apperr.InvalidArgumentf("invalid priority %q", f.Priority)
	}
	f, ok := scope(caller, f)
	if !ok {
		return store.NewPage[models.Project](nil, opts, 0), nil
	}
	return s.stores.Projects.List(ctx, f, opts)
}

func (s *ProjectService) Update(ctx context.Context, caller *auth.Identity, id string, patch *models.ProjectPatch) (*models.ProjectDetails, error) {
	if _, err := s.load(ctx, caller, id, policy.Update); err != nil {
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
	if err := checkEnums(patch.Status, patch.Priority); err != nil {
		return nil, err
	}
	var clients []string
	if patch.Clients != nil {
		clients = models.UniqueIDs(*patch.Clients)
		patch.Clients = &clients
	}
	if patch.Members != nil {
		patch.Members = ptr(models.UniqueIDs(*patch.Members))
	}
	responsible := ""
	if patch.ResponsibleID != nil {
		responsible = *patch.ResponsibleID
	}
	if err := s.checkReferences(ctx, clients, responsible); err != nil {
		return nil, err
	}
	patch.UpdatedBy = &caller.UID

	updated, err := s.stores.Projects.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, updated), nil
}

// Delete refuses while the project still has tests.
func (s *ProjectService) Delete(ctx context.Context, caller *auth.Identity, id string) error {
	if _, err := s.load(ctx, caller, id, policy.Delete); err != nil {
		return err
	}
	n, err := s.stores.Tests.Count(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflictf("project has %d test(s); delete them first", n)
	}
	return s.stores.Projects.Delete(ctx, id)
}

// Stats counts the projects visible to the caller by status and priority.
func (s *ProjectService) Stats(ctx context.Context, caller *auth.Identity) (*models.ProjectStats, error) {
	stats := &models.ProjectStats{
		ByStatus:   make(map[models.ProjectStatus]int),
		ByPriority: make(map[models.Priority]int),
	}
	if caller.Role == models.RoleClient && caller.ClientID == "" {
		return stats, nil
	}
	if err := policy.Check(caller, policy.ProjectResource{}, policy.List); err != nil {
		return nil, err
	}
	base, _ := scope(caller, store.ProjectFilter{})

	total, err := s.stores.Projects.Count(ctx, base)
	if err != nil {
		return nil, err
	}
	stats.Total = total
	for _, st := range models.ProjectStatuses {
		f := base
		f.Status = st
		n, err := s.stores.Projects.Count(ctx, f)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			stats.ByStatus[st] = n
		}
		switch st {
		case models.ProjectPlanning, models.ProjectInProgress:
			stats.Active += n
		case models.ProjectCompleted:
			stats.Completed += n
		}
	}
	for _, pr := range models.Priorities {
		f := base
		f.Priority = pr
		n, err := s.stores.Projects.Count(ctx, f)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			stats.ByPriority[pr] = n
		}
	}
	return stats, nil
}

func checkEnums(status *models.ProjectStatus, priority *models.Priority) error {
	var fields []apperr.FieldError
	if status != nil && !status.Valid() {
		fields = append(fields, apperr.FieldError{Field: "status", Message: "invalid status", Value: *status})
	}
	if priority != nil && !priority.Valid() {
		fields = append(fields, apperr.FieldError{Field: "priority", Message: "invalid priority", Value: *priority})
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

// checkReferences verifies that every client and the responsible user exist.
// The check is not atomic with the following write.
func (s *ProjectService) checkReferences(ctx context.Context, clients []string, responsibleID string) error {
	for _, id := range clients {
		if _, err := s.stores.Clients.Get(ctx, id); err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.InvalidArgumentf("client %s not found", id)
			}
			return err
		}
	}
	if responsibleID != "" {
		if _, err := s.stores.Users.Get(ctx, responsibleID); err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.InvalidArgumentf("responsible user %s not found", responsibleID)
			}
			return err
		}
	}
	return nil
}

// enrich attaches the responsible user and client summaries. Missing
// references are skipped; lookup failures are logged.
func (s *ProjectService) enrich(ctx context.Context, p *models.Project) *models.ProjectDetails {
	d := &models.ProjectDetails{Project: p, ClientsData: []models.ClientSummary{}}
	if p.ResponsibleID != "" {
		u, err := s.stores.Users.Get(ctx, p.ResponsibleID)
		switch {
		case err == nil:
			d.Responsible = &models.UserSummary{ID: u.ID, FullName: u.FullName, Email: u.Email, Role: u.Role}
		case !apperr.Is(err, apperr.NotFound):
			s.log.WithError(err).WithField("projectId", p.ID).Warn("Event ID: PROJECT-001, Description: failed to load responsible user")
		}
	}
	for _, id := range p.Clients {
		c, err := s.stores.Clients.Get(ctx, id)
		switch {
		case err == nil:
			d.ClientsData = append(d.ClientsData, c.Summary())
		case !apperr.Is(err, apperr.NotFound):
			s.log.WithError(err).WithField("projectId", p.ID).Warn("Event ID: PROJECT-002, Description: failed to load client summary")
		}
	}
	return d
}
