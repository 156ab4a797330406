package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/policy"
	"github.com/harentsoaR/testmanager-api/internal/store"
	"github.com/harentsoaR/testmanager-api/internal/utils"
)

// NewUser is the input of UserService.Create. Password is optional; a user
// without one cannot log in until an admin sets it.
type NewUser struct {
	Email    string
	Password string
	FullName string
	Role     models.Role
	ClientID string
	IsActive *bool
	CpfCnpj  string
	Address  string
	Phone    string
}

// ProfileUpdate is what users may change on their own profile.
type ProfileUpdate struct {
	FullName *string
	CpfCnpj  *string
	Address  *string
	Phone    *string
}

func (p ProfileUpdate) patch() *models.UserPatch {
	return &models.UserPatch{FullName: p.FullName, CpfCnpj: p.CpfCnpj, Address: p.Address, Phone: p.Phone}
}

type UserService struct {
	stores store.Stores
	log    logrus.FieldLogger
}

func (s *UserService) Create(ctx context.Context, caller *auth.Identity, in NewUser) (*models.User, error) {
	if err := policy.Check(caller, policy.UserResource{}, policy.Create); err != nil {
		return nil, err
	}

	role, ok := models.ParseRole(string(in.Role))
	if !ok {
		return nil, apperr.InvalidArgumentf("invalid role %q", in.Role)
	}
	u := &models.User{
		Email:    store.NormalizeEmail(in.Email),
		FullName: strings.TrimSpace(in.FullName),
		Role:     role,
		ClientID: strings.TrimSpace(in.ClientID),
		IsActive: in.IsActive == nil || *in.IsActive,
		CpfCnpj:  in.CpfCnpj,
		Address:  in.Address,
		Phone:    in.Phone,
	}
	if u.Email == "" {
		return nil, apperr.InvalidArgumentf("email is required")
	}
	if err := s.checkClientLink(ctx, u.Role, u.ClientID); err != nil {
		return nil, err
	}
	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := s.stores.Users.Create(ctx, u); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.Conflictf("email is already in use")
		}
		return nil, err
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, caller *auth.Identity, id string) (*models.User, error) {
	u, err := s.stores.Users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.UserResource{Record: u}, policy.Read); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, caller *auth.Identity, f store.UserFilter, opts store.ListOptions) (store.Page[models.User], error) {
	if err := policy.Check(caller, policy.UserResource{}, policy.List); err != nil {
		return store.Page[models.User]{}, err
	}
	if f.Role != "" && !f.Role.Valid() {
		return store.Page[models.User]{}, apperr.InvalidArgumentf("invalid role %q", f.Role)
	}
	return s.stores.Users.List(ctx, f, opts)
}

// Update applies patch to user id. Only admins may change email, role,
// clientId or isActive.
func (s *UserService) Update(ctx context.Context, caller *auth.Identity, id string, patch *models.UserPatch) (*models.User, error) {
	target, err := s.stores.Users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.UserResource{Record: target}, policy.Update); err != nil {
		return nil, err
	}
	if patch == nil || patch.Empty() {
		return nil, apperr.InvalidArgumentf("no fields to update")
	}
	privileged := patch.Email != nil || patch.Role != nil || patch.ClientID != nil || patch.IsActive != nil
	if privileged && !caller.IsAdmin {
		return nil, apperr.Forbiddenf("only admins can change email, role, client or status")
	}

	if patch.Email != nil {
		email := store.NormalizeEmail(*patch.Email)
		if email == "" {
			return nil, apperr.InvalidArgumentf("email cannot be empty")
		}
		patch.Email = &email
	}
	if patch.Role != nil || patch.ClientID != nil {
		if err := s.normalizeClaims(ctx, target, patch); err != nil {
			return nil, err
		}
	}

	updated, err := s.stores.Users.Update(ctx, id, patch)
	if err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.Conflictf("email is already in use")
		}
		return nil, err
	}
	return updated, nil
}

// normalizeClaims keeps clientId set exactly when the role is client.
// Moving a user off the client role clears its clientId.
func (s *UserService) normalizeClaims(ctx context.Context, target *models.User, patch *models.UserPatch) error {
	role := target.Role
	if patch.Role != nil {
		r, ok := models.ParseRole(string(*patch.Role))
		if !ok {
			return apperr.InvalidArgumentf("invalid role %q", *patch.Role)
		}
		role = r
		patch.Role = &r
	}
	clientID := target.ClientID
	if patch.ClientID != nil {
		clientID = strings.TrimSpace(*patch.ClientID)
	} else if role != models.RoleClient && clientID != "" {
		clientID = ""
	}
	if err := s.checkClientLink(ctx, role, clientID); err != nil {
		return err
	}
	patch.ClientID = &clientID
	return nil
}

func (s *UserService) checkClientLink(ctx context.Context, role models.Role, clientID string) error {
	switch {
	case role == models.RoleClient && clientID == "":
		return apperr.Validation([]apperr.FieldError{{Field: "clientId", Message: "clientId is required for client users"}})
	case role != models.RoleClient && clientID != "":
		return apperr.Validation([]apperr.FieldError{{Field: "clientId", Message: "clientId is only allowed for client users", Value: clientID}})
	case clientID != "":
		if _, err := s.stores.Clients.Get(ctx, clientID); err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.InvalidArgumentf("client %s not found", clientID)
			}
			return err
		}
	}
	return nil
}

// Delete refuses to remove the caller or a project's responsible user.
func (s *UserService) Delete(ctx context.Context, caller *auth.Identity, id string) error {
	target, err := s.stores.Users.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Check(caller, policy.UserResource{Record: target}, policy.Delete); err != nil {
		return err
	}
	if target.ID == caller.UID {
		return apperr.Conflictf("you cannot delete your own account")
	}
	n, err := s.stores.Projects.Count(ctx, store.ProjectFilter{ResponsibleID: id})
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflictf("user is responsible for %d project(s)", n)
	}
	return s.stores.Users.Delete(ctx, id)
}

// ChangePassword lets users change their own password given the current
// one; admins may reset anyone's without it.
func (s *UserService) ChangePassword(ctx context.Context, caller *auth.Identity, id, current, next string) error {
	target, err := s.stores.Users.Get(ctx, id)
	if err != nil {
		return err
	}
	self := target.ID == caller.UID
	if !self && !caller.IsAdmin {
		return apperr.Forbiddenf("access denied")
	}
	if self && !caller.IsAdmin && !utils.CheckPasswordHash(current, target.PasswordHash) {
		return apperr.InvalidArgumentf("current password is incorrect")
	}
	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	_, err = s.stores.Users.Update(ctx, id, &models.UserPatch{PasswordHash: &hash})
	return err
}

func (s *UserService) Me(ctx context.Context, caller *auth.Identity) (*models.User, error) {
	return s.stores.Users.Get(ctx, caller.UID)
}

// UpdateMe updates the caller's profile. For client users the same fields
// are copied onto the linked client record.
func (s *UserService) UpdateMe(ctx context.Context, caller *auth.Identity, in ProfileUpdate) (*models.User, error) {
	patch := in.patch()
	if patch.Empty() {
		return nil, apperr.InvalidArgumentf("no fields to update")
	}
	updated, err := s.stores.Users.Update(ctx, caller.UID, patch)
	if err != nil {
		return nil, err
	}

	if updated.Role == models.RoleClient && updated.ClientID != "" {
		cp := &models.ClientPatch{Name: in.FullName, CpfCnpj: in.CpfCnpj, Address: in.Address, Phone: in.Phone}
		if !cp.Empty() {
			if _, err := s.stores.Clients.Update(ctx, updated.ClientID, cp); err != nil {
				s.log.WithError(err).WithField("clientId", updated.ClientID).
					Warn("Event ID: USER-001, Description: failed to propagate profile to client record")
			}
		}
	}
	return updated, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < utils.MinPasswordLength {
		return "", apperr.Validation([]apperr.FieldError{{
			Field:   "password",
			Message: "password must have at least 6 characters",
		}})
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return hash, nil
}
