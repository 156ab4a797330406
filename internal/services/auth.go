package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/utils"
)

// Session is the result of a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type AuthService struct {
	users  *UserService
	tokens *utils.TokenManager
	log    logrus.FieldLogger
	now    func() time.Time
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.stores.Users.GetByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.Unauthenticatedf("invalid credentials")
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, u.PasswordHash) {
		return nil, apperr.Unauthenticatedf("invalid credentials")
	}
	if !u.IsActive {
		return nil, apperr.Forbiddenf("account is disabled")
	}

	sess, err := s.Issue(u)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if updated, err := s.users.stores.Users.Update(ctx, u.ID, &models.UserPatch{LastLoginAt: &now}); err != nil {
		s.log.WithError(err).WithField("uid", u.ID).
			Warn("Event ID: AUTH-002, Description: failed to record last login")
	} else {
		sess.User = updated
	}
	s.log.WithField("uid", u.ID).Info("Event ID: AUTH-003, Description: user logged in")
	return sess, nil
}

// Issue mints a token carrying the user's current claims.
func (s *AuthService) Issue(u *models.User) (*Session, error) {
	token, expires, err := s.tokens.Generate(u.ID, u.Email, string(u.Role), u.ClientID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: u}, nil
}

// Me returns the caller's identity and, when one exists, its profile.
func (s *AuthService) Me(ctx context.Context, caller *auth.Identity) (*auth.Identity, *models.User, error) {
	u, err := s.users.Me(ctx, caller)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return caller, nil, nil
		}
		return nil, nil, err
	}
	return caller, u, nil
}

func (s *AuthService) CreateUser(ctx context.Context, caller *auth.Identity, in NewUser) (*models.User, error) {
	u, err := s.users.Create(ctx, caller, in)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"uid": u.ID, "role": u.Role, "by": caller.UID}).
		Info("Event ID: AUTH-004, Description: user created")
	return u, nil
}

// SetClaims changes the role and client link of a user. Tokens issued
// earlier keep their old claims, but the profile overrides them on every
// request.
func (s *AuthService) SetClaims(ctx context.Context, caller *auth.Identity, uid string, role models.Role, clientID string) (*models.User, error) {
	if !caller.IsAdmin {
		return nil, apperr.Forbiddenf("only admins can set claims")
	}
	return s.users.Update(ctx, caller, uid, &models.UserPatch{Role: &role, ClientID: &clientID})
}
