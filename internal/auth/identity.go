// Package auth turns bearer credentials into the Identity every request runs as.
package auth

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/utils"
)

// Identity is the verified caller.
type Identity struct {
	UID      string      `json:"uid"`
	Email    string      `json:"email,omitempty"`
	Role     models.Role `json:"role"`
	ClientID string      `json:"clientId,omitempty"`
	FullName string      `json:"fullName,omitempty"`
	IsAdmin  bool        `json:"isAdmin"`
}

// Profiles looks up the stored profile of a uid.
type Profiles interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// Resolver verifies tokens and enriches the claims from the user profile.
type Resolver struct {
	tokens   *utils.TokenManager
	profiles Profiles
	log      logrus.FieldLogger
}

func NewResolver(tokens *utils.TokenManager, profiles Profiles, log logrus.FieldLogger) *Resolver {
	return &Resolver{tokens: tokens, profiles: profiles, log: log}
}

// Resolve parses an Authorization header value. The profile, when present, is
// the source of truth for role and clientId.
func (r *Resolver) Resolve(ctx context.Context, header string) (*Identity, error) {
	token, ok := bearerToken(header)
	if !ok {
		return nil, apperr.Unauthenticatedf("access token not provided")
	}
	claims, err := r.tokens.Validate(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, err, "invalid or expired token")
	}

	id := &Identity{
		UID:      claims.UID,
		Email:    claims.Email,
		Role:     models.Role(strings.ToLower(strings.TrimSpace(claims.Role))),
		ClientID: claims.ClientID,
	}
	if id.Role == "" {
		id.Role = models.RoleCollaborator
	}

	if r.profiles != nil {
		profile, err := r.profiles.Get(ctx, id.UID)
		switch {
		case err == nil:
			if profile.Role != "" {
				id.Role = profile.Role
			}
			if profile.ClientID != "" {
				id.ClientID = profile.ClientID
			}
			if id.Email == "" {
				id.Email = profile.Email
			}
			id.FullName = profile.FullName
		case apperr.Is(err, apperr.NotFound):
		default:
			r.log.WithError(err).WithField("uid", id.UID).
				Warn("Event ID: AUTH-001, Description: profile lookup failed, using token claims")
		}
	}

	id.IsAdmin = id.Role == models.RoleAdmin
	return id, nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
