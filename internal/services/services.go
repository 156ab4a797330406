// Package services holds the business rules of the API: access checks,
// referential rules and the evidence lifecycle. Handlers and the admin CLI
// both go through it.
package services

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harentsoaR/testmanager-api/internal/blob"
	"github.com/harentsoaR/testmanager-api/internal/store"
	"github.com/harentsoaR/testmanager-api/internal/utils"
)

type Deps struct {
	Stores store.Stores
	Blobs  blob.Store
	Tokens *utils.TokenManager
	Log    logrus.FieldLogger
	// PublicBaseURL prefixes evidence download links, e.g. "/api".
	PublicBaseURL string
	Now           func() time.Time
}

type Services struct {
	Users    *UserService
	Auth     *AuthService
	Clients  *ClientService
	Projects *ProjectService
	Tests    *TestService
}

func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	users := &UserService{stores: d.Stores, log: d.Log}
	return &Services{
		Users:    users,
		Auth:     &AuthService{users: users, tokens: d.Tokens, log: d.Log, now: d.Now},
		Clients:  &ClientService{stores: d.Stores},
		Projects: &ProjectService{stores: d.Stores, log: d.Log},
		Tests: &TestService{
			stores:  d.Stores,
			blobs:   d.Blobs,
			log:     d.Log,
			now:     d.Now,
			baseURL: d.PublicBaseURL,
		},
	}
}

func ptr[T any](v T) *T { return &v }
