package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/store/memstore"
	"github.com/harentsoaR/testmanager-api/internal/utils"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	utils.PasswordCost = bcrypt.MinCost
	a := &app{}
	a.use(memstore.New().Stores(), utils.NewTokenManager("cli-secret", time.Hour))
	return a
}

func run(t *testing.T, a *app, args ...string) map[string]interface{} {
	t.Helper()
	var out bytes.Buffer
	cmd := newCommand(a)
	cmd.Writer = &out
	require.NoError(t, cmd.Run(context.Background(), append([]string{"tmctl"}, args...)))
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	return doc
}

func TestSeedAndList(t *testing.T) {
	a := newTestApp(t)

	client := run(t, a, "create-client", "--name", "Acme", "--email", "ops@acme.io")
	clientID, _ := client["id"].(string)
	require.NotEmpty(t, clientID)

	user := run(t, a, "create-user", "--email", "Carla@Acme.io", "--password", "secret1", "--name", "Carla", "--role", "client", "--client-id", clientID)
	assert.Equal(t, "carla@acme.io", user["email"])
	assert.Equal(t, clientID, user["clientId"])

	project := run(t, a, "create-project", "--name", "Portal", "--client", clientID)
	projectID, _ := project["id"].(string)
	require.NotEmpty(t, projectID)

	tc := run(t, a, "create-test", "--project", projectID, "--title", "Login", "--step", "open login => form shows")
	steps, ok := tc["steps"].([]interface{})
	require.True(t, ok)
	require.Len(t, steps, 1)
	assert.Equal(t, "form shows", steps[0].(map[string]interface{})["expectedResult"])

	page := run(t, a, "list", "projects")
	items, ok := page["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, page["total"])
}

func TestTokenAndClaims(t *testing.T) {
	a := newTestApp(t)
	user := run(t, a, "create-user", "--email", "dev@example.com", "--name", "Dev")
	uid := user["id"].(string)
	assert.Equal(t, string(models.RoleCollaborator), user["role"])

	updated := run(t, a, "set-claims", "--uid", uid, "--role", "admin")
	assert.Equal(t, "admin", updated["role"])

	tok := run(t, a, "token", "--email", "dev@example.com")
	raw, _ := tok["token"].(string)
	claims, err := a.tokens.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, uid, claims.UID)
	assert.Equal(t, "admin", claims.Role)
}

func TestListRejectsUnknownKind(t *testing.T) {
	a := newTestApp(t)
	cmd := newCommand(a)
	cmd.Writer = &bytes.Buffer{}
	err := cmd.Run(context.Background(), []string{"tmctl", "list", "widgets"})
	assert.Error(t, err)
}

func TestParseStep(t *testing.T) {
	assert.Equal(t, models.Step{Description: "click", ExpectedResult: "opens"}, parseStep("click => opens"))
	assert.Equal(t, models.Step{Description: "just do it"}, parseStep(" just do it "))
}

func TestRoleFlagsFollowKnownRoles(t *testing.T) {
	assert.Equal(t, "admin, collaborator or client", roleNames())

	a := newTestApp(t)
	cmd := newCommand(a)
	cmd.Writer = &bytes.Buffer{}
	err := cmd.Run(context.Background(), []string{"tmctl", "create-user", "--email", "x@example.com", "--name", "X", "--role", "root"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), roleNames())
}
