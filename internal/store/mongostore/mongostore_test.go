package mongostore

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/store"
)

func TestSetDocKeepsOnlyPresentFields(t *testing.T) {
	name := "Acme"
	empty := ""
	set, err := setDoc(&models.ClientPatch{Name: &name, Notes: &empty})
	require.NoError(t, err)

	assert.Equal(t, "Acme", set["name"])
	// A present-but-empty value is still written; only nil fields are skipped.
	assert.Contains(t, set, "notes")
	assert.NotContains(t, set, "email")
	assert.NotContains(t, set, "isActive")
	assert.Contains(t, set, "updatedAt")
}

func TestSetDocArrays(t *testing.T) {
	clients := []string{"c1", "c2"}
	set, err := setDoc(&models.ProjectPatch{Clients: &clients})
	require.NoError(t, err)
	assert.Equal(t, bson.A{"c1", "c2"}, set["clients"])
	assert.NotContains(t, set, "members")
}

func TestNewestFirstBreaksTiesOnID(t *testing.T) {
	require.Len(t, newestFirst, 2)
	assert.Equal(t, bson.E{Key: "createdAt", Value: -1}, newestFirst[0])
	assert.Equal(t, bson.E{Key: "_id", Value: -1}, newestFirst[1])
}

func TestProjectFilter(t *testing.T) {
	f := projectFilter(store.ProjectFilter{ClientID: "c1", Status: models.ProjectPaused, Search: "a.b"})
	assert.Equal(t, "c1", f["clients"])
	assert.Equal(t, models.ProjectPaused, f["status"])

	or, ok := f["$or"].([]bson.M)
	require.True(t, ok)
	require.Len(t, or, 2)
	assert.Equal(t, primitive.Regex{Pattern: `a\.b`, Options: "i"}, or[0]["name"])
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "client"))
	assert.True(t, apperr.Is(translate(mongo.ErrNoDocuments, "client"), apperr.NotFound))

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.True(t, apperr.Is(translate(dup, "client"), apperr.Conflict))

	other := translate(errors.New("boom"), "client")
	assert.Equal(t, apperr.Internal, apperr.KindOf(other))
}
