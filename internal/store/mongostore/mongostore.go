// Package mongostore implements the entity stores on MongoDB.
//
// Documents are keyed by the hex form of a generated ObjectID. Tests live in
// their own collection and carry the owning projectId; every test query is
// scoped by it.
package mongostore

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/store"
)

const (
	usersCollection    = "users"
	clientsCollection  = "clients"
	projectsCollection = "projects"
	testsCollection    = "tests"
)

// newestFirst breaks createdAt ties on _id so offset pages never overlap.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// Stores returns the store set backed by db.
func Stores(db *mongo.Database) store.Stores {
	return store.Stores{
		Users:    &userStore{col: db.Collection(usersCollection)},
		Clients:  &clientStore{col: db.Collection(clientsCollection)},
		Projects: &projectStore{col: db.Collection(projectsCollection)},
		Tests:    &testStore{col: db.Collection(testsCollection)},
	}
}

// EnsureIndexes creates the unique and lookup indexes the stores rely on.
// Email uniqueness is enforced here rather than by a lookup before insert.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	nonEmptyEmail := bson.M{"email": bson.M{"$gt": ""}}
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: newestFirst},
		},
		clientsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetPartialFilterExpression(nonEmptyEmail)},
			{Keys: newestFirst},
		},
		projectsCollection: {
			{Keys: bson.D{{Key: "clients", Value: 1}}},
			{Keys: bson.D{{Key: "responsibleId", Value: 1}}},
			{Keys: newestFirst},
		},
		testsCollection: {
			{Keys: bson.D{{Key: "projectId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return errors.Wrapf(err, "failed to create indexes on %s", name)
		}
	}
	return nil
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// setDoc turns a patch into a $set document holding only its non-nil fields
// plus the updatedAt stamp.
func setDoc(patch interface{}) (bson.M, error) {
	raw, err := bson.Marshal(patch)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode patch")
	}
	set := bson.M{}
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, errors.Wrap(err, "failed to decode patch")
	}
	set["updatedAt"] = now()
	return set, nil
}

func searchFilter(term string, fields ...string) bson.M {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	or := make([]bson.M, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: re})
	}
	return bson.M{"$or": or}
}

// translate maps driver errors onto the apperr taxonomy.
func translate(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFoundf("%s not found", entity)
	case mongo.IsDuplicateKeyError(err):
		return apperr.Wrap(apperr.Conflict, err, "email is already in use")
	default:
		return errors.Wrapf(err, "%s store", entity)
	}
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.M, entity string) (*T, error) {
	var out T
	if err := col.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, translate(err, entity)
	}
	return &out, nil
}

func updateOne[T any](ctx context.Context, col *mongo.Collection, filter bson.M, update bson.M, entity string) (*T, error) {
	var out T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return nil, translate(err, entity)
	}
	return &out, nil
}

func deleteOne(ctx context.Context, col *mongo.Collection, filter bson.M, entity string) error {
	res, err := col.DeleteOne(ctx, filter)
	if err != nil {
		return translate(err, entity)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFoundf("%s not found", entity)
	}
	return nil
}

func list[T any](ctx context.Context, col *mongo.Collection, filter bson.M, opts store.ListOptions, entity string) (store.Page[T], error) {
	opts = opts.Normalize()
	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return store.Page[T]{}, translate(err, entity)
	}
	find := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(opts.Skip())).
		SetLimit(int64(opts.Limit))
	cursor, err := col.Find(ctx, filter, find)
	if err != nil {
		return store.Page[T]{}, translate(err, entity)
	}
	defer cursor.Close(ctx)

	var items []T
	if err := cursor.All(ctx, &items); err != nil {
		return store.Page[T]{}, translate(err, entity)
	}
	return store.NewPage(items, opts, int(total)), nil
}

type userStore struct{ col *mongo.Collection }

func (s *userStore) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	u.Email = store.NormalizeEmail(u.Email)
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	_, err := s.col.InsertOne(ctx, u)
	return translate(err, "user")
}

func (s *userStore) Get(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, s.col, bson.M{"_id": id}, "user")
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, s.col, bson.M{"email": store.NormalizeEmail(email)}, "user")
}

func (s *userStore) Update(ctx context.Context, id string, patch *models.UserPatch) (*models.User, error) {
	if patch.Email != nil {
		email := store.NormalizeEmail(*patch.Email)
		patch.Email = &email
	}
	set, err := setDoc(patch)
	if err != nil {
		return nil, err
	}
	return updateOne[models.User](ctx, s.col, bson.M{"_id": id}, bson.M{"$set": set}, "user")
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	return deleteOne(ctx, s.col, bson.M{"_id": id}, "user")
}

func (s *userStore) List(ctx context.Context, f store.UserFilter, opts store.ListOptions) (store.Page[models.User], error) {
	filter := bson.M{}
	if f.Search != "" {
		filter = searchFilter(f.Search, "fullName", "email")
	}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.ClientID != "" {
		filter["clientId"] = f.ClientID
	}
	return list[models.User](ctx, s.col, filter, opts, "user")
}

type clientStore struct{ col *mongo.Collection }

func (s *clientStore) Create(ctx context.Context, c *models.Client) error {
	c.ID = newID()
	c.Email = store.NormalizeEmail(c.Email)
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	_, err := s.col.InsertOne(ctx, c)
	return translate(err, "client")
}

func (s *clientStore) Get(ctx context.Context, id string) (*models.Client, error) {
	return findOne[models.Client](ctx, s.col, bson.M{"_id": id}, "client")
}

func (s *clientStore) Update(ctx context.Context, id string, patch *models.ClientPatch) (*models.Client, error) {
	if patch.Email != nil {
		email := store.NormalizeEmail(*patch.Email)
		patch.Email = &email
	}
	set, err := setDoc(patch)
	if err != nil {
		return nil, err
	}
	return updateOne[models.Client](ctx, s.col, bson.M{"_id": id}, bson.M{"$set": set}, "client")
}

func (s *clientStore) Delete(ctx context.Context, id string) error {
	return deleteOne(ctx, s.col, bson.M{"_id": id}, "client")
}

func (s *clientStore) List(ctx context.Context, f store.ClientFilter, opts store.ListOptions) (store.Page[models.Client], error) {
	filter := bson.M{}
	if f.Search != "" {
		filter = searchFilter(f.Search, "name", "email")
	}
	return list[models.Client](ctx, s.col, filter, opts, "client")
}

func (s *clientStore) Count(ctx context.Context) (int, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{})
	return int(n), translate(err, "client")
}

type projectStore struct{ col *mongo.Collection }

func projectFilter(f store.ProjectFilter) bson.M {
	filter := bson.M{}
	if f.Search != "" {
		filter = searchFilter(f.Search, "name", "description")
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	// Equality on an array field matches any element.
	if f.ClientID != "" {
		filter["clients"] = f.ClientID
	}
	if f.MemberID != "" {
		filter["members"] = f.MemberID
	}
	if f.ResponsibleID != "" {
		filter["responsibleId"] = f.ResponsibleID
	}
	return filter
}

func (s *projectStore) Create(ctx context.Context, p *models.Project) error {
	p.ID = newID()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	_, err := s.col.InsertOne(ctx, p)
	return translate(err, "project")
}

func (s *projectStore) Get(ctx context.Context, id string) (*models.Project, error) {
	return findOne[models.Project](ctx, s.col, bson.M{"_id": id}, "project")
}

func (s *projectStore) Update(ctx context.Context, id string, patch *models.ProjectPatch) (*models.Project, error) {
	set, err := setDoc(patch)
	if err != nil {
		return nil, err
	}
	return updateOne[models.Project](ctx, s.col, bson.M{"_id": id}, bson.M{"$set": set}, "project")
}

func (s *projectStore) Delete(ctx context.Context, id string) error {
	return deleteOne(ctx, s.col, bson.M{"_id": id}, "project")
}

func (s *projectStore) List(ctx context.Context, f store.ProjectFilter, opts store.ListOptions) (store.Page[models.Project], error) {
	return list[models.Project](ctx, s.col, projectFilter(f), opts, "project")
}

func (s *projectStore) Count(ctx context.Context, f store.ProjectFilter) (int, error) {
	n, err := s.col.CountDocuments(ctx, projectFilter(f))
	return int(n), translate(err, "project")
}

func (s *projectStore) ReferencedClients(ctx context.Context) ([]string, error) {
	values, err := s.col.Distinct(ctx, "clients", bson.M{})
	if err != nil {
		return nil, translate(err, "project")
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return models.UniqueIDs(ids), nil
}

type testStore struct{ col *mongo.Collection }

func testKey(projectID, testID string) bson.M {
	return bson.M{"_id": testID, "projectId": projectID}
}

func (s *testStore) Create(ctx context.Context, projectID string, t *models.Test) error {
	t.ID = newID()
	t.ProjectID = projectID
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt
	if t.Steps == nil {
		t.Steps = []models.Step{}
	}
	if t.Evidences == nil {
		t.Evidences = []models.Evidence{}
	}
	_, err := s.col.InsertOne(ctx, t)
	return translate(err, "test")
}

func (s *testStore) Get(ctx context.Context, projectID, testID string) (*models.Test, error) {
	return findOne[models.Test](ctx, s.col, testKey(projectID, testID), "test")
}

func (s *testStore) Update(ctx context.Context, projectID, testID string, patch *models.TestPatch) (*models.Test, error) {
	set, err := setDoc(patch)
	if err != nil {
		return nil, err
	}
	return updateOne[models.Test](ctx, s.col, testKey(projectID, testID), bson.M{"$set": set}, "test")
}

func (s *testStore) Delete(ctx context.Context, projectID, testID string) error {
	return deleteOne(ctx, s.col, testKey(projectID, testID), "test")
}

func (s *testStore) List(ctx context.Context, projectID string) ([]models.Test, error) {
	cursor, err := s.col.Find(ctx, bson.M{"projectId": projectID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, translate(err, "test")
	}
	defer cursor.Close(ctx)

	tests := make([]models.Test, 0)
	if err := cursor.All(ctx, &tests); err != nil {
		return nil, translate(err, "test")
	}
	return tests, nil
}

func (s *testStore) Count(ctx context.Context, projectID string) (int, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{"projectId": projectID})
	return int(n), translate(err, "test")
}

func (s *testStore) AppendEvidence(ctx context.Context, projectID, testID string, ev models.Evidence) (*models.Test, error) {
	update := bson.M{
		"$push": bson.M{"evidences": ev},
		"$set":  bson.M{"updatedAt": now()},
	}
	return updateOne[models.Test](ctx, s.col, testKey(projectID, testID), update, "test")
}

func (s *testStore) RemoveEvidence(ctx context.Context, projectID, testID, path string) (*models.Test, error) {
	update := bson.M{
		"$pull": bson.M{"evidences": bson.M{"path": path}},
		"$set":  bson.M{"updatedAt": now()},
	}
	return updateOne[models.Test](ctx, s.col, testKey(projectID, testID), update, "test")
}
