package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"

	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/config"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/services"
	"github.com/harentsoaR/testmanager-api/internal/store"
	"github.com/harentsoaR/testmanager-api/internal/store/memstore"
	"github.com/harentsoaR/testmanager-api/internal/store/mongostore"
	"github.com/harentsoaR/testmanager-api/internal/utils"
)

// operator is the identity every CLI command runs as.
var operator = &auth.Identity{UID: "tmctl", Role: models.RoleAdmin, IsAdmin: true}

// app opens the configured store on first use.
type app struct {
	svc    *services.Services
	stores store.Stores
	tokens *utils.TokenManager
	client *mongo.Client
}

func (a *app) open(ctx context.Context) error {
	if a.svc != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}
	switch cfg.StoreDriver {
	case "memory":
		a.stores = memstore.New().Stores()
	default:
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return errors.Wrap(err, "connecting to MongoDB")
		}
		a.client = client
		db := client.Database(cfg.MongoDatabase)
		if err := mongostore.EnsureIndexes(cctx, db); err != nil {
			return errors.Wrap(err, "creating indexes")
		}
		a.stores = mongostore.Stores(db)
	}
	a.use(a.stores, utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL))
	return nil
}

func (a *app) use(stores store.Stores, tokens *utils.TokenManager) {
	a.stores = stores
	a.tokens = tokens
	a.svc = services.New(services.Deps{
		Stores: stores,
		Tokens: tokens,
		Log:    logrus.StandardLogger(),
	})
}

func (a *app) Close() {
	if a.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.client.Disconnect(ctx)
	a.client = nil
}

// printYAML writes v as YAML using its JSON field names.
func printYAML(w io.Writer, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
