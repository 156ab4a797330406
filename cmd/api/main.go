package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/blob"
	"github.com/harentsoaR/testmanager-api/internal/config"
	"github.com/harentsoaR/testmanager-api/internal/handlers"
	"github.com/harentsoaR/testmanager-api/internal/logging"
	"github.com/harentsoaR/testmanager-api/internal/services"
	"github.com/harentsoaR/testmanager-api/internal/store"
	"github.com/harentsoaR/testmanager-api/internal/store/memstore"
	"github.com/harentsoaR/testmanager-api/internal/store/mongostore"
	"github.com/harentsoaR/testmanager-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Event ID: BOOT-001, Description: invalid configuration")
	}
	log, err := logging.New(logging.Options{
		SystemName: "testmanager-api",
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Event ID: BOOT-002, Description: failed to set up logging")
	}
	log.WithFields(logrus.Fields{
		"env":   cfg.Env,
		"port":  cfg.Port,
		"store": cfg.StoreDriver,
		"blob":  cfg.BlobDriver,
	}).Info("Event ID: BOOT-003, Description: starting testmanager-api")

	// --- Storage ---
	var (
		stores store.Stores
		db     *mongo.Database
	)
	switch cfg.StoreDriver {
	case "memory":
		stores = memstore.New().Stores()
		log.Warn("Event ID: BOOT-004, Description: using the in-memory store, data is lost on exit")
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			cancel()
			log.WithError(err).Fatal("Event ID: DB-001, Description: failed to connect to MongoDB")
		}
		if err := client.Ping(ctx, nil); err != nil {
			cancel()
			log.WithError(err).Fatal("Event ID: DB-002, Description: MongoDB is unreachable")
		}
		db = client.Database(cfg.MongoDatabase)
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			cancel()
			log.WithError(err).Fatal("Event ID: DB-003, Description: failed to create indexes")
		}
		cancel()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}()
		stores = mongostore.Stores(db)
		log.WithField("database", cfg.MongoDatabase).Info("Event ID: DB-004, Description: connected to MongoDB")
	}

	blobs, err := openBlobs(cfg, db)
	if err != nil {
		log.WithError(err).Fatal("Event ID: BLOB-001, Description: failed to open evidence storage")
	}

	// --- Services ---
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	guarded := blob.NewBreaker(blobs, "evidence", log)
	svc := services.New(services.Deps{
		Stores:        stores,
		Blobs:         guarded,
		Tokens:        tokens,
		Log:           log,
		PublicBaseURL: cfg.BlobPublicBaseURL,
	})

	// --- Router ---
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handlers.NewHandler(svc, log, cfg.UploadMaxBytes)
	h.BlobState = guarded.State
	r := handlers.NewRouter(h, auth.NewResolver(tokens, stores.Users, log), log, handlers.RouterOptions{
		DevMode:     cfg.IsDevelopment(),
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Event ID: HTTP-001, Description: server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Event ID: HTTP-002, Description: server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Event ID: HTTP-003, Description: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Event ID: HTTP-004, Description: forced shutdown")
	}
}

func openBlobs(cfg *config.Config, db *mongo.Database) (blob.Store, error) {
	switch cfg.BlobDriver {
	case "disk":
		return blob.NewDisk(cfg.BlobDir)
	case "memory":
		return blob.NewMemory(), nil
	default:
		if db == nil {
			return nil, errors.New("gridfs needs the mongo store")
		}
		return blob.NewGridFS(db, cfg.BlobBucket)
	}
}
