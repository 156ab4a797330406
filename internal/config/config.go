// Package config loads the service configuration.
//
// Values come, in increasing priority, from built-in defaults, an optional
// testmanager.yaml (in the working directory or TESTMANAGER_CONFIG_PATH), a
// .env file and the process environment. Every key can be set through an
// environment variable with the TESTMANAGER_ prefix, dots becoming
// underscores:
//
//	TESTMANAGER_MONGO_URI=mongodb://localhost:27017
//	TESTMANAGER_BLOB_DRIVER=disk
//
// The unprefixed MONGO_URI, MONGO_DATABASE, API_PORT and JWT_SECRET variables
// are still honoured.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvVarPrefix      = "TESTMANAGER"
	ConfigPathEnv     = "TESTMANAGER_CONFIG_PATH"
	ConfigDefaultName = "testmanager"
)

// Configuration keys.
const (
	KeyEnv            = "env"
	KeyAPIPort        = "api.port"
	KeyMongoURI       = "mongo.uri"
	KeyMongoDatabase  = "mongo.database"
	KeyJWTSecret      = "jwt.secret"
	KeyJWTTTL         = "jwt.ttl"
	KeyCORSOrigins    = "cors.origins"
	KeyBlobDriver     = "blob.driver"
	KeyBlobDir        = "blob.dir"
	KeyBlobBucket     = "blob.bucket"
	KeyBlobPublicBase = "blob.publicbaseurl"
	KeyUploadMaxBytes = "upload.maxbytes"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
	KeyLogFile        = "log.file"
	KeyStoreDriver    = "store.driver"
)

var legacyEnv = map[string]string{
	KeyMongoURI:      "MONGO_URI",
	KeyMongoDatabase: "MONGO_DATABASE",
	KeyAPIPort:       "API_PORT",
	KeyJWTSecret:     "JWT_SECRET",
}

type Config struct {
	Env  string
	Port string

	MongoURI      string
	MongoDatabase string

	JWTSecret string
	JWTTTL    time.Duration

	CORSOrigins []string

	BlobDriver        string
	BlobDir           string
	BlobBucket        string
	BlobPublicBaseURL string
	UploadMaxBytes    int64

	LogLevel  string
	LogFormat string
	LogFile   string

	StoreDriver string
}

// IsDevelopment reports whether error responses may carry stack traces.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func defaults(v *viper.Viper) {
	v.SetDefault(KeyEnv, "production")
	v.SetDefault(KeyAPIPort, "8080")
	v.SetDefault(KeyMongoURI, "mongodb://localhost:27017")
	v.SetDefault(KeyMongoDatabase, "testmanager")
	v.SetDefault(KeyJWTTTL, "24h")
	v.SetDefault(KeyCORSOrigins, []string{"http://localhost:5173"})
	v.SetDefault(KeyBlobDriver, "gridfs")
	v.SetDefault(KeyBlobDir, "./data/evidence")
	v.SetDefault(KeyBlobBucket, "evidence")
	v.SetDefault(KeyBlobPublicBase, "/api")
	v.SetDefault(KeyUploadMaxBytes, 10<<20)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyStoreDriver, "mongo")
}

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(ConfigDefaultName)
	v.SetConfigType("yaml")
	if p := os.Getenv(ConfigPathEnv); p != "" {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvVarPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		_ = v.BindEnv(key, EnvVarPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
	defaults(v)
	return v
}

// FromViper builds a Config from v, reading its config file when one exists.
func FromViper(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		Env:               strings.ToLower(v.GetString(KeyEnv)),
		Port:              v.GetString(KeyAPIPort),
		MongoURI:          v.GetString(KeyMongoURI),
		MongoDatabase:     v.GetString(KeyMongoDatabase),
		JWTSecret:         v.GetString(KeyJWTSecret),
		JWTTTL:            v.GetDuration(KeyJWTTTL),
		CORSOrigins:       splitList(v.GetStringSlice(KeyCORSOrigins)),
		BlobDriver:        strings.ToLower(v.GetString(KeyBlobDriver)),
		BlobDir:           v.GetString(KeyBlobDir),
		BlobBucket:        v.GetString(KeyBlobBucket),
		BlobPublicBaseURL: strings.TrimRight(v.GetString(KeyBlobPublicBase), "/"),
		UploadMaxBytes:    v.GetInt64(KeyUploadMaxBytes),
		LogLevel:          v.GetString(KeyLogLevel),
		LogFormat:         strings.ToLower(v.GetString(KeyLogFormat)),
		LogFile:           v.GetString(KeyLogFile),
		StoreDriver:       strings.ToLower(v.GetString(KeyStoreDriver)),
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt.secret (JWT_SECRET) is required"))
	}
	switch c.StoreDriver {
	case "mongo", "memory":
	default:
		errs = append(errs, errors.New("store.driver must be mongo or memory"))
	}
	switch c.BlobDriver {
	case "gridfs", "disk", "memory":
	default:
		errs = append(errs, errors.New("blob.driver must be gridfs, disk or memory"))
	}
	if c.BlobDriver == "gridfs" && c.StoreDriver != "mongo" {
		errs = append(errs, errors.New("blob.driver gridfs requires store.driver mongo"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be positive"))
	}
	if c.UploadMaxBytes <= 0 {
		errs = append(errs, errors.New("upload.maxbytes must be positive"))
	}
	return errors.Join(errs...)
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
