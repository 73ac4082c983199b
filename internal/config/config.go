package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/focusnest/study-service/pkg/envconfig"
)

// Config encapsulates the runtime configuration for the study service.
type Config struct {
	Port             string    `validate:"required,numeric"`
	GCPProjectID     string
	DataStore        DataStore `validate:"required,oneof=memory firestore mongo"`
	Firestore        FirestoreConfig
	Mongo            MongoConfig
	CORSOrigins      []string `validate:"dive,required"`
	DefaultProfileID string   `validate:"required"`
	TimeZone         string   `validate:"required"`
	Location         *time.Location
}

// DataStore enumerates supported persistence backends.
type DataStore string

const (
	// DataStoreMemory keeps records in-memory (useful for local development/testing).
	DataStoreMemory DataStore = "memory"
	// DataStoreFirestore stores records in Google Cloud Firestore.
	DataStoreFirestore DataStore = "firestore"
	// DataStoreMongo stores records in MongoDB.
	DataStoreMongo DataStore = "mongo"
)

// FirestoreConfig tailors Firestore client behavior.
type FirestoreConfig struct {
	EmulatorHost string
	Database     string `validate:"required"`
}

// MongoConfig locates the MongoDB database.
type MongoConfig struct {
	URL      string
	Database string `validate:"required"`
}

// Load reads environment variables into Config with validation.
func Load() (Config, error) {
	cfg := Config{
		Port:         envconfig.Get("PORT", "8080"),
		GCPProjectID: envconfig.Get("GCP_PROJECT_ID", ""),
		DataStore:    DataStore(strings.ToLower(envconfig.Get("DATASTORE", string(DataStoreMemory)))),
		Firestore: FirestoreConfig{
			EmulatorHost: envconfig.Get("FIRESTORE_EMULATOR_HOST", ""),
			Database:     envconfig.Get("FIRESTORE_DATABASE", "(default)"),
		},
		Mongo: MongoConfig{
			URL:      envconfig.Get("MONGO_URL", ""),
			Database: envconfig.Get("DB_NAME", "study_tracker"),
		},
		CORSOrigins:      envconfig.GetList("CORS_ORIGINS", []string{"*"}),
		DefaultProfileID: strings.TrimSpace(envconfig.Get("DEFAULT_PROFILE_ID", "default_user")),
		TimeZone:         envconfig.Get("STUDY_TIMEZONE", "UTC"),
	}

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if err := envconfig.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch cfg.DataStore {
	case DataStoreMemory:
		// no-op
	case DataStoreFirestore:
		if cfg.GCPProjectID == "" {
			return fmt.Errorf("gcp project id required when datastore=firestore")
		}
	case DataStoreMongo:
		if strings.TrimSpace(cfg.Mongo.URL) == "" {
			return fmt.Errorf("MONGO_URL is required when datastore=mongo")
		}
	default:
		return fmt.Errorf("unsupported datastore: %s", cfg.DataStore)
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid STUDY_TIMEZONE %q: %w", cfg.TimeZone, err)
	}
	cfg.Location = loc

	return nil
}
