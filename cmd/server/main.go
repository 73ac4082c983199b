package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/focusnest/study-service/internal/achievement"
	"github.com/focusnest/study-service/internal/config"
	"github.com/focusnest/study-service/internal/httpapi"
	"github.com/focusnest/study-service/internal/profile"
	"github.com/focusnest/study-service/internal/report"
	"github.com/focusnest/study-service/internal/store"
	"github.com/focusnest/study-service/internal/store/fsstore"
	"github.com/focusnest/study-service/internal/store/memstore"
	"github.com/focusnest/study-service/internal/store/mongostore"
	"github.com/focusnest/study-service/internal/study"
	"github.com/focusnest/study-service/internal/support"
	"github.com/focusnest/study-service/pkg/events"
	"github.com/focusnest/study-service/pkg/identity"
	"github.com/focusnest/study-service/pkg/logging"
	sharedserver "github.com/focusnest/study-service/pkg/server"
)

const serviceName = "study-service"

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger(serviceName)

	st, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("store init error: %w", err))
	}
	defer cleanup()

	clock := support.NewSystemClock(cfg.Location)
	ids := support.NewUUIDGenerator()
	publisher := events.NewLogPublisher(logger)

	engine, err := achievement.NewEngine(study.NewActivitySource(st), st, clock, ids,
		achievement.WithPublisher(publisher),
		achievement.WithLogger(logger),
	)
	if err != nil {
		panic(fmt.Errorf("achievement engine init error: %w", err))
	}

	profileService, err := profile.NewService(st, clock)
	if err != nil {
		panic(fmt.Errorf("profile service init error: %w", err))
	}

	studyService, err := study.NewService(st, clock, ids,
		study.WithCreditor(profileService),
		study.WithEvaluator(engine),
		study.WithPublisher(publisher),
		study.WithLogger(logger),
		study.WithDefaultProfile(cfg.DefaultProfileID),
	)
	if err != nil {
		panic(fmt.Errorf("study service init error: %w", err))
	}

	reportService, err := report.NewService(st, engine, clock)
	if err != nil {
		panic(fmt.Errorf("report service init error: %w", err))
	}

	router := sharedserver.NewRouter(serviceName, cfg.CORSOrigins, func(r chi.Router) {
		httpapi.RegisterRoutes(r, httpapi.Services{
			Study:        studyService,
			Profiles:     profileService,
			Reports:      reportService,
			Achievements: st,
			Resolver:     identity.NewStaticResolver(cfg.DefaultProfileID),
		}, logger)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := sharedserver.Run(ctx, srv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func newStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	switch cfg.DataStore {
	case config.DataStoreFirestore:
		if cfg.Firestore.EmulatorHost != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
				return nil, nil, fmt.Errorf("set FIRESTORE_EMULATOR_HOST: %w", err)
			}
		}

		client, err := firestore.NewClientWithDatabase(ctx, cfg.GCPProjectID, cfg.Firestore.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		return fsstore.New(client), func() { _ = client.Close() }, nil

	case config.DataStoreMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URL))
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connect: %w", err)
		}
		cleanup := func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(shutdownCtx)
		}

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("mongo ping: %w", err)
		}

		s := mongostore.New(client.Database(cfg.Mongo.Database))
		if err := s.EnsureIndexes(pingCtx); err != nil {
			cleanup()
			return nil, nil, err
		}
		return s, cleanup, nil

	default:
		return memstore.New(), func() {}, nil
	}
}
