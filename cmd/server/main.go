package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/sprintboard/internal/server"
	"github.com/iota-uz/sprintboard/modules"
	"github.com/iota-uz/sprintboard/modules/tasks/infrastructure/persistence"
	"github.com/iota-uz/sprintboard/modules/tasks/services"
	"github.com/iota-uz/sprintboard/pkg/application"
	"github.com/iota-uz/sprintboard/pkg/configuration"
	"github.com/iota-uz/sprintboard/pkg/eventbus"
	"github.com/iota-uz/sprintboard/pkg/logging"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	if conf.RunMigrations {
		if err := persistence.Migrate(context.Background(), pool, logger); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	bus := eventbus.New(logger)
	if err := subscribeAudit(bus, logger); err != nil {
		log.Fatalf("failed to subscribe: %v", err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: bus,
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules(conf)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Listening on: %s\n", conf.Origin)
	serverInstance := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err := serverInstance.Start(runCtx, conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

func subscribeAudit(bus eventbus.EventBus, logger *logrus.Logger) error {
	if err := bus.Subscribe(func(e *services.ImportCommittedEvent) {
		logger.WithFields(logrus.Fields{
			"session":  e.SessionID,
			"filename": e.Filename,
			"mode":     e.Mode,
			"imported": e.Imported,
			"skipped":  e.Skipped,
		}).Info("tasks imported")
	}); err != nil {
		return err
	}
	return bus.Subscribe(func(e *services.MemberCreatedEvent) {
		logger.WithField("member", e.Result.ID).Info("member created")
	})
}
