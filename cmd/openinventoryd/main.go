// Command openinventoryd runs the tenant sync API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/clemoseitano/open-inventory-api/internal/api"
	"github.com/clemoseitano/open-inventory-api/internal/config"
	"github.com/clemoseitano/open-inventory-api/internal/db"
	"github.com/clemoseitano/open-inventory-api/internal/db/migrations"
	"github.com/clemoseitano/open-inventory-api/internal/dbpool"
	"github.com/clemoseitano/open-inventory-api/internal/idgen"
	"github.com/clemoseitano/open-inventory-api/internal/service"
	"github.com/clemoseitano/open-inventory-api/internal/store"
	"github.com/clemoseitano/open-inventory-api/internal/ws"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Fatal("invalid LOG_LEVEL")
	}
	log.SetLevel(level)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return err
	}

	base := store.Base{Pool: pool, Log: log, IDs: idgen.New()}

	members := store.NewMembershipStore(base)
	journal := store.NewJournalStore(base)
	snapshots := store.NewSnapshotStore(base)
	pushLog := store.NewPushLogStore(base)
	admin := store.NewAdminStore(base)

	var hub *ws.Hub
	if cfg.EnableSyncEvents {
		hub = ws.NewHub(log)
	}

	pushLogWorker := service.NewPushLogWorker(pushLog, log, cfg.AuditQueueSize)
	retention := service.NewRetentionWorker(
		journal, pushLog, log,
		cfg.PurgeInterval,
		time.Duration(cfg.JournalRetention)*24*time.Hour,
		time.Duration(cfg.AuditRetention)*24*time.Hour,
	)

	// *ws.Hub satisfies service.Notifier, but a nil *ws.Hub stored in the
	// interface would not compare equal to nil inside the service.
	var notifier service.Notifier
	if hub != nil {
		notifier = hub
	}

	syncSvc := service.NewSyncService(members, journal, snapshots, pushLogWorker, notifier, log)
	adminSvc := service.NewAdminService(admin, journal, retention, notifier, log)

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:         log,
		Pool:        pool,
		Hub:         hub,
		Sync:        syncSvc,
		Admin:       adminSvc,
		Members:     members,
		UserLookup:  members,
		CORSOrigins: cfg.CORSOrigins,
		AdminToken:  cfg.AdminToken.Value(),
		Version:     config.Version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pushLogWorker.Run(gctx)

		return nil
	})

	g.Go(func() error {
		retention.Run(gctx)

		return nil
	})

	if hub != nil {
		g.Go(func() error {
			hub.Run(gctx)

			return nil
		})
	}

	g.Go(func() error {
		log.WithFields(logrus.Fields{"addr": cfg.Addr(), "version": config.Version}).Info("server starting")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		if hub != nil {
			hub.Shutdown()
		}

		return nil
	})

	return g.Wait()
}
