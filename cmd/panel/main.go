package main

// @title           guang control panel API
// @version         1.0
// @description     Control panel for the guang backend. Polls the backend, keeps the message log and exposes worker control.
// @host      localhost:8090
// @BasePath  /
// @securityDefinitions.basic  BasicAuth

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	_ "github.com/Alwanly/guang-panel/docs/panel"
	"github.com/Alwanly/guang-panel/internal/config"
	"github.com/Alwanly/guang-panel/internal/server/panel/handler"
	authentication "github.com/Alwanly/guang-panel/pkg/auth"
	"github.com/Alwanly/guang-panel/pkg/database"
	"github.com/Alwanly/guang-panel/pkg/deps"
	"github.com/Alwanly/guang-panel/pkg/logger"
	"github.com/Alwanly/guang-panel/pkg/middleware"
	"github.com/Alwanly/guang-panel/pkg/poll"
	"github.com/Alwanly/guang-panel/pkg/pubsub"
	swagger "github.com/gofiber/swagger"
)

func main() {
	log, err := logger.NewLoggerFromEnv("panel")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting panel service")

	cfg, err := config.LoadPanelConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	facilities := config.DefaultFacilities()
	if cfg.FacilitiesFile != "" {
		facilities, err = config.LoadFacilities(cfg.FacilitiesFile)
		if err != nil {
			log.WithError(err).Fatal("failed to load facilities", logger.String("file", cfg.FacilitiesFile))
		}
	}

	log.Info("configuration loaded",
		logger.String("server_addr", cfg.ServerAddr),
		logger.String(logger.FieldBackendURL, cfg.BackendURL),
		logger.String("database_path", cfg.DatabasePath),
		logger.Int("facilities", len(facilities)),
	)

	mid := middleware.NewAuthMiddleware(middleware.SetBasicAuth(&authentication.BasicAuthTConfig{
		Username: cfg.PanelUsername,
		Password: cfg.PanelPassword,
	}))
	if mid.Basic.Enabled() {
		log.Info("basic auth enabled for mutating routes")
	} else {
		log.Warn("PANEL_USER/PANEL_PASSWORD not set; mutating routes are unauthenticated")
	}

	db, err := database.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	log.Info("database initialized", logger.String("path", cfg.DatabasePath))

	if err := database.RunMigrations(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	app := fiber.New(fiber.Config{
		AppName:               "guang panel",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.CanonicalLoggerMiddleware(log, "/health", "/api/messages", "/api/beacon", "/api/scans"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := deps.App{
		Fiber:      app,
		Database:   db,
		Logger:     log,
		Middleware: mid,
		Poller:     poll.NewPoller(log),
	}

	if cfg.Redis != nil {
		redisCfg := pubsub.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		redisPub, err := pubsub.NewRedisPubSub(ctx, redisCfg, log)
		if err != nil {
			log.WithError(err).Error("failed to initialize redis pub/sub, continuing without message fan-out")
		} else {
			deps.Pub = redisPub
			defer redisPub.Close()
		}
	} else {
		log.Info("no Redis configuration provided; skipping pub/sub initialization")
	}

	h, err := handler.NewHandler(deps, cfg, facilities)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize panel")
	}

	if deps.Pub != nil {
		h.UseCase.ForwardMessages(cfg.Redis.PublishChannel)
		msgs, err := deps.Pub.Subscribe(ctx, cfg.Redis.SubscribeChannel)
		if err != nil {
			log.WithError(err).Error("failed to subscribe to backend messages")
		} else {
			go h.UseCase.IngestMessages(ctx, msgs)
		}
	}

	app.Get("/swagger/*", swagger.HandlerDefault)

	gErr, gCtx := errgroup.WithContext(ctx)

	gErr.Go(func() error {
		log.Info("panel service is running", logger.String("address", cfg.ServerAddr))
		if err := app.Listen(cfg.ServerAddr); err != nil {
			cancel()
			return err
		}
		return nil
	})

	gErr.Go(func() error {
		if err := h.UseCase.WaitForBackend(gCtx); err != nil {
			log.WithError(err).Warn("backend did not answer, polling anyway")
		}
		return deps.Poller.Start(gCtx)
	})

	gErr.Go(func() error {
		<-gCtx.Done()

		if err := deps.Poller.Stop(); err != nil {
			log.WithError(err).Error("failed to stop poller")
		}

		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("failed to shutdown fiber app")
			return err
		}

		conn, err := db.DB()
		if err != nil {
			log.WithError(err).Error("failed to get database connection")
			return err
		}
		if err := conn.Close(); err != nil {
			log.WithError(err).Error("failed to close database")
			return err
		}

		return nil
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		log.Info("listening for shutdown signals")
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	if err := gErr.Wait(); err != nil {
		log.WithError(err).Fatal("panel service encountered an error")
	}

	log.Info("panel service stopped gracefully")
}
