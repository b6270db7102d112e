// Command server runs the miboda gateway: auth, planner tables and admin
// functions over MySQL.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/miboda/internal/config"
	"github.com/iliyamo/miboda/internal/database"
	"github.com/iliyamo/miboda/internal/handler"
	"github.com/iliyamo/miboda/internal/middleware"
	"github.com/iliyamo/miboda/internal/queue"
	"github.com/iliyamo/miboda/internal/repository"
	"github.com/iliyamo/miboda/internal/router"
	"github.com/iliyamo/miboda/internal/service"
	"github.com/iliyamo/miboda/pkg/logging"
)

func main() {
	log := logging.Setup()

	if err := config.LoadEnvFile(); err != nil {
		log.Error("env file", "err", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Settings{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Error("database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Error("migrate", "err", err)
		os.Exit(1)
	}

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	profiles := repository.NewProfileRepo(db)
	roles := repository.NewRoleRepo(db, rdb, config.LoadRoleCacheConfig(), log)
	tables := repository.NewTableRepo(db)

	qcfg := config.LoadQueueConfig()
	accounts := &service.Accounts{
		Users: users, Profiles: profiles, Roles: roles, Tokens: tokens,
		Events: service.New(qcfg, log),
		Cost:   cfg.BcryptCost,
		Log:    log,
	}
	if qcfg.Enabled && qcfg.Consumer {
		consumer := &queue.Consumer{Cfg: qcfg, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("account consumer stopped", "err", err)
			}
		}()
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := accounts.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
			log.Error("bootstrap admin", "err", err)
			os.Exit(1)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.RegisterRoutes(e, router.Deps{
		Cfg:       cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,
		DB:        db,
		Metrics:   middleware.NewMetrics(),
		Log:       log,
		Auth:      handler.NewAuthHandler(cfg, users, tokens, profiles, roles, log),
		Rest:      handler.NewRestHandler(tables, roles, accounts, log),
		Functions: handler.NewFunctionsHandler(accounts, log),
		Roles:     roles,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
	log.Info("stopped")
}
