package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wavelens/gradient/internal/adapter/evaluator"
	"github.com/wavelens/gradient/internal/adapter/remote"
	"github.com/wavelens/gradient/internal/adapter/vcs"
	"github.com/wavelens/gradient/internal/api/handler"
	"github.com/wavelens/gradient/internal/api/router"
	"github.com/wavelens/gradient/internal/cachestore"
	"github.com/wavelens/gradient/internal/core"
	corescheduler "github.com/wavelens/gradient/internal/core/scheduler"
	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/internal/pkg/config"
	"github.com/wavelens/gradient/internal/pkg/database"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/internal/scheduler"
	"github.com/wavelens/gradient/internal/service"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "config file path")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := applog.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer applog.Close()

	if err := database.Init(&cfg.Database); err != nil {
		applog.Fatal("init database", zap.Error(err))
	}
	defer database.Close()

	db := database.GetDB()
	if err := model.AutoMigrate(db); err != nil {
		applog.Fatal("migrate database", zap.Error(err))
	}

	store, err := cachestore.New(cfg.Cache.Path)
	if err != nil {
		applog.Fatal("init cache store", zap.Error(err))
	}

	users := repository.NewUserRepository(db)
	apiKeys := repository.NewAPIKeyRepository(db)
	orgs := repository.NewOrganizationRepository(db)
	projects := repository.NewProjectRepository(db)
	commits := repository.NewCommitRepository(db)
	evals := repository.NewEvaluationRepository(db)
	builds := repository.NewBuildRepository(db)
	servers := repository.NewServerRepository(db)
	caches := repository.NewCacheRepository(db)

	var executor remote.Executor
	if cfg.Core.Executor == "mock" {
		executor = remote.NewMockExecutor()
	} else {
		executor = remote.NewSSHExecutor()
	}

	var ev evaluator.Evaluator
	if cfg.Core.Evaluator == "mock" {
		ev = evaluator.NewMockEvaluator()
	} else {
		ev = evaluator.NewNixEvaluator(cfg.Core.Evaluator, cfg.Core.WorkDir)
	}

	scanInterval, err := time.ParseDuration(cfg.Core.ScanInterval)
	if err != nil {
		scanInterval = 5 * time.Second
	}
	backoff, err := time.ParseDuration(cfg.Core.DispatchBackoff)
	if err != nil {
		backoff = 2 * time.Second
	}

	dispatcher := corescheduler.NewDispatcher(builds, evals, projects, orgs, servers, executor,
		corescheduler.Options{
			Retries:             cfg.Core.DispatchRetries,
			Backoff:             backoff,
			MaxConcurrentBuilds: cfg.Core.MaxConcurrentBuilds,
			ServerCapacity:      cfg.Core.ServerCapacity,
			AESKey:              cfg.Crypto.AESKey,
		})
	engine := core.NewEngine(evals, builds, projects, commits, ev, dispatcher,
		scanInterval, cfg.Core.MaxConcurrentEvaluations)
	if err := engine.Recover(); err != nil {
		applog.Fatal("recover interrupted work", zap.Error(err))
	}
	engine.Start()
	defer engine.Stop()

	jobs := scheduler.New(servers, orgs, executor, cfg.Crypto.AESKey)
	if cfg.Health.Cron != "" {
		if err := jobs.Start(cfg.Health.Cron); err != nil {
			applog.Fatal("start scheduler", zap.Error(err))
		}
		defer jobs.Stop()
	}

	authService := service.NewAuthService(users, apiKeys)
	handlers := router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		User:         handler.NewUserHandler(service.NewUserService(apiKeys)),
		Organization: handler.NewOrganizationHandler(service.NewOrganizationService(orgs)),
		Project: handler.NewProjectHandler(service.NewProjectService(
			projects, orgs, evals, commits, vcs.NewGitFetcher())),
		Evaluation: handler.NewEvaluationHandler(service.NewEvaluationService(
			evals, builds, commits, dispatcher)),
		Build:  handler.NewBuildHandler(service.NewBuildService(builds)),
		Server: handler.NewServerHandler(service.NewServerService(servers, orgs, builds, executor)),
		Cache:  handler.NewCacheHandler(service.NewCacheService(caches, orgs, store)),
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router.Setup(cfg.Server.Mode, authService, handlers),
	}

	go func() {
		applog.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	applog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		applog.Error("server shutdown", zap.Error(err))
	}
}
