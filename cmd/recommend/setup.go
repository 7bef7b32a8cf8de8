package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/history"
	"travel_recommend/internal/logger"
	"travel_recommend/internal/recommender"
	"travel_recommend/internal/recorder"
	"travel_recommend/internal/scheduler"
	"travel_recommend/internal/server"
	"travel_recommend/internal/task"
	"travel_recommend/internal/user"
)

const (
	shutdownTimeout = 10 * time.Second
	taskRetention   = 24 * time.Hour
)

// app 持有一次运行所需的全部组件
type app struct {
	cfg     *Config
	rec     *recommender.Recommender
	history *history.FileStore
}

func initLogger(cfg *Config) {
	level := "info"
	if cfg.Server.Debug {
		level = "debug"
	}
	logger.Init(logger.Config{Level: level, Format: cfg.Server.LogFormat, Output: os.Stderr})
}

// loadUsers 画像文件不存在时从空画像库开始
func loadUsers(path string) (*user.Store, error) {
	users, err := user.LoadFile(path)
	if err == nil {
		return users, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("User profiles %s not found, starting with an empty store", path)
		return user.NewStore(), nil
	}
	return nil, err
}

// newApp 加载目录、画像和历史记录并创建推荐服务
func newApp(cfg *Config) (*app, error) {
	c, err := catalog.LoadCSV(cfg.Paths.Catalog)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	users, err := loadUsers(cfg.Paths.Users)
	if err != nil {
		return nil, fmt.Errorf("load user profiles: %w", err)
	}

	a := &app{cfg: cfg}
	opts := recommender.Options{
		TopN:           cfg.Recommend.TopN,
		Weights:        &cfg.Recommend.Weights,
		Neighbours:     cfg.Recommend.Neighbors,
		Vectorizer:     cfg.Recommend.vectorizer(),
		RowCacheSize:   cfg.Recommend.RowCacheSize,
		FuzzyDiscount:  cfg.Recommend.FuzzyDiscount,
		PipelinesPath:  cfg.Paths.Pipelines,
		Persister:      recorder.FilePersister{Path: cfg.Paths.SnapshotPath()},
		PersistOnClick: cfg.Recommend.PersistOnClick,
	}
	opts.Synonyms, err = cfg.Recommend.synonymPairs()
	if err != nil {
		return nil, err
	}
	if cfg.Paths.Pipelines != "" {
		if _, err := os.Stat(cfg.Paths.Pipelines); errors.Is(err, os.ErrNotExist) {
			logger.Warn("Pipelines %s not found, using built-in pipelines", cfg.Paths.Pipelines)
			opts.PipelinesPath = ""
		}
	}
	if cfg.Paths.History != "" {
		a.history, err = history.NewFileStore(cfg.Paths.History)
		if err != nil {
			return nil, fmt.Errorf("init history store: %w", err)
		}
		opts.History = a.history
	}

	a.rec, err = recommender.New(c, users, opts)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// serve 启动 HTTP 服务和后台任务，收到 SIGINT/SIGTERM 后优雅退出并写一次快照
func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New()
	var hs history.Store
	if a.history != nil {
		hs = a.history
	}
	if err := scheduler.RegisterDefaults(sched, a.cfg.Jobs, a.rec.Persist, hs); err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}
	tasks := task.NewManager()
	err := sched.AddJob("task_prune", "@hourly", func(ctx context.Context) error {
		if n := tasks.Prune(taskRetention); n > 0 {
			logger.Debug("Pruned %d finished tasks", n)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}
	sched.Start()
	if a.cfg.Server.AdminToken == "" {
		logger.Warn("server.admin_token not set, admin endpoints are disabled")
	}

	if a.cfg.Jobs.WatchCatalog {
		w, err := scheduler.NewCatalogWatcher(a.cfg.Paths.Catalog, scheduler.DefaultDebounce, func() error {
			_, err := a.rec.ReloadCatalog(a.cfg.Paths.Catalog)
			return err
		})
		if err != nil {
			logger.Error("Catalog watcher disabled: %v", err)
		} else {
			defer w.Close()
			go w.Run(ctx)
		}
	}

	srv := server.NewServer(a.rec, tasks, server.Config{
		Debug:          a.cfg.Server.Debug,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		CatalogPath:    a.cfg.Paths.Catalog,
		ProfilesPath:   a.cfg.Paths.Users,
		ExportDir:      a.cfg.Paths.ExportDir,
		RequestTimeout: a.cfg.Server.RequestTimeout,
		AdminToken:     a.cfg.Server.AdminToken,
	})
	httpSrv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server on port %s...", a.cfg.Server.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down...")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown: %v", err)
	}
	sched.Stop(shutdownCtx)
	if err := a.rec.Persist(shutdownCtx); err != nil {
		logger.Error("Final snapshot failed: %v", err)
	}

	if serveErr != nil {
		return fmt.Errorf("server failed: %w", serveErr)
	}
	return nil
}
