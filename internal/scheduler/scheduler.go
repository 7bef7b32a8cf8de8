package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"travel_recommend/internal/history"
	"travel_recommend/internal/logger"
)

// Jobs 后台任务配置，cron 表达式为空表示不启用
type Jobs struct {
	SnapshotCron         string `koanf:"snapshot_cron"`
	HistoryCleanupCron   string `koanf:"history_cleanup_cron"`
	HistoryRetentionDays int    `koanf:"history_retention_days" validate:"gte=0"`
	WatchCatalog         bool   `koanf:"watch_catalog"`
}

// Scheduler 基于 cron 的周期任务
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.Mutex
	jobs    map[string]func()
	started bool
}

// New 创建一个未启动的调度器
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make(map[string]func()),
	}
}

// AddJob 注册一个任务；任务内的 panic 会被记录并吞掉，不影响其他任务
func (s *Scheduler) AddJob(name, spec string, fn func(ctx context.Context) error) error {
	job := func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Job %s panicked: %v", name, r)
			}
		}()
		if err := fn(context.Background()); err != nil {
			logger.Error("Job %s failed: %v", name, err)
			return
		}
		logger.Debug("Job %s finished", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("add cron job %q: %w", name, err)
	}
	s.jobs[name] = job
	return nil
}

// RunNow 立即同步执行一次任务
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	job()
	return nil
}

// Jobs 已注册任务名（排序）
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.cron.Start()
		s.started = true
	}
}

// Stop 停止调度并等待正在执行的任务结束（或 ctx 到期）
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	done := s.cron.Stop()
	s.mu.Unlock()

	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Warn("Scheduler stop: gave up waiting for running jobs")
	}
}

// RegisterDefaults 注册画像快照和历史清理任务
func RegisterDefaults(s *Scheduler, cfg Jobs, persist func(ctx context.Context) error, hs history.Store) error {
	if cfg.SnapshotCron != "" && persist != nil {
		if err := s.AddJob("snapshot", cfg.SnapshotCron, persist); err != nil {
			return err
		}
	}
	if cfg.HistoryCleanupCron != "" && hs != nil && cfg.HistoryRetentionDays > 0 {
		days := cfg.HistoryRetentionDays
		err := s.AddJob("history_cleanup", cfg.HistoryCleanupCron, func(ctx context.Context) error {
			return hs.Cleanup(days)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
