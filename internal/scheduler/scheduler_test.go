package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel_recommend/internal/history"
)

func TestAddJobValidatesCronExpression(t *testing.T) {
	s := New()
	assert.Error(t, s.AddJob("bad", "not a cron expression", func(ctx context.Context) error { return nil }))
	require.NoError(t, s.AddJob("ok", "@every 1h", func(ctx context.Context) error { return nil }))
	assert.Error(t, s.AddJob("ok", "@every 1h", func(ctx context.Context) error { return nil }), "duplicate name")
}

func TestRunNowSurvivesFailures(t *testing.T) {
	s := New()
	var calls atomic.Int32
	require.NoError(t, s.AddJob("fail", "@daily", func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	}))
	require.NoError(t, s.AddJob("panic", "@daily", func(ctx context.Context) error {
		calls.Add(1)
		panic("boom")
	}))

	assert.NoError(t, s.RunNow("fail"))
	assert.NoError(t, s.RunNow("panic"))
	assert.Equal(t, int32(2), calls.Load())
	assert.Error(t, s.RunNow("missing"))
}

func TestScheduledJobRuns(t *testing.T) {
	s := New()
	var calls atomic.Int32
	require.NoError(t, s.AddJob("tick", "@every 1s", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}))
	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestRegisterDefaults(t *testing.T) {
	hs, err := history.NewFileStore(filepath.Join(t.TempDir(), "history.jsonl"))
	require.NoError(t, err)

	var persisted atomic.Int32
	s := New()
	require.NoError(t, RegisterDefaults(s, Jobs{
		SnapshotCron:         "@hourly",
		HistoryCleanupCron:   "@daily",
		HistoryRetentionDays: 30,
	}, func(ctx context.Context) error {
		persisted.Add(1)
		return nil
	}, hs))
	assert.Equal(t, []string{"history_cleanup", "snapshot"}, s.Jobs())

	require.NoError(t, s.RunNow("snapshot"))
	assert.Equal(t, int32(1), persisted.Load())
	require.NoError(t, s.RunNow("history_cleanup"))

	empty := New()
	require.NoError(t, RegisterDefaults(empty, Jobs{}, nil, nil))
	assert.Empty(t, empty.Jobs())
}

func TestCatalogWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,a\n"), 0o644))

	var reloads atomic.Int32
	w, err := NewCatalogWatcher(path, 20*time.Millisecond, func() error {
		reloads.Add(1)
		return nil
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// 其他文件的变化不触发
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,a\n2,b\n"), 0o644))

	assert.Eventually(t, func() bool { return reloads.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}
