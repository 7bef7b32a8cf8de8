package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, m *Manager, id string, status Status) Task {
	t.Helper()
	var got Task
	require.Eventually(t, func() bool {
		var err error
		got, err = m.GetTask(id)
		return err == nil && got.Status == status
	}, time.Second, 5*time.Millisecond)
	return got
}

func TestSubmitCompletes(t *testing.T) {
	m := NewManager()
	task := m.Submit(context.Background(), "reload_catalog", func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, "reload_catalog", task.Kind)

	done := waitFor(t, m, task.ID, StatusCompleted)
	assert.Equal(t, 42, done.Result)
	assert.NotNil(t, done.FinishedAt)
}

func TestSubmitFails(t *testing.T) {
	m := NewManager()
	task := m.Submit(context.Background(), "reload_profiles", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("bad file")
	})
	failed := waitFor(t, m, task.ID, StatusFailed)
	assert.Equal(t, "bad file", failed.Error)
}

func TestUnknownTask(t *testing.T) {
	m := NewManager()
	_, err := m.GetTask("missing")
	assert.Error(t, err)
	assert.Error(t, m.UpdateStatus("missing", StatusProcessing))
	assert.Error(t, m.SetResult("missing", nil))
	assert.Error(t, m.SetError("missing", errors.New("x")))
}

func TestSubmitRecoversPanic(t *testing.T) {
	m := NewManager()
	task := m.Submit(context.Background(), "reload_catalog", func(ctx context.Context) (interface{}, error) {
		panic("corrupt")
	})
	failed := waitFor(t, m, task.ID, StatusFailed)
	assert.Contains(t, failed.Error, "corrupt")
}

func TestPruneKeepsRunningTasks(t *testing.T) {
	m := NewManager()
	pending := m.NewTask("reload_profiles")
	done := m.NewTask("reload_catalog")
	require.NoError(t, m.SetResult(done.ID, nil))

	assert.Equal(t, 0, m.Prune(time.Hour))
	assert.Equal(t, 1, m.Prune(-time.Second))
	assert.Equal(t, 1, m.Len())

	_, err := m.GetTask(pending.ID)
	assert.NoError(t, err)
}
