package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanup(t *testing.T) {
	// 1. 创建临时文件
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "test_history.jsonl")

	// 2. 准备数据：包含过期和未过期的数据
	now := time.Now().Unix()
	records := []Record{
		{UserID: "u1", ItemID: "old_item", Scene: "recommend", Timestamp: now - 8*24*3600},
		{UserID: "u1", ItemID: "new_item", Scene: "recommend", Timestamp: now - 1*24*3600},
		{UserID: "u2", ItemID: "just_expired", Scene: "search", Timestamp: now - 7*24*3600 - 100},
		{UserID: "u2", ItemID: "just_kept", Scene: "search", Timestamp: now - 7*24*3600 + 100},
	}

	f, err := os.Create(filePath)
	require.NoError(t, err)
	encoder := json.NewEncoder(f)
	for _, r := range records {
		require.NoError(t, encoder.Encode(r))
	}
	f.Close()

	// 3. 初始化 Store
	store, err := NewFileStore(filePath)
	require.NoError(t, err)

	// 4. 执行清理 (保留 7 天)
	require.NoError(t, store.Cleanup(7))

	// 5. 验证内存数据
	require.Len(t, store.records, 2)
	for _, r := range store.records {
		assert.NotEqual(t, "old_item", r.ItemID)
		assert.NotEqual(t, "just_expired", r.ItemID)
	}

	// 6. 验证文件持久化
	store2, err := NewFileStore(filePath)
	require.NoError(t, err)
	assert.Len(t, store2.records, 2)
}

func TestSaveAndQueryHistory(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "history.jsonl"))
	require.NoError(t, err)

	base := time.Now()
	store.now = func() time.Time { return base.Add(-10 * 24 * time.Hour) }
	require.NoError(t, store.SaveHistory("u1", "recommend", []string{"A"}))
	store.now = func() time.Time { return base }
	require.NoError(t, store.SaveHistory("u1", "recommend", []string{"B", "C"}))
	require.NoError(t, store.SaveHistory("u1", "search", []string{"C", "D"}))
	require.NoError(t, store.SaveHistory("u2", "recommend", []string{"E"}))
	require.NoError(t, store.SaveHistory("u2", "recommend", nil))

	got, err := store.GetRecentHistory("u1", "recommend", 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, got)

	got, err = store.GetRecentHistory("u1", "", 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D"}, got)

	recent := store.Recent("u1", 2)
	require.Len(t, recent, 2)
	assert.Equal(t, "B", recent[0].ItemID)
	assert.Len(t, store.Recent("u1", 0), 5)
}
