package recommender

import (
	"fmt"
	"path/filepath"
	"time"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/logger"
	"travel_recommend/internal/metrics"
	"travel_recommend/internal/user"
)

// ReloadResult 重新加载后的数据规模
type ReloadResult struct {
	Items int `json:"items,omitempty"`
	Users int `json:"users,omitempty"`
}

// ReloadCatalog 从 CSV 重新加载目录。失败时保留旧目录。
// 新目录版本号不同，相似度索引会在下一次请求时重建。
func (r *Recommender) ReloadCatalog(path string) (*ReloadResult, error) {
	c, err := catalog.LoadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("reload catalog: %w", err)
	}

	r.mu.Lock()
	r.catalog = c
	r.mu.Unlock()

	metrics.CatalogItems.Set(float64(c.Len()))
	logger.Info("Catalog reloaded from %s: %d items", path, c.Len())
	return &ReloadResult{Items: c.Len()}, nil
}

// ReloadProfiles 用画像文件替换画像库内容。失败时保留旧画像。
func (r *Recommender) ReloadProfiles(path string) (*ReloadResult, error) {
	snap, err := user.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reload profiles: %w", err)
	}
	r.users.Restore(snap)

	metrics.UserProfiles.Set(float64(r.users.Len()))
	logger.Info("Profiles reloaded from %s: %d users", path, r.users.Len())
	return &ReloadResult{Users: r.users.Len()}, nil
}

// Export 导出画像快照，path 为目录或空时生成带时间戳的文件名
func (r *Recommender) Export(path string) (string, error) {
	if path == "" || filepath.Ext(path) == "" {
		name := fmt.Sprintf("users_backup_%s.json", time.Now().Format("20060102_150405"))
		path = filepath.Join(path, name)
	}
	if err := user.SaveFile(path, r.users.Snapshot()); err != nil {
		return "", fmt.Errorf("export profiles: %w", err)
	}
	logger.Info("Profiles exported to %s", path)
	return path, nil
}
