package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Record 代表一条已展示给用户的推荐记录
type Record struct {
	UserID    string `json:"user_id"`
	ItemID    string `json:"product_id"`
	Scene     string `json:"scene"` // e.g., "recommend", "search"
	Timestamp int64  `json:"timestamp"`
}

// Store 定义历史记录存储接口
type Store interface {
	// GetRecentHistory 获取用户最近 N 天被推荐过的商品 id（scene 为空表示所有场景）
	GetRecentHistory(userID string, scene string, days int) ([]string, error)
	// SaveHistory 保存推荐历史
	SaveHistory(userID string, scene string, itemIDs []string) error
	// Recent 按时间倒序返回用户最近的 limit 条记录
	Recent(userID string, limit int) []Record
	// Cleanup 删除超过 days 天的记录
	Cleanup(days int) error
}

// FileStore 基于 JSONL 文件的历史存储实现
type FileStore struct {
	filePath string
	mu       sync.RWMutex
	records  []Record // 内存缓存，用于快速查询
	now      func() time.Time
}

// NewFileStore 创建一个新的 FileStore
// 如果文件不存在，会自动创建
func NewFileStore(filePath string) (*FileStore, error) {
	fs := &FileStore{
		filePath: filePath,
		records:  make([]Record, 0),
		now:      time.Now,
	}

	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history dir: %w", err)
		}
	}
	if err := fs.load(); err != nil {
		return nil, err
	}

	return fs, nil
}

// load 从文件加载所有历史记录到内存
func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.filePath, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			// 忽略损坏的行
			continue
		}
		s.records = append(s.records, record)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan history file: %w", err)
	}

	return nil
}

// GetRecentHistory 获取用户最近 N 天的历史记录 (返回商品 id 列表，已去重)
func (s *FileStore) GetRecentHistory(userID string, scene string, days int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Unix() - int64(days*24*60*60)

	var result []string
	seen := make(map[string]struct{})
	for _, r := range s.records {
		if r.UserID != userID || r.Timestamp < cutoff {
			continue
		}
		if scene != "" && r.Scene != scene {
			continue
		}
		if _, ok := seen[r.ItemID]; ok {
			continue
		}
		seen[r.ItemID] = struct{}{}
		result = append(result, r.ItemID)
	}

	return result, nil
}

// SaveHistory 保存新的推荐历史到文件和内存
func (s *FileStore) SaveHistory(userID string, scene string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file for appending: %w", err)
	}
	defer f.Close()

	now := s.now().Unix()
	encoder := json.NewEncoder(f)

	for _, id := range itemIDs {
		record := Record{
			UserID:    userID,
			ItemID:    id,
			Scene:     scene,
			Timestamp: now,
		}

		// 1. 写入文件
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to write history record: %w", err)
		}

		// 2. 更新内存
		s.records = append(s.records, record)
	}

	return nil
}

// Recent 按时间倒序返回用户最近的记录，limit<=0 表示不限制
func (s *FileStore) Recent(userID string, limit int) []Record {
	s.mu.RLock()
	var out []Record
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Cleanup 删除超过 days 天的记录，并重写文件（先写临时文件再 rename）
func (s *FileStore) Cleanup(days int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Unix() - int64(days*24*60*60)
	kept := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if r.Timestamp >= cutoff {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(s.records) {
		return nil
	}

	tmp := s.filePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	w := bufio.NewWriter(f)
	encoder := json.NewEncoder(w)
	for _, r := range kept {
		if err := encoder.Encode(r); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("failed to write history record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to flush history file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close history file: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}

	s.records = kept
	return nil
}
