package user

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"travel_recommend/internal/model"
)

// interactionSeq 全局递增，不同 Store 实例的版本号也不会重复
var interactionSeq atomic.Uint64

// Provider 定义了推荐流程读取用户画像的接口
type Provider interface {
	Get(userID string) (*model.UserProfile, bool)
	IDs() []string
	InteractionVersion() uint64
	ViewedSnapshot() (ids []string, viewed [][]string, version uint64)
}

// Snapshot 所有画像的深拷贝，键为 user id
type Snapshot map[string]*model.UserProfile

// Store 内存中的用户画像集合。
// 写操作由同一把锁串行化，读取方总是拿到完整画像的拷贝。
type Store struct {
	mu       sync.RWMutex
	profiles map[string]*model.UserProfile

	// interactionVersion 只在"浏览过的商品集合"变化时更新，协同过滤缓存据此失效
	interactionVersion uint64
}

// NewStore 创建一个空的 Store
func NewStore() *Store {
	return &Store{
		profiles:           make(map[string]*model.UserProfile),
		interactionVersion: interactionSeq.Add(1),
	}
}

// Get 返回画像的拷贝，不存在时 ok 为 false
func (s *Store) Get(userID string) (*model.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// GetOrCreate 返回画像的拷贝，不存在时先创建全零画像
func (s *Store) GetOrCreate(userID string) *model.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(userID).Clone()
}

func (s *Store) getOrCreateLocked(userID string) *model.UserProfile {
	p, ok := s.profiles[userID]
	if !ok {
		p = model.NewUserProfile(userID)
		s.profiles[userID] = p
	}
	return p
}

// BumpTagWeight 标签权重 +1（画像和标签不存在时创建），返回新权重
func (s *Store) BumpTagWeight(userID, tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.getOrCreateLocked(userID)
	p.TagWeights[tag]++
	return p.TagWeights[tag]
}

// RecordView 记录一次浏览：商品 id 不在列表中则追加，商品的每个标签权重 +1。
// 旧画像按商品名记录浏览，名称命中也算已浏览。
// 返回是否为第一次浏览该商品。
func (s *Store) RecordView(userID string, item *model.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.getOrCreateLocked(userID)
	added := false
	if !viewedItem(p, item) {
		p.ViewedItems = append(p.ViewedItems, item.ID)
		added = true
		s.interactionVersion = interactionSeq.Add(1)
	}
	for _, tag := range item.Tags() {
		if tag = strings.TrimSpace(tag); tag != "" {
			p.TagWeights[tag]++
		}
	}
	return added
}

func viewedItem(p *model.UserProfile, item *model.Item) bool {
	if p.HasViewed(item.ID) {
		return true
	}
	return item.Name != "" && p.HasViewed(item.Name)
}

// Snapshot 返回所有画像的深拷贝
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(Snapshot, len(s.profiles))
	for id, p := range s.profiles {
		snap[id] = p.Clone()
	}
	return snap
}

// Restore 用快照整体替换当前画像
func (s *Store) Restore(snap Snapshot) {
	profiles := make(map[string]*model.UserProfile, len(snap))
	for id, p := range snap {
		if p == nil {
			continue
		}
		c := p.Clone()
		c.UserID = id
		if c.TagWeights == nil {
			c.TagWeights = make(map[string]int)
		}
		if c.ViewedItems == nil {
			c.ViewedItems = make([]string, 0)
		}
		profiles[id] = c
	}

	s.mu.Lock()
	s.profiles = profiles
	s.interactionVersion = interactionSeq.Add(1)
	s.mu.Unlock()
}

// IDs 按字典序返回所有用户 id
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idsLocked()
}

func (s *Store) idsLocked() []string {
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len 用户数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// InteractionVersion 浏览集合的版本号
func (s *Store) InteractionVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interactionVersion
}

// ViewedSnapshot 在同一把读锁下取出所有用户（字典序）的浏览列表和对应版本号，
// 构建用户-商品矩阵时保证三者一致。
func (s *Store) ViewedSnapshot() ([]string, [][]string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.idsLocked()
	viewed := make([][]string, len(ids))
	for i, id := range ids {
		viewed[i] = append([]string(nil), s.profiles[id].ViewedItems...)
	}
	return ids, viewed, s.interactionVersion
}
