package catalog

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"travel_recommend/internal/logger"
	"travel_recommend/internal/model"
)

const (
	unknownProductName = "未知商品"
	// resolvePrefixRunes 按名称前缀模糊匹配时使用的字符数
	resolvePrefixRunes = 30
)

// versionSeq 保证每次加载的目录都有不同的版本号
var versionSeq atomic.Uint64

// Record 是一条原始目录记录，字段都是未经解析的字符串
type Record map[string]string

// Catalog 是加载后不可变的商品集合
type Catalog struct {
	items   []*model.Item
	byID    map[string]int
	byName  map[string]int
	version uint64
	median  float64
}

// Load 从原始记录构造目录。
// 整体不可用（空输入或没有任何一行有名称）时返回 DataFormatError，
// 单行缺失字段则替换为安全的默认值继续。
func Load(rows []Record) (*Catalog, error) {
	if len(rows) == 0 {
		return nil, &model.DataFormatError{Source: "catalog", Reason: "no rows"}
	}

	named := 0
	for _, r := range rows {
		if strings.TrimSpace(field(r, "name", "product_name")) != "" {
			named++
		}
	}
	if named == 0 {
		return nil, &model.DataFormatError{Source: "catalog", Reason: "no row has a usable name"}
	}

	c := &Catalog{
		items:   make([]*model.Item, 0, len(rows)),
		byID:    make(map[string]int, len(rows)),
		byName:  make(map[string]int, len(rows)),
		version: versionSeq.Add(1),
	}

	duplicates := 0
	for i, r := range rows {
		it := parseRecord(i, r)
		if _, exists := c.byID[it.ID]; exists {
			duplicates++
			continue
		}
		idx := len(c.items)
		c.items = append(c.items, it)
		c.byID[it.ID] = idx
		key := strings.ToLower(it.Name)
		if _, exists := c.byName[key]; !exists {
			c.byName[key] = idx
		}
	}
	if duplicates > 0 {
		logger.Warn("Catalog skipped %d rows with duplicate ids", duplicates)
	}

	c.median = median(c.prices())
	logger.Info("Catalog loaded %d items (median price %.0f)", len(c.items), c.median)
	return c, nil
}

func parseRecord(ordinal int, r Record) *model.Item {
	name := strings.TrimSpace(field(r, "name", "product_name"))
	if name == "" {
		name = unknownProductName
	}
	id := strings.TrimSpace(field(r, "id", "product_id"))
	if id == "" {
		id = strconv.Itoa(ordinal)
	}

	activityRaw := strings.TrimSpace(field(r, "activity_tags"))
	locationRaw := strings.TrimSpace(field(r, "location_tags"))
	description := strings.TrimSpace(field(r, "description", "product_detail"))

	it := &model.Item{
		ID:           id,
		Name:         name,
		Price:        parsePrice(field(r, "price")),
		ActivityTags: ParseTags(activityRaw),
		LocationTags: ParseTags(locationRaw),
		Description:  description,
		Link:         strings.TrimSpace(field(r, "link")),
		IsForeign:    parseBool(field(r, "is_foreign")),
		ActivityRaw:  activityRaw,
		LocationRaw:  locationRaw,
	}
	it.CombinedText = strings.ToLower(name + " " + activityRaw + " " + locationRaw + " " + description)
	return it
}

// field 依次取第一个非空的候选字段
func field(r Record, keys ...string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

func parsePrice(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || p < 0 || p != p {
		return 0
	}
	return p
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "t":
		return true
	}
	return false
}

// ParseTags 解析分号分隔的标签串
func ParseTags(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ";")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// Version 目录版本号，缓存据此判断是否需要重建
func (c *Catalog) Version() uint64 { return c.version }

// Len 商品数量
func (c *Catalog) Len() int { return len(c.items) }

// At 按目录顺序取商品
func (c *Catalog) At(i int) *model.Item { return c.items[i] }

// Items 返回目录顺序的商品切片（只读）
func (c *Catalog) Items() []*model.Item { return c.items }

// Item 按 id 查找
func (c *Catalog) Item(id string) (*model.Item, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return c.items[idx], true
}

// Index 返回商品在目录中的位置，用于稳定排序
func (c *Catalog) Index(id string) int {
	if idx, ok := c.byID[id]; ok {
		return idx
	}
	return -1
}

// Resolve 把浏览记录中的引用（id 或商品名）映射到目录位置。
// 顺序：id、名称精确匹配（忽略大小写）、名称前 30 个字符包含匹配。
func (c *Catalog) Resolve(ref string) (int, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1, false
	}
	if idx, ok := c.byID[ref]; ok {
		return idx, true
	}
	lower := strings.ToLower(ref)
	if idx, ok := c.byName[lower]; ok {
		return idx, true
	}
	prefix := lower
	if utf8.RuneCountInString(prefix) > resolvePrefixRunes {
		prefix = string([]rune(prefix)[:resolvePrefixRunes])
	}
	for i, it := range c.items {
		if strings.Contains(strings.ToLower(it.Name), prefix) {
			return i, true
		}
	}
	return -1, false
}

// MedianPrice 目录价格中位数（偶数个取中间两个的平均）
func (c *Catalog) MedianPrice() float64 { return c.median }

// Band 返回价格落在 [low*median, high*median] 的商品位置（目录顺序）
func (c *Catalog) Band(low, high float64) []int {
	lo, hi := c.median*low, c.median*high
	var out []int
	for i, it := range c.items {
		if it.Price >= lo && it.Price <= hi {
			out = append(out, i)
		}
	}
	return out
}

func (c *Catalog) prices() []float64 {
	ps := make([]float64, len(c.items))
	for i, it := range c.items {
		ps[i] = it.Price
	}
	return ps
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
