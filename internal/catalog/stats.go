package catalog

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// TagCount 标签出现次数
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats 目录统计信息
type Stats struct {
	TotalItems        int        `json:"total_products"`
	MinPrice          float64    `json:"min_price"`
	MaxPrice          float64    `json:"max_price"`
	MeanPrice         float64    `json:"mean_price"`
	MedianPrice       float64    `json:"median_price"`
	AverageTextLength float64    `json:"average_content_length"`
	TopActivityTags   []TagCount `json:"top_activity_tags"`
	TopLocationTags   []TagCount `json:"top_location_tags"`
}

// Stats 汇总价格、文本长度和最常见的标签
func (c *Catalog) Stats() Stats {
	s := Stats{TotalItems: len(c.items), MedianPrice: c.median}
	if len(c.items) == 0 {
		return s
	}

	activity := make(map[string]int)
	location := make(map[string]int)
	var sum, textLen float64
	s.MinPrice = c.items[0].Price
	for _, it := range c.items {
		sum += it.Price
		textLen += float64(utf8.RuneCountInString(it.CombinedText))
		if it.Price < s.MinPrice {
			s.MinPrice = it.Price
		}
		if it.Price > s.MaxPrice {
			s.MaxPrice = it.Price
		}
		for _, t := range it.ActivityTags {
			activity[t]++
		}
		for _, t := range it.LocationTags {
			location[t]++
		}
	}
	n := float64(len(c.items))
	s.MeanPrice = sum / n
	s.AverageTextLength = textLen / n
	s.TopActivityTags = topTags(activity, 5)
	s.TopLocationTags = topTags(location, 5)
	return s
}

func topTags(counts map[string]int, n int) []TagCount {
	out := make([]TagCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TagCount{Tag: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// TrendingItem 热门商品及其热度分
type TrendingItem struct {
	Index      int
	Popularity float64
}

// Trending 按"标签丰富度 / 价格"计算热度，category 非空时按原始标签串包含过滤。
// 价格为 0 的商品无法计算比值，排在最后。
func (c *Catalog) Trending(category string, n int) []TrendingItem {
	category = strings.ToLower(strings.TrimSpace(category))
	var out []TrendingItem
	for i, it := range c.items {
		if category != "" &&
			!strings.Contains(strings.ToLower(it.ActivityRaw), category) &&
			!strings.Contains(strings.ToLower(it.LocationRaw), category) {
			continue
		}
		richness := float64(utf8.RuneCountInString(it.ActivityRaw) + utf8.RuneCountInString(it.LocationRaw))
		pop := -1.0
		if it.Price > 0 {
			pop = richness / (it.Price / 1000)
		}
		out = append(out, TrendingItem{Index: i, Popularity: pop})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Popularity > out[j].Popularity
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
