package recommender

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/model"
	"travel_recommend/internal/scoring"
)

const (
	summaryTopTags = 5
	// explainPriceTolerance 价格与平均消费相差不超过 30% 时视为符合消费习惯
	explainPriceTolerance = 0.3

	reasonTrending = "熱門推薦"
)

// TagWeight 标签及其权重
type TagWeight struct {
	Tag    string `json:"tag"`
	Weight int    `json:"weight"`
}

// UserSummary 用户画像摘要
type UserSummary struct {
	UserID         string      `json:"user_id"`
	AveragePrice   float64     `json:"average_price"`
	PriceRange     string      `json:"price_range"`
	ForeignTrips   int         `json:"foreign_trips"`
	DomesticTrips  int         `json:"domestic_trips"`
	TotalViewed    int         `json:"total_viewed"`
	TopTags        []TagWeight `json:"top_tags"`
	PreferenceType string      `json:"preference_type"`
}

// Explanation 解释某个商品为什么适合某个用户
type Explanation struct {
	UserID      string   `json:"user_id"`
	ItemID      string   `json:"product_id"`
	Text        string   `json:"explanation"`
	MatchedTags []string `json:"matched_tags"`
	TagScore    float64  `json:"tag_score"`
	// 与用户浏览过商品的平均文本相似度
	ContentSimilarity float64 `json:"content_similarity"`
	// 与用户浏览过商品的最大共同浏览相似度
	CoViewSimilarity float64 `json:"coview_similarity"`
}

// QualityReport 用户数据完整度评估
type QualityReport struct {
	UserID         string  `json:"user_id"`
	QualityScore   float64 `json:"quality_score"`
	TagCount       int     `json:"tag_count"`
	ViewedCount    int     `json:"viewed_count"`
	HasPriceData   bool    `json:"has_price_data"`
	Recommendation string  `json:"recommendation"`
}

// Stats 目录和用户的整体统计
type Stats struct {
	catalog.Stats
	TotalUsers     int `json:"total_users"`
	UsersWithTags  int `json:"users_with_tags"`
	UsersWithViews int `json:"users_with_views"`
}

// UserIDs 所有已知用户（字典序）
func (r *Recommender) UserIDs() []string {
	return r.users.IDs()
}

// TopTags 用户权重最高的 n 个标签，权重相同按标签排序；n<=0 返回全部
func (r *Recommender) TopTags(userID string, n int) ([]TagWeight, error) {
	p, ok := r.users.Get(userID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownUser, userID)
	}
	return topTags(p.TagWeights, n), nil
}

func topTags(weights map[string]int, n int) []TagWeight {
	out := make([]TagWeight, 0, len(weights))
	for tag, w := range weights {
		out = append(out, TagWeight{Tag: tag, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Tag < out[j].Tag
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// UserSummary 画像摘要
func (r *Recommender) UserSummary(userID string) (*UserSummary, error) {
	p, ok := r.users.Get(userID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownUser, userID)
	}
	pref := "國內旅遊愛好者"
	if p.PrefersForeign() {
		pref = "國外旅遊愛好者"
	}
	return &UserSummary{
		UserID:         userID,
		AveragePrice:   p.AveragePrice,
		PriceRange:     fmt.Sprintf("$%s - $%s", formatMoney(p.LowestPrice), formatMoney(p.HighestPrice)),
		ForeignTrips:   p.ForeignTripCount,
		DomesticTrips:  p.NonForeignTripCount,
		TotalViewed:    len(p.ViewedItems),
		TopTags:        topTags(p.TagWeights, summaryTopTags),
		PreferenceType: pref,
	}, nil
}

var moneyPrinter = message.NewPrinter(language.English)

// formatMoney 四舍五入到整数并加千分位
func formatMoney(v float64) string {
	return moneyPrinter.Sprintf("%d", int64(math.Round(v)))
}

// Explain 说明商品与用户偏好的匹配情况
func (r *Recommender) Explain(userID, itemID string) (*Explanation, error) {
	p, ok := r.users.Get(userID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownUser, userID)
	}
	c := r.Catalog()
	it, ok := c.Item(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownItem, itemID)
	}

	env := r.env()
	tagScore, _ := env.Tags.ScoreItem(p.TagWeights, it)
	exp := &Explanation{UserID: userID, ItemID: itemID, TagScore: tagScore}

	var parts []string

	// 包含匹配，与搜索个人化的规则一致
	itemTags := it.Tags()
	for _, tw := range topTags(p.TagWeights, 0) {
		lower := strings.ToLower(tw.Tag)
		for _, t := range itemTags {
			t = strings.ToLower(t)
			if strings.Contains(t, lower) || strings.Contains(lower, t) {
				exp.MatchedTags = append(exp.MatchedTags, tw.Tag)
				break
			}
		}
	}
	if len(exp.MatchedTags) > 0 {
		labels := make([]string, len(exp.MatchedTags))
		for i, tag := range exp.MatchedTags {
			labels[i] = fmt.Sprintf("%s(權重:%d)", tag, p.TagWeights[tag])
		}
		parts = append(parts, "匹配您的偏好標籤: "+strings.Join(labels, ", "))
	}

	if p.AveragePrice > 0 && math.Abs(it.Price-p.AveragePrice)/p.AveragePrice <= explainPriceTolerance {
		parts = append(parts, fmt.Sprintf("價格符合您的消費習慣(平均$%s)", formatMoney(p.AveragePrice)))
	}

	if p.PrefersForeign() == it.IsForeign {
		kind := "國內"
		if it.IsForeign {
			kind = "國外"
		}
		parts = append(parts, fmt.Sprintf("符合您的%s旅遊偏好", kind))
	}

	content := r.cache.Content(c)
	interactions := r.cache.Interactions(c, r.users)
	target := c.Index(itemID)
	var sum float64
	var n int
	for _, ref := range p.ViewedItems {
		if idx, ok := c.Resolve(ref); ok && idx != target {
			sum += content.Similarity(idx, target)
			n++
		}
		if s := interactions.ItemSimilarity(ref, itemID); s > exp.CoViewSimilarity && !strings.EqualFold(ref, itemID) {
			exp.CoViewSimilarity = s
		}
	}
	if n > 0 {
		exp.ContentSimilarity = sum / float64(n)
	}

	if len(parts) == 0 {
		exp.Text = "基於系統綜合分析推薦"
	} else {
		exp.Text = strings.Join(parts, "; ")
	}
	return exp, nil
}

// SimilarItems 与指定商品相似的商品：先按文本相似度，没有结果时按共同浏览
func (r *Recommender) SimilarItems(itemID string, topN int) ([]model.Recommendation, error) {
	topN = r.topN(topN)
	env := r.env()
	recs, err := env.Content.SimilarItems(itemID, topN)
	if err != nil {
		return nil, err
	}
	if len(recs) > 0 {
		return scoring.ToRecommendations(env.Catalog, recs), nil
	}

	c := env.Catalog
	var out []model.Recommendation
	for _, rel := range r.cache.Interactions(c, r.users).SimilarItems(itemID, topN) {
		idx, ok := c.Resolve(rel.Ref)
		if !ok || c.At(idx).ID == itemID {
			continue
		}
		out = append(out, model.NewRecommendation(c.At(idx), rel.Similarity,
			fmt.Sprintf("共同瀏覽相似度: %.2f", rel.Similarity), model.MethodItemSimilarity))
	}
	return out, nil
}

// Trending 热门商品，category 按标签串包含过滤
func (r *Recommender) Trending(category string, topN int) []model.Recommendation {
	c := r.Catalog()
	trending := c.Trending(category, r.topN(topN))
	out := make([]model.Recommendation, len(trending))
	for i, t := range trending {
		score := math.Round(t.Popularity*100) / 100
		out[i] = model.NewRecommendation(c.At(t.Index), score, reasonTrending, model.MethodPopular)
	}
	return out
}

// Stats 系统统计
func (r *Recommender) Stats() Stats {
	s := Stats{Stats: r.Catalog().Stats()}
	snap := r.users.Snapshot()
	s.TotalUsers = len(snap)
	for _, p := range snap {
		if len(p.TagWeights) > 0 {
			s.UsersWithTags++
		}
		if len(p.ViewedItems) > 0 {
			s.UsersWithViews++
		}
	}
	return s
}

// QualityReport 按标签数量、浏览数量和价格数据评估画像完整度
func (r *Recommender) QualityReport(userID string) (*QualityReport, error) {
	p, ok := r.users.Get(userID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownUser, userID)
	}
	rep := &QualityReport{
		UserID:       userID,
		TagCount:     len(p.TagWeights),
		ViewedCount:  len(p.ViewedItems),
		HasPriceData: p.AveragePrice > 0,
	}

	var score float64
	switch {
	case rep.TagCount >= 5:
		score += 0.4
	case rep.TagCount >= 3:
		score += 0.3
	case rep.TagCount >= 1:
		score += 0.2
	}
	switch {
	case rep.ViewedCount >= 10:
		score += 0.3
	case rep.ViewedCount >= 5:
		score += 0.2
	case rep.ViewedCount >= 1:
		score += 0.1
	}
	if rep.HasPriceData {
		score += 0.3
	}
	rep.QualityScore = math.Min(math.Round(score*100)/100, 1)

	switch {
	case rep.QualityScore >= 0.8:
		rep.Recommendation = "很好"
	case rep.QualityScore >= 0.6:
		rep.Recommendation = "良好"
	case rep.QualityScore >= 0.4:
		rep.Recommendation = "普通"
	default:
		rep.Recommendation = "需要更多資料"
	}
	return rep, nil
}
