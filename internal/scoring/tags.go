package scoring

import (
	"sort"
	"strings"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/model"
)

// DefaultFuzzyDiscount 模糊匹配相对精确匹配的折扣
const DefaultFuzzyDiscount = 0.8

// Preferences 标签打分前的可选过滤条件
type Preferences struct {
	PriceRange        *model.PriceRange
	ForeignPreference *bool
}

func (p *Preferences) allows(it *model.Item) bool {
	if p == nil {
		return true
	}
	if p.PriceRange != nil && !p.PriceRange.Contains(it.Price) {
		return false
	}
	if p.ForeignPreference != nil && *p.ForeignPreference != it.IsForeign {
		return false
	}
	return true
}

// TagScorer 用户标签权重与商品标签的加权匹配
type TagScorer struct {
	catalog       *catalog.Catalog
	synonyms      SynonymMatcher
	fuzzyDiscount float64
}

// NewTagScorer 创建标签打分器；synonyms 为 nil 时使用内置词表，discount<=0 时使用 0.8
func NewTagScorer(c *catalog.Catalog, synonyms SynonymMatcher, discount float64) *TagScorer {
	if synonyms == nil {
		synonyms = DefaultSynonyms()
	}
	if discount <= 0 {
		discount = DefaultFuzzyDiscount
	}
	return &TagScorer{catalog: c, synonyms: synonyms, fuzzyDiscount: discount}
}

type weightedTag struct {
	tag    string // 原始写法，用于展示
	lower  string
	weight float64 // 已按最大权重归一化
}

// normalizeWeights 按标签排序并除以最大权重；没有正权重时返回 nil
func normalizeWeights(weights map[string]int) []weightedTag {
	maxW := 0
	for _, w := range weights {
		if w > maxW {
			maxW = w
		}
	}
	if maxW <= 0 {
		return nil
	}
	out := make([]weightedTag, 0, len(weights))
	for tag, w := range weights {
		lower := strings.ToLower(strings.TrimSpace(tag))
		if lower == "" || w <= 0 {
			continue
		}
		out = append(out, weightedTag{tag: tag, lower: lower, weight: float64(w) / float64(maxW)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].tag < out[j].tag })
	return out
}

func itemTagSet(it *model.Item) []string {
	tags := it.Tags()
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// fuzzy 包含关系（任一方向）或同义词表命中
func (s *TagScorer) fuzzy(userTag, itemTag string) bool {
	return strings.Contains(itemTag, userTag) || strings.Contains(userTag, itemTag) ||
		s.synonyms.Similar(userTag, itemTag)
}

// match 计算单个商品的得分以及参与匹配的用户标签
func (s *TagScorer) match(tags []weightedTag, it *model.Item) (float64, []string) {
	itemTags := itemTagSet(it)
	if len(itemTags) == 0 {
		return 0, nil
	}
	var score float64
	var matched []string
	for _, ut := range tags {
		exact := false
		for _, t := range itemTags {
			if t == ut.lower {
				exact = true
				break
			}
		}
		if exact {
			score += ut.weight
			matched = append(matched, ut.tag)
			continue
		}
		for _, t := range itemTags {
			if s.fuzzy(ut.lower, t) {
				score += ut.weight * s.fuzzyDiscount
				matched = append(matched, ut.tag)
				break
			}
		}
	}
	return score, matched
}

// Score 对全目录打分，得分为 0 的商品不出现；偏好过滤在排序之前进行。
// 权重为空或最大权重不为正时返回空列表。
func (s *TagScorer) Score(weights map[string]int, prefs *Preferences, topN int) []model.ScoredRecommendation {
	tags := normalizeWeights(weights)
	if len(tags) == 0 || topN <= 0 {
		return nil
	}

	var out []model.ScoredRecommendation
	for _, it := range s.catalog.Items() {
		if !prefs.allows(it) {
			continue
		}
		score, matched := s.match(tags, it)
		if score <= 0 {
			continue
		}
		out = append(out, model.ScoredRecommendation{
			ItemID:      it.ID,
			Score:       score,
			Reason:      "匹配您的偏好標籤: " + strings.Join(matched, ", "),
			Method:      model.MethodTagMatching,
			MatchedTags: matched,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

// ScoreItem 单个商品的标签得分，用于解释推荐
func (s *TagScorer) ScoreItem(weights map[string]int, it *model.Item) (float64, []string) {
	tags := normalizeWeights(weights)
	if len(tags) == 0 {
		return 0, nil
	}
	return s.match(tags, it)
}
