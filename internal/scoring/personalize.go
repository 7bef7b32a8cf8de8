package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"travel_recommend/internal/model"
)

const (
	tagBonusFactor   = 0.3
	priceBonusFactor = 0.2
	tagBonusPerTag   = 0.5
	maxTagBonus      = 1.0
)

// priceBands 价格与用户平均消费的相对差距及对应加分
var priceBands = []struct {
	maxDiff float64
	bonus   float64
}{
	{0.2, 0.5},
	{0.4, 0.3},
	{0.6, 0.1},
}

// TagBonus 用户标签与商品标签的包含匹配加分，每个用户标签最多计一次，上限 1
func TagBonus(weights map[string]int, it *model.Item) float64 {
	tags := normalizeWeights(weights)
	if len(tags) == 0 {
		return 0
	}
	itemTags := itemTagSet(it)
	var bonus float64
	for _, ut := range tags {
		for _, t := range itemTags {
			if strings.Contains(t, ut.lower) || strings.Contains(ut.lower, t) {
				bonus += ut.weight * tagBonusPerTag
				break
			}
		}
	}
	return math.Min(bonus, maxTagBonus)
}

// PriceBonus 商品价格越接近用户平均消费加分越高
func PriceBonus(price, avg float64) float64 {
	if avg <= 0 || price <= 0 {
		return 0
	}
	diff := math.Abs(price-avg) / avg
	for _, b := range priceBands {
		if diff <= b.maxDiff {
			return b.bonus
		}
	}
	return 0
}

// Personalize 按用户画像调整搜索结果分数并稳定重排。profile 为 nil 时原样返回。
func Personalize(results []model.Recommendation, profile *model.UserProfile, lookup func(id string) (*model.Item, bool)) []model.Recommendation {
	if profile == nil || len(results) == 0 {
		return results
	}
	out := make([]model.Recommendation, len(results))
	copy(out, results)

	for i := range out {
		it, ok := lookup(out[i].ItemID)
		if !ok {
			continue
		}
		score := out[i].Score
		if len(profile.TagWeights) > 0 {
			score += TagBonus(profile.TagWeights, it) * tagBonusFactor
		}
		if profile.AveragePrice > 0 {
			score += PriceBonus(it.Price, profile.AveragePrice) * priceBonusFactor
		}
		out[i].Score = score
		out[i].Reason = fmt.Sprintf("搜尋結果 - 個人化評分: %.2f", score)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
