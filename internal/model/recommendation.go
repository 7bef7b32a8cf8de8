package model

// Method 标记一条推荐来自哪种算法
type Method string

const (
	MethodContent        Method = "content"
	MethodCollaborative  Method = "collaborative"
	MethodTagMatching    Method = "tag_matching"
	MethodPopular        Method = "popular"
	MethodDefault        Method = "default"
	MethodSearch         Method = "search"
	MethodItemSimilarity Method = "item_similarity"
)

// Label 返回方法在推荐理由中的中文名
func (m Method) Label() string {
	switch m {
	case MethodContent:
		return "內容相似"
	case MethodCollaborative:
		return "協同過濾"
	case MethodTagMatching:
		return "標籤匹配"
	default:
		return string(m)
	}
}

// ScoredRecommendation 是单个打分器产出的临时结果。
// Score 的尺度随方法不同，加权之前不可相互比较。
type ScoredRecommendation struct {
	ItemID      string   `json:"product_id"`
	Score       float64  `json:"score"`
	Reason      string   `json:"reason"`
	Method      Method   `json:"method"`
	MatchedTags []string `json:"matched_tags,omitempty"`
}

// Recommendation 是返回给调用方的最终排序条目
type Recommendation struct {
	ItemID       string   `json:"product_id"`
	Name         string   `json:"product_name"`
	Price        float64  `json:"price"`
	ActivityTags []string `json:"activity_tags"`
	LocationTags []string `json:"location_tags"`
	Link         string   `json:"link,omitempty"`
	Score        float64  `json:"score"`
	Reason       string   `json:"reason"`
	Methods      []Method `json:"methods"`
}

// NewRecommendation 用目录条目和打分结果组装输出行
func NewRecommendation(it *Item, score float64, reason string, methods ...Method) Recommendation {
	return Recommendation{
		ItemID:       it.ID,
		Name:         it.Name,
		Price:        it.Price,
		ActivityTags: it.ActivityTags,
		LocationTags: it.LocationTags,
		Link:         it.Link,
		Score:        score,
		Reason:       reason,
		Methods:      methods,
	}
}
