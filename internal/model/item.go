package model

// Item 代表目录中的一个旅游商品，加载后不可变
type Item struct {
	ID           string   `json:"product_id"`
	Name         string   `json:"product_name"`
	Price        float64  `json:"price"`
	ActivityTags []string `json:"activity_tags"`
	LocationTags []string `json:"location_tags"`
	Description  string   `json:"-"`
	Link         string   `json:"link,omitempty"`
	IsForeign    bool     `json:"is_foreign"`

	// 原始的分号分隔标签串，用于热门度计算和文本向量
	ActivityRaw string `json:"-"`
	LocationRaw string `json:"-"`

	// CombinedText 是名称、标签和描述的小写拼接，供 TF-IDF 使用
	CombinedText string `json:"-"`
}

// Tags 返回活动标签和地点标签（保持顺序）
func (it *Item) Tags() []string {
	tags := make([]string, 0, len(it.ActivityTags)+len(it.LocationTags))
	tags = append(tags, it.ActivityTags...)
	tags = append(tags, it.LocationTags...)
	return tags
}

// PriceRange 闭区间价格范围
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains 价格是否在范围内
func (r PriceRange) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}
