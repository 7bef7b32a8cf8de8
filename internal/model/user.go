package model

// UserProfile 代表一个用户的偏好画像
type UserProfile struct {
	UserID              string         `json:"user_id" yaml:"user_id"`
	TagWeights          map[string]int `json:"user_tags" yaml:"user_tags"`
	ViewedItems         []string       `json:"products_viewed" yaml:"products_viewed"`
	AveragePrice        float64        `json:"average_price" yaml:"average_price"`
	LowestPrice         float64        `json:"lowest_price" yaml:"lowest_price"`
	HighestPrice        float64        `json:"highest_price" yaml:"highest_price"`
	ForeignTripCount    int            `json:"foreign_trip_count" yaml:"foreign_trip_count"`
	NonForeignTripCount int            `json:"non_foreign_trip_count" yaml:"non_foreign_trip_count"`
}

// NewUserProfile 创建一个全零值的画像
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:      userID,
		TagWeights:  make(map[string]int),
		ViewedItems: make([]string, 0),
	}
}

// PrefersForeign 国外行程多于国内行程时为 true
func (u *UserProfile) PrefersForeign() bool {
	return u.ForeignTripCount > u.NonForeignTripCount
}

// HasViewed 判断是否浏览过某个引用
func (u *UserProfile) HasViewed(ref string) bool {
	for _, v := range u.ViewedItems {
		if v == ref {
			return true
		}
	}
	return false
}

// Clone 深拷贝，读取方拿到的画像不会被并发写入影响
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	c.TagWeights = make(map[string]int, len(u.TagWeights))
	for k, v := range u.TagWeights {
		c.TagWeights[k] = v
	}
	c.ViewedItems = append(make([]string, 0, len(u.ViewedItems)), u.ViewedItems...)
	return &c
}
