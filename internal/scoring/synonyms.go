package scoring

import "strings"

// SynonymMatcher 判断用户标签和商品标签是否为同义/相关标签。
// 两个参数都已经小写并去掉首尾空白。
type SynonymMatcher interface {
	Similar(userTag, itemTag string) bool
}

// SynonymPair 一组相关标签
type SynonymPair [2]string

// DefaultSynonymPairs 旅游领域的内置相关标签
var DefaultSynonymPairs = []SynonymPair{
	{"溫泉", "泡湯"},
	{"美食", "料理"},
	{"文化", "歷史"},
	{"自然", "景觀"},
	{"親子", "家庭"},
	{"主題樂園", "遊樂園"},
	{"東京", "晴空塔"},
	{"富士山", "富士"},
	{"雪", "雪景"},
}

// SynonymTable 基于词对的匹配：一侧包含 a 且另一侧包含 b 即视为相关
type SynonymTable struct {
	pairs []SynonymPair
}

// NewSynonymTable 由词对创建，空词会被忽略
func NewSynonymTable(pairs ...SynonymPair) *SynonymTable {
	t := &SynonymTable{}
	return t.With(pairs...)
}

// DefaultSynonyms 内置词表
func DefaultSynonyms() *SynonymTable {
	return NewSynonymTable(DefaultSynonymPairs...)
}

// With 返回追加了词对的新表，原表不变
func (t *SynonymTable) With(pairs ...SynonymPair) *SynonymTable {
	out := &SynonymTable{pairs: append([]SynonymPair(nil), t.pairs...)}
	for _, p := range pairs {
		a := strings.ToLower(strings.TrimSpace(p[0]))
		b := strings.ToLower(strings.TrimSpace(p[1]))
		if a == "" || b == "" {
			continue
		}
		out.pairs = append(out.pairs, SynonymPair{a, b})
	}
	return out
}

// Len 词对数量
func (t *SynonymTable) Len() int { return len(t.pairs) }

func (t *SynonymTable) Similar(userTag, itemTag string) bool {
	for _, p := range t.pairs {
		if (strings.Contains(userTag, p[0]) && strings.Contains(itemTag, p[1])) ||
			(strings.Contains(userTag, p[1]) && strings.Contains(itemTag, p[0])) {
			return true
		}
	}
	return false
}
