package scoring

import (
	"sort"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/index"
	"travel_recommend/internal/logger"
	"travel_recommend/internal/model"
)

// DefaultNeighbours 协同过滤参考的相似用户数
const DefaultNeighbours = 5

const reasonCollaborative = "與您相似的用戶也喜歡"

// CollaborativeScorer 基于用户-用户余弦相似度打分
type CollaborativeScorer struct {
	catalog    *catalog.Catalog
	idx        *index.InteractionIndex
	neighbours int
}

// NewCollaborativeScorer 创建协同过滤打分器，neighbours<=0 时使用默认值
func NewCollaborativeScorer(c *catalog.Catalog, idx *index.InteractionIndex, neighbours int) *CollaborativeScorer {
	if neighbours <= 0 {
		neighbours = DefaultNeighbours
	}
	return &CollaborativeScorer{catalog: c, idx: idx, neighbours: neighbours}
}

// Score 取最相似的若干用户，把他们浏览过而目标用户没浏览过的商品作为候选，
// 候选分数为推荐它的邻居相似度之和。
// 用户未知、没有邻居或没有候选时返回空列表。
func (s *CollaborativeScorer) Score(userID string, topN int) []model.ScoredRecommendation {
	if topN <= 0 || !s.idx.HasUser(userID) {
		return nil
	}
	neighbours := s.idx.Neighbours(userID, s.neighbours)
	if len(neighbours) == 0 {
		logger.Debug("Collaborative scorer: no neighbours for user %s", userID)
		return nil
	}

	own := make(map[string]struct{})
	for _, ref := range s.idx.Viewed(userID) {
		own[ref] = struct{}{}
	}

	scores := make(map[string]float64)
	var order []string
	for _, nb := range neighbours {
		for _, ref := range s.idx.Viewed(nb.UserID) {
			if _, ok := own[ref]; ok {
				continue
			}
			if _, ok := scores[ref]; !ok {
				order = append(order, ref)
			}
			scores[ref] += nb.Similarity
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })

	out := make([]model.ScoredRecommendation, 0, topN)
	for _, ref := range order {
		it, ok := s.catalog.Item(ref)
		if !ok {
			// 已下架或无法解析的浏览引用
			continue
		}
		out = append(out, model.ScoredRecommendation{
			ItemID: it.ID,
			Score:  scores[ref],
			Reason: reasonCollaborative,
			Method: model.MethodCollaborative,
		})
		if len(out) == topN {
			break
		}
	}
	return out
}
