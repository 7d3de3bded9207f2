// Package rank 实现协同重排：把内容分与用户自身历史推导出的协同分加权融合。
package rank

import (
	"context"
	"sort"
	"time"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/utils"
	"github.com/rushteam/shoprec/recall"
	"github.com/rushteam/shoprec/simcache"
)

// fallbackBudget 是请求超时后热度兜底查询的独立时间预算。
const fallbackBudget = 2 * time.Second

// Collaborative 是协同重排 Node。
//
// 对每个候选，协同分是它与用户历史上每个商品的相似度对历史权重的加权平均，
// 只计入相似度超过 SimilarityFloor 的商品对：
//
//	collab = Σ(sim_i × weight_i) / Σ(sim_i)
//
// 相似度优先取 embedding 余弦（走相似度缓存），任一侧缺 embedding 时
// 退化为两商品交互用户集合的 Jaccard 相似度。
// 历史为空时走热度兜底；请求超时时也降级为热度兜底而不是报错。
type Collaborative struct {
	Catalog core.CatalogReader
	Ledger  core.LedgerStore
	Cache   *simcache.Cache
	Cfg     *core.WeightConfig
}

func (n *Collaborative) Name() string        { return "rank.collaborative" }
func (n *Collaborative) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *Collaborative) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	cfg := n.Cfg
	if cfg == nil {
		cfg = core.DefaultWeightConfig()
	}

	history, err := n.Ledger.UserInteractions(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}
	// 相似度查询是 O(候选 × 历史)，只取最近的一段历史
	if len(history) > cfg.HistorySample {
		history = history[:cfg.HistorySample]
	}

	if len(history) == 0 || ctx.Err() != nil {
		if err := n.popularityBlend(ctx, items, cfg); err != nil {
			return nil, err
		}
		return sortByScore(items), nil
	}

	for _, it := range items {
		if ctx.Err() != nil {
			// 超时降级：剩余部分整体改走热度融合
			if err := n.popularityBlend(ctx, items, cfg); err != nil {
				return nil, err
			}
			return sortByScore(items), nil
		}

		var simSum, weighted float64
		for _, rec := range history {
			if rec.ProductID == it.ID {
				continue
			}
			sim, err := n.Cache.GetOrCompute(ctx, it.ID, rec.ProductID, n.similarity)
			if err != nil || sim <= cfg.SimilarityFloor {
				continue
			}
			simSum += sim
			weighted += sim * rec.Weight
		}

		if simSum > 0 {
			it.CollabScore = weighted / simSum
		}
		it.Score = cfg.ContentBlend*it.ContentScore + cfg.CollabBlend*it.CollabScore
		it.PutLabel("rank_mode", utils.Label{Value: "collaborative", Source: "rank"})
	}
	return sortByScore(items), nil
}

// popularityBlend 给所有候选套热度兜底分：
// collab = min(商品交互次数/PopularityScale, 1)，融合权重反转（协同 0.7、内容 0.3）。
func (n *Collaborative) popularityBlend(ctx context.Context, items []*core.Item, cfg *core.WeightConfig) error {
	bg := ctx
	if bg.Err() != nil {
		// 原 ctx 已超时，热度查询用独立的短上下文完成兜底
		var cancel context.CancelFunc
		bg, cancel = context.WithTimeout(context.Background(), fallbackBudget)
		defer cancel()
	}

	for _, it := range items {
		count, err := n.Ledger.InteractionCount(bg, it.ID)
		if err != nil {
			return err
		}
		collab := float64(count) / float64(cfg.PopularityScale)
		if collab > 1 {
			collab = 1
		}
		it.CollabScore = collab
		it.Score = cfg.FallbackContentBlend*it.ContentScore + cfg.FallbackCollabBlend*collab
		it.PutLabel("rank_mode", utils.Label{Value: "popularity", Source: "rank"})
	}
	return nil
}

// similarity 计算一对商品的相似度（缓存未命中时的回源）。
func (n *Collaborative) similarity(ctx context.Context, productA, productB string) (float64, error) {
	pa, errA := n.Catalog.GetProduct(ctx, productA)
	pb, errB := n.Catalog.GetProduct(ctx, productB)
	if errA == nil && errB == nil && pa.HasEmbedding() && pb.HasEmbedding() {
		return recall.CosineSimilarity(pa.Embedding, pb.Embedding), nil
	}

	usersA, err := n.Ledger.ProductUsers(ctx, productA)
	if err != nil {
		return 0, err
	}
	usersB, err := n.Ledger.ProductUsers(ctx, productB)
	if err != nil {
		return 0, err
	}
	return Jaccard(usersA, usersB), nil
}

// Jaccard 计算两个用户集合的 Jaccard 相似度：交集大小 / 并集大小。
func Jaccard(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for user := range a {
		if _, ok := b[user]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// sortByScore 按最终分降序做稳定排序，保证测试可复现。
func sortByScore(items []*core.Item) []*core.Item {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return items
}
