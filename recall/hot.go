package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// Hot 是热门召回源：按全站交互次数取 top 商品。
// 冷启动用户（画像为空）和超时降级路径都会走到这里。
// 得分为 min(交互次数/PopularityScale, 1)，写进 CollabScore。
type Hot struct {
	Catalog core.CatalogReader
	Ledger  core.LedgerStore
	Cfg     *core.WeightConfig
	Limit   int
}

func (r *Hot) Name() string { return "recall.hot" }

func (r *Hot) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	limit := r.Limit
	if limit <= 0 {
		limit = 50
	}
	cfg := r.Cfg
	if cfg == nil {
		cfg = core.DefaultWeightConfig()
	}

	// 热门表里可能混有下架商品，多取一倍再过滤
	tops, err := r.Ledger.TopInteracted(ctx, limit*2)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, limit)
	for _, productID := range tops {
		product, err := r.Catalog.GetProduct(ctx, productID)
		if err != nil || !product.InStock() {
			continue
		}
		count, err := r.Ledger.InteractionCount(ctx, productID)
		if err != nil {
			continue
		}
		score := float64(count) / float64(cfg.PopularityScale)
		if score > 1 {
			score = 1
		}
		it := core.NewItem(product.ID)
		it.CollabScore = score
		it.Score = score
		it.Meta = map[string]any{
			"brand": product.Brand,
			"price": product.Price,
		}
		out = append(out, it)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
