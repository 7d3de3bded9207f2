package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// Recent 是最近上架召回源：全站零交互时的最终兜底。
// 返回最近上架的在售商品，内容分、协同分、最终分一律取中性的 0.5。
type Recent struct {
	Catalog core.CatalogReader
	Limit   int
}

const neutralScore = 0.5

func (r *Recent) Name() string { return "recall.recent" }

func (r *Recent) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	limit := r.Limit
	if limit <= 0 {
		limit = 50
	}

	products, err := r.Catalog.MostRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(products))
	for _, product := range products {
		if !product.InStock() {
			continue
		}
		it := core.NewItem(product.ID)
		it.ContentScore = neutralScore
		it.CollabScore = neutralScore
		it.Score = neutralScore
		it.Meta = map[string]any{
			"brand": product.Brand,
			"price": product.Price,
		}
		out = append(out, it)
	}
	return out, nil
}
