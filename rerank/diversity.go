// Package rerank 实现排序后的结果整形：品牌多样性限流和 Top-N 截断。
package rerank

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
)

// BrandDiversity 是品牌多样性 ReRank：每个品牌最多保留 MaxPerBrand 个，
// 其余按原有排名顺序保留。品牌取 meta["brand"]，缺失品牌的物品不受限。
type BrandDiversity struct {
	MaxPerBrand int // 默认 3
}

func (n *BrandDiversity) Name() string        { return "rerank.brand_diversity" }
func (n *BrandDiversity) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *BrandDiversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	cap := n.MaxPerBrand
	if cap <= 0 {
		cap = 3
	}

	counts := make(map[string]int, 16)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		brand := it.Brand()
		if brand == "" {
			out = append(out, it)
			continue
		}
		if counts[brand] >= cap {
			continue
		}
		counts[brand]++
		out = append(out, it)
	}
	return out, nil
}
