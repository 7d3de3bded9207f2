package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/utils"
)

// Interacted 是已交互排除 Node：任何类型的行为记录都算交互，
// 看过、点过赞、加过购物车、买过的商品一律不再推荐。
// 每次请求从账本拉一次交互集合，逐个候选查表。
// 请求参数 exclude_interacted 为 false 时跳过排除（默认排除）。
type Interacted struct {
	Ledger core.LedgerStore
}

func (n *Interacted) Name() string        { return "filter.interacted" }
func (n *Interacted) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *Interacted) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 || rctx.UserID == "" {
		return items, nil
	}
	if !rctx.ParamBool("exclude_interacted", true) {
		return items, nil
	}

	seen, err := n.Ledger.InteractedProducts(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}
	if len(seen) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if _, ok := seen[item.ID]; ok {
			item.PutLabel("filtered", utils.Label{Value: "true", Source: n.Name()})
			continue
		}
		out = append(out, item)
	}
	return out, nil
}
