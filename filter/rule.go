package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/dsl"
)

// Rule 是 CEL 表达式过滤器：表达式对 item/label/rctx 求值，
// 结果为 true 时保留，false 时过滤。
// 例如 `item.price < 30000000.0` 只保留 3000 万以下的商品。
type Rule struct {
	Expr string
}

func (f *Rule) Name() string { return "filter.rule" }

func (f *Rule) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	keep, err := dsl.NewEval(item, rctx).Evaluate(f.Expr)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
