package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/dsl"
	"github.com/rushteam/shoprec/pkg/utils"
)

// SceneRule 是场景规则 Node：按请求的场景名查 CEL 表达式，
// 表达式求值为 false 的物品被过滤。未配置规则的场景直接放行。
// 例如给 "budget" 场景配 `item.price < 20000000.0`。
type SceneRule struct {
	Rules map[string]string
}

func (n *SceneRule) Name() string        { return "filter.scene_rule" }
func (n *SceneRule) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *SceneRule) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 || rctx == nil {
		return items, nil
	}
	expr, ok := n.Rules[rctx.Scene]
	if !ok || expr == "" {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		keep, err := dsl.NewEval(item, rctx).Evaluate(expr)
		if err != nil {
			// 规则写错不拦请求，放行并打标方便排查
			item.PutLabel("rule_error", utils.Label{Value: err.Error(), Source: n.Name()})
			out = append(out, item)
			continue
		}
		if keep {
			out = append(out, item)
		}
	}
	return out, nil
}
