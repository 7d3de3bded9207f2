// Package recall 实现候选生成：从商品目录中召回与用户偏好最接近的候选集。
package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/utils"
)

// Source 表示一个可复用的召回源（内容/热门/最新上架/...）。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// SourceNode 把单个召回源适配成 pipeline Node。
type SourceNode struct {
	Source Source
}

func (n *SourceNode) Name() string        { return n.Source.Name() }
func (n *SourceNode) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *SourceNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	items, err := n.Source.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		it.PutLabel("recall_source", utils.Label{Value: n.Source.Name(), Source: "recall"})
	}
	return items, nil
}
