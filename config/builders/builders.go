// Package builders 在 init 中注册所有无存储依赖的内置 Node。
// 入口处 import _ 本包即可用配置驱动方式构建这些 Node。
package builders

import (
	"github.com/rushteam/shoprec/config"
	"github.com/rushteam/shoprec/filter"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/conv"
	"github.com/rushteam/shoprec/rerank"
)

func init() {
	config.Register("rerank.topn", buildTopN)
	config.Register("rerank.brand_diversity", buildBrandDiversity)
	config.Register("filter.scene_rule", buildSceneRule)
	config.Register("filter.rule", buildRuleFilter)
}

func buildTopN(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopN{N: conv.ConfigGetInt(cfg, "n", 0)}, nil
}

func buildBrandDiversity(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.BrandDiversity{MaxPerBrand: conv.ConfigGetInt(cfg, "max_per_brand", 3)}, nil
}

func buildSceneRule(cfg map[string]any) (pipeline.Node, error) {
	rules := make(map[string]string)
	if raw, ok := cfg["rules"].(map[string]any); ok {
		for scene, expr := range raw {
			if s, ok := conv.ToString(expr); ok {
				rules[scene] = s
			}
		}
	}
	return &filter.SceneRule{Rules: rules}, nil
}

func buildRuleFilter(cfg map[string]any) (pipeline.Node, error) {
	expr, _ := conv.ToString(cfg["expr"])
	return &filter.Node{Filters: []filter.Filter{&filter.Rule{Expr: expr}}}, nil
}
