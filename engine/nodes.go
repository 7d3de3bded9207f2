package engine

import (
	"github.com/rushteam/shoprec/config"
	"github.com/rushteam/shoprec/filter"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/conv"
	"github.com/rushteam/shoprec/rank"
	"github.com/rushteam/shoprec/recall"
)

// NodeFactory 返回可配置驱动的 Node 工厂：
// 在全局注册表（无依赖 Node）之上补齐需要存储依赖的 Node。
// 拿到工厂后可以用 YAML 配置自定义推荐链路替换内置链路。
func (e *Engine) NodeFactory() *pipeline.NodeFactory {
	f := config.DefaultFactory()

	f.Register("recall.content", func(cfg map[string]any) (pipeline.Node, error) {
		return &recall.SourceNode{Source: &recall.Content{
			Catalog:    e.catalog,
			Vectors:    e.vectors,
			Index:      e.index,
			Collection: e.collection,
			Limit:      conv.ConfigGetInt(cfg, "limit", e.cfg.CandidateLimit),
		}}, nil
	})
	f.Register("recall.hot", func(cfg map[string]any) (pipeline.Node, error) {
		return &recall.SourceNode{Source: &recall.Hot{
			Catalog: e.catalog,
			Ledger:  e.ledgers,
			Cfg:     e.cfg,
			Limit:   conv.ConfigGetInt(cfg, "limit", e.cfg.CandidateLimit),
		}}, nil
	})
	f.Register("recall.recent", func(cfg map[string]any) (pipeline.Node, error) {
		return &recall.SourceNode{Source: &recall.Recent{
			Catalog: e.catalog,
			Limit:   conv.ConfigGetInt(cfg, "limit", e.cfg.CandidateLimit),
		}}, nil
	})
	f.Register("filter.interacted", func(cfg map[string]any) (pipeline.Node, error) {
		return &filter.Interacted{Ledger: e.ledgers}, nil
	})
	f.Register("rank.collaborative", func(cfg map[string]any) (pipeline.Node, error) {
		return &rank.Collaborative{
			Catalog: e.catalog,
			Ledger:  e.ledgers,
			Cache:   e.cache,
			Cfg:     e.cfg,
		}, nil
	})
	return f
}

// LoadPipeline 从 YAML 配置构建链路并替换内置主链路。
func (e *Engine) LoadPipeline(path string) error {
	cfg, err := pipeline.LoadFromYAML(path)
	if err != nil {
		return err
	}
	pipe, err := cfg.BuildPipeline(e.NodeFactory())
	if err != nil {
		return err
	}
	e.pipe = pipe
	return nil
}
