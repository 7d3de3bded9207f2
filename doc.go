// Package shoprec 是一个面向电商（笔记本品类）的个性化推荐引擎。
//
// 六个核心组件：
//   - ledger：行为账本，带权重的不可变行为记录
//   - profile：偏好画像聚合，按属性分桶累计权重
//   - simcache：商品对相似度缓存
//   - recall：内容召回，偏好向量 + 余弦近邻
//   - rank：协同重排，内容分与历史协同分融合
//   - coldstart：冷启动兜底，热度播种与最近上架
//
// engine 包把它们装配成完整引擎：
//
//	eng := engine.New(engine.Options{
//	    Catalog:  catalog,
//	    Ledger:   store.NewMemoryLedger(),
//	    Profiles: store.NewMemoryProfileStore(),
//	})
//	defer eng.Close()
//
//	eng.RecordInteraction(ctx, "u1", "p1", core.InteractionView, map[string]any{"duration": 120})
//	recs, err := eng.GetRecommendations(ctx, "u1", 10)
package shoprec

import "github.com/rushteam/shoprec/pipeline"

// 轻量 facade：便于直接 import "shoprec" 使用链路抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
