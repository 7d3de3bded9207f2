// Package profile 实现偏好画像聚合：把账本中的加权行为折算进按属性分桶的画像。
//
// 核心不变量：桶内权重只做加法累计（原子加），任何路径都不读出再写回；
// 因此任意时刻桶值等于所有贡献过该 label 的调整后权重之和（含负权重类型）。
// 唯一例外是价格档位桶：它按购买记录全量重算后整桶覆盖。
package profile

import (
	"context"
	"sort"

	"github.com/rushteam/shoprec/core"
)

// Aggregator 是画像聚合服务。无内部状态，依赖显式注入。
type Aggregator struct {
	catalog  core.CatalogReader
	profiles core.ProfileStore
	ledger   core.LedgerStore
	cfg      *core.WeightConfig
}

func NewAggregator(catalog core.CatalogReader, profiles core.ProfileStore, ledger core.LedgerStore, cfg *core.WeightConfig) *Aggregator {
	if cfg == nil {
		cfg = core.DefaultWeightConfig()
	}
	return &Aggregator{
		catalog:  catalog,
		profiles: profiles,
		ledger:   ledger,
		cfg:      cfg,
	}
}

// Update 把一条行为记录折算进用户画像。
//
// 对商品的品牌、每个类目、各规格属性，按记录的调整后权重做原子加；
// 购买行为额外触发价格档位桶的全量重算。
// 行为已经落盘，这里的失败由调用方（Worker）记日志，不影响写入方。
func (a *Aggregator) Update(ctx context.Context, rec *core.Interaction) error {
	product, err := a.catalog.GetProduct(ctx, rec.ProductID)
	if err != nil {
		return err
	}

	userID := rec.UserID
	w := rec.Weight

	if product.Brand != "" {
		if err := a.profiles.IncrBucket(ctx, userID, core.BucketBrand, product.Brand, w); err != nil {
			return err
		}
	}
	for _, cate := range product.Categories {
		if cate == "" {
			continue
		}
		if err := a.profiles.IncrBucket(ctx, userID, core.BucketCategory, cate, w); err != nil {
			return err
		}
	}
	for bucket, label := range product.SpecLabels() {
		if err := a.profiles.IncrBucket(ctx, userID, bucket, label, w); err != nil {
			return err
		}
	}

	if err := a.profiles.IncrInteractions(ctx, userID); err != nil {
		return err
	}

	// 画像已变化，缓存的偏好向量失效，下次推荐时重建
	if err := a.profiles.SaveVector(ctx, userID, nil); err != nil {
		return err
	}

	// 价格档位只由购买行为决定；其余类型不会改变购买集合，跳过重算
	if rec.Type == core.InteractionPurchase {
		return a.RecomputePriceRange(ctx, userID)
	}
	return nil
}

// RecomputePriceRange 全量重算价格档位桶：
// 重扫用户的购买记录，把商品价格落进五个档位，每档权重 = 命中次数 × PriceTierWeight。
// 注意这是整桶覆盖，不是增量。
func (a *Aggregator) RecomputePriceRange(ctx context.Context, userID string) error {
	recs, err := a.ledger.UserInteractions(ctx, userID)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, rec := range recs {
		if rec.Type != core.InteractionPurchase {
			continue
		}
		product, err := a.catalog.GetProduct(ctx, rec.ProductID)
		if err != nil {
			continue
		}
		if label := a.cfg.PriceTierLabel(product.Price); label != "" {
			counts[label]++
		}
	}

	weights := make(map[string]float64, len(counts))
	for label, n := range counts {
		weights[label] = float64(n) * a.cfg.PriceTierWeight
	}
	return a.profiles.SetBucket(ctx, userID, core.BucketPriceRange, weights)
}

// GetNormalizedProfile 返回逐桶独立归一化的画像：
// 每个桶内各 label 权重除以该桶最大权重，落到 [0,1]；
// 全零或缺失的桶归一化为空 map。
func (a *Aggregator) GetNormalizedProfile(ctx context.Context, userID string) (map[string]map[string]float64, error) {
	p, err := a.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]float64, len(core.BucketNames()))
	for _, bucket := range core.BucketNames() {
		out[bucket] = Normalize(p.Bucket(bucket))
	}
	return out, nil
}

// Normalize 对单个桶做 max 归一化，结果落在 [0,1]。
// 最大权重 <= 0 时返回空 map；非正权重的 label（被 unlike 抵消到零以下）不进入结果。
func Normalize(bucket map[string]float64) map[string]float64 {
	var max float64
	for _, w := range bucket {
		if w > max {
			max = w
		}
	}
	if max <= 0 {
		return map[string]float64{}
	}

	out := make(map[string]float64, len(bucket))
	for label, w := range bucket {
		if w <= 0 {
			continue
		}
		out[label] = w / max
	}
	return out
}

// LabelWeight 是一个 label 及其权重，用于画像统计输出。
type LabelWeight struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// TopLabels 按权重降序取前 n 个 label（权重相同时按 label 字典序，保证确定性）。
func TopLabels(bucket map[string]float64, n int) []LabelWeight {
	out := make([]LabelWeight, 0, len(bucket))
	for label, w := range bucket {
		out = append(out, LabelWeight{Label: label, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight == out[j].Weight {
			return out[i].Label < out[j].Label
		}
		return out[i].Weight > out[j].Weight
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Stats 是画像统计概览（对外暴露的 getProfileStats 结果）。
type Stats struct {
	TotalInteractions int64                    `json:"total_interactions"`
	TopBrands         []LabelWeight            `json:"top_brands"`
	TopCategories     []LabelWeight            `json:"top_categories"`
	TopSpecs          map[string][]LabelWeight `json:"top_specs"`
	ProfileStrength   float64                  `json:"profile_strength"`
	QualityTier       core.QualityTier         `json:"quality_tier"`
}

// GetStats 汇总用户画像统计。画像不存在时返回全零的 new 档统计。
func (a *Aggregator) GetStats(ctx context.Context, userID string) (*Stats, error) {
	p, err := a.profiles.GetProfile(ctx, userID)
	if err != nil {
		if core.IsProfileNotFound(err) {
			return &Stats{
				TopSpecs:    map[string][]LabelWeight{},
				QualityTier: core.TierNew,
			}, nil
		}
		return nil, err
	}

	specs := make(map[string][]LabelWeight)
	for _, bucket := range []string{
		core.BucketCPU, core.BucketGPU, core.BucketRAM,
		core.BucketDisplay, core.BucketStorageType, core.BucketStorageCapacity,
	} {
		if top := TopLabels(p.Bucket(bucket), 3); len(top) > 0 {
			specs[bucket] = top
		}
	}

	// 画像计数由异步队列累计，可能滞后于账本；统计与档位以账本为准
	if total, err := a.ledger.UserInteractionCount(ctx, userID); err == nil && total > p.Interactions {
		p.Interactions = total
	}

	// 画像强度：真实行为数相对 high 档阈值的占比，上限 1
	strength := float64(p.Interactions) / float64(a.cfg.TierHighAt)
	if strength > 1 {
		strength = 1
	}

	return &Stats{
		TotalInteractions: p.Interactions,
		TopBrands:         TopLabels(p.Bucket(core.BucketBrand), 5),
		TopCategories:     TopLabels(p.Bucket(core.BucketCategory), 5),
		TopSpecs:          specs,
		ProfileStrength:   strength,
		QualityTier:       p.Tier(a.cfg),
	}, nil
}
