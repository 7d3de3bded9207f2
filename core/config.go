package core

// PriceTier 是一个价格档位：[Min, Max) 区间与档位标签。
// Max <= 0 表示无上界。
type PriceTier struct {
	Label string
	Min   float64
	Max   float64
}

// Contains 判断价格是否落在该档位。
func (t PriceTier) Contains(price float64) bool {
	if price < t.Min {
		return false
	}
	return t.Max <= 0 || price < t.Max
}

// WeightConfig 集中了推荐引擎全部可调参数：行为基础权重、上下文调整规则、
// 融合系数与各类阈值。不再散落为硬编码常量，便于测试与调参。
//
// 零值不可用，请从 DefaultWeightConfig 出发修改。
type WeightConfig struct {
	// BaseWeights 是各行为类型的基础权重。
	BaseWeights map[InteractionType]float64

	// view 时长调整：duration < ShortViewSecs 降权，> LongViewSecs 加倍，
	// (MidViewSecs, LongViewSecs] 区间乘 MidViewFactor。
	ShortViewSecs   float64
	ShortViewFactor float64
	MidViewSecs     float64
	MidViewFactor   float64
	LongViewSecs    float64
	LongViewFactor  float64

	// RecSourceFactor 是 metadata.source == "recommendation" 的附加乘数。
	RecSourceFactor float64

	// 最终分融合系数：final = ContentBlend*content + CollabBlend*collab。
	// 热度兜底路径反转为 FallbackContentBlend / FallbackCollabBlend。
	ContentBlend         float64
	CollabBlend          float64
	FallbackContentBlend float64
	FallbackCollabBlend  float64

	// SimilarityFloor：协同分计算只累计相似度高于此阈值的历史对。
	SimilarityFloor float64

	// PopularityScale：热度兜底 collab = min(count/PopularityScale, 1)。
	PopularityScale float64

	// 质量档位阈值（真实行为条数）。
	TierLowAt    int64
	TierMediumAt int64
	TierHighAt   int64

	// PriceTiers 是购买价格档位；PriceTierWeight 是每次命中的档位权重。
	PriceTiers      []PriceTier
	PriceTierWeight float64

	// 偏好向量构建参数。
	TopBrands      int     // 取归一化权重最高的前 N 个品牌
	TopCategories  int     // 取归一化权重最高的前 N 个类目
	MinBrandWeight float64 // 加权平均时的品牌权重下限
	GenericSample  int     // 无偏好匹配时的无权采样上限

	// 候选与重排参数。
	CandidateLimit int // 召回候选数默认值
	HistorySample  int // 协同重排采样的最近行为条数上限
	BrandCap       int // 同品牌在最终列表中的数量上限
}

// DefaultWeightConfig 返回与线上行为一致的默认配置。
func DefaultWeightConfig() *WeightConfig {
	return &WeightConfig{
		BaseWeights: map[InteractionType]float64{
			InteractionView:           1,
			InteractionLike:           3,
			InteractionUnlike:         -3,
			InteractionAddToCart:      5,
			InteractionRemoveFromCart: -2,
			InteractionPurchase:       10,
			InteractionRating:         8,
			InteractionSearchClick:    2,
		},

		ShortViewSecs:   10,
		ShortViewFactor: 0.5,
		MidViewSecs:     60,
		MidViewFactor:   1.5,
		LongViewSecs:    180,
		LongViewFactor:  2,

		RecSourceFactor: 1.2,

		ContentBlend:         0.7,
		CollabBlend:          0.3,
		FallbackContentBlend: 0.3,
		FallbackCollabBlend:  0.7,

		SimilarityFloor: 0.1,
		PopularityScale: 100,

		TierLowAt:    10,
		TierMediumAt: 30,
		TierHighAt:   50,

		// 价格以 VND 计，档位边界 10M/20M/30M/50M。
		PriceTiers: []PriceTier{
			{Label: "under_10m", Min: 0, Max: 10_000_000},
			{Label: "10m_20m", Min: 10_000_000, Max: 20_000_000},
			{Label: "20m_30m", Min: 20_000_000, Max: 30_000_000},
			{Label: "30m_50m", Min: 30_000_000, Max: 50_000_000},
			{Label: "over_50m", Min: 50_000_000, Max: 0},
		},
		PriceTierWeight: 10,

		TopBrands:      3,
		TopCategories:  2,
		MinBrandWeight: 0.1,
		GenericSample:  20,

		CandidateLimit: 50,
		HistorySample:  50,
		BrandCap:       3,
	}
}

// PriceTierLabel 返回价格所属档位的标签，未命中任何档位时返回空串。
func (c *WeightConfig) PriceTierLabel(price float64) string {
	for _, t := range c.PriceTiers {
		if t.Contains(price) {
			return t.Label
		}
	}
	return ""
}
