package core

import "time"

// 偏好桶名称。每个桶是 label -> 累计权重 的映射，只增不覆盖。
const (
	BucketBrand           = "brand"
	BucketCategory        = "category"
	BucketCPU             = "cpu_spec"
	BucketGPU             = "gpu_spec"
	BucketRAM             = "ram_spec"
	BucketDisplay         = "display_spec"
	BucketStorageType     = "storage_type"
	BucketStorageCapacity = "storage_capacity"
	BucketPriceRange      = "price_range"
)

// BucketNames 返回所有偏好桶名称（固定顺序，便于遍历与测试）。
func BucketNames() []string {
	return []string{
		BucketBrand, BucketCategory,
		BucketCPU, BucketGPU, BucketRAM, BucketDisplay,
		BucketStorageType, BucketStorageCapacity,
		BucketPriceRange,
	}
}

// QualityTier 反映用户画像背后真实信号量的粗粒度档位。
type QualityTier string

const (
	TierNew     QualityTier = "new"     // 无任何记录
	TierDefault QualityTier = "default" // 冷启动兜底画像，无足够真实行为
	TierLow     QualityTier = "low"     // >= TierLowAt 条行为
	TierMedium  QualityTier = "medium"  // >= TierMediumAt 条行为
	TierHigh    QualityTier = "high"    // >= TierHighAt 条行为
)

// PreferenceProfile 是每用户一份的偏好画像。
//
// 维度说明：
//   - Buckets：按属性分桶的加权偏好，纯加法累计（并发下用原子加）
//   - Vector：可选的稠密偏好向量缓存，维度与商品 Embedding 一致
//   - Bootstrap：是否为冷启动播种的默认画像
//
// 画像在首次推荐请求或首次行为时惰性创建；除显式重置外不删除。
type PreferenceProfile struct {
	UserID string

	// Buckets: bucket -> label -> accumulated weight
	Buckets map[string]map[string]float64

	// Vector 是缓存的偏好向量，可能为空或维度过期（使用前需校验）。
	Vector []float64

	// Interactions 是该用户的真实行为总数。
	Interactions int64

	// Bootstrap 标记该画像由全局热度播种而来。
	Bootstrap bool

	UpdatedAt time.Time
}

// NewPreferenceProfile 创建一个空画像。
func NewPreferenceProfile(userID string) *PreferenceProfile {
	return &PreferenceProfile{
		UserID:    userID,
		Buckets:   make(map[string]map[string]float64),
		UpdatedAt: time.Now(),
	}
}

// Bucket 返回指定桶（可能为 nil）。
func (p *PreferenceProfile) Bucket(name string) map[string]float64 {
	if p == nil || p.Buckets == nil {
		return nil
	}
	return p.Buckets[name]
}

// HasVector 校验缓存向量是否存在且维度匹配。
func (p *PreferenceProfile) HasVector(dim int) bool {
	return p != nil && len(p.Vector) > 0 && (dim <= 0 || len(p.Vector) == dim)
}

// Tier 按真实行为数推导质量档位。
// 行为数未达 low 档的画像（含冷启动播种的）归入 default。
func (p *PreferenceProfile) Tier(cfg *WeightConfig) QualityTier {
	if cfg == nil {
		cfg = DefaultWeightConfig()
	}
	switch {
	case p == nil:
		return TierNew
	case p.Interactions >= cfg.TierHighAt:
		return TierHigh
	case p.Interactions >= cfg.TierMediumAt:
		return TierMedium
	case p.Interactions >= cfg.TierLowAt:
		return TierLow
	case p.Bootstrap || p.Interactions > 0:
		return TierDefault
	default:
		return TierNew
	}
}
