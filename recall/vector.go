package recall

import (
	"context"
	"math"
	"sort"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/profile"
)

// VectorBuilder 负责构建并缓存用户的偏好向量。
//
// 偏好向量的语义：取用户归一化画像中 top 3 品牌与 top 2 类目，
// 对目录中命中任一偏好的在售带向量商品，按 max(品牌归一化权重, 0.1)
// 加权平均其 embedding，最后做 L2 归一化。
// 没有任何商品命中偏好时，退化为对目录前 GenericSample 个带向量商品的等权平均。
type VectorBuilder struct {
	catalog  core.CatalogReader
	profiles core.ProfileStore
	agg      *profile.Aggregator
	cfg      *core.WeightConfig
}

func NewVectorBuilder(catalog core.CatalogReader, profiles core.ProfileStore, agg *profile.Aggregator, cfg *core.WeightConfig) *VectorBuilder {
	if cfg == nil {
		cfg = core.DefaultWeightConfig()
	}
	return &VectorBuilder{catalog: catalog, profiles: profiles, agg: agg, cfg: cfg}
}

// PreferenceVector 返回用户的偏好向量，优先用缓存。
// dim 是目录 embedding 的维度，缓存向量维度不符时重建。
// 目录中不存在任何带向量商品时返回 nil（调用方走冷启动）。
func (b *VectorBuilder) PreferenceVector(ctx context.Context, userID string, dim int) ([]float64, error) {
	p, err := b.profiles.GetProfile(ctx, userID)
	if err != nil && !core.IsProfileNotFound(err) {
		return nil, err
	}
	if p != nil && p.HasVector(dim) {
		return p.Vector, nil
	}

	vec, err := b.Build(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		// 缓存失败不影响本次请求，向量已在手里
		_ = b.profiles.SaveVector(ctx, userID, vec)
	}
	return vec, nil
}

// Build 全量重建偏好向量。
func (b *VectorBuilder) Build(ctx context.Context, userID string) ([]float64, error) {
	normalized, err := b.agg.GetNormalizedProfile(ctx, userID)
	if err != nil && !core.IsProfileNotFound(err) {
		return nil, err
	}

	var brandWeights map[string]float64
	var topBrands, topCategories []string
	if normalized != nil {
		brandWeights = normalized[core.BucketBrand]
		topBrands = topLabelNames(brandWeights, b.cfg.TopBrands)
		topCategories = topLabelNames(normalized[core.BucketCategory], b.cfg.TopCategories)
	}

	products, err := b.catalog.ListInStock(ctx)
	if err != nil {
		return nil, err
	}

	var sum []float64
	var total float64
	for _, product := range products {
		if !product.HasEmbedding() {
			continue
		}
		w, ok := matchWeight(product, topBrands, topCategories, brandWeights, b.cfg.MinBrandWeight)
		if !ok {
			continue
		}
		sum = accumulate(sum, product.Embedding, w)
		total += w
	}

	// 没有商品命中偏好：对目录前 GenericSample 个带向量商品等权平均
	if total == 0 {
		sampled := 0
		for _, product := range products {
			if !product.HasEmbedding() {
				continue
			}
			sum = accumulate(sum, product.Embedding, 1)
			total++
			sampled++
			if sampled >= b.cfg.GenericSample {
				break
			}
		}
	}
	if total == 0 {
		return nil, nil
	}

	for i := range sum {
		sum[i] /= total
	}
	return L2Normalize(sum), nil
}

// matchWeight 判断商品是否命中偏好，并给出其贡献权重。
// 品牌命中用该品牌的归一化权重（下限 MinBrandWeight），仅类目命中用下限权重。
func matchWeight(product *core.Product, brands, categories []string, brandWeights map[string]float64, minWeight float64) (float64, bool) {
	for _, brand := range brands {
		if product.Brand == brand {
			w := brandWeights[brand]
			if w < minWeight {
				w = minWeight
			}
			return w, true
		}
	}
	for _, cate := range categories {
		for _, pc := range product.Categories {
			if pc == cate {
				return minWeight, true
			}
		}
	}
	return 0, false
}

func topLabelNames(bucket map[string]float64, n int) []string {
	tops := profile.TopLabels(bucket, n)
	out := make([]string, 0, len(tops))
	for _, lw := range tops {
		if lw.Weight > 0 {
			out = append(out, lw.Label)
		}
	}
	return out
}

func accumulate(sum, vec []float64, w float64) []float64 {
	if sum == nil {
		sum = make([]float64, len(vec))
	}
	if len(sum) != len(vec) {
		return sum
	}
	for i, v := range vec {
		sum[i] += v * w
	}
	return sum
}

// L2Normalize 返回单位向量。零向量原样返回。
func L2Normalize(vec []float64) []float64 {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

// CosineSimilarity 计算两个向量的余弦相似度，维度不符或零向量返回 0。
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EmbeddingDim 返回目录中第一个带向量商品的维度，没有则返回 0。
func EmbeddingDim(products []*core.Product) int {
	for _, p := range products {
		if p.HasEmbedding() {
			return len(p.Embedding)
		}
	}
	return 0
}

type scoredID struct {
	id    string
	score float64
}

// topKByScore 按得分降序排序并截断，得分相同按 ID 字典序保证确定性。
func topKByScore(scored []scoredID, k int) []scoredID {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score == scored[j].score {
			return scored[i].id < scored[j].id
		}
		return scored[i].score > scored[j].score
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
