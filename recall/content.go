package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/utils"
)

// Content 是内容召回源：用用户偏好向量在目录里找最相近的在售商品。
//
// 检索优先走向量索引（VectorService），索引失败时退化为
// 对所有在售带向量商品的暴力余弦扫描。ContentScore 即余弦相似度。
type Content struct {
	Catalog    core.CatalogReader
	Vectors    *VectorBuilder
	Index      core.VectorService // 可选，nil 时直接暴力扫描
	Collection string             // 向量索引的集合名
	Limit      int                // 默认 50
}

func (r *Content) Name() string { return "recall.content" }

func (r *Content) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	limit := r.Limit
	if limit <= 0 {
		limit = 50
	}

	products, err := r.Catalog.ListInStock(ctx)
	if err != nil {
		return nil, err
	}
	dim := EmbeddingDim(products)
	if dim == 0 {
		// 目录里没有任何 embedding，交给冷启动兜底
		return nil, nil
	}

	vec, err := r.Vectors.PreferenceVector(ctx, rctx.UserID, dim)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, nil
	}

	if r.Index != nil {
		items, err := r.searchIndex(ctx, vec, limit, products)
		if err == nil {
			return items, nil
		}
		// 索引故障降级为暴力扫描
	}
	return r.scan(vec, limit, products), nil
}

func (r *Content) searchIndex(ctx context.Context, vec []float64, limit int, products []*core.Product) ([]*core.Item, error) {
	result, err := r.Index.Search(ctx, &core.VectorSearchRequest{
		Collection: r.Collection,
		Vector:     vec,
		TopK:       limit,
		Metric:     "cosine",
	})
	if err != nil {
		return nil, err
	}

	inStock := make(map[string]*core.Product, len(products))
	for _, p := range products {
		inStock[p.ID] = p
	}

	out := make([]*core.Item, 0, len(result.Items))
	for _, hit := range result.Items {
		product, ok := inStock[hit.ID]
		if !ok {
			continue
		}
		out = append(out, r.newItem(product, hit.Score, "index"))
	}
	return out, nil
}

func (r *Content) scan(vec []float64, limit int, products []*core.Product) []*core.Item {
	byID := make(map[string]*core.Product, len(products))
	scored := make([]scoredID, 0, len(products))
	for _, product := range products {
		if !product.HasEmbedding() {
			continue
		}
		byID[product.ID] = product
		scored = append(scored, scoredID{id: product.ID, score: CosineSimilarity(vec, product.Embedding)})
	}

	scored = topKByScore(scored, limit)
	out := make([]*core.Item, 0, len(scored))
	for _, s := range scored {
		out = append(out, r.newItem(byID[s.id], s.score, "scan"))
	}
	return out
}

func (r *Content) newItem(product *core.Product, score float64, via string) *core.Item {
	it := core.NewItem(product.ID)
	it.ContentScore = score
	it.Score = score
	it.Meta = map[string]any{
		"brand": product.Brand,
		"price": product.Price,
	}
	it.PutLabel("content_via", utils.Label{Value: via, Source: "recall"})
	return it
}
