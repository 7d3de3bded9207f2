package feast

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/conv"
)

// Catalog 是带 Feast 特征补全的商品目录：
// 枚举、库存等基础数据走底层目录，embedding 从 Feast 在线存储实时取回。
// 离线管道更新向量后无需重启服务。
//
// Feast 不可用时静默回落到底层目录自带的 embedding，目录读取不因特征服务故障失败。
type Catalog struct {
	base    core.CatalogReader
	client  Client
	project string

	// EmbeddingFeature 是 embedding 特征的全名，例如 "product_content:embedding"
	EmbeddingFeature string

	// EntityKey 是实体键名，默认 "product_id"
	EntityKey string
}

func NewCatalog(base core.CatalogReader, client Client, project string) *Catalog {
	return &Catalog{
		base:             base,
		client:           client,
		project:          project,
		EmbeddingFeature: "product_content:embedding",
		EntityKey:        "product_id",
	}
}

func (c *Catalog) GetProduct(ctx context.Context, productID string) (*core.Product, error) {
	product, err := c.base.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	c.enrich(ctx, product)
	return product, nil
}

func (c *Catalog) ListInStock(ctx context.Context) ([]*core.Product, error) {
	products, err := c.base.ListInStock(ctx)
	if err != nil {
		return nil, err
	}
	c.enrichAll(ctx, products)
	return products, nil
}

func (c *Catalog) MostRecent(ctx context.Context, limit int) ([]*core.Product, error) {
	products, err := c.base.MostRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	c.enrichAll(ctx, products)
	return products, nil
}

func (c *Catalog) Count(ctx context.Context) (int, error) {
	return c.base.Count(ctx)
}

func (c *Catalog) enrich(ctx context.Context, product *core.Product) {
	c.enrichAll(ctx, []*core.Product{product})
}

// enrichAll 批量取回 embedding 特征覆盖到商品上。
// 取不到的商品保留底层目录的 embedding。
func (c *Catalog) enrichAll(ctx context.Context, products []*core.Product) {
	if c.client == nil || len(products) == 0 {
		return
	}

	rows := make([]map[string]any, len(products))
	for i, p := range products {
		rows[i] = map[string]any{c.EntityKey: p.ID}
	}
	resp, err := c.client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   []string{c.EmbeddingFeature},
		EntityRows: rows,
		Project:    c.project,
	})
	if err != nil || len(resp.FeatureVectors) != len(products) {
		return
	}

	for i, fv := range resp.FeatureVectors {
		raw, ok := fv.Values[c.EmbeddingFeature]
		if !ok {
			continue
		}
		if vec := toEmbedding(raw); len(vec) > 0 {
			products[i].Embedding = vec
		}
	}
}

// toEmbedding 把特征值还原成向量，支持 []float64 和 []any 两种形态。
func toEmbedding(raw any) []float64 {
	switch v := raw.(type) {
	case []float64:
		return v
	case []any:
		out := make([]float64, 0, len(v))
		for _, item := range v {
			f, ok := conv.ToFloat64(item)
			if !ok {
				return nil
			}
			out = append(out, f)
		}
		return out
	default:
		return nil
	}
}

var _ core.CatalogReader = (*Catalog)(nil)
