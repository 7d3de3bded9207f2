package core

import (
	"context"
	"time"
)

// Product 是商品的只读视图（目录归外部系统所有，引擎只消费）。
// Embedding 由外部批处理任务生成，引擎不负责向量的产出与更新。
type Product struct {
	ID         string
	Brand      string
	Categories []string
	Price      float64
	Stock      int

	// Embedding 是可选的稠密向量（维度需与用户偏好向量一致）。
	Embedding []float64

	// 规格属性（清洗后的标签串），参与偏好桶统计。
	CPU             string
	GPU             string
	RAM             string
	Display         string
	StorageType     string
	StorageCapacity string

	CreatedAt time.Time
}

// InStock 商品是否有库存。
func (p *Product) InStock() bool {
	return p != nil && p.Stock > 0
}

// HasEmbedding 商品是否有合法向量。
func (p *Product) HasEmbedding() bool {
	return p != nil && len(p.Embedding) > 0
}

// SpecLabels 返回商品参与偏好桶统计的规格属性，key 为桶名。
// 空值属性不出现在结果中。
func (p *Product) SpecLabels() map[string]string {
	out := make(map[string]string, 6)
	put := func(bucket, label string) {
		if label != "" {
			out[bucket] = label
		}
	}
	put(BucketCPU, p.CPU)
	put(BucketGPU, p.GPU)
	put(BucketRAM, p.RAM)
	put(BucketDisplay, p.Display)
	put(BucketStorageType, p.StorageType)
	put(BucketStorageCapacity, p.StorageCapacity)
	return out
}

// CatalogReader 是商品目录的领域接口（只读）。
//
// 设计原则：
//   - 目录归外部系统所有，引擎侧只定义读取能力
//   - store.MemoryCatalog / feast.Catalog 实现此接口
type CatalogReader interface {
	// GetProduct 获取单个商品，不存在时返回 NOT_FOUND
	GetProduct(ctx context.Context, productID string) (*Product, error)

	// ListInStock 获取所有有库存的商品
	ListInStock(ctx context.Context) ([]*Product, error)

	// MostRecent 获取最近上架的有库存商品（用于冷启动兜底）
	MostRecent(ctx context.Context, limit int) ([]*Product, error)

	// Count 返回商品总数（用于就绪检查：目录为空时引擎不可用）
	Count(ctx context.Context) (int, error)
}

// Catalog 错误定义
var (
	ErrProductNotFound = NewDomainError(ModuleCatalog, ErrorCodeNotFound, "catalog: product not found")
)
