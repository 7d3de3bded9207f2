package core

import "context"

// VectorService 是向量检索服务的领域接口。
//
// 使用场景：
//   - 召回阶段：根据用户偏好向量检索最近邻商品
//   - 相似商品：根据商品向量检索相似商品
//
// 实现：
//   - store.MemoryVectorIndex（内存实现）
//   - 其他向量数据库（Milvus、Faiss、Elasticsearch 等）也可以实现此接口
//
// 检索失败不致命：召回侧会退化为对目录的全量余弦扫描。
type VectorService interface {
	// Search 向量搜索
	Search(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResult, error)

	// Close 关闭连接
	Close() error
}

// VectorSearchRequest 向量搜索请求
type VectorSearchRequest struct {
	// Collection 集合名称（如 "products"）
	Collection string

	// Vector 查询向量
	Vector []float64

	// TopK 返回 TopK 个最相似的结果
	TopK int

	// Metric 距离度量方式：cosine / euclidean / inner_product
	Metric string

	// Filter 过滤条件（可选，如 {"in_stock": true}）
	Filter map[string]any
}

// VectorSearchItem 单个向量搜索结果项
type VectorSearchItem struct {
	ID    string
	Score float64
}

// VectorSearchResult 向量搜索结果
type VectorSearchResult struct {
	// Items 搜索结果项列表（按相似度降序）
	Items []VectorSearchItem
}

// ValidateVectorMetric 验证距离度量类型。
func ValidateVectorMetric(metric string) bool {
	switch metric {
	case "cosine", "euclidean", "inner_product":
		return true
	default:
		return false
	}
}
