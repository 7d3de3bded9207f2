package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/rushteam/shoprec/core"
)

// MemoryVectorIndex 是内存实现的向量检索服务，平替 Milvus 等向量数据库。
//
// 特点：
//   - 纯内存实现，进程重启后数据丢失
//   - 支持余弦相似度、欧氏距离、内积等距离度量
//   - 线程安全
//   - 适用于测试、开发、中小目录规模
type MemoryVectorIndex struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dimension int
	metric    string
	vectors   map[string][]float64
	metadata  map[string]map[string]any
}

func NewMemoryVectorIndex() *MemoryVectorIndex {
	return &MemoryVectorIndex{
		collections: make(map[string]*collection),
	}
}

func (m *MemoryVectorIndex) Name() string { return "memory_vector" }

// CreateCollection 创建集合。已存在时返回 INVALID_INPUT。
func (m *MemoryVectorIndex) CreateCollection(ctx context.Context, name string, dimension int, metric string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "collection name is required")
	}
	if dimension <= 0 {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "dimension must be greater than 0")
	}
	if _, exists := m.collections[name]; exists {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "collection already exists: "+name)
	}
	if !core.ValidateVectorMetric(metric) {
		metric = "cosine"
	}

	m.collections[name] = &collection{
		dimension: dimension,
		metric:    metric,
		vectors:   make(map[string][]float64),
		metadata:  make(map[string]map[string]any),
	}
	return nil
}

// Upsert 写入或更新一条向量及其元数据。
func (m *MemoryVectorIndex) Upsert(ctx context.Context, collectionName, id string, vec []float64, meta map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[collectionName]
	if !ok {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeNotFound, "collection not found: "+collectionName)
	}
	if len(vec) != col.dimension {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector dimension mismatch")
	}

	col.vectors[id] = append([]float64(nil), vec...)
	if meta != nil {
		col.metadata[id] = meta
	}
	return nil
}

// Remove 删除向量（商品下架/清库存时调用）。
func (m *MemoryVectorIndex) Remove(ctx context.Context, collectionName string, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[collectionName]
	if !ok {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeNotFound, "collection not found: "+collectionName)
	}
	for _, id := range ids {
		delete(col.vectors, id)
		delete(col.metadata, id)
	}
	return nil
}

// Search 实现 core.VectorService 接口。
func (m *MemoryVectorIndex) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	if req == nil {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector search request is nil")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[req.Collection]
	if !ok {
		return &core.VectorSearchResult{Items: []core.VectorSearchItem{}}, nil
	}
	if len(req.Vector) != col.dimension {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector dimension mismatch")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}
	metric := req.Metric
	if metric == "" {
		metric = col.metric
	}

	scored := make([]core.VectorSearchItem, 0, len(col.vectors))
	for id, vec := range col.vectors {
		if req.Filter != nil && !matchFilter(req.Filter, col.metadata[id]) {
			continue
		}

		var score float64
		switch metric {
		case "euclidean":
			// 欧氏距离转换为相似度分数（距离越小，分数越高）
			score = 1.0 / (1.0 + euclideanDistance(req.Vector, vec))
		case "inner_product":
			score = innerProduct(req.Vector, vec)
		default:
			score = cosineSimilarity(req.Vector, vec)
		}
		scored = append(scored, core.VectorSearchItem{ID: id, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	return &core.VectorSearchResult{Items: scored}, nil
}

func (m *MemoryVectorIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = make(map[string]*collection)
	return nil
}

func matchFilter(filter map[string]any, meta map[string]any) bool {
	if len(filter) == 0 {
		return true
	}
	if meta == nil {
		return false
	}
	for k, want := range filter {
		if got, ok := meta[k]; !ok || got != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float64) float64 {
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

func euclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

func innerProduct(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

var _ core.VectorService = (*MemoryVectorIndex)(nil)
