package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/shoprec/core"
)

// MemoryLedger 是内存实现的 LedgerStore，用于测试/开发/原型。
// 进程重启后数据丢失。
type MemoryLedger struct {
	mu sync.RWMutex

	// byUser: userID -> 按写入顺序（从旧到新）的记录
	byUser map[string][]*core.Interaction

	// productUsers: productID -> userID -> 累计权重
	productUsers map[string]map[string]float64

	// counts: productID -> 交互次数
	counts map[string]int64

	total int64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		byUser:       make(map[string][]*core.Interaction),
		productUsers: make(map[string]map[string]float64),
		counts:       make(map[string]int64),
	}
}

func (m *MemoryLedger) Name() string { return "memory" }

func (m *MemoryLedger) Append(ctx context.Context, rec *core.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	m.byUser[rec.UserID] = append(m.byUser[rec.UserID], &cp)

	if m.productUsers[rec.ProductID] == nil {
		m.productUsers[rec.ProductID] = make(map[string]float64)
	}
	m.productUsers[rec.ProductID][rec.UserID] += rec.Weight

	m.counts[rec.ProductID]++
	m.total++
	return nil
}

// UserInteractions 返回从新到旧的记录副本。
func (m *MemoryLedger) UserInteractions(ctx context.Context, userID string) ([]*core.Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := m.byUser[userID]
	out := make([]*core.Interaction, len(recs))
	for i, r := range recs {
		out[len(recs)-1-i] = r
	}
	return out, nil
}

func (m *MemoryLedger) UserInteractionCount(ctx context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.byUser[userID])), nil
}

func (m *MemoryLedger) InteractedProducts(ctx context.Context, userID string) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]struct{})
	for _, r := range m.byUser[userID] {
		out[r.ProductID] = struct{}{}
	}
	return out, nil
}

func (m *MemoryLedger) ProductUsers(ctx context.Context, productID string) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := m.productUsers[productID]
	out := make(map[string]float64, len(users))
	for u, w := range users {
		out[u] = w
	}
	return out, nil
}

func (m *MemoryLedger) InteractionCount(ctx context.Context, productID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[productID], nil
}

func (m *MemoryLedger) TotalInteractions(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total, nil
}

func (m *MemoryLedger) TopInteracted(ctx context.Context, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type pair struct {
		id    string
		count int64
	}
	pairs := make([]pair, 0, len(m.counts))
	for id, c := range m.counts {
		pairs = append(pairs, pair{id: id, count: c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count == pairs[j].count {
			return pairs[i].id < pairs[j].id
		}
		return pairs[i].count > pairs[j].count
	})

	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.id
	}
	return out, nil
}

func (m *MemoryLedger) Close() error { return nil }

var _ core.LedgerStore = (*MemoryLedger)(nil)

// MemoryProfileStore 是内存实现的 ProfileStore。
// IncrBucket 在锁内做加法，满足"原子加"契约。
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*core.PreferenceProfile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{
		profiles: make(map[string]*core.PreferenceProfile),
	}
}

func (m *MemoryProfileStore) Name() string { return "memory" }

func (m *MemoryProfileStore) GetProfile(ctx context.Context, userID string) (*core.PreferenceProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, core.ErrProfileNotFound
	}
	return copyProfile(p), nil
}

func (m *MemoryProfileStore) CreateProfile(ctx context.Context, profile *core.PreferenceProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 已存在则不覆盖：惰性初始化与首次行为可能并发
	if _, ok := m.profiles[profile.UserID]; ok {
		return nil
	}
	m.profiles[profile.UserID] = copyProfile(profile)
	return nil
}

func (m *MemoryProfileStore) IncrBucket(ctx context.Context, userID, bucket, label string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.ensure(userID)
	if p.Buckets[bucket] == nil {
		p.Buckets[bucket] = make(map[string]float64)
	}
	p.Buckets[bucket][label] += delta
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryProfileStore) SetBucket(ctx context.Context, userID, bucket string, weights map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.ensure(userID)
	replaced := make(map[string]float64, len(weights))
	for k, v := range weights {
		replaced[k] = v
	}
	p.Buckets[bucket] = replaced
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryProfileStore) IncrInteractions(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.ensure(userID)
	p.Interactions++
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryProfileStore) SaveVector(ctx context.Context, userID string, vec []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.ensure(userID)
	if vec == nil {
		p.Vector = nil
	} else {
		p.Vector = append([]float64(nil), vec...)
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryProfileStore) DeleteProfile(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.profiles, userID)
	return nil
}

func (m *MemoryProfileStore) Close() error { return nil }

// ensure 在锁内获取或创建画像。
func (m *MemoryProfileStore) ensure(userID string) *core.PreferenceProfile {
	p, ok := m.profiles[userID]
	if !ok {
		p = core.NewPreferenceProfile(userID)
		m.profiles[userID] = p
	}
	return p
}

func copyProfile(p *core.PreferenceProfile) *core.PreferenceProfile {
	cp := &core.PreferenceProfile{
		UserID:       p.UserID,
		Buckets:      make(map[string]map[string]float64, len(p.Buckets)),
		Interactions: p.Interactions,
		Bootstrap:    p.Bootstrap,
		UpdatedAt:    p.UpdatedAt,
	}
	for bucket, labels := range p.Buckets {
		b := make(map[string]float64, len(labels))
		for k, v := range labels {
			b[k] = v
		}
		cp.Buckets[bucket] = b
	}
	if p.Vector != nil {
		cp.Vector = append([]float64(nil), p.Vector...)
	}
	return cp
}

var _ core.ProfileStore = (*MemoryProfileStore)(nil)

// MemoryCatalog 是内存实现的 CatalogReader，用于测试与原型。
// 生产环境由外部目录服务（或 feast.Catalog）提供。
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]*core.Product
	order    []string // 按加入顺序，MostRecent 从尾部取
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		products: make(map[string]*core.Product),
	}
}

// AddProduct 加入或更新商品。
func (m *MemoryCatalog) AddProduct(p *core.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.products[p.ID] = p
}

func (m *MemoryCatalog) GetProduct(ctx context.Context, productID string) (*core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[productID]
	if !ok {
		return nil, core.ErrProductNotFound
	}
	return p, nil
}

func (m *MemoryCatalog) ListInStock(ctx context.Context) ([]*core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*core.Product, 0, len(m.products))
	for _, id := range m.order {
		if p := m.products[id]; p.InStock() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryCatalog) MostRecent(ctx context.Context, limit int) ([]*core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*core.Product, 0, limit)
	for i := len(m.order) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if p := m.products[m.order[i]]; p.InStock() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryCatalog) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products), nil
}

var _ core.CatalogReader = (*MemoryCatalog)(nil)
