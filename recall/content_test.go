package recall

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/store"
)

func newContentFixture(t *testing.T) (*VectorBuilder, *store.MemoryCatalog, *store.MemoryProfileStore) {
	t.Helper()
	b, catalog, profiles, _, _ := newVectorFixture(t)
	ctx := context.Background()

	catalog.AddProduct(&core.Product{ID: "p-close", Brand: "Dell", Stock: 1, Embedding: []float64{1, 0}})
	catalog.AddProduct(&core.Product{ID: "p-far", Brand: "HP", Stock: 1, Embedding: []float64{0, 1}})

	if err := profiles.IncrBucket(ctx, "u-1", core.BucketBrand, "Dell", 10); err != nil {
		t.Fatal(err)
	}
	return b, catalog, profiles
}

func contentVia(t *testing.T, it *core.Item) string {
	t.Helper()
	lbl, ok := it.GetLabel("content_via")
	if !ok {
		t.Fatalf("候选 %s 缺少 content_via 标签", it.ID)
	}
	return lbl.Value
}

// TestContentRecallIndex 验证走向量索引的召回路径：
// 命中结果带 index 标签，索引里有但已不在售的商品被过滤
func TestContentRecallIndex(t *testing.T) {
	b, catalog, _ := newContentFixture(t)
	ctx := context.Background()

	idx := store.NewMemoryVectorIndex()
	if err := idx.CreateCollection(ctx, "products", 2, "cosine"); err != nil {
		t.Fatal(err)
	}
	for _, p := range []struct {
		id  string
		vec []float64
	}{
		{"p-close", []float64{1, 0}},
		{"p-far", []float64{0, 1}},
		{"p-stale", []float64{1, 0}}, // 索引残留，目录里没有
	} {
		if err := idx.Upsert(ctx, "products", p.id, p.vec, nil); err != nil {
			t.Fatal(err)
		}
	}

	content := &Content{Catalog: catalog, Vectors: b, Index: idx, Collection: "products", Limit: 10}
	items, err := content.Recall(ctx, &core.RecommendContext{UserID: "u-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("候选数 = %d, 期望 2（索引残留商品被过滤）", len(items))
	}
	if items[0].ID != "p-close" {
		t.Errorf("首位 = %s, 期望 p-close", items[0].ID)
	}
	for _, it := range items {
		if it.ID == "p-stale" {
			t.Error("不在售的索引残留不应出现在候选里")
		}
		if via := contentVia(t, it); via != "index" {
			t.Errorf("候选 %s 的 content_via = %q, 期望 index", it.ID, via)
		}
	}
}

type failingIndex struct{}

func (f *failingIndex) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	return nil, errors.New("index unavailable")
}

func (f *failingIndex) Close() error { return nil }

// TestContentRecallIndexFallback 验证索引故障时降级为暴力扫描而不报错
func TestContentRecallIndexFallback(t *testing.T) {
	b, catalog, _ := newContentFixture(t)
	ctx := context.Background()

	content := &Content{Catalog: catalog, Vectors: b, Index: &failingIndex{}, Collection: "products", Limit: 10}
	items, err := content.Recall(ctx, &core.RecommendContext{UserID: "u-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("候选数 = %d, 期望 2（降级为扫描）", len(items))
	}
	if items[0].ID != "p-close" {
		t.Errorf("首位 = %s, 期望 p-close", items[0].ID)
	}
	for _, it := range items {
		if via := contentVia(t, it); via != "scan" {
			t.Errorf("候选 %s 的 content_via = %q, 期望 scan", it.ID, via)
		}
	}
}
