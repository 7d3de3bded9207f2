package recall

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/profile"
	"github.com/rushteam/shoprec/store"
)

// TestCosineSimilarity 验证余弦相似度计算
func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"同向", []float64{1, 0}, []float64{2, 0}, 1},
		{"正交", []float64{1, 0}, []float64{0, 1}, 0},
		{"反向", []float64{1, 0}, []float64{-1, 0}, -1},
		{"维度不符", []float64{1, 0}, []float64{1}, 0},
		{"零向量", []float64{0, 0}, []float64{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, 期望 %v", got, tt.want)
			}
		})
	}
}

// TestL2Normalize 验证归一化后模长为 1
func TestL2Normalize(t *testing.T) {
	got := L2Normalize([]float64{3, 4})
	if math.Abs(got[0]-0.6) > 1e-9 || math.Abs(got[1]-0.8) > 1e-9 {
		t.Errorf("L2Normalize = %v, 期望 [0.6 0.8]", got)
	}

	zero := L2Normalize([]float64{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("零向量应原样返回: %v", zero)
	}
}

func newVectorFixture(t *testing.T) (*VectorBuilder, *store.MemoryCatalog, *store.MemoryProfileStore, *store.MemoryLedger, *profile.Aggregator) {
	t.Helper()
	catalog := store.NewMemoryCatalog()
	ledgerStore := store.NewMemoryLedger()
	profiles := store.NewMemoryProfileStore()
	agg := profile.NewAggregator(catalog, profiles, ledgerStore, nil)
	return NewVectorBuilder(catalog, profiles, agg, nil), catalog, profiles, ledgerStore, agg
}

// TestBuildFromBrandPreference 验证偏好向量朝高权重品牌倾斜
func TestBuildFromBrandPreference(t *testing.T) {
	b, catalog, _, _, _ := newVectorFixture(t)
	ctx := context.Background()

	catalog.AddProduct(&core.Product{ID: "p-dell", Brand: "Dell", Stock: 1, Embedding: []float64{1, 0}})
	catalog.AddProduct(&core.Product{ID: "p-hp", Brand: "HP", Stock: 1, Embedding: []float64{0, 1}})

	// 只给 Dell 累计权重
	if err := b.profiles.IncrBucket(ctx, "u-1", core.BucketBrand, "Dell", 10); err != nil {
		t.Fatal(err)
	}

	vec, err := b.Build(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 {
		t.Fatalf("向量维度 = %d, 期望 2", len(vec))
	}
	// 只有 Dell 命中偏好，向量应等于 Dell 的 embedding 方向
	if math.Abs(vec[0]-1) > 1e-9 || math.Abs(vec[1]) > 1e-9 {
		t.Errorf("偏好向量 = %v, 期望 [1 0]", vec)
	}
}

// TestBuildGenericFallback 验证无偏好命中时的等权采样兜底
func TestBuildGenericFallback(t *testing.T) {
	b, catalog, _, _, _ := newVectorFixture(t)
	ctx := context.Background()

	catalog.AddProduct(&core.Product{ID: "p-1", Brand: "Dell", Stock: 1, Embedding: []float64{1, 0}})
	catalog.AddProduct(&core.Product{ID: "p-2", Brand: "HP", Stock: 1, Embedding: []float64{0, 1}})

	// 无任何画像：等权平均后归一化
	vec, err := b.Build(ctx, "u-new")
	if err != nil {
		t.Fatal(err)
	}
	want := 1 / math.Sqrt2
	if math.Abs(vec[0]-want) > 1e-9 || math.Abs(vec[1]-want) > 1e-9 {
		t.Errorf("兜底向量 = %v, 期望 [%v %v]", vec, want, want)
	}
}

// TestBuildNoEmbeddings 验证目录无向量时返回空
func TestBuildNoEmbeddings(t *testing.T) {
	b, catalog, _, _, _ := newVectorFixture(t)
	catalog.AddProduct(&core.Product{ID: "p-1", Brand: "Dell", Stock: 1})

	vec, err := b.Build(context.Background(), "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 0 {
		t.Errorf("无 embedding 时应返回空向量: %v", vec)
	}
}

// TestPreferenceVectorCaching 验证向量缓存复用与维度校验
func TestPreferenceVectorCaching(t *testing.T) {
	b, catalog, profiles, _, _ := newVectorFixture(t)
	ctx := context.Background()

	catalog.AddProduct(&core.Product{ID: "p-1", Brand: "Dell", Stock: 1, Embedding: []float64{1, 0}})

	vec, err := b.PreferenceVector(ctx, "u-1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 {
		t.Fatalf("向量维度 = %d, 期望 2", len(vec))
	}

	// 构建成功后应已缓存
	p, err := profiles.GetProfile(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if !p.HasVector(2) {
		t.Error("偏好向量未缓存")
	}
}

// TestContentRecallScan 验证暴力扫描召回按相似度降序
func TestContentRecallScan(t *testing.T) {
	b, catalog, profiles, _, _ := newVectorFixture(t)
	ctx := context.Background()

	catalog.AddProduct(&core.Product{ID: "p-close", Brand: "Dell", Stock: 1, Embedding: []float64{1, 0}})
	catalog.AddProduct(&core.Product{ID: "p-far", Brand: "HP", Stock: 1, Embedding: []float64{0, 1}})
	catalog.AddProduct(&core.Product{ID: "p-out", Brand: "HP", Stock: 0, Embedding: []float64{1, 0}})

	if err := profiles.IncrBucket(ctx, "u-1", core.BucketBrand, "Dell", 10); err != nil {
		t.Fatal(err)
	}

	content := &Content{Catalog: catalog, Vectors: b, Limit: 10}
	items, err := content.Recall(ctx, &core.RecommendContext{UserID: "u-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("候选数 = %d, 期望 2（缺货商品不参与）", len(items))
	}
	if items[0].ID != "p-close" {
		t.Errorf("首位 = %s, 期望 p-close", items[0].ID)
	}
	if items[0].ContentScore <= items[1].ContentScore {
		t.Error("应按内容分降序")
	}
}
