package rank

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/simcache"
	"github.com/rushteam/shoprec/store"
)

func newRankFixture(t *testing.T) (*Collaborative, *store.MemoryCatalog, *store.MemoryLedger) {
	t.Helper()
	catalog := store.NewMemoryCatalog()
	ledgerStore := store.NewMemoryLedger()
	return &Collaborative{
		Catalog: catalog,
		Ledger:  ledgerStore,
		Cache:   simcache.New(100, time.Minute),
	}, catalog, ledgerStore
}

func appendRec(t *testing.T, l *store.MemoryLedger, userID, productID string, weight float64) {
	t.Helper()
	err := l.Append(context.Background(), &core.Interaction{
		UserID: userID, ProductID: productID, Type: core.InteractionView,
		Weight: weight, Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

// TestBlendFormula 验证融合公式 final = 0.7*content + 0.3*collab
func TestBlendFormula(t *testing.T) {
	n, catalog, ledgerStore := newRankFixture(t)
	ctx := context.Background()

	// 候选与历史商品 embedding 同向，相似度 1，协同分等于历史权重
	catalog.AddProduct(&core.Product{ID: "p-cand", Brand: "Dell", Stock: 1, Embedding: []float64{1, 0}})
	catalog.AddProduct(&core.Product{ID: "p-hist", Brand: "Dell", Stock: 1, Embedding: []float64{1, 0}})
	appendRec(t, ledgerStore, "u-1", "p-hist", 0.4)

	item := core.NewItem("p-cand")
	item.ContentScore = 0.8
	items, err := n.Process(ctx, &core.RecommendContext{UserID: "u-1"}, []*core.Item{item})
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(items[0].CollabScore-0.4) > 1e-9 {
		t.Errorf("协同分 = %v, 期望 0.4", items[0].CollabScore)
	}
	if math.Abs(items[0].Score-0.68) > 1e-9 {
		t.Errorf("最终分 = %v, 期望 0.68", items[0].Score)
	}
}

// TestSimilarityFloor 验证低相似度历史不计入协同分
func TestSimilarityFloor(t *testing.T) {
	n, catalog, ledgerStore := newRankFixture(t)
	ctx := context.Background()

	// 正交向量相似度 0，低于 0.1 阈值
	catalog.AddProduct(&core.Product{ID: "p-cand", Brand: "Dell", Stock: 1, Embedding: []float64{1, 0}})
	catalog.AddProduct(&core.Product{ID: "p-hist", Brand: "HP", Stock: 1, Embedding: []float64{0, 1}})
	appendRec(t, ledgerStore, "u-1", "p-hist", 5)

	item := core.NewItem("p-cand")
	item.ContentScore = 0.8
	items, err := n.Process(ctx, &core.RecommendContext{UserID: "u-1"}, []*core.Item{item})
	if err != nil {
		t.Fatal(err)
	}
	if items[0].CollabScore != 0 {
		t.Errorf("协同分 = %v, 期望 0（相似度低于阈值）", items[0].CollabScore)
	}
	if math.Abs(items[0].Score-0.7*0.8) > 1e-9 {
		t.Errorf("最终分 = %v, 期望 0.56", items[0].Score)
	}
}

// TestPopularityFallback 验证空历史走热度兜底：final = 0.3*content + 0.7*collab
func TestPopularityFallback(t *testing.T) {
	n, catalog, ledgerStore := newRankFixture(t)
	ctx := context.Background()

	catalog.AddProduct(&core.Product{ID: "p-hot", Brand: "Dell", Stock: 1})
	// 其他用户贡献 50 次交互，collab = 50/100
	for i := 0; i < 50; i++ {
		appendRec(t, ledgerStore, "u-other", "p-hot", 1)
	}

	item := core.NewItem("p-hot")
	item.ContentScore = 0.5
	items, err := n.Process(ctx, &core.RecommendContext{UserID: "u-fresh"}, []*core.Item{item})
	if err != nil {
		t.Fatal(err)
	}
	want := 0.3*0.5 + 0.7*0.5
	if math.Abs(items[0].Score-want) > 1e-9 {
		t.Errorf("兜底最终分 = %v, 期望 %v", items[0].Score, want)
	}
}

// TestTimeoutDegrade 验证请求超时降级为热度融合而不是报错
func TestTimeoutDegrade(t *testing.T) {
	n, catalog, ledgerStore := newRankFixture(t)

	catalog.AddProduct(&core.Product{ID: "p-cand", Brand: "Dell", Stock: 1, Embedding: []float64{1, 0}})
	catalog.AddProduct(&core.Product{ID: "p-hist", Brand: "Dell", Stock: 1, Embedding: []float64{1, 0}})
	appendRec(t, ledgerStore, "u-1", "p-hist", 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // 模拟已超时的请求

	item := core.NewItem("p-cand")
	item.ContentScore = 0.8
	items, err := n.Process(ctx, &core.RecommendContext{UserID: "u-1"}, []*core.Item{item})
	if err != nil {
		t.Fatalf("超时应降级而不是报错: %v", err)
	}
	if lbl, ok := items[0].GetLabel("rank_mode"); !ok || lbl.Value != "popularity" {
		t.Errorf("降级模式标签 = %+v", items[0].Labels)
	}
}

// TestJaccard 验证用户集合相似度
func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b map[string]float64
		want float64
	}{
		{"半数重叠", map[string]float64{"u1": 1, "u2": 1}, map[string]float64{"u2": 1, "u3": 1}, 1.0 / 3},
		{"完全重叠", map[string]float64{"u1": 1}, map[string]float64{"u1": 2}, 1},
		{"无重叠", map[string]float64{"u1": 1}, map[string]float64{"u2": 1}, 0},
		{"空集合", nil, map[string]float64{"u1": 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Jaccard(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Jaccard = %v, 期望 %v", got, tt.want)
			}
		})
	}
}

// TestJaccardFallbackWhenNoEmbedding 验证缺 embedding 时退化为 Jaccard
func TestJaccardFallbackWhenNoEmbedding(t *testing.T) {
	n, catalog, ledgerStore := newRankFixture(t)
	ctx := context.Background()

	// 两个商品都没有 embedding，相似度来自共同交互用户
	catalog.AddProduct(&core.Product{ID: "p-cand", Brand: "Dell", Stock: 1})
	catalog.AddProduct(&core.Product{ID: "p-hist", Brand: "Dell", Stock: 1})
	appendRec(t, ledgerStore, "u-1", "p-hist", 4)
	// u-2 同时交互过两个商品，Jaccard(p-cand, p-hist) > 0
	appendRec(t, ledgerStore, "u-2", "p-cand", 1)
	appendRec(t, ledgerStore, "u-2", "p-hist", 1)

	item := core.NewItem("p-cand")
	items, err := n.Process(ctx, &core.RecommendContext{UserID: "u-1"}, []*core.Item{item})
	if err != nil {
		t.Fatal(err)
	}
	if items[0].CollabScore != 4 {
		t.Errorf("协同分 = %v, 期望 4（唯一历史的权重）", items[0].CollabScore)
	}
}
