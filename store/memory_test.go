package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rushteam/shoprec/core"
)

func TestMemoryLedgerOrdering(t *testing.T) {
	m := NewMemoryLedger()
	ctx := context.Background()

	for _, pid := range []string{"p-1", "p-2", "p-3"} {
		err := m.Append(ctx, &core.Interaction{
			UserID: "u-1", ProductID: pid, Type: core.InteractionView,
			Weight: 1, Timestamp: time.Now(),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	recs, err := m.UserInteractions(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"p-3", "p-2", "p-1"}
	for i, w := range want {
		if recs[i].ProductID != w {
			t.Errorf("第 %d 条 = %s, 期望 %s（从新到旧）", i, recs[i].ProductID, w)
		}
	}
}

func TestMemoryLedgerAggregates(t *testing.T) {
	m := NewMemoryLedger()
	ctx := context.Background()

	appendRec := func(user, product string, w float64) {
		t.Helper()
		if err := m.Append(ctx, &core.Interaction{UserID: user, ProductID: product, Weight: w}); err != nil {
			t.Fatal(err)
		}
	}
	appendRec("u-1", "p-1", 2)
	appendRec("u-1", "p-1", 3)
	appendRec("u-2", "p-1", 1)
	appendRec("u-2", "p-2", 5)

	users, err := m.ProductUsers(ctx, "p-1")
	if err != nil {
		t.Fatal(err)
	}
	if users["u-1"] != 5 || users["u-2"] != 1 {
		t.Errorf("p-1 用户权重 = %v, 期望 u-1:5 u-2:1", users)
	}

	count, err := m.InteractionCount(ctx, "p-1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("p-1 交互次数 = %d, 期望 3", count)
	}

	total, err := m.TotalInteractions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Errorf("全站交互数 = %d, 期望 4", total)
	}

	seen, err := m.InteractedProducts(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := seen["p-1"]; !ok {
		t.Error("u-1 的已交互集合应包含 p-1")
	}
	if _, ok := seen["p-2"]; ok {
		t.Error("u-1 的已交互集合不应包含 p-2")
	}
}

// TestTopInteractedDeterministic 验证同次数时按 ID 升序，结果可复现
func TestTopInteractedDeterministic(t *testing.T) {
	m := NewMemoryLedger()
	ctx := context.Background()

	for _, pid := range []string{"p-b", "p-a", "p-c"} {
		if err := m.Append(ctx, &core.Interaction{UserID: "u-1", ProductID: pid, Weight: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Append(ctx, &core.Interaction{UserID: "u-2", ProductID: "p-c", Weight: 1}); err != nil {
		t.Fatal(err)
	}

	tops, err := m.TopInteracted(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"p-c", "p-a"}
	if len(tops) != len(want) {
		t.Fatalf("TopInteracted 长度 = %d, 期望 %d", len(tops), len(want))
	}
	for i, w := range want {
		if tops[i] != w {
			t.Errorf("第 %d 位 = %s, 期望 %s", i, tops[i], w)
		}
	}
}

// TestIncrBucketConcurrent 验证 IncrBucket 的原子加契约
func TestIncrBucketConcurrent(t *testing.T) {
	m := NewMemoryProfileStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.IncrBucket(ctx, "u-1", core.BucketBrand, "Dell", 1); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	p, err := m.GetProfile(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Bucket(core.BucketBrand)["Dell"]; got != 100 {
		t.Errorf("并发累加后 Dell = %v, 期望 100", got)
	}
}

// TestProfileCopySemantics 验证读出的画像是副本，改动不回写存储
func TestProfileCopySemantics(t *testing.T) {
	m := NewMemoryProfileStore()
	ctx := context.Background()

	if err := m.IncrBucket(ctx, "u-1", core.BucketBrand, "Dell", 3); err != nil {
		t.Fatal(err)
	}
	p, err := m.GetProfile(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	p.Bucket(core.BucketBrand)["Dell"] = 999

	again, err := m.GetProfile(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if got := again.Bucket(core.BucketBrand)["Dell"]; got != 3 {
		t.Errorf("外部改动污染了存储: Dell = %v, 期望 3", got)
	}
}

func TestCreateProfileNoOverwrite(t *testing.T) {
	m := NewMemoryProfileStore()
	ctx := context.Background()

	if err := m.IncrBucket(ctx, "u-1", core.BucketBrand, "Dell", 3); err != nil {
		t.Fatal(err)
	}

	seed := core.NewPreferenceProfile("u-1")
	seed.Bootstrap = true
	if err := m.CreateProfile(ctx, seed); err != nil {
		t.Fatal(err)
	}

	p, err := m.GetProfile(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Bootstrap {
		t.Error("已有画像不应被播种画像覆盖")
	}
}

func TestMemoryCatalogMostRecent(t *testing.T) {
	m := NewMemoryCatalog()
	ctx := context.Background()

	m.AddProduct(&core.Product{ID: "p-1", Stock: 1})
	m.AddProduct(&core.Product{ID: "p-2", Stock: 0})
	m.AddProduct(&core.Product{ID: "p-3", Stock: 2})

	recent, err := m.MostRecent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"p-3", "p-1"}
	if len(recent) != len(want) {
		t.Fatalf("MostRecent 长度 = %d, 期望 %d（无库存商品剔除）", len(recent), len(want))
	}
	for i, w := range want {
		if recent[i].ID != w {
			t.Errorf("第 %d 位 = %s, 期望 %s", i, recent[i].ID, w)
		}
	}
}

func TestMemoryVectorIndexSearch(t *testing.T) {
	idx := NewMemoryVectorIndex()
	ctx := context.Background()

	if err := idx.CreateCollection(ctx, "products", 2, "cosine"); err != nil {
		t.Fatal(err)
	}
	if err := idx.CreateCollection(ctx, "products", 2, "cosine"); !core.IsInvalidInput(err) {
		t.Errorf("重复建集合应返回 INVALID_INPUT，实际: %v", err)
	}

	vectors := map[string][]float64{
		"p-1": {1, 0},
		"p-2": {0.9, 0.1},
		"p-3": {0, 1},
	}
	for id, vec := range vectors {
		if err := idx.Upsert(ctx, "products", id, vec, map[string]any{"brand": "Dell"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.Upsert(ctx, "products", "p-bad", []float64{1, 2, 3}, nil); !core.IsInvalidInput(err) {
		t.Errorf("维度不符应返回 INVALID_INPUT，实际: %v", err)
	}

	res, err := idx.Search(ctx, &core.VectorSearchRequest{
		Collection: "products",
		Vector:     []float64{1, 0},
		TopK:       2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("TopK=2 应返回 2 条，实际 %d", len(res.Items))
	}
	if res.Items[0].ID != "p-1" || res.Items[1].ID != "p-2" {
		t.Errorf("余弦排序错误: %v", res.Items)
	}

	if err := idx.Remove(ctx, "products", "p-1"); err != nil {
		t.Fatal(err)
	}
	res, err = idx.Search(ctx, &core.VectorSearchRequest{Collection: "products", Vector: []float64{1, 0}, TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range res.Items {
		if it.ID == "p-1" {
			t.Error("删除后的向量不应出现在检索结果中")
		}
	}
}
