package profile

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/store"
)

func newTestAggregator(t *testing.T) (*Aggregator, *store.MemoryLedger, *store.MemoryProfileStore, *store.MemoryCatalog) {
	t.Helper()
	catalog := store.NewMemoryCatalog()
	catalog.AddProduct(&core.Product{
		ID: "p-dell", Brand: "Dell", Categories: []string{"gaming", "workstation"},
		Price: 25_000_000, Stock: 3,
		CPU: "i7-13700H", RAM: "16GB",
	})
	catalog.AddProduct(&core.Product{
		ID: "p-mac", Brand: "Apple", Categories: []string{"ultrabook"},
		Price: 55_000_000, Stock: 2,
	})
	ledgerStore := store.NewMemoryLedger()
	profiles := store.NewMemoryProfileStore()
	return NewAggregator(catalog, profiles, ledgerStore, nil), ledgerStore, profiles, catalog
}

func record(t *testing.T, l *store.MemoryLedger, userID, productID string, typ core.InteractionType, weight float64) *core.Interaction {
	t.Helper()
	rec := &core.Interaction{
		UserID: userID, ProductID: productID, Type: typ,
		Weight: weight, Timestamp: time.Now(),
	}
	if err := l.Append(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

// TestUpdateAccumulatesBuckets 验证逐桶加法累计：桶值恒等于全部调整后权重之和
func TestUpdateAccumulatesBuckets(t *testing.T) {
	agg, ledgerStore, profiles, _ := newTestAggregator(t)
	ctx := context.Background()

	// 浏览 200s（权重 2）+ 喜欢（权重 3）→ Dell 桶累计 5
	weights := []struct {
		typ core.InteractionType
		w   float64
	}{
		{core.InteractionView, 2},
		{core.InteractionLike, 3},
	}
	for _, step := range weights {
		rec := record(t, ledgerStore, "u-1", "p-dell", step.typ, step.w)
		if err := agg.Update(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	p, err := profiles.GetProfile(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Bucket(core.BucketBrand)["Dell"]; got != 5 {
		t.Errorf("Dell 品牌桶 = %v, 期望 5", got)
	}
	for _, cate := range []string{"gaming", "workstation"} {
		if got := p.Bucket(core.BucketCategory)[cate]; got != 5 {
			t.Errorf("类目桶 %s = %v, 期望 5", cate, got)
		}
	}
	if got := p.Bucket(core.BucketCPU)["i7-13700H"]; got != 5 {
		t.Errorf("CPU 桶 = %v, 期望 5", got)
	}
	if p.Interactions != 2 {
		t.Errorf("行为计数 = %d, 期望 2", p.Interactions)
	}
}

// TestUpdateNegativeWeight 验证负权重行为做减法而不是覆盖
func TestUpdateNegativeWeight(t *testing.T) {
	agg, ledgerStore, profiles, _ := newTestAggregator(t)
	ctx := context.Background()

	for _, step := range []struct {
		typ core.InteractionType
		w   float64
	}{
		{core.InteractionLike, 3},
		{core.InteractionUnlike, -3},
	} {
		rec := record(t, ledgerStore, "u-1", "p-dell", step.typ, step.w)
		if err := agg.Update(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	p, err := profiles.GetProfile(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Bucket(core.BucketBrand)["Dell"]; got != 0 {
		t.Errorf("喜欢+取消喜欢后 Dell 桶 = %v, 期望 0", got)
	}
}

// TestPriceRangeRecompute 验证购买触发价格档位全量重算
func TestPriceRangeRecompute(t *testing.T) {
	agg, ledgerStore, profiles, _ := newTestAggregator(t)
	ctx := context.Background()

	for _, productID := range []string{"p-dell", "p-dell", "p-mac"} {
		rec := record(t, ledgerStore, "u-1", productID, core.InteractionPurchase, 10)
		if err := agg.Update(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	p, err := profiles.GetProfile(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	bucket := p.Bucket(core.BucketPriceRange)
	if got := bucket["20m_30m"]; got != 20 {
		t.Errorf("20m_30m 档 = %v, 期望 20（两次购买 × 10）", got)
	}
	if got := bucket["over_50m"]; got != 10 {
		t.Errorf("over_50m 档 = %v, 期望 10", got)
	}
}

// TestNormalize 验证逐桶 max 归一化
func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		bucket map[string]float64
		want   map[string]float64
	}{
		{"常规归一化", map[string]float64{"brandA": 10, "brandB": 5}, map[string]float64{"brandA": 1.0, "brandB": 0.5}},
		{"空桶", map[string]float64{}, map[string]float64{}},
		{"nil 桶", nil, map[string]float64{}},
		{"全零桶", map[string]float64{"a": 0, "b": 0}, map[string]float64{}},
		{"全负桶", map[string]float64{"a": -2}, map[string]float64{}},
		{"正负混合桶", map[string]float64{"a": 10, "b": -3, "c": 0}, map[string]float64{"a": 1.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.bucket)
			if len(got) != len(tt.want) {
				t.Fatalf("结果大小 = %d, 期望 %d", len(got), len(tt.want))
			}
			for label, w := range tt.want {
				if math.Abs(got[label]-w) > 1e-9 {
					t.Errorf("%s = %v, 期望 %v", label, got[label], w)
				}
			}
		})
	}
}

// TestTopLabels 验证排序与同分确定性
func TestTopLabels(t *testing.T) {
	bucket := map[string]float64{"b": 5, "a": 5, "c": 9, "d": 1}
	got := TopLabels(bucket, 3)
	want := []LabelWeight{{"c", 9}, {"a", 5}, {"b", 5}}
	if len(got) != len(want) {
		t.Fatalf("长度 = %d, 期望 %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("第 %d 位 = %+v, 期望 %+v", i, got[i], want[i])
		}
	}
}

// TestGetStats 验证画像统计与质量档位
func TestGetStats(t *testing.T) {
	agg, ledgerStore, _, _ := newTestAggregator(t)
	ctx := context.Background()

	// 不存在的用户返回 new 档全零统计
	stats, err := agg.GetStats(ctx, "u-none")
	if err != nil {
		t.Fatal(err)
	}
	if stats.QualityTier != core.TierNew || stats.TotalInteractions != 0 {
		t.Errorf("空用户统计: %+v", stats)
	}

	// 12 条行为 → low 档
	for i := 0; i < 12; i++ {
		rec := record(t, ledgerStore, "u-1", "p-dell", core.InteractionView, 1)
		if err := agg.Update(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	stats, err = agg.GetStats(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.QualityTier != core.TierLow {
		t.Errorf("质量档位 = %v, 期望 low", stats.QualityTier)
	}
	if stats.TotalInteractions != 12 {
		t.Errorf("行为总数 = %d, 期望 12", stats.TotalInteractions)
	}
	if len(stats.TopBrands) == 0 || stats.TopBrands[0].Label != "Dell" {
		t.Errorf("TopBrands = %+v", stats.TopBrands)
	}
	if stats.ProfileStrength <= 0 || stats.ProfileStrength > 1 {
		t.Errorf("画像强度越界: %v", stats.ProfileStrength)
	}
}

// TestGetStatsLedgerAuthoritative 验证画像计数滞后于账本时统计以账本为准
func TestGetStatsLedgerAuthoritative(t *testing.T) {
	agg, ledgerStore, _, _ := newTestAggregator(t)
	ctx := context.Background()

	// 前 3 条走完整聚合，后 9 条只落账本（模拟异步队列尚未消费）
	for i := 0; i < 12; i++ {
		rec := record(t, ledgerStore, "u-1", "p-dell", core.InteractionView, 1)
		if i < 3 {
			if err := agg.Update(ctx, rec); err != nil {
				t.Fatal(err)
			}
		}
	}

	stats, err := agg.GetStats(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalInteractions != 12 {
		t.Errorf("行为总数 = %d, 期望 12（以账本为准）", stats.TotalInteractions)
	}
	if stats.QualityTier != core.TierLow {
		t.Errorf("质量档位 = %v, 期望 low（账本已达 low 档阈值）", stats.QualityTier)
	}
}
