package core

import "testing"

func TestPriceTierLabel(t *testing.T) {
	cfg := DefaultWeightConfig()
	tests := []struct {
		price float64
		want  string
	}{
		{price: 0, want: "under_10m"},
		{price: 9_999_999, want: "under_10m"},
		{price: 10_000_000, want: "10m_20m"},
		{price: 25_000_000, want: "20m_30m"},
		{price: 30_000_000, want: "30m_50m"},
		{price: 50_000_000, want: "over_50m"},
		{price: 120_000_000, want: "over_50m"},
		{price: -1, want: ""},
	}
	for _, tt := range tests {
		if got := cfg.PriceTierLabel(tt.price); got != tt.want {
			t.Errorf("PriceTierLabel(%v) = %q, 期望 %q", tt.price, got, tt.want)
		}
	}
}

func TestProfileTier(t *testing.T) {
	cfg := DefaultWeightConfig()
	tests := []struct {
		name         string
		interactions int64
		bootstrap    bool
		want         QualityTier
	}{
		{name: "零行为", interactions: 0, want: TierNew},
		{name: "播种画像", interactions: 0, bootstrap: true, want: TierDefault},
		{name: "少量行为", interactions: 5, want: TierDefault},
		{name: "low 档临界", interactions: 10, want: TierLow},
		{name: "medium 档", interactions: 30, want: TierMedium},
		{name: "high 档", interactions: 80, want: TierHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPreferenceProfile("u-1")
			p.Interactions = tt.interactions
			p.Bootstrap = tt.bootstrap
			if got := p.Tier(cfg); got != tt.want {
				t.Errorf("Tier() = %v, 期望 %v", got, tt.want)
			}
		})
	}

	var nilProfile *PreferenceProfile
	if got := nilProfile.Tier(cfg); got != TierNew {
		t.Errorf("nil 画像 Tier() = %v, 期望 new", got)
	}
}

func TestHasVector(t *testing.T) {
	p := NewPreferenceProfile("u-1")
	if p.HasVector(3) {
		t.Error("空向量不应通过校验")
	}
	p.Vector = []float64{1, 2, 3}
	if !p.HasVector(3) {
		t.Error("维度匹配的向量应通过校验")
	}
	if p.HasVector(4) {
		t.Error("维度不匹配的向量不应通过校验")
	}
	if !p.HasVector(0) {
		t.Error("dim <= 0 时只要向量非空就应通过")
	}
}
