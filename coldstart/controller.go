// Package coldstart 实现冷启动与惰性初始化：
// 无画像用户在首次推荐请求时同步播种一份默认画像，
// 全站零交互时由最近上架商品兜底，保证推荐请求只降质量不降可用性。
package coldstart

import (
	"context"
	"time"

	"github.com/rushteam/shoprec/core"
)

// Controller 是冷启动控制器。无内部状态，依赖显式注入。
type Controller struct {
	catalog  core.CatalogReader
	ledger   core.LedgerStore
	profiles core.ProfileStore
	cfg      *core.WeightConfig
}

func NewController(catalog core.CatalogReader, ledger core.LedgerStore, profiles core.ProfileStore, cfg *core.WeightConfig) *Controller {
	if cfg == nil {
		cfg = core.DefaultWeightConfig()
	}
	return &Controller{catalog: catalog, ledger: ledger, profiles: profiles, cfg: cfg}
}

// Ready 检查引擎是否具备出推荐的最低条件：目录非空。
// 目录为空返回 NOT_READY，这是 getRecommendations 唯一的失败理由。
func (c *Controller) Ready(ctx context.Context) error {
	count, err := c.catalog.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotReady, "coldstart: catalog is empty")
	}
	return nil
}

// EnsureProfile 保证用户画像存在：没有就用全站热度同步播种一份默认画像。
// 返回的画像可能是刚创建的 bootstrap 画像（质量档位 default）。
func (c *Controller) EnsureProfile(ctx context.Context, userID string) (*core.PreferenceProfile, error) {
	p, err := c.profiles.GetProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !core.IsProfileNotFound(err) {
		return nil, err
	}

	p, err = c.seedProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.profiles.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	// 并发创建时可能已有别的请求写入，以存储里的为准
	return c.profiles.GetProfile(ctx, userID)
}

// seedProfile 用全站热门商品的属性播种默认画像：
// 取交互次数 top 商品，把品牌和类目按 min(次数/PopularityScale, 1) 计入桶。
// 全站零交互时返回空桶的 bootstrap 画像（推荐侧再走最近上架兜底）。
func (c *Controller) seedProfile(ctx context.Context, userID string) (*core.PreferenceProfile, error) {
	p := core.NewPreferenceProfile(userID)
	p.Bootstrap = true
	p.UpdatedAt = time.Now()

	tops, err := c.ledger.TopInteracted(ctx, c.cfg.GenericSample)
	if err != nil {
		return nil, err
	}

	brands := make(map[string]float64)
	categories := make(map[string]float64)
	p.Buckets[core.BucketBrand] = brands
	p.Buckets[core.BucketCategory] = categories
	for _, productID := range tops {
		product, err := c.catalog.GetProduct(ctx, productID)
		if err != nil {
			continue
		}
		count, err := c.ledger.InteractionCount(ctx, productID)
		if err != nil {
			continue
		}
		w := float64(count) / float64(c.cfg.PopularityScale)
		if w > 1 {
			w = 1
		}
		if product.Brand != "" {
			brands[product.Brand] += w
		}
		for _, cate := range product.Categories {
			if cate != "" {
				categories[cate] += w
			}
		}
	}
	return p, nil
}

// NeedRecencyFallback 判断是否要走最近上架兜底：全站一条交互都没有。
func (c *Controller) NeedRecencyFallback(ctx context.Context) (bool, error) {
	total, err := c.ledger.TotalInteractions(ctx)
	if err != nil {
		return false, err
	}
	return total == 0, nil
}
