// Package ledger 实现行为账本：用户行为的唯一写入口。
//
// 写路径语义：
//   - 校验与权重计算在写入前完成，失败时无任何落盘
//   - 账本写入是同步的（调用方等待持久化完成）
//   - 画像更新是异步的（fire-and-forget 入队，失败只记日志，不回传调用方）
package ledger

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/shoprec/core"
)

// Aggregator 是账本写入后异步触发的画像更新端。
// 实现方（profile.Worker）必须保证每条记录至多消费一次。
type Aggregator interface {
	// EnqueueUpdate 非阻塞入队；队列满返回 false（调用方记日志后放弃）
	EnqueueUpdate(rec *core.Interaction) bool
}

// Service 是行为账本服务。无内部状态，依赖显式注入。
type Service struct {
	catalog    core.CatalogReader
	store      core.LedgerStore
	cfg        *core.WeightConfig
	aggregator Aggregator
	logger     zerolog.Logger
}

// NewService 创建账本服务。aggregator 可为 nil（纯记录模式，例如回放导入）。
func NewService(catalog core.CatalogReader, store core.LedgerStore, cfg *core.WeightConfig, aggregator Aggregator, logger zerolog.Logger) *Service {
	if cfg == nil {
		cfg = core.DefaultWeightConfig()
	}
	return &Service{
		catalog:    catalog,
		store:      store,
		cfg:        cfg,
		aggregator: aggregator,
		logger:     logger,
	}
}

// Record 记录一条用户行为，返回调整后权重与时间戳。
//
// 错误语义：
//   - 参数缺失 / 未知行为类型 / 评分越界 → INVALID_INPUT，同步返回，无落盘
//   - 商品不存在 → NOT_FOUND，同步返回，无落盘
//   - 账本写入错误原样上抛
func (s *Service) Record(ctx context.Context, userID, productID string, typ core.InteractionType, metadata map[string]any) (*core.Interaction, error) {
	if userID == "" {
		return nil, core.NewDomainError(core.ModuleLedger, core.ErrorCodeInvalidInput, "ledger: user id is required")
	}
	if productID == "" {
		return nil, core.NewDomainError(core.ModuleLedger, core.ErrorCodeInvalidInput, "ledger: product id is required")
	}
	if typ == "" {
		return nil, core.NewDomainError(core.ModuleLedger, core.ErrorCodeInvalidInput, "ledger: interaction type is required")
	}
	if !core.ValidInteractionType(typ) {
		return nil, core.NewDomainError(core.ModuleLedger, core.ErrorCodeInvalidInput, "ledger: unknown interaction type: "+string(typ))
	}

	rec := &core.Interaction{
		UserID:    userID,
		ProductID: productID,
		Type:      typ,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}

	if typ == core.InteractionRating {
		rv, ok := rec.RatingValue()
		if !ok || rv < 1 || rv > 5 {
			return nil, core.NewDomainError(core.ModuleLedger, core.ErrorCodeInvalidInput, "ledger: rating_value must be within [1,5]")
		}
	}

	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		if core.IsNotFound(err) {
			return nil, core.ErrProductNotFound
		}
		return nil, err
	}

	rec.Weight = s.AdjustedWeight(rec)

	// 同步落盘：调用方等待持久化完成后才收到应答
	if err := s.store.Append(ctx, rec); err != nil {
		return nil, err
	}

	// 异步触发画像更新：失败只记日志，绝不上抛给写入方
	if s.aggregator != nil {
		if !s.aggregator.EnqueueUpdate(rec) {
			s.logger.Warn().
				Str("user_id", userID).
				Str("product_id", productID).
				Str("type", string(typ)).
				Msg("profile update queue full, increment dropped")
		}
	}

	return rec, nil
}

// AdjustedWeight 按配置计算调整后权重。
//
// 调整顺序（乘法叠加）：
//  1. view 时长：<ShortViewSecs ×0.5；>LongViewSecs ×2；(MidViewSecs, LongViewSecs] ×1.5
//  2. rating：× rating_value/5
//  3. source == "recommendation"：额外 ×RecSourceFactor
//  4. 四舍五入保留两位小数
func (s *Service) AdjustedWeight(rec *core.Interaction) float64 {
	w := s.cfg.BaseWeights[rec.Type]

	switch rec.Type {
	case core.InteractionView:
		if d, ok := rec.Duration(); ok {
			switch {
			case d < s.cfg.ShortViewSecs:
				w *= s.cfg.ShortViewFactor
			case d > s.cfg.LongViewSecs:
				w *= s.cfg.LongViewFactor
			case d > s.cfg.MidViewSecs:
				w *= s.cfg.MidViewFactor
			}
		}
	case core.InteractionRating:
		if rv, ok := rec.RatingValue(); ok {
			w *= rv / 5
		}
	}

	if rec.Source() == "recommendation" {
		w *= s.cfg.RecSourceFactor
	}

	return math.Round(w*100) / 100
}
