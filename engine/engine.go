// Package engine 把各组件装配成完整的推荐引擎，对外提供四个入口：
// 记录行为、获取推荐、查相似商品、查画像统计。
package engine

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/shoprec/coldstart"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/filter"
	"github.com/rushteam/shoprec/ledger"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/profile"
	"github.com/rushteam/shoprec/rank"
	"github.com/rushteam/shoprec/recall"
	"github.com/rushteam/shoprec/rerank"
	"github.com/rushteam/shoprec/simcache"
)

// Options 是引擎的装配参数。Catalog、Ledger、Profiles 必填，其余零值取默认。
type Options struct {
	Catalog  core.CatalogReader
	Ledger   core.LedgerStore
	Profiles core.ProfileStore

	// Index 是可选的向量索引，nil 时内容召回走暴力扫描
	Index      core.VectorService
	Collection string

	Config  *core.WeightConfig
	Logger  zerolog.Logger
	Worker  profile.WorkerConfig
	Timeout time.Duration // 单次推荐请求的时间预算，默认 3s

	CacheSize int
	CacheTTL  time.Duration

	// Rules 是场景名到 CEL 过滤表达式的映射（可选）
	Rules map[string]string
}

// Engine 是推荐引擎门面。通过 New 装配，Close 释放。
type Engine struct {
	catalog  core.CatalogReader
	ledgers  core.LedgerStore
	profiles core.ProfileStore

	ledger  *ledger.Service
	agg     *profile.Aggregator
	worker  *profile.Worker
	cold    *coldstart.Controller
	cache   *simcache.Cache
	vectors *recall.VectorBuilder

	index      core.VectorService
	collection string

	cfg     *core.WeightConfig
	logger  zerolog.Logger
	timeout time.Duration

	pipe       *pipeline.Pipeline // 主链路：内容召回起步
	hotPipe    *pipeline.Pipeline // 热度链路：无 embedding / 无偏好时
	recentPipe *pipeline.Pipeline // 最近上架链路：全站零交互时
}

func New(opts Options) *Engine {
	cfg := opts.Config
	if cfg == nil {
		cfg = core.DefaultWeightConfig()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	e := &Engine{
		catalog:  opts.Catalog,
		ledgers:  opts.Ledger,
		profiles: opts.Profiles,
		cfg:      cfg,
		logger:   opts.Logger,
		timeout:  timeout,
		cache:    simcache.New(opts.CacheSize, opts.CacheTTL),
	}

	e.agg = profile.NewAggregator(opts.Catalog, opts.Profiles, opts.Ledger, cfg)
	e.worker = profile.NewWorker(e.agg, opts.Worker, opts.Logger)
	e.worker.Start()
	e.ledger = ledger.NewService(opts.Catalog, opts.Ledger, cfg, e.worker, opts.Logger)
	e.cold = coldstart.NewController(opts.Catalog, opts.Ledger, opts.Profiles, cfg)

	e.index = opts.Index
	e.collection = opts.Collection
	vectors := recall.NewVectorBuilder(opts.Catalog, opts.Profiles, e.agg, cfg)
	e.vectors = vectors
	ranker := &rank.Collaborative{
		Catalog: opts.Catalog,
		Ledger:  opts.Ledger,
		Cache:   e.cache,
		Cfg:     cfg,
	}
	diversity := &rerank.BrandDiversity{MaxPerBrand: cfg.BrandCap}
	topn := &rerank.TopN{}
	excluded := &filter.Interacted{Ledger: opts.Ledger}
	rules := &filter.SceneRule{Rules: opts.Rules}

	e.pipe = &pipeline.Pipeline{Nodes: []pipeline.Node{
		&recall.SourceNode{Source: &recall.Content{
			Catalog:    opts.Catalog,
			Vectors:    vectors,
			Index:      opts.Index,
			Collection: opts.Collection,
			Limit:      cfg.CandidateLimit,
		}},
		excluded,
		ranker,
		rules,
		diversity,
		topn,
	}}
	e.hotPipe = &pipeline.Pipeline{Nodes: []pipeline.Node{
		&recall.SourceNode{Source: &recall.Hot{
			Catalog: opts.Catalog,
			Ledger:  opts.Ledger,
			Cfg:     cfg,
			Limit:   cfg.CandidateLimit,
		}},
		excluded,
		ranker,
		rules,
		diversity,
		topn,
	}}
	e.recentPipe = &pipeline.Pipeline{Nodes: []pipeline.Node{
		&recall.SourceNode{Source: &recall.Recent{
			Catalog: opts.Catalog,
			Limit:   cfg.CandidateLimit,
		}},
		excluded,
		rules,
		diversity,
		topn,
	}}
	return e
}

// Close 排空画像更新队列并关闭底层存储。
func (e *Engine) Close() error {
	e.worker.Stop()
	if err := e.ledgers.Close(); err != nil {
		return err
	}
	return e.profiles.Close()
}

// Ready 检查引擎是否具备出推荐的最低条件（目录非空）。
// 供宿主服务做健康检查；GetRecommendations 内部也会先做同样的检查。
func (e *Engine) Ready(ctx context.Context) error {
	return e.cold.Ready(ctx)
}

// RecordInteraction 记录一条用户行为：同步落账本，异步更新画像。
func (e *Engine) RecordInteraction(ctx context.Context, userID, productID string, typ core.InteractionType, metadata map[string]any) (*core.Interaction, error) {
	return e.ledger.Record(ctx, userID, productID, typ, metadata)
}

// Recommendation 是单条推荐结果。
type Recommendation struct {
	ProductID    string  `json:"product_id"`
	ContentScore float64 `json:"content_score"`
	CollabScore  float64 `json:"collaborative_score"`
	FinalScore   float64 `json:"final_score"`
}

// RecommendOptions 是单次推荐请求的可选参数，零值取默认。
type RecommendOptions struct {
	// Scene 场景标识，命中 Options.Rules 里的 CEL 规则时生效。
	Scene string

	// Limit 返回条数上限，<= 0 时取 10。
	Limit int

	// IncludeInteracted 为 true 时不排除已交互商品（默认排除）。
	IncludeInteracted bool
}

// GetRecommendations 生成个性化推荐。
//
// 画像不存在时先同步播种（惰性初始化），目录无 embedding 或用户无偏好时
// 走热度链路，全站零交互时走最近上架链路。
// 唯一的失败场景是目录为空（NOT_READY）；请求超时降级为热度融合而不报错。
func (e *Engine) GetRecommendations(ctx context.Context, userID string, limit int) ([]*Recommendation, error) {
	return e.Recommend(ctx, userID, RecommendOptions{Limit: limit})
}

// GetSceneRecommendations 和 GetRecommendations 相同，但会应用场景规则
// （Options.Rules 里该场景名对应的 CEL 表达式）。
func (e *Engine) GetSceneRecommendations(ctx context.Context, userID, scene string, limit int) ([]*Recommendation, error) {
	return e.Recommend(ctx, userID, RecommendOptions{Scene: scene, Limit: limit})
}

// Recommend 是推荐入口的完整形态，接受全部请求级参数。
func (e *Engine) Recommend(ctx context.Context, userID string, opts RecommendOptions) ([]*Recommendation, error) {
	if userID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: user id is required")
	}
	if err := e.cold.Ready(ctx); err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prof, err := e.cold.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	rctx := &core.RecommendContext{
		UserID:  userID,
		Scene:   opts.Scene,
		Profile: prof,
		Params: map[string]any{
			"limit":              limit,
			"exclude_interacted": !opts.IncludeInteracted,
		},
	}

	recency, err := e.cold.NeedRecencyFallback(ctx)
	if err != nil {
		return nil, err
	}
	if recency {
		items, err := e.recentPipe.Run(ctx, rctx, nil)
		if err != nil {
			return nil, err
		}
		return toRecommendations(items), nil
	}

	items, err := e.pipe.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		// 内容链路空手而归（无 embedding 或候选全被排除），热度兜底
		items, err = e.hotPipe.Run(ctx, rctx, nil)
		if err != nil {
			return nil, err
		}
	}
	if len(items) == 0 {
		// 热度也没有结果时落到最近上架，目录非空就保证有输出
		items, err = e.recentPipe.Run(ctx, rctx, nil)
		if err != nil {
			return nil, err
		}
	}
	return toRecommendations(items), nil
}

// SimilarProduct 是相似商品查询的单条结果。
type SimilarProduct struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
}

// GetSimilarProducts 返回与指定商品最相似的在售商品。
// 相似度优先取 embedding 余弦（走相似度缓存），
// 目标商品缺 embedding 时退化为交互用户集合的 Jaccard。
func (e *Engine) GetSimilarProducts(ctx context.Context, productID string, limit int) ([]*SimilarProduct, error) {
	if productID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: product id is required")
	}
	if limit <= 0 {
		limit = 10
	}

	target, err := e.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	products, err := e.catalog.ListInStock(ctx)
	if err != nil {
		return nil, err
	}

	var targetUsers map[string]float64
	if !target.HasEmbedding() {
		targetUsers, err = e.ledgers.ProductUsers(ctx, productID)
		if err != nil {
			return nil, err
		}
	}

	type scored struct {
		id    string
		score float64
	}
	candidates := make([]scored, 0, len(products))
	for _, p := range products {
		if p.ID == target.ID {
			continue
		}
		var sim float64
		if target.HasEmbedding() && p.HasEmbedding() {
			sim, err = e.cache.GetOrCompute(ctx, target.ID, p.ID, func(ctx context.Context, a, b string) (float64, error) {
				return recall.CosineSimilarity(target.Embedding, p.Embedding), nil
			})
			if err != nil {
				return nil, err
			}
		} else if targetUsers != nil {
			users, err := e.ledgers.ProductUsers(ctx, p.ID)
			if err != nil {
				return nil, err
			}
			sim = rank.Jaccard(targetUsers, users)
		}
		if sim > 0 {
			candidates = append(candidates, scored{id: p.ID, score: sim})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score == candidates[j].score {
			return candidates[i].id < candidates[j].id
		}
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]*SimilarProduct, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, &SimilarProduct{ProductID: c.id, Score: c.score})
	}
	return out, nil
}

// GetProfileStats 返回用户画像统计概览。
func (e *Engine) GetProfileStats(ctx context.Context, userID string) (*profile.Stats, error) {
	if userID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: user id is required")
	}
	return e.agg.GetStats(ctx, userID)
}

// GetNormalizedProfile 返回逐桶归一化后的画像。
func (e *Engine) GetNormalizedProfile(ctx context.Context, userID string) (map[string]map[string]float64, error) {
	return e.agg.GetNormalizedProfile(ctx, userID)
}

// ResetProfile 显式重置用户画像。行为账本不动，画像可从账本重放重建。
func (e *Engine) ResetProfile(ctx context.Context, userID string) error {
	if userID == "" {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: user id is required")
	}
	return e.profiles.DeleteProfile(ctx, userID)
}

func toRecommendations(items []*core.Item) []*Recommendation {
	out := make([]*Recommendation, 0, len(items))
	for _, it := range items {
		out = append(out, &Recommendation{
			ProductID:    it.ID,
			ContentScore: it.ContentScore,
			CollabScore:  it.CollabScore,
			FinalScore:   it.Score,
		})
	}
	return out
}
