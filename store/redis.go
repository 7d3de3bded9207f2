package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/shoprec/core"
)

// RedisLedger 是 Redis 实现的 LedgerStore，生产环境使用。
//
// key 布局：
//   - ledger:user:{userID}          LPUSH JSON 记录（从新到旧）
//   - ledger:product:{productID}:users  HASH userID -> 累计权重（HINCRBYFLOAT）
//   - ledger:popularity             ZSET productID -> 交互次数（ZINCRBY）
//   - ledger:total                  INCR 计数器
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(addr string, db int) (*RedisLedger, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisLedger{client: client}, nil
}

func (r *RedisLedger) Name() string { return "redis" }

type ledgerRecord struct {
	UserID    string         `json:"user_id"`
	ProductID string         `json:"product_id"`
	Type      string         `json:"type"`
	Weight    float64        `json:"weight"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

func (r *RedisLedger) Append(ctx context.Context, rec *core.Interaction) error {
	data, err := json.Marshal(ledgerRecord{
		UserID:    rec.UserID,
		ProductID: rec.ProductID,
		Type:      string(rec.Type),
		Weight:    rec.Weight,
		Metadata:  rec.Metadata,
		Timestamp: rec.Timestamp.UnixMilli(),
	})
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, "ledger:user:"+rec.UserID, data)
	pipe.HIncrByFloat(ctx, "ledger:product:"+rec.ProductID+":users", rec.UserID, rec.Weight)
	pipe.ZIncrBy(ctx, "ledger:popularity", 1, rec.ProductID)
	pipe.Incr(ctx, "ledger:total")
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisLedger) UserInteractions(ctx context.Context, userID string) ([]*core.Interaction, error) {
	vals, err := r.client.LRange(ctx, "ledger:user:"+userID, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*core.Interaction, 0, len(vals))
	for _, v := range vals {
		var rec ledgerRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			continue
		}
		out = append(out, &core.Interaction{
			UserID:    rec.UserID,
			ProductID: rec.ProductID,
			Type:      core.InteractionType(rec.Type),
			Weight:    rec.Weight,
			Metadata:  rec.Metadata,
			Timestamp: time.UnixMilli(rec.Timestamp),
		})
	}
	return out, nil
}

func (r *RedisLedger) UserInteractionCount(ctx context.Context, userID string) (int64, error) {
	return r.client.LLen(ctx, "ledger:user:"+userID).Result()
}

func (r *RedisLedger) InteractedProducts(ctx context.Context, userID string) (map[string]struct{}, error) {
	recs, err := r.UserInteractions(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		out[rec.ProductID] = struct{}{}
	}
	return out, nil
}

func (r *RedisLedger) ProductUsers(ctx context.Context, productID string) (map[string]float64, error) {
	vals, err := r.client.HGetAll(ctx, "ledger:product:"+productID+":users").Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(vals))
	for user, raw := range vals {
		if w, err := strconv.ParseFloat(raw, 64); err == nil {
			out[user] = w
		}
	}
	return out, nil
}

func (r *RedisLedger) InteractionCount(ctx context.Context, productID string) (int64, error) {
	score, err := r.client.ZScore(ctx, "ledger:popularity", productID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int64(score), nil
}

func (r *RedisLedger) TotalInteractions(ctx context.Context) (int64, error) {
	val, err := r.client.Get(ctx, "ledger:total").Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

func (r *RedisLedger) TopInteracted(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.client.ZRevRange(ctx, "ledger:popularity", 0, int64(limit-1)).Result()
}

func (r *RedisLedger) Close() error {
	return r.client.Close()
}

var _ core.LedgerStore = (*RedisLedger)(nil)

// RedisProfileStore 是 Redis 实现的 ProfileStore。
//
// key 布局：
//   - profile:{userID}:meta            HASH bootstrap / interactions / updated_at
//   - profile:{userID}:bucket:{name}   HASH label -> 权重（HINCRBYFLOAT 原子加）
//   - profile:{userID}:vector          JSON []float64
//
// HINCRBYFLOAT 保证同一用户并发行为下增量不丢失（引擎的并发契约）。
type RedisProfileStore struct {
	client *redis.Client
}

func NewRedisProfileStore(addr string, db int) (*RedisProfileStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisProfileStore{client: client}, nil
}

func (r *RedisProfileStore) Name() string { return "redis" }

func metaKey(userID string) string { return "profile:" + userID + ":meta" }
func bucketKey(userID, bucket string) string {
	return "profile:" + userID + ":bucket:" + bucket
}
func vectorKey(userID string) string { return "profile:" + userID + ":vector" }

func (r *RedisProfileStore) GetProfile(ctx context.Context, userID string) (*core.PreferenceProfile, error) {
	meta, err := r.client.HGetAll(ctx, metaKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, core.ErrProfileNotFound
	}

	p := core.NewPreferenceProfile(userID)
	p.Bootstrap = meta["bootstrap"] == "1"
	if n, err := strconv.ParseInt(meta["interactions"], 10, 64); err == nil {
		p.Interactions = n
	}
	if ts, err := strconv.ParseInt(meta["updated_at"], 10, 64); err == nil {
		p.UpdatedAt = time.UnixMilli(ts)
	}

	for _, bucket := range core.BucketNames() {
		vals, err := r.client.HGetAll(ctx, bucketKey(userID, bucket)).Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		labels := make(map[string]float64, len(vals))
		for label, raw := range vals {
			if w, err := strconv.ParseFloat(raw, 64); err == nil {
				labels[label] = w
			}
		}
		p.Buckets[bucket] = labels
	}

	if data, err := r.client.Get(ctx, vectorKey(userID)).Bytes(); err == nil {
		var vec []float64
		if json.Unmarshal(data, &vec) == nil {
			p.Vector = vec
		}
	}

	return p, nil
}

func (r *RedisProfileStore) CreateProfile(ctx context.Context, profile *core.PreferenceProfile) error {
	// HSETNX 保证并发创建不互相覆盖
	created, err := r.client.HSetNX(ctx, metaKey(profile.UserID), "created", "1").Result()
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	pipe := r.client.TxPipeline()
	bootstrap := "0"
	if profile.Bootstrap {
		bootstrap = "1"
	}
	pipe.HSet(ctx, metaKey(profile.UserID),
		"bootstrap", bootstrap,
		"interactions", strconv.FormatInt(profile.Interactions, 10),
		"updated_at", strconv.FormatInt(time.Now().UnixMilli(), 10),
	)
	for bucket, labels := range profile.Buckets {
		for label, w := range labels {
			pipe.HIncrByFloat(ctx, bucketKey(profile.UserID, bucket), label, w)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisProfileStore) IncrBucket(ctx context.Context, userID, bucket, label string, delta float64) error {
	pipe := r.client.TxPipeline()
	pipe.HSetNX(ctx, metaKey(userID), "created", "1")
	pipe.HIncrByFloat(ctx, bucketKey(userID, bucket), label, delta)
	pipe.HSet(ctx, metaKey(userID), "updated_at", strconv.FormatInt(time.Now().UnixMilli(), 10))
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisProfileStore) SetBucket(ctx context.Context, userID, bucket string, weights map[string]float64) error {
	key := bucketKey(userID, bucket)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(weights) > 0 {
		kvs := make([]any, 0, len(weights)*2)
		for label, w := range weights {
			kvs = append(kvs, label, strconv.FormatFloat(w, 'f', -1, 64))
		}
		pipe.HSet(ctx, key, kvs...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisProfileStore) IncrInteractions(ctx context.Context, userID string) error {
	return r.client.HIncrBy(ctx, metaKey(userID), "interactions", 1).Err()
}

func (r *RedisProfileStore) SaveVector(ctx context.Context, userID string, vec []float64) error {
	if vec == nil {
		return r.client.Del(ctx, vectorKey(userID)).Err()
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, vectorKey(userID), data, 0).Err()
}

func (r *RedisProfileStore) DeleteProfile(ctx context.Context, userID string) error {
	keys := []string{metaKey(userID), vectorKey(userID)}
	for _, bucket := range core.BucketNames() {
		keys = append(keys, bucketKey(userID, bucket))
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisProfileStore) Close() error {
	return r.client.Close()
}

var _ core.ProfileStore = (*RedisProfileStore)(nil)
