package core

import "context"

// LedgerStore 是行为账本的领域接口：只追加的用户行为存储。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 记录不可变：只有 Append，没有 Update/Delete
//   - 热度统计是账本的一等公民，冷启动与兜底排序都依赖它
//
// 实现：
//   - store.MemoryStore（测试/开发）
//   - store.RedisStore（生产：LPUSH 列表 + ZINCRBY 热度）
type LedgerStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Append 追加一条行为记录（同步持久化，调用方等待落盘）
	Append(ctx context.Context, rec *Interaction) error

	// UserInteractions 获取用户全部行为记录（按时间从新到旧）
	UserInteractions(ctx context.Context, userID string) ([]*Interaction, error)

	// UserInteractionCount 获取用户行为总数（用于质量档位）
	UserInteractionCount(ctx context.Context, userID string) (int64, error)

	// InteractedProducts 获取用户交互过的商品 ID 集合（用于排除过滤）
	InteractedProducts(ctx context.Context, userID string) (map[string]struct{}, error)

	// ProductUsers 获取与商品交互过的用户及其累计权重（用于 Jaccard 兜底）
	ProductUsers(ctx context.Context, productID string) (map[string]float64, error)

	// InteractionCount 获取商品被交互的总次数（热度信号）
	InteractionCount(ctx context.Context, productID string) (int64, error)

	// TotalInteractions 获取系统内行为总数（全空时触发最近上架兜底）
	TotalInteractions(ctx context.Context) (int64, error)

	// TopInteracted 按交互次数降序获取热门商品 ID
	TopInteracted(ctx context.Context, limit int) ([]string, error)

	// Close 关闭连接/释放资源
	Close() error
}

// ProfileStore 是偏好画像的领域接口。
//
// 关键契约：IncrBucket 必须是原子加（redis HINCRBYFLOAT / 内存锁内加法），
// 不能读出再写回，否则同一用户并发行为会丢增量。
type ProfileStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// GetProfile 读取画像，不存在时返回 NOT_FOUND
	GetProfile(ctx context.Context, userID string) (*PreferenceProfile, error)

	// CreateProfile 创建画像（冷启动播种或首次行为时）
	CreateProfile(ctx context.Context, profile *PreferenceProfile) error

	// IncrBucket 对指定桶的 label 做原子加（delta 可为负）
	IncrBucket(ctx context.Context, userID, bucket, label string, delta float64) error

	// SetBucket 整桶覆盖（仅价格档位桶使用：全量重算，非增量）
	SetBucket(ctx context.Context, userID, bucket string, weights map[string]float64) error

	// IncrInteractions 行为计数原子加一
	IncrInteractions(ctx context.Context, userID string) error

	// SaveVector 缓存偏好向量（传 nil 表示失效）
	SaveVector(ctx context.Context, userID string, vec []float64) error

	// DeleteProfile 显式重置：删除画像全部状态
	DeleteProfile(ctx context.Context, userID string) error

	// Close 关闭连接/释放资源
	Close() error
}

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrProfileNotFound 表示画像不存在（触发惰性初始化）
	ErrProfileNotFound = NewDomainError(ModuleProfile, ErrorCodeNotFound, "profile: not found")

	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")
)

// IsProfileNotFound 检查错误是否为画像不存在。
func IsProfileNotFound(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleProfile && domainErr.Code == ErrorCodeNotFound
}
