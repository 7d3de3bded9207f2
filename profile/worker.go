package profile

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/shoprec/core"
)

// Worker 是画像的异步更新队列：写入方投递后立即返回，
// 后台 goroutine 池逐条执行 Aggregator.Update。
// 队列满时 EnqueueUpdate 返回 false 而不是阻塞，行为本身已落账本，丢的只是本次画像增量。
type Worker struct {
	agg     *Aggregator
	queue   chan *core.Interaction
	logger  zerolog.Logger
	timeout time.Duration
	workers int

	// mu 保护 closed 与 queue 的关闭：Stop 与在途的 EnqueueUpdate 并发时，
	// 往已关闭 channel 发送会 panic，必须挡在锁外。
	mu     sync.RWMutex
	closed bool

	group  *errgroup.Group
	cancel context.CancelFunc
}

// WorkerConfig 控制队列容量与并发度，零值取默认。
type WorkerConfig struct {
	QueueSize int           `yaml:"queue_size"` // 默认 1024
	Workers   int           `yaml:"workers"`    // 默认 4
	Timeout   time.Duration `yaml:"timeout"`    // 单条更新超时，默认 5s
}

func NewWorker(agg *Aggregator, cfg WorkerConfig, logger zerolog.Logger) *Worker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Worker{
		agg:     agg,
		queue:   make(chan *core.Interaction, cfg.QueueSize),
		logger:  logger,
		timeout: cfg.Timeout,
		workers: cfg.Workers,
	}
}

// Start 启动后台消费。重复调用是未定义行为，由上层保证只启动一次。
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.group, ctx = errgroup.WithContext(ctx)

	for i := 0; i < w.workers; i++ {
		w.group.Go(func() error {
			w.run(ctx)
			return nil
		})
	}
}

// EnqueueUpdate 非阻塞投递一条待聚合的行为记录。
// 队列满或 Worker 已停止时返回 false。
func (w *Worker) EnqueueUpdate(rec *core.Interaction) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return false
	}
	select {
	case w.queue <- rec:
		return true
	default:
		return false
	}
}

// Stop 关闭队列，排空剩余记录后返回。重复调用是 no-op。
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	if w.group != nil {
		_ = w.group.Wait()
	}
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Worker) run(ctx context.Context) {
	for rec := range w.queue {
		uctx, cancel := context.WithTimeout(ctx, w.timeout)
		err := w.agg.Update(uctx, rec)
		cancel()
		if err != nil {
			// 失败只记日志，不重试：下一条同用户记录到来时画像会继续累计，
			// 丢失的是单条增量而非整个画像
			w.logger.Error().
				Err(err).
				Str("user_id", rec.UserID).
				Str("product_id", rec.ProductID).
				Str("type", string(rec.Type)).
				Msg("profile update failed")
		}
	}
}
