package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rail-hub/rail-hub/internal/cache"
	"github.com/rail-hub/rail-hub/internal/freshness"
	"github.com/rail-hub/rail-hub/internal/upstream"
)

// Driver 按批次消费刷新队列：每批并发抓取至多 BatchSize 趟列车，批与批
// 之间停顿 Pause 来约束上游请求速率。全局同一时刻至多一轮 drain 在跑，
// 由一个原子布尔保证；drain 进行中新入队的 key 由当前这轮继续消费。
type Driver struct {
	queue   *Queue
	store   *cache.Store
	fetcher upstream.Fetcher
	logger  *logrus.Logger

	batchSize int
	pause     time.Duration

	draining atomic.Bool
	wg       sync.WaitGroup
	now      func() time.Time
}

// DriverOptions 汇总 Driver 的依赖与调参项。
type DriverOptions struct {
	Queue     *Queue
	Store     *cache.Store
	Fetcher   upstream.Fetcher
	Logger    *logrus.Logger
	BatchSize int
	Pause     time.Duration
}

// NewDriver 构造 Driver；BatchSize 缺省为 25，Pause 缺省为 500ms。
func NewDriver(opts DriverOptions) *Driver {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 25
	}
	if opts.Pause < 0 {
		opts.Pause = 500 * time.Millisecond
	}
	return &Driver{
		queue:     opts.Queue,
		store:     opts.Store,
		fetcher:   opts.Fetcher,
		logger:    opts.Logger,
		batchSize: opts.BatchSize,
		pause:     opts.Pause,
		now:       time.Now,
	}
}

// Enqueue 将 key 加入刷新队列；priority 为 true 时插队到头部。
// 若当前没有 drain 在跑则立即启动一轮。fire-and-forget。
func (d *Driver) Enqueue(key string, priority bool) {
	if priority {
		d.queue.EnqueueFront(key)
	} else {
		d.queue.Enqueue(key)
	}

	// 重复 key 不会再次入队，但仍要确保有 drain 在消费。
	d.kick()
}

// Draining 返回当前是否有 drain 在运行，供状态接口输出。
func (d *Driver) Draining() bool {
	return d.draining.Load()
}

// QueueLen 透出队列长度。
func (d *Driver) QueueLen() int {
	return d.queue.Len()
}

// Wait 阻塞到所有在途 drain 结束，用于优雅关停与测试。
func (d *Driver) Wait() {
	d.wg.Wait()
}

// kick 在 Idle 状态下启动一轮 drain；CAS 失败说明已有一轮在跑。
func (d *Driver) kick() {
	if d.queue.Len() == 0 {
		return
	}
	if !d.draining.CompareAndSwap(false, true) {
		return
	}
	d.wg.Add(1)
	go d.drain()
}

// drain 重复取批、抓取、落缓存，队列耗尽后整体落一次快照再回到 Idle。
func (d *Driver) drain() {
	defer d.wg.Done()

	processed := 0
	for {
		batch := d.queue.Take(d.batchSize)
		if len(batch) == 0 {
			break
		}

		d.fetchBatch(batch)
		processed += len(batch)

		if d.queue.Len() > 0 && d.pause > 0 {
			time.Sleep(d.pause)
		}
	}

	if err := d.store.Save(); err != nil {
		d.logger.WithError(err).WithField("action", "snapshot_save").Warn("drain 结束时快照写入失败")
	}

	d.logger.WithFields(logrus.Fields{
		"action":    "refresh_drain",
		"processed": processed,
	}).Debug("drain 完成")

	d.draining.Store(false)

	// 置回 Idle 与最后一次 Take 之间入队的 key 不能丢，补一脚。
	d.kick()
}

// fetchBatch 并发抓取一批列车；单个失败只记日志，旧条目原样保留，
// 不自动重试——如果仍然过期，下一轮维护扫描会再次入队。
func (d *Driver) fetchBatch(batch []string) {
	var wg sync.WaitGroup
	for _, key := range batch {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()

			doc, err := d.fetcher.FetchTrain(context.Background(), key)
			if err != nil {
				d.logger.WithError(err).WithFields(logrus.Fields{
					"action":   "refresh_fetch",
					"train_id": key,
				}).Warn("后台刷新失败")
				return
			}

			now := d.now()
			d.store.Set(key, doc, now, freshness.TTLFor(doc, now))
		}(key)
	}
	wg.Wait()
}
