// Package tracker 是所有外部读取的唯一入口，把缓存、刷新队列和上游
// 客户端组合成 stale-while-revalidate 语义：读请求只有在从未见过的
// 列车上才会等网络，其余情况立即返回（可能已过期的）缓存数据，并在
// 后台安排修复。
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rail-hub/rail-hub/internal/cache"
	"github.com/rail-hub/rail-hub/internal/freshness"
	"github.com/rail-hub/rail-hub/internal/logging"
	"github.com/rail-hub/rail-hub/internal/refresh"
	"github.com/rail-hub/rail-hub/internal/roster"
	"github.com/rail-hub/rail-hub/internal/upstream"
)

// ErrUnknownTrain 表示 key 为空或无法定位任何列车。
var ErrUnknownTrain = errors.New("unknown train")

// Service 组合 Store + Driver + Fetcher + Roster，对 HTTP 层暴露读取、
// 手动刷新和状态查询。
type Service struct {
	store   *cache.Store
	driver  *refresh.Driver
	fetcher upstream.Fetcher
	roster  *roster.Roster
	logger  *logrus.Logger

	snapshotInterval time.Duration
	now              func() time.Time
}

// Options 汇总 Service 的依赖。
type Options struct {
	Store            *cache.Store
	Driver           *refresh.Driver
	Fetcher          upstream.Fetcher
	Roster           *roster.Roster
	Logger           *logrus.Logger
	SnapshotInterval time.Duration
}

// NewService 构造读取门面；SnapshotInterval 缺省为 5 分钟。
func NewService(opts Options) *Service {
	if opts.SnapshotInterval <= 0 {
		opts.SnapshotInterval = 5 * time.Minute
	}
	return &Service{
		store:            opts.Store,
		driver:           opts.Driver,
		fetcher:          opts.Fetcher,
		roster:           opts.Roster,
		logger:           opts.Logger,
		snapshotInterval: opts.SnapshotInterval,
		now:              time.Now,
	}
}

// TrainData 返回一趟列车的最新已知数据：
//
//  1. 缓存有效 → 直接返回，不碰网络；
//  2. 缓存过期 → 优先入队补抓，同时立即返回旧数据；
//  3. 完全没有缓存 → 同步抓取一次（只阻塞本次调用），失败时错误
//     上抛，因为没有任何旧数据可以兜底。
func (s *Service) TrainData(ctx context.Context, key string) (upstream.Document, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrUnknownTrain
	}

	now := s.now()
	entry, ok := s.store.Get(key)
	if ok && entry.ValidAt(now) {
		s.logger.WithFields(logging.TrainFields(key, true, false)).Debug("缓存命中")
		return entry.Data, nil
	}
	if ok {
		s.driver.Enqueue(key, true)
		s.logger.WithFields(logging.TrainFields(key, true, true)).Debug("返回过期数据并安排补抓")
		return entry.Data, nil
	}

	doc, err := s.fetcher.FetchTrain(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithFields(logging.TrainFields(key, false, false)).Warn("首次抓取失败")
		return nil, fmt.Errorf("train %s: %w", key, err)
	}

	s.store.Set(key, doc, now, freshness.TTLFor(doc, now))
	return doc, nil
}

// EnqueueRefresh 手动把一趟列车排进刷新队列。fire-and-forget。
func (s *Service) EnqueueRefresh(key string, priority bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	s.driver.Enqueue(key, priority)
}

// RefreshAll 把整个已知清单排进刷新队列，返回清单大小。
func (s *Service) RefreshAll() int {
	ids := s.roster.IDs()
	for _, id := range ids {
		s.driver.Enqueue(id, false)
	}
	return len(ids)
}

// Status 是只读的运行状态快照。
type Status struct {
	TotalEntries int  `json:"totalEntries"`
	ValidCount   int  `json:"validCount"`
	ExpiredCount int  `json:"expiredCount"`
	QueueLength  int  `json:"queueLength"`
	IsDraining   bool `json:"isDraining"`
}

// Status 汇总缓存与刷新队列的当前状态，供诊断接口输出。
func (s *Service) Status() Status {
	total, valid, expired := s.store.Stats(s.now())
	return Status{
		TotalEntries: total,
		ValidCount:   valid,
		ExpiredCount: expired,
		QueueLength:  s.driver.QueueLen(),
		IsDraining:   s.driver.Draining(),
	}
}

// Bootstrap 在启动时加载快照，并把已过期的条目排队补抓（普通优先级），
// 保证重启后立即有旧数据可读，而不是从空缓存开始。
func (s *Service) Bootstrap() {
	expired := s.store.Load(s.now())
	for _, key := range expired {
		s.driver.Enqueue(key, false)
	}
}

// Run 周期性落盘快照，直到 ctx 结束；结束前再落最后一次，覆盖优雅
// 关停路径。写失败只记日志，下个周期自然重试。
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.store.Save(); err != nil {
				s.logger.WithError(err).WithField("action", "snapshot_save").Error("关停前快照写入失败")
			}
			return
		case <-ticker.C:
			if err := s.store.Save(); err != nil {
				s.logger.WithError(err).WithField("action", "snapshot_save").Warn("周期快照写入失败")
			}
		}
	}
}
