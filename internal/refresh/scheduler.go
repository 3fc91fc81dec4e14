package refresh

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rail-hub/rail-hub/internal/cache"
	"github.com/rail-hub/rail-hub/internal/roster"
)

// Scheduler 按固定周期巡检缓存：临期条目提前入队续期，把过期时间
// 摊平成平滑的刷新流；再从已知清单里抽样补抓冷门列车，单轮抽样量
// 有上限，保证维护本身不会冲垮上游。
type Scheduler struct {
	store  *cache.Store
	driver *Driver
	roster *roster.Roster
	logger *logrus.Logger

	interval    time.Duration
	margin      time.Duration
	sampleLimit int
	now         func() time.Time
}

// SchedulerOptions 汇总 Scheduler 的依赖与调参项。
type SchedulerOptions struct {
	Store  *cache.Store
	Driver *Driver
	Roster *roster.Roster
	Logger *logrus.Logger

	// Interval 是巡检周期；Margin 是临期判定阈值；
	// SampleLimit 限制每轮最多补抓多少冷门列车。
	Interval    time.Duration
	Margin      time.Duration
	SampleLimit int
}

// NewScheduler 构造 Scheduler；Interval/Margin 缺省为 60s，SampleLimit 缺省为 20。
func NewScheduler(opts SchedulerOptions) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 60 * time.Second
	}
	if opts.Margin <= 0 {
		opts.Margin = 60 * time.Second
	}
	if opts.SampleLimit <= 0 {
		opts.SampleLimit = 20
	}
	return &Scheduler{
		store:       opts.Store,
		driver:      opts.Driver,
		roster:      opts.Roster,
		logger:      opts.Logger,
		interval:    opts.Interval,
		margin:      opts.Margin,
		sampleLimit: opts.SampleLimit,
		now:         time.Now,
	}
}

// Run 周期性执行巡检直到 ctx 结束；与读请求活动完全无关。
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep 执行一轮巡检。拆出来方便测试直接驱动。
func (s *Scheduler) Sweep() {
	now := s.now()

	expiring := s.store.ExpiringWithin(now, s.margin)
	for _, key := range expiring {
		s.driver.Enqueue(key, false)
	}

	idle := s.idleCandidates(now)
	for _, key := range idle {
		s.driver.Enqueue(key, false)
	}

	if len(expiring) > 0 || len(idle) > 0 {
		s.logger.WithFields(logrus.Fields{
			"action":   "maintenance_sweep",
			"expiring": len(expiring),
			"idle":     len(idle),
		}).Debug("维护巡检入队完成")
	}
}

// idleCandidates 从清单里找出没有缓存或缓存已过期的列车，随机抽样
// 到上限为止。随机化避免每轮都补抓同一批。
func (s *Scheduler) idleCandidates(now time.Time) []string {
	var candidates []string
	for _, id := range s.roster.IDs() {
		entry, ok := s.store.Get(id)
		if !ok || !entry.ValidAt(now) {
			candidates = append(candidates, id)
		}
	}

	if len(candidates) > s.sampleLimit {
		rand.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		candidates = candidates[:s.sampleLimit]
	}
	return candidates
}
