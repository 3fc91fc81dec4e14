package cache

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rail-hub/rail-hub/internal/upstream"
)

// Entry 是单趟列车的缓存条目。Data 一旦写入就不会为 nil；过期只影响
// 有效性判断，条目本身仅在整体重载时才被清除。
type Entry struct {
	Key       string
	Data      upstream.Document
	FetchedAt time.Time
	TTL       time.Duration
}

// ValidAt 判断条目在 now 时刻是否仍然可信。
func (e Entry) ValidAt(now time.Time) bool {
	return now.Sub(e.FetchedAt) < e.TTL
}

// RemainingAt 返回条目在 now 时刻的剩余可信时长，已过期时为负。
func (e Entry) RemainingAt(now time.Time) time.Duration {
	return e.TTL - now.Sub(e.FetchedAt)
}

// Store 独占持有所有缓存条目；其余组件只保存 key 引用，不复制 payload。
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry

	path   string
	logger *logrus.Logger
}

// NewStore 构造空缓存；path 指向快照文件，进程内整站复用一份实例。
func NewStore(path string, logger *logrus.Logger) *Store {
	return &Store{
		entries: make(map[string]Entry),
		path:    path,
		logger:  logger,
	}
}

// Get 返回条目副本；不存在时第二个返回值为 false。
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok
}

// Set 无条件覆盖条目，不做部分合并。
func (s *Store) Set(key string, data upstream.Document, fetchedAt time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{
		Key:       key,
		Data:      data,
		FetchedAt: fetchedAt,
		TTL:       ttl,
	}
}

// Len 返回当前条目总数。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats 统计有效/过期条目数量，供状态接口输出。
func (s *Store) Stats(now time.Time) (total, valid, expired int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total = len(s.entries)
	for _, entry := range s.entries {
		if entry.ValidAt(now) {
			valid++
		} else {
			expired++
		}
	}
	return total, valid, expired
}

// ExpiringWithin 返回剩余有效期在 (0, margin] 区间内的 key，
// 即尚未过期但即将到期的条目，供维护任务提前续期。
func (s *Store) ExpiringWithin(now time.Time, margin time.Duration) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key, entry := range s.entries {
		remaining := entry.RemainingAt(now)
		if remaining > 0 && remaining <= margin {
			keys = append(keys, key)
		}
	}
	return keys
}
