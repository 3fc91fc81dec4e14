package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rail-hub/rail-hub/internal/upstream"
)

// snapshotEntry 是快照文件里单条记录的磁盘形态；时间戳与 TTL 均为毫秒。
// 指针类型用于区分“字段缺失”与“零值”，缺失的记录在加载时按损坏丢弃。
type snapshotEntry struct {
	Data      upstream.Document `json:"data"`
	FetchedAt *int64            `json:"fetchedAt"`
	TTL       *int64            `json:"ttl"`
}

// Save 将全量缓存序列化到快照文件。写入走临时文件 + rename，
// 避免进程中途退出留下半截文件。
func (s *Store) Save() error {
	s.mu.RLock()
	snapshot := make(map[string]snapshotEntry, len(s.entries))
	for key, entry := range s.entries {
		fetchedAt := entry.FetchedAt.UnixMilli()
		ttl := entry.TTL.Milliseconds()
		snapshot[key] = snapshotEntry{
			Data:      entry.Data,
			FetchedAt: &fetchedAt,
			TTL:       &ttl,
		}
	}
	s.mu.RUnlock()

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tempName := tempFile.Name()

	_, writeErr := tempFile.Write(payload)
	closeErr := tempFile.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tempName)
		return fmt.Errorf("write snapshot: %w", writeErr)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("publish snapshot: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"action":  "snapshot_save",
		"path":    s.path,
		"entries": len(snapshot),
	}).Debug("快照已写入")
	return nil
}

// Load 清空内存状态并从快照重建缓存，返回加载后已过期的 key 列表，
// 由调用方安排补抓。快照缺失是正常冷启动；其余读取/解析失败仅记录
// 日志，同样按空缓存处理，绝不阻断启动。
func (s *Store) Load(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry)

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.WithError(err).WithField("action", "snapshot_load").Warn("快照读取失败，按空缓存处理")
		}
		return nil
	}

	var records map[string]json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		s.logger.WithError(err).WithField("action", "snapshot_load").Warn("快照解析失败，按空缓存处理")
		return nil
	}

	var expired []string
	skipped := 0
	for key, record := range records {
		var item snapshotEntry
		if err := json.Unmarshal(record, &item); err != nil {
			skipped++
			continue
		}
		if item.Data == nil || item.FetchedAt == nil || item.TTL == nil {
			skipped++
			continue
		}

		entry := Entry{
			Key:       key,
			Data:      item.Data,
			FetchedAt: time.UnixMilli(*item.FetchedAt),
			TTL:       time.Duration(*item.TTL) * time.Millisecond,
		}
		s.entries[key] = entry

		if !entry.ValidAt(now) {
			expired = append(expired, key)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"action":  "snapshot_load",
		"path":    s.path,
		"entries": len(s.entries),
		"expired": len(expired),
		"skipped": skipped,
	}).Info("快照加载完成")
	return expired
}
