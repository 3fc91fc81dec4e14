// Package freshness 根据列车当前状态推导一条缓存数据的可信时长（TTL）。
// 运行中的列车位置变化快，TTL 很短；未出发的列车可以放心缓存到临近发车。
package freshness

import (
	"strconv"
	"strings"
	"time"

	"github.com/rail-hub/rail-hub/internal/upstream"
)

const (
	ttlInTransit = 5 * time.Second
	ttlAtStation = 30 * time.Second
	ttlNearNext  = 30 * time.Second
	ttlAtOrigin  = 45 * time.Second

	// DefaultTTL 是状态无法识别且找不到未来停靠点时的兜底值。
	DefaultTTL = 5 * time.Minute

	// stopMargin 是按停靠时刻推算 TTL 时预留的提前量。
	stopMargin = time.Minute
	// stopFloor 是按停靠时刻推算 TTL 的下限。
	stopFloor = 5 * time.Minute
)

// statusRules 按标签长度降序排列，保证最长匹配优先。
var statusRules = []struct {
	label string
	ttl   time.Duration
}{
	{"in transit", ttlInTransit},
	{"at station", ttlAtStation},
	{"near next", ttlNearNext},
	{"at origin", ttlAtOrigin},
}

// TTLFor 计算 payload 的可信时长。纯函数：结果只取决于 payload 与 now。
func TTLFor(doc upstream.Document, now time.Time) time.Duration {
	status := normalizeStatus(doc.Status())
	for _, rule := range statusRules {
		if strings.Contains(status, rule.label) {
			return rule.ttl
		}
	}
	return ttlFromStops(doc.Stops(), now)
}

// normalizeStatus 统一大小写与分隔符，让 "AT_STATION" 与 "at station" 等价。
func normalizeStatus(status string) string {
	status = strings.ToLower(status)
	status = strings.ReplaceAll(status, "_", " ")
	status = strings.ReplaceAll(status, "-", " ")
	return status
}

// ttlFromStops 在停靠列表中找第一个严格晚于当前时刻的计划时刻，
// TTL 为距离该时刻的时间减去提前量，且不低于下限。
//
// 停靠时刻只有 HH:MM，没有日期；按当日分钟数比较，跨零点的行程不做修正。
func ttlFromStops(stops []upstream.Stop, now time.Time) time.Duration {
	nowMinutes := now.Hour()*60 + now.Minute()

	for _, stop := range stops {
		raw, ok := stop.TimeOfDay()
		if !ok {
			continue
		}
		stopMinutes, ok := parseClock(raw)
		if !ok {
			continue
		}
		if stopMinutes <= nowMinutes {
			continue
		}

		ttl := time.Duration(stopMinutes-nowMinutes)*time.Minute - stopMargin
		if ttl < stopFloor {
			return stopFloor
		}
		return ttl
	}

	return DefaultTTL
}

// parseClock 将 "HH:MM" 解析为当日分钟数。
func parseClock(raw string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, false
	}
	return hours*60 + minutes, true
}
