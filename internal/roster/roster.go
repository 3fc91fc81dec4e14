// Package roster 维护已知列车的固定清单，供维护任务扫描冷门列车、
// 以及手动全量刷新时使用。清单来自一份 JSON 文件，通常由离线脚本
// 扫全网车站生成。
package roster

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Roster 是已知列车 id 的只读集合。
type Roster struct {
	ids []string
}

// New 直接用 id 列表构造清单，主要供测试与手动装配使用。
func New(ids []string) *Roster {
	return &Roster{ids: append([]string(nil), ids...)}
}

// Load 从 JSON 文件加载清单。支持两种形态：
//
//	[4012, "520", ...]                      纯 id 数组
//	[{"trainNumber": 4012, ...}, ...]       离线抓取产出的列车对象数组
//
// path 为空表示未配置清单，返回空 Roster（维护扫描对冷门列车不做任何事）。
func Load(path string) (*Roster, error) {
	if path == "" {
		return &Roster{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取清单失败: %w", err)
	}

	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("解析清单失败: %w", err)
	}

	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := extractID(item)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return &Roster{ids: ids}, nil
}

// IDs 返回 id 列表的副本。
func (r *Roster) IDs() []string {
	if r == nil || len(r.ids) == 0 {
		return nil
	}
	return append([]string(nil), r.ids...)
}

// Len 返回清单中 id 的数量。
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ids)
}

func extractID(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case map[string]any:
		if num, ok := v["trainNumber"]; ok {
			return extractID(num)
		}
	}
	return ""
}
