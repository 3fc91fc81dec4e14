package upstream

// Document 表示上游返回的半结构化列车数据。除了状态与到站时刻这些被
// 消费的字段外，其余内容原样透传给前端，不做 schema 约束。
type Document map[string]any

// Status 返回列车状态标签；字段缺失或类型不符时返回空串。
func (d Document) Status() string {
	if d == nil {
		return ""
	}
	if s, ok := d["status"].(string); ok {
		return s
	}
	return ""
}

// stopListKeys 列出上游不同接口版本里承载停靠列表的字段名。
var stopListKeys = []string{"stops", "trainStops"}

// Stops 返回停靠记录列表；字段缺失时返回 nil。
func (d Document) Stops() []Stop {
	if d == nil {
		return nil
	}
	for _, key := range stopListKeys {
		raw, ok := d[key].([]any)
		if !ok {
			continue
		}
		stops := make([]Stop, 0, len(raw))
		for _, item := range raw {
			if m, ok := item.(map[string]any); ok {
				stops = append(stops, Stop(m))
			}
		}
		return stops
	}
	return nil
}

// Stop 是单条停靠记录，同样保持半结构化。
type Stop map[string]any

// stopTimeKeys 列出不同接口版本里承载到站时刻（HH:MM）的字段别名。
var stopTimeKeys = []string{"eta", "arrival", "departure", "time"}

// TimeOfDay 返回该停靠点的计划时刻字符串（HH:MM）。
func (s Stop) TimeOfDay() (string, bool) {
	for _, key := range stopTimeKeys {
		if v, ok := s[key].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
