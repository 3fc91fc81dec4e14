package refresh

import "sync"

// Queue 是待刷新 key 的有序去重列表。去重是它的核心不变量：热点列车
// 被高频轮询时不会把队列撑爆。优先 key 插队到头部，普通 key 追加到尾部，
// 这是唯一的排序规则。
type Queue struct {
	mu      sync.Mutex
	keys    []string
	present map[string]struct{}
}

// NewQueue 创建空队列。
func NewQueue() *Queue {
	return &Queue{
		present: make(map[string]struct{}),
	}
}

// Enqueue 将 key 追加到尾部；key 已在队列中或为空时是 no-op，返回 false。
func (q *Queue) Enqueue(key string) bool {
	if key == "" {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.present[key]; ok {
		return false
	}
	q.present[key] = struct{}{}
	q.keys = append(q.keys, key)
	return true
}

// EnqueueFront 将 key 插到头部，用于读路径上发现的过期条目；
// 同样遵循去重规则，已存在的 key 保持原位置。
func (q *Queue) EnqueueFront(key string) bool {
	if key == "" {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.present[key]; ok {
		return false
	}
	q.present[key] = struct{}{}
	q.keys = append([]string{key}, q.keys...)
	return true
}

// Take 从头部破坏性取出至多 n 个 key。
func (q *Queue) Take(n int) []string {
	if n <= 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.keys) == 0 {
		return nil
	}

	if n > len(q.keys) {
		n = len(q.keys)
	}
	batch := make([]string, n)
	copy(batch, q.keys[:n])
	q.keys = q.keys[n:]
	for _, key := range batch {
		delete(q.present, key)
	}
	return batch
}

// Len 返回当前排队的 key 数量。
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.keys)
}
