package refresh

import (
	"strconv"
	"testing"
)

func TestQueueDedup(t *testing.T) {
	q := NewQueue()

	if !q.Enqueue("1") {
		t.Fatalf("first enqueue should succeed")
	}
	if q.Enqueue("1") {
		t.Fatalf("duplicate enqueue must be a no-op")
	}
	if q.EnqueueFront("1") {
		t.Fatalf("duplicate priority enqueue must be a no-op")
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", q.Len())
	}
}

func TestQueueOrdering(t *testing.T) {
	q := NewQueue()
	q.Enqueue("a")
	q.Enqueue("b")
	q.EnqueueFront("urgent")
	q.Enqueue("c")

	got := q.Take(4)
	want := []string{"urgent", "a", "b", "c"}
	for i, key := range want {
		if got[i] != key {
			t.Fatalf("position %d: expected %s, got %v", i, key, got)
		}
	}
}

func TestQueueRejectsEmptyKey(t *testing.T) {
	q := NewQueue()
	if q.Enqueue("") || q.EnqueueFront("") {
		t.Fatalf("empty key must not be queued")
	}
	if q.Len() != 0 {
		t.Fatalf("queue should stay empty")
	}
}

func TestQueueTakeBatches(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 60; i++ {
		q.Enqueue(strconv.Itoa(i))
	}

	sizes := []int{}
	for {
		batch := q.Take(25)
		if len(batch) == 0 {
			break
		}
		sizes = append(sizes, len(batch))
	}

	if len(sizes) != 3 || sizes[0] != 25 || sizes[1] != 25 || sizes[2] != 10 {
		t.Fatalf("60 个 key 按 25 取批应得到 25/25/10, got %v", sizes)
	}
	if q.Len() != 0 {
		t.Fatalf("queue should be empty after full drain")
	}
}

func TestQueueTakeAllowsReenqueue(t *testing.T) {
	q := NewQueue()
	q.Enqueue("1")
	q.Take(1)

	if !q.Enqueue("1") {
		t.Fatalf("key taken out of the queue should be enqueueable again")
	}
}
