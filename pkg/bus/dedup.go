/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Dedup - 消息 id 去重缓存
 *
 * 有界 FIFO 集合。总线是至少一次投递，同一条命令可能重复到达；
 * 按 messageId 去重，把重复投递折叠为恰好一次执行。
 * 条目只按容量淘汰，不按时间过期。
 */
package bus

import "sync"

// DefaultDedupCapacity bounds the recent-id set on the owner side
const DefaultDedupCapacity = 256

// Dedup is a bounded FIFO set of recently seen message ids
type Dedup struct {
	mu       sync.Mutex
	capacity int
	order    []string
	seen     map[string]struct{}
}

// NewDedup creates a dedup cache. A non-positive capacity falls back
// to DefaultDedupCapacity.
func NewDedup(capacity int) *Dedup {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &Dedup{
		capacity: capacity,
		order:    make([]string, 0, capacity),
		seen:     make(map[string]struct{}, capacity),
	}
}

// Seen checks and inserts in one step. It returns true if the id was
// already present; otherwise it records the id, evicting the oldest
// entry when over capacity, and returns false.
func (d *Dedup) Seen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if len(d.order) >= d.capacity {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}

	d.order = append(d.order, id)
	d.seen[id] = struct{}{}
	return false
}

// Len returns the number of ids currently held
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}
