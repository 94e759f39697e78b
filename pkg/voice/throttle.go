/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * SnapshotThrottle - 快照发布节流
 *
 * 窗口期外的触发立即发送；窗口期内的任意多次触发合并为
 * 一次尾随发送，发送内容取触发回调执行时刻的最新状态。
 * 同一时刻最多挂起一个尾随定时器。
 */
package voice

import (
	"sync"
	"time"
)

// DefaultSnapshotInterval is the minimum spacing between publishes
const DefaultSnapshotInterval = 150 * time.Millisecond

// SnapshotThrottle rate-limits snapshot publishes with a leading send
// and a single coalescing trailing send
type SnapshotThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	fire     func()
	lastSent time.Time
	trailing *time.Timer
	stopped  bool
}

// NewSnapshotThrottle creates a throttle around fire. fire must read
// the state it publishes at call time, not at trigger time.
func NewSnapshotThrottle(interval time.Duration, fire func()) *SnapshotThrottle {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	return &SnapshotThrottle{
		interval: interval,
		fire:     fire,
	}
}

// Trigger requests a publish. It sends immediately when the window has
// elapsed, otherwise arms (or coalesces into) the one trailing timer.
func (t *SnapshotThrottle) Trigger() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	if t.trailing != nil {
		// 已有尾随发送挂起，本次触发合并进去
		t.mu.Unlock()
		return
	}

	now := time.Now()
	elapsed := now.Sub(t.lastSent)
	if elapsed >= t.interval {
		t.lastSent = now
		t.mu.Unlock()
		t.fire()
		return
	}

	t.trailing = time.AfterFunc(t.interval-elapsed, t.fireTrailing)
	t.mu.Unlock()
}

func (t *SnapshotThrottle) fireTrailing() {
	t.mu.Lock()
	t.trailing = nil
	t.lastSent = time.Now()
	stopped := t.stopped
	t.mu.Unlock()

	if !stopped {
		t.fire()
	}
}

// Pending reports whether a trailing send is armed
func (t *SnapshotThrottle) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.trailing != nil
}

// Stop cancels any pending trailing send and disables the throttle
func (t *SnapshotThrottle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.trailing != nil {
		t.trailing.Stop()
		t.trailing = nil
	}
}
