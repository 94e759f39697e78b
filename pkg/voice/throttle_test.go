/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Snapshot Throttle Tests
 */
package voice

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestThrottleLeadingFire(t *testing.T) {
	var fires int32
	th := NewSnapshotThrottle(50*time.Millisecond, func() {
		atomic.AddInt32(&fires, 1)
	})
	defer th.Stop()

	// 窗口外的第一次触发立即发送
	th.Trigger()
	if n := atomic.LoadInt32(&fires); n != 1 {
		t.Fatalf("Expected immediate fire, got %d", n)
	}
}

func TestThrottleCoalescesBurst(t *testing.T) {
	var fires int32
	th := NewSnapshotThrottle(50*time.Millisecond, func() {
		atomic.AddInt32(&fires, 1)
	})
	defer th.Stop()

	// 窗口内的连续触发合并成一次尾随发送
	for i := 0; i < 10; i++ {
		th.Trigger()
	}
	if n := atomic.LoadInt32(&fires); n != 1 {
		t.Fatalf("Expected only the leading fire, got %d", n)
	}
	if !th.Pending() {
		t.Error("Expected a trailing send pending")
	}

	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&fires); n != 2 {
		t.Errorf("Expected leading + one trailing fire, got %d", n)
	}
	if th.Pending() {
		t.Error("Trailing timer should have cleared")
	}
}

func TestThrottleSpacing(t *testing.T) {
	var fires int32
	interval := 40 * time.Millisecond
	th := NewSnapshotThrottle(interval, func() {
		atomic.AddInt32(&fires, 1)
	})
	defer th.Stop()

	// 持续高频触发 200ms，发送次数受窗口约束
	stop := time.After(200 * time.Millisecond)
loop:
	for {
		select {
		case <-stop:
			break loop
		default:
			th.Trigger()
			time.Sleep(5 * time.Millisecond)
		}
	}
	time.Sleep(2 * interval)

	n := atomic.LoadInt32(&fires)
	if n < 3 || n > 8 {
		t.Errorf("Expected roughly 200ms/40ms fires, got %d", n)
	}
}

func TestThrottleStopCancelsTrailing(t *testing.T) {
	var fires int32
	th := NewSnapshotThrottle(50*time.Millisecond, func() {
		atomic.AddInt32(&fires, 1)
	})

	th.Trigger()
	th.Trigger() // 挂起尾随
	th.Stop()

	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&fires); n != 1 {
		t.Errorf("Trailing fire survived Stop: %d", n)
	}

	// Stop 后的触发被忽略
	th.Trigger()
	if n := atomic.LoadInt32(&fires); n != 1 {
		t.Errorf("Trigger after Stop fired: %d", n)
	}
}
