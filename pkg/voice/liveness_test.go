/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Heartbeat / Liveness Tests
 */
package voice

import (
	"sync"
	"testing"
	"time"

	"github.com/maiguangyang/voice_core/pkg/bus"
)

// captureBus records published messages for assertions
type captureBus struct {
	mu      sync.Mutex
	msgs    []bus.Message
	handler bus.Handler
}

func (b *captureBus) Publish(msg bus.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
}

func (b *captureBus) Subscribe(handler bus.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

func (b *captureBus) Close() {}

func (b *captureBus) published() []bus.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]bus.Message, len(b.msgs))
	copy(out, b.msgs)
	return out
}

// deliver injects an inbound message as if another process published it
func (b *captureBus) deliver(msg bus.Message) {
	b.mu.Lock()
	handler := b.handler
	b.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
}

func TestHeartbeaterEmitsImmediately(t *testing.T) {
	b := &captureBus{}
	h := NewHeartbeater(b, "owner-1", time.Hour)
	defer h.Stop()

	h.Start()

	msgs := b.published()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 immediate heartbeat, got %d", len(msgs))
	}
	if msgs[0].Kind != bus.KindHeartbeat || msgs[0].From != "owner-1" {
		t.Errorf("Unexpected heartbeat envelope: %+v", msgs[0])
	}
}

func TestHeartbeaterTicks(t *testing.T) {
	b := &captureBus{}
	h := NewHeartbeater(b, "owner-1", 20*time.Millisecond)
	defer h.Stop()

	h.Start()
	time.Sleep(110 * time.Millisecond)

	if n := len(b.published()); n < 3 {
		t.Errorf("Expected at least 3 heartbeats, got %d", n)
	}
}

func TestHeartbeaterStop(t *testing.T) {
	b := &captureBus{}
	h := NewHeartbeater(b, "owner-1", 20*time.Millisecond)

	h.Start()
	h.Stop()
	count := len(b.published())

	time.Sleep(80 * time.Millisecond)
	if n := len(b.published()); n != count {
		t.Errorf("Heartbeats continued after Stop: %d -> %d", count, n)
	}

	// Stop 幂等
	h.Stop()
}

func TestOwnerTrackerUnavailableBeforeFirstSighting(t *testing.T) {
	tracker := NewOwnerTracker(5 * time.Second)

	if tracker.Available() {
		t.Error("Owner should be unavailable before any sighting")
	}
}

func TestOwnerTrackerStaleness(t *testing.T) {
	now := time.Now()
	tracker := NewOwnerTracker(5 * time.Second)
	tracker.now = func() time.Time { return now }

	tracker.Observe("owner-1", now)
	if !tracker.Available() {
		t.Error("Owner should be available right after a sighting")
	}

	// 阈值内
	now = now.Add(4 * time.Second)
	if !tracker.Available() {
		t.Error("Owner should be available within the threshold")
	}

	// 超过阈值
	now = now.Add(2 * time.Second)
	if tracker.Available() {
		t.Error("Owner should be stale past the threshold")
	}

	// 新的心跳恢复可用
	tracker.Observe("owner-1", now)
	if !tracker.Available() {
		t.Error("Owner should recover on a fresh sighting")
	}
}

func TestOwnerTrackerKeepsLatestSighting(t *testing.T) {
	tracker := NewOwnerTracker(5 * time.Second)

	newer := time.Now()
	older := newer.Add(-time.Second)

	// 乱序到达：旧时间戳不能回退 lastSeen
	tracker.Observe("owner-1", newer)
	tracker.Observe("owner-1", older)

	_, lastSeen := tracker.Owner()
	if !lastSeen.Equal(newer) {
		t.Errorf("Expected lastSeen %v, got %v", newer, lastSeen)
	}
}
